package sidecar

import (
	"context"
	"fmt"
	"strings"

	"smart-audio/internal/app/api"
	apperrors "smart-audio/internal/app/errors"
)

// Translator calls a translation server hosting seq2seq models by name
type Translator struct {
	client
	model     string
	maxLength int
}

var _ api.Translator = (*Translator)(nil)

type translateRequest struct {
	Model          string `json:"model"`
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language,omitempty"`
	MaxLength      int    `json:"max_length,omitempty"`
}

type translateResponse struct {
	TranslationText string `json:"translation_text"`
}

// NewTranslatorFactory returns a factory producing translators for config's server
func NewTranslatorFactory(config Config, maxLength int) api.TranslatorFactory {
	c := newClient(config)
	return func(modelName string) (api.Translator, error) {
		if modelName == "" {
			return nil, fmt.Errorf("model name is required")
		}
		return &Translator{client: c, model: modelName, maxLength: maxLength}, nil
	}
}

// Translate translates text with this translator's model
func (t *Translator) Translate(ctx context.Context, text, sourceLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	var resp translateResponse
	req := translateRequest{Model: t.model, Text: text, SourceLanguage: sourceLanguage, MaxLength: t.maxLength}
	if err := t.postJSON(ctx, "/translate", req, &resp); err != nil {
		return "", apperrors.ModelFailure(t.model, err)
	}
	return strings.TrimSpace(resp.TranslationText), nil
}
