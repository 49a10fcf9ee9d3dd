package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"smart-audio/internal/app/api"
	apperrors "smart-audio/internal/app/errors"
)

// Translator translates segment transcripts through a chat completion model
type Translator struct {
	client         *openai.Client
	model          string
	targetLanguage string
}

var _ api.Translator = (*Translator)(nil)

// NewTranslator creates a chat translator for one model
func NewTranslator(client *openai.Client, model, targetLanguage string) *Translator {
	if targetLanguage == "" {
		targetLanguage = "en"
	}
	return &Translator{client: client, model: model, targetLanguage: targetLanguage}
}

// NewTranslatorFactory returns a factory producing chat translators that share client
func NewTranslatorFactory(client *openai.Client, targetLanguage string) api.TranslatorFactory {
	return func(modelName string) (api.Translator, error) {
		if modelName == "" {
			return nil, fmt.Errorf("model name is required")
		}
		return NewTranslator(client, modelName, targetLanguage), nil
	}
}

func (t *Translator) prompt(sourceLanguage string) string {
	source := "the source language"
	if sourceLanguage != "" {
		source = fmt.Sprintf("language code %q", sourceLanguage)
	}
	return fmt.Sprintf(
		"Translate the user's text from %s into language code %q. Reply with the translation only.",
		source, t.targetLanguage,
	)
}

// Translate sends one transcript to the chat model
func (t *Translator) Translate(ctx context.Context, text, sourceLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	request := openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: t.prompt(sourceLanguage),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	}
	resp, err := t.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", apperrors.ModelFailure(t.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.ModelFailure(t.model, fmt.Errorf("no choices in response"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
