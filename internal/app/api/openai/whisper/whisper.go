package whisper

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"smart-audio/internal/app/api"
	apperrors "smart-audio/internal/app/errors"
)

// RemoteRecognizer implements remote recognition using the OpenAI API.
type RemoteRecognizer struct {
	client   *openai.Client
	model    string
	language string
}

var _ api.Recognizer = (*RemoteRecognizer)(nil)

// NewRemoteRecognizer creates a new RemoteRecognizer instance. An empty
// language lets whisper detect it.
func NewRemoteRecognizer(client *openai.Client, model, language string) *RemoteRecognizer {
	if model == "" {
		model = openai.Whisper1
	}
	return &RemoteRecognizer{client: client, model: model, language: language}
}

// Recognize transcribes one clip. The verbose JSON format is requested so
// the detected language comes back with the text.
func (rr *RemoteRecognizer) Recognize(ctx context.Context, wavPath string) (api.Recognition, error) {
	req := openai.AudioRequest{
		Model:    rr.model,
		FilePath: wavPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: rr.language,
	}
	resp, err := rr.client.CreateTranscription(ctx, req)
	if err != nil {
		return api.Recognition{}, apperrors.ModelFailure("whisper", fmt.Errorf("createTranscription failed: %w", err))
	}

	language := resp.Language
	if language == "" {
		language = rr.language
	}
	return api.Recognition{
		Text:     strings.TrimSpace(resp.Text),
		Language: api.NormalizeLanguage(language),
	}, nil
}
