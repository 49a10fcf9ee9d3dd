package whisper_server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smart-audio/internal/app/api"
	apperrors "smart-audio/internal/app/errors"
)

// WhisperServerRecognizer implements recognition via HTTP to a whisper-server instance
type WhisperServerRecognizer struct {
	config WhisperServerConfig
	client *http.Client
}

var _ api.Recognizer = (*WhisperServerRecognizer)(nil)

// WhisperServerConfig represents configuration for whisper-server HTTP API
type WhisperServerConfig struct {
	BaseURL        string            `yaml:"base_url"`        // Base URL of whisper-server (e.g., "http://192.168.1.100:8080")
	InferencePath  string            `yaml:"inference_path"`  // Inference endpoint path (default: "/inference")
	Timeout        time.Duration     `yaml:"timeout"`         // Request timeout
	Language       string            `yaml:"language"`        // Default language code, "auto" to detect
	ResponseFormat string            `yaml:"response_format"` // json or verbose_json
	Temperature    float64           `yaml:"temperature"`     // Decoding temperature (0.0-1.0)
	CustomHeaders  map[string]string `yaml:"custom_headers"`  // Custom HTTP headers
}

// WhisperServerResponse represents the response from whisper-server
type WhisperServerResponse struct {
	Text             string                 `json:"text,omitempty"`
	Task             string                 `json:"task,omitempty"`
	Language         string                 `json:"language,omitempty"`
	Duration         float64                `json:"duration,omitempty"`
	Segments         []WhisperServerSegment `json:"segments,omitempty"`
	DetectedLanguage string                 `json:"detected_language,omitempty"`
}

// WhisperServerSegment represents a segment in verbose response
type WhisperServerSegment struct {
	ID    int     `json:"id"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewWhisperServerRecognizer creates a new whisper-server HTTP recognizer
func NewWhisperServerRecognizer(config WhisperServerConfig) *WhisperServerRecognizer {
	// Set defaults
	if config.InferencePath == "" {
		config.InferencePath = "/inference"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.ResponseFormat == "" {
		config.ResponseFormat = "verbose_json"
	}
	if config.Language == "" {
		config.Language = "auto"
	}
	if config.CustomHeaders == nil {
		config.CustomHeaders = make(map[string]string)
	}

	return &WhisperServerRecognizer{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Recognize posts one clip to the inference endpoint
func (wsr *WhisperServerRecognizer) Recognize(ctx context.Context, wavPath string) (api.Recognition, error) {
	if _, err := os.Stat(wavPath); err != nil {
		return api.Recognition{}, apperrors.ModelFailure("whisper-server", fmt.Errorf("input file not found: %s", wavPath))
	}

	body, contentType, err := wsr.createMultipartForm(wavPath)
	if err != nil {
		return api.Recognition{}, apperrors.ModelFailure("whisper-server", fmt.Errorf("failed to create multipart form: %w", err))
	}

	url := strings.TrimRight(wsr.config.BaseURL, "/") + wsr.config.InferencePath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return api.Recognition{}, apperrors.ModelFailure("whisper-server", fmt.Errorf("failed to create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", contentType)
	for key, value := range wsr.config.CustomHeaders {
		httpReq.Header.Set(key, value)
	}

	resp, err := wsr.client.Do(httpReq)
	if err != nil {
		return api.Recognition{}, apperrors.ModelFailure("whisper-server", fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	responseData, err := io.ReadAll(resp.Body)
	if err != nil {
		return api.Recognition{}, apperrors.ModelFailure("whisper-server", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return api.Recognition{}, apperrors.ModelFailure("whisper-server",
			fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(responseData)))
	}

	var parsed WhisperServerResponse
	if err := json.Unmarshal(responseData, &parsed); err != nil {
		return api.Recognition{}, apperrors.ModelFailure("whisper-server", fmt.Errorf("failed to parse JSON response: %w", err))
	}

	language := parsed.Language
	if language == "" {
		language = parsed.DetectedLanguage
	}
	if language == "" && wsr.config.Language != "auto" {
		language = wsr.config.Language
	}

	return api.Recognition{
		Text:     strings.TrimSpace(parsed.Text),
		Language: api.NormalizeLanguage(language),
	}, nil
}

// createMultipartForm creates the multipart form for the API request
func (wsr *WhisperServerRecognizer) createMultipartForm(wavPath string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	file, err := os.Open(wavPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to copy file content: %w", err)
	}

	params := map[string]string{
		"response_format": wsr.config.ResponseFormat,
		"temperature":     fmt.Sprintf("%.2f", wsr.config.Temperature),
		"language":        wsr.config.Language,
	}
	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}
