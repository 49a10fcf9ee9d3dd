// Package sidecar talks to the model servers that host the diarization,
// embedding and translation models.
package sidecar

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
)

// Config is shared by every sidecar client
type Config struct {
	BaseURL string
	Token   string // sent as a bearer token when set
	Timeout time.Duration
}

type client struct {
	config Config
	http   *http.Client
}

func newClient(config Config) client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Minute
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return client{config: config, http: &http.Client{Timeout: config.Timeout}}
}

// postFile uploads path as the multipart field "file" and decodes the JSON reply into out
func (c client) postFile(ctx context.Context, endpoint, path string, fields map[string]string, out interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return c.do(ctx, endpoint, writer.FormDataContentType(), body, out)
}

// postJSON sends in as a JSON body and decodes the JSON reply into out
func (c client) postJSON(ctx context.Context, endpoint string, in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, endpoint, "application/json", bytes.NewReader(data), out)
}

func (c client) do(ctx context.Context, endpoint, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}
