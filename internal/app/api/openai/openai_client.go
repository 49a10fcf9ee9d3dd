package openai

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// NewClient builds an OpenAI client. baseURL is optional and lets the client
// talk to any OpenAI compatible endpoint.
func NewClient(apiKey, baseURL string, timeout time.Duration) (*openai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: timeout}
	}
	return openai.NewClientWithConfig(config), nil
}
