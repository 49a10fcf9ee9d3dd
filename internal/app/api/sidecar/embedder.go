package sidecar

import (
	"context"
	"fmt"

	"smart-audio/internal/app/api"
	apperrors "smart-audio/internal/app/errors"
)

// Embedder calls a speaker embedding server
type Embedder struct {
	client
}

var _ api.Embedder = (*Embedder)(nil)

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewEmbedder creates an embedding client
func NewEmbedder(config Config) *Embedder {
	return &Embedder{client: newClient(config)}
}

// Embed returns the speaker embedding of one clip
func (e *Embedder) Embed(ctx context.Context, wavPath string) ([]float32, error) {
	var resp embedResponse
	if err := e.postFile(ctx, "/embed", wavPath, nil, &resp); err != nil {
		return nil, apperrors.ModelFailure("embedder", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, apperrors.ModelFailure("embedder", fmt.Errorf("empty embedding for %s", wavPath))
	}
	return resp.Embedding, nil
}
