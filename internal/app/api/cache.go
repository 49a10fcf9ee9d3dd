package api

import (
	"context"
	"fmt"
	"sync"
)

// ModelCache holds one translator per model name. It is owned by the service
// context and shared by every translation run.
type ModelCache struct {
	factory TranslatorFactory

	mu          sync.Mutex
	translators map[string]Translator
}

// NewModelCache creates a cache backed by factory
func NewModelCache(factory TranslatorFactory) *ModelCache {
	return &ModelCache{
		factory:     factory,
		translators: make(map[string]Translator),
	}
}

// Get returns the cached translator for modelName, building it on first use.
// Failed builds are not cached.
func (c *ModelCache) Get(modelName string) (Translator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.translators[modelName]; ok {
		return t, nil
	}
	t, err := c.factory(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to load translation model %s: %w", modelName, err)
	}
	c.translators[modelName] = t
	return t, nil
}

// Translate translates text with the named model
func (c *ModelCache) Translate(ctx context.Context, modelName, text, sourceLanguage string) (string, error) {
	t, err := c.Get(modelName)
	if err != nil {
		return "", err
	}
	return t.Translate(ctx, text, sourceLanguage)
}

// Len returns how many models are loaded
func (c *ModelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.translators)
}
