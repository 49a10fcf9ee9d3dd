package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"smart-audio/internal/app/api"
	"smart-audio/internal/app/model"
)

// MockDiarizer is a mock implementation of api.Diarizer
type MockDiarizer struct {
	mock.Mock
}

func NewMockDiarizer(t *testing.T) *MockDiarizer {
	m := &MockDiarizer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockDiarizer) Diarize(ctx context.Context, wavPath string) ([]model.SpeakerTurn, error) {
	args := m.Called(ctx, wavPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SpeakerTurn), args.Error(1)
}

// MockEmbedder is a mock implementation of api.Embedder
type MockEmbedder struct {
	mock.Mock
}

func NewMockEmbedder(t *testing.T) *MockEmbedder {
	m := &MockEmbedder{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEmbedder) Embed(ctx context.Context, wavPath string) ([]float32, error) {
	args := m.Called(ctx, wavPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockRecognizer is a mock implementation of api.Recognizer
type MockRecognizer struct {
	mock.Mock
}

func NewMockRecognizer(t *testing.T) *MockRecognizer {
	m := &MockRecognizer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRecognizer) Recognize(ctx context.Context, wavPath string) (api.Recognition, error) {
	args := m.Called(ctx, wavPath)
	return args.Get(0).(api.Recognition), args.Error(1)
}

// MockTranslator is a mock implementation of api.Translator
type MockTranslator struct {
	mock.Mock
}

func NewMockTranslator(t *testing.T) *MockTranslator {
	m := &MockTranslator{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTranslator) Translate(ctx context.Context, text, sourceLanguage string) (string, error) {
	args := m.Called(ctx, text, sourceLanguage)
	return args.String(0), args.Error(1)
}

// MockAudioTool is a mock implementation of api.AudioTool
type MockAudioTool struct {
	mock.Mock
}

func NewMockAudioTool(t *testing.T) *MockAudioTool {
	m := &MockAudioTool{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAudioTool) Normalize(ctx context.Context, inputPath, outputPath string) error {
	args := m.Called(ctx, inputPath, outputPath)
	return args.Error(0)
}

func (m *MockAudioTool) Crop(ctx context.Context, inputPath, outputPath string, startMs, endMs int64) error {
	args := m.Called(ctx, inputPath, outputPath, startMs, endMs)
	return args.Error(0)
}

func (m *MockAudioTool) Duration(ctx context.Context, filePath string) (time.Duration, error) {
	args := m.Called(ctx, filePath)
	return args.Get(0).(time.Duration), args.Error(1)
}

// CopyingAudioTool is an api.AudioTool that copies bytes instead of
// transcoding. Crop writes a marker naming the requested window.
type CopyingAudioTool struct{}

func (CopyingAudioTool) Normalize(_ context.Context, inputPath, outputPath string) error {
	return copyFile(inputPath, outputPath)
}

func (CopyingAudioTool) Crop(_ context.Context, _ string, outputPath string, startMs, endMs int64) error {
	return writeMarker(outputPath, startMs, endMs)
}

func (CopyingAudioTool) Duration(context.Context, string) (time.Duration, error) {
	return time.Minute, nil
}
