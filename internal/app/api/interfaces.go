package api

import (
	"context"
	"strings"
	"time"

	"smart-audio/internal/app/model"
)

// Recognition is the recognizer output for one clip
type Recognition struct {
	Text     string
	Language string
}

// Diarizer splits an audio file into speaker turns
type Diarizer interface {
	Diarize(ctx context.Context, wavPath string) ([]model.SpeakerTurn, error)
}

// Embedder returns a speaker embedding for an audio clip
type Embedder interface {
	Embed(ctx context.Context, wavPath string) ([]float32, error)
}

// Recognizer transcribes a clip and detects its language
type Recognizer interface {
	Recognize(ctx context.Context, wavPath string) (Recognition, error)
}

// Translator translates text from a source language into the target language
type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage string) (string, error)
}

// AudioTool normalises and cuts audio files
type AudioTool interface {
	Normalize(ctx context.Context, inputPath, outputPath string) error
	Crop(ctx context.Context, inputPath, outputPath string, startMs, endMs int64) error
	Duration(ctx context.Context, filePath string) (time.Duration, error)
}

// TranslatorFactory builds a translator for a model name
type TranslatorFactory func(modelName string) (Translator, error)

// whisper reports languages by name; translation routing uses ISO 639-1 codes
var languageCodes = map[string]string{
	"english":    "en",
	"hindi":      "hi",
	"urdu":       "ur",
	"punjabi":    "pa",
	"panjabi":    "pa",
	"bengali":    "bn",
	"tamil":      "ta",
	"telugu":     "te",
	"marathi":    "mr",
	"gujarati":   "gu",
	"kannada":    "kn",
	"malayalam":  "ml",
	"nepali":     "ne",
	"chinese":    "zh",
	"japanese":   "ja",
	"korean":     "ko",
	"french":     "fr",
	"german":     "de",
	"spanish":    "es",
	"portuguese": "pt",
	"russian":    "ru",
	"arabic":     "ar",
	"italian":    "it",
}

// NormalizeLanguage maps a language name or code to a lower case ISO 639-1
// code. Unknown names are returned lower cased.
func NormalizeLanguage(language string) string {
	l := strings.ToLower(strings.TrimSpace(language))
	if code, ok := languageCodes[l]; ok {
		return code
	}
	return l
}
