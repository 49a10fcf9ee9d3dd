package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Translation backends
const (
	TranslationBackendOpenAI  = "openai"
	TranslationBackendSidecar = "sidecar"
)

// Recognition backends
const (
	RecognitionBackendOpenAI        = "openai"
	RecognitionBackendWhisperServer = "whisper_server"
)

// PipelineConfig is the model routing configuration for the pipeline stages
type PipelineConfig struct {
	Recognition    RecognitionConfig    `yaml:"recognition"`
	Translation    TranslationConfig    `yaml:"translation"`
	Identification IdentificationConfig `yaml:"identification,omitempty"`
}

// RecognitionConfig selects the speech recognizer
type RecognitionConfig struct {
	Backend  string `yaml:"backend"`
	Model    string `yaml:"model,omitempty"`
	Language string `yaml:"language,omitempty"`
}

// TranslationConfig maps detected languages to translation model names
type TranslationConfig struct {
	Backend        string            `yaml:"backend"`
	DefaultModel   string            `yaml:"default_model"`
	TargetLanguage string            `yaml:"target_language,omitempty"`
	MaxLength      int               `yaml:"max_length,omitempty"`
	Models         map[string]string `yaml:"models,omitempty"`
}

// IdentificationConfig overrides the identification threshold when set
type IdentificationConfig struct {
	Threshold float64 `yaml:"threshold,omitempty"`
}

// opusModels are the language specific Marian models served by the translation sidecar
var opusModels = map[string]string{
	"hi": "Helsinki-NLP/opus-mt-hi-en",
	"ur": "Helsinki-NLP/opus-mt-ur-en",
	"pa": "Helsinki-NLP/opus-mt-pa-en",
	"bn": "Helsinki-NLP/opus-mt-bn-en",
}

// DefaultPipelineConfig returns the configuration used when no file is given.
// The sidecar backend is chosen when a translator URL is configured.
func DefaultPipelineConfig(s *Settings) *PipelineConfig {
	c := &PipelineConfig{}
	c.setDefaults(s)
	return c
}

// LoadPipelineConfig loads pipeline configuration from a YAML file. An empty
// path yields the defaults.
func LoadPipelineConfig(configPath string, s *Settings) (*PipelineConfig, error) {
	if configPath == "" {
		return DefaultPipelineConfig(s), nil
	}

	configPath = os.ExpandEnv(configPath)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config PipelineConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.setDefaults(s)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SavePipelineConfig writes the configuration to a YAML file
func SavePipelineConfig(config *PipelineConfig, configPath string) error {
	configPath = os.ExpandEnv(configPath)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *PipelineConfig) setDefaults(s *Settings) {
	if c.Recognition.Backend == "" {
		c.Recognition.Backend = RecognitionBackendOpenAI
		if s != nil && s.Models.WhisperServerURL != "" {
			c.Recognition.Backend = RecognitionBackendWhisperServer
		}
	}
	if c.Recognition.Model == "" && c.Recognition.Backend == RecognitionBackendOpenAI {
		c.Recognition.Model = "whisper-1"
	}

	t := &c.Translation
	if t.Backend == "" {
		t.Backend = TranslationBackendOpenAI
		if s != nil && s.Models.TranslatorURL != "" {
			t.Backend = TranslationBackendSidecar
		}
	}
	if t.DefaultModel == "" {
		if t.Backend == TranslationBackendSidecar {
			t.DefaultModel = "Helsinki-NLP/opus-mt-mul-en"
		} else {
			t.DefaultModel = "gpt-4o-mini"
		}
	}
	if t.Models == nil && t.Backend == TranslationBackendSidecar {
		t.Models = make(map[string]string, len(opusModels))
		for lang, model := range opusModels {
			t.Models[lang] = model
		}
	}
	if t.TargetLanguage == "" {
		t.TargetLanguage = "en"
	}
	if t.MaxLength == 0 {
		t.MaxLength = 512
	}

	if c.Identification.Threshold == 0 && s != nil {
		c.Identification.Threshold = s.Pipeline.IdentificationThreshold
	}
}

// Validate checks the configuration for invalid values
func (c *PipelineConfig) Validate() error {
	switch c.Recognition.Backend {
	case RecognitionBackendOpenAI, RecognitionBackendWhisperServer:
	default:
		return fmt.Errorf("unknown recognition backend: %s", c.Recognition.Backend)
	}

	switch c.Translation.Backend {
	case TranslationBackendOpenAI, TranslationBackendSidecar:
	default:
		return fmt.Errorf("unknown translation backend: %s", c.Translation.Backend)
	}

	for lang, model := range c.Translation.Models {
		if strings.TrimSpace(model) == "" {
			return fmt.Errorf("empty translation model for language %q", lang)
		}
	}

	return ValidateThreshold(c.Identification.Threshold, "identification")
}

// ModelFor returns the translation model for a detected language, falling back
// to the default multilingual model.
func (t TranslationConfig) ModelFor(language string) string {
	if model, ok := t.Models[strings.ToLower(language)]; ok {
		return model
	}
	return t.DefaultModel
}
