package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"smart-audio/internal/app/util/files"
)

// EnvFileVar names an explicit .env file, skipping the search.
const EnvFileVar = "SAS_ENV_FILE"

// APIKeys are the model access tokens read from the environment.
type APIKeys struct {
	OpenAI      string
	HuggingFace string
}

type keyRule struct {
	env    string
	prefix string
	minLen int
}

var keyRules = []keyRule{
	{env: "OPENAI_API_KEY", prefix: "sk-", minLen: 20},
	{env: "HF_TOKEN", prefix: "hf_", minLen: 8},
}

// LoadEnv loads the first .env file found in the working directory or the
// project root. Variables already set in the process win. It returns the
// file it loaded, or "" when there was none.
func LoadEnv() (string, error) {
	candidates := []string{".env", ".env.local"}
	if explicit := os.Getenv(EnvFileVar); explicit != "" {
		candidates = []string{explicit}
	} else if root, err := files.GetProjectRoot(); err == nil {
		candidates = append(candidates, filepath.Join(root, ".env"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("error loading %s: %w", path, err)
		}
		return path, nil
	}
	if explicit := os.Getenv(EnvFileVar); explicit != "" {
		return "", fmt.Errorf("%s points at missing file %s", EnvFileVar, explicit)
	}
	return "", nil
}

// GetAPIKeys reads the model tokens and rejects ones that are set but
// malformed. Unset tokens are allowed.
func GetAPIKeys() (*APIKeys, error) {
	values := make(map[string]string, len(keyRules))
	for _, rule := range keyRules {
		value := strings.TrimSpace(os.Getenv(rule.env))
		values[rule.env] = value
		if value == "" {
			continue
		}
		if !strings.HasPrefix(value, rule.prefix) {
			return nil, fmt.Errorf("invalid %s format: must start with %q", rule.env, rule.prefix)
		}
		if len(value) < rule.minLen {
			return nil, fmt.Errorf("invalid %s format: too short", rule.env)
		}
	}
	return &APIKeys{OpenAI: values["OPENAI_API_KEY"], HuggingFace: values["HF_TOKEN"]}, nil
}

// InitializeConfig is the entry point used by every command: it loads the
// .env file, checks tokens and returns validated settings.
func InitializeConfig() (*Settings, error) {
	if _, err := LoadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	if _, err := GetAPIKeys(); err != nil {
		return nil, err
	}
	return Load()
}
