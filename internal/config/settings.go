package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings is the full runtime configuration, read from the environment
type Settings struct {
	Server      ServerSettings
	Storage     StorageSettings
	RecordStore RecordStoreSettings
	Pipeline    PipelineSettings
	Models      ModelSettings
	Redis       RedisSettings
	Minio       MinioSettings
	Logging     LoggingSettings
}

type ServerSettings struct {
	Host         string
	Port         string `validate:"required,numeric"`
	Environment  string `validate:"oneof=development production test"`
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StorageSettings holds the on-disk layout of a job folder
type StorageSettings struct {
	UploadFolder          string   `validate:"required"`
	AudioFile             string   `validate:"required"`
	DiarizationFile       string   `validate:"required"`
	CroppedSegmentsFolder string   `validate:"required"`
	Transcription         string   `validate:"required"`
	NeuralTranslation     string   `validate:"required"`
	ConvertedFolder       string   `validate:"required"`
	AllowedExtensions     []string `validate:"min=1"`
	MaxUploadBytes        int64    `validate:"gt=0"`
}

type RecordStoreSettings struct {
	Driver      string `validate:"oneof=json sqlite postgres"`
	JSONPath    string
	DatabaseURL string `validate:"required_unless=Driver json"`
	Bootstrap   bool
}

type PipelineSettings struct {
	StageTimeout            time.Duration `validate:"gt=0"`
	PoolSize                int           `validate:"gt=0,lte=100"`
	PoolQueue               int           `validate:"gte=0"`
	RecognitionParallelism  int           `validate:"gt=0,lte=100"`
	IdentificationThreshold float64       `validate:"gte=0,lte=1"`
	EnrolmentProfile        string
	ConfigPath              string
}

type ModelSettings struct {
	HFToken          string
	OpenAIKey        string
	DiarizerURL      string
	EmbedderURL      string
	TranslatorURL    string
	WhisperServerURL string
	RequestTimeout   time.Duration
}

type RedisSettings struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type MinioSettings struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether export publishing to object storage is configured
func (m MinioSettings) Enabled() bool {
	return m.Endpoint != ""
}

type LoggingSettings struct {
	File        string
	Development bool
}

// Load reads settings from the environment, applying defaults
func Load() (*Settings, error) {
	s := &Settings{
		Server: ServerSettings{
			Host:         getEnvOrDefault("HOST", "0.0.0.0"),
			Port:         getEnvOrDefault("PORT", "4000"),
			Environment:  getEnvOrDefault("ENVIRONMENT", "development"),
			ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:  getDurationOrDefault("IDLE_TIMEOUT", 2*time.Minute),
		},
		Storage: StorageSettings{
			UploadFolder:          getEnvOrDefault("UPLOAD_FOLDER", "uploads"),
			AudioFile:             getEnvOrDefault("AUDIO_FILE", "audio-file"),
			DiarizationFile:       getEnvOrDefault("DIARIZATION_FILE", "audio-file.rttm"),
			CroppedSegmentsFolder: getEnvOrDefault("UPLOAD_CROPPED_SEGMENTS_FOLDER", "cropped_segments"),
			Transcription:         getEnvOrDefault("TRANSCRIPTION", "transcription.json"),
			NeuralTranslation:     getEnvOrDefault("NEURAL_TRANSLATION", "neural_translation.json"),
			ConvertedFolder:       getEnvOrDefault("CONVERTED_FOLDER", "converted_files"),
			AllowedExtensions:     getListOrDefault("ALLOWED_EXTENSIONS", []string{"wav", "mp3", "ogg", "flac", "m4a", "mp4"}),
			MaxUploadBytes:        int64(getIntOrDefault("MAX_UPLOAD_MB", 100)) * 1024 * 1024,
		},
		RecordStore: RecordStoreSettings{
			Driver:      getEnvOrDefault("RECORD_STORE", "json"),
			JSONPath:    getEnvOrDefault("JSON_STORAGE", "files.json"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Bootstrap:   getBoolOrDefault("RECORD_STORE_BOOTSTRAP", true),
		},
		Pipeline: PipelineSettings{
			StageTimeout:            getDurationOrDefault("STAGE_TIMEOUT", 30*time.Minute),
			PoolSize:                getIntOrDefault("POOL_SIZE", 4),
			PoolQueue:               getIntOrDefault("POOL_QUEUE", 64),
			RecognitionParallelism:  getIntOrDefault("RECOGNITION_PARALLELISM", 2),
			IdentificationThreshold: getFloatOrDefault("IDENTIFICATION_THRESHOLD", 0.8),
			EnrolmentProfile:        os.Getenv("ENROLMENT_PROFILE"),
			ConfigPath:              os.Getenv("PIPELINE_CONFIG"),
		},
		Models: ModelSettings{
			HFToken:          os.Getenv("HF_TOKEN"),
			OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
			DiarizerURL:      getEnvOrDefault("DIARIZER_URL", "http://localhost:5001"),
			EmbedderURL:      getEnvOrDefault("EMBEDDER_URL", "http://localhost:5002"),
			TranslatorURL:    os.Getenv("TRANSLATOR_URL"),
			WhisperServerURL: os.Getenv("WHISPER_SERVER_URL"),
			RequestTimeout:   getDurationOrDefault("MODEL_REQUEST_TIMEOUT", 10*time.Minute),
		},
		Redis: RedisSettings{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntOrDefault("REDIS_DB", 0),
			LockTTL:  getDurationOrDefault("REDIS_LOCK_TTL", time.Minute),
		},
		Minio: MinioSettings{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnvOrDefault("MINIO_BUCKET", "smart-audio-exports"),
			UseSSL:    getBoolOrDefault("MINIO_USE_SSL", false),
		},
		Logging: LoggingSettings{
			File:        os.Getenv("LOG_FILE"),
			Development: getEnvOrDefault("ENVIRONMENT", "development") != "production",
		},
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks struct constraints and cross-field rules
func (s *Settings) Validate() error {
	v := validator.New()
	if err := v.Struct(s); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := ValidateTimeout(s.Pipeline.StageTimeout, "stage"); err != nil {
		return err
	}
	if s.Redis.Addr != "" {
		if err := ValidateLockTTL(s.Redis.LockTTL); err != nil {
			return err
		}
	}
	for name, url := range map[string]string{
		"diarizer":       s.Models.DiarizerURL,
		"embedder":       s.Models.EmbedderURL,
		"translator":     s.Models.TranslatorURL,
		"whisper server": s.Models.WhisperServerURL,
	} {
		if url == "" {
			continue
		}
		if err := ValidateURL(url, name); err != nil {
			return err
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, strings.TrimPrefix(item, "."))
		}
	}
	return out
}
