package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"smart-audio/internal/api/v1/routes"
	"smart-audio/internal/api/v1/services"
	"smart-audio/internal/app/api"
	openaiclient "smart-audio/internal/app/api/openai"
	"smart-audio/internal/app/api/openai/chat"
	"smart-audio/internal/app/api/openai/whisper"
	"smart-audio/internal/app/api/sidecar"
	"smart-audio/internal/app/api/whisper_server"
	"smart-audio/internal/app/audio"
	"smart-audio/internal/app/logging"
	"smart-audio/internal/app/pipeline"
	"smart-audio/internal/app/repository"
	"smart-audio/internal/app/repository/jsonstore"
	"smart-audio/internal/app/repository/pg"
	"smart-audio/internal/app/repository/sqlite"
	"smart-audio/internal/app/result"
	"smart-audio/internal/app/stages"
	"smart-audio/internal/config"
)

// ServiceContext owns every long lived component of the backend. It is
// built once per process and shared by the HTTP server and the CLI.
type ServiceContext struct {
	Settings   *config.Settings
	Pipeline   *config.PipelineConfig
	Loggers    *logging.Loggers
	Store      repository.RecordStore
	Layout     stages.Layout
	Locker     pipeline.JobLocker
	Registry   *stages.Registry
	Dispatcher *pipeline.Dispatcher
	Assembler  *result.Assembler
	Container  *routes.ServiceContainer
}

// ResultContext is the read side of the backend: enough to export results
// without model backends
type ResultContext struct {
	Store     repository.RecordStore
	Layout    stages.Layout
	Assembler *result.Assembler
}

// HealthCheck reports whether the record store answers
func (sc *ServiceContext) HealthCheck(ctx context.Context) error {
	_, err := sc.Store.Load(ctx)
	return err
}

func provideLoggers(settings *config.Settings) (*logging.Loggers, func(), error) {
	loggers, err := logging.New(settings.Logging.Development, settings.Logging.File)
	if err != nil {
		return nil, nil, err
	}
	return loggers, func() { _ = loggers.Close() }, nil
}

func provideZapLogger(loggers *logging.Loggers) *zap.Logger {
	return loggers.Zap
}

// OpenRecordStore opens the record store selected by RECORD_STORE
func OpenRecordStore(ctx context.Context, settings *config.Settings) (repository.RecordStore, func(), error) {
	rs := settings.RecordStore

	var (
		store repository.RecordStore
		err   error
	)
	switch rs.Driver {
	case "json":
		store, err = jsonstore.New(rs.JSONPath, rs.Bootstrap)
	case "sqlite":
		store, err = sqlite.NewRecordStore(ctx, rs.DatabaseURL)
	case "postgres":
		store, err = pg.NewRecordStore(ctx, rs.DatabaseURL)
	default:
		return nil, nil, fmt.Errorf("unknown record store driver %q", rs.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s record store: %w", rs.Driver, err)
	}
	return store, func() { _ = store.Close() }, nil
}

func providePipelineConfig(settings *config.Settings) (*config.PipelineConfig, error) {
	return config.LoadPipelineConfig(settings.Pipeline.ConfigPath, settings)
}

func provideLayout(settings *config.Settings) stages.Layout {
	return stages.NewLayout(settings.Storage, settings.Pipeline.EnrolmentProfile)
}

func provideAudioTool() api.AudioTool {
	return audio.NewFFmpeg()
}

func sidecarConfig(settings *config.Settings, baseURL string) sidecar.Config {
	return sidecar.Config{
		BaseURL: baseURL,
		Token:   settings.Models.HFToken,
		Timeout: settings.Models.RequestTimeout,
	}
}

func provideDiarizer(settings *config.Settings) api.Diarizer {
	return sidecar.NewDiarizer(sidecarConfig(settings, settings.Models.DiarizerURL))
}

func provideEmbedder(settings *config.Settings) api.Embedder {
	return sidecar.NewEmbedder(sidecarConfig(settings, settings.Models.EmbedderURL))
}

func provideRecognizer(settings *config.Settings, pc *config.PipelineConfig) (api.Recognizer, error) {
	switch pc.Recognition.Backend {
	case config.RecognitionBackendWhisperServer:
		return whisper_server.NewWhisperServerRecognizer(whisper_server.WhisperServerConfig{
			BaseURL:  settings.Models.WhisperServerURL,
			Language: pc.Recognition.Language,
			Timeout:  settings.Models.RequestTimeout,
		}), nil
	default:
		client, err := openaiclient.NewClient(settings.Models.OpenAIKey, "", settings.Models.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("speech recognition: %w", err)
		}
		return whisper.NewRemoteRecognizer(client, pc.Recognition.Model, pc.Recognition.Language), nil
	}
}

// provideModelCache builds the translation model cache. Models are loaded
// lazily on first use and reused for the life of the process.
func provideModelCache(settings *config.Settings, pc *config.PipelineConfig) (*api.ModelCache, error) {
	switch pc.Translation.Backend {
	case config.TranslationBackendSidecar:
		if settings.Models.TranslatorURL == "" {
			return nil, fmt.Errorf("neural translation: TRANSLATOR_URL is required for the sidecar backend")
		}
		factory := sidecar.NewTranslatorFactory(sidecarConfig(settings, settings.Models.TranslatorURL), pc.Translation.MaxLength)
		return api.NewModelCache(factory), nil
	default:
		client, err := openaiclient.NewClient(settings.Models.OpenAIKey, "", settings.Models.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("neural translation: %w", err)
		}
		return api.NewModelCache(chat.NewTranslatorFactory(client, pc.Translation.TargetLanguage)), nil
	}
}

func provideRegistry(
	settings *config.Settings,
	pc *config.PipelineConfig,
	layout stages.Layout,
	audioTool api.AudioTool,
	diarizer api.Diarizer,
	embedder api.Embedder,
	recognizer api.Recognizer,
	models *api.ModelCache,
	logger *zap.Logger,
) *stages.Registry {
	return stages.NewRegistry(
		stages.NewDiarization(layout, audioTool, diarizer, logger),
		stages.NewIdentification(layout, embedder, pc.Identification.Threshold, logger),
		stages.NewRecognition(layout, recognizer, settings.Pipeline.RecognitionParallelism, logger),
		stages.NewTranslation(layout, models, pc.Translation, logger),
		stages.NewConversion(layout, logger),
	)
}

// provideLocker uses Redis when REDIS_ADDR is set so several backend
// processes can share one upload folder.
func provideLocker(ctx context.Context, settings *config.Settings) (pipeline.JobLocker, func(), error) {
	if settings.Redis.Addr == "" {
		return pipeline.NewMemoryLocker(), func() {}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{settings.Redis.Addr},
		Password: settings.Redis.Password,
		DB:       settings.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", settings.Redis.Addr, err)
	}
	return pipeline.NewRedisLocker(client, settings.Redis.LockTTL), func() { _ = client.Close() }, nil
}

func provideDispatcher(
	settings *config.Settings,
	store repository.RecordStore,
	registry *stages.Registry,
	locker pipeline.JobLocker,
	logger *zap.Logger,
) (*pipeline.Dispatcher, func()) {
	opts := pipeline.DefaultOptions()
	opts.PoolSize = settings.Pipeline.PoolSize
	opts.QueueSize = settings.Pipeline.PoolQueue
	opts.StageTimeout = settings.Pipeline.StageTimeout

	d := pipeline.NewDispatcher(store, registry, locker, opts, logger)
	return d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := d.Close(ctx); err != nil {
			logger.Warn("dispatcher did not stop cleanly", zap.Error(err))
		}
	}
}

// providePublisher returns nil when object storage is not configured
func providePublisher(ctx context.Context, settings *config.Settings) (services.Publisher, error) {
	if !settings.Minio.Enabled() {
		return nil, nil
	}
	p, err := services.NewMinioPublisher(ctx, settings.Minio)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func provideServiceContainer(
	settings *config.Settings,
	store repository.RecordStore,
	layout stages.Layout,
	locker pipeline.JobLocker,
	dispatcher *pipeline.Dispatcher,
	assembler *result.Assembler,
	publisher services.Publisher,
) *routes.ServiceContainer {
	return &routes.ServiceContainer{
		FileService: services.NewFileService(store, layout, locker, services.UploadPolicy{
			AllowedExtensions: settings.Storage.AllowedExtensions,
			MaxBytes:          settings.Storage.MaxUploadBytes,
		}),
		PipelineService: services.NewPipelineService(dispatcher),
		ResultService:   services.NewResultService(assembler),
		DownloadService: services.NewDownloadService(store, layout, publisher),
		UploadRoot:      settings.Storage.UploadFolder,
	}
}
