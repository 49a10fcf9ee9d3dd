package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smart-audio/internal/app/model"
	"smart-audio/internal/app/pipeline"
	"smart-audio/internal/app/testutil"
	"smart-audio/internal/config"
)

func testSettings(t *testing.T) *config.Settings {
	t.Setenv("UPLOAD_FOLDER", t.TempDir())
	t.Setenv("JSON_STORAGE", filepath.Join(t.TempDir(), "files.json"))
	t.Setenv("TRANSLATOR_URL", "http://localhost:5003")
	t.Setenv("WHISPER_SERVER_URL", "http://localhost:8080")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("MINIO_ENDPOINT", "")
	s, err := config.Load()
	require.NoError(t, err)
	return s
}

func TestProvideRecordStore(t *testing.T) {
	for _, driver := range []string{"json", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			s := testSettings(t)
			s.RecordStore.Driver = driver
			s.RecordStore.DatabaseURL = filepath.Join(t.TempDir(), "records.db")

			store, cleanup, err := OpenRecordStore(context.Background(), s)
			require.NoError(t, err)
			defer cleanup()

			testutil.SeedRecords(t, store, testutil.SampleRecord("job-1"))
			rec, err := store.FindByID(context.Background(), "job-1")
			require.NoError(t, err)
			assert.Equal(t, model.StatusUploaded, rec.Status)
		})
	}

	s := testSettings(t)
	s.RecordStore.Driver = "mongo"
	_, _, err := OpenRecordStore(context.Background(), s)
	assert.ErrorContains(t, err, "unknown record store driver")
}

func TestProvideRegistryOrder(t *testing.T) {
	s := testSettings(t)
	pc, err := providePipelineConfig(s)
	require.NoError(t, err)
	assert.Equal(t, config.RecognitionBackendWhisperServer, pc.Recognition.Backend)
	assert.Equal(t, config.TranslationBackendSidecar, pc.Translation.Backend)

	recognizer, err := provideRecognizer(s, pc)
	require.NoError(t, err)
	models, err := provideModelCache(s, pc)
	require.NoError(t, err)

	registry := provideRegistry(s, pc, provideLayout(s), provideAudioTool(), provideDiarizer(s), provideEmbedder(s),
		recognizer, models, zap.NewNop())

	var names []model.Stage
	for _, st := range registry.Ordered() {
		names = append(names, st.Name())
	}
	assert.Equal(t, model.PipelineOrder, names)
}

func TestProvideModelCacheRequiresBackend(t *testing.T) {
	s := testSettings(t)
	pc := config.DefaultPipelineConfig(s)

	s.Models.TranslatorURL = ""
	_, err := provideModelCache(s, pc)
	assert.ErrorContains(t, err, "TRANSLATOR_URL")

	pc.Translation.Backend = config.TranslationBackendOpenAI
	s.Models.OpenAIKey = ""
	_, err = provideModelCache(s, pc)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestProvideLockerDefaultsToMemory(t *testing.T) {
	locker, cleanup, err := provideLocker(context.Background(), testSettings(t))
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &pipeline.MemoryLocker{}, locker)
}

func TestProvidePublisherDisabled(t *testing.T) {
	publisher, err := providePublisher(context.Background(), testSettings(t))
	require.NoError(t, err)
	assert.Nil(t, publisher)
}

func TestInitializeServiceContext(t *testing.T) {
	s := testSettings(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sc, cleanup, err := InitializeServiceContext(ctx, s)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, sc.HealthCheck(ctx))
	assert.Equal(t, s.Storage.UploadFolder, sc.Container.UploadRoot)
	assert.Len(t, sc.Registry.Ordered(), len(model.PipelineOrder))
}
