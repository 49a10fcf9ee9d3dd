package stages

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smart-audio/internal/app/api"
	"smart-audio/internal/app/converter/export"
	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/testutil"
	"smart-audio/internal/app/util/files"
	"smart-audio/internal/config"
)

func testRouting() config.TranslationConfig {
	return config.TranslationConfig{
		Backend:        config.TranslationBackendSidecar,
		DefaultModel:   "opus-mt-mul-en",
		TargetLanguage: "en",
		Models:         map[string]string{"hi": "opus-mt-hi-en"},
	}
}

func TestIdentificationEnrolsOnFirstRun(t *testing.T) {
	layout := newTestLayout(t)
	seedSegments(t, layout, testutil.SampleSegments())

	embedder := testutil.NewMockEmbedder(t)
	embedder.On("Embed", mock.Anything, layout.Clip(jobID, 0)).Return([]float32{2, 0}, nil)
	embedder.On("Embed", mock.Anything, layout.Clip(jobID, 1)).Return([]float32{0, 3}, nil)
	embedder.On("Embed", mock.Anything, layout.Clip(jobID, 2)).Return([]float32{4, 0}, nil)

	stage := NewIdentification(layout, embedder, 0.8, zap.NewNop())
	require.NoError(t, stage.Check(testutil.SampleRecord(jobID)))

	res := stage.Run(context.Background(), testutil.SampleRecord(jobID))
	require.NoError(t, res.Err)
	assert.Equal(t, []string{layout.Profile(jobID)}, res.Artifacts)

	profile, err := ReadProfile(layout.Profile(jobID))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, profile.Speakers["SPEAKER_00"])
	assert.Equal(t, []float32{0, 1}, profile.Speakers["SPEAKER_01"])
	assert.False(t, files.Exists(layout.IdentificationReport(jobID)))
}

func TestIdentificationMatchesAgainstProfile(t *testing.T) {
	layout := newTestLayout(t)
	layout.SharedProfile = filepath.Join(t.TempDir(), "profile.json")
	seedSegments(t, layout, testutil.SampleSegments())
	testutil.WriteJSON(t, layout.SharedProfile, model.EnrolmentProfile{
		SchemaVersion: 1,
		Speakers:      map[string][]float32{"alice": {1, 0}, "bob": {0, 1}},
	})

	embedder := testutil.NewMockEmbedder(t)
	embedder.On("Embed", mock.Anything, layout.Clip(jobID, 0)).Return([]float32{0.9, 0.1}, nil)
	embedder.On("Embed", mock.Anything, layout.Clip(jobID, 1)).Return([]float32{0, 5}, nil)
	embedder.On("Embed", mock.Anything, layout.Clip(jobID, 2)).Return([]float32{1, 1}, nil)

	res := NewIdentification(layout, embedder, 0.8, zap.NewNop()).Run(context.Background(), testutil.SampleRecord(jobID))
	require.NoError(t, res.Err)

	report, err := ReadIdentificationReport(layout.IdentificationReport(jobID))
	require.NoError(t, err)
	require.Len(t, report.Segments, 3)
	assert.Equal(t, 0.8, report.Threshold)

	assert.Equal(t, "alice", report.Segments[0].IdentifiedSpeaker)
	assert.True(t, report.Segments[0].Matched)
	assert.InDelta(t, 0.9939, report.Segments[0].Score, 1e-4)

	assert.Equal(t, "bob", report.Segments[1].IdentifiedSpeaker)
	assert.Equal(t, 1.0, report.Segments[1].Score)

	assert.Equal(t, UnknownSpeaker, report.Segments[2].IdentifiedSpeaker)
	assert.False(t, report.Segments[2].Matched)
	assert.InDelta(t, 0.7071, report.Segments[2].Score, 1e-4)
	assert.Equal(t, int64(5250), report.Segments[2].Start)
}

func TestIdentificationThresholdUsesRawScore(t *testing.T) {
	layout := newTestLayout(t)
	layout.SharedProfile = filepath.Join(t.TempDir(), "profile.json")
	seedSegments(t, layout, testutil.SampleSegments()[:1])
	testutil.WriteJSON(t, layout.SharedProfile, model.EnrolmentProfile{
		SchemaVersion: 1,
		Speakers:      map[string][]float32{"alice": {1, 0}, "bob": {0, 1}},
	})

	// cosine 0.948683 is stored as 0.9487 but stays under a 0.9487 threshold
	embedder := testutil.NewMockEmbedder(t)
	embedder.On("Embed", mock.Anything, layout.Clip(jobID, 0)).Return([]float32{3, 1}, nil)

	res := NewIdentification(layout, embedder, 0.9487, zap.NewNop()).Run(context.Background(), testutil.SampleRecord(jobID))
	require.NoError(t, res.Err)

	report, err := ReadIdentificationReport(layout.IdentificationReport(jobID))
	require.NoError(t, err)
	require.Len(t, report.Segments, 1)
	assert.Equal(t, 0.9487, report.Segments[0].Score)
	assert.False(t, report.Segments[0].Matched)
	assert.Equal(t, UnknownSpeaker, report.Segments[0].IdentifiedSpeaker)
}

func TestIdentificationWithoutClips(t *testing.T) {
	layout := newTestLayout(t)
	require.NoError(t, WriteSegmentDocument(layout.SegmentIndex(jobID), &model.SegmentDocument{ID: jobID, Segments: testutil.SampleSegments()}))

	res := NewIdentification(layout, testutil.NewMockEmbedder(t), 0.8, zap.NewNop()).Run(context.Background(), testutil.SampleRecord(jobID))
	require.Error(t, res.Err)
	assert.Equal(t, apperrors.KindMissingInputArtifact, apperrors.KindOf(res.Err))
}

func TestRecognitionRun(t *testing.T) {
	tests := []struct {
		name       string
		results    []api.Recognition
		wantStatus model.JobStatus
	}{
		{
			name:       "languages detected",
			results:    []api.Recognition{{Text: "namaste", Language: "hi"}, {Text: "hello there", Language: "en"}, {}},
			wantStatus: model.StatusLanguageIdentified,
		},
		{
			name:       "no language",
			results:    []api.Recognition{{Text: "a"}, {Text: "b"}, {Text: "c"}},
			wantStatus: model.StatusRecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := newTestLayout(t)
			seedSegments(t, layout, testutil.SampleSegments())

			recognizer := testutil.NewMockRecognizer(t)
			for i, r := range tt.results {
				recognizer.On("Recognize", mock.Anything, layout.Clip(jobID, i)).Return(r, nil).Once()
			}

			res := NewRecognition(layout, recognizer, 2, zap.NewNop()).Run(context.Background(), testutil.SampleRecord(jobID))
			require.NoError(t, res.Err)
			assert.Equal(t, tt.wantStatus, res.Status)

			doc, err := ReadSegmentDocument(layout.Transcription(jobID))
			require.NoError(t, err)
			require.Len(t, doc.Segments, len(tt.results))
			for i, r := range tt.results {
				require.NotNil(t, doc.Segments[i].Transcript)
				assert.Equal(t, r.Text, *doc.Segments[i].Transcript)
				assert.Equal(t, r.Language, doc.Segments[i].Language)
			}
		})
	}
}

func TestRecognitionMissingClipGetsEmptyTranscript(t *testing.T) {
	layout := newTestLayout(t)
	seedSegments(t, layout, testutil.SampleSegments())
	require.NoError(t, os.Remove(layout.Clip(jobID, 1)))

	recognizer := testutil.NewMockRecognizer(t)
	recognizer.On("Recognize", mock.Anything, layout.Clip(jobID, 0)).Return(api.Recognition{Text: "one"}, nil)
	recognizer.On("Recognize", mock.Anything, layout.Clip(jobID, 2)).Return(api.Recognition{Text: "three"}, nil)

	res := NewRecognition(layout, recognizer, 1, zap.NewNop()).Run(context.Background(), testutil.SampleRecord(jobID))
	require.NoError(t, res.Err)

	doc, err := ReadSegmentDocument(layout.Transcription(jobID))
	require.NoError(t, err)
	assert.Equal(t, "", *doc.Segments[1].Transcript)
	assert.Equal(t, "three", *doc.Segments[2].Transcript)
}

func TestRecognitionFailure(t *testing.T) {
	layout := newTestLayout(t)
	seedSegments(t, layout, testutil.SampleSegments())

	recognizer := testutil.NewMockRecognizer(t)
	recognizer.On("Recognize", mock.Anything, mock.Anything).
		Return(api.Recognition{}, apperrors.ModelFailure("whisper-1", errors.New("429 Too Many Requests"))).Maybe()

	res := NewRecognition(layout, recognizer, 3, zap.NewNop()).Run(context.Background(), testutil.SampleRecord(jobID))
	require.Error(t, res.Err)
	assert.Equal(t, apperrors.KindModelInvocationFailure, apperrors.KindOf(res.Err))
	assert.False(t, files.Exists(layout.Transcription(jobID)))
}

// translators returns a model cache whose factory hands out the given mocks
func translators(mocks map[string]*testutil.MockTranslator) *api.ModelCache {
	return api.NewModelCache(func(name string) (api.Translator, error) {
		if m, ok := mocks[name]; ok {
			return m, nil
		}
		return nil, fmt.Errorf("unknown model %s", name)
	})
}

func seedTranscription(t *testing.T, layout Layout) {
	t.Helper()
	require.NoError(t, WriteSegmentDocument(layout.Transcription(jobID), &model.SegmentDocument{ID: jobID, Segments: testutil.TranscribedSegments()}))
}

func TestTranslationRoutesByLanguage(t *testing.T) {
	layout := newTestLayout(t)
	seedTranscription(t, layout)

	hindi := testutil.NewMockTranslator(t)
	hindi.On("Translate", mock.Anything, "namaste", "hi").Return("hello", nil).Once()
	multi := testutil.NewMockTranslator(t)
	multi.On("Translate", mock.Anything, "hello there", "en").Return("hello there", nil).Once()

	cache := translators(map[string]*testutil.MockTranslator{"opus-mt-hi-en": hindi, "opus-mt-mul-en": multi})
	stage := NewTranslation(layout, cache, testRouting(), zap.NewNop())
	require.NoError(t, stage.Check(testutil.SampleRecord(jobID)))

	res := stage.Run(context.Background(), testutil.SampleRecord(jobID))
	require.NoError(t, res.Err)
	assert.Equal(t, 2, cache.Len())

	doc, err := ReadSegmentDocument(layout.Translation(jobID))
	require.NoError(t, err)
	assert.Equal(t, testutil.TranslatedSegments(), doc.Segments)
}

func TestTranslationFallsBackToDefaultModel(t *testing.T) {
	layout := newTestLayout(t)
	seedTranscription(t, layout)

	multi := testutil.NewMockTranslator(t)
	multi.On("Translate", mock.Anything, "namaste", "hi").Return("hello", nil).Once()
	multi.On("Translate", mock.Anything, "hello there", "en").Return("hello there", nil).Once()

	// the hindi model cannot be loaded
	cache := translators(map[string]*testutil.MockTranslator{"opus-mt-mul-en": multi})
	res := NewTranslation(layout, cache, testRouting(), zap.NewNop()).Run(context.Background(), testutil.SampleRecord(jobID))
	require.NoError(t, res.Err)

	doc, err := ReadSegmentDocument(layout.Translation(jobID))
	require.NoError(t, err)
	assert.Equal(t, "hello", *doc.Segments[0].TranslatedText)
	assert.Empty(t, doc.Segments[0].TranslationError)
}

func TestTranslationMarksFailedSegments(t *testing.T) {
	layout := newTestLayout(t)
	seedTranscription(t, layout)

	hindi := testutil.NewMockTranslator(t)
	hindi.On("Translate", mock.Anything, "namaste", "hi").Return("", errors.New("model crashed"))
	multi := testutil.NewMockTranslator(t)
	multi.On("Translate", mock.Anything, "namaste", "hi").Return("", errors.New("input too long"))
	multi.On("Translate", mock.Anything, "hello there", "en").Return("hello there", nil)

	cache := translators(map[string]*testutil.MockTranslator{"opus-mt-hi-en": hindi, "opus-mt-mul-en": multi})
	res := NewTranslation(layout, cache, testRouting(), zap.NewNop()).Run(context.Background(), testutil.SampleRecord(jobID))
	require.NoError(t, res.Err)

	doc, err := ReadSegmentDocument(layout.Translation(jobID))
	require.NoError(t, err)
	assert.Equal(t, TranslationFailed, *doc.Segments[0].TranslatedText)
	assert.Contains(t, doc.Segments[0].TranslationError, "input too long")
	assert.Equal(t, "hello there", *doc.Segments[1].TranslatedText)
}

func TestTranslationCanceled(t *testing.T) {
	layout := newTestLayout(t)
	seedTranscription(t, layout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewTranslation(layout, translators(nil), testRouting(), zap.NewNop()).Run(ctx, testutil.SampleRecord(jobID))
	require.Error(t, res.Err)
	assert.Equal(t, apperrors.KindCanceled, apperrors.KindOf(res.Err))
	assert.False(t, files.Exists(layout.Translation(jobID)))
}

func TestConversionRun(t *testing.T) {
	layout := newTestLayout(t)
	seedTranscription(t, layout)
	require.NoError(t, WriteSegmentDocument(layout.Translation(jobID), &model.SegmentDocument{ID: jobID, Segments: testutil.TranslatedSegments()}))
	testutil.WriteJSON(t, layout.IdentificationReport(jobID), model.IdentificationReport{
		SchemaVersion: 1,
		ID:            jobID,
		Threshold:     0.8,
		Segments: []model.SegmentMatch{
			{Index: 0, Speaker: "SPEAKER_00", IdentifiedSpeaker: "alice", Score: 0.93, Matched: true, Start: 0, End: 2500},
		},
	})

	stage := NewConversion(layout, zap.NewNop())
	require.NoError(t, stage.Check(testutil.SampleRecord(jobID)))

	res := stage.Run(context.Background(), testutil.SampleRecord(jobID))
	require.NoError(t, res.Err)
	assert.Len(t, res.Artifacts, len(export.Files))

	sid, err := os.ReadFile(filepath.Join(layout.ConvertedDir(jobID), export.SIDFile))
	require.NoError(t, err)
	assert.Contains(t, string(sid), "audio-file,alice,0.93,0,2500")
	assert.Contains(t, string(sid), "audio-file,SPEAKER_01,1.0,2500,5250")

	nmt, err := os.ReadFile(filepath.Join(layout.ConvertedDir(jobID), export.NMTFile))
	require.NoError(t, err)
	assert.Contains(t, string(nmt), "0-2500 hello\n")
}

func TestConversionMalformedTranslation(t *testing.T) {
	layout := newTestLayout(t)
	seedTranscription(t, layout)
	testutil.WriteFile(t, layout.Translation(jobID), []byte(`{"id":"x"}`))

	res := NewConversion(layout, zap.NewNop()).Run(context.Background(), testutil.SampleRecord(jobID))
	require.Error(t, res.Err)
	assert.Equal(t, apperrors.KindMalformedResult, apperrors.KindOf(res.Err))
}
