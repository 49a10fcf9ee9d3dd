package whisper_server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "smart-audio/internal/app/errors"
)

// Mock HTTP server for testing
func createMockWhisperServer(t *testing.T, status int, response interface{}) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("No file uploaded"))
			return
		}
		file.Close()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func createTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "3.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0o644))
	return path
}

func TestWhisperServerRecognizer_Recognize(t *testing.T) {
	tests := []struct {
		name         string
		response     WhisperServerResponse
		wantText     string
		wantLanguage string
	}{
		{
			name:         "language name is normalised",
			response:     WhisperServerResponse{Text: " hello there ", Language: "english"},
			wantText:     "hello there",
			wantLanguage: "en",
		},
		{
			name:         "detected language fallback",
			response:     WhisperServerResponse{Text: "kaise ho", DetectedLanguage: "hi"},
			wantText:     "kaise ho",
			wantLanguage: "hi",
		},
		{
			name:         "no language",
			response:     WhisperServerResponse{Text: "..."},
			wantText:     "...",
			wantLanguage: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := createMockWhisperServer(t, http.StatusOK, tt.response)
			recognizer := NewWhisperServerRecognizer(WhisperServerConfig{BaseURL: srv.URL})

			rec, err := recognizer.Recognize(context.Background(), createTestAudio(t))
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, rec.Text)
			assert.Equal(t, tt.wantLanguage, rec.Language)
		})
	}
}

func TestWhisperServerRecognizer_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := createMockWhisperServer(t, http.StatusInternalServerError, map[string]string{"error": "boom"})
		_, err := NewWhisperServerRecognizer(WhisperServerConfig{BaseURL: srv.URL}).
			Recognize(context.Background(), createTestAudio(t))
		require.Error(t, err)
		assert.Equal(t, apperrors.KindModelInvocationFailure, apperrors.KindOf(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewWhisperServerRecognizer(WhisperServerConfig{BaseURL: "http://127.0.0.1:1"}).
			Recognize(context.Background(), filepath.Join(t.TempDir(), "absent.wav"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input file not found")
	})
}

func TestNewWhisperServerRecognizer_Defaults(t *testing.T) {
	r := NewWhisperServerRecognizer(WhisperServerConfig{BaseURL: "http://localhost:8080"})
	assert.Equal(t, "/inference", r.config.InferencePath)
	assert.Equal(t, "verbose_json", r.config.ResponseFormat)
	assert.Equal(t, "auto", r.config.Language)
	assert.NotNil(t, r.config.CustomHeaders)
}
