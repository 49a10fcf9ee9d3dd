package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-audio/internal/api/errors"
	apperrors "smart-audio/internal/app/errors"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(httptest.NewRecorder(), nil))
	r := gin.New()
	r.Use(RequestID(), StructuredLogging(logger), ErrorHandler(logger), CORS(DefaultCORSConfig()))
	return r
}

func TestHandleErrorMapsDomainErrors(t *testing.T) {
	r := newRouter()
	r.GET("/busy", func(c *gin.Context) {
		HandleError(c, apperrors.Wrapf(apperrors.ErrConcurrentModification, "job %s", "abc"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/busy", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	var body errors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errors.KindConflict, body.Kind)
	assert.Equal(t, "ConcurrentModification", body.Code)
	assert.Equal(t, "req-1", body.RequestID)
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	r := newRouter()
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter()
	r.GET("/files", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/files", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
}

type pageQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func TestValidateQuery(t *testing.T) {
	r := newRouter()
	r.GET("/q", func(c *gin.Context) {
		var q pageQuery
		if err := ValidateQuery(c, &q); err != nil {
			HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, q)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/q?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "is too large")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/q?limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDReplacesUnusableHeader(t *testing.T) {
	r := newRouter()
	r.GET("/files", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	for _, supplied := range []string{"", "has spaces", strings.Repeat("a", 65)} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/files", nil)
		req.Header.Set(RequestIDHeader, supplied)
		r.ServeHTTP(w, req)

		id := w.Header().Get(RequestIDHeader)
		assert.NotEqual(t, supplied, id)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	}
}

func TestStructuredLoggingLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	r := gin.New()
	r.Use(RequestID(), StructuredLogging(logger))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/files/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/files/abc", nil))
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "abc", record["job_id"])
	assert.Equal(t, "/files/:id", record["route"])
	assert.EqualValues(t, http.StatusNotFound, record["status"])
}
