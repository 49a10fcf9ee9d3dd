package dto

import (
	"time"

	"smart-audio/internal/api/errors"
	"smart-audio/internal/app/model"
)

// UploadRequest carries the form fields sent next to the uploaded file
type UploadRequest struct {
	Name string `form:"name" binding:"omitempty,max=255"`
}

// FileResponse represents a job record in API responses
type FileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Status    string    `json:"status"`
	URL       string    `json:"url"`
	Stage     string    `json:"stage,omitempty"`
	Cause     string    `json:"cause,omitempty"`
}

// FromRecord converts a job record into its API representation
func FromRecord(rec model.JobRecord) *FileResponse {
	return &FileResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Filename:  rec.Filename,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Status:    string(rec.Status),
		URL:       rec.URL,
		Stage:     string(rec.Stage),
		Cause:     rec.Cause,
	}
}

// ListFilesQuery represents query parameters for listing files
type ListFilesQuery struct {
	Status string `form:"status"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// Validate performs domain-specific validation
func (q *ListFilesQuery) Validate() error {
	if q.Status == "" {
		return nil
	}
	switch model.JobStatus(q.Status) {
	case model.StatusUploaded, model.StatusDiarizing, model.StatusDiarized,
		model.StatusIdentifying, model.StatusIdentified, model.StatusRecognizing,
		model.StatusRecognized, model.StatusLanguageIdentified, model.StatusTranslating,
		model.StatusTranslated, model.StatusConverting, model.StatusConverted, model.StatusFailed:
		return nil
	}
	return errors.NewValidationError("Invalid list query", map[string]string{"status": "unknown status"})
}

// ListFilesResponse is a page of job records
type ListFilesResponse struct {
	Files  []FileResponse `json:"files"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// SegmentResponse is one segment of a result document
type SegmentResponse struct {
	Speaker          string  `json:"speaker"`
	Start            int64   `json:"start"`
	End              int64   `json:"end"`
	Transcript       *string `json:"transcript,omitempty"`
	Language         string  `json:"language,omitempty"`
	TranslatedText   *string `json:"translated_text,omitempty"`
	TranslationError string  `json:"translation_error,omitempty"`
}

// ResultResponse is the assembled result of a job
type ResultResponse struct {
	ID            string            `json:"id"`
	TotalSpeakers int               `json:"totalSpeakers"`
	Segments      []SegmentResponse `json:"segment"`
}

// PublishResponse lists the object URLs of published exports
type PublishResponse struct {
	ID      string            `json:"id"`
	Bucket  string            `json:"bucket"`
	Objects map[string]string `json:"objects"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   int64  `json:"timestamp"`
	RecordStore string `json:"recordStore"`
}
