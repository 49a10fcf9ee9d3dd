package model

// SegmentSchemaVersion is the schema version written into every segment document
const SegmentSchemaVersion = 1

// Segment is one detected speech turn. Start and End are millisecond offsets.
type Segment struct {
	Speaker          string  `json:"speaker"`
	Start            int64   `json:"start"`
	End              int64   `json:"end"`
	Transcript       *string `json:"transcript,omitempty"`
	Language         string  `json:"language,omitempty"`
	TranslatedText   *string `json:"translated_text,omitempty"`
	TranslationError string  `json:"translation_error,omitempty"`
}

// SegmentDocument is the on-disk shape shared by the diarization index,
// the transcription and the translation artifacts.
type SegmentDocument struct {
	SchemaVersion int       `json:"schemaVersion"`
	ID            string    `json:"id"`
	TotalSpeakers int       `json:"totalSpeakers"`
	Segments      []Segment `json:"segment"`
}

// SpeakerTurn is a diarization turn in seconds, as returned by a diarizer
type SpeakerTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
