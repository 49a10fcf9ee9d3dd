package model

// EnrolmentProfile maps a speaker label to an averaged, L2-normalised embedding
type EnrolmentProfile struct {
	SchemaVersion int                  `json:"schemaVersion"`
	Speakers      map[string][]float32 `json:"speakers"`
}

// SegmentMatch is the identification outcome for one segment
type SegmentMatch struct {
	Index             int     `json:"index"`
	Speaker           string  `json:"speaker"`
	IdentifiedSpeaker string  `json:"identifiedSpeaker"`
	Score             float64 `json:"score"`
	Matched           bool    `json:"matched"`
	Start             int64   `json:"start"`
	End               int64   `json:"end"`
}

// IdentificationReport is written by the identification stage when a
// profile already exists
type IdentificationReport struct {
	SchemaVersion int            `json:"schemaVersion"`
	ID            string         `json:"id"`
	Threshold     float64        `json:"threshold"`
	Segments      []SegmentMatch `json:"segment"`
}
