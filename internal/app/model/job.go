package model

import (
	"time"
)

// JobStatus is the named stage marker stored on a job record
type JobStatus string

const (
	StatusUploaded           JobStatus = "UPLOADED"
	StatusDiarizing          JobStatus = "DIARIZING"
	StatusDiarized           JobStatus = "DIARIZED"
	StatusIdentifying        JobStatus = "IDENTIFYING"
	StatusIdentified         JobStatus = "IDENTIFIED"
	StatusRecognizing        JobStatus = "RECOGNIZING"
	StatusRecognized         JobStatus = "RECOGNIZED"
	StatusLanguageIdentified JobStatus = "LANGUAGE_IDENTIFIED"
	StatusTranslating        JobStatus = "TRANSLATING"
	StatusTranslated         JobStatus = "TRANSLATED"
	StatusConverting         JobStatus = "CONVERTING"
	StatusConverted          JobStatus = "CONVERTED"
	StatusFailed             JobStatus = "FAILED"
)

// InProgress reports whether the status marks a running stage
func (s JobStatus) InProgress() bool {
	switch s {
	case StatusDiarizing, StatusIdentifying, StatusRecognizing, StatusTranslating, StatusConverting:
		return true
	}
	return false
}

// Stage names one pipeline step. The value doubles as the HTTP path segment.
type Stage string

const (
	StageDiarization    Stage = "speaker-diarization"
	StageIdentification Stage = "speaker-identification"
	StageRecognition    Stage = "speech-recognition"
	StageTranslation    Stage = "neural-translation"
	StageConversion     Stage = "format-conversion"
)

// PipelineOrder is the canonical stage sequence
var PipelineOrder = []Stage{
	StageDiarization,
	StageIdentification,
	StageRecognition,
	StageTranslation,
	StageConversion,
}

// RunningStatus returns the status set when a stage starts
func (s Stage) RunningStatus() JobStatus {
	switch s {
	case StageDiarization:
		return StatusDiarizing
	case StageIdentification:
		return StatusIdentifying
	case StageRecognition:
		return StatusRecognizing
	case StageTranslation:
		return StatusTranslating
	case StageConversion:
		return StatusConverting
	}
	return ""
}

// DoneStatus returns the status set when a stage succeeds
func (s Stage) DoneStatus() JobStatus {
	switch s {
	case StageDiarization:
		return StatusDiarized
	case StageIdentification:
		return StatusIdentified
	case StageRecognition:
		return StatusRecognized
	case StageTranslation:
		return StatusTranslated
	case StageConversion:
		return StatusConverted
	}
	return ""
}

// Valid reports whether s is a known stage
func (s Stage) Valid() bool {
	return s.RunningStatus() != ""
}

// JobRecord is one uploaded asset and its processing state
type JobRecord struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Filename  string    `json:"filename" db:"filename"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Status    JobStatus `json:"status" db:"status"`
	URL       string    `json:"url" db:"url"`
	Stage     Stage     `json:"stage,omitempty" db:"stage"`
	Cause     string    `json:"cause,omitempty" db:"cause"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	Version   int64     `json:"version" db:"version"`
}

// TableName returns the table name for JobRecord
func (JobRecord) TableName() string {
	return "job_records"
}
