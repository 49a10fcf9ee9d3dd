package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"smart-audio/internal/app/model"
)

// FixedTime is the clock used by fixtures
var FixedTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// SampleRecord returns an uploaded job record
func SampleRecord(id string) model.JobRecord {
	return model.JobRecord{
		ID:        id,
		Name:      "meeting.wav",
		Filename:  "audio-file.wav",
		CreatedAt: FixedTime,
		UpdatedAt: FixedTime,
		Status:    model.StatusUploaded,
		URL:       "/uploads/" + id + "/audio-file.wav",
		Version:   1,
	}
}

// SampleTurns is a two speaker diarization result
func SampleTurns() []model.SpeakerTurn {
	return []model.SpeakerTurn{
		{Speaker: "SPEAKER_00", Start: 0.0, End: 2.5},
		{Speaker: "SPEAKER_01", Start: 2.5, End: 5.25},
		{Speaker: "SPEAKER_00", Start: 5.25, End: 7.0},
	}
}

// SampleSegments mirrors SampleTurns in milliseconds
func SampleSegments() []model.Segment {
	return []model.Segment{
		{Speaker: "SPEAKER_00", Start: 0, End: 2500},
		{Speaker: "SPEAKER_01", Start: 2500, End: 5250},
		{Speaker: "SPEAKER_00", Start: 5250, End: 7000},
	}
}

// TranscribedSegments returns SampleSegments with transcripts and languages
func TranscribedSegments() []model.Segment {
	segs := SampleSegments()
	segs[0].Transcript, segs[0].Language = model.StringPtr("namaste"), "hi"
	segs[1].Transcript, segs[1].Language = model.StringPtr("hello there"), "en"
	segs[2].Transcript, segs[2].Language = model.StringPtr(""), ""
	return segs
}

// TranslatedSegments returns TranscribedSegments with translations
func TranslatedSegments() []model.Segment {
	segs := TranscribedSegments()
	segs[0].TranslatedText = model.StringPtr("hello")
	segs[1].TranslatedText = model.StringPtr("hello there")
	segs[2].TranslatedText = model.StringPtr("")
	return segs
}

// WriteJSON marshals v into path, creating parent folders
func WriteJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	WriteFile(t, path, data)
}

// WriteFile writes data into path, creating parent folders
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// FakeAudio is a few bytes standing in for an audio file
var FakeAudio = []byte("RIFF\x24\x00\x00\x00WAVEfmt ")

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func writeMarker(path string, startMs, endMs int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d-%d", startMs, endMs)), 0o644)
}
