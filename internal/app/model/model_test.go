package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageStatuses(t *testing.T) {
	for _, stage := range PipelineOrder {
		assert.True(t, stage.Valid(), stage)
		assert.True(t, stage.RunningStatus().InProgress(), stage)
		assert.False(t, stage.DoneStatus().InProgress(), stage)
	}
	assert.False(t, Stage("karaoke").Valid())
	assert.False(t, StatusFailed.InProgress())
}

func TestMediaProbeDecodesFFprobeReport(t *testing.T) {
	report := `{
		"streams": [
			{"index": 0, "codec_type": "video", "codec_name": "h264"},
			{"index": 1, "codec_type": "audio", "codec_name": "pcm_s16le", "sample_rate": "16000", "channels": 1}
		],
		"format": {"filename": "audio-file.wav", "duration": "12.500000"}
	}`

	var probe MediaProbe
	require.NoError(t, json.Unmarshal([]byte(report), &probe))
	require.Len(t, probe.Streams, 2)
	assert.False(t, probe.Streams[0].IsNormalizedAudio())
	assert.True(t, probe.Streams[1].IsNormalizedAudio())
	assert.Equal(t, 12500*time.Millisecond, probe.Duration())

	stereo := probe.Streams[1]
	stereo.Channels = 2
	assert.False(t, stereo.IsNormalizedAudio())
}

func TestFileInfoExtension(t *testing.T) {
	assert.Equal(t, "mp3", FileInfo{Name: "Meeting.MP3"}.Extension())
	assert.Equal(t, "", FileInfo{Name: "README"}.Extension())
}
