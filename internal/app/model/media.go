package model

import (
	"path/filepath"
	"strings"
	"time"
)

// FileInfo describes an audio file found on disk by a batch scan.
type FileInfo struct {
	FullPath string
	ModTime  time.Time
	Name     string
	Size     int64
}

// Extension returns the lower-case extension without its dot.
func (f FileInfo) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
}

// MediaStream is one stream of an ffprobe report.
type MediaStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate int    `json:"sample_rate,string"`
	Channels   int    `json:"channels"`
}

// IsNormalizedAudio reports whether the stream is 16 kHz mono PCM, the
// form every model backend consumes.
func (s MediaStream) IsNormalizedAudio() bool {
	return s.CodecType == "audio" && s.CodecName == "pcm_s16le" && s.SampleRate == 16000 && s.Channels == 1
}

// MediaProbe is the subset of `ffprobe -show_format -show_streams` output
// the pipeline reads.
type MediaProbe struct {
	Streams []MediaStream `json:"streams"`
	Format  struct {
		Duration float64 `json:"duration,string"`
	} `json:"format"`
}

// Duration is the container duration.
func (p MediaProbe) Duration() time.Duration {
	return time.Duration(p.Format.Duration * float64(time.Second))
}
