package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"smart-audio/internal/app/model"
)

// CommandRunner runs an external binary and returns its stdout
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg wraps the ffmpeg and ffprobe binaries
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string

	run CommandRunner
}

// NewFFmpeg creates an FFmpeg tool using the binaries on PATH
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe", run: execRunner}
}

// WithRunner replaces the command runner
func (f *FFmpeg) WithRunner(run CommandRunner) *FFmpeg {
	f.run = run
	return f
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s error: %v, stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

// tempSibling keeps the extension so ffmpeg still infers the container
func tempSibling(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".tmp" + ext
}

func (f *FFmpeg) transcode(ctx context.Context, outputPath string, args ...string) error {
	tmp := tempSibling(outputPath)
	args = append(append([]string{"-y", "-loglevel", "error"}, args...),
		"-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", tmp)

	if _, err := f.run(ctx, f.FFmpegPath, args...); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("FFmpeg error: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", outputPath, err)
	}
	return nil
}

// Normalize converts any audio or video input into 16 kHz mono PCM WAV
func (f *FFmpeg) Normalize(ctx context.Context, inputPath, outputPath string) error {
	return f.transcode(ctx, outputPath, "-i", inputPath)
}

// Crop cuts the [startMs, endMs) window of inputPath into a 16 kHz mono WAV clip
func (f *FFmpeg) Crop(ctx context.Context, inputPath, outputPath string, startMs, endMs int64) error {
	if endMs <= startMs {
		return fmt.Errorf("invalid crop window %d-%d", startMs, endMs)
	}
	return f.transcode(ctx, outputPath,
		"-i", inputPath,
		"-ss", formatSeconds(startMs),
		"-to", formatSeconds(endMs),
	)
}

// Duration returns the container duration reported by ffprobe
func (f *FFmpeg) Duration(ctx context.Context, filePath string) (time.Duration, error) {
	probe, err := f.Probe(ctx, filePath)
	if err != nil {
		return 0, err
	}
	return probe.Duration(), nil
}

// Probe runs ffprobe and decodes its JSON output
func (f *FFmpeg) Probe(ctx context.Context, filePath string) (*model.MediaProbe, error) {
	output, err := f.run(ctx, f.FFprobePath, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", filePath)
	if err != nil {
		return nil, err
	}

	var probeOutput model.MediaProbe
	if err := json.Unmarshal(output, &probeOutput); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &probeOutput, nil
}

// Is16kHzMonoWav reports whether filePath is already normalised
func (f *FFmpeg) Is16kHzMonoWav(ctx context.Context, filePath string) (bool, error) {
	probeOutput, err := f.Probe(ctx, filePath)
	if err != nil {
		return false, err
	}

	for _, stream := range probeOutput.Streams {
		if stream.IsNormalizedAudio() {
			return true, nil
		}
	}

	return false, nil
}

func formatSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}
