package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	name string
	args []string
}

// fakeRunner writes a file at the last argument for ffmpeg calls and
// returns probeOutput for ffprobe calls
func fakeRunner(calls *[]recordedCall, probeOutput string, fail error) CommandRunner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		if fail != nil {
			return nil, fail
		}
		if name == "ffprobe" {
			return []byte(probeOutput), nil
		}
		return nil, os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
	}
}

func TestNormalize(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "audio-file.wav")
	var calls []recordedCall

	tool := NewFFmpeg().WithRunner(fakeRunner(&calls, "", nil))
	require.NoError(t, tool.Normalize(context.Background(), filepath.Join(dir, "audio-file.mp4"), out))

	require.Len(t, calls, 1)
	assert.Equal(t, "ffmpeg", calls[0].name)
	assert.Contains(t, calls[0].args, "16000")
	assert.Equal(t, filepath.Join(dir, "audio-file.tmp.wav"), calls[0].args[len(calls[0].args)-1])
	assert.FileExists(t, out)
	assert.NoFileExists(t, filepath.Join(dir, "audio-file.tmp.wav"))
}

func TestCrop(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "0.wav")
	var calls []recordedCall

	tool := NewFFmpeg().WithRunner(fakeRunner(&calls, "", nil))
	require.NoError(t, tool.Crop(context.Background(), "in.wav", out, 1500, 4250))

	args := calls[0].args
	assert.Contains(t, args, "1.500")
	assert.Contains(t, args, "4.250")
	assert.FileExists(t, out)

	assert.Error(t, tool.Crop(context.Background(), "in.wav", out, 10, 10))
}

func TestTranscodeFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "audio-file.wav")
	var calls []recordedCall

	tool := NewFFmpeg().WithRunner(fakeRunner(&calls, "", errors.New("exit status 1")))
	err := tool.Normalize(context.Background(), "in.ogg", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FFmpeg error")
	assert.NoFileExists(t, out)
}

func TestDurationAndProbe(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		want        time.Duration
		wantMono16k bool
		wantErr     bool
	}{
		{
			name:        "normalised wav",
			output:      `{"streams":[{"codec_type":"audio","codec_name":"pcm_s16le","sample_rate":"16000","channels":1}],"format":{"duration":"45.678"}}`,
			want:        45678 * time.Millisecond,
			wantMono16k: true,
		},
		{
			name:   "stereo mp3",
			output: `{"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2}],"format":{"duration":"30"}}`,
			want:   30 * time.Second,
		},
		{
			name:    "garbage",
			output:  `not-json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []recordedCall
			tool := NewFFmpeg().WithRunner(fakeRunner(&calls, tt.output, nil))

			d, err := tool.Duration(context.Background(), "x")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, float64(tt.want), float64(d), float64(time.Millisecond))

			ok, err := tool.Is16kHzMonoWav(context.Background(), "x")
			require.NoError(t, err)
			assert.Equal(t, tt.wantMono16k, ok)
		})
	}
}
