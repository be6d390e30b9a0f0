package audio

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailableWithMissingBinary(t *testing.T) {
	f := NewFFmpeg(filepath.Join(t.TempDir(), "no-such-ffmpeg"), t.TempDir())
	assert.False(t, f.Available())
}

func TestFFprobePathDerivedFromFFmpegPath(t *testing.T) {
	f := NewFFmpeg("/usr/local/bin/ffmpeg", t.TempDir())
	assert.Equal(t, "/usr/local/bin/ffprobe", f.ffprobePath())
}

func TestConvertRejectsMissingInput(t *testing.T) {
	f := NewFFmpeg("ffmpeg", t.TempDir())
	_, err := f.Convert(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), ConvertOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not readable")
}
