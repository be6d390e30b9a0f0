// Package audio wraps ffmpeg for transcoding and probing local audio files.
// It sits outside the streaming path: cached audio is served as-is.
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

	"github.com/google/uuid"

	"echofm/logger"
)

// ConvertOptions selects the target encoding for Convert.
type ConvertOptions struct {
	Format     string // mp3, flac, wav, ...
	Bitrate    string // e.g. "192k", ignored for lossless formats
	SampleRate int
	Channels   int
}

// Info is the technical metadata of a local audio file.
type Info struct {
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"` // kbit/s
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Filesize   int64   `json:"filesize"`
	Format     string  `json:"format"`
}

// FFmpeg invokes the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	ffmpegPath string
	workDir    string // where converted files are written
}

// NewFFmpeg creates a transcoder using the ffmpeg binary at path. Converted
// files land in workDir.
func NewFFmpeg(path, workDir string) *FFmpeg {
	return &FFmpeg{ffmpegPath: path, workDir: workDir}
}

// Available reports whether the configured ffmpeg binary can be executed.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.ffmpegPath)
	return err == nil
}

func (f *FFmpeg) ffprobePath() string {
	return strings.Replace(f.ffmpegPath, "ffmpeg", "ffprobe", 1)
}

// Convert transcodes input to the requested format and returns the path of
// the new file.
func (f *FFmpeg) Convert(ctx context.Context, input string, opts ConvertOptions) (string, error) {
	if _, err := os.Stat(input); err != nil {
		return "", fmt.Errorf("input file not readable: %w", err)
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = "mp3"
	}
	output := filepath.Join(f.workDir, fmt.Sprintf("convert-%s.%s", uuid.NewString(), format))

	args := []string{
		"-i", input,
		"-vn",
		"-y",
	}
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	if opts.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.Channels))
	}
	switch format {
	case "flac":
		args = append(args, "-compression_level", "5")
	default:
		if opts.Bitrate != "" {
			args = append(args, "-b:a", opts.Bitrate)
		}
	}
	args = append(args, output)

	if err := f.run(ctx, f.ffmpegPath, args); err != nil {
		os.Remove(output)
		return "", err
	}

	fi, err := os.Stat(output)
	if err != nil || fi.Size() == 0 {
		os.Remove(output)
		return "", fmt.Errorf("conversion produced no output for %s", input)
	}
	return output, nil
}

// Normalize rewrites input at the target loudness (EBU R128 loudnorm) and
// returns the path of the normalized file.
func (f *FFmpeg) Normalize(ctx context.Context, input string, targetLUFS float64) (string, error) {
	output := filepath.Join(f.workDir, fmt.Sprintf("norm-%s%s", uuid.NewString(), filepath.Ext(input)))

	args := []string{
		"-i", input,
		"-af", fmt.Sprintf("loudnorm=I=%.1f:TP=-1.5:LRA=11", targetLUFS),
		"-y",
		output,
	}
	if err := f.run(ctx, f.ffmpegPath, args); err != nil {
		os.Remove(output)
		return "", err
	}
	return output, nil
}

// ffprobeOutput mirrors the ffprobe JSON we consume.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// Probe reports the technical metadata of a local audio file via ffprobe.
func (f *FFmpeg) Probe(input string) (*Info, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "format=duration,bit_rate:stream=sample_rate,channels",
		"-of", "json",
		input,
	}

	cmd := exec.Command(f.ffprobePath(), args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", input, err, stderr.String())
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", input, err)
	}

	info := &Info{Format: strings.TrimPrefix(filepath.Ext(input), ".")}
	if fi, err := os.Stat(input); err == nil {
		info.Filesize = fi.Size()
	}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	if probe.Format.BitRate != "" {
		if b, err := strconv.Atoi(probe.Format.BitRate); err == nil {
			info.Bitrate = b / 1000
		}
	}
	if len(probe.Streams) > 0 {
		if sr, err := strconv.Atoi(probe.Streams[0].SampleRate); err == nil {
			info.SampleRate = sr
		}
		info.Channels = probe.Streams[0].Channels
	}
	return info, nil
}

// ProbeFile adapts Probe to the narrow prober contract used by the cache.
func (f *FFmpeg) ProbeFile(path string) (float64, int, error) {
	info, err := f.Probe(path)
	if err != nil {
		return 0, 0, err
	}
	return info.Duration, info.Bitrate, nil
}

func (f *FFmpeg) run(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("executing ffmpeg",
		logger.String("bin", bin),
		logger.String("args", strings.Join(args, " ")))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg execution failed: %w\nFFmpeg Error: %s", err, stderr.String())
	}
	return nil
}
