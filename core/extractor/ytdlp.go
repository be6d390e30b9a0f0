package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"echofm/logger"
	"echofm/model"
)

// Ytdlp shells out to the yt-dlp binary, the same way the audio package shells
// out to ffmpeg.
type Ytdlp struct {
	path string
}

// NewYtdlp creates an extractor backed by the yt-dlp binary at path.
func NewYtdlp(path string) *Ytdlp {
	return &Ytdlp{path: path}
}

// ytdlpFormat mirrors the format objects of yt-dlp's JSON output.
type ytdlpFormat struct {
	FormatID   string  `json:"format_id"`
	Ext        string  `json:"ext"`
	ACodec     string  `json:"acodec"`
	VCodec     string  `json:"vcodec"`
	ABR        float64 `json:"abr"`
	ASR        float64 `json:"asr"`
	Filesize   int64   `json:"filesize"`
	FormatNote string  `json:"format_note"`
}

// ytdlpInfo mirrors the subset of yt-dlp's JSON output we consume.
type ytdlpInfo struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Artist     string        `json:"artist"`
	Uploader   string        `json:"uploader"`
	Album      string        `json:"album"`
	Duration   float64       `json:"duration"`
	Thumbnail  string        `json:"thumbnail"`
	WebpageURL string        `json:"webpage_url"`
	Formats    []ytdlpFormat `json:"formats"`
	Entries    []ytdlpInfo   `json:"entries"`
}

// ExtractInfo runs yt-dlp in dump-json mode, without downloading.
func (y *Ytdlp) ExtractInfo(ctx context.Context, url string) (*Result, error) {
	args := []string{
		"--dump-single-json",
		"--no-warnings",
		"--no-color",
		"--default-search", "auto",
		url,
	}

	out, err := y.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("%w: unparsable extractor output: %v", ErrUpstream, err)
	}

	if len(info.Entries) > 0 {
		list := &model.SourceList{Title: info.Title}
		if list.Title == "" {
			list.Title = "Playlist"
		}
		for _, entry := range info.Entries {
			entryURL := entry.WebpageURL
			if entryURL == "" {
				continue
			}
			list.Entries = append(list.Entries, mapInfo(entry, entryURL))
		}
		list.Count = len(list.Entries)
		return &Result{List: list}, nil
	}

	track := mapInfo(info, url)
	return &Result{Track: &track}, nil
}

// Download fetches the audio of url to dest. dest's extension dictates nothing:
// the audio is always extracted to mp3 (or the requested lossless format) and
// moved to dest afterwards.
func (y *Ytdlp) Download(ctx context.Context, url, dest, quality string) (*model.TrackInfo, error) {
	format := "mp3"
	if quality == "flac" {
		format = "flac"
	}

	base := strings.TrimSuffix(dest, filepath.Ext(dest))
	args := []string{
		"--no-warnings",
		"--no-color",
		"--no-playlist",
		"--extract-audio",
		"--audio-format", format,
		"--print-json",
		"--output", base + ".%(ext)s",
	}
	if quality != "flac" && quality != "" {
		args = append(args, "--audio-quality", quality+"K")
	}
	args = append(args, url)

	started := time.Now()
	out, err := y.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("%w: unparsable extractor output: %v", ErrUpstream, err)
	}

	if err := locateOutput(base, format, dest); err != nil {
		return nil, err
	}

	logger.Info("audio downloaded",
		logger.String("url", url),
		logger.String("dest", dest),
		logger.Duration("elapsed", time.Since(started)))

	track := mapInfo(info, url)
	return &track, nil
}

// locateOutput moves the file yt-dlp produced to dest. The tool occasionally
// keeps the source container extension despite --audio-format.
func locateOutput(base, format, dest string) error {
	candidates := []string{base + "." + format, base + ".m4a", base + ".webm", base + ".opus"}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			if c == dest {
				return nil
			}
			return os.Rename(c, dest)
		}
	}
	return fmt.Errorf("%w: downloaded file not found at %s", ErrUpstream, base)
}

func (y *Ytdlp) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, y.path, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrUpstream, err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}

// mapInfo converts raw yt-dlp output into a TrackInfo, filtering formats down
// to audio-only streams sorted by bitrate descending.
func mapInfo(info ytdlpInfo, url string) model.TrackInfo {
	artist := info.Artist
	if artist == "" {
		artist = info.Uploader
	}
	if artist == "" {
		artist = "Unknown Artist"
	}
	title := info.Title
	if title == "" {
		title = "Untitled"
	}

	var formats []model.AudioFormat
	bitrate := 0
	for _, f := range info.Formats {
		if int(f.ABR) > bitrate {
			bitrate = int(f.ABR)
		}
		if f.ACodec == "none" || f.VCodec != "none" {
			continue
		}
		formats = append(formats, model.AudioFormat{
			FormatID:   f.FormatID,
			Ext:        f.Ext,
			ABR:        f.ABR,
			ASR:        int(f.ASR),
			Filesize:   f.Filesize,
			FormatNote: f.FormatNote,
		})
	}
	sort.SliceStable(formats, func(i, j int) bool {
		return formats[i].ABR > formats[j].ABR
	})
	if bitrate == 0 {
		bitrate = 192
	}

	return model.TrackInfo{
		ID:          info.ID,
		URL:         url,
		Title:       title,
		Artist:      artist,
		Album:       info.Album,
		Duration:    int(info.Duration),
		Thumbnail:   info.Thumbnail,
		Platform:    model.DetectPlatform(url),
		WebpageURL:  info.WebpageURL,
		Formats:     formats,
		Status:      "available",
		ExtractedAt: time.Now().Format(time.RFC3339),
		Bitrate:     bitrate,
	}
}
