// Package extractor wraps the external media extraction tool. It is the only
// place in the codebase that knows how remote audio is located and fetched;
// everything above it works with TrackInfo and local files.
package extractor

import (
	"context"
	"errors"

	"echofm/model"
)

// ErrUpstream marks failures of the external extraction tool, as opposed to
// local I/O problems.
var ErrUpstream = errors.New("extractor upstream failure")

// Result is the outcome of a metadata-only extraction: exactly one of Track or
// List is set.
type Result struct {
	Track *model.TrackInfo  `json:"track,omitempty"`
	List  *model.SourceList `json:"list,omitempty"`
}

// Extractor resolves remote source URLs into metadata and audio files.
type Extractor interface {
	// ExtractInfo fetches metadata for a URL without downloading audio.
	ExtractInfo(ctx context.Context, url string) (*Result, error)

	// Download materializes the audio of a single-item URL at dest and
	// returns the metadata observed while downloading. quality is a key
	// into the configured quality table ("128", "192", "320", "flac").
	Download(ctx context.Context, url, dest, quality string) (*model.TrackInfo, error)
}
