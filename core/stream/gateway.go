package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"echofm/core/mediacache"
	"echofm/logger"
	"echofm/model"
)

// Source is a resolved, locally available audio resource.
type Source struct {
	Path string
	Size int64
	Meta *model.CacheMetadata
}

// Gateway composes the track cache with range delivery.
type Gateway struct {
	cache *mediacache.Cache
}

// NewGateway creates a Gateway over the given cache.
func NewGateway(cache *mediacache.Cache) *Gateway {
	return &Gateway{cache: cache}
}

// Open resolves a track's audio through the cache, downloading it on first
// access, and returns a Source for serving. A track filepath recorded earlier
// is re-validated against the filesystem: the file may have been evicted.
func (g *Gateway) Open(ctx context.Context, track *model.Track, quality string) (*Source, error) {
	path := track.Filepath
	var meta *model.CacheMetadata

	if path == "" || !fileExists(path) {
		resolved, m, err := g.cache.Resolve(ctx, track.URL, quality)
		if err != nil {
			return nil, err
		}
		path = resolved
		meta = m
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &Source{Path: path, Size: fi.Size(), Meta: meta}, nil
}

// ServeStream writes the source to the client, honoring a single-range Range
// header with 206 Partial Content. Range support is always advertised and the
// response is never cached: the bytes are stable but the surrounding metadata
// is not.
func (g *Gateway) ServeStream(w http.ResponseWriter, r *http.Request, src *Source, title string) {
	f, err := os.Open(src.Path)
	if err != nil {
		logger.Error("failed to open cached audio", logger.String("path", src.Path), logger.ErrorField(err))
		http.Error(w, "Audio file not available", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", title+".mp3"))

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		start, end := ParseRange(rangeHeader, src.Size)
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, src.Size))
		w.Header().Set("Content-Length", fmt.Sprintf("%d", end-start+1))
		w.WriteHeader(http.StatusPartialContent)

		if _, err := f.Seek(start, io.SeekStart); err != nil {
			logger.Error("seek failed", logger.ErrorField(err))
			return
		}
		if _, err := io.CopyN(w, f, end-start+1); err != nil {
			logger.Debug("partial stream aborted", logger.ErrorField(err))
		}
		return
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", src.Size))
	if _, err := io.Copy(w, f); err != nil {
		logger.Debug("stream aborted", logger.ErrorField(err))
	}
}

// ServeDownload always sends the complete file as an attachment.
func (g *Gateway) ServeDownload(w http.ResponseWriter, r *http.Request, src *Source, title string) {
	f, err := os.Open(src.Path)
	if err != nil {
		logger.Error("failed to open cached audio", logger.String("path", src.Path), logger.ErrorField(err))
		http.Error(w, "Audio file not available", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", src.Size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+".mp3"))

	if _, err := io.Copy(w, f); err != nil {
		logger.Debug("download aborted", logger.ErrorField(err))
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
