package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echofm/core/extractor"
	"echofm/core/mediacache"
	"echofm/model"
)

type stubExtractor struct {
	payload string
	calls   int
}

func (s *stubExtractor) ExtractInfo(ctx context.Context, url string) (*extractor.Result, error) {
	return &extractor.Result{Track: &model.TrackInfo{Title: "Song", URL: url}}, nil
}

func (s *stubExtractor) Download(ctx context.Context, url, dest, quality string) (*model.TrackInfo, error) {
	s.calls++
	if err := os.WriteFile(dest, []byte(s.payload), 0644); err != nil {
		return nil, err
	}
	return &model.TrackInfo{Title: "Song"}, nil
}

func newSource(t *testing.T, size int) *Source {
	t.Helper()
	payload := strings.Repeat("x", size)
	path := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))
	return &Source{Path: path, Size: int64(size)}
}

func TestServeStreamFullContent(t *testing.T) {
	g := NewGateway(nil)
	src := newSource(t, 1000)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	g.ServeStream(rec, req, src, "Song")

	res := rec.Result()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "audio/mpeg", res.Header.Get("Content-Type"))
	assert.Equal(t, "bytes", res.Header.Get("Accept-Ranges"))
	assert.Equal(t, "1000", res.Header.Get("Content-Length"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "inline")
	assert.Len(t, rec.Body.Bytes(), 1000)
}

func TestServeStreamPartialContent(t *testing.T) {
	g := NewGateway(nil)
	src := newSource(t, 1000)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=100-199")
	g.ServeStream(rec, req, src, "Song")

	res := rec.Result()
	assert.Equal(t, http.StatusPartialContent, res.StatusCode)
	assert.Equal(t, "bytes 100-199/1000", res.Header.Get("Content-Range"))
	assert.Equal(t, "100", res.Header.Get("Content-Length"))
	assert.Len(t, rec.Body.Bytes(), 100)
}

func TestServeStreamMalformedRangeFallsBack(t *testing.T) {
	g := NewGateway(nil)
	src := newSource(t, 1000)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=900-100")
	g.ServeStream(rec, req, src, "Song")

	res := rec.Result()
	assert.Equal(t, http.StatusPartialContent, res.StatusCode)
	assert.Equal(t, "bytes 0-999/1000", res.Header.Get("Content-Range"))
	assert.Len(t, rec.Body.Bytes(), 1000)
}

func TestServeDownloadAttachment(t *testing.T) {
	g := NewGateway(nil)
	src := newSource(t, 64)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	g.ServeDownload(rec, req, src, "My Song")

	res := rec.Result()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Disposition"), `attachment; filename="My Song.mp3"`)
	assert.Len(t, rec.Body.Bytes(), 64)
}

func TestOpenResolvesThroughCache(t *testing.T) {
	ex := &stubExtractor{payload: "cached-audio"}
	cache := mediacache.New(t.TempDir(), "192", 30*time.Second, ex)
	g := NewGateway(cache)

	track := &model.Track{ID: "t1", URL: "https://soundcloud.com/a/b"}
	src, err := g.Open(context.Background(), track, "")
	require.NoError(t, err)
	assert.Equal(t, int64(len("cached-audio")), src.Size)
	require.NotNil(t, src.Meta)
	assert.Equal(t, "Song", src.Meta.Title)
	assert.Equal(t, 1, ex.calls)
}

func TestOpenReusesRecordedFilepath(t *testing.T) {
	ex := &stubExtractor{payload: "cached-audio"}
	cache := mediacache.New(t.TempDir(), "192", 30*time.Second, ex)
	g := NewGateway(cache)

	path := filepath.Join(t.TempDir(), "local.mp3")
	require.NoError(t, os.WriteFile(path, []byte("already-here"), 0644))

	track := &model.Track{ID: "t1", URL: "https://soundcloud.com/a/b", Filepath: path}
	src, err := g.Open(context.Background(), track, "")
	require.NoError(t, err)
	assert.Equal(t, path, src.Path)
	assert.Nil(t, src.Meta)
	assert.Zero(t, ex.calls)
}

func TestOpenRevalidatesEvictedFilepath(t *testing.T) {
	ex := &stubExtractor{payload: "cached-audio"}
	cache := mediacache.New(t.TempDir(), "192", 30*time.Second, ex)
	g := NewGateway(cache)

	track := &model.Track{ID: "t1", URL: "https://soundcloud.com/a/b", Filepath: "/nonexistent/evicted.mp3"}
	src, err := g.Open(context.Background(), track, "")
	require.NoError(t, err)
	assert.Equal(t, cache.CanonicalPath(track.URL), src.Path)
	assert.Equal(t, 1, ex.calls)
}
