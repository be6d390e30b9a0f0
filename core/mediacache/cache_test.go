package mediacache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echofm/core/extractor"
	"echofm/model"
)

// fakeExtractor writes a fixed payload to the destination and counts calls.
// An optional gate lets tests hold every download open to force overlap.
type fakeExtractor struct {
	downloads atomic.Int32
	gate      chan struct{}
	err       error
	info      model.TrackInfo
}

func (f *fakeExtractor) ExtractInfo(ctx context.Context, url string) (*extractor.Result, error) {
	info := f.info
	return &extractor.Result{Track: &info}, nil
}

func (f *fakeExtractor) Download(ctx context.Context, url, dest, quality string) (*model.TrackInfo, error) {
	f.downloads.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	if err := os.WriteFile(dest, []byte("audio-bytes"), 0644); err != nil {
		return nil, err
	}
	info := f.info
	return &info, nil
}

func newTestCache(t *testing.T, ex extractor.Extractor) *Cache {
	t.Helper()
	return New(t.TempDir(), "192", 30*time.Second, ex)
}

func TestKeyIsPlatformPrefixed(t *testing.T) {
	key := Key("https://www.youtube.com/watch?v=abc")
	assert.True(t, strings.HasPrefix(key, "youtube_"))
	assert.Equal(t, key, Key("https://www.youtube.com/watch?v=abc"))
	assert.NotEqual(t, key, Key("https://www.youtube.com/watch?v=def"))
}

func TestResolveDownloadsAndWritesSidecar(t *testing.T) {
	ex := &fakeExtractor{info: model.TrackInfo{ID: "abc", Title: "Song", Artist: "Band", Duration: 180, Bitrate: 192}}
	c := newTestCache(t, ex)
	url := "https://soundcloud.com/band/song"

	path, meta, err := c.Resolve(context.Background(), url, "")
	require.NoError(t, err)
	assert.Equal(t, c.CanonicalPath(url), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(raw))

	require.NotNil(t, meta)
	assert.Equal(t, "Song", meta.Title)
	assert.Equal(t, "soundcloud", meta.Platform)
	assert.Equal(t, url, meta.URL)
	assert.Equal(t, int64(len("audio-bytes")), meta.Filesize)
	assert.Equal(t, "downloaded", meta.Status)

	// Sidecar sits next to the media file.
	_, err = os.Stat(path + sidecarSuffix)
	assert.NoError(t, err)
}

func TestResolveConcurrentSingleDownload(t *testing.T) {
	ex := &fakeExtractor{
		info: model.TrackInfo{Title: "Song"},
		gate: make(chan struct{}),
	}
	c := newTestCache(t, ex)
	url := "https://soundcloud.com/band/song"

	const resolvers = 10
	var wg sync.WaitGroup
	errs := make([]error, resolvers)
	paths := make([]string, resolvers)
	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], _, errs[i] = c.Resolve(context.Background(), url, "")
		}(i)
	}

	// Let every resolver reach the registry before the download completes.
	require.Eventually(t, func() bool {
		return ex.downloads.Load() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(ex.gate)
	wg.Wait()

	assert.Equal(t, int32(1), ex.downloads.Load())
	for i := 0; i < resolvers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, c.CanonicalPath(url), paths[i])
	}
}

func TestResolveCacheHitSkipsExtractor(t *testing.T) {
	ex := &fakeExtractor{info: model.TrackInfo{Title: "Song"}}
	c := newTestCache(t, ex)
	url := "https://vimeo.com/12345"

	_, _, err := c.Resolve(context.Background(), url, "")
	require.NoError(t, err)
	require.Equal(t, int32(1), ex.downloads.Load())

	_, meta, err := c.Resolve(context.Background(), url, "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), ex.downloads.Load())
	assert.Equal(t, "Song", meta.Title)
}

func TestResolveFailurePropagatesAndRetries(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("boom")}
	c := newTestCache(t, ex)
	url := "https://soundcloud.com/band/song"

	_, _, err := c.Resolve(context.Background(), url, "")
	require.Error(t, err)

	// Nothing may be left behind on failure.
	_, statErr := os.Stat(c.CanonicalPath(url))
	assert.True(t, os.IsNotExist(statErr))

	// A later resolve starts a fresh download instead of caching the failure.
	ex.err = nil
	_, _, err = c.Resolve(context.Background(), url, "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), ex.downloads.Load())
}

func TestResolveWaiterHonorsCanceledContext(t *testing.T) {
	ex := &fakeExtractor{
		info: model.TrackInfo{Title: "Song"},
		gate: make(chan struct{}),
	}
	c := newTestCache(t, ex)
	url := "https://soundcloud.com/band/song"

	first := make(chan struct{})
	go func() {
		defer close(first)
		c.Resolve(context.Background(), url, "")
	}()
	require.Eventually(t, func() bool {
		return ex.downloads.Load() == 1
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := c.Resolve(ctx, url, "")
	assert.ErrorIs(t, err, context.Canceled)

	close(ex.gate)
	<-first
}

func TestProberBackfillsMissingFields(t *testing.T) {
	ex := &fakeExtractor{info: model.TrackInfo{Title: "Song"}}
	c := newTestCache(t, ex)
	c.SetProber(proberFunc(func(path string) (float64, int, error) {
		return 213.7, 192, nil
	}))

	_, meta, err := c.Resolve(context.Background(), "https://soundcloud.com/band/song", "")
	require.NoError(t, err)
	assert.Equal(t, 213, meta.Duration)
	assert.Equal(t, 192, meta.Bitrate)
}

type proberFunc func(path string) (float64, int, error)

func (f proberFunc) ProbeFile(path string) (float64, int, error) { return f(path) }

func TestEvict(t *testing.T) {
	c := newTestCache(t, &fakeExtractor{})
	base := c.baseDir

	old := filepath.Join(base, "youtube", "youtube_old.mp3")
	fresh := filepath.Join(base, "youtube", "youtube_new.mp3")
	otherOld := filepath.Join(base, "vimeo", "vimeo_old.mp3")
	for _, path := range []string{old, fresh, otherOld} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
	stale := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, stale, stale))
	require.NoError(t, os.Chtimes(otherOld, stale, stale))

	removed, err := c.Evict("youtube", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(otherOld)
	assert.NoError(t, err)

	removed, err = c.Evict("", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = os.Stat(otherOld)
	assert.True(t, os.IsNotExist(err))
}

func TestUsage(t *testing.T) {
	c := newTestCache(t, &fakeExtractor{})
	base := c.baseDir

	files := map[string]int{
		filepath.Join(base, "youtube", "a.mp3"):           100,
		filepath.Join(base, "youtube", "b.mp3"):           50,
		filepath.Join(base, "soundcloud", "c.flac"):       200,
		filepath.Join(base, "youtube", "a.mp3.meta.json"): 30,
	}
	for path, size := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	}

	report, err := c.Usage()
	require.NoError(t, err)
	assert.Equal(t, 3, report.FileCount)
	assert.Equal(t, int64(350), report.TotalSize)
	assert.Equal(t, PlatformUsage{Size: 150, Count: 2}, report.ByPlatform["youtube"])
	assert.Equal(t, PlatformUsage{Size: 200, Count: 1}, report.ByPlatform["soundcloud"])
}
