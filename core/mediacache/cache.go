// Package mediacache stores downloaded audio on disk, keyed by source URL.
// Each platform gets its own subdirectory; every cached file carries a JSON
// sidecar with descriptive metadata. The same URL is downloaded at most once,
// also under concurrent access.
package mediacache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"echofm/core/extractor"
	"echofm/logger"
	"echofm/model"
)

const sidecarSuffix = ".meta.json"

// Prober supplies technical metadata for files whose extractor info came back
// incomplete. Optional.
type Prober interface {
	ProbeFile(path string) (durationSeconds float64, bitrateKbps int, err error)
}

// Cache is the content-addressed track cache.
type Cache struct {
	baseDir        string
	defaultQuality string
	timeout        time.Duration
	ex             extractor.Extractor
	prober         Prober

	mu       sync.Mutex
	inflight map[string]*inflightDownload
}

// inflightDownload tracks one running download. Concurrent resolvers of the
// same key block on done instead of starting a second download.
type inflightDownload struct {
	done chan struct{}
	path string
	meta *model.CacheMetadata
	err  error
}

// New creates a Cache rooted at baseDir. timeout bounds a single download.
func New(baseDir, defaultQuality string, timeout time.Duration, ex extractor.Extractor) *Cache {
	return &Cache{
		baseDir:        baseDir,
		defaultQuality: defaultQuality,
		timeout:        timeout,
		ex:             ex,
		inflight:       make(map[string]*inflightDownload),
	}
}

// SetProber attaches an optional prober used to backfill duration and bitrate.
func (c *Cache) SetProber(p Prober) {
	c.prober = p
}

// Key returns the content-addressed cache key for a URL.
func Key(rawURL string) string {
	return fmt.Sprintf("%s_%x", model.DetectPlatform(rawURL), md5.Sum([]byte(rawURL)))
}

// CanonicalPath returns the fixed on-disk location for a URL's audio.
func (c *Cache) CanonicalPath(rawURL string) string {
	return filepath.Join(c.baseDir, model.DetectPlatform(rawURL), Key(rawURL)+".mp3")
}

// Resolve returns the local audio file and sidecar metadata for a URL,
// downloading both on first access. quality overrides the default for this
// one resolution only; pass "" for the default.
func (c *Cache) Resolve(ctx context.Context, rawURL, quality string) (string, *model.CacheMetadata, error) {
	path := c.CanonicalPath(rawURL)

	// Cache hit: file present and sidecar readable.
	if meta := c.lookup(path); meta != nil {
		return path, meta, nil
	}

	key := Key(rawURL)
	c.mu.Lock()
	if d, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-d.done:
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
		return d.path, d.meta, d.err
	}
	d := &inflightDownload{done: make(chan struct{})}
	c.inflight[key] = d
	c.mu.Unlock()

	d.path, d.meta, d.err = c.download(ctx, rawURL, path, quality)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(d.done)

	return d.path, d.meta, d.err
}

// lookup returns the sidecar metadata when path is a complete cache entry.
func (c *Cache) lookup(path string) *model.CacheMetadata {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	raw, err := os.ReadFile(path + sidecarSuffix)
	if err != nil {
		return nil
	}
	var meta model.CacheMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	return &meta
}

func (c *Cache) download(ctx context.Context, rawURL, canonical, quality string) (string, *model.CacheMetadata, error) {
	// Another resolver may have completed between our miss and the registry
	// insert.
	if meta := c.lookup(canonical); meta != nil {
		return canonical, meta, nil
	}

	if quality == "" {
		quality = c.defaultQuality
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Download into a temp file in the target directory so the final rename
	// is atomic; readers never observe a half-written canonical file.
	dir := filepath.Dir(canonical)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, err
	}
	tmp := filepath.Join(dir, ".dl-"+uuid.NewString()+filepath.Ext(canonical))

	info, err := c.ex.Download(ctx, rawURL, tmp, quality)
	if err != nil {
		os.Remove(tmp)
		logger.Error("download failed",
			logger.String("url", rawURL),
			logger.ErrorField(err))
		return "", nil, err
	}

	meta := c.buildMetadata(info, rawURL, canonical, tmp)

	// Sidecar first, media second: a visible media file always has metadata.
	if err := writeSidecar(canonical+sidecarSuffix, meta); err != nil {
		os.Remove(tmp)
		return "", nil, err
	}
	if err := os.Rename(tmp, canonical); err != nil {
		os.Remove(tmp)
		os.Remove(canonical + sidecarSuffix)
		return "", nil, err
	}

	logger.Info("cached new track",
		logger.String("url", rawURL),
		logger.String("path", canonical),
		logger.Int64("size", meta.Filesize))
	return canonical, meta, nil
}

func (c *Cache) buildMetadata(info *model.TrackInfo, rawURL, canonical, tmp string) *model.CacheMetadata {
	var size int64
	if fi, err := os.Stat(tmp); err == nil {
		size = fi.Size()
	}

	meta := &model.CacheMetadata{
		ID:           info.ID,
		Title:        info.Title,
		Artist:       info.Artist,
		Album:        info.Album,
		Duration:     info.Duration,
		Thumbnail:    info.Thumbnail,
		Platform:     model.DetectPlatform(rawURL),
		URL:          rawURL,
		WebpageURL:   info.WebpageURL,
		Filepath:     canonical,
		Filename:     filepath.Base(canonical),
		Filesize:     size,
		Bitrate:      info.Bitrate,
		DownloadDate: time.Now().Format(time.RFC3339),
		Status:       "downloaded",
	}

	if c.prober != nil && (meta.Duration == 0 || meta.Bitrate == 0) {
		if dur, br, err := c.prober.ProbeFile(tmp); err == nil {
			if meta.Duration == 0 {
				meta.Duration = int(dur)
			}
			if meta.Bitrate == 0 {
				meta.Bitrate = br
			}
		}
	}
	return meta
}

func writeSidecar(path string, meta *model.CacheMetadata) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Evict removes files older than olderThanDays from one platform directory,
// or from all of them when platform is empty. Per-file failures are skipped.
// Returns the number of files removed.
func (c *Cache) Evict(platform string, olderThanDays int) (int, error) {
	var dirs []string
	if platform != "" {
		dirs = []string{filepath.Join(c.baseDir, platform)}
	} else {
		entries, err := os.ReadDir(c.baseDir)
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, filepath.Join(c.baseDir, e.Name()))
			}
		}
	}

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	removed := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(dir, e.Name())
			fi, err := e.Info()
			if err != nil || !fi.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				logger.Warn("eviction skipped file",
					logger.String("path", path),
					logger.ErrorField(err))
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		logger.Info("cache eviction finished",
			logger.String("platform", platform),
			logger.Int("days", olderThanDays),
			logger.Int("removed", removed))
	}
	return removed, nil
}
