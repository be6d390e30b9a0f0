package mediacache

import (
	"io/fs"
	"path/filepath"
	"strings"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".webm": true,
	".opus": true,
	".flac": true,
}

// PlatformUsage summarizes the cached files of one platform.
type PlatformUsage struct {
	Size  int64 `json:"size"`
	Count int   `json:"count"`
}

// UsageReport summarizes the whole cache.
type UsageReport struct {
	TotalSize   int64                    `json:"total_size"`
	TotalSizeMB float64                  `json:"total_size_mb"`
	FileCount   int                      `json:"file_count"`
	ByPlatform  map[string]PlatformUsage `json:"by_platform"`
}

// Usage walks the cache directory and reports size and file counts, grouped
// by platform subdirectory. Sidecar files are not counted.
func (c *Cache) Usage() (*UsageReport, error) {
	report := &UsageReport{ByPlatform: make(map[string]PlatformUsage)}

	err := filepath.WalkDir(c.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !audioExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(c.baseDir, path)
		if err != nil {
			return nil
		}
		platform := "other"
		if parts := strings.Split(rel, string(filepath.Separator)); len(parts) > 1 {
			platform = parts[0]
		}

		report.TotalSize += fi.Size()
		report.FileCount++
		usage := report.ByPlatform[platform]
		usage.Size += fi.Size()
		usage.Count++
		report.ByPlatform[platform] = usage
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.TotalSizeMB = float64(report.TotalSize) / (1024 * 1024)
	return report, nil
}
