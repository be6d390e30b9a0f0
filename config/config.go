package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Quality describes one of the selectable audio qualities.
type Quality struct {
	Bitrate string // e.g. "192k", empty for lossless
	Format  string // target container/codec, e.g. "mp3", "flac"
}

// Config stores the application configuration.
type Config struct {
	Addr           string
	DataDir        string // playlist state, settings
	CacheDir       string // downloaded audio, one subdirectory per platform
	LogDir         string
	LogLevel       string
	PlaylistFile   string
	SettingsFile   string
	FFmpegPath     string
	YtdlpPath      string
	DefaultQuality string
	Qualities      map[string]Quality
	Platforms      []string // cache subdirectories created at startup
	// Bound on a single extract/download subprocess.
	DownloadTimeout time.Duration
	InfoCacheTTL    time.Duration
	// Redis is optional; the extractor info cache degrades to direct
	// extraction when it is unreachable.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() does not override variables already set in the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	dataDir := getEnv("DATA_DIR", "data")
	cacheDir := getEnv("AUDIO_CACHE_DIR", "audio_cache")

	return &Config{
		Addr:           getEnv("LISTEN_ADDR", ":8080"),
		DataDir:        dataDir,
		CacheDir:       cacheDir,
		LogDir:         getEnv("LOG_DIR", "logs"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		PlaylistFile:   filepath.Join(dataDir, "playlist.json"),
		SettingsFile:   filepath.Join(dataDir, "settings.json"),
		FFmpegPath:     getEnv("FFMPEG_PATH", "ffmpeg"),
		YtdlpPath:      getEnv("YTDLP_PATH", "yt-dlp"),
		DefaultQuality: getEnv("DEFAULT_QUALITY", "192"),
		Qualities: map[string]Quality{
			"128":  {Bitrate: "128k", Format: "mp3"},
			"192":  {Bitrate: "192k", Format: "mp3"},
			"320":  {Bitrate: "320k", Format: "mp3"},
			"flac": {Format: "flac"},
		},
		Platforms:       []string{"youtube", "vimeo", "facebook", "soundcloud", "spotify", "twitch", "other"},
		DownloadTimeout: time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 600)) * time.Second,
		InfoCacheTTL:    time.Duration(getEnvInt("INFO_CACHE_TTL_SECONDS", 3600)) * time.Second,
		RedisHost:       getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
	}
}

// EnsureDirs creates the data, cache and log directories, including one cache
// subdirectory per known platform.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.DataDir, c.CacheDir, c.LogDir}
	for _, p := range c.Platforms {
		dirs = append(dirs, filepath.Join(c.CacheDir, p))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
