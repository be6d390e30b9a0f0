package server

import (
	"encoding/json"
	"net/http"
	"time"

	"echofm/config"
	"echofm/core/audio"
	"echofm/core/extractor"
	"echofm/core/mediacache"
	"echofm/core/playlist"
	"echofm/core/stream"
	"echofm/logger"
)

// APIHandler bundles the shared application state handed to every route. The
// playlist and cache are the process-wide singletons; they are constructed
// once in Start and never referenced through globals.
type APIHandler struct {
	playlist   *playlist.Playlist
	cache      *mediacache.Cache
	gateway    *stream.Gateway
	extractor  extractor.Extractor
	transcoder *audio.FFmpeg
	settings   *config.SettingsStore
	cfg        *config.Config
}

// NewAPIHandler creates the API handler with all its collaborators.
func NewAPIHandler(
	pl *playlist.Playlist,
	cache *mediacache.Cache,
	gateway *stream.Gateway,
	ex extractor.Extractor,
	transcoder *audio.FFmpeg,
	settings *config.SettingsStore,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		playlist:   pl,
		cache:      cache,
		gateway:    gateway,
		extractor:  ex,
		transcoder: transcoder,
		settings:   settings,
		cfg:        cfg,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

// HealthHandler reports component status.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	stats := h.playlist.Stats()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]interface{}{
			"playlist": stats.TotalTracks,
			"ffmpeg":   h.transcoder.Available(),
		},
	})
}

// quality returns the active audio quality, falling back to the configured
// default when the settings document names an unknown one.
func (h *APIHandler) quality() string {
	q := h.settings.Quality()
	if _, ok := h.cfg.Qualities[q]; !ok {
		return h.cfg.DefaultQuality
	}
	return q
}
