package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"echofm/logger"
)

// ClearCacheHandler evicts cached audio older than the requested age.
func (h *APIHandler) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Platform string `json:"platform"`
		DaysOld  int    `json:"days_old"`
	}{DaysOld: 7}
	// An empty body keeps the defaults.
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.DaysOld < 0 {
		respondError(w, http.StatusBadRequest, "days_old must not be negative")
		return
	}

	removed, err := h.cache.Evict(req.Platform, req.DaysOld)
	if err != nil {
		logger.Error("cache eviction failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "cache eviction failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"removed": removed,
		"message": fmt.Sprintf("%d files removed from cache", removed),
	})
}

// CacheInfoHandler reports cache usage grouped by platform.
func (h *APIHandler) CacheInfoHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.cache.Usage()
	if err != nil {
		logger.Error("cache usage report failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "could not read cache")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"cache_info": report,
	})
}
