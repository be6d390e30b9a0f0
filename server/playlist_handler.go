package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"echofm/core/extractor"
	"echofm/core/playlist"
	"echofm/logger"
	"echofm/model"
)

func trackDataFromInfo(info model.TrackInfo) playlist.TrackData {
	return playlist.TrackData{
		URL:       info.URL,
		Title:     info.Title,
		Artist:    info.Artist,
		Duration:  info.Duration,
		Platform:  info.Platform,
		Thumbnail: info.Thumbnail,
	}
}

// GetPlaylistHandler returns the full queue with stats and the current track.
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"tracks":        h.playlist.Tracks(),
		"stats":         h.playlist.Stats(),
		"current_track": h.playlist.GetCurrentTrack(),
	})
}

// AddToPlaylistHandler extracts metadata for a URL and queues it. Multi-entry
// sources queue every entry.
func (h *APIHandler) AddToPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL      string `json:"url"`
		Position *int   `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := h.extractor.ExtractInfo(r.Context(), req.URL)
	if err != nil {
		logger.Error("metadata extraction failed",
			logger.String("url", req.URL),
			logger.ErrorField(err))
		status := http.StatusBadGateway
		if !errors.Is(err, extractor.ErrUpstream) {
			status = http.StatusBadRequest
		}
		respondError(w, status, "could not extract source information")
		return
	}

	position := -1
	if req.Position != nil {
		position = *req.Position
	}

	if result.List != nil {
		items := make([]playlist.TrackData, 0, len(result.List.Entries))
		for _, entry := range result.List.Entries {
			items = append(items, trackDataFromInfo(entry))
		}
		added := h.playlist.AddMultiple(items, position)
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"tracks":  added,
			"playlist_info": map[string]interface{}{
				"title": result.List.Title,
				"count": result.List.Count,
			},
		})
		return
	}

	track := h.playlist.AddTrack(trackDataFromInfo(*result.Track), position)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"track":   track,
	})
}

// RemoveFromPlaylistHandler deletes a track by id.
func (h *APIHandler) RemoveFromPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["track_id"]
	if !h.playlist.RemoveTrack(id) {
		respondError(w, http.StatusNotFound, "track not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// MoveTrackHandler moves a track to a new position.
func (h *APIHandler) MoveTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackID  string `json:"track_id"`
		Position *int   `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackID == "" || req.Position == nil {
		respondError(w, http.StatusBadRequest, "track_id and position are required")
		return
	}

	if !h.playlist.MoveTrack(req.TrackID, *req.Position) {
		respondError(w, http.StatusBadRequest, "could not move track")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ClearPlaylistHandler empties the queue.
func (h *APIHandler) ClearPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	h.playlist.Clear()
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ShufflePlaylistHandler regenerates the shuffle permutation.
func (h *APIHandler) ShufflePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	h.playlist.Shuffle()
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// CurrentTrackHandler returns (GET) or sets (POST) the current track.
func (h *APIHandler) CurrentTrackHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"track":   h.playlist.GetCurrentTrack(),
		})
	case http.MethodPost:
		var req struct {
			TrackID string `json:"track_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackID == "" {
			respondError(w, http.StatusBadRequest, "track_id is required")
			return
		}
		if !h.playlist.SetCurrentTrack(req.TrackID) {
			respondError(w, http.StatusNotFound, "track not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"track":   h.playlist.GetCurrentTrack(),
		})
	}
}

// NextTrackHandler advances the cursor. A nil track means the end of the
// queue, which is not an error.
func (h *APIHandler) NextTrackHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"track":   h.playlist.NextTrack(),
	})
}

// PreviousTrackHandler retreats the cursor.
func (h *APIHandler) PreviousTrackHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"track":   h.playlist.PreviousTrack(),
	})
}

// SetModeHandler switches the playback mode.
func (h *APIHandler) SetModeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mode == "" {
		respondError(w, http.StatusBadRequest, "mode is required")
		return
	}

	mode := model.ParsePlaybackMode(req.Mode)
	h.playlist.SetMode(mode)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"mode":    mode,
	})
}

// ExportPlaylistHandler writes the queue as an M3U document and serves it.
func (h *APIHandler) ExportPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.cfg.DataDir, "playlist.m3u")
	if err := h.playlist.ExportM3U(path); err != nil {
		logger.Error("m3u export failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	w.Header().Set("Content-Disposition", `attachment; filename="playlist.m3u"`)
	http.ServeFile(w, r, path)
}
