package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"echofm/core/stream"
	"echofm/logger"
	"echofm/model"
)

// openTrack resolves a track's audio for serving and persists the cache
// location back onto the track after a fresh download.
func (h *APIHandler) openTrack(w http.ResponseWriter, r *http.Request) (*model.Track, *stream.Source) {
	id := mux.Vars(r)["track_id"]
	track := h.playlist.GetTrack(id)
	if track == nil {
		respondError(w, http.StatusNotFound, "track not found")
		return nil, nil
	}

	src, err := h.gateway.Open(r.Context(), track, h.quality())
	if err != nil {
		logger.Error("audio resolution failed",
			logger.String("trackId", track.ID),
			logger.String("url", track.URL),
			logger.ErrorField(err))
		respondError(w, http.StatusBadGateway, "could not fetch audio for this track")
		return nil, nil
	}

	if src.Meta != nil && track.Filepath != src.Path {
		var meta map[string]interface{}
		if src.Meta != nil {
			meta = src.Meta.AsMap()
		}
		h.playlist.SetTrackMedia(track.ID, src.Path, meta)
	}
	return track, src
}

// StreamAudioHandler streams a track's audio, honoring Range requests.
func (h *APIHandler) StreamAudioHandler(w http.ResponseWriter, r *http.Request) {
	track, src := h.openTrack(w, r)
	if src == nil {
		return
	}
	h.gateway.ServeStream(w, r, src, track.Title)
}

// DownloadAudioHandler sends a track's audio as an attachment.
func (h *APIHandler) DownloadAudioHandler(w http.ResponseWriter, r *http.Request) {
	track, src := h.openTrack(w, r)
	if src == nil {
		return
	}
	h.gateway.ServeDownload(w, r, src, track.Title)
}

// AudioInfoHandler extracts metadata for a URL without touching the cache or
// the playlist.
func (h *APIHandler) AudioInfoHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
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
		respondError(w, http.StatusBadGateway, "could not extract source information")
		return
	}

	if result.List != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"info": map[string]interface{}{
				"type":    "playlist",
				"title":   result.List.Title,
				"entries": result.List.Entries,
				"count":   result.List.Count,
			},
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"info":    result.Track,
	})
}
