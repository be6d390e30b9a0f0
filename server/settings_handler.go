package server

import (
	"encoding/json"
	"net/http"

	"echofm/logger"
)

// SettingsHandler returns (GET) or patches (POST) the runtime settings.
func (h *APIHandler) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"settings": h.settings.Get(),
		})
	case http.MethodPost:
		var patch map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil || len(patch) == 0 {
			respondError(w, http.StatusBadRequest, "settings payload required")
			return
		}

		updated, err := h.settings.Update(patch)
		if err != nil {
			logger.Error("failed to update settings", logger.ErrorField(err))
			respondError(w, http.StatusBadRequest, "could not apply settings")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"settings": updated,
		})
	}
}
