package handler

import (
	"net/http"
	"strings"
)

type mentorLogRequest struct {
	Event string `json:"event"`
}

func (h *Handler) HandleMentorLog(w http.ResponseWriter, r *http.Request) {
	var in mentorLogRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	h.logMentor(in.Event)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged"})
}

type tipResponse struct {
	Tip *string `json:"tip"`
}

// HandleMentorTip answers {"tip": null} when there is nothing to say.
func (h *Handler) HandleMentorTip(w http.ResponseWriter, r *http.Request) {
	if h.Mentor == nil {
		writeJSON(w, http.StatusOK, tipResponse{})
		return
	}
	project := strings.TrimSpace(r.URL.Query().Get("project_name"))
	if project == "" {
		project = "Unknown Project"
	}
	tip, err := h.Mentor.Tip(r.Context(), project)
	if err != nil || tip == "" {
		writeJSON(w, http.StatusOK, tipResponse{})
		return
	}
	writeJSON(w, http.StatusOK, tipResponse{Tip: &tip})
}

type searchSettingsRequest struct {
	Key string `json:"key"`
}

// HandleSearchSettings replaces the search API key for this instance.
func (h *Handler) HandleSearchSettings(w http.ResponseWriter, r *http.Request) {
	var in searchSettingsRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	key := strings.TrimSpace(in.Key)
	if key == "" {
		writeError(w, http.StatusBadRequest, "No key")
		return
	}
	h.Settings.SetSearchKey("", key)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
