package handler

import (
	"net/http"

	"agentforge/internal/chat"
)

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var in chat.Request
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.Chat.Chat(r.Context(), in)
	if err != nil {
		h.Log.Printf("chat: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type debugRequest struct {
	ProjectName string `json:"project_name"`
	ErrorLog    string `json:"error_log"`
}

func (h *Handler) HandleDebug(w http.ResponseWriter, r *http.Request) {
	var in debugRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.ProjectName == "" || in.ErrorLog == "" {
		writeError(w, http.StatusBadRequest, "Missing info")
		return
	}
	res, err := h.Debugger.Debug(r.Context(), in.ProjectName, in.ErrorLog)
	if err != nil {
		h.Log.Printf("debug: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	h.logMentor("Auto-debug " + res.Status + " for '" + in.ProjectName + "'")
	writeJSON(w, http.StatusOK, res)
}
