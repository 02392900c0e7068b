// Package handler exposes the forge over HTTP: roster generation, build
// streams, manual edits, agent chat and the mentor.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"agentforge/internal/backup"
	"agentforge/internal/build"
	"agentforge/internal/chat"
	"agentforge/internal/edit"
	"agentforge/internal/gateway/projectstore"
	"agentforge/internal/mentor"
	"agentforge/internal/remotesync"
	"agentforge/internal/roster"
	"agentforge/internal/settings"
	"agentforge/internal/workspace"
)

// Deps are the services behind the routes. Remote and Mentor may be nil.
type Deps struct {
	Workspace *workspace.Workspace
	Roster    *roster.Generator
	Builder   *build.Orchestrator
	Edits     *edit.Service
	Backups   *backup.Store
	Projects  *projectstore.Store
	Chat      *chat.Agent
	Debugger  *chat.Debugger
	Mentor    *mentor.Mentor
	Settings  *settings.Store
	Remote    remotesync.Syncer
	Log       *log.Logger
}

type Handler struct {
	Deps
}

func New(deps Deps) *Handler {
	if deps.Log == nil {
		deps.Log = log.Default()
	}
	return &Handler{Deps: deps}
}

const maxBodyBytes = 8 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

// userOf identifies the caller. There is no login here, so the optional
// X-User header stands in for it.
func userOf(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get("X-User")); u != "" {
		return u
	}
	return "anonymous"
}

func (h *Handler) logMentor(event string) {
	if h.Mentor != nil {
		h.Mentor.Log(event)
	}
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	var ve *edit.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, workspace.ErrUnsafePath),
		errors.Is(err, chat.ErrBadRequest), errors.Is(err, roster.ErrEmptyIdea):
		return http.StatusBadRequest
	case errors.Is(err, backup.ErrNotFound), errors.Is(err, projectstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, roster.ErrGeneration):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
