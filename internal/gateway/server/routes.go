package server

import (
	"net/http"

	"agentforge/internal/gateway/handler"
	"agentforge/internal/gateway/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *handler.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/generate", h.HandleGenerate)
	r.Post("/build", h.HandleBuild)
	r.Get("/ws/build", h.HandleBuildWS)
	r.Post("/chat", h.HandleChat)
	r.Post("/settings/search", h.HandleSearchSettings)

	r.Route("/api", func(r chi.Router) {
		r.Post("/save", h.HandleSave)
		r.Post("/revert", h.HandleRevert)
		r.Get("/backups", h.HandleBackups)
		r.Get("/files", h.HandleFiles)
		r.Post("/debug", h.HandleDebug)

		r.Get("/project/agents", h.HandleProjectAgents)
		r.Post("/project/agents", h.HandleUpdateProjectAgents)

		r.Post("/mentor/log", h.HandleMentorLog)
		r.Get("/mentor/tip", h.HandleMentorTip)
	})
	return r
}
