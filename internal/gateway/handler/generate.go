package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"agentforge/internal/gateway/projectstore"
	"agentforge/internal/roster"
	"agentforge/internal/utils"
	"agentforge/internal/workspace"
)

type generateRequest struct {
	Idea string `json:"idea"`
}

type generateResponse struct {
	roster.Roster
	LocalPath    string `json:"local_path"`
	GitHubStatus string `json:"github_status"`
	RepoURL      string `json:"github_repo_url,omitempty"`
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var in generateRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	idea := strings.TrimSpace(utils.SnippetClean(in.Idea))
	if idea == "" {
		writeError(w, http.StatusBadRequest, "No idea provided")
		return
	}

	res, err := h.Roster.Generate(r.Context(), idea)
	if err != nil {
		h.Log.Printf("generate: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	if h.Projects != nil {
		agents, _ := res.Roster.Document()
		if _, err := h.Projects.Add(r.Context(), projectstore.Record{
			User:        userOf(r),
			ProjectName: res.Slug,
			Idea:        idea,
			Agents:      agents,
		}); err != nil {
			h.Log.Printf("generate: registry: %v", err)
		}
	}

	out := generateResponse{Roster: res.Roster, LocalPath: res.SavePath, GitHubStatus: "skipped"}
	if h.Remote != nil {
		out.GitHubStatus, out.RepoURL = h.syncRoster(r.Context(), res.Slug)
	}
	h.logMentor("Generated agent roster for '" + res.Slug + "'")
	writeJSON(w, http.StatusOK, out)
}

// syncRoster mirrors agents.json to the remote and reports the outcome.
func (h *Handler) syncRoster(ctx context.Context, slug string) (status, repoURL string) {
	who, err := h.Remote.Authenticate(ctx)
	if err != nil {
		h.Log.Printf("generate: remote auth: %v", err)
		return "failed", ""
	}
	repo, err := h.Remote.EnsureRepo(ctx, who, slug)
	if err != nil {
		h.Log.Printf("generate: remote repo: %v", err)
		return "failed", ""
	}
	data, err := h.Workspace.ReadProjectFile(slug, workspace.RosterFile)
	if err != nil {
		h.Log.Printf("generate: read roster: %v", err)
		return "failed", ""
	}
	if err := h.Remote.Upsert(ctx, repo, workspace.RosterFile, data, "Add agent roster"); err != nil {
		h.Log.Printf("generate: upload roster: %v", err)
		return "failed", repo.URL
	}
	return "success", repo.URL
}

type agentsUpdate struct {
	ProjectName string          `json:"project_name"`
	AgentsData  json.RawMessage `json:"agents_data"`
}

// HandleProjectAgents returns the stored roster of a project. The registry
// is authoritative; agents.json in the workspace is the fallback.
func (h *Handler) HandleProjectAgents(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("project_name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "project_name is required")
		return
	}
	if h.Projects != nil {
		rec, err := h.Projects.FindByName(r.Context(), name)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(rec.Agents)
			return
		}
		if !errors.Is(err, projectstore.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	ros, err := roster.Load(h.Workspace, name)
	if err != nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, ros)
}

func (h *Handler) HandleUpdateProjectAgents(w http.ResponseWriter, r *http.Request) {
	var in agentsUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	if h.Projects == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	if _, err := h.Projects.UpdateAgents(r.Context(), in.ProjectName, in.AgentsData); err != nil {
		if errors.Is(err, projectstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logMentor("User updated Agent Personas for '" + in.ProjectName + "'")
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
