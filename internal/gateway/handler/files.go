package handler

import (
	"errors"
	"net/http"
	"strings"

	"agentforge/internal/edit"
)

type saveRequest struct {
	ProjectName string `json:"project_name"`
	FilePath    string `json:"file_path"`
	Content     string `json:"content"`
}

// HandleSave applies a manual edit. Invalid content is rejected with 400
// and the file keeps its previous content.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var in saveRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.ProjectName == "" || in.FilePath == "" || in.Content == "" {
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	}
	res, err := h.Edits.Apply(r.Context(), in.ProjectName, in.FilePath, in.Content)
	if err != nil {
		h.logMentor("User failed to save " + in.FilePath + ": " + err.Error())
		msg := err.Error()
		if errors.Is(err, edit.ErrUnsafePath) {
			msg = "Invalid file path (security restricted)."
		}
		writeError(w, statusFor(err), msg)
		return
	}
	h.logMentor("User manually saved file: " + in.FilePath)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"message":   res.Message,
		"backup_id": res.BackupID,
	})
}

type revertRequest struct {
	ProjectName string `json:"project_name"`
	// BackupName empty means undo: the newest backup of TargetFile.
	BackupName string `json:"backup_name"`
	// TargetFile defaults to the path recorded with the backup.
	TargetFile string `json:"target_file"`
}

func (h *Handler) HandleRevert(w http.ResponseWriter, r *http.Request) {
	var in revertRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.ProjectName == "" || (in.BackupName == "" && in.TargetFile == "") {
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	}
	var (
		msg string
		err error
	)
	if in.BackupName == "" {
		msg, err = h.Edits.Undo(r.Context(), in.ProjectName, in.TargetFile)
	} else {
		msg, err = h.Edits.Restore(r.Context(), in.ProjectName, in.BackupName, in.TargetFile)
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	h.logMentor("User reverted " + firstNonEmpty(in.BackupName, in.TargetFile))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": msg})
}

func (h *Handler) HandleBackups(w http.ResponseWriter, r *http.Request) {
	project := strings.TrimSpace(r.URL.Query().Get("project_name"))
	if project == "" {
		writeError(w, http.StatusBadRequest, "project_name is required")
		return
	}
	list, err := h.Backups.List(project)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if path := strings.TrimSpace(r.URL.Query().Get("path")); path != "" {
		filtered := list[:0]
		for _, b := range list {
			if b.Path == path {
				filtered = append(filtered, b)
			}
		}
		list = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"project_name": project, "backups": list})
}

// HandleFiles lists a project's generated files.
func (h *Handler) HandleFiles(w http.ResponseWriter, r *http.Request) {
	project := strings.TrimSpace(r.URL.Query().Get("project_name"))
	if project == "" {
		writeError(w, http.StatusBadRequest, "project_name is required")
		return
	}
	files, err := h.Workspace.ListFiles(project)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project_name": project, "files": files})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
