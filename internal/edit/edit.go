// Package edit applies single-file edits from users and from AI fixes.
// Unlike the build, an edit that fails validation is rejected and the file
// is left untouched.
package edit

import (
	"context"
	"errors"
	"fmt"
	"log"

	"agentforge/internal/backup"
	"agentforge/internal/utils"
	"agentforge/internal/validate"
	"agentforge/internal/workspace"
)

// ErrUnsafePath is returned before any filesystem access for traversal attempts.
var ErrUnsafePath = workspace.ErrUnsafePath

// ValidationError rejects an edit whose content failed validation.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation Failed: %s", e.Reason)
}

// Result reports an applied edit. BackupID is empty when the file was new.
type Result struct {
	Path     string
	Message  string
	BackupID string
}

type Service struct {
	ws      *workspace.Workspace
	backups *backup.Store
	log     *log.Logger
}

func NewService(ws *workspace.Workspace, backups *backup.Store) *Service {
	return &Service{ws: ws, backups: backups, log: log.Default()}
}

// WithLogger replaces the default logger.
func (s *Service) WithLogger(l *log.Logger) *Service {
	s.log = l
	return s
}

// Apply backs up, cleans, validates and overwrites project/rel. The backup
// is taken before validation so a rejected edit still leaves a snapshot of
// what was on disk.
func (s *Service) Apply(ctx context.Context, project, rel, content string) (Result, error) {
	clean, err := workspace.CheckRelPath(rel)
	if err != nil {
		return Result{}, err
	}
	if err := workspace.CheckSlug(project); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	unlock := s.ws.Lock(project)
	defer unlock()

	bk, hadFile, err := s.backups.Backup(project, clean)
	if err != nil {
		return Result{}, fmt.Errorf("edit: backup %s: %w", clean, err)
	}
	cleaned := utils.CleanFileContent(content)
	if res := validate.Content(cleaned, clean); !res.Valid {
		s.log.Printf("edit: rejected %s/%s: %s", project, clean, res.Reason)
		return Result{}, &ValidationError{Path: clean, Reason: res.Reason}
	}
	if err := s.ws.WriteFile(project, clean, []byte(cleaned)); err != nil {
		return Result{}, fmt.Errorf("edit: write %s: %w", clean, err)
	}

	out := Result{Path: clean, Message: "Successfully updated " + clean}
	if hadFile {
		out.BackupID = bk.ID
		out.Message += fmt.Sprintf(" (Backup saved: %s)", bk.ID)
	}
	s.log.Printf("edit: %s/%s updated", project, clean)
	return out, nil
}

// Restore copies a backup over target. When target is empty the path
// recorded with the backup is used.
func (s *Service) Restore(ctx context.Context, project, backupID, target string) (string, error) {
	if err := workspace.CheckSlug(project); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if target == "" {
		meta, err := s.backups.Get(project, backupID)
		if err != nil {
			return "", err
		}
		target = meta.Path
	}
	clean, err := workspace.CheckRelPath(target)
	if err != nil {
		return "", err
	}

	unlock := s.ws.Lock(project)
	defer unlock()
	if err := s.backups.Restore(project, backupID, clean); err != nil {
		return "", err
	}
	s.log.Printf("edit: restored %s/%s from %s", project, clean, backupID)
	return fmt.Sprintf("Restored %s from %s", clean, backupID), nil
}

// Undo restores the newest backup of rel, reverting the last edit or
// build write of that file.
func (s *Service) Undo(ctx context.Context, project, rel string) (string, error) {
	if err := workspace.CheckSlug(project); err != nil {
		return "", err
	}
	clean, err := workspace.CheckRelPath(rel)
	if err != nil {
		return "", err
	}
	latest, err := s.backups.Latest(project, clean)
	if err != nil {
		return "", err
	}
	return s.Restore(ctx, project, latest.ID, clean)
}

// IsRejected reports whether err is a user-facing rejection (bad path or
// invalid content) rather than an internal failure.
func IsRejected(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrUnsafePath) || errors.Is(err, backup.ErrNotFound)
}
