// Package backup snapshots project files before they are overwritten.
//
// A backup id is "{unix_seconds}_{flattened_path}". Because flattening is
// lossy, each blob gets a sidecar in backups/.meta/<id>.json recording the
// original path; a second backup of the same path within one second gets a "-N"
// suffix instead of replacing the first. Backups are never deleted.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"agentforge/internal/workspace"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// metaDir holds the sidecars. Blob ids start with a timestamp, so no id
// can name it.
const metaDir = ".meta"

var ErrNotFound = errors.New("backup: not found")

// Backup describes one stored snapshot.
type Backup struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

type Store struct {
	fs  billy.Filesystem
	now func() time.Time
}

func NewStore(ws *workspace.Workspace) *Store {
	return &Store{fs: ws.FS(), now: time.Now}
}

// WithClock replaces the time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func dir(project string) string { return path.Join(project, workspace.BackupDir) }

func metaPath(project, id string) string {
	return path.Join(dir(project), metaDir, id+".json")
}

// Backup copies <project>/src/<rel> into the backup area. It returns false
// when there is nothing to back up because the file does not exist yet.
func (s *Store) Backup(project, rel string) (Backup, bool, error) {
	if err := workspace.CheckSlug(project); err != nil {
		return Backup{}, false, err
	}
	clean, err := workspace.CheckRelPath(rel)
	if err != nil {
		return Backup{}, false, err
	}
	data, err := util.ReadFile(s.fs, workspace.SrcPath(project, clean))
	if errors.Is(err, os.ErrNotExist) {
		return Backup{}, false, nil
	}
	if err != nil {
		return Backup{}, false, fmt.Errorf("backup: read source: %w", err)
	}

	if err := s.fs.MkdirAll(path.Join(dir(project), metaDir), 0o755); err != nil {
		return Backup{}, false, fmt.Errorf("backup: mkdir: %w", err)
	}
	created := s.now()
	id, err := s.nextID(project, created.Unix(), workspace.FlattenPath(clean))
	if err != nil {
		return Backup{}, false, err
	}
	b := Backup{ID: id, Project: project, Path: clean, CreatedAt: created.UTC(), Size: int64(len(data))}
	if err := util.WriteFile(s.fs, path.Join(dir(project), id), data, 0o644); err != nil {
		return Backup{}, false, fmt.Errorf("backup: write blob: %w", err)
	}
	meta, err := json.Marshal(b)
	if err != nil {
		return Backup{}, false, err
	}
	if err := util.WriteFile(s.fs, metaPath(project, id), meta, 0o644); err != nil {
		return Backup{}, false, fmt.Errorf("backup: write meta: %w", err)
	}
	return b, true, nil
}

func (s *Store) nextID(project string, unix int64, flat string) (string, error) {
	base := strconv.FormatInt(unix, 10) + "_" + flat
	id := base
	for n := 2; ; n++ {
		_, err := s.fs.Stat(path.Join(dir(project), id))
		if os.IsNotExist(err) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("backup: stat: %w", err)
		}
		id = base + "-" + strconv.Itoa(n)
	}
}

func checkID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: invalid backup id %q", workspace.ErrUnsafePath, id)
	}
	return nil
}

// Restore copies the backup bytes verbatim to <project>/src/<destination>.
func (s *Store) Restore(project, id, destination string) error {
	if err := workspace.CheckSlug(project); err != nil {
		return err
	}
	if err := checkID(id); err != nil {
		return err
	}
	dest, err := workspace.CheckRelPath(destination)
	if err != nil {
		return err
	}
	data, err := util.ReadFile(s.fs, path.Join(dir(project), id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("backup: read: %w", err)
	}
	target := workspace.SrcPath(project, dest)
	if err := s.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		return fmt.Errorf("backup: mkdir: %w", err)
	}
	if err := util.WriteFile(s.fs, target, data, 0o644); err != nil {
		return fmt.Errorf("backup: restore write: %w", err)
	}
	return nil
}

// Get returns the metadata of one backup.
func (s *Store) Get(project, id string) (Backup, error) {
	if err := checkID(id); err != nil {
		return Backup{}, err
	}
	raw, err := util.ReadFile(s.fs, metaPath(project, id))
	if errors.Is(err, os.ErrNotExist) {
		return s.legacy(project, id)
	}
	if err != nil {
		return Backup{}, fmt.Errorf("backup: read meta: %w", err)
	}
	var b Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return Backup{}, fmt.Errorf("backup: decode meta %s: %w", id, err)
	}
	return b, nil
}

// legacy describes a blob without sidecar from its name alone; Path is the
// flattened name since the original cannot be recovered.
func (s *Store) legacy(project, id string) (Backup, error) {
	info, err := s.fs.Stat(path.Join(dir(project), id))
	if err != nil {
		if os.IsNotExist(err) {
			return Backup{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Backup{}, err
	}
	b := Backup{ID: id, Project: project, Size: info.Size(), CreatedAt: info.ModTime().UTC()}
	if ts, flat, ok := strings.Cut(id, "_"); ok {
		if unix, err := strconv.ParseInt(ts, 10, 64); err == nil {
			b.CreatedAt = time.Unix(unix, 0).UTC()
		}
		b.Path = flat
	}
	return b, nil
}

// List returns all backups of a project, newest first.
func (s *Store) List(project string) ([]Backup, error) {
	if err := workspace.CheckSlug(project); err != nil {
		return nil, err
	}
	entries, err := s.fs.ReadDir(dir(project))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: list: %w", err)
	}
	var out []Backup
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := s.Get(project, e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return suffixN(out[i].ID) > suffixN(out[j].ID)
	})
	return out, nil
}

// Latest returns the newest backup of rel.
func (s *Store) Latest(project, rel string) (Backup, error) {
	clean, err := workspace.CheckRelPath(rel)
	if err != nil {
		return Backup{}, err
	}
	all, err := s.List(project)
	if err != nil {
		return Backup{}, err
	}
	for _, b := range all {
		if b.Path == clean {
			return b, nil
		}
	}
	return Backup{}, fmt.Errorf("%w: no backup of %s", ErrNotFound, clean)
}

func suffixN(id string) int {
	i := strings.LastIndex(id, "-")
	if i < 0 {
		return 1
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 1
	}
	return n
}
