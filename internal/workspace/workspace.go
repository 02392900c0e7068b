// Package workspace owns the on-disk project tree:
//
//	<root>/<slug>/src/<relative_path>   generated files
//	<root>/<slug>/backups/<backup_id>   snapshots
//	<root>/<slug>/agents.json           roster + descriptor
//
// All access goes through a go-billy filesystem so tests run on memfs.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const (
	SrcDir     = "src"
	BackupDir  = "backups"
	RosterFile = "agents.json"

	filePerm = 0o644
	dirPerm  = 0o755
)

type Workspace struct {
	fs    billy.Filesystem
	root  string
	locks *Locker
}

// New wraps fs; root is only used to report directories to users.
func New(fs billy.Filesystem, root string) *Workspace {
	return &Workspace{fs: fs, root: root, locks: NewLocker()}
}

// NewOS opens a workspace rooted at dir on the local disk, creating it.
func NewOS(dir string) (*Workspace, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("workspace: create root: %w", err)
	}
	return New(osfs.New(dir, osfs.WithBoundOS()), dir), nil
}

// NewMemory returns an in-memory workspace.
func NewMemory() *Workspace {
	return New(memfs.New(), "projects")
}

// FS exposes the underlying filesystem to sibling packages (backups).
func (w *Workspace) FS() billy.Filesystem { return w.fs }

// Lock serializes writers of one project.
func (w *Workspace) Lock(slug string) func() { return w.locks.Lock(slug) }

// SrcDir is the user-facing location of a project's generated files.
func (w *Workspace) SrcDir(slug string) string {
	return filepath.Join(w.root, slug, SrcDir)
}

// EnsureProject creates <slug>/src.
func (w *Workspace) EnsureProject(slug string) error {
	if err := CheckSlug(slug); err != nil {
		return err
	}
	if err := w.fs.MkdirAll(path.Join(slug, SrcDir), dirPerm); err != nil {
		return fmt.Errorf("workspace: mkdir %s: %w", slug, err)
	}
	return nil
}

// SrcPath maps a checked relative path to its filesystem path.
func SrcPath(slug, rel string) string { return path.Join(slug, SrcDir, rel) }

func (w *Workspace) resolve(slug, rel string) (string, string, error) {
	if err := CheckSlug(slug); err != nil {
		return "", "", err
	}
	clean, err := CheckRelPath(rel)
	if err != nil {
		return "", "", err
	}
	return clean, SrcPath(slug, clean), nil
}

// Exists reports whether a project file exists.
func (w *Workspace) Exists(slug, rel string) (bool, error) {
	_, p, err := w.resolve(slug, rel)
	if err != nil {
		return false, err
	}
	return exists(w.fs, p)
}

func (w *Workspace) ReadFile(slug, rel string) ([]byte, error) {
	_, p, err := w.resolve(slug, rel)
	if err != nil {
		return nil, err
	}
	b, err := util.ReadFile(w.fs, p)
	if err != nil {
		return nil, fmt.Errorf("workspace: read %s: %w", p, err)
	}
	return b, nil
}

// WriteFile overwrites a project file, creating parent directories.
func (w *Workspace) WriteFile(slug, rel string, content []byte) error {
	_, p, err := w.resolve(slug, rel)
	if err != nil {
		return err
	}
	return writeFile(w.fs, p, content)
}

// WriteArtifact writes generated content. Markdown files that already exist
// accumulate: the new content is appended after a blank line. It reports
// whether the write appended.
func (w *Workspace) WriteArtifact(slug, rel string, content []byte) (bool, error) {
	clean, p, err := w.resolve(slug, rel)
	if err != nil {
		return false, err
	}
	if strings.EqualFold(path.Ext(clean), ".md") {
		old, err := util.ReadFile(w.fs, p)
		switch {
		case err == nil:
			merged := make([]byte, 0, len(old)+2+len(content))
			merged = append(merged, old...)
			merged = append(merged, "\n\n"...)
			merged = append(merged, content...)
			return true, writeFile(w.fs, p, merged)
		case !errors.Is(err, os.ErrNotExist):
			return false, fmt.Errorf("workspace: read %s: %w", p, err)
		}
	}
	return false, writeFile(w.fs, p, content)
}

// ListFiles returns every file under <slug>/src as sorted relative paths.
func (w *Workspace) ListFiles(slug string) ([]string, error) {
	if err := CheckSlug(slug); err != nil {
		return nil, err
	}
	base := path.Join(slug, SrcDir)
	if ok, err := exists(w.fs, base); err != nil || !ok {
		return nil, err
	}
	var out []string
	err := util.Walk(w.fs, base, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(filepath.ToSlash(p), base+"/")
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workspace: walk %s: %w", base, err)
	}
	sort.Strings(out)
	return out, nil
}

// WriteProjectFile writes a file at the project root (outside src).
func (w *Workspace) WriteProjectFile(slug, name string, content []byte) (string, error) {
	if err := CheckSlug(slug); err != nil {
		return "", err
	}
	if _, err := CheckRelPath(name); err != nil {
		return "", err
	}
	p := path.Join(slug, name)
	if err := writeFile(w.fs, p, content); err != nil {
		return "", err
	}
	return filepath.Join(w.root, slug, name), nil
}

// ReadProjectFile reads a file at the project root.
func (w *Workspace) ReadProjectFile(slug, name string) ([]byte, error) {
	if err := CheckSlug(slug); err != nil {
		return nil, err
	}
	if _, err := CheckRelPath(name); err != nil {
		return nil, err
	}
	return util.ReadFile(w.fs, path.Join(slug, name))
}

func writeFile(fs billy.Filesystem, p string, content []byte) error {
	if dir := path.Dir(p); dir != "." {
		if err := fs.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("workspace: mkdir %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(fs, p, content, filePerm); err != nil {
		return fmt.Errorf("workspace: write %s: %w", p, err)
	}
	return nil
}

func exists(fs billy.Filesystem, p string) (bool, error) {
	_, err := fs.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("workspace: stat %s: %w", p, err)
	}
}
