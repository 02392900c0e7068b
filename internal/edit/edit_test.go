package edit

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"agentforge/internal/backup"
	"agentforge/internal/workspace"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFS records mutating calls on top of memfs.
type countingFS struct {
	billy.Filesystem
	writes int
}

func (c *countingFS) Create(name string) (billy.File, error) {
	c.writes++
	return c.Filesystem.Create(name)
}

func (c *countingFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_APPEND|os.O_TRUNC) != 0 {
		c.writes++
	}
	return c.Filesystem.OpenFile(name, flag, perm)
}

func (c *countingFS) MkdirAll(name string, perm os.FileMode) error {
	c.writes++
	return c.Filesystem.MkdirAll(name, perm)
}

func (c *countingFS) Rename(from, to string) error {
	c.writes++
	return c.Filesystem.Rename(from, to)
}

func (c *countingFS) Remove(name string) error {
	c.writes++
	return c.Filesystem.Remove(name)
}

func newService(t *testing.T) (*Service, *workspace.Workspace) {
	t.Helper()
	ws := workspace.NewMemory()
	clock := time.Unix(1700000000, 0)
	store := backup.NewStore(ws).WithClock(func() time.Time { return clock })
	return NewService(ws, store).WithLogger(log.New(io.Discard, "", 0)), ws
}

func TestTraversalGuardPerformsNoWrites(t *testing.T) {
	fs := &countingFS{Filesystem: memfs.New()}
	ws := workspace.New(fs, "projects")
	svc := NewService(ws, backup.NewStore(ws)).WithLogger(log.New(io.Discard, "", 0))

	for _, p := range []string{"../../etc/passwd", "/etc/passwd", `..\..\boot.ini`} {
		_, err := svc.Apply(context.Background(), "demo", p, "x")
		assert.ErrorIs(t, err, ErrUnsafePath, p)
		assert.True(t, IsRejected(err))
	}
	assert.Equal(t, 0, fs.writes)
}

func TestApplyTwiceMakesTwoBackups(t *testing.T) {
	svc, ws := newService(t)
	ctx := context.Background()
	require.NoError(t, ws.WriteFile("demo", "app.js", []byte("let a = {};")))

	first, err := svc.Apply(ctx, "demo", "app.js", "let b = {};")
	require.NoError(t, err)
	second, err := svc.Apply(ctx, "demo", "app.js", "let b = {};")
	require.NoError(t, err)

	assert.NotEmpty(t, first.BackupID)
	assert.NotEmpty(t, second.BackupID)
	assert.NotEqual(t, first.BackupID, second.BackupID)
	assert.Contains(t, second.Message, "Backup saved: "+second.BackupID)

	content, err := ws.ReadFile("demo", "app.js")
	require.NoError(t, err)
	assert.Equal(t, "let b = {};", string(content))

	// the second backup captured the first write
	require.NoError(t, svc.backups.Restore("demo", second.BackupID, "check.js"))
	snap, err := ws.ReadFile("demo", "check.js")
	require.NoError(t, err)
	assert.Equal(t, "let b = {};", string(snap))
}

func TestApplyRejectsInvalidContent(t *testing.T) {
	svc, ws := newService(t)
	require.NoError(t, ws.WriteFile("demo", "cfg.json", []byte(`{"ok":true}`)))

	_, err := svc.Apply(context.Background(), "demo", "cfg.json", `{"ok":`)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Error(), "Validation Failed")

	content, err := ws.ReadFile("demo", "cfg.json")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(content))
}

func TestApplyNewFileCleansFences(t *testing.T) {
	svc, ws := newService(t)
	res, err := svc.Apply(context.Background(), "demo", "src/main.go", "```go\npackage main\n```")
	require.NoError(t, err)
	assert.Empty(t, res.BackupID)
	assert.Equal(t, "Successfully updated src/main.go", res.Message)

	content, err := ws.ReadFile("demo", "src/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(content))
}

func TestRestoreUsesRecordedPath(t *testing.T) {
	svc, ws := newService(t)
	ctx := context.Background()
	require.NoError(t, ws.WriteFile("demo", "docs/my_notes.md", []byte("v1")))
	res, err := svc.Apply(ctx, "demo", "docs/my_notes.md", "v2")
	require.NoError(t, err)

	msg, err := svc.Restore(ctx, "demo", res.BackupID, "")
	require.NoError(t, err)
	assert.Contains(t, msg, "docs/my_notes.md")
	content, err := ws.ReadFile("demo", "docs/my_notes.md")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(content))

	_, err = svc.Restore(ctx, "demo", "nope", "a.txt")
	assert.True(t, IsRejected(err))
}

func TestUndoRestoresLatestBackup(t *testing.T) {
	svc, ws := newService(t)
	ctx := context.Background()
	require.NoError(t, ws.WriteFile("demo", "app.js", []byte("let a = 1;")))
	_, err := svc.Apply(ctx, "demo", "app.js", "let a = 2;")
	require.NoError(t, err)
	_, err = svc.Apply(ctx, "demo", "app.js", "let a = 3;")
	require.NoError(t, err)

	msg, err := svc.Undo(ctx, "demo", "app.js")
	require.NoError(t, err)
	assert.Contains(t, msg, "Restored app.js")
	content, err := ws.ReadFile("demo", "app.js")
	require.NoError(t, err)
	assert.Equal(t, "let a = 2;", string(content))

	_, err = svc.Undo(ctx, "demo", "other.js")
	assert.True(t, errors.Is(err, backup.ErrNotFound))
	assert.True(t, IsRejected(err))

	_, err = svc.Undo(ctx, "demo", "../escape.js")
	assert.True(t, IsRejected(err))
}
