package backup

import (
	"testing"
	"time"

	"agentforge/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts ...int64) func() time.Time {
	i := 0
	return func() time.Time {
		t := time.Unix(ts[i], 0)
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func TestBackupMissingSourceIsNoop(t *testing.T) {
	ws := workspace.NewMemory()
	s := NewStore(ws)
	_, ok, err := s.Backup("demo", "main.go")
	require.NoError(t, err)
	assert.False(t, ok)
	list, err := s.List("demo")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBackupIDFormatAndRestore(t *testing.T) {
	ws := workspace.NewMemory()
	s := NewStore(ws).WithClock(fixedClock(1700000000))
	require.NoError(t, ws.WriteFile("demo", "src/app/main.go", []byte("v1")))

	b, ok, err := s.Backup("demo", "src/app/main.go")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1700000000_src_app_main.go", b.ID)
	assert.Equal(t, "src/app/main.go", b.Path)
	assert.Equal(t, int64(2), b.Size)

	require.NoError(t, ws.WriteFile("demo", "src/app/main.go", []byte("v2")))
	require.NoError(t, s.Restore("demo", b.ID, "src/app/main.go"))
	got, err := ws.ReadFile("demo", "src/app/main.go")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
}

func TestSameSecondBackupsDoNotCollide(t *testing.T) {
	ws := workspace.NewMemory()
	s := NewStore(ws).WithClock(fixedClock(100))
	require.NoError(t, ws.WriteFile("p", "a_b.txt", []byte("one")))
	first, _, err := s.Backup("p", "a_b.txt")
	require.NoError(t, err)
	require.NoError(t, ws.WriteFile("p", "a_b.txt", []byte("two")))
	second, _, err := s.Backup("p", "a_b.txt")
	require.NoError(t, err)

	assert.Equal(t, "100_a_b.txt", first.ID)
	assert.Equal(t, "100_a_b.txt-2", second.ID)

	// path with underscores is still recovered from metadata
	latest, err := s.Latest("p", "a_b.txt")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "a_b.txt", latest.Path)

	list, err := s.List("p")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestListNewestFirst(t *testing.T) {
	ws := workspace.NewMemory()
	s := NewStore(ws).WithClock(fixedClock(10, 20))
	require.NoError(t, ws.WriteFile("p", "x.md", []byte("a")))
	_, _, err := s.Backup("p", "x.md")
	require.NoError(t, err)
	_, _, err = s.Backup("p", "x.md")
	require.NoError(t, err)

	list, err := s.List("p")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "20_x.md", list[0].ID)
	assert.Equal(t, "10_x.md", list[1].ID)
}

func TestRestoreErrors(t *testing.T) {
	ws := workspace.NewMemory()
	s := NewStore(ws)
	assert.ErrorIs(t, s.Restore("p", "123_missing", "missing"), ErrNotFound)
	assert.ErrorIs(t, s.Restore("p", "../x", "a"), workspace.ErrUnsafePath)
	assert.ErrorIs(t, s.Restore("p", "1_a", "../../etc/passwd"), workspace.ErrUnsafePath)
}

func TestLegacyBlobWithoutSidecar(t *testing.T) {
	ws := workspace.NewMemory()
	require.NoError(t, ws.FS().MkdirAll("p/backups", 0o755))
	f, err := ws.FS().Create("p/backups/1600000000_docs_readme.md")
	require.NoError(t, err)
	_, _ = f.Write([]byte("old"))
	require.NoError(t, f.Close())

	list, err := NewStore(ws).List("p")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "docs_readme.md", list[0].Path)
	assert.Equal(t, int64(1600000000), list[0].CreatedAt.Unix())
}

func TestBackupOfMetaJSONNamedFileRoundTrips(t *testing.T) {
	ws := workspace.NewMemory()
	s := NewStore(ws).WithClock(fixedClock(42))
	require.NoError(t, ws.WriteFile("demo", "config.meta.json", []byte(`{"v":1}`)))

	b, ok, err := s.Backup("demo", "config.meta.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42_config.meta.json", b.ID)

	list, err := s.List("demo")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, "config.meta.json", list[0].Path)

	require.NoError(t, ws.WriteFile("demo", "config.meta.json", []byte(`{"v":2}`)))
	require.NoError(t, s.Restore("demo", b.ID, "config.meta.json"))
	got, err := ws.ReadFile("demo", "config.meta.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(got))
}

func TestSidecarDirIsNotABackupID(t *testing.T) {
	s := NewStore(workspace.NewMemory())
	_, err := s.Get("demo", ".meta")
	assert.ErrorIs(t, err, workspace.ErrUnsafePath)
}
