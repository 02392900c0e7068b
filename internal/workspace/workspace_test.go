package workspace

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRelPath(t *testing.T) {
	good := map[string]string{
		"main.go":       "main.go",
		"src/app/x.ts":  "src/app/x.ts",
		`docs\guide.md`: "docs/guide.md",
		"./a//b.txt":    "a/b.txt",
	}
	for in, want := range good {
		got, err := CheckRelPath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, bad := range []string{"../../etc/passwd", "/etc/passwd", `\windows`, "C:/x", "a/../b", "", ".", "a\x00b"} {
		_, err := CheckRelPath(bad)
		assert.ErrorIs(t, err, ErrUnsafePath, bad)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "Task_Tracker", Slugify("Task Tracker"))
	assert.Equal(t, "CI-CD_Bot", Slugify("CI/CD Bot"))
	assert.NoError(t, CheckSlug(Slugify("../evil")))
	assert.Error(t, CheckSlug("a/b"))
	assert.Error(t, CheckSlug(".hidden"))
}

func TestWriteArtifactAppendsMarkdown(t *testing.T) {
	ws := NewMemory()
	require.NoError(t, ws.EnsureProject("demo"))

	appended, err := ws.WriteArtifact("demo", "README.md", []byte("# One"))
	require.NoError(t, err)
	assert.False(t, appended)
	appended, err = ws.WriteArtifact("demo", "README.md", []byte("## Two"))
	require.NoError(t, err)
	assert.True(t, appended)

	b, err := ws.ReadFile("demo", "README.md")
	require.NoError(t, err)
	assert.Equal(t, "# One\n\n## Two", string(b))

	_, err = ws.WriteArtifact("demo", "cmd/main.go", []byte("a"))
	require.NoError(t, err)
	_, err = ws.WriteArtifact("demo", "cmd/main.go", []byte("b"))
	require.NoError(t, err)
	b, err = ws.ReadFile("demo", "cmd/main.go")
	require.NoError(t, err)
	assert.Equal(t, "b", string(b))
}

func TestListFiles(t *testing.T) {
	ws := NewMemory()
	files, err := ws.ListFiles("empty")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, ws.WriteFile("p", "b/z.txt", []byte("1")))
	require.NoError(t, ws.WriteFile("p", "a.txt", []byte("1")))
	_, err = ws.WriteProjectFile("p", RosterFile, []byte("{}"))
	require.NoError(t, err)

	files, err = ws.ListFiles("p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b/z.txt"}, files)

	_, err = ws.ReadFile("p", "../agents.json")
	assert.True(t, errors.Is(err, ErrUnsafePath))
}

func TestLockerSerializesSameKey(t *testing.T) {
	l := NewLocker()
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("proj")
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.held())
}

func TestLockerIndependentKeys(t *testing.T) {
	l := NewLocker()
	unlockA := l.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := l.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked by a")
	}
	unlockA()
	unlockA()
}
