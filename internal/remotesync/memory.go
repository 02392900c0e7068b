package remotesync

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Syncer for offline runs and tests.
type Memory struct {
	Login string
	// FailAuth and FailPaths inject failures.
	FailAuth  error
	FailPaths map[string]error

	mu      sync.Mutex
	files   map[string]map[string][]byte
	uploads int
}

func NewMemory(login string) *Memory {
	return &Memory{Login: login, files: map[string]map[string][]byte{}}
}

func (m *Memory) Authenticate(context.Context) (Identity, error) {
	if m.FailAuth != nil {
		return Identity{}, m.FailAuth
	}
	return Identity{Login: m.Login}, nil
}

func (m *Memory) EnsureRepo(_ context.Context, who Identity, name string) (Repo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		m.files[name] = map[string][]byte{}
	}
	return Repo{Owner: who.Login, Name: name}, nil
}

func (m *Memory) Upsert(_ context.Context, repo Repo, path string, content []byte, _ string) error {
	if err := m.FailPaths[path]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	files, ok := m.files[repo.Name]
	if !ok {
		files = map[string][]byte{}
		m.files[repo.Name] = files
	}
	if old, ok := files[path]; ok && string(old) == string(content) {
		return nil
	}
	files[path] = append([]byte(nil), content...)
	m.uploads++
	return nil
}

// Files lists the paths stored for repo.
func (m *Memory) Files(repo string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p := range m.files[repo] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Uploads counts writes that changed content.
func (m *Memory) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}
