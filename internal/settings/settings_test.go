package settings

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchKeyScopedPerUser(t *testing.T) {
	s := New("default-key")
	s.SetSearchKey("alice", "alice-key")

	assert.Equal(t, "alice-key", s.SearchKey("alice"))
	assert.Equal(t, "default-key", s.SearchKey("bob"))
	assert.Equal(t, "default-key", s.SearchKey(""))

	s.SetSearchKey("alice", "")
	assert.Equal(t, "default-key", s.SearchKey("alice"))

	s.SetSearchKey("", "new-default")
	assert.Equal(t, "new-default", s.SearchKeyFunc("carol")())
}

func TestSearchKeyConcurrentAccess(t *testing.T) {
	s := New("")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.SetSearchKey("u", "k") }()
		go func() { defer wg.Done(); _ = s.SearchKey("u") }()
	}
	wg.Wait()
	assert.Equal(t, "k", s.SearchKey("u"))
}
