package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerperClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "k1", r.Header.Get("X-API-KEY"))
		var body serperRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "go generics", body.Q)
		assert.Equal(t, 2, body.Num)
		_, _ = w.Write([]byte(`{"organic":[
			{"title":"A","link":"https://a.dev","snippet":"sa"},
			{"title":"B","link":"https://b.dev","snippet":"sb"},
			{"title":"C","link":"https://c.dev","snippet":"sc"}]}`))
	}))
	defer srv.Close()

	res, err := NewSerperClient("k1").WithEndpoint(srv.URL).Search(context.Background(), "go generics", 2)
	require.NoError(t, err)
	assert.Equal(t, []Result{
		{Title: "A", URL: "https://a.dev", Snippet: "sa"},
		{Title: "B", URL: "https://b.dev", Snippet: "sb"},
	}, res)
}

const ddgPage = `<table>
<tr><td valign="top">1.&nbsp;</td><td><a rel="nofollow" href="https://go.dev/doc" class='result-link'>Go &amp; Docs</a></td></tr>
<tr><td>&nbsp;</td><td class='result-snippet'>The <b>Go</b> documentation.</td></tr>
<tr><td valign="top">2.&nbsp;</td><td><a rel="nofollow" href="https://pkg.go.dev" class='result-link'>Packages</a></td></tr>
<tr><td>&nbsp;</td><td class='result-snippet'>Package index.</td></tr>
</table>`

func TestParseDDGLite(t *testing.T) {
	res, err := parseDDGLite(strings.NewReader(ddgPage), 5)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, Result{Title: "Go & Docs", URL: "https://go.dev/doc", Snippet: "The Go documentation."}, res[0])
	assert.Equal(t, Result{Title: "Packages", URL: "https://pkg.go.dev", Snippet: "Package index."}, res[1])

	res, err = parseDDGLite(strings.NewReader(ddgPage), 1)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

// A result without its own snippet row must not take the next one's.
func TestParseDDGLitePairsSnippetsWithTheirLink(t *testing.T) {
	page := `<table>
<tr><td><a href="https://a.dev" class="result-link">A</a></td></tr>
<tr><td><a href="https://b.dev" class="result-link other">B</a></td></tr>
<tr><td class="result-snippet">About B.</td></tr>
<tr><td><a href="/relative" class="result-link">skip</a></td></tr>
<tr><td class="result-snippet">orphan</td></tr>
</table>`
	res, err := parseDDGLite(strings.NewReader(page), 5)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Source: A (https://a.dev)", res[0].Snippet)
	assert.Equal(t, "About B.", res[1].Snippet)
}

func TestWebFallsBackWithoutKey(t *testing.T) {
	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "chi router", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer ddg.Close()

	web := NewWeb(func() string { return "" })
	web.Fallback = NewDDGLite().WithEndpoint(ddg.URL)
	res := web.Search(context.Background(), "chi router", 5)
	_, failed := Failed(res)
	assert.False(t, failed)
	assert.Len(t, res, 2)
}

func TestWebReportsFailureAsResult(t *testing.T) {
	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ddg.Close()

	web := NewWeb(nil)
	web.Fallback = NewDDGLite().WithEndpoint(ddg.URL)
	res := web.Search(context.Background(), "x", 5)
	msg, failed := Failed(res)
	assert.True(t, failed)
	assert.Contains(t, msg, "Search failed")
}

func TestCachedSkipsErrorsAndDedupes(t *testing.T) {
	var calls atomic.Int32
	fail := true
	var mu sync.Mutex
	inner := ProviderFunc(func(ctx context.Context, q string, max int) []Result {
		calls.Add(1)
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return Failure(fmt.Errorf("down"))
		}
		time.Sleep(10 * time.Millisecond)
		return []Result{{Title: "hit"}}
	})
	c := NewCached(inner, 8, time.Minute)

	_, failed := Failed(c.Search(context.Background(), "q", 5))
	assert.True(t, failed)
	assert.Equal(t, 0, c.Len())

	mu.Lock()
	fail = false
	mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.Search(context.Background(), "Q ", 5)
			assert.Equal(t, "hit", res[0].Title)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
	assert.LessOrEqual(t, calls.Load(), int32(6))

	before := calls.Load()
	c.Search(context.Background(), "q", 5)
	assert.Equal(t, before, calls.Load())
}
