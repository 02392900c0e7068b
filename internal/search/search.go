// Package search provides the web search collaborator used by the build
// tool loop. Providers never return errors directly: a failure comes back
// as a single error-shaped Result so callers can feed it to the model as-is.
package search

import (
	"context"
	"fmt"
	"strings"
)

// DefaultMaxResults caps results per query.
const DefaultMaxResults = 5

type Result struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Provider interface {
	Search(ctx context.Context, query string, max int) []Result
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, query string, max int) []Result

func (f ProviderFunc) Search(ctx context.Context, query string, max int) []Result {
	return f(ctx, query, max)
}

// Failure wraps err as the error-shaped result slot.
func Failure(err error) []Result {
	return []Result{{Error: fmt.Sprintf("Search failed: %v", err)}}
}

// Failed reports whether results carry an error payload and returns it.
func Failed(results []Result) (string, bool) {
	for _, r := range results {
		if strings.TrimSpace(r.Error) != "" {
			return r.Error, true
		}
	}
	return "", false
}

func clampMax(max int) int {
	if max <= 0 || max > 20 {
		return DefaultMaxResults
	}
	return max
}
