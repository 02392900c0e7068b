package search

import (
	"context"
	"log"
	"strings"
)

// Web picks Serper when a key is available and falls back to DuckDuckGo
// Lite otherwise or when Serper fails.
type Web struct {
	// Key is read per call so runtime settings changes apply immediately.
	Key      func() string
	Fallback *DDGLite
	// NewSerper builds the keyed client; replaced in tests.
	NewSerper func(key string) *SerperClient
	Log       *log.Logger
}

func NewWeb(key func() string) *Web {
	return &Web{Key: key, Fallback: NewDDGLite(), NewSerper: NewSerperClient}
}

func (w *Web) Search(ctx context.Context, query string, max int) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Failure(errEmptyQuery)
	}
	logger := w.Log
	if logger == nil {
		logger = log.Default()
	}
	if w.Key != nil {
		if key := strings.TrimSpace(w.Key()); key != "" && w.NewSerper != nil {
			res, err := w.NewSerper(key).Search(ctx, query, max)
			if err == nil {
				return res
			}
			logger.Printf("search: serper failed, falling back: %v", err)
		}
	}
	if w.Fallback == nil {
		return Failure(errNoProvider)
	}
	res, err := w.Fallback.Search(ctx, query, max)
	if err != nil {
		return Failure(err)
	}
	return res
}
