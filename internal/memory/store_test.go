package memory

import (
	"context"
	"strings"
	"testing"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	cfg.DataDir = t.TempDir()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndContext(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})

	for _, line := range []string{"User: hi", "Agent: hello", "User: add tests"} {
		if err := s.Append(ctx, "Shop", "QA Engineer", line); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := s.Append(ctx, "Shop", "Designer", "User: colors?"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.Context(ctx, "Shop", "QA Engineer")
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if want := "User: hi\nAgent: hello\nUser: add tests"; got != want {
		t.Fatalf("Context = %q, want %q", got, want)
	}

	empty, err := s.Context(ctx, "Other", "QA Engineer")
	if err != nil || empty != "" {
		t.Fatalf("expected empty context, got %q %v", empty, err)
	}

	roles, err := s.Roles(ctx, "Shop")
	if err != nil {
		t.Fatalf("Roles: %v", err)
	}
	if len(roles) != 2 || roles[0] != "Designer" || roles[1] != "QA Engineer" {
		t.Fatalf("Roles = %v", roles)
	}
}

func TestHistoryKeepsNewestInOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{MaxHistory: 2})
	for _, line := range []string{"one", "two", "three"} {
		if err := s.Append(ctx, "p", "r", line); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	entries, err := s.History(ctx, "p", "r", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 || entries[0].Content != "two" || entries[1].Content != "three" {
		t.Fatalf("History = %+v", entries)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Fatalf("CreatedAt not parsed")
	}
}

func TestAppendTruncatesAndValidates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{MaxEntryLength: 10})
	if err := s.Append(ctx, "p", "r", strings.Repeat("é", 20)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := s.History(ctx, "p", "r", 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("History: %v %v", entries, err)
	}
	if got := entries[0].Content; got != strings.Repeat("é", 5)+"..." {
		t.Fatalf("truncated = %q", got)
	}
	if err := s.Append(ctx, "", "r", "x"); err == nil {
		t.Fatalf("expected missing project to fail")
	}
}
