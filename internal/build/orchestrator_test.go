package build

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"agentforge/internal/backup"
	"agentforge/internal/llm"
	"agentforge/internal/remotesync"
	"agentforge/internal/roster"
	"agentforge/internal/search"
	"agentforge/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster(roles ...string) roster.Roster {
	r := roster.Roster{
		ProjectName: "demo",
		Project:     roster.Project{Name: "Demo", TechStack: roster.StringList{"Go"}},
	}
	for _, role := range roles {
		r.Agents = append(r.Agents, roster.Agent{Role: role, Goal: "ship " + role})
	}
	return r
}

type fixture struct {
	llm    *llm.FakeClient
	ws     *workspace.Workspace
	orch   *Orchestrator
	search *countingSearch
	remote *remotesync.Memory
}

type countingSearch struct{ queries []string }

func (c *countingSearch) Search(_ context.Context, q string, _ int) []search.Result {
	c.queries = append(c.queries, q)
	return []search.Result{{Title: "doc", URL: "https://example.com"}}
}

func newFixture(replies ...string) *fixture {
	f := &fixture{
		llm:    llm.NewFakeClient(replies...),
		ws:     workspace.NewMemory(),
		search: &countingSearch{},
		remote: remotesync.NewMemory("octo"),
	}
	f.orch = NewOrchestrator(f.llm, f.search, f.ws, backup.NewStore(f.ws))
	f.orch.Remote = f.remote
	f.orch.Log = log.New(io.Discard, "", 0)
	return f
}

func collect(seq func(func(Event) bool)) []Event {
	var out []Event
	for ev := range seq {
		out = append(out, ev)
	}
	return out
}

func statuses(evs []Event) []Status {
	out := make([]Status, len(evs))
	for i, e := range evs {
		out[i] = e.Status
	}
	return out
}

func countStatus(evs []Event, agent string, st Status) int {
	n := 0
	for _, e := range evs {
		if e.Status == st && e.Agent == agent {
			n++
		}
	}
	return n
}

func TestBuildSearchOnlyForFirstRole(t *testing.T) {
	f := newFixture(
		"Let me check.\nSEARCH: go 1.23 release notes",
		"Go 1.23 adds iterators [Source: https://go.dev]",
		`{"thought":"wrote main","files":{"main.go":"package main\n\nfunc main() {}\n"}}`,
		"```json\n{\"thought\":\"docs\",\"files\":{\"README.md\":\"# Demo\"}}\n```",
	)
	evs := collect(f.orch.Build(context.Background(), testRoster("Backend", "Writer"), Options{}))

	assert.Equal(t, []Status{
		StatusStart,
		StatusThinking, StatusSearch, StatusThought, StatusThought, StatusThought, StatusFile,
		StatusThinking, StatusThought, StatusFile,
		StatusComplete,
	}, statuses(evs))
	assert.Equal(t, 1, countStatus(evs, "Backend", StatusSearch))
	assert.Equal(t, 0, countStatus(evs, "Writer", StatusSearch))
	assert.Equal(t, "go 1.23 release notes", evs[2].Query)
	assert.Equal(t, "Reading and summarizing search results...", evs[3].Message)
	assert.Equal(t, "Learned from search. Generating content...", evs[4].Message)

	last := evs[len(evs)-1]
	assert.Equal(t, StatusComplete, last.Status)
	assert.Equal(t, f.ws.SrcDir("demo"), last.Directory)
	assert.NotEmpty(t, evs[0].RunID)

	b, err := f.ws.ReadFile("demo", "README.md")
	require.NoError(t, err)
	assert.Equal(t, "# Demo", string(b))
	assert.Equal(t, []string{"go 1.23 release notes"}, f.search.queries)
}

func TestBuildOneThoughtOrOneErrorPerRole(t *testing.T) {
	f := newFixture()
	f.llm.Push(
		llm.FakeReply{Text: "this is not json"},
		llm.FakeReply{Err: errors.New("upstream 500")},
		llm.FakeReply{Text: `{"thought":"ok","files":{"a.txt":"x"}}`},
	)
	evs := collect(f.orch.Build(context.Background(), testRoster("A", "B", "C"), Options{}))

	for _, role := range []string{"A", "B", "C"} {
		thoughts := countStatus(evs, role, StatusThought)
		errs := countStatus(evs, role, StatusError)
		assert.True(t, (thoughts == 1 && errs == 0) || (thoughts == 0 && errs == 1), "role %s: thoughts=%d errors=%d", role, thoughts, errs)
	}
	assert.Equal(t, 1, countStatus(evs, "A", StatusError))
	assert.Equal(t, 1, countStatus(evs, "B", StatusError))
	assert.Equal(t, 1, countStatus(evs, "C", StatusFile))
	assert.Equal(t, StatusComplete, evs[len(evs)-1].Status)
}

func TestStreamSinkFailureAborts(t *testing.T) {
	f := newFixture(`{"thought":"t","files":{}}`)
	sent := 0
	sink := SinkFunc(func(ev Event) error {
		sent++
		if ev.Status == StatusThinking {
			return errors.New("client disconnected")
		}
		return nil
	})
	err := f.orch.Stream(context.Background(), testRoster("A", "B"), Options{}, sink)
	require.Error(t, err)
	assert.Equal(t, 2, sent)
	assert.Empty(t, f.llm.Calls(), "no model calls after the sink failed")
}

func TestBuildBreakStopsModelCalls(t *testing.T) {
	f := newFixture("SEARCH: x", "summary", `{"thought":"t","files":{}}`)
	for ev := range f.orch.Build(context.Background(), testRoster("A"), Options{}) {
		if ev.Status == StatusSearch {
			break
		}
	}
	assert.Len(t, f.llm.Calls(), 1)
	assert.Empty(t, f.search.queries)
}

func TestBuildWarnsButWritesInvalidContent(t *testing.T) {
	f := newFixture(`{"thought":"t","files":{"app.js":"function f() { return 1;","../escape.txt":"x","cfg.json":{"port":8080}}}`)
	evs := collect(f.orch.Build(context.Background(), testRoster("FE"), Options{}))

	var warnings []string
	for _, e := range evs {
		if e.Status == StatusWarning {
			warnings = append(warnings, e.Message)
		}
	}
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "Unbalanced Braces")
	assert.Contains(t, warnings[1], "unsafe path")

	b, err := f.ws.ReadFile("demo", "app.js")
	require.NoError(t, err)
	assert.Equal(t, "function f() { return 1;", string(b))

	cfg, err := f.ws.ReadFile("demo", "cfg.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"port":8080}`, string(cfg))

	files, err := f.ws.ListFiles("demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"app.js", "cfg.json"}, files)
}

func TestBuildAppendsMarkdownAndBacksUpOverwrites(t *testing.T) {
	f := newFixture(
		`{"thought":"a","files":{"README.md":"# A","main.go":"package main\n"}}`,
		`{"thought":"b","files":{"README.md":"## B","main.go":"package main\n\n// v2\n"}}`,
	)
	collect(f.orch.Build(context.Background(), testRoster("One", "Two"), Options{}))

	readme, err := f.ws.ReadFile("demo", "README.md")
	require.NoError(t, err)
	assert.Equal(t, "# A\n\n## B", string(readme))

	list, err := f.orch.Backups.List("demo")
	require.NoError(t, err)
	require.Len(t, list, 2)
	paths := []string{list[0].Path, list[1].Path}
	assert.ElementsMatch(t, []string{"README.md", "main.go"}, paths)
}

func TestBuildRemoteSync(t *testing.T) {
	f := newFixture(`{"thought":"t","files":{"a.txt":"1","b.txt":"2"}}`)
	f.remote.FailPaths = map[string]error{"src/b.txt": errors.New("422")}
	evs := collect(f.orch.Build(context.Background(), testRoster("A"), Options{RemoteSync: true}))

	assert.Equal(t, "GitHub Sync Enabled: octo", evs[1].Message)
	var synced []string
	for _, e := range evs {
		if e.Status == StatusGitHub {
			synced = append(synced, e.Path)
		}
	}
	assert.Equal(t, []string{"a.txt"}, synced)
	assert.Equal(t, []string{"src/a.txt"}, f.remote.Files("demo"))
	assert.Equal(t, 2, countStatus(evs, "A", StatusFile))
}

func TestBuildRemoteAuthFailureContinues(t *testing.T) {
	f := newFixture(`{"thought":"t","files":{"a.txt":"1"}}`)
	f.remote.FailAuth = errors.New("bad token")
	evs := collect(f.orch.Build(context.Background(), testRoster("A"), Options{RemoteSync: true}))

	assert.Equal(t, StatusError, evs[1].Status)
	assert.Equal(t, 0, countStatus(evs, "", StatusGitHub))
	assert.Equal(t, StatusComplete, evs[len(evs)-1].Status)
}

func TestBuildPanicBecomesFatal(t *testing.T) {
	f := newFixture()
	f.llm.Respond = func(llm.FakeCall) (string, error) { panic("nil map write") }
	evs := collect(f.orch.Build(context.Background(), testRoster("A", "B"), Options{}))

	last := evs[len(evs)-1]
	assert.Equal(t, StatusFatal, last.Status)
	assert.Equal(t, "nil map write", last.Message)
	for _, e := range evs[:len(evs)-1] {
		assert.False(t, e.Terminal())
	}
}

func TestBuildStreamNDJSON(t *testing.T) {
	f := newFixture(`{"thought":"t","files":{"x.md":"hi"}}`)
	var buf bytes.Buffer
	require.NoError(t, f.orch.Stream(context.Background(), testRoster("A"), Options{RunID: "run-1"}, NewNDJSONSink(&buf)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 5)
	assert.Contains(t, lines[0], `"run_id":"run-1"`)
	assert.Contains(t, lines[3], `"status":"file"`)
	assert.Contains(t, lines[3], `"path":"x.md"`)

	evs, err := ReadNDJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, evs[len(evs)-1].Status)
}
