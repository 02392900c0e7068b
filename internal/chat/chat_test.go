package chat

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"agentforge/internal/backup"
	"agentforge/internal/edit"
	"agentforge/internal/llm"
	"agentforge/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (f *fakeHistory) Context(_ context.Context, project, role string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.lines[project+"/"+role], "\n"), nil
}

func (f *fakeHistory) Append(_ context.Context, project, role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lines == nil {
		f.lines = map[string][]string{}
	}
	f.lines[project+"/"+role] = append(f.lines[project+"/"+role], content)
	return nil
}

func newAgent(t *testing.T, replies ...string) (*Agent, *llm.FakeClient, *workspace.Workspace, *fakeHistory) {
	t.Helper()
	ws := workspace.NewMemory()
	quiet := log.New(io.Discard, "", 0)
	edits := edit.NewService(ws, backup.NewStore(ws)).WithLogger(quiet)
	fake := llm.NewFakeClient(replies...)
	hist := &fakeHistory{}
	a := NewAgent(fake, edits, ws, hist)
	a.Log = quiet
	return a, fake, ws, hist
}

func TestChatPlainReplySavesMemory(t *testing.T) {
	a, fake, ws, hist := newAgent(t, "Use table-driven tests.")
	require.NoError(t, ws.WriteFile("shop", "main.go", []byte("package main\n")))
	require.NoError(t, hist.Append(context.Background(), "shop", "QA", "User: earlier"))

	out, err := a.Chat(context.Background(), Request{Project: "shop", Role: "QA", Message: "How should I test?"})
	require.NoError(t, err)
	assert.Equal(t, "Use table-driven tests.", out.Reply)
	assert.Equal(t, HealDone, out.State)
	assert.Empty(t, out.EditStatus)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "chat:QA", calls[0].Phase)
	msgs := calls[0].Messages
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0].Text, "You are the QA for the project 'shop'")
	assert.Contains(t, msgs[0].Text, "- main.go")
	assert.Equal(t, "Context/History:\nUser: earlier", msgs[1].Text)

	ctxt, _ := hist.Context(context.Background(), "shop", "QA")
	assert.Equal(t, "User: earlier\nUser: How should I test?\nAgent: Use table-driven tests.", ctxt)
}

func TestChatAppliesEdit(t *testing.T) {
	a, _, ws, _ := newAgent(t, `Sure. {"action": "edit", "file": "cfg.json", "content": "{\"debug\": true}"}`)
	out, err := a.Chat(context.Background(), Request{Project: "shop", Role: "Dev", Message: "enable debug"})
	require.NoError(t, err)
	assert.Equal(t, HealDone, out.State)
	assert.Contains(t, out.Reply, "[SYSTEM]: Successfully updated cfg.json")

	b, err := ws.ReadFile("shop", "cfg.json")
	require.NoError(t, err)
	assert.Equal(t, `{"debug": true}`, string(b))
}

func TestChatRetriesRejectedEditOnce(t *testing.T) {
	a, fake, ws, _ := newAgent(t,
		`{"action": "edit", "file": "cfg.json", "content": "{\"debug\": "}`,
		`{"action": "edit", "file": "cfg.json", "content": "{\"debug\": false}"}`,
	)
	out, err := a.Chat(context.Background(), Request{Project: "shop", Role: "Dev", Message: "fix"})
	require.NoError(t, err)
	assert.Equal(t, HealDone, out.State)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	retry := calls[1].Messages
	feedback := retry[len(retry)-1]
	assert.Contains(t, feedback.Text, "Your edit to cfg.json failed validation with error: Validation Failed")

	b, err := ws.ReadFile("shop", "cfg.json")
	require.NoError(t, err)
	assert.Equal(t, `{"debug": false}`, string(b))
}

func TestChatGivesUpAfterRetry(t *testing.T) {
	bad := `{"action": "edit", "file": "cfg.json", "content": "{"}`
	a, fake, ws, _ := newAgent(t, bad, bad, "unused")
	out, err := a.Chat(context.Background(), Request{Project: "shop", Role: "Dev", Message: "fix"})
	require.NoError(t, err)
	assert.Equal(t, HealFailed, out.State)
	assert.Contains(t, out.Reply, "[SYSTEM]: Edit Failed after retries: Validation Failed")
	assert.Len(t, fake.Calls(), 2)

	ok, err := ws.Exists("shop", "cfg.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChatImageAndValidation(t *testing.T) {
	a, fake, _, _ := newAgent(t, "Looks like a login page.")
	_, err := a.Chat(context.Background(), Request{Project: "shop", Role: "UX"})
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = a.Chat(context.Background(), Request{Project: "shop", Role: "UX", Image: "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	calls := fake.Calls()
	require.Len(t, calls, 1)
	user := calls[0].Messages[len(calls[0].Messages)-1]
	assert.Equal(t, []string{"data:image/png;base64,AAAA"}, user.Images)
}

func TestChatModelError(t *testing.T) {
	a, fake, _, hist := newAgent(t)
	fake.Push(llm.FakeReply{Err: errors.New("boom")})
	_, err := a.Chat(context.Background(), Request{Project: "shop", Role: "Dev", Message: "hi"})
	require.Error(t, err)
	ctxt, _ := hist.Context(context.Background(), "shop", "Dev")
	assert.Empty(t, ctxt)
}

func TestParseEditAction(t *testing.T) {
	cases := []struct {
		reply string
		ok    bool
		file  string
	}{
		{`plain text`, false, ""},
		{`{"action": "explain"}`, false, ""},
		{`{"action": "edit", "content": "x"}`, false, ""},
		{"Here:\n```json\n{\"action\": \"edit\", \"file\": \"a/b.py\", \"content\": \"print(1)\"}\n```", true, "a/b.py"},
		{`{"note": {"x": 1}} then {"action":"edit","file":"z.txt","content":""}`, true, "z.txt"},
	}
	for _, tc := range cases {
		got, ok := ParseEditAction(tc.reply)
		assert.Equal(t, tc.ok, ok, tc.reply)
		assert.Equal(t, tc.file, got.File, tc.reply)
	}
}

func TestHealStateString(t *testing.T) {
	assert.Equal(t, "retrying", HealRetrying.String())
	assert.True(t, HealFailed.Terminal())
	assert.False(t, HealAttempting.Terminal())
}
