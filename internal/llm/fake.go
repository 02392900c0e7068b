package llm

import (
	"context"
	"errors"
	"sync"

	llmclient "agentforge/internal/llmClient"
)

// ErrScriptExhausted is returned by FakeClient when no reply is queued.
var ErrScriptExhausted = errors.New("fake llm: no scripted reply left")

// FakeCall records one Chat invocation.
type FakeCall struct {
	Phase    string
	Messages []llmclient.Message
	Options  llmclient.Options
}

// FakeReply is one scripted answer; a non-nil Err is returned instead of Text.
type FakeReply struct {
	Text string
	Err  error
}

// FakeClient returns scripted replies in order for offline runs and tests.
// When Respond is set it takes precedence over the queue.
type FakeClient struct {
	mu      sync.Mutex
	replies []FakeReply
	calls   []FakeCall
	Respond func(call FakeCall) (string, error)
}

func NewFakeClient(replies ...string) *FakeClient {
	f := &FakeClient{}
	for _, r := range replies {
		f.replies = append(f.replies, FakeReply{Text: r})
	}
	return f
}

// Push queues more replies.
func (f *FakeClient) Push(replies ...FakeReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, replies...)
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Chat(ctx context.Context, messages []llmclient.Message, opts llmclient.Options) (string, error) {
	call := FakeCall{
		Phase:    PhaseFrom(ctx),
		Messages: append([]llmclient.Message(nil), messages...),
		Options:  opts,
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	respond := f.Respond
	if respond == nil && len(f.replies) == 0 {
		f.mu.Unlock()
		return "", ErrScriptExhausted
	}
	var next FakeReply
	if respond == nil {
		next = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	if respond != nil {
		return respond(call)
	}
	return next.Text, next.Err
}

// Calls returns a copy of the recorded invocations.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}
