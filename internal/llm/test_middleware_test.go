package llm

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	llmclient "agentforge/internal/llmClient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	fake := NewFakeClient()
	fake.Push(FakeReply{Err: errors.New("boom")}, FakeReply{Err: errors.New("boom")}, FakeReply{Text: "ok"})

	cli := Retry(3, time.Millisecond)(fake).(*retrying)
	cli.sleep = noSleep

	out, err := cli.Chat(context.Background(), []llmclient.Message{llmclient.User("hi")}, llmclient.Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Len(t, fake.Calls(), 3)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	fake := NewFakeClient()
	fake.Push(FakeReply{Err: llmclient.NewPermanentError(errors.New("bad key"))}, FakeReply{Text: "never"})

	cli := Retry(5, time.Millisecond)(fake).(*retrying)
	cli.sleep = noSleep

	_, err := cli.Chat(context.Background(), nil, llmclient.Options{})
	var perm *llmclient.PermanentError
	assert.True(t, errors.As(err, &perm))
	assert.Len(t, fake.Calls(), 1)
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	fake := NewFakeClient()
	fake.Push(FakeReply{Err: &llmclient.RateLimitError{Provider: "p", RetryAfter: 3 * time.Second}}, FakeReply{Text: "ok"})

	var waited []time.Duration
	cli := Retry(2, time.Millisecond)(fake).(*retrying)
	cli.sleep = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}
	_, err := cli.Chat(context.Background(), nil, llmclient.Options{})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second}, waited)
}

func TestRateLimitSpacing(t *testing.T) {
	fake := NewFakeClient("a", "b")
	cli := Wrap(fake, RateLimit(20, 1))
	t.Cleanup(func() { _ = cli.Close() })

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := cli.Chat(context.Background(), nil, llmclient.Options{})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLoggingRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	fake := NewFakeClient()
	fake.Push(FakeReply{Err: errors.New("auth failed for Bearer abc.def")})
	cli := Wrap(fake, WithLogging(log.New(&buf, "", 0)))

	_, err := cli.Chat(WithPhase(context.Background(), "roster"), []llmclient.Message{llmclient.User("x")}, llmclient.Options{})
	require.Error(t, err)
	out := buf.String()
	assert.Contains(t, out, "(roster")
	assert.Contains(t, out, "Bearer [REDACTED]")
	assert.False(t, strings.Contains(out, "abc.def"))
}

func TestRedactSecrets(t *testing.T) {
	in := "key sk-abcdefghijklmnopqrstuvwxyz012345 and ghp_abcdefghijklmnopqrstuvwxyz"
	out := RedactSecrets(in)
	assert.Equal(t, "key sk-[REDACTED] and gh_[REDACTED]", out)
}
