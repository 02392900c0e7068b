package llm

import (
	"context"
	"errors"
	"log"
	"time"

	llmclient "agentforge/internal/llmClient"
)

// Middleware decorates a ChatClient to inject cross-cutting concerns
// (rate limiting, retries, logging).
type Middleware func(llmclient.ChatClient) llmclient.ChatClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.ChatClient, mws ...Middleware) llmclient.ChatClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit limits request rate. If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.ChatClient) llmclient.ChatClient {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next llmclient.ChatClient
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) Chat(ctx context.Context, messages []llmclient.Message, opts llmclient.Options) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.Chat(ctx, messages, opts)
}

// -------- Retry with exponential backoff --------

// Retry retries Chat up to maxAttempts with exponential backoff starting at
// baseDelay. Permanent errors and canceled contexts stop immediately; a
// provider Retry-After overrides the backoff for that attempt.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next llmclient.ChatClient) llmclient.ChatClient {
		return &retrying{next: next, max: maxAttempts, base: baseDelay, sleep: sleepCtx}
	}
}

type retrying struct {
	next  llmclient.ChatClient
	max   int
	base  time.Duration
	sleep func(context.Context, time.Duration) error
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) Chat(ctx context.Context, messages []llmclient.Message, opts llmclient.Options) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Chat(ctx, messages, opts)
		if err == nil {
			return out, nil
		}
		var pErr *llmclient.PermanentError
		if errors.As(err, &pErr) {
			return "", err
		}
		last = err
		if i == r.max-1 {
			break
		}
		wait := r.base * time.Duration(1<<i)
		var rl *llmclient.RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", last
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// -------- Logging --------

// WithLogging logs request size, latency and errors. Provide a custom logger
// or nil to use log.Default(). Secrets and inline media are redacted.
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.ChatClient) llmclient.ChatClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.ChatClient
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) Chat(ctx context.Context, messages []llmclient.Message, opts llmclient.Options) (string, error) {
	phase := PhaseFrom(ctx)
	size := len(llmclient.Transcript(messages))
	start := time.Now()
	l.log.Printf("LLM request (%s, %s): %d messages, %d bytes", phase, l.next.Name(), len(messages), size)
	out, err := l.next.Chat(ctx, messages, opts)
	if err != nil {
		l.log.Printf("LLM error (%s): %s", phase, RedactSecrets(err.Error()))
		return out, err
	}
	l.log.Printf("LLM reply (%s): %d bytes in %s", phase, len(out), time.Since(start).Round(time.Millisecond))
	return out, nil
}
