// Package mentor watches recent user activity and occasionally asks the
// model for a one-sentence tip.
package mentor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"agentforge/internal/llm"
	llmclient "agentforge/internal/llmClient"
)

const (
	DefaultCapacity = 20
	DefaultCooldown = 45 * time.Second

	noTip = "NO_TIP"
)

const systemPrompt = "You are a helpful coding mentor. Output only the tip text or NO_TIP."

type Mentor struct {
	llm      llmclient.ChatClient
	log      *log.Logger
	now      func() time.Time
	cooldown time.Duration

	mu      sync.Mutex
	events  []string
	next    int
	full    bool
	lastTip time.Time
}

func New(client llmclient.ChatClient) *Mentor {
	return &Mentor{
		llm:      client,
		log:      log.Default(),
		now:      time.Now,
		cooldown: DefaultCooldown,
		events:   make([]string, DefaultCapacity),
	}
}

// WithClock replaces the time source.
func (m *Mentor) WithClock(now func() time.Time) *Mentor {
	m.now = now
	return m
}

func (m *Mentor) WithLogger(l *log.Logger) *Mentor {
	m.log = l
	return m
}

// Log records an activity line. Secrets are masked before storage; only
// the newest DefaultCapacity lines are kept.
func (m *Mentor) Log(event string) {
	event = strings.TrimSpace(event)
	if event == "" {
		return
	}
	line := fmt.Sprintf("[%s] %s", m.now().Format("15:04:05"), llm.RedactMedia(llm.RedactSecrets(event)))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[m.next] = line
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
}

// Recent returns the buffered lines, oldest first.
func (m *Mentor) Recent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recentLocked()
}

func (m *Mentor) recentLocked() []string {
	if !m.full {
		return append([]string(nil), m.events[:m.next]...)
	}
	out := make([]string, 0, len(m.events))
	out = append(out, m.events[m.next:]...)
	return append(out, m.events[:m.next]...)
}

// Tip asks for advice about project. It returns "" while cooling down,
// when nothing was logged, or when the model declines.
func (m *Mentor) Tip(ctx context.Context, project string) (string, error) {
	m.mu.Lock()
	now := m.now()
	if !m.lastTip.IsZero() && now.Sub(m.lastTip) < m.cooldown {
		m.mu.Unlock()
		return "", nil
	}
	events := m.recentLocked()
	m.mu.Unlock()
	if len(events) == 0 {
		return "", nil
	}

	ctx = llm.WithPhase(ctx, "mentor")
	reply, err := m.llm.Chat(ctx, []llmclient.Message{
		llmclient.System(systemPrompt),
		llmclient.User(tipPrompt(project, events)),
	}, llmclient.Options{Temperature: 0.7, MaxTokens: 60})
	if err != nil {
		m.log.Printf("mentor: %v", llm.RedactSecrets(err.Error()))
		return "", err
	}
	tip := strings.TrimSpace(reply)
	if strings.Contains(tip, noTip) || len(tip) < 5 {
		return "", nil
	}

	m.mu.Lock()
	m.lastTip = now
	m.mu.Unlock()
	return tip, nil
}

func tipPrompt(project string, events []string) string {
	if project == "" {
		project = "Unknown Project"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful Senior Software Engineer Mentor watching a developer work on project '%s'.\n\n", project)
	b.WriteString("Recent Activity Log:\n")
	b.WriteString(strings.Join(events, "\n"))
	b.WriteString("\n\nTask:\n")
	b.WriteString("- Analyze the user's recent actions.\n")
	b.WriteString("- If they are doing well, offer brief encouragement.\n")
	b.WriteString("- If they seem stuck (repeated errors), offer a specific tip.\n")
	b.WriteString("- If nothing notable is happening, return \"NO_TIP\".\n")
	b.WriteString("- KEEP IT SHORT. One sentence only. Casual and friendly.\n")
	return b.String()
}
