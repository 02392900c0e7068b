package llmclient

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidJSON = errors.New("invalid json from LLM")

// ErrEmptyReply is returned when the provider answered without any text.
var ErrEmptyReply = errors.New("empty reply from LLM")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn. Images holds data: URLs or http(s) URLs that are
// sent as image parts next to the text.
type Message struct {
	Role   Role     `json:"role"`
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"`
}

func System(text string) Message    { return Message{Role: RoleSystem, Text: text} }
func User(text string) Message      { return Message{Role: RoleUser, Text: text} }
func Assistant(text string) Message { return Message{Role: RoleAssistant, Text: text} }

// Options are per-call generation parameters.
type Options struct {
	Temperature float32
	MaxTokens   int
	// JSON forces the provider into its syntactically-valid-JSON mode.
	JSON bool
}

// ChatClient defines the interface for chat-completion providers.
type ChatClient interface {
	Name() string
	Close() error
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Transcript renders messages as plain text, mostly for logs and token estimates.
func Transcript(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return b.String()
}
