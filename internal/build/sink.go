package build

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Sink receives events. An error from Send means the consumer is gone.
type Sink interface {
	Send(Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

func (f SinkFunc) Send(ev Event) error { return f(ev) }

type flusher interface{ Flush() }

// NDJSONSink writes one JSON object per line and flushes after each one
// when the writer supports it.
type NDJSONSink struct {
	enc   *json.Encoder
	flush flusher
}

func NewNDJSONSink(w io.Writer) *NDJSONSink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	s := &NDJSONSink{enc: enc}
	if f, ok := w.(flusher); ok {
		s.flush = f
	}
	return s
}

func (s *NDJSONSink) Send(ev Event) error {
	if err := s.enc.Encode(ev); err != nil {
		return fmt.Errorf("build: write event: %w", err)
	}
	if s.flush != nil {
		s.flush.Flush()
	}
	return nil
}

// ReadNDJSON decodes a build stream, stopping after the terminal event.
func ReadNDJSON(r io.Reader) ([]Event, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	var out []Event
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return out, fmt.Errorf("build: decode event: %w", err)
		}
		out = append(out, ev)
		if ev.Terminal() {
			return out, nil
		}
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	return out, io.ErrUnexpectedEOF
}
