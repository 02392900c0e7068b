package chat

import (
	"context"
	"fmt"

	"agentforge/internal/edit"
	llmclient "agentforge/internal/llmClient"
)

// HealState tracks an edit requested by the model through validation and
// at most MaxRetries corrections.
type HealState int

const (
	HealAttempting HealState = iota
	HealRetrying
	HealDone
	HealFailed
)

func (s HealState) String() string {
	switch s {
	case HealAttempting:
		return "attempting"
	case HealRetrying:
		return "retrying"
	case HealDone:
		return "done"
	case HealFailed:
		return "failed"
	}
	return fmt.Sprintf("HealState(%d)", int(s))
}

// Terminal reports whether no further model call follows.
func (s HealState) Terminal() bool { return s == HealDone || s == HealFailed }

// healOutcome is what the loop ended with.
type healOutcome struct {
	Reply   string
	State   HealState
	Edited  bool
	Status  string
	Retries int
}

type healer struct {
	llm        llmclient.ChatClient
	edits      *edit.Service
	project    string
	maxRetries int
	opts       llmclient.Options
}

// run asks the model and applies any edit it proposes. A rejected edit is
// fed back once per allowed retry; the final reply carries a [SYSTEM] note
// describing what happened to the edit.
func (h *healer) run(ctx context.Context, msgs []llmclient.Message) (healOutcome, error) {
	state := HealAttempting
	var out healOutcome
	for !state.Terminal() {
		reply, err := h.llm.Chat(ctx, msgs, h.opts)
		if err != nil {
			return healOutcome{}, err
		}
		action, ok := ParseEditAction(reply)
		if !ok {
			out.Reply, state = reply, HealDone
			break
		}

		res, err := h.edits.Apply(ctx, h.project, action.File, action.Content)
		if err == nil {
			out.Reply = reply + "\n\n[SYSTEM]: " + res.Message
			out.Edited, out.Status, state = true, res.Message, HealDone
			break
		}
		msg := err.Error()
		if !edit.IsRejected(err) {
			msg = "System Error: " + msg
		}
		out.Status = msg
		if out.Retries >= h.maxRetries {
			out.Reply = reply + "\n\n[SYSTEM]: Edit Failed after retries: " + msg
			state = HealFailed
			break
		}
		out.Retries++
		state = HealRetrying
		msgs = append(msgs,
			llmclient.Assistant(reply),
			llmclient.System(fmt.Sprintf("Your edit to %s failed validation with error: %s. Please fix the code and output the JSON again.", action.File, msg)),
		)
	}
	out.State = state
	return out, nil
}
