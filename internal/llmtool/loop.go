package llmtool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	llmclient "agentforge/internal/llmClient"
	"agentforge/internal/search"
)

var (
	// ErrAborted is returned when the step observer asks the loop to stop.
	ErrAborted = errors.New("llmtool: aborted by observer")
	ErrNoLLM   = errors.New("llmtool: missing LLM")
)

const (
	DefaultMaxIters = 3

	summaryInstruction = "Summarize these search results for a developer. Focus on version numbers, code snippets, and key facts. Include [Source: URL] citations.\n\nResults: "
	citationMandate    = "IMPORTANT: You MUST cite these sources in your documentation using [Source Name](url)."
)

// LoopState is a state of the search tool loop.
type LoopState int

const (
	StateAsking LoopState = iota
	StateSearching
	StateSummarizing
	StateFinalizing
)

func (s LoopState) String() string {
	switch s {
	case StateAsking:
		return "asking"
	case StateSearching:
		return "searching"
	case StateSummarizing:
		return "summarizing"
	case StateFinalizing:
		return "finalizing"
	}
	return fmt.Sprintf("LoopState(%d)", int(s))
}

// StepKind labels progress reported to the observer.
type StepKind string

const (
	StepSearch      StepKind = "search"
	StepSummarizing StepKind = "summarizing"
	StepLearned     StepKind = "learned"
	// StepFailed reports a search that returned an error result.
	StepFailed StepKind = "failed"
)

// Step is a progress notification; Message is user-facing.
type Step struct {
	Kind    StepKind
	Query   string
	Message string
}

// Outcome is the result of a finished loop.
type Outcome struct {
	Final      string
	Iterations int
	Queries    []string
	// Messages is the history including search summaries.
	Messages []llmclient.Message
}

// SearchLoop lets the model request web searches with a SEARCH directive
// before it produces its final answer. Each iteration makes at most one
// model call plus one search and one summary call.
type SearchLoop struct {
	LLM        llmclient.ChatClient
	Search     search.Provider
	MaxIters   int
	MaxResults int
	// Options apply to the main calls; SummaryOptions to the summary calls.
	Options        llmclient.Options
	SummaryOptions llmclient.Options
}

// Run drives the loop from messages. onStep may be nil; returning false from
// it stops the loop with ErrAborted. Every iteration whose reply asks for a
// search runs it; when the iteration budget runs out the last reply is
// returned as final, even if it still asks for a search.
func (l *SearchLoop) Run(ctx context.Context, messages []llmclient.Message, onStep func(Step) bool) (Outcome, error) {
	if l == nil || l.LLM == nil {
		return Outcome{}, ErrNoLLM
	}
	maxIters := l.MaxIters
	if maxIters <= 0 {
		maxIters = DefaultMaxIters
	}
	notify := func(s Step) bool {
		return onStep == nil || onStep(s)
	}

	out := Outcome{Messages: append([]llmclient.Message(nil), messages...)}
	var (
		reply   string
		query   string
		results []search.Result
	)
	state := StateAsking
	for {
		switch state {
		case StateAsking:
			out.Iterations++
			r, err := l.LLM.Chat(ctx, out.Messages, l.Options)
			if err != nil {
				return out, err
			}
			reply = r
			q, ok := ParseSearch(reply)
			if !ok || l.Search == nil {
				state = StateFinalizing
				continue
			}
			query = q
			state = StateSearching

		case StateSearching:
			out.Queries = append(out.Queries, query)
			if !notify(Step{Kind: StepSearch, Query: query}) {
				return out, ErrAborted
			}
			results = l.Search.Search(ctx, query, l.MaxResults)
			if msg, failed := search.Failed(results); failed {
				// nothing to summarize; tell the model instead of citing the failure
				out.Messages = append(out.Messages,
					llmclient.Assistant("SEARCH: "+query),
					llmclient.System("Search Results Summary:\n"+msg+"\nNo sources are available for this query; continue without citing it."),
				)
				if !notify(Step{Kind: StepFailed, Query: query, Message: msg}) {
					return out, ErrAborted
				}
				state = l.next(out.Iterations, maxIters)
				continue
			}
			state = StateSummarizing

		case StateSummarizing:
			if !notify(Step{Kind: StepSummarizing, Query: query, Message: "Reading and summarizing search results..."}) {
				return out, ErrAborted
			}
			summary, err := l.summarize(ctx, results)
			if err != nil {
				return out, err
			}
			out.Messages = append(out.Messages,
				llmclient.Assistant("SEARCH: "+query),
				llmclient.System("Search Results Summary:\n"+summary+"\n\n"+citationMandate),
			)
			if !notify(Step{Kind: StepLearned, Query: query, Message: "Learned from search. Generating content..."}) {
				return out, ErrAborted
			}
			state = l.next(out.Iterations, maxIters)

		case StateFinalizing:
			out.Final = reply
			return out, nil
		}
	}
}

// next asks again while budget remains. Once it is spent the reply that
// requested the last search is final.
func (l *SearchLoop) next(iters, maxIters int) LoopState {
	if iters >= maxIters {
		return StateFinalizing
	}
	return StateAsking
}

func (l *SearchLoop) summarize(ctx context.Context, results []search.Result) (string, error) {
	if results == nil {
		results = []search.Result{}
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return l.LLM.Chat(ctx, []llmclient.Message{llmclient.User(summaryInstruction + string(raw))}, l.SummaryOptions)
}
