package llm

import "context"

type ctxKeyPhase struct{}

// WithPhase tags the context with the pipeline step issuing the model call
// (e.g. "roster", "build:Backend Engineer", "summarize").
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyPhase{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
