// Package agent invokes the external agent runtime (the claude CLI) and
// exposes its incremental output as a lazy, pull-based fragment sequence.
package agent

import (
	"context"
	"time"

	"github.com/n0madic/go-ollama-claude/internal/types"
)

// FragmentKind tags one unit of incremental output from an invocation.
type FragmentKind int

const (
	// TextDelta carries one incremental piece of assistant text.
	TextDelta FragmentKind = iota
	// TurnBoundary marks a new agent-internal turn. It is never surfaced
	// to clients; it only feeds turn accounting.
	TurnBoundary
	// Completed is terminal: the invocation finished and Signal carries
	// the runtime's own completion signal.
	Completed
	// Failed is terminal: the runtime could not be started, rejected the
	// request, or crashed mid-stream.
	Failed
)

// Fragment is one unit of agent output. TextDelta fragments must be
// re-emitted in arrival order; a Completed or Failed fragment is always
// last and nothing follows it.
type Fragment struct {
	Kind   FragmentKind
	Text   string // TextDelta: the delta content
	Signal string // Completed: raw runtime signal ("success", "error_max_turns", ...)
	Detail string // Failed: human-readable error detail
}

// Stream is a lazy pull-based fragment sequence from one invocation.
// Next blocks until the runtime produces the next fragment and returns
// io.EOF once the terminal fragment has been consumed. Streams are not
// safe for concurrent use.
type Stream interface {
	Next() (Fragment, error)
	// Close stops the underlying runtime process if it is still running
	// and releases its handles. Safe to call after the terminal fragment.
	Close() error
	// Started reports when the invocation was opened, for duration metrics.
	Started() time.Time
}

// Invoker opens one agent invocation for a canonical request. Runtime
// failures never escape as errors: they arrive as a terminal Failed
// fragment, so the caller can always render a valid wire response.
type Invoker interface {
	Invoke(ctx context.Context, req *types.CanonicalRequest) Stream
}
