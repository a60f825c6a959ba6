package types

// Turn is one prior conversation turn carried into an agent invocation.
type Turn struct {
	Role    string // "user", "assistant" or "tool"
	Content string
}

// CanonicalRequest is the unified internal representation of an inbound
// completion request after normalization. It is shape-agnostic: both the
// single-prompt and the message-list endpoints decode into this form.
//
// Invariant: Turns is non-empty and its final entry has role "user".
type CanonicalRequest struct {
	Model             string
	SystemInstruction string
	Turns             []Turn
	Stream            bool
	MaxTurns          int
}
