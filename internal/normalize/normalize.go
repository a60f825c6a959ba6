// Package normalize converts inbound Ollama-shaped requests into the
// canonical internal representation consumed by the agent invocation layer.
// All transforms are pure; nothing here touches the agent runtime.
package normalize

import (
	"fmt"
	"strings"

	"github.com/n0madic/go-ollama-claude/internal/types"
)

// ValidationError reports a malformed inbound request. It is always
// surfaced as an HTTP 400 rejection before any agent invocation begins.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// FromGenerate converts a single-prompt request into a canonical request
// with one user turn and an optional system instruction.
func FromGenerate(req *types.GenerateRequest, defaultMaxTurns int) (*types.CanonicalRequest, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, &ValidationError{Reason: "model is required"}
	}
	return &types.CanonicalRequest{
		Model:             req.Model,
		SystemInstruction: strings.TrimSpace(req.System),
		Turns:             []types.Turn{{Role: "user", Content: req.Prompt}},
		Stream:            streamValue(req.Stream),
		MaxTurns:          defaultMaxTurns,
	}, nil
}

// FromChat converts a message-list request into a canonical request.
// System messages are lifted out of the turn list into the system
// instruction (the last one wins); all other messages keep their order.
func FromChat(req *types.ChatRequest, defaultMaxTurns int) (*types.CanonicalRequest, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, &ValidationError{Reason: "model is required"}
	}
	if len(req.Messages) == 0 {
		return nil, &ValidationError{Reason: "messages must not be empty"}
	}

	var system string
	turns := make([]types.Turn, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = msg.Content
		case "user", "assistant", "tool":
			turns = append(turns, types.Turn{Role: msg.Role, Content: msg.Content})
		default:
			return nil, &ValidationError{Reason: fmt.Sprintf("unsupported message role %q", msg.Role)}
		}
	}
	if len(turns) == 0 {
		return nil, &ValidationError{Reason: "messages must contain at least one non-system message"}
	}
	if last := turns[len(turns)-1]; last.Role != "user" {
		return nil, &ValidationError{Reason: fmt.Sprintf("final message must have role \"user\", got %q", last.Role)}
	}

	return &types.CanonicalRequest{
		Model:             req.Model,
		SystemInstruction: strings.TrimSpace(system),
		Turns:             turns,
		Stream:            streamValue(req.Stream),
		MaxTurns:          defaultMaxTurns,
	}, nil
}

// streamValue applies Ollama's default: streaming is on unless the client
// explicitly disables it.
func streamValue(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
