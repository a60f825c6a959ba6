package agent

import (
	"strings"

	"github.com/n0madic/go-ollama-claude/internal/types"
)

// BuildPrompt flattens canonical turns into the single transcript the CLI
// consumes on stdin. A lone user turn is passed through verbatim;
// multi-turn histories become labelled blocks with a trailing "Assistant:"
// cue so the runtime continues the conversation.
func BuildPrompt(turns []types.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	if len(turns) == 1 && turns[0].Role == "user" {
		return turns[0].Content
	}

	parts := make([]string, 0, len(turns)+1)
	for _, turn := range turns {
		switch turn.Role {
		case "user":
			parts = append(parts, "User: "+turn.Content)
		case "assistant":
			parts = append(parts, "Assistant: "+turn.Content)
		case "tool":
			parts = append(parts, "Tool: "+turn.Content)
		}
	}
	parts = append(parts, "Assistant:")
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
