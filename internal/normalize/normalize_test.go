package normalize

import (
	"errors"
	"testing"

	"github.com/n0madic/go-ollama-claude/internal/types"
)

func boolPtr(v bool) *bool { return &v }

func TestFromGenerate(t *testing.T) {
	canon, err := FromGenerate(&types.GenerateRequest{
		Model:  "claude-3-5-haiku-20241022",
		Prompt: "2+2?",
		System: " be brief ",
		Stream: boolPtr(false),
	}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canon.Model != "claude-3-5-haiku-20241022" {
		t.Errorf("model: got %q", canon.Model)
	}
	if canon.SystemInstruction != "be brief" {
		t.Errorf("system: got %q, want trimmed value", canon.SystemInstruction)
	}
	if len(canon.Turns) != 1 || canon.Turns[0].Role != "user" || canon.Turns[0].Content != "2+2?" {
		t.Errorf("turns: got %+v", canon.Turns)
	}
	if canon.Stream {
		t.Error("expected stream=false to be honored")
	}
	if canon.MaxTurns != 10 {
		t.Errorf("max turns: got %d", canon.MaxTurns)
	}
}

func TestFromGenerateDefaultsToStreaming(t *testing.T) {
	canon, err := FromGenerate(&types.GenerateRequest{Model: "claude-sonnet-4-20250514", Prompt: "hi"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !canon.Stream {
		t.Error("stream should default to true when unset")
	}
}

func TestFromGenerateMissingModel(t *testing.T) {
	_, err := FromGenerate(&types.GenerateRequest{Prompt: "hi"}, 10)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFromChatLiftsSystemMessages(t *testing.T) {
	canon, err := FromChat(&types.ChatRequest{
		Model: "claude-sonnet-4-20250514",
		Messages: []types.ChatMessage{
			{Role: "system", Content: "first system"},
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi there"},
			{Role: "system", Content: "second system"},
			{Role: "user", Content: "bye"},
		},
	}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canon.SystemInstruction != "second system" {
		t.Errorf("system: got %q, want the last system message", canon.SystemInstruction)
	}
	for _, turn := range canon.Turns {
		if turn.Role == "system" {
			t.Fatalf("system role leaked into turns: %+v", canon.Turns)
		}
	}
	want := []types.Turn{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
		{Role: "user", Content: "bye"},
	}
	if len(canon.Turns) != len(want) {
		t.Fatalf("turns: got %d, want %d", len(canon.Turns), len(want))
	}
	for i := range want {
		if canon.Turns[i] != want[i] {
			t.Errorf("turn %d: got %+v, want %+v", i, canon.Turns[i], want[i])
		}
	}
}

func TestFromChatEmptyMessages(t *testing.T) {
	_, err := FromChat(&types.ChatRequest{Model: "claude-sonnet-4-20250514"}, 10)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFromChatFinalRoleMustBeUser(t *testing.T) {
	_, err := FromChat(&types.ChatRequest{
		Model: "claude-sonnet-4-20250514",
		Messages: []types.ChatMessage{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
		},
	}, 10)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFromChatOnlySystemMessages(t *testing.T) {
	_, err := FromChat(&types.ChatRequest{
		Model:    "claude-sonnet-4-20250514",
		Messages: []types.ChatMessage{{Role: "system", Content: "rules"}},
	}, 10)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFromChatUnknownRole(t *testing.T) {
	_, err := FromChat(&types.ChatRequest{
		Model:    "claude-sonnet-4-20250514",
		Messages: []types.ChatMessage{{Role: "moderator", Content: "hm"}},
	}, 10)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
