package agent

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/n0madic/go-ollama-claude/internal/types"
)

func TestBuildArgs(t *testing.T) {
	req := &types.CanonicalRequest{
		Model:             "claude-3-5-haiku-20241022",
		SystemInstruction: "be brief",
		Turns:             []types.Turn{{Role: "user", Content: "hi"}},
		MaxTurns:          7,
	}
	args := strings.Join(buildArgs(req), " ")

	for _, want := range []string{
		"--print",
		"--output-format stream-json",
		"--include-partial-messages",
		"--model claude-3-5-haiku-20241022",
		"--max-turns 7",
		"--system-prompt be brief",
		"--disallowed-tools",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
	if !strings.Contains(args, "Bash") {
		t.Error("expected built-in tools to be disallowed")
	}
}

func TestBuildArgsNoSystemPrompt(t *testing.T) {
	req := &types.CanonicalRequest{
		Model:    "claude-sonnet-4-20250514",
		Turns:    []types.Turn{{Role: "user", Content: "hi"}},
		MaxTurns: 10,
	}
	if args := strings.Join(buildArgs(req), " "); strings.Contains(args, "--system-prompt") {
		t.Errorf("unexpected --system-prompt in %s", args)
	}
}

func TestBuildPromptSingleUserTurn(t *testing.T) {
	prompt := BuildPrompt([]types.Turn{{Role: "user", Content: "2+2?"}})
	if prompt != "2+2?" {
		t.Errorf("got %q, want the raw content", prompt)
	}
}

func TestBuildPromptMultiTurn(t *testing.T) {
	prompt := BuildPrompt([]types.Turn{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "tool", Content: "lookup ok"},
		{Role: "user", Content: "thanks"},
	})
	want := "User: hello\n\nAssistant: hi\n\nTool: lookup ok\n\nUser: thanks\n\nAssistant:"
	if prompt != want {
		t.Errorf("got %q, want %q", prompt, want)
	}
}

func TestParseLineTextDelta(t *testing.T) {
	s := &cliStream{}
	line := `{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":"4"}}}`
	frag, ok := s.parseLine([]byte(line))
	if !ok {
		t.Fatal("expected a fragment")
	}
	if frag.Kind != TextDelta || frag.Text != "4" {
		t.Errorf("got %+v", frag)
	}
}

func TestParseLineSkipsEmptyDelta(t *testing.T) {
	s := &cliStream{}
	line := `{"type":"stream_event","event":{"type":"content_block_delta","delta":{"type":"text_delta","text":""}}}`
	if _, ok := s.parseLine([]byte(line)); ok {
		t.Error("empty deltas must not be surfaced")
	}
}

func TestParseLineTurnBoundary(t *testing.T) {
	s := &cliStream{}
	frag, ok := s.parseLine([]byte(`{"type":"assistant","message":{"content":[]}}`))
	if !ok || frag.Kind != TurnBoundary {
		t.Fatalf("got %+v, ok=%v", frag, ok)
	}
	s.parseLine([]byte(`{"type":"assistant","message":{"content":[]}}`))
	if s.turns != 2 {
		t.Errorf("turn accounting: got %d, want 2", s.turns)
	}
}

func TestParseLineResultSuccess(t *testing.T) {
	s := &cliStream{}
	frag, ok := s.parseLine([]byte(`{"type":"result","subtype":"success","is_error":false,"result":"4"}`))
	if !ok {
		t.Fatal("expected a fragment")
	}
	if frag.Kind != Completed || frag.Signal != "success" {
		t.Errorf("got %+v", frag)
	}
}

func TestParseLineResultMaxTurns(t *testing.T) {
	s := &cliStream{}
	frag, ok := s.parseLine([]byte(`{"type":"result","subtype":"error_max_turns","is_error":true}`))
	if !ok {
		t.Fatal("expected a fragment")
	}
	if frag.Kind != Completed || frag.Signal != "error_max_turns" {
		t.Errorf("turn-budget exhaustion must complete, not fail: %+v", frag)
	}
}

func TestParseLineResultError(t *testing.T) {
	s := &cliStream{}
	frag, ok := s.parseLine([]byte(`{"type":"result","subtype":"error_during_execution","is_error":true,"result":"auth_error"}`))
	if !ok {
		t.Fatal("expected a fragment")
	}
	if frag.Kind != Failed || frag.Detail != "auth_error" {
		t.Errorf("got %+v", frag)
	}
}

func TestParseLineIgnoresNoise(t *testing.T) {
	s := &cliStream{}
	for _, line := range []string{
		"not json at all",
		`{"type":"system","session_id":"abc","model":"claude"}`,
		`{"type":"user"}`,
	} {
		if _, ok := s.parseLine([]byte(line)); ok {
			t.Errorf("line should be skipped: %s", line)
		}
	}
}

func TestInvokeMissingBinary(t *testing.T) {
	r := NewRunner("/nonexistent/claude-binary", "")
	st := r.Invoke(context.Background(), &types.CanonicalRequest{
		Model:    "claude-sonnet-4-20250514",
		Turns:    []types.Turn{{Role: "user", Content: "hi"}},
		MaxTurns: 1,
	})
	defer st.Close()

	frag, err := st.Next()
	if err != nil {
		t.Fatalf("startup failure must arrive as a fragment, got error %v", err)
	}
	if frag.Kind != Failed {
		t.Fatalf("got %+v, want Failed", frag)
	}
	if !strings.Contains(frag.Detail, "failed to start") {
		t.Errorf("detail: got %q", frag.Detail)
	}
	if _, err := st.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after terminal fragment, got %v", err)
	}
	if st.Started().IsZero() || time.Since(st.Started()) < 0 {
		t.Error("stream must record its start time")
	}
}
