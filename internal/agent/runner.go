package agent

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/n0madic/go-ollama-claude/internal/types"
)

// disallowedTools lists every built-in tool the runtime must not use. The
// bridge only translates text completions, so the agent gets no file, web
// or system access.
var disallowedTools = []string{
	"Read", "Write", "Edit", "Bash", "Glob", "Grep",
	"WebFetch", "WebSearch", "NotebookEdit", "TodoWrite", "Task",
}

// Runner invokes the claude CLI binary once per canonical request and
// parses its stream-json output into fragments.
type Runner struct {
	Binary  string // path to the claude binary, "claude" by default
	WorkDir string // working directory for the subprocess, empty for inherited
}

// NewRunner creates a Runner for the given binary and working directory.
func NewRunner(binary, workDir string) *Runner {
	if binary == "" {
		binary = "claude"
	}
	return &Runner{Binary: binary, WorkDir: workDir}
}

// Invoke starts one CLI invocation. Startup failures are returned as a
// stream whose only fragment is Failed; no error crosses this boundary.
func (r *Runner) Invoke(ctx context.Context, req *types.CanonicalRequest) Stream {
	started := time.Now()

	cmd := exec.CommandContext(ctx, r.Binary, buildArgs(req)...)
	cmd.Dir = r.WorkDir
	stderr := &tailBuffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return failedStream(started, "agent runtime stdin: "+err.Error())
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return failedStream(started, "agent runtime stdout: "+err.Error())
	}
	if err := cmd.Start(); err != nil {
		return failedStream(started, "failed to start "+r.Binary+": "+err.Error())
	}

	// The prompt goes through stdin to avoid argument length limits with
	// long conversation histories.
	prompt := BuildPrompt(req.Turns)
	go func() {
		defer stdin.Close()
		io.WriteString(stdin, prompt)
	}()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 256*1024), 10*1024*1024)

	return &cliStream{
		cmd:     cmd,
		scanner: scanner,
		stderr:  stderr,
		started: started,
	}
}

// buildArgs constructs the CLI arguments for one invocation. Tools are
// disabled entirely and the turn budget bounds multi-step runs.
func buildArgs(req *types.CanonicalRequest) []string {
	args := []string{
		"--print",
		"--output-format", "stream-json",
		"--include-partial-messages",
		"--verbose",
		"--setting-sources", "user",
		"--model", req.Model,
		"--max-turns", strconv.Itoa(req.MaxTurns),
		"--tools", "",
		"--disallowed-tools", strings.Join(disallowedTools, ","),
	}
	if req.SystemInstruction != "" {
		args = append(args, "--system-prompt", req.SystemInstruction)
	}
	return args
}

// cliStream pulls fragments straight off the subprocess stdout. There is
// no internal buffering: the caller's pull pace is the runtime's read
// pace, which backpressures the whole pipeline.
type cliStream struct {
	cmd     *exec.Cmd
	scanner *bufio.Scanner
	stderr  *tailBuffer
	started time.Time
	turns   int
	waitErr error
	ended   bool // terminal fragment returned
	reaped  bool // cmd.Wait has run
}

func (s *cliStream) Started() time.Time {
	return s.started
}

func (s *cliStream) Next() (Fragment, error) {
	if s.ended {
		return Fragment{}, io.EOF
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		frag, ok := s.parseLine(line)
		if !ok {
			continue
		}
		if frag.Kind == Completed || frag.Kind == Failed {
			s.ended = true
			s.reap()
		}
		return frag, nil
	}

	// The runtime's output ended without a result record: it crashed or
	// was killed. Report whatever detail is available, once.
	s.ended = true
	detail := "agent runtime exited before completion"
	if err := s.scanner.Err(); err != nil {
		detail = "reading agent output: " + err.Error()
	}
	if err := s.reap(); err != nil {
		if msg := s.stderr.Tail(); msg != "" {
			detail = msg
		} else {
			detail = err.Error()
		}
	}
	return Fragment{Kind: Failed, Detail: detail}, nil
}

// parseLine maps one stream-json line to a fragment. Lines that carry no
// client-relevant signal report ok=false and are skipped.
func (s *cliStream) parseLine(line []byte) (Fragment, bool) {
	if !gjson.ValidBytes(line) {
		return Fragment{}, false
	}
	switch gjson.GetBytes(line, "type").String() {
	case "system":
		slog.Debug("agent session opened",
			"session_id", gjson.GetBytes(line, "session_id").String(),
			"model", gjson.GetBytes(line, "model").String(),
		)
		return Fragment{}, false

	case "stream_event":
		event := gjson.GetBytes(line, "event")
		if event.Get("type").String() == "content_block_delta" &&
			event.Get("delta.type").String() == "text_delta" {
			if text := event.Get("delta.text").String(); text != "" {
				return Fragment{Kind: TextDelta, Text: text}, true
			}
		}
		return Fragment{}, false

	case "assistant":
		s.turns++
		return Fragment{Kind: TurnBoundary}, true

	case "result":
		subtype := gjson.GetBytes(line, "subtype").String()
		// Exhausting the turn budget is a bounded completion, not a
		// runtime failure, even though the CLI flags it as an error.
		if subtype == "error_max_turns" {
			return Fragment{Kind: Completed, Signal: subtype}, true
		}
		if gjson.GetBytes(line, "is_error").Bool() {
			detail := gjson.GetBytes(line, "result").String()
			if detail == "" {
				detail = "agent runtime reported an error"
			}
			return Fragment{Kind: Failed, Detail: detail}, true
		}
		return Fragment{Kind: Completed, Signal: subtype}, true
	}
	return Fragment{}, false
}

// Close kills the runtime process if it is still producing output and
// reaps it, so an abandoned stream never leaks a subprocess.
func (s *cliStream) Close() error {
	if !s.ended {
		s.ended = true
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
	}
	s.reap()
	return nil
}

func (s *cliStream) reap() error {
	if !s.reaped {
		s.reaped = true
		s.waitErr = s.cmd.Wait()
	}
	return s.waitErr
}

// failedStream wraps a startup error as a single-fragment stream.
func failedStream(started time.Time, detail string) Stream {
	return &staticStream{started: started, frags: []Fragment{{Kind: Failed, Detail: detail}}}
}

// staticStream yields a fixed fragment sequence. Used for startup
// failures and in tests.
type staticStream struct {
	started time.Time
	frags   []Fragment
	pos     int
}

func (s *staticStream) Next() (Fragment, error) {
	if s.pos >= len(s.frags) {
		return Fragment{}, io.EOF
	}
	frag := s.frags[s.pos]
	s.pos++
	return frag, nil
}

func (s *staticStream) Close() error       { return nil }
func (s *staticStream) Started() time.Time { return s.started }

// tailBuffer keeps the last chunk of the runtime's stderr for error
// reporting without holding unbounded output.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const tailLimit = 4 * 1024

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > tailLimit {
		b.buf = b.buf[len(b.buf)-tailLimit:]
	}
	return len(p), nil
}

// Tail returns the buffered stderr as a trimmed string.
func (b *tailBuffer) Tail() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
