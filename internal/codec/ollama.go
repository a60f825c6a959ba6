// Package codec re-serializes agent fragment streams into the Ollama wire
// format, in both incremental (NDJSON) and buffered (single aggregate
// object) rendering modes.
package codec

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/n0madic/go-ollama-claude/internal/agent"
	"github.com/n0madic/go-ollama-claude/internal/types"
)

// timestampLayout is the fixed ISO-8601 UTC representation used for
// created_at fields.
const timestampLayout = "2006-01-02T15:04:05Z"

// Shape selects which Ollama wire shape the encoder emits.
type Shape int

const (
	// ShapeGenerate emits /api/generate records ({response: ...}).
	ShapeGenerate Shape = iota
	// ShapeChat emits /api/chat records ({message: {role, content}}).
	ShapeChat
)

// Encoder renders one agent fragment stream as Ollama wire responses.
// Both rendering modes share the chunk construction, done_reason mapping
// and duration computation, so those rules live in exactly one place.
type Encoder struct {
	Model     string
	Shape     Shape
	CreatedAt string

	now func() time.Time // test hook
}

// NewEncoder creates an encoder for one request. The created_at timestamp
// is fixed once per request.
func NewEncoder(model string, shape Shape) *Encoder {
	return &Encoder{
		Model:     model,
		Shape:     shape,
		CreatedAt: time.Now().UTC().Format(timestampLayout),
		now:       time.Now,
	}
}

// EncodeStream renders incremental mode: one NDJSON line per text delta,
// each flushed before the next fragment is pulled, then exactly one
// terminal line. A write failure is returned immediately and nothing
// further is pulled, so the caller can cancel the invocation and a slow
// client throttles the runtime instead of filling a buffer.
func (e *Encoder) EncodeStream(w http.ResponseWriter, st agent.Stream) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	evalCount := 0
	for {
		frag, err := st.Next()
		if err != nil {
			// The stream ran out without a terminal fragment.
			return e.writeLine(w, flusher, e.terminal("", "error", "agent stream ended unexpectedly", st, evalCount))
		}
		switch frag.Kind {
		case agent.TextDelta:
			evalCount++
			if err := e.writeLine(w, flusher, e.delta(frag.Text)); err != nil {
				return err
			}
		case agent.TurnBoundary:
			// Internal turn accounting only; never surfaced.
		case agent.Completed:
			return e.writeLine(w, flusher, e.terminal("", MapDoneReason(frag.Signal), "", st, evalCount))
		case agent.Failed:
			return e.writeLine(w, flusher, e.terminal("", "error", frag.Detail, st, evalCount))
		}
	}
}

// EncodeBuffered renders buffered mode: the stream is drained completely,
// deltas are concatenated in arrival order, and exactly one aggregate
// object is written only after the invocation has fully finished.
func (e *Encoder) EncodeBuffered(w http.ResponseWriter, st agent.Stream) error {
	var (
		text      strings.Builder
		evalCount int
		reason    = "error"
		detail    = "agent stream ended unexpectedly"
		terminal  bool
	)
	for !terminal {
		frag, err := st.Next()
		if err != nil {
			break
		}
		switch frag.Kind {
		case agent.TextDelta:
			evalCount++
			text.WriteString(frag.Text)
		case agent.Completed:
			reason, detail, terminal = MapDoneReason(frag.Signal), "", true
		case agent.Failed:
			detail, terminal = frag.Detail, true
		}
	}

	content := text.String()
	if detail != "" {
		// Error payload instead of content.
		content = ""
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(e.terminal(content, reason, detail, st, evalCount))
}

// MapDoneReason converts the runtime's completion signal to the closed
// Ollama set {"stop", "length", "error"}. Completion signals describe a
// finished run, so unknown values default to "stop"; "error" is produced
// only by the Failed path.
func MapDoneReason(signal string) string {
	if signal == "error_max_turns" {
		return "length"
	}
	return "stop"
}

// delta builds a done=false incremental record carrying one text delta.
func (e *Encoder) delta(content string) any {
	if e.Shape == ShapeChat {
		return types.ChatChunk{
			Model:     e.Model,
			CreatedAt: e.CreatedAt,
			Message:   types.ChatMessage{Role: "assistant", Content: content},
		}
	}
	return types.GenerateChunk{
		Model:     e.Model,
		CreatedAt: e.CreatedAt,
		Response:  content,
	}
}

// terminal builds the done=true record, with duration metrics computed
// from the stream's invocation start time.
func (e *Encoder) terminal(content, reason, errDetail string, st agent.Stream, evalCount int) any {
	metrics := e.metrics(st, evalCount)
	if e.Shape == ShapeChat {
		return types.ChatResponse{
			Model:       e.Model,
			CreatedAt:   e.CreatedAt,
			Message:     types.ChatMessage{Role: "assistant", Content: content},
			Done:        true,
			DoneReason:  reason,
			Error:       errDetail,
			EvalMetrics: metrics,
		}
	}
	return types.GenerateResponse{
		Model:       e.Model,
		CreatedAt:   e.CreatedAt,
		Response:    content,
		Done:        true,
		DoneReason:  reason,
		Error:       errDetail,
		EvalMetrics: metrics,
	}
}

func (e *Encoder) metrics(st agent.Stream, evalCount int) types.EvalMetrics {
	total := e.now().Sub(st.Started()).Nanoseconds()
	if total < 0 {
		total = 0
	}
	return types.EvalMetrics{
		TotalDuration: total,
		EvalCount:     evalCount,
		EvalDuration:  total,
	}
}

// writeLine marshals one NDJSON record and flushes it before the caller
// pulls the next fragment.
func (e *Encoder) writeLine(w http.ResponseWriter, flusher http.Flusher, chunk any) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}
