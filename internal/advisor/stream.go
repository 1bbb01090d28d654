package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
)

const doneSentinel = "[DONE]"

// Recommendation is one structured phone suggestion extracted from a tool call.
type Recommendation struct {
	PhoneID string `json:"phone_id"`
	Reason  string `json:"reason"`
}

// AssemblerCallbacks receive the incrementally assembled response.
type AssemblerCallbacks struct {
	// OnContent fires for every text delta as it arrives.
	OnContent func(delta string)
	// OnComplete fires exactly once with the full text and any recommendations.
	OnComplete func(text string, recommendations []Recommendation)
}

// Assembler consumes a chat-completions event stream and reconstructs the
// assistant text plus the deferred tool-call payload. The two arrive
// interleaved: text fragments render immediately, while tool-call argument
// fragments accumulate and are parsed once, at stream end.
type Assembler struct {
	callbacks AssemblerCallbacks

	buf      []byte
	partial  string
	text     strings.Builder
	toolArgs strings.Builder

	completed       bool
	recommendations []Recommendation
}

type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
}

type toolPayload struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// NewAssembler builds an assembler with the provided callbacks. Nil callbacks
// are allowed and skipped.
func NewAssembler(callbacks AssemblerCallbacks) *Assembler {
	return &Assembler{callbacks: callbacks}
}

// Consume reads the stream to completion, feeding every chunk through the
// assembler. It honors context cancellation between reads and always finalizes
// the assembly, even when the stream ends without a done sentinel.
func (a *Assembler) Consume(ctx context.Context, stream io.Reader) error {
	chunk := make([]byte, 4096)
	for !a.completed {
		if err := ctx.Err(); err != nil {
			a.Finish()
			return err
		}
		n, err := stream.Read(chunk)
		if n > 0 {
			a.Feed(chunk[:n])
		}
		if err != nil {
			a.Finish()
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
	return nil
}

// Feed processes one raw chunk. Splitting happens on newline bytes, which is
// safe for UTF-8: a multi-byte sequence never contains 0x0A, so characters are
// never cut at a processed boundary even when chunks arrive mid-rune.
func (a *Assembler) Feed(chunk []byte) {
	if a.completed {
		return
	}
	a.buf = append(a.buf, chunk...)

	for !a.completed {
		idx := bytes.IndexByte(a.buf, '\n')
		if idx < 0 {
			return
		}
		line := strings.TrimSuffix(string(a.buf[:idx]), "\r")
		a.buf = a.buf[idx+1:]
		a.handleLine(line)
	}
}

// Finish finalizes the assembly: the accumulated tool-argument string is
// parsed once, and a malformed payload yields no recommendations rather than
// an error. Safe to call more than once.
func (a *Assembler) Finish() {
	if a.completed {
		return
	}
	a.completed = true

	if raw := a.toolArgs.String(); raw != "" {
		var payload toolPayload
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			a.recommendations = payload.Recommendations
		}
	}

	if a.callbacks.OnComplete != nil {
		a.callbacks.OnComplete(a.text.String(), a.Recommendations())
	}
}

// Text returns the assistant text assembled so far.
func (a *Assembler) Text() string {
	return a.text.String()
}

// Recommendations returns the parsed tool payload, empty until completion.
func (a *Assembler) Recommendations() []Recommendation {
	if a.recommendations == nil {
		return []Recommendation{}
	}
	return a.recommendations
}

// Completed reports whether the stream has been finalized.
func (a *Assembler) Completed() bool {
	return a.completed
}

func (a *Assembler) handleLine(line string) {
	// Heartbeats and comments only matter outside of a partial-line recovery.
	if a.partial == "" {
		if line == "" || strings.HasPrefix(line, ":") {
			return
		}
		if !strings.HasPrefix(line, "data:") {
			return
		}
	}

	full := a.partial + line
	payload := strings.TrimSpace(strings.TrimPrefix(full, "data:"))

	if payload == doneSentinel {
		a.partial = ""
		a.Finish()
		return
	}

	var frame streamFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		// A proxy can split one JSON object across line boundaries. Keep the
		// fragment and merge the next line into it instead of dropping data.
		a.partial = full
		return
	}
	a.partial = ""

	if len(frame.Choices) == 0 {
		return
	}
	delta := frame.Choices[0].Delta
	if delta.Content != "" {
		a.text.WriteString(delta.Content)
		if a.callbacks.OnContent != nil {
			a.callbacks.OnContent(delta.Content)
		}
	}
	for _, call := range delta.ToolCalls {
		if call.Function.Arguments != "" {
			a.toolArgs.WriteString(call.Function.Arguments)
		}
	}
}
