package advisor

import (
	"context"
	"strings"
	"testing"
)

type capture struct {
	deltas      []string
	completions int
	finalText   string
	finalRecs   []Recommendation
}

func (c *capture) callbacks() AssemblerCallbacks {
	return AssemblerCallbacks{
		OnContent: func(delta string) {
			c.deltas = append(c.deltas, delta)
		},
		OnComplete: func(text string, recs []Recommendation) {
			c.completions++
			c.finalText = text
			c.finalRecs = recs
		},
	}
}

func feedLines(a *Assembler, lines ...string) {
	for _, line := range lines {
		a.Feed([]byte(line + "\n"))
	}
}

func TestAssemblesContentAcrossFrames(t *testing.T) {
	rec := &capture{}
	a := NewAssembler(rec.callbacks())

	feedLines(a,
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`data: [DONE]`,
	)

	if a.Text() != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", a.Text())
	}
	if rec.completions != 1 {
		t.Fatalf("completion must fire exactly once, fired %d times", rec.completions)
	}
	if strings.Join(rec.deltas, "") != "Hello" {
		t.Fatalf("deltas must reassemble the text: %v", rec.deltas)
	}
}

func TestIgnoresHeartbeatsAndBlankLines(t *testing.T) {
	rec := &capture{}
	a := NewAssembler(rec.callbacks())

	feedLines(a,
		``,
		`: keep-alive`,
		`data: {"choices":[{"delta":{"content":"Hi"}}]}`,
		``,
		`data: [DONE]`,
	)

	if a.Text() != "Hi" {
		t.Fatalf("expected %q, got %q", "Hi", a.Text())
	}
}

func TestToolArgumentsSplitAcrossFramesParseOnce(t *testing.T) {
	rec := &capture{}
	a := NewAssembler(rec.callbacks())

	feedLines(a,
		`data: {"choices":[{"delta":{"tool_calls":[{"function":{"arguments":"{\"recommendations\":[{\"phone_id\":"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"function":{"arguments":"\"x\",\"reason\":"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"function":{"arguments":"\"y\"}]}"}}]}}]}`,
		`data: [DONE]`,
	)

	recs := a.Recommendations()
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].PhoneID != "x" || recs[0].Reason != "y" {
		t.Fatalf("unexpected recommendation: %+v", recs[0])
	}
}

func TestMalformedToolArgumentsFailSoft(t *testing.T) {
	rec := &capture{}
	a := NewAssembler(rec.callbacks())

	feedLines(a,
		`data: {"choices":[{"delta":{"content":"Here you go."}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"function":{"arguments":"{\"recommendations\": [{"}}]}}]}`,
		`data: [DONE]`,
	)

	if len(a.Recommendations()) != 0 {
		t.Fatalf("malformed tool payload must yield no recommendations: %v", a.Recommendations())
	}
	if a.Text() != "Here you go." {
		t.Fatalf("prose must survive a bad tool payload: %q", a.Text())
	}
	if rec.completions != 1 {
		t.Fatalf("completion must still fire once, fired %d times", rec.completions)
	}
}

func TestMultiByteRuneSplitAcrossChunks(t *testing.T) {
	rec := &capture{}
	a := NewAssembler(rec.callbacks())

	frame := []byte(`data: {"choices":[{"delta":{"content":"₹20k"}}]}` + "\n")
	// The rupee sign is three bytes; split the frame in the middle of it.
	splitAt := strings.Index(string(frame), "₹") + 1
	a.Feed(frame[:splitAt])
	a.Feed(frame[splitAt:])
	a.Feed([]byte("data: [DONE]\n"))

	if a.Text() != "₹20k" {
		t.Fatalf("expected %q, got %q", "₹20k", a.Text())
	}
}

func TestLineSplitMidJSONIsRebuffered(t *testing.T) {
	rec := &capture{}
	a := NewAssembler(rec.callbacks())

	// A proxy inserted a newline inside one JSON frame.
	feedLines(a,
		`data: {"choices":[{"delta":{"con`,
		`tent":"Hi"}}]}`,
		`data: [DONE]`,
	)

	if a.Text() != "Hi" {
		t.Fatalf("split frame must reassemble: %q", a.Text())
	}
	if rec.completions != 1 {
		t.Fatalf("completion fired %d times", rec.completions)
	}
}

func TestFramesAfterDoneAreIgnored(t *testing.T) {
	rec := &capture{}
	a := NewAssembler(rec.callbacks())

	feedLines(a,
		`data: {"choices":[{"delta":{"content":"Hi"}}]}`,
		`data: [DONE]`,
		`data: {"choices":[{"delta":{"content":"late"}}]}`,
	)

	if a.Text() != "Hi" {
		t.Fatalf("frames after the sentinel must be dropped: %q", a.Text())
	}
	if rec.completions != 1 {
		t.Fatalf("completion fired %d times", rec.completions)
	}
}

func TestConsumeFinalizesOnEOFWithoutSentinel(t *testing.T) {
	rec := &capture{}
	a := NewAssembler(rec.callbacks())

	stream := strings.NewReader(`data: {"choices":[{"delta":{"content":"partial"}}]}` + "\n")
	if err := a.Consume(context.Background(), stream); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if a.Text() != "partial" {
		t.Fatalf("expected %q, got %q", "partial", a.Text())
	}
	if rec.completions != 1 {
		t.Fatalf("EOF must finalize exactly once, fired %d times", rec.completions)
	}
}

func TestConsumeHonorsContextCancellation(t *testing.T) {
	rec := &capture{}
	a := NewAssembler(rec.callbacks())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Consume(ctx, strings.NewReader("data: [DONE]\n"))
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
	if rec.completions != 1 {
		t.Fatalf("cancellation must still finalize, fired %d times", rec.completions)
	}
}
