package chat

import (
	"encoding/json"

	"github.com/cvscreener/cvchat/internal/sse"
)

// Event names recognized on the run event feed.
const (
	EventToken     = "token"
	EventFinal     = "final"
	EventDone      = "done"
	EventToolStart = "tool_start"
	EventToolEnd   = "tool_end"
)

// Event is one interpreted run-lifecycle event. The concrete type is the
// discriminant; the set is closed and unknown feed events never reach it.
type Event interface {
	runEvent()
}

// Token carries an incremental chunk of assistant text to append to the open
// placeholder message.
type Token struct {
	Text string
}

// Final carries the complete assistant text, which replaces whatever has
// accumulated, plus optional reference identifiers.
type Final struct {
	Text    string
	Sources []string
}

// Done signals run completion.
type Done struct{}

// ToolStart reports the beginning of a tool invocation. Tool events are
// surfaced for observability only and never touch the transcript.
type ToolStart struct {
	Tool  string
	Input json.RawMessage
}

// ToolEnd reports the end of a tool invocation.
type ToolEnd struct {
	Tool   string
	Output json.RawMessage
}

func (Token) runEvent()     {}
func (Final) runEvent()     {}
func (Done) runEvent()      {}
func (ToolStart) runEvent() {}
func (ToolEnd) runEvent()   {}

// eventPayload covers the union of JSON fields the feed's events may carry.
type eventPayload struct {
	Text    string          `json:"text"`
	Sources []string        `json:"sources"`
	Tool    string          `json:"tool"`
	Input   json.RawMessage `json:"input"`
	Output  json.RawMessage `json:"output"`
}

// Interpret maps a decoded frame to a typed run event. Frames with an
// unrecognized event name yield (nil, false) and must be skipped by the
// caller. A malformed JSON payload degrades to zero-value fields; a single
// bad frame never aborts the stream.
func Interpret(f sse.Frame) (Event, bool) {
	var p eventPayload
	_ = json.Unmarshal([]byte(f.Data), &p)

	switch f.Event {
	case EventToken:
		return Token{Text: p.Text}, true
	case EventFinal:
		return Final{Text: p.Text, Sources: p.Sources}, true
	case EventDone:
		return Done{}, true
	case EventToolStart:
		return ToolStart{Tool: p.Tool, Input: p.Input}, true
	case EventToolEnd:
		return ToolEnd{Tool: p.Tool, Output: p.Output}, true
	default:
		return nil, false
	}
}
