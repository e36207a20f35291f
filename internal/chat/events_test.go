package chat_test

import (
	"reflect"
	"testing"

	"github.com/cvscreener/cvchat/internal/chat"
	"github.com/cvscreener/cvchat/internal/sse"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name   string
		frame  sse.Frame
		want   chat.Event
		wantOK bool
	}{
		{
			name:   "token",
			frame:  sse.Frame{Event: "token", Data: `{"text":"ab"}`},
			want:   chat.Token{Text: "ab"},
			wantOK: true,
		},
		{
			name:   "token with malformed payload defaults to empty text",
			frame:  sse.Frame{Event: "token", Data: `{"text":`},
			want:   chat.Token{},
			wantOK: true,
		},
		{
			name:   "token without payload",
			frame:  sse.Frame{Event: "token"},
			want:   chat.Token{},
			wantOK: true,
		},
		{
			name:   "final with sources",
			frame:  sse.Frame{Event: "final", Data: `{"text":"pong","sources":["cv42"]}`},
			want:   chat.Final{Text: "pong", Sources: []string{"cv42"}},
			wantOK: true,
		},
		{
			name:   "final without sources",
			frame:  sse.Frame{Event: "final", Data: `{"text":"pong"}`},
			want:   chat.Final{Text: "pong"},
			wantOK: true,
		},
		{
			name:   "done ignores payload",
			frame:  sse.Frame{Event: "done", Data: `{"status":"done"}`},
			want:   chat.Done{},
			wantOK: true,
		},
		{
			name:   "tool start",
			frame:  sse.Frame{Event: "tool_start", Data: `{"tool":"search","input":{"q":"go"}}`},
			want:   chat.ToolStart{Tool: "search", Input: []byte(`{"q":"go"}`)},
			wantOK: true,
		},
		{
			name:   "tool end",
			frame:  sse.Frame{Event: "tool_end", Data: `{"tool":"search","output":[1]}`},
			want:   chat.ToolEnd{Tool: "search", Output: []byte(`[1]`)},
			wantOK: true,
		},
		{
			name:  "unknown event name is skipped",
			frame: sse.Frame{Event: "heartbeat", Data: `{}`},
		},
		{
			name:  "comment-only frame has no event name",
			frame: sse.Frame{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := chat.Interpret(tt.frame)
			if ok != tt.wantOK {
				t.Fatalf("Interpret() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Interpret() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
