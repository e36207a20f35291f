package chat_test

import (
	"reflect"
	"testing"

	"github.com/cvscreener/cvchat/internal/chat"
	"github.com/cvscreener/cvchat/internal/models"
)

func TestNewTranscript(t *testing.T) {
	list := chat.NewTranscript()
	if len(list) != 1 {
		t.Fatalf("NewTranscript() returned %d messages, want 1", len(list))
	}
	if list[0].ID != chat.WelcomeMessageID {
		t.Errorf("welcome message id = %q, want %q", list[0].ID, chat.WelcomeMessageID)
	}
	if list[0].Role != models.RoleAssistant {
		t.Errorf("welcome message role = %q, want assistant", list[0].Role)
	}
}

func TestAddUserMessage(t *testing.T) {
	orig := chat.NewTranscript()
	list := chat.AddUserMessage(orig, "hello")

	if len(orig) != 1 {
		t.Errorf("original transcript mutated, len = %d", len(orig))
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	last := list[1]
	if last.Role != models.RoleUser || last.Content != "hello" {
		t.Errorf("appended message = %+v", last)
	}
	if last.ID == "" {
		t.Error("user message has no id")
	}

	again := chat.AddUserMessage(orig, "hello")
	if again[1].ID == last.ID {
		t.Error("message ids are not unique")
	}
}

func TestAppendAssistant(t *testing.T) {
	list := chat.AddAssistantPlaceholder(chat.NewTranscript(), "a1")

	list = chat.AppendAssistant(list, "a1", "pon")
	list = chat.AppendAssistant(list, "a1", "g")
	if got := list[1].Content; got != "pong" {
		t.Errorf("content = %q, want %q", got, "pong")
	}
}

func TestAppendAssistantUnknownID(t *testing.T) {
	list := chat.AddAssistantPlaceholder(chat.NewTranscript(), "a1")

	got := chat.AppendAssistant(list, "missing", "chunk")
	if !reflect.DeepEqual(got, list) {
		t.Errorf("unknown id changed the transcript: %+v", got)
	}
}

func TestFinalizeAssistantIdempotent(t *testing.T) {
	list := chat.AddAssistantPlaceholder(chat.NewTranscript(), "a1")
	list = chat.AppendAssistant(list, "a1", "partial answ")

	sources := []string{"cv42"}
	once := chat.FinalizeAssistant(list, "a1", "full answer", sources)
	twice := chat.FinalizeAssistant(once, "a1", "full answer", sources)

	if once[1].Content != "full answer" {
		t.Errorf("content = %q, want replacement, not append", once[1].Content)
	}
	if !reflect.DeepEqual(once[1].Sources, sources) {
		t.Errorf("sources = %v, want %v", once[1].Sources, sources)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("finalize is not idempotent: %+v vs %+v", once, twice)
	}
}

func TestSetAssistantError(t *testing.T) {
	list := chat.AddAssistantPlaceholder(chat.NewTranscript(), "a1")
	list = chat.AppendAssistant(list, "a1", "half a rep")

	list = chat.SetAssistantError(list, "a1", "something broke")
	if list[1].Content != "something broke" {
		t.Errorf("content = %q, want the error text", list[1].Content)
	}
}
