package chat

import (
	"slices"

	"github.com/google/uuid"

	"github.com/cvscreener/cvchat/internal/models"
)

// WelcomeMessageID identifies the fixed greeting that opens every transcript.
const WelcomeMessageID = "welcome"

const welcomeText = "Hi! I'm your CV Screener. Ask me things like: " +
	`"Who has experience with Python?"`

// NewTranscript returns the initial transcript holding only the welcome
// message. An explicit session reset returns the transcript to this state.
func NewTranscript() []models.ChatMessage {
	return []models.ChatMessage{
		{
			ID:      WelcomeMessageID,
			Role:    models.RoleAssistant,
			Content: welcomeText,
		},
	}
}

// AddUserMessage appends a user message with a freshly generated id and its
// full content. User messages are never streamed.
func AddUserMessage(list []models.ChatMessage, text string) []models.ChatMessage {
	out := slices.Clone(list)
	return append(out, models.ChatMessage{
		ID:      uuid.New().String(),
		Role:    models.RoleUser,
		Content: text,
	})
}

// AddAssistantPlaceholder appends an empty assistant message with the given
// id. The placeholder is the open slot that later token and final events
// target.
func AddAssistantPlaceholder(list []models.ChatMessage, id string) []models.ChatMessage {
	out := slices.Clone(list)
	return append(out, models.ChatMessage{
		ID:   id,
		Role: models.RoleAssistant,
	})
}

// AppendAssistant concatenates chunk onto the content of the message with the
// given id. An unknown id is a no-op; a stale callback after a reset must not
// fail.
func AppendAssistant(list []models.ChatMessage, id, chunk string) []models.ChatMessage {
	out := slices.Clone(list)
	for i := range out {
		if out[i].ID == id {
			out[i].Content += chunk
			break
		}
	}
	return out
}

// FinalizeAssistant replaces the message's accumulated content wholesale with
// fullText and attaches sources, closing the open slot. Applying it twice
// with the same arguments yields the same transcript.
func FinalizeAssistant(list []models.ChatMessage, id, fullText string, sources []string) []models.ChatMessage {
	out := slices.Clone(list)
	for i := range out {
		if out[i].ID == id {
			out[i].Content = fullText
			out[i].Sources = sources
			break
		}
	}
	return out
}

// SetAssistantError replaces the message's content with a user-visible error
// string, closing the open slot.
func SetAssistantError(list []models.ChatMessage, id, errorText string) []models.ChatMessage {
	out := slices.Clone(list)
	for i := range out {
		if out[i].ID == id {
			out[i].Content = errorText
			break
		}
	}
	return out
}
