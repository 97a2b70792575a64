package models

// Speaker identifies the author of a chat message.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// ChatMessage is one turn of a conversation. Conversations live in the
// browser session only; the server never persists them.
type ChatMessage struct {
	Role    Speaker `json:"role"`
	Content string  `json:"content"`
}
