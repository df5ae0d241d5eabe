package ws

import (
	"github.com/goccy/go-json"
)

// Client to server event names.
const (
	EventSendMessage = "sendMessage"
	EventStartTyping = "startTyping"
	EventStopTyping  = "stopTyping"

	eventError = "error"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SendMessagePayload is the payload of a sendMessage event.
type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	Image          string `json:"image,omitempty"`
	File           string `json:"file,omitempty"`
}

// TypingPayload is the payload of startTyping and stopTyping events.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
}

// errorPayload reports a rejected client event back to its sender.
type errorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
