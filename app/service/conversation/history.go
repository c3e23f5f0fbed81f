package conversation

import (
	"time"

	"phoenix/app/client/rest"
)

// Ten entries = five exchanges, enough context for follow-up questions
// without ballooning the chat payload.
const historySize = 10

type History struct {
	messages []rest.ChatMessage
}

func (h *History) add(role, text string) {
	msg := rest.ChatMessage{
		Role:      role,
		Content:   text,
		Timestamp: time.Now(),
	}

	if len(h.messages) >= historySize {
		h.messages = append(h.messages[1:], msg)
	} else {
		h.messages = append(h.messages, msg)
	}
}

func (h *History) snapshot() []rest.ChatMessage {
	out := make([]rest.ChatMessage, len(h.messages))
	copy(out, h.messages)

	return out
}

func (h *History) Len() int {
	return len(h.messages)
}
