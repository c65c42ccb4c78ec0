package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/health-assistant/backend/internal/events"
	"github.com/zhouzirui/health-assistant/backend/internal/model/chat"
)

var ErrNoSuchMessage = errors.New("message not found")

const noSpeaker = -1

// SpeakingChange is published whenever the speaking index moves.
type SpeakingChange struct {
	Index int `json:"index"`
}

// History is the append-only conversation log. The speaking flag is derived
// from a single index, so at most one message reports IsSpeaking.
type History struct {
	mu       sync.RWMutex
	messages []chat.Message
	speaking int
	events   events.Publisher
}

// NewHistory creates an empty history.
func NewHistory(publisher events.Publisher) *History {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &History{
		messages: make([]chat.Message, 0, 16),
		speaking: noSpeaker,
		events:   publisher,
	}
}

// Append stores msg with a fresh ID and returns its index.
func (h *History) Append(msg chat.Message) (int, chat.Message) {
	msg.ID = uuid.NewString()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.IsSpeaking = false

	h.mu.Lock()
	h.messages = append(h.messages, msg)
	idx := len(h.messages) - 1
	h.mu.Unlock()

	h.events.Publish(events.HistoryAppended, map[string]any{"index": idx, "message": msg})
	return idx, msg
}

// List returns a copy of every message in display order.
func (h *History) List() []chat.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	copied := make([]chat.Message, len(h.messages))
	copy(copied, h.messages)
	if h.speaking != noSpeaker {
		copied[h.speaking].IsSpeaking = true
	}
	return copied
}

// Get returns the message at index.
func (h *History) Get(index int) (chat.Message, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if index < 0 || index >= len(h.messages) {
		return chat.Message{}, ErrNoSuchMessage
	}
	msg := h.messages[index]
	msg.IsSpeaking = index == h.speaking
	return msg, nil
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// SetSpeaking marks index as the only speaking message.
func (h *History) SetSpeaking(index int) error {
	h.mu.Lock()
	if index < 0 || index >= len(h.messages) {
		h.mu.Unlock()
		return ErrNoSuchMessage
	}
	h.speaking = index
	h.mu.Unlock()

	h.events.Publish(events.HistorySpeaking, SpeakingChange{Index: index})
	return nil
}

// ClearSpeaking clears the flag only if index is still the speaking message.
func (h *History) ClearSpeaking(index int) {
	h.mu.Lock()
	if h.speaking != index {
		h.mu.Unlock()
		return
	}
	h.speaking = noSpeaker
	h.mu.Unlock()

	h.events.Publish(events.HistorySpeaking, SpeakingChange{Index: noSpeaker})
}

// ClearAllSpeaking clears the flag on every message.
func (h *History) ClearAllSpeaking() {
	h.mu.Lock()
	changed := h.speaking != noSpeaker
	h.speaking = noSpeaker
	h.mu.Unlock()

	if changed {
		h.events.Publish(events.HistorySpeaking, SpeakingChange{Index: noSpeaker})
	}
}

// Speaking returns the index of the message being read aloud.
func (h *History) Speaking() (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.speaking, h.speaking != noSpeaker
}
