package discord

import (
	"log/slog"
	"sync"
)

// reactionBuffer is the per-subscriber backlog before events are dropped.
const reactionBuffer = 16

// ReactionHub routes reaction events to the prompt waiting on that message.
// Dispatch never blocks: the gateway goroutine must stay free for other events.
type ReactionHub struct {
	mu     sync.Mutex
	subs   map[string]chan ReactionEvent
	logger *slog.Logger
}

// NewReactionHub creates an empty hub.
func NewReactionHub(logger *slog.Logger) *ReactionHub {
	return &ReactionHub{
		subs:   make(map[string]chan ReactionEvent),
		logger: logger.With("component", "reaction_hub"),
	}
}

// Subscribe registers interest in reactions on messageID. The returned
// cancel func must be called once the caller stops reading.
// A second subscription for the same message replaces the first.
func (h *ReactionHub) Subscribe(messageID string) (<-chan ReactionEvent, func()) {
	ch := make(chan ReactionEvent, reactionBuffer)

	h.mu.Lock()
	h.subs[messageID] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.subs[messageID] == ch {
			delete(h.subs, messageID)
		}
	}
	return ch, cancel
}

// Dispatch delivers ev to the subscriber of its message, if any.
func (h *ReactionHub) Dispatch(ev ReactionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subs[ev.MessageID]
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
		recordReactionDropped()
		h.logger.Warn("reaction dropped, subscriber buffer full",
			"message_id", ev.MessageID,
			"user_id", ev.UserID,
		)
	}
}

// Len returns the number of active subscriptions.
func (h *ReactionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
