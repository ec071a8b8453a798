package chat

import (
	"context"
	"sync"
	"time"

	"ai-chat-assistant-service/internal/models"
)

// Conversation holds the per-client chat state: the message list, the
// active backend session and the token guarding against stale streams.
type Conversation struct {
	mu        sync.Mutex
	clientID  string
	sessionID string
	messages  []models.ChatMessage
	nextID    int64

	// turn increments on every submitted input. Frames from an earlier
	// turn's stream carry a smaller token and are discarded.
	turn       uint64
	cancelPrev context.CancelFunc
}

// NewConversation creates an empty conversation for the given client.
func NewConversation(clientID string) *Conversation {
	return &Conversation{clientID: clientID}
}

// ClientID returns the owning client identifier.
func (c *Conversation) ClientID() string {
	return c.clientID
}

// SessionID returns the backend session bound to this conversation,
// empty when no session exists yet.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// BindSession attaches a backend session to the conversation.
func (c *Conversation) BindSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
}

// Append adds a message and returns its identifier.
func (c *Conversation) Append(text string, sender models.Sender) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(text, sender)
}

func (c *Conversation) appendLocked(text string, sender models.Sender) int64 {
	c.nextID++
	c.messages = append(c.messages, models.ChatMessage{
		ID:        c.nextID,
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
	})
	return c.nextID
}

// Update replaces the text of an existing message in place. Returns
// false when the identifier is unknown.
func (c *Conversation) Update(id int64, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Text = text
			return true
		}
	}
	return false
}

// Messages returns a copy of the message list.
func (c *Conversation) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Replace swaps the whole message list, used when loading a stored
// session. Identifiers are reassigned so later updates stay unique.
func (c *Conversation) Replace(sessionID string, stored []models.StoredMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.messages = c.messages[:0]
	c.nextID = 0
	for _, m := range stored {
		c.appendLocked(m.Text, m.Sender)
	}
}

// Reset clears messages and the bound session.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = ""
	c.messages = nil
	c.nextID = 0
}

// beginTurn cancels any in-flight stream from a previous turn and
// returns the new turn token together with a context derived from the
// parent that the next turn will cancel.
func (c *Conversation) beginTurn(parent context.Context) (uint64, context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelPrev != nil {
		c.cancelPrev()
	}
	c.turn++
	ctx, cancel := context.WithCancel(parent)
	c.cancelPrev = cancel
	return c.turn, ctx
}

// currentTurn reports whether the token still belongs to the newest turn.
func (c *Conversation) currentTurn(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn == token
}
