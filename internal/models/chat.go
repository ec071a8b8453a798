// Package models defines the data structures for chat and dictation events.
package models

import "time"

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatMessage is one entry in a conversation.
type ChatMessage struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionSummary is one row of the session list returned by the history backend.
type SessionSummary struct {
	SessionID    string    `json:"sessionId"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// StoredMessage is a message as persisted by the history backend.
type StoredMessage struct {
	MessageID string    `json:"messageId"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a full conversation record loaded from the history backend.
type Session struct {
	SessionID string          `json:"sessionId"`
	Title     string          `json:"title"`
	Messages  []StoredMessage `json:"messages"`
}

// DictationFinal is published when a dictation buffer commits a final segment.
type DictationFinal struct {
	EventType string `json:"eventType"`
	ClientID  string `json:"clientId"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
}

// ChatTurn is published after a completed assistant turn.
type ChatTurn struct {
	EventType string `json:"eventType"`
	ClientID  string `json:"clientId"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	UserText  string `json:"userText"`
	BotText   string `json:"botText"`
	Source    string `json:"source"`
}

// Turn sources for ChatTurn events.
const (
	TurnSourceStream   = "stream"
	TurnSourceFallback = "fallback"
)
