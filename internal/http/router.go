// Package http exposes the gateway's REST and websocket surface.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-chat-assistant-service/internal/chat"
	"ai-chat-assistant-service/internal/events"
	"ai-chat-assistant-service/internal/models"
	"ai-chat-assistant-service/internal/observability"
	"ai-chat-assistant-service/internal/observability/logging"
	"ai-chat-assistant-service/internal/observability/metrics"
	"ai-chat-assistant-service/internal/speech"
)

// ProviderFactory creates one recognizer per dictation connection. Nil
// means recognition runs client-side and events arrive over the wire.
type ProviderFactory func() speech.Provider

// Handler serves the chat and dictation endpoints. Conversations are
// kept in memory per client id for the lifetime of the process.
type Handler struct {
	chat      *chat.Client
	publisher *events.Publisher
	provider  ProviderFactory
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	upgrader  websocket.Upgrader

	mu    sync.Mutex
	convs map[string]*chat.Conversation
}

// NewHandler creates the gateway handler.
func NewHandler(chatClient *chat.Client, publisher *events.Publisher, provider ProviderFactory) *Handler {
	return &Handler{
		chat:      chatClient,
		publisher: publisher,
		provider:  provider,
		metrics:   metrics.DefaultMetrics,
		logger:    logging.WithComponent("http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		convs: make(map[string]*chat.Conversation),
	}
}

// Routes builds the chi router for the gateway.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger(h.metrics))

	ok := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(body))
		}
	}
	r.Get("/healthz", ok("ok"))
	r.Get("/v1/liveness", ok("ok"))
	r.Get("/v1/readiness", ok("ready"))

	r.Route("/v1/chat", func(r chi.Router) {
		r.Post("/turns", h.handleTurn)
		r.Get("/messages", h.handleMessages)
		r.Post("/new", h.handleNewChat)
		r.Post("/sessions", h.handleCreateSession)
		r.Get("/sessions", h.handleListSessions)
		r.Get("/sessions/{sessionID}", h.handleLoadSession)
		r.Delete("/sessions/{sessionID}", h.handleDeleteSession)
	})

	r.Get("/v1/dictation", h.handleDictation)

	return r
}

// conversation returns the client's conversation, creating it on first use.
func (h *Handler) conversation(clientID string) *chat.Conversation {
	h.mu.Lock()
	defer h.mu.Unlock()
	conv, ok := h.convs[clientID]
	if !ok {
		conv = chat.NewConversation(clientID)
		h.convs[clientID] = conv
	}
	return conv
}

// clientID resolves the client identity from header, query or body
// value, minting a fresh one when the request carries none.
func clientID(r *http.Request, bodyID string) string {
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return id
	}
	if id := r.URL.Query().Get("clientId"); id != "" {
		return id
	}
	if bodyID != "" {
		return bodyID
	}
	return uuid.NewString()
}

type turnRequest struct {
	ClientID string `json:"clientId"`
	Input    string `json:"input"`
}

type turnResponse struct {
	ClientID  string `json:"clientId"`
	SessionID string `json:"sessionId"`
	MessageID int64  `json:"messageId"`
	Text      string `json:"text"`
	Source    string `json:"source"`
}

// handleTurn runs one chat turn. With Accept: text/event-stream the
// assembled bot text is re-emitted incrementally; otherwise the final
// result is returned as JSON.
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	id := clientID(r, req.ClientID)
	conv := h.conversation(id)

	if wantsStream(r) {
		h.streamTurn(w, r, conv, id, req.Input)
		return
	}

	res, err := h.chat.Send(r.Context(), conv, req.Input, nil)
	if err != nil {
		if errors.Is(err, chat.ErrSuperseded) {
			writeError(w, http.StatusConflict, "superseded by a newer turn")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, turnResponse{
		ClientID:  id,
		SessionID: conv.SessionID(),
		MessageID: res.MessageID,
		Text:      res.Text,
		Source:    res.Source,
	})
}

func wantsStream(r *http.Request) bool {
	return r.Header.Get("Accept") == "text/event-stream"
}

// streamTurn re-emits each bot message revision as an SSE data frame,
// mirroring the upstream framing so widget clients can reuse their
// decoder.
func (h *Handler) streamTurn(w http.ResponseWriter, r *http.Request, conv *chat.Conversation, id, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	var (
		emitMu sync.Mutex
		last   string
	)
	emit := func(v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			return
		}
		emitMu.Lock()
		fmt.Fprintf(w, "data: %s\n", payload)
		flusher.Flush()
		emitMu.Unlock()
	}

	res, err := h.chat.Send(r.Context(), conv, message, func(messageID int64, text string) {
		// Forward only the newly assembled suffix.
		chunk := text
		if len(last) <= len(text) && text[:len(last)] == last {
			chunk = text[len(last):]
		}
		last = text
		emit(map[string]any{"chunk": chunk})
	})
	if err != nil {
		emit(map[string]any{"error": err.Error()})
		return
	}

	// Fallback and apology texts never went through onUpdate chunks.
	if res.Text != last {
		emit(map[string]any{"chunk": res.Text})
	}
	emit(map[string]any{
		"done":      true,
		"source":    res.Source,
		"sessionId": conv.SessionID(),
		"messageId": res.MessageID,
	})
}

type messagesResponse struct {
	ClientID  string               `json:"clientId"`
	SessionID string               `json:"sessionId"`
	Messages  []models.ChatMessage `json:"messages"`
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := clientID(r, "")
	conv := h.conversation(id)
	writeJSON(w, http.StatusOK, messagesResponse{
		ClientID:  id,
		SessionID: conv.SessionID(),
		Messages:  conv.Messages(),
	})
}

func (h *Handler) handleNewChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"clientId"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	id := clientID(r, req.ClientID)

	h.chat.NewChat(r.Context(), h.conversation(id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"clientId"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	id := clientID(r, req.ClientID)

	sid, err := h.chat.StartSession(r.Context(), h.conversation(id))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"clientId":  id,
		"sessionId": sid,
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.chat.Sessions(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if sessions == nil {
		sessions = []models.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleLoadSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	id := clientID(r, "")
	conv := h.conversation(id)

	sess, err := h.chat.LoadSession(r.Context(), conv, sessionID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{
		ClientID:  id,
		SessionID: sess.SessionID,
		Messages:  conv.Messages(),
	})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	id := clientID(r, "")

	if err := h.chat.DeleteSession(r.Context(), h.conversation(id), sessionID); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
