// Package chat drives assistant turns: it streams responses from the
// assistant backend, falls back to the non-streaming endpoint when the
// stream fails, and keeps each conversation bound to a history session.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-chat-assistant-service/internal/events"
	"ai-chat-assistant-service/internal/history"
	"ai-chat-assistant-service/internal/models"
	"ai-chat-assistant-service/internal/observability/logging"
	"ai-chat-assistant-service/internal/observability/metrics"
	"ai-chat-assistant-service/internal/sessionstore"
	"ai-chat-assistant-service/internal/stream"
	"ai-chat-assistant-service/internal/synth"
)

// Endpoint paths on the assistant backend.
const (
	streamPath       = "/api/chat/stream"
	fallbackPath     = "/api/ai/chat"
	saveResponsePath = "/api/ai/chat/save-response"
)

// User-facing texts shown when the backend cannot produce an answer.
const (
	apologyConnection  = "Sorry, I'm having trouble connecting. Please check your internet connection and try again."
	apologyUnavailable = "Sorry, I'm having trouble responding right now. Please try again."
)

// ErrSuperseded is returned when a newer turn started while this one
// was still reading its stream.
var ErrSuperseded = errors.New("turn superseded by a newer one")

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	MessageID int64
	Text      string
	Source    string // models.TurnSourceStream or models.TurnSourceFallback
}

// UpdateFunc receives every in-place revision of the bot message while
// a stream is being assembled.
type UpdateFunc func(messageID int64, text string)

// Client runs chat turns against the assistant backend. It is stateless
// with respect to conversations and safe for concurrent use.
type Client struct {
	httpClient    *http.Client
	assistantBase string
	apiBase       string
	language      string
	respLanguage  string

	history   *history.Client
	store     sessionstore.Store
	synth     synth.Provider
	publisher *events.Publisher
	metrics   *metrics.Metrics

	chunkDelay time.Duration
	logger     zerolog.Logger
}

// Options configure a Client.
type Options struct {
	AssistantBaseURL string
	APIBaseURL       string
	RequestTimeout   time.Duration
	ChunkDelay       time.Duration
	Language         string
	ResponseLanguage string

	History   *history.Client
	Store     sessionstore.Store
	Synth     synth.Provider
	Publisher *events.Publisher
}

// New creates a chat client.
func New(opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.Synth == nil {
		opts.Synth = synth.Null{}
	}
	return &Client{
		httpClient:    &http.Client{Timeout: opts.RequestTimeout},
		assistantBase: strings.TrimRight(opts.AssistantBaseURL, "/"),
		apiBase:       strings.TrimRight(opts.APIBaseURL, "/"),
		language:      opts.Language,
		respLanguage:  opts.ResponseLanguage,
		history:       opts.History,
		store:         opts.Store,
		synth:         opts.Synth,
		publisher:     opts.Publisher,
		metrics:       metrics.DefaultMetrics,
		chunkDelay:    opts.ChunkDelay,
		logger:        logging.WithComponent("chat"),
	}
}

// Send submits one user input as a turn. It appends the user message,
// streams the assistant response into a single bot message and falls
// back to the non-streaming endpoint when the stream fails. onUpdate
// may be nil; when set it is called for every revision of the bot
// message text.
func (c *Client) Send(ctx context.Context, conv *Conversation, input string, onUpdate UpdateFunc) (*TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("empty input")
	}

	token, tctx := conv.beginTurn(ctx)
	c.metrics.RecordTurnStart()
	start := time.Now()

	conv.Append(input, models.SenderUser)

	sessionID := c.ensureSession(tctx, conv)
	logger := logging.WithTurn(conv.ClientID(), sessionID, token)

	// One bot message per turn, created lazily on the first text we
	// have to show.
	var botID int64
	setBot := func(text string) {
		if botID == 0 {
			botID = conv.Append(text, models.SenderBot)
		} else {
			conv.Update(botID, text)
		}
		if onUpdate != nil {
			onUpdate(botID, text)
		}
	}

	text, streamErr := c.streamTurn(tctx, conv, token, sessionID, input, setBot, logger)
	source := models.TurnSourceStream

	if streamErr != nil {
		if errors.Is(streamErr, ErrSuperseded) {
			c.metrics.RecordStaleStream()
			c.metrics.TurnsActive.Dec()
			logger.Debug().Msg("Stream superseded by newer turn")
			return nil, ErrSuperseded
		}
		logger.Warn().Err(streamErr).Msg("Stream failed, falling back to non-streaming endpoint")

		var fbErr error
		text, fbErr = c.fallbackTurn(tctx, sessionID, input)
		source = models.TurnSourceFallback
		if fbErr != nil {
			c.metrics.RecordFallback("failure")
			logger.Error().Err(fbErr).Msg("Fallback request failed")
			setBot(apologyConnection)
			c.metrics.RecordTurnEnd("", time.Since(start).Seconds())
			return &TurnResult{MessageID: botID, Text: apologyConnection, Source: source}, nil
		}
		c.metrics.RecordFallback("success")
		setBot(text)
	}

	c.metrics.RecordTurnEnd(source, time.Since(start).Seconds())
	logger.Info().
		Str("source", source).
		Int("responseLength", len(text)).
		Msg("Turn completed")

	c.speak(text)
	c.persistResponse(sessionID, text, logger)
	c.publishTurn(conv, sessionID, input, text, source)

	return &TurnResult{MessageID: botID, Text: text, Source: source}, nil
}

// streamTurn performs the streaming request and applies chunks to the
// bot message as they arrive. It returns the assembled text or an error
// when the stream cannot produce a usable response.
func (c *Client) streamTurn(ctx context.Context, conv *Conversation, token uint64, sessionID, input string, setBot func(string), logger zerolog.Logger) (string, error) {
	body, err := json.Marshal(c.turnPayload(input, sessionID))
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.assistantBase+streamPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if !conv.currentTurn(token) {
			return "", ErrSuperseded
		}
		return "", fmt.Errorf("stream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stream request: unexpected status %d", resp.StatusCode)
	}

	assembly := stream.NewAssembly()
	dec := stream.NewDecoder(resp.Body)

	for {
		frame, err := dec.Next()
		if err != nil {
			if assembly.Done() {
				break
			}
			// A body exhausted after delivering chunks is a normal
			// completion even without a terminal frame.
			if errors.Is(err, io.EOF) && assembly.Text() != "" {
				assembly.MarkDone()
				break
			}
			if !conv.currentTurn(token) {
				return "", ErrSuperseded
			}
			return "", fmt.Errorf("stream interrupted: %w", err)
		}

		if !conv.currentTurn(token) {
			return "", ErrSuperseded
		}

		switch frame.Kind {
		case stream.FrameChunk:
			c.metrics.RecordFrame("chunk")
			if frame.Chunk == "" {
				continue
			}
			setBot(assembly.Append(frame.Chunk))
			if c.chunkDelay > 0 {
				select {
				case <-time.After(c.chunkDelay):
				case <-ctx.Done():
					return "", ErrSuperseded
				}
			}
		case stream.FrameDone:
			c.metrics.RecordFrame("done")
			assembly.MarkDone()
		case stream.FrameError:
			c.metrics.RecordFrame("error")
			logger.Warn().Str("serverError", frame.Message).Msg("Stream carried an error frame")
			return "", fmt.Errorf("stream error frame: %s", frame.Message)
		}

		if assembly.Done() {
			break
		}
	}

	text := assembly.Text()
	if text == "" {
		return "", errors.New("stream produced no content")
	}
	return text, nil
}

// turnPayload is the request body shared by the streaming and fallback
// endpoints. The key names are part of the backend contract.
func (c *Client) turnPayload(input, sessionID string) map[string]string {
	return map[string]string{
		"input":            input,
		"sessionId":        sessionID,
		"language":         c.language,
		"responseLanguage": c.respLanguage,
	}
}

// fallbackTurn performs the single non-streaming request attempted when
// the stream fails. A reachable backend that answers with a non-2xx
// status still yields a user-facing text rather than an error.
func (c *Client) fallbackTurn(ctx context.Context, sessionID, input string) (string, error) {
	body, err := json.Marshal(c.turnPayload(input, sessionID))
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+fallbackPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fallback request: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Response string `json:"response"`
		Message  string `json:"message"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && out.Message != "" {
			return out.Message, nil
		}
		return apologyUnavailable, nil
	}
	if decodeErr != nil {
		return "", fmt.Errorf("fallback request: decode response: %w", decodeErr)
	}
	if out.Response == "" {
		return apologyUnavailable, nil
	}
	return out.Response, nil
}

// ensureSession returns the session id for the conversation, creating
// one through the history backend when none exists. A failed creation
// is logged and the turn proceeds without session continuity.
func (c *Client) ensureSession(ctx context.Context, conv *Conversation) string {
	if sid := conv.SessionID(); sid != "" {
		return sid
	}

	clientID := conv.ClientID()
	logger := logging.WithClient(clientID)

	if c.store != nil {
		if sid, err := c.store.Active(ctx, clientID); err == nil && sid != "" {
			conv.BindSession(sid)
			return sid
		}
	}

	if c.history == nil {
		return ""
	}
	sid, err := c.history.CreateSession(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create chat session, continuing without one")
		return ""
	}

	conv.BindSession(sid)
	c.metrics.SessionsCreated.Inc()
	if c.store != nil {
		if err := c.store.SetActive(ctx, clientID, sid); err != nil {
			logger.Warn().Err(err).Msg("Failed to record active session")
		}
	}
	logger.Info().Str("sessionId", sid).Msg("Chat session created")
	return sid
}

// speak hands the final response to the synthesizer. Failures never
// affect the turn outcome.
func (c *Client) speak(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.synth.Speak(ctx, text); err != nil {
			c.metrics.RecordSynthesis("failure")
			c.logger.Warn().Err(err).Msg("Speech synthesis failed")
			return
		}
		c.metrics.RecordSynthesis("success")
	}()
}

// persistResponse saves the bot response to the history backend,
// fire-and-forget: a failed save is logged and counted, nothing more.
func (c *Client) persistResponse(sessionID, text string, logger zerolog.Logger) {
	if sessionID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		body, err := json.Marshal(map[string]string{
			"sessionId":   sessionID,
			"botResponse": text,
		})
		if err != nil {
			return
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+saveResponsePath, bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.metrics.PersistFailures.Inc()
			logger.Warn().Err(err).Msg("Failed to persist bot response")
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.metrics.PersistFailures.Inc()
			logger.Warn().Int("status", resp.StatusCode).Msg("Failed to persist bot response")
		}
	}()
}

// publishTurn emits the completed-turn event.
func (c *Client) publishTurn(conv *Conversation, sessionID, userText, botText, source string) {
	if c.publisher == nil {
		return
	}
	event := models.ChatTurn{
		EventType: "chat.turn",
		ClientID:  conv.ClientID(),
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
		UserText:  userText,
		BotText:   botText,
		Source:    source,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.publisher.PublishTurn(ctx, conv.ClientID(), event); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to publish turn event")
		}
	}()
}

// StartSession resets the conversation and creates a fresh backend
// session for it right away, rather than lazily on the first turn.
func (c *Client) StartSession(ctx context.Context, conv *Conversation) (string, error) {
	if c.history == nil {
		return "", errors.New("history backend not configured")
	}
	conv.Reset()
	sid, err := c.history.CreateSession(ctx)
	if err != nil {
		return "", err
	}
	conv.BindSession(sid)
	c.metrics.SessionsCreated.Inc()
	if c.store != nil {
		if err := c.store.SetActive(ctx, conv.ClientID(), sid); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record active session")
		}
	}
	return sid, nil
}

// Sessions lists stored sessions from the history backend.
func (c *Client) Sessions(ctx context.Context) ([]models.SessionSummary, error) {
	if c.history == nil {
		return nil, errors.New("history backend not configured")
	}
	return c.history.ListSessions(ctx)
}

// LoadSession replaces the conversation with a stored session's
// messages and makes it the active session.
func (c *Client) LoadSession(ctx context.Context, conv *Conversation, sessionID string) (*models.Session, error) {
	if c.history == nil {
		return nil, errors.New("history backend not configured")
	}
	sess, err := c.history.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	conv.Replace(sess.SessionID, sess.Messages)
	if c.store != nil {
		if err := c.store.SetActive(ctx, conv.ClientID(), sess.SessionID); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record active session")
		}
	}
	return sess, nil
}

// DeleteSession removes a stored session. Deleting the conversation's
// active session also resets the conversation and clears the tracked
// active session, so the next turn starts a fresh one.
func (c *Client) DeleteSession(ctx context.Context, conv *Conversation, sessionID string) error {
	if c.history == nil {
		return errors.New("history backend not configured")
	}
	if err := c.history.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	c.metrics.SessionsDeleted.Inc()

	if conv != nil && conv.SessionID() == sessionID {
		conv.Reset()
		if c.store != nil {
			if err := c.store.Clear(ctx, conv.ClientID()); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to clear active session")
			}
		}
	}
	return nil
}

// NewChat resets the conversation so the next turn creates a fresh
// session.
func (c *Client) NewChat(ctx context.Context, conv *Conversation) {
	conv.Reset()
	if c.store != nil {
		if err := c.store.Clear(ctx, conv.ClientID()); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to clear active session")
		}
	}
}
