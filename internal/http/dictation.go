package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ai-chat-assistant-service/internal/models"
	"ai-chat-assistant-service/internal/observability/logging"
	"ai-chat-assistant-service/internal/speech"
	"ai-chat-assistant-service/internal/transcript"
)

// mockAdvanceInterval paces scripted recognizers driving a session.
const mockAdvanceInterval = 300 * time.Millisecond

// inboundMessage is what a dictation client sends: session control,
// recognizer events, key presses or buffer commands.
type inboundMessage struct {
	Type string `json:"type"` // start, stop, event, key, submit, cancel

	// event fields
	Kind     string           `json:"kind,omitempty"`
	Segments []speech.Segment `json:"segments,omitempty"`
	Code     string           `json:"code,omitempty"`

	// key fields
	Key          string `json:"key,omitempty"` // toggle, cancel
	InputFocused bool   `json:"inputFocused,omitempty"`
}

// outboundMessage is what the server pushes back: the reconciled input
// value, status banners and submitted transcripts.
type outboundMessage struct {
	Type string `json:"type"` // display, status, committed, submitted, error

	Text string `json:"text,omitempty"`

	// status fields
	Code     string `json:"code,omitempty"`
	Blocking bool   `json:"blocking,omitempty"`
}

// audioSender is implemented by recognizers that accept raw audio.
type audioSender interface {
	SendAudio(ctx context.Context, audio []byte) error
}

// runner is implemented by scripted recognizers that emit events on
// their own once started.
type runner interface {
	Run(ctx context.Context, pace time.Duration)
}

// handleDictation upgrades to a websocket and reconciles recognizer
// events into a dictation buffer. With a server-side recognizer
// configured, "start" begins recognition and binary frames carry audio;
// without one the client runs the recognizer and sends its events over
// the wire. Either way the server owns the buffer, so committed text
// can never be lost to a stale interim update.
func (h *Handler) handleDictation(w http.ResponseWriter, r *http.Request) {
	id := clientID(r, "")
	logger := logging.WithClient(id)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.metrics.RecognitionSessions.Inc()
	logger.Info().Msg("Dictation session opened")

	// Gorilla connections allow one concurrent writer; status dismiss
	// timers fire on their own goroutines, so sends go through a channel
	// drained by a single writer loop.
	out := make(chan outboundMessage, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range out {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()
	// Status dismiss timers can fire after the connection is gone, so
	// sends are guarded against the closed channel.
	var outMu sync.Mutex
	outClosed := false
	send := func(msg outboundMessage) {
		outMu.Lock()
		defer outMu.Unlock()
		if outClosed {
			return
		}
		select {
		case out <- msg:
		default:
			logger.Warn().Str("type", msg.Type).Msg("Dropping outbound dictation message, client too slow")
		}
	}
	closeOut := func() {
		outMu.Lock()
		defer outMu.Unlock()
		outClosed = true
		close(out)
	}

	var provider speech.Provider
	if h.provider != nil {
		provider = h.provider()
	}

	rec := transcript.New(provider,
		transcript.WithLogger(logger),
		transcript.WithDisplayFunc(func(display string) {
			send(outboundMessage{Type: "display", Text: display})
		}),
		transcript.WithStatusFunc(func(st transcript.StatusMessage) {
			send(outboundMessage{
				Type:     "status",
				Text:     st.Text,
				Code:     string(st.Code),
				Blocking: st.Blocking,
			})
		}),
		transcript.WithCommitFunc(func(committed string) {
			h.metrics.TranscriptsFinal.Inc()
			send(outboundMessage{Type: "committed", Text: committed})
		}),
	)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("Dictation session closed unexpectedly")
			}
			break
		}

		if mt == websocket.BinaryMessage {
			if sender, ok := provider.(audioSender); ok && rec.Listening() {
				if err := sender.SendAudio(r.Context(), data); err != nil {
					logger.Warn().Err(err).Msg("Audio forward failed")
				}
			}
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			send(outboundMessage{Type: "error", Text: "invalid message"})
			continue
		}

		switch msg.Type {
		case "start":
			if err := rec.StartListening(r.Context()); err != nil {
				logger.Warn().Err(err).Msg("Could not start recognition")
				break
			}
			if rn, ok := provider.(runner); ok {
				go rn.Run(r.Context(), mockAdvanceInterval)
			}
		case "stop":
			rec.StopListening()
		case "event":
			h.applyRemoteEvent(rec, msg)
		case "key":
			key := transcript.KeyToggle
			if msg.Key == "cancel" {
				key = transcript.KeyCancel
			}
			rec.HandleKey(r.Context(), key, msg.InputFocused)
		case "submit":
			text := rec.Submit()
			send(outboundMessage{Type: "submitted", Text: text})
			if text != "" {
				h.publishDictation(id, text)
			}
		case "cancel":
			rec.Cancel()
		default:
			send(outboundMessage{Type: "error", Text: "unknown message type"})
		}
	}

	rec.Cancel()
	if closer, ok := provider.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn().Err(err).Msg("Recognizer close failed")
		}
	}
	closeOut()
	<-done
	logger.Info().Msg("Dictation session closed")
}

// applyRemoteEvent translates a wire event into a recognizer event and
// feeds it to the reconciler. Unknown kinds are dropped.
func (h *Handler) applyRemoteEvent(rec *transcript.Reconciler, msg inboundMessage) {
	kind, ok := speech.KindFromString(msg.Kind)
	if !ok {
		return
	}

	switch kind {
	case speech.KindResult:
		for _, seg := range msg.Segments {
			if !seg.Final {
				h.metrics.TranscriptsInterim.Inc()
			}
		}
	case speech.KindError:
		h.metrics.RecordRecognitionError(msg.Code)
	}

	rec.OnEvent(speech.Event{
		Kind:     kind,
		Segments: msg.Segments,
		Code:     speech.ErrorCode(msg.Code),
	})
}

// publishDictation emits the committed transcript event.
func (h *Handler) publishDictation(clientID, text string) {
	if h.publisher == nil {
		return
	}
	event := models.DictationFinal{
		EventType: "dictation.final",
		ClientID:  clientID,
		Timestamp: time.Now().UnixMilli(),
		Text:      text,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.publisher.PublishTranscript(ctx, clientID, event); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to publish dictation event")
		}
	}()
}
