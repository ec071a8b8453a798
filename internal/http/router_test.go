package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ai-chat-assistant-service/internal/chat"
	"ai-chat-assistant-service/internal/history"
	"ai-chat-assistant-service/internal/sessionstore"
	"ai-chat-assistant-service/internal/speech"
	"ai-chat-assistant-service/internal/stream"
)

// newGateway spins up a fake assistant backend and returns a test
// server for the gateway routes in front of it.
func newGateway(t *testing.T) *httptest.Server {
	t.Helper()

	assistant := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, `data: {"chunk": "Drink "}`)
		fmt.Fprintln(w, `data: {"chunk": "water."}`)
		fmt.Fprintln(w, `data: {"done": true}`)
	}))
	t.Cleanup(assistant.Close)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/chat-history/session" && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]string{"sessionId": "sess-1"})
		case r.URL.Path == "/api/ai/chat/save-response":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(api.Close)

	chatClient := chat.New(chat.Options{
		AssistantBaseURL: assistant.URL,
		APIBaseURL:       api.URL,
		RequestTimeout:   5 * time.Second,
		History:          history.New(api.URL, 5*time.Second),
		Store:            sessionstore.New(nil),
	})

	gw := httptest.NewServer(NewHandler(chatClient, nil, nil).Routes())
	t.Cleanup(gw.Close)
	return gw
}

func TestHealthz(t *testing.T) {
	gw := newGateway(t)
	resp, err := http.Get(gw.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestTurnEndpointJSON(t *testing.T) {
	gw := newGateway(t)

	resp, err := http.Post(gw.URL+"/v1/chat/turns", "application/json",
		strings.NewReader(`{"clientId": "c-1", "input": "I feel thirsty"}`))
	if err != nil {
		t.Fatalf("POST /v1/chat/turns error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out turnResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Text != "Drink water." {
		t.Errorf("text = %q, want %q", out.Text, "Drink water.")
	}
	if out.Source != "stream" {
		t.Errorf("source = %q, want stream", out.Source)
	}
	if out.SessionID != "sess-1" {
		t.Errorf("sessionId = %q, want sess-1", out.SessionID)
	}

	// The conversation endpoint shows the user and the single bot message.
	resp2, err := http.Get(gw.URL + "/v1/chat/messages?clientId=c-1")
	if err != nil {
		t.Fatalf("GET /v1/chat/messages error = %v", err)
	}
	defer resp2.Body.Close()
	var msgs messagesResponse
	if err := json.NewDecoder(resp2.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(msgs.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs.Messages))
	}
	if msgs.Messages[1].Text != "Drink water." {
		t.Errorf("bot message = %q", msgs.Messages[1].Text)
	}
}

func TestTurnEndpointSSE(t *testing.T) {
	gw := newGateway(t)

	req, _ := http.NewRequest(http.MethodPost, gw.URL+"/v1/chat/turns",
		strings.NewReader(`{"clientId": "c-2", "input": "hello"}`))
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /v1/chat/turns error = %v", err)
	}
	defer resp.Body.Close()

	var text string
	var done bool
	dec := stream.NewDecoder(resp.Body)
	for {
		frame, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		switch frame.Kind {
		case stream.FrameChunk:
			text += frame.Chunk
		case stream.FrameDone:
			done = true
		case stream.FrameError:
			t.Fatalf("unexpected error frame: %s", frame.Message)
		}
	}
	if !done {
		t.Error("stream ended without a done frame")
	}
	if text != "Drink water." {
		t.Errorf("assembled text = %q, want %q", text, "Drink water.")
	}
}

func TestTurnEndpointRejectsEmptyMessage(t *testing.T) {
	gw := newGateway(t)
	resp, err := http.Post(gw.URL+"/v1/chat/turns", "application/json",
		strings.NewReader(`{"clientId": "c-3"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// readUntil reads outbound websocket messages until one of the wanted
// type arrives, failing after a few messages.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) outboundMessage {
	t.Helper()
	for i := 0; i < 10; i++ {
		var msg outboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read websocket message: %v", err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("no %q message received", msgType)
	return outboundMessage{}
}

func TestDictationWebsocket(t *testing.T) {
	gw := newGateway(t)

	wsURL := "ws" + strings.TrimPrefix(gw.URL, "http") + "/v1/dictation?clientId=c-ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	send := func(msg inboundMessage) {
		t.Helper()
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write websocket message: %v", err)
		}
	}

	send(inboundMessage{Type: "event", Kind: "start"})
	send(inboundMessage{Type: "event", Kind: "result",
		Segments: []speech.Segment{{Text: "I have a"}}})
	if got := readUntil(t, conn, "display"); got.Text != "[I have a]" {
		t.Errorf("interim display = %q, want %q", got.Text, "[I have a]")
	}

	send(inboundMessage{Type: "event", Kind: "result",
		Segments: []speech.Segment{{Text: "I have a headache", Final: true}}})
	if got := readUntil(t, conn, "display"); got.Text != "I have a headache" {
		t.Errorf("final display = %q, want committed text without marker", got.Text)
	}
	if got := readUntil(t, conn, "committed"); got.Text != "I have a headache" {
		t.Errorf("committed = %q", got.Text)
	}

	send(inboundMessage{Type: "event", Kind: "error", Code: "network"})
	if got := readUntil(t, conn, "status"); got.Code != string(speech.ErrNetwork) {
		t.Errorf("status code = %q, want network", got.Code)
	}

	// Committed text survived the error; submit returns and clears it.
	send(inboundMessage{Type: "submit"})
	if got := readUntil(t, conn, "display"); got.Text != "" {
		t.Errorf("display after submit = %q, want empty", got.Text)
	}
	if got := readUntil(t, conn, "submitted"); got.Text != "I have a headache" {
		t.Errorf("submitted = %q", got.Text)
	}
}

// closableProvider records whether the session released it.
type closableProvider struct {
	closed chan struct{}
}

func (p *closableProvider) RequestPermission(context.Context) error      { return nil }
func (p *closableProvider) Start(context.Context, speech.Receiver) error { return nil }
func (p *closableProvider) Stop() error                                  { return nil }
func (p *closableProvider) Close() error {
	close(p.closed)
	return nil
}

func TestDictationClosesServerRecognizer(t *testing.T) {
	provider := &closableProvider{closed: make(chan struct{})}
	handler := NewHandler(
		chat.New(chat.Options{Store: sessionstore.New(nil)}),
		nil,
		func() speech.Provider { return provider },
	)
	gw := httptest.NewServer(handler.Routes())
	defer gw.Close()

	wsURL := "ws" + strings.TrimPrefix(gw.URL, "http") + "/v1/dictation?clientId=c-close"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	select {
	case <-provider.closed:
	case <-time.After(3 * time.Second):
		t.Fatal("recognizer still open after the session ended")
	}
}
