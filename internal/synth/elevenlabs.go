package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"

// AudioSink receives synthesized audio for playback or forwarding.
type AudioSink func(audio []byte)

// ElevenLabsClient implements Provider using the ElevenLabs TTS API.
type ElevenLabsClient struct {
	apiKey     string
	voiceID    string
	modelID    string
	sink       AudioSink
	httpClient *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewElevenLabsClient constructs an ElevenLabs synthesis client. The sink
// receives the full synthesized audio; a nil sink discards it.
func NewElevenLabsClient(apiKey, voiceID, modelID string, sink AudioSink) (*ElevenLabsClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs: API key is required")
	}
	if voiceID == "" {
		return nil, fmt.Errorf("elevenlabs: voice id is required")
	}
	return &ElevenLabsClient{
		apiKey:     apiKey,
		voiceID:    voiceID,
		modelID:    modelID,
		sink:       sink,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Speak synthesizes text. An utterance still in flight is cancelled first.
func (c *ElevenLabsClient) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	body, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: c.modelID})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s", elevenLabsBaseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, msg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	if c.sink != nil {
		c.sink(audio)
	}
	return nil
}

// Stop cancels any in-flight synthesis.
func (c *ElevenLabsClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
