// Package mock provides a scripted speech recognizer for testing and local
// development without cloud credentials. It simulates progressive interim
// hypotheses followed by exactly one final segment per utterance.
package mock

import (
	"context"
	"sync"
	"time"

	"ai-chat-assistant-service/internal/speech"
)

// SimulatedUtterance is one scripted utterance with progressive hypotheses.
type SimulatedUtterance struct {
	Interims []string // Progressive interim hypotheses
	Final    string   // Final transcript text
}

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Interims: []string{"I have", "I have a head", "I have a headache"},
		Final:    "I have a headache and mild fever",
	},
	{
		Interims: []string{"what medicine", "what medicine should"},
		Final:    "what medicine should I take",
	},
	{
		Interims: []string{"book an", "book an appointment"},
		Final:    "book an appointment with a doctor",
	},
	{
		Interims: []string{"thank you"},
		Final:    "thank you very much",
	},
}

// Provider implements speech.Provider with scripted responses.
type Provider struct {
	mu            sync.Mutex
	rcv           speech.Receiver
	utterance     SimulatedUtterance
	interimIndex  int
	finalSent     bool
	listening     bool
	PermissionErr error // non-nil simulates a denied microphone
}

// utteranceCounter cycles through the default script.
var (
	utteranceCounter int
	counterMu        sync.Mutex
)

// New creates a mock recognizer using the next scripted utterance.
func New() *Provider {
	counterMu.Lock()
	idx := utteranceCounter % len(DefaultUtterances)
	utteranceCounter++
	counterMu.Unlock()

	return &Provider{utterance: DefaultUtterances[idx]}
}

// NewScripted creates a mock recognizer for a specific utterance.
func NewScripted(u SimulatedUtterance) *Provider {
	return &Provider{utterance: u}
}

// RequestPermission simulates the microphone permission prompt.
func (p *Provider) RequestPermission(ctx context.Context) error {
	return p.PermissionErr
}

// Start begins a scripted session. The start event is delivered before
// Start returns so callers observe the listening state immediately.
func (p *Provider) Start(ctx context.Context, rcv speech.Receiver) error {
	p.mu.Lock()
	p.rcv = rcv
	p.listening = true
	p.interimIndex = 0
	p.finalSent = false
	p.mu.Unlock()

	rcv.OnEvent(speech.Event{Kind: speech.KindStart})
	return nil
}

// Advance emits the next scripted event: one interim hypothesis per call,
// then the final segment followed by the end of the session.
func (p *Provider) Advance() {
	p.mu.Lock()
	rcv := p.rcv
	if rcv == nil || !p.listening {
		p.mu.Unlock()
		return
	}

	if p.interimIndex < len(p.utterance.Interims) {
		text := p.utterance.Interims[p.interimIndex]
		p.interimIndex++
		first := p.interimIndex == 1
		p.mu.Unlock()

		if first {
			rcv.OnEvent(speech.Event{Kind: speech.KindSpeechStart})
		}
		rcv.OnEvent(speech.Event{
			Kind:     speech.KindResult,
			Segments: []speech.Segment{{Text: text}},
		})
		return
	}

	if !p.finalSent {
		p.finalSent = true
		p.listening = false
		final := p.utterance.Final
		p.mu.Unlock()

		rcv.OnEvent(speech.Event{
			Kind:     speech.KindResult,
			Segments: []speech.Segment{{Text: final, Final: true}},
		})
		rcv.OnEvent(speech.Event{Kind: speech.KindSpeechEnd})
		rcv.OnEvent(speech.Event{Kind: speech.KindEnd})
		return
	}
	p.mu.Unlock()
}

// Run plays the whole script with the given pacing. Blocks until the
// utterance completes or the context is cancelled.
func (p *Provider) Run(ctx context.Context, pace time.Duration) {
	for {
		p.mu.Lock()
		done := p.finalSent || !p.listening
		p.mu.Unlock()
		if done {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pace):
			p.Advance()
		}
	}
}

// Fail injects a recognizer error, ending the session.
func (p *Provider) Fail(code speech.ErrorCode) {
	p.mu.Lock()
	rcv := p.rcv
	p.listening = false
	p.mu.Unlock()
	if rcv != nil {
		rcv.OnEvent(speech.Event{Kind: speech.KindError, Code: code})
	}
}

// Stop ends the session, emitting the end event.
func (p *Provider) Stop() error {
	p.mu.Lock()
	if !p.listening {
		p.mu.Unlock()
		return nil
	}
	p.listening = false
	rcv := p.rcv
	p.mu.Unlock()

	if rcv != nil {
		rcv.OnEvent(speech.Event{Kind: speech.KindEnd})
	}
	return nil
}
