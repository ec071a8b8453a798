package mock

import (
	"context"
	"errors"
	"testing"

	"ai-chat-assistant-service/internal/speech"
)

// recorder captures emitted events.
type recorder struct {
	events []speech.Event
}

func (r *recorder) OnEvent(ev speech.Event) {
	r.events = append(r.events, ev)
}

func playAll(p *Provider) {
	// The script is finite; one extra call proves exhaustion is a no-op.
	for i := 0; i < 32; i++ {
		p.Advance()
	}
}

func TestProvider_ScriptShape(t *testing.T) {
	p := NewScripted(SimulatedUtterance{
		Interims: []string{"hel", "hello"},
		Final:    "hello there",
	})
	rec := &recorder{}

	if err := p.Start(context.Background(), rec); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	playAll(p)

	var interims, finals int
	var sawStart, sawSpeechStart, sawEnd bool
	for _, ev := range rec.events {
		switch ev.Kind {
		case speech.KindStart:
			sawStart = true
		case speech.KindSpeechStart:
			sawSpeechStart = true
		case speech.KindEnd:
			sawEnd = true
		case speech.KindResult:
			for _, seg := range ev.Segments {
				if seg.Final {
					finals++
				} else {
					interims++
				}
			}
		}
	}

	if !sawStart || !sawSpeechStart || !sawEnd {
		t.Errorf("missing lifecycle events: start=%v speechstart=%v end=%v", sawStart, sawSpeechStart, sawEnd)
	}
	if interims != 2 {
		t.Errorf("expected 2 interim segments, got %d", interims)
	}
	if finals != 1 {
		t.Errorf("expected exactly one final segment, got %d", finals)
	}

	// Final must be the last result event.
	last := rec.events[len(rec.events)-1]
	if last.Kind != speech.KindEnd {
		t.Errorf("expected end as last event, got %s", last.Kind)
	}
}

func TestProvider_PermissionDenied(t *testing.T) {
	p := NewScripted(SimulatedUtterance{Final: "never"})
	p.PermissionErr = errors.New("denied")

	if err := p.RequestPermission(context.Background()); err == nil {
		t.Error("expected permission error")
	}
}

func TestProvider_StopEmitsEnd(t *testing.T) {
	p := NewScripted(SimulatedUtterance{Interims: []string{"a"}, Final: "ab"})
	rec := &recorder{}
	p.Start(context.Background(), rec)

	p.Advance() // one interim
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	last := rec.events[len(rec.events)-1]
	if last.Kind != speech.KindEnd {
		t.Errorf("expected end event after stop, got %s", last.Kind)
	}

	// Stopping again is a no-op.
	n := len(rec.events)
	p.Stop()
	if len(rec.events) != n {
		t.Error("second stop must not emit events")
	}
}

func TestProvider_FailEmitsCodedError(t *testing.T) {
	p := NewScripted(SimulatedUtterance{Final: "x"})
	rec := &recorder{}
	p.Start(context.Background(), rec)

	p.Fail(speech.ErrNetwork)

	last := rec.events[len(rec.events)-1]
	if last.Kind != speech.KindError || last.Code != speech.ErrNetwork {
		t.Errorf("expected network error event, got %+v", last)
	}
}

func TestNew_CyclesUtterances(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < len(DefaultUtterances); i++ {
		p := New()
		seen[p.utterance.Final] = true
	}
	if len(seen) != len(DefaultUtterances) {
		t.Errorf("expected %d distinct utterances, got %d", len(DefaultUtterances), len(seen))
	}
}
