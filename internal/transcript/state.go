package transcript

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a recognition session.
type State int

const (
	// StateIdle - no recognition session is active.
	StateIdle State = iota
	// StateListening - a session is active and may emit results.
	StateListening
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateListening:
		return "LISTENING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Phase is the displayed sub-phase of a listening session. It drives status
// text only and has no effect on the buffer contract.
type Phase int

const (
	// PhaseAwaitingSpeech - listening, no speech detected yet.
	PhaseAwaitingSpeech Phase = iota
	// PhaseSpeechDetected - the recognizer heard speech.
	PhaseSpeechDetected
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingSpeech:
		return "AWAITING_SPEECH"
	case PhaseSpeechDetected:
		return "SPEECH_DETECTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", p)
	}
}

// Errors for invalid session transitions.
var (
	ErrAlreadyListening = errors.New("recognition session already active")
	ErrNotListening     = errors.New("no recognition session active")
	ErrUnsupported      = errors.New("speech recognition not supported")
)

// Session manages the state machine for recognition sessions.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → LISTENING → IDLE  (on end, stop or error)
//
// LISTENING carries an AWAITING_SPEECH / SPEECH_DETECTED phase used only
// for status display.
type Session struct {
	mu    sync.RWMutex
	state State
	phase Phase
}

// NewSession creates a session state machine in IDLE state.
func NewSession() *Session {
	return &Session{state: StateIdle}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Phase returns the current listening phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Listening returns true while a session is active.
func (s *Session) Listening() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateListening
}

// Begin transitions IDLE → LISTENING. Returns ErrAlreadyListening if a
// session is already active.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateListening {
		return ErrAlreadyListening
	}
	s.state = StateListening
	s.phase = PhaseAwaitingSpeech
	return nil
}

// MarkSpeech records that speech was detected. No-op when idle.
func (s *Session) MarkSpeech() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateListening {
		s.phase = PhaseSpeechDetected
	}
}

// MarkSilence records that speech stopped. No-op when idle.
func (s *Session) MarkSilence() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateListening {
		s.phase = PhaseAwaitingSpeech
	}
}

// End transitions to IDLE. Idempotent; returns true if a session was active.
func (s *Session) End() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return false
	}
	s.state = StateIdle
	s.phase = PhaseAwaitingSpeech
	return true
}
