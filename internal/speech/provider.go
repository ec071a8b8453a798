// Package speech defines the interface for speech recognition providers.
package speech

import "context"

// EventKind tags the events a recognizer can emit.
type EventKind int

const (
	// KindResult carries one or more transcript segments.
	KindResult EventKind = iota
	// KindStart - the recognizer began listening.
	KindStart
	// KindSpeechStart - speech was detected in the audio.
	KindSpeechStart
	// KindSpeechEnd - speech stopped; the recognizer may still emit results.
	KindSpeechEnd
	// KindEnd - the recognition session ended.
	KindEnd
	// KindError - the session failed with a coded error.
	KindError
	// KindNoMatch - audio was heard but nothing was recognized.
	KindNoMatch
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindStart:
		return "start"
	case KindSpeechStart:
		return "speechstart"
	case KindSpeechEnd:
		return "speechend"
	case KindEnd:
		return "end"
	case KindError:
		return "error"
	case KindNoMatch:
		return "nomatch"
	default:
		return "unknown"
	}
}

// KindFromString parses the wire name of an event kind. The second
// return value is false for unknown names.
func KindFromString(s string) (EventKind, bool) {
	switch s {
	case "result":
		return KindResult, true
	case "start":
		return KindStart, true
	case "speechstart":
		return KindSpeechStart, true
	case "speechend":
		return KindSpeechEnd, true
	case "end":
		return KindEnd, true
	case "error":
		return KindError, true
	case "nomatch":
		return KindNoMatch, true
	default:
		return 0, false
	}
}

// ErrorCode classifies recognizer failures.
type ErrorCode string

const (
	ErrNetwork      ErrorCode = "network"
	ErrNotAllowed   ErrorCode = "not-allowed"
	ErrNoSpeech     ErrorCode = "no-speech"
	ErrAudioCapture ErrorCode = "audio-capture"
	ErrAborted      ErrorCode = "aborted"
	ErrOther        ErrorCode = "other"
)

// Segment is one transcript hypothesis within a result event.
type Segment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Event is a single recognizer event. Result events carry segments in
// arrival order; error events carry a code.
type Event struct {
	Kind     EventKind `json:"-"`
	Segments []Segment `json:"segments,omitempty"`
	Code     ErrorCode `json:"code,omitempty"`
}

// Receiver consumes recognizer events.
type Receiver interface {
	OnEvent(ev Event)
}

// Provider defines the interface for speech recognizers (Google, mock, ...).
type Provider interface {
	// RequestPermission resolves audio-capture permission before a session
	// may start. Providers without a permission step return nil.
	RequestPermission(ctx context.Context) error

	// Start begins a recognition session delivering events to rcv.
	Start(ctx context.Context, rcv Receiver) error

	// Stop ends the session. Stopping an idle provider is a no-op.
	Stop() error
}
