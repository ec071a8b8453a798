package transcript

import (
	"time"

	"ai-chat-assistant-service/internal/speech"
)

// StatusMessage is a curated, user-facing status for a recognizer outcome.
// Blocking messages indicate a configuration problem the user must fix
// outside the widget and require an explicit acknowledgment.
type StatusMessage struct {
	Code         speech.ErrorCode `json:"code"`
	Text         string           `json:"text"`
	DismissAfter time.Duration    `json:"dismissAfterMs"`
	Blocking     bool             `json:"blocking"`
}

// StatusFor maps a recognizer error code to its display message.
// Raw provider errors are never surfaced; only these curated strings are.
func StatusFor(code speech.ErrorCode) StatusMessage {
	switch code {
	case speech.ErrNetwork:
		return StatusMessage{
			Code:         code,
			Text:         "Network error during voice input. Check your connection and try again.",
			DismissAfter: 3 * time.Second,
		}
	case speech.ErrNotAllowed:
		return StatusMessage{
			Code:         code,
			Text:         "Microphone access was denied. Allow microphone permission to use voice input.",
			DismissAfter: 5 * time.Second,
			Blocking:     true,
		}
	case speech.ErrNoSpeech:
		return StatusMessage{
			Code:         code,
			Text:         "No speech detected. Try speaking again.",
			DismissAfter: 2 * time.Second,
		}
	case speech.ErrAudioCapture:
		return StatusMessage{
			Code:         code,
			Text:         "No microphone was found. Check your audio devices.",
			DismissAfter: 5 * time.Second,
			Blocking:     true,
		}
	case speech.ErrAborted:
		return StatusMessage{
			Code:         code,
			Text:         "Voice input was cancelled.",
			DismissAfter: 2 * time.Second,
		}
	default:
		return StatusMessage{
			Code:         speech.ErrOther,
			Text:         "Voice input failed. Please try again.",
			DismissAfter: 3 * time.Second,
		}
	}
}

// noMatchStatus is shown when audio was heard but nothing was recognized.
var noMatchStatus = StatusMessage{
	Code:         speech.ErrNoSpeech,
	Text:         "Didn't catch that. Please try again.",
	DismissAfter: 2 * time.Second,
}
