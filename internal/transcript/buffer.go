// Package transcript reconciles speech-recognition results into a single
// dictation buffer suitable for a text input.
package transcript

import "strings"

// Buffer holds committed dictation text plus the latest interim hypothesis.
// Committed text only grows; the interim portion is fully replaced on every
// update and stripped when a segment finalizes or the session ends.
type Buffer struct {
	committed string
	interim   string
}

// Display returns the value shown in the input field: committed text with
// the interim hypothesis appended in brackets.
func (b *Buffer) Display() string {
	if b.interim == "" {
		return b.committed
	}
	marker := "[" + b.interim + "]"
	if b.committed == "" {
		return marker
	}
	return b.committed + " " + marker
}

// Committed returns the finalized text without any interim marker.
func (b *Buffer) Committed() string {
	return b.committed
}

// Empty reports whether the buffer holds no text at all.
func (b *Buffer) Empty() bool {
	return b.committed == "" && b.interim == ""
}

// AppendFinal commits a finalized segment, space-joined to prior text.
// Any interim marker is discarded.
func (b *Buffer) AppendFinal(text string) {
	text = strings.TrimSpace(text)
	b.interim = ""
	if text == "" {
		return
	}
	if b.committed == "" {
		b.committed = text
		return
	}
	b.committed = b.committed + " " + text
}

// SetInterim replaces the interim hypothesis. Committed text is untouched.
func (b *Buffer) SetInterim(text string) {
	b.interim = strings.TrimSpace(text)
}

// ClearInterim strips the interim marker, keeping committed text.
func (b *Buffer) ClearInterim() {
	b.interim = ""
}

// Clear empties the whole buffer, committed text included.
func (b *Buffer) Clear() {
	b.committed = ""
	b.interim = ""
}
