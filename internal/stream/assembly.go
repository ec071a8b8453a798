package stream

import "sync"

// Assembly accumulates the chunk payloads of one in-flight response.
// The accumulated text is append-only for the lifetime of the response;
// a new user message always starts a fresh Assembly.
type Assembly struct {
	mu          sync.Mutex
	accumulated string
	done        bool
}

// NewAssembly creates an empty assembly.
func NewAssembly() *Assembly {
	return &Assembly{}
}

// Append adds a chunk and returns the new accumulated text.
func (a *Assembly) Append(chunk string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accumulated += chunk
	return a.accumulated
}

// Text returns the accumulated text so far.
func (a *Assembly) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accumulated
}

// MarkDone records a terminal frame or stream closure.
func (a *Assembly) MarkDone() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.done = true
}

// Done reports whether the stream reached a terminal frame.
func (a *Assembly) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}
