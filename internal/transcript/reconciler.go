package transcript

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-chat-assistant-service/internal/speech"
)

// Key identifies the dictation keyboard affordances.
type Key int

const (
	// KeyToggle starts or stops listening from the input field.
	KeyToggle Key = iota
	// KeyCancel stops listening unconditionally while active.
	KeyCancel
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithStatusFunc registers a callback invoked whenever the status message
// changes, including when it auto-dismisses (with a zero StatusMessage).
func WithStatusFunc(fn func(StatusMessage)) Option {
	return func(r *Reconciler) { r.onStatus = fn }
}

// WithCommitFunc registers a callback invoked with the full committed text
// each time a final segment is appended.
func WithCommitFunc(fn func(committed string)) Option {
	return func(r *Reconciler) { r.onCommit = fn }
}

// WithDisplayFunc registers a callback invoked with the new input value
// whenever the buffer changes.
func WithDisplayFunc(fn func(display string)) Option {
	return func(r *Reconciler) { r.onDisplay = fn }
}

// WithLogger sets the logger used by the reconciler.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// Reconciler converts a stream of recognizer events into a coherent input
// value. Committed text is never lost and stale interim markers never
// remain visible. Implements speech.Receiver.
type Reconciler struct {
	mu       sync.Mutex
	provider speech.Provider // nil when events are driven remotely
	session  *Session
	buf      Buffer
	status   StatusMessage
	dismiss  *time.Timer
	onStatus  func(StatusMessage)
	onCommit  func(string)
	onDisplay func(string)
	logger    zerolog.Logger
}

// New creates a reconciler for the given provider. A nil provider is
// allowed for remotely driven sessions (events fed straight to OnEvent);
// StartListening then reports recognition as unsupported.
func New(provider speech.Provider, opts ...Option) *Reconciler {
	r := &Reconciler{
		provider: provider,
		session:  NewSession(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supported reports whether a local recognizer is available.
func (r *Reconciler) Supported() bool {
	return r.provider != nil
}

// Listening reports whether a recognition session is active.
func (r *Reconciler) Listening() bool {
	return r.session.Listening()
}

// Phase returns the displayed listening phase.
func (r *Reconciler) Phase() Phase {
	return r.session.Phase()
}

// Display returns the current input value (committed text plus any
// bracketed interim marker).
func (r *Reconciler) Display() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Display()
}

// Status returns the current status message, zero when none is shown.
func (r *Reconciler) Status() StatusMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// StartListening requests microphone permission and starts recognition.
// No-op when already listening. Permission failures surface the
// not-allowed status and the session never starts.
func (r *Reconciler) StartListening(ctx context.Context) error {
	if r.provider == nil {
		return ErrUnsupported
	}
	if r.session.Listening() {
		return nil
	}
	if err := r.provider.RequestPermission(ctx); err != nil {
		r.setStatus(StatusFor(speech.ErrNotAllowed))
		return err
	}
	if err := r.provider.Start(ctx, r); err != nil {
		r.setStatus(StatusFor(speech.ErrOther))
		return err
	}
	return nil
}

// StopListening ends the session, stripping any interim marker. Committed
// text is preserved. No-op when idle.
func (r *Reconciler) StopListening() {
	if !r.session.End() {
		return
	}
	r.mu.Lock()
	r.buf.ClearInterim()
	r.mu.Unlock()
	r.notifyDisplay()
	if r.provider != nil {
		if err := r.provider.Stop(); err != nil {
			r.logger.Warn().Err(err).Msg("recognizer stop failed")
		}
	}
}

// Submit returns the committed text and clears the whole buffer. Listening
// is stopped first so no interim marker can leak into the submitted value.
func (r *Reconciler) Submit() string {
	r.StopListening()
	r.mu.Lock()
	text := strings.TrimSpace(r.buf.Committed())
	r.buf.Clear()
	r.mu.Unlock()
	r.notifyDisplay()
	return text
}

// Cancel stops listening and discards the entire buffer.
func (r *Reconciler) Cancel() {
	r.StopListening()
	r.mu.Lock()
	r.buf.Clear()
	r.mu.Unlock()
	r.notifyDisplay()
}

// HandleKey applies the dictation keyboard routing rules. The toggle key
// acts only when the input field is focused, the buffer is empty and
// recognition is supported; the cancel key stops an active session
// unconditionally.
func (r *Reconciler) HandleKey(ctx context.Context, key Key, inputFocused bool) {
	switch key {
	case KeyToggle:
		if !inputFocused || !r.Supported() {
			return
		}
		if r.session.Listening() {
			r.StopListening()
			return
		}
		r.mu.Lock()
		empty := r.buf.Empty()
		r.mu.Unlock()
		if !empty {
			return
		}
		if err := r.StartListening(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("toggle key could not start recognition")
		}
	case KeyCancel:
		if r.session.Listening() {
			r.StopListening()
		}
	}
}

// OnEvent applies one recognizer event. Events are applied in arrival
// order; result segments are partitioned into final and interim text per
// the dictation contract.
func (r *Reconciler) OnEvent(ev speech.Event) {
	switch ev.Kind {
	case speech.KindStart:
		if err := r.session.Begin(); err != nil {
			r.logger.Debug().Err(err).Msg("start event ignored")
		}
	case speech.KindSpeechStart:
		r.session.MarkSpeech()
	case speech.KindSpeechEnd:
		r.session.MarkSilence()
	case speech.KindResult:
		r.applyResult(ev.Segments)
	case speech.KindEnd:
		// Final results are preserved; only the interim annotation goes.
		r.mu.Lock()
		r.buf.ClearInterim()
		r.mu.Unlock()
		r.session.End()
		r.notifyDisplay()
	case speech.KindError:
		r.session.End()
		r.mu.Lock()
		r.buf.ClearInterim()
		r.mu.Unlock()
		r.notifyDisplay()
		r.setStatus(StatusFor(ev.Code))
		r.logger.Info().Str("code", string(ev.Code)).Msg("recognition session ended with error")
	case speech.KindNoMatch:
		r.setStatus(noMatchStatus)
	}
}

func (r *Reconciler) applyResult(segments []speech.Segment) {
	var finalText, interimText strings.Builder
	for _, seg := range segments {
		if seg.Final {
			finalText.WriteString(seg.Text)
		} else {
			interimText.WriteString(seg.Text)
		}
	}

	r.mu.Lock()
	var committed string
	if finalText.Len() > 0 {
		// Continuous dictation: commit and keep listening.
		r.buf.AppendFinal(finalText.String())
		committed = r.buf.Committed()
	} else if interimText.Len() > 0 && r.session.Listening() {
		r.buf.SetInterim(interimText.String())
	}
	cb := r.onCommit
	r.mu.Unlock()
	r.notifyDisplay()

	if committed != "" && cb != nil {
		cb(committed)
	}
}

// notifyDisplay pushes the current input value to the display callback.
func (r *Reconciler) notifyDisplay() {
	r.mu.Lock()
	display := r.buf.Display()
	cb := r.onDisplay
	r.mu.Unlock()
	if cb != nil {
		cb(display)
	}
}

// setStatus installs a status message and arms its auto-dismiss timer.
func (r *Reconciler) setStatus(st StatusMessage) {
	r.mu.Lock()
	if r.dismiss != nil {
		r.dismiss.Stop()
	}
	r.status = st
	cb := r.onStatus
	if st.DismissAfter > 0 {
		r.dismiss = time.AfterFunc(st.DismissAfter, r.clearStatus)
	}
	r.mu.Unlock()

	if cb != nil {
		cb(st)
	}
}

func (r *Reconciler) clearStatus() {
	r.mu.Lock()
	r.status = StatusMessage{}
	cb := r.onStatus
	r.mu.Unlock()
	if cb != nil {
		cb(StatusMessage{})
	}
}
