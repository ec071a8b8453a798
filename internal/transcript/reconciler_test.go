package transcript

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-chat-assistant-service/internal/speech"
)

// fakeProvider implements speech.Provider for reconciler tests.
type fakeProvider struct {
	permissionErr error
	startErr      error
	started       bool
	stopped       bool
	rcv           speech.Receiver
}

func (f *fakeProvider) RequestPermission(ctx context.Context) error {
	return f.permissionErr
}

func (f *fakeProvider) Start(ctx context.Context, rcv speech.Receiver) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	f.rcv = rcv
	rcv.OnEvent(speech.Event{Kind: speech.KindStart})
	return nil
}

func (f *fakeProvider) Stop() error {
	f.stopped = true
	if f.rcv != nil {
		f.rcv.OnEvent(speech.Event{Kind: speech.KindEnd})
	}
	return nil
}

func result(segs ...speech.Segment) speech.Event {
	return speech.Event{Kind: speech.KindResult, Segments: segs}
}

func TestReconciler_InterimThenFinal(t *testing.T) {
	p := &fakeProvider{}
	r := New(p)

	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening failed: %v", err)
	}

	r.OnEvent(result(speech.Segment{Text: "hel"}))
	r.OnEvent(result(speech.Segment{Text: "hello"}))
	r.OnEvent(result(speech.Segment{Text: "hello there", Final: true}))

	if got := r.Display(); got != "hello there" {
		t.Errorf("expected 'hello there', got %q", got)
	}
	if strings.Contains(r.Display(), "[") {
		t.Error("interim marker leaked into committed text")
	}
	if !r.Listening() {
		t.Error("final segment must not stop the session (continuous dictation)")
	}
}

func TestReconciler_ConsecutiveFinalsSpaceJoined(t *testing.T) {
	r := New(&fakeProvider{})
	r.StartListening(context.Background())

	r.OnEvent(result(speech.Segment{Text: "hello", Final: true}))
	r.OnEvent(result(speech.Segment{Text: "world", Final: true}))

	if got := r.Display(); got != "hello world" {
		t.Errorf("expected 'hello world', got %q", got)
	}
}

func TestReconciler_MixedSegmentsPartitioned(t *testing.T) {
	r := New(&fakeProvider{})
	r.StartListening(context.Background())

	// Finals concatenated in arrival order, interim replaces the marker.
	r.OnEvent(result(
		speech.Segment{Text: "good ", Final: true},
		speech.Segment{Text: "morning", Final: true},
		speech.Segment{Text: "doc", Final: false},
	))

	// A final in the event wins: the interim marker is stripped.
	if got := r.Display(); got != "good morning" {
		t.Errorf("expected 'good morning', got %q", got)
	}
}

func TestReconciler_InterimIgnoredWhenIdle(t *testing.T) {
	r := New(&fakeProvider{})

	r.OnEvent(result(speech.Segment{Text: "ghost"}))

	if got := r.Display(); got != "" {
		t.Errorf("expected empty display while idle, got %q", got)
	}
}

func TestReconciler_EndStripsInterim(t *testing.T) {
	r := New(&fakeProvider{})
	r.StartListening(context.Background())

	r.OnEvent(result(speech.Segment{Text: "done", Final: true}))
	r.OnEvent(result(speech.Segment{Text: "and more"}))
	r.OnEvent(speech.Event{Kind: speech.KindEnd})

	if got := r.Display(); got != "done" {
		t.Errorf("expected 'done' after end, got %q", got)
	}
	if r.Listening() {
		t.Error("expected idle after end event")
	}
}

func TestReconciler_StartWhileListeningIsNoop(t *testing.T) {
	p := &fakeProvider{}
	r := New(p)

	r.StartListening(context.Background())
	p.started = false

	if err := r.StartListening(context.Background()); err != nil {
		t.Errorf("second start should be a silent no-op, got %v", err)
	}
	if p.started {
		t.Error("provider must not be restarted while listening")
	}
}

func TestReconciler_PermissionDenied(t *testing.T) {
	p := &fakeProvider{permissionErr: errors.New("denied")}
	r := New(p)

	if err := r.StartListening(context.Background()); err == nil {
		t.Fatal("expected permission error")
	}
	if p.started {
		t.Error("recognition must not start without permission")
	}
	st := r.Status()
	if st.Code != speech.ErrNotAllowed || !st.Blocking {
		t.Errorf("expected blocking not-allowed status, got %+v", st)
	}
	if r.Listening() {
		t.Error("expected idle after denied permission")
	}
}

func TestReconciler_ErrorEndsSession(t *testing.T) {
	r := New(&fakeProvider{})
	r.StartListening(context.Background())

	r.OnEvent(result(speech.Segment{Text: "kept", Final: true}))
	r.OnEvent(speech.Event{Kind: speech.KindError, Code: speech.ErrNetwork})

	if r.Listening() {
		t.Error("expected idle after error")
	}
	if got := r.Display(); got != "kept" {
		t.Errorf("committed text must survive errors, got %q", got)
	}
	st := r.Status()
	if st.Code != speech.ErrNetwork {
		t.Errorf("expected network status, got %+v", st)
	}
	if st.Blocking {
		t.Error("network errors are transient, not blocking")
	}

	// Retry is allowed but never automatic.
	if err := r.StartListening(context.Background()); err != nil {
		t.Errorf("retry after error should work: %v", err)
	}
}

func TestReconciler_StopStripsInterimAndIsIdempotent(t *testing.T) {
	p := &fakeProvider{}
	r := New(p)
	r.StartListening(context.Background())

	r.OnEvent(result(speech.Segment{Text: "saved", Final: true}))
	r.OnEvent(result(speech.Segment{Text: "pending"}))
	r.StopListening()

	if got := r.Display(); got != "saved" {
		t.Errorf("expected 'saved' after stop, got %q", got)
	}
	if !p.stopped {
		t.Error("provider should be stopped")
	}

	p.stopped = false
	r.StopListening()
	if p.stopped {
		t.Error("stop while idle must be a no-op")
	}
}

func TestReconciler_SubmitClearsBuffer(t *testing.T) {
	r := New(&fakeProvider{})
	r.StartListening(context.Background())

	r.OnEvent(result(speech.Segment{Text: "hello there", Final: true}))
	r.OnEvent(result(speech.Segment{Text: "more"}))

	got := r.Submit()
	if got != "hello there" {
		t.Errorf("expected submitted 'hello there', got %q", got)
	}
	if r.Display() != "" {
		t.Errorf("expected empty buffer after submit, got %q", r.Display())
	}
	if r.Listening() {
		t.Error("submit should stop listening")
	}
}

func TestReconciler_ToggleKeyRules(t *testing.T) {
	p := &fakeProvider{}
	r := New(p)
	ctx := context.Background()

	// Unfocused: ignored.
	r.HandleKey(ctx, KeyToggle, false)
	if r.Listening() {
		t.Error("toggle without focus must not start listening")
	}

	// Focused and empty: starts.
	r.HandleKey(ctx, KeyToggle, true)
	if !r.Listening() {
		t.Error("toggle with focus on empty buffer should start listening")
	}

	// Toggle again: stops.
	r.HandleKey(ctx, KeyToggle, true)
	if r.Listening() {
		t.Error("toggle while listening should stop")
	}

	// Non-empty buffer: ignored.
	r.StartListening(ctx)
	r.OnEvent(result(speech.Segment{Text: "text", Final: true}))
	r.StopListening()
	r.HandleKey(ctx, KeyToggle, true)
	if r.Listening() {
		t.Error("toggle with non-empty buffer must not start listening")
	}
}

func TestReconciler_ToggleKeyUnsupported(t *testing.T) {
	r := New(nil)
	r.HandleKey(context.Background(), KeyToggle, true)
	if r.Listening() {
		t.Error("toggle must be ignored when recognition is unsupported")
	}
}

func TestReconciler_CancelKey(t *testing.T) {
	p := &fakeProvider{}
	r := New(p)
	ctx := context.Background()

	// Cancel while idle: no-op.
	r.HandleKey(ctx, KeyCancel, false)
	if p.stopped {
		t.Error("cancel while idle must not touch the provider")
	}

	// Cancel stops regardless of focus.
	r.StartListening(ctx)
	r.HandleKey(ctx, KeyCancel, false)
	if r.Listening() {
		t.Error("cancel must stop an active session")
	}
}

func TestReconciler_CommitCallback(t *testing.T) {
	var commits []string
	r := New(&fakeProvider{}, WithCommitFunc(func(s string) { commits = append(commits, s) }))
	r.StartListening(context.Background())

	r.OnEvent(result(speech.Segment{Text: "one", Final: true}))
	r.OnEvent(result(speech.Segment{Text: "ignored"}))
	r.OnEvent(result(speech.Segment{Text: "two", Final: true}))

	if len(commits) != 2 || commits[0] != "one" || commits[1] != "one two" {
		t.Errorf("unexpected commit sequence: %v", commits)
	}
}

func TestReconciler_NoMatchStatus(t *testing.T) {
	r := New(&fakeProvider{})
	r.StartListening(context.Background())

	r.OnEvent(speech.Event{Kind: speech.KindNoMatch})

	if r.Status().Text == "" {
		t.Error("expected a no-match status message")
	}
	if !r.Listening() {
		t.Error("no-match alone must not end the session")
	}
}
