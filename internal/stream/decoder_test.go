package stream

import (
	"io"
	"strings"
	"testing"
)

func collect(t *testing.T, body string) []Frame {
	t.Helper()
	d := NewDecoder(strings.NewReader(body))
	var frames []Frame
	for {
		f, err := d.Next()
		if err == io.EOF {
			return frames
		}
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		frames = append(frames, f)
	}
}

func TestDecoder_ChunksThenDone(t *testing.T) {
	body := "data: {\"chunk\":\"Hi\"}\n" +
		"data: {\"chunk\":\" there\"}\n" +
		"data: {\"done\":true}\n"

	frames := collect(t, body)

	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[0].Kind != FrameChunk || frames[0].Chunk != "Hi" {
		t.Errorf("unexpected frame 0: %+v", frames[0])
	}
	if frames[1].Kind != FrameChunk || frames[1].Chunk != " there" {
		t.Errorf("unexpected frame 1: %+v", frames[1])
	}
	if frames[2].Kind != FrameDone {
		t.Errorf("expected done frame, got %+v", frames[2])
	}
}

func TestDecoder_ErrorFrame(t *testing.T) {
	frames := collect(t, "data: {\"error\":\"model overloaded\"}\n")

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Kind != FrameError || frames[0].Message != "model overloaded" {
		t.Errorf("unexpected error frame: %+v", frames[0])
	}
}

func TestDecoder_MalformedFramesSkipped(t *testing.T) {
	body := "data: {\"chunk\":\"a\"}\n" +
		"data: {not json at all\n" +
		"data: \n" +
		"data: {\"chunk\":\"b\"}\n" +
		"data: {\"done\":true}\n"

	frames := collect(t, body)

	if len(frames) != 3 {
		t.Fatalf("malformed frames must not drop valid ones: got %d frames", len(frames))
	}
	if frames[0].Chunk != "a" || frames[1].Chunk != "b" {
		t.Errorf("unexpected chunks: %+v", frames)
	}
}

func TestDecoder_NonDataLinesIgnored(t *testing.T) {
	body := ": comment\n" +
		"\n" +
		"event: message\n" +
		"data:{\"chunk\":\"no space, not a frame\"}\n" +
		"data: {\"chunk\":\"ok\"}\n"

	frames := collect(t, body)

	if len(frames) != 1 || frames[0].Chunk != "ok" {
		t.Errorf("expected only the well-prefixed frame, got %+v", frames)
	}
}

func TestDecoder_EmptyBody(t *testing.T) {
	frames := collect(t, "")
	if len(frames) != 0 {
		t.Errorf("expected no frames, got %+v", frames)
	}
}

func TestAssembly_MonotonicGrowth(t *testing.T) {
	var a Assembly

	prev := ""
	for _, chunk := range []string{"Hi", " there", "", "!"} {
		got := a.Append(chunk)
		if !strings.HasPrefix(got, prev) {
			t.Fatalf("accumulated text shrank: %q does not extend %q", got, prev)
		}
		prev = got
	}

	if a.Text() != "Hi there!" {
		t.Errorf("expected 'Hi there!', got %q", a.Text())
	}
	if a.Done() {
		t.Error("assembly must not be done before MarkDone")
	}
	a.MarkDone()
	if !a.Done() {
		t.Error("expected done after MarkDone")
	}
}
