// Package stream decodes the assistant backend's chunked chat responses.
//
// The body is newline-delimited, SSE-style: each frame is a line starting
// with the literal prefix "data: " followed by a JSON object carrying
// exactly one of the keys "chunk", "done" or "error".
package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// dataPrefix is the 6-character literal a line must start with to be a frame.
const dataPrefix = "data: "

// FrameKind tags decoded frames.
type FrameKind int

const (
	// FrameChunk carries incremental response text.
	FrameChunk FrameKind = iota
	// FrameDone terminates the stream normally.
	FrameDone
	// FrameError carries a server-signaled error message.
	FrameError
)

// Frame is one decoded line of the streaming response.
type Frame struct {
	Kind    FrameKind
	Chunk   string
	Message string // error message for FrameError
}

// framePayload mirrors the wire JSON. The keys are mutually exclusive.
type framePayload struct {
	Chunk string          `json:"chunk"`
	Done  bool            `json:"done"`
	Error json.RawMessage `json:"error"`
}

// Decoder reads frames from a response body. Lines without the data prefix
// and data lines with malformed JSON are skipped silently; a garbled frame
// never aborts the stream.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder creates a decoder over the raw response body.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{scanner: sc}
}

// Next returns the next well-formed frame. It returns io.EOF when the body
// is exhausted and the underlying read error otherwise.
func (d *Decoder) Next() (Frame, error) {
	for d.scanner.Scan() {
		line := d.scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		var payload framePayload
		if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &payload); err != nil {
			// Partial or garbled frame; tolerate and move on.
			continue
		}
		switch {
		case payload.Done:
			return Frame{Kind: FrameDone}, nil
		case payload.Error != nil:
			var msg string
			if err := json.Unmarshal(payload.Error, &msg); err != nil {
				msg = string(payload.Error)
			}
			return Frame{Kind: FrameError, Message: msg}, nil
		default:
			return Frame{Kind: FrameChunk, Chunk: payload.Chunk}, nil
		}
	}
	if err := d.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}
