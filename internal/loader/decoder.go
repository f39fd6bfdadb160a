package loader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Frame is one decoded wire frame: an event tag and its JSON payload.
type Frame struct {
	Event string
	Data  []byte
}

var errDanglingFrame = errors.New("loader: stream ended inside an unterminated frame")

// frameDelimiter separates wire frames; see the server-side frame
// writer for the encoding.
var frameDelimiter = []byte("\n\n")

// Decoder turns an arbitrarily-chunked byte stream back into the frame
// sequence it encodes. The transport delivers bytes, not frames: one
// read may hold many frames, one frame may span many reads. Feed
// appends to an internal buffer and emits every complete frame found,
// retaining the trailing partial frame, so the decoded sequence is
// identical for every possible split of the same byte stream.
//
// A frame that does not parse as an "event:"/"data:" pair escalates as
// an error rather than being dropped; a silently skipped frame would
// break the gap-free chunk ordering guarantee downstream.
type Decoder struct {
	buf     bytes.Buffer
	onFrame func(Frame) error
}

// NewDecoder returns a decoder dispatching each complete frame to
// onFrame in stream order. An onFrame error stops decoding and is
// returned from Feed.
func NewDecoder(onFrame func(Frame) error) *Decoder {
	return &Decoder{onFrame: onFrame}
}

// Feed appends one transport read and dispatches every frame it
// completes.
func (d *Decoder) Feed(p []byte) error {
	d.buf.Write(p)

	for {
		raw := d.buf.Bytes()
		end := bytes.Index(raw, frameDelimiter)
		if end < 0 {
			return nil
		}

		frame, err := parseFrame(raw[:end])
		d.buf.Next(end + len(frameDelimiter))
		if err != nil {
			return err
		}

		if err := d.onFrame(frame); err != nil {
			return err
		}
	}
}

// Close verifies the stream ended on a frame boundary.
func (d *Decoder) Close() error {
	if len(bytes.TrimSpace(d.buf.Bytes())) != 0 {
		return errDanglingFrame
	}
	return nil
}

// parseFrame decodes one delimiter-free frame body. The expected shape
// is an "event:" line followed by one or more "data:" lines; multiple
// data lines are joined, matching the server-sent-events convention.
func parseFrame(raw []byte) (Frame, error) {
	var frame Frame
	var data []string

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			if frame.Event != "" {
				return Frame{}, fmt.Errorf("loader: frame has multiple event lines")
			}
			frame.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		default:
			return Frame{}, fmt.Errorf("loader: malformed frame line %q", line)
		}
	}

	if frame.Event == "" || len(data) == 0 {
		return Frame{}, fmt.Errorf("loader: frame missing event or data line")
	}

	frame.Data = []byte(strings.Join(data, "\n"))
	return frame, nil
}
