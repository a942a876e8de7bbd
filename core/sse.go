package core

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// doneSentinel is the data payload that terminates an event stream.
const doneSentinel = "[DONE]"

// SSEEvent is one dispatched server-sent event. Multiple data: lines within
// an event are joined with newlines.
type SSEEvent struct {
	// Name is the event: field, defaulting to "message".
	Name string

	// Data is the joined data payload.
	Data string

	// ID is the id: field, if the event carried one.
	ID string
}

// SSEDecoder frames server-sent events from a line-oriented byte stream.
// It implements the framing rules only; SSEStream layers JSON parsing and
// lifecycle on top.
type SSEDecoder struct {
	scanner *bufio.Scanner
	done    bool
}

// maxSSELine bounds a single frame line; streamed chunks are small, but
// image deltas can carry base64 payloads.
const maxSSELine = 1 << 20

// NewSSEDecoder returns a decoder reading from r.
func NewSSEDecoder(r io.Reader) *SSEDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxSSELine)
	return &SSEDecoder{scanner: scanner}
}

// Next returns the next dispatched event. It returns io.EOF when the stream
// ends or when a [DONE] payload is seen; no event is emitted for the
// sentinel itself.
func (d *SSEDecoder) Next() (SSEEvent, error) {
	if d.done {
		return SSEEvent{}, io.EOF
	}

	var (
		name     string
		id       string
		dataSet  bool
		dataBuf  strings.Builder
		dispatch = func() SSEEvent {
			ev := SSEEvent{Name: name, Data: dataBuf.String(), ID: id}
			if ev.Name == "" {
				ev.Name = "message"
			}
			return ev
		}
	)

	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")

		if line == "" {
			if !dataSet && name == "" && id == "" {
				continue
			}
			ev := dispatch()
			if ev.Data == doneSentinel {
				d.done = true
				return SSEEvent{}, io.EOF
			}
			return ev, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if dataSet {
				dataBuf.WriteString("\n")
			}
			dataBuf.WriteString(value)
			dataSet = true
		case "id":
			id = value
		case "retry":
			// Reconnection hints are not used by a request-scoped stream.
		}
	}

	d.done = true
	if err := d.scanner.Err(); err != nil {
		return SSEEvent{}, err
	}

	// Stream ended without a trailing blank line; dispatch what accumulated.
	if dataSet {
		ev := dispatch()
		if ev.Data == doneSentinel {
			return SSEEvent{}, io.EOF
		}
		return ev, nil
	}
	return SSEEvent{}, io.EOF
}

// SSEStream is a single-consumer iterator over a streaming response body,
// returned by Client.Stream. Recv yields parsed JSON payloads; RecvRaw
// yields the joined data strings. Both modes drive the same decoder, so
// interleaving them observes each event exactly once.
//
// Close releases the underlying response body promptly; the stream must be
// closed even after Recv has returned io.EOF.
type SSEStream struct {
	decoder *SSEDecoder
	body    io.ReadCloser
	cancel  context.CancelFunc
	closed  bool
}

func newSSEStream(body io.ReadCloser, cancel context.CancelFunc) *SSEStream {
	return &SSEStream{
		decoder: NewSSEDecoder(body),
		body:    body,
		cancel:  cancel,
	}
}

// Recv returns the next event's data payload decoded as JSON. It returns
// io.EOF after the [DONE] sentinel or the end of the stream, and ErrDecode
// for payloads that are not valid JSON.
func (s *SSEStream) Recv() (json.RawMessage, error) {
	ev, err := s.next()
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(ev.Data)) {
		return nil, newDecodeError(errInvalidJSON, []byte(ev.Data))
	}
	return json.RawMessage(ev.Data), nil
}

// RecvRaw returns the next event's data payload as a string, without JSON
// parsing. Termination behaves as in Recv.
func (s *SSEStream) RecvRaw() (string, error) {
	ev, err := s.next()
	if err != nil {
		return "", err
	}
	return ev.Data, nil
}

// RecvEvent returns the next full event including its name and id.
func (s *SSEStream) RecvEvent() (SSEEvent, error) {
	return s.next()
}

func (s *SSEStream) next() (SSEEvent, error) {
	if s.closed {
		return SSEEvent{}, io.EOF
	}
	ev, err := s.decoder.Next()
	if err != nil && err != io.EOF {
		return SSEEvent{}, newConnectionError(err, "", "", map[string]string{"stream": "true"})
	}
	return ev, err
}

// Close closes the underlying response body. No further bytes are read
// after Close returns. It is safe to call multiple times.
func (s *SSEStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	return s.body.Close()
}

// errInvalidJSON labels SSE payloads that fail JSON validation.
var errInvalidJSON = &jsonSyntaxError{}

type jsonSyntaxError struct{}

func (*jsonSyntaxError) Error() string { return "payload is not valid JSON" }
