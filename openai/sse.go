package openai

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// byteOrderMark may precede the first line of a stream.
const byteOrderMark = "\ufeff"

// Event is one server-sent event.
type Event struct {
	ID    string
	Type  string
	Data  string
	Retry time.Duration
	// HasRetry is set when the event carried a valid retry field.
	HasRetry bool
}

// EventReader decodes a text/event-stream body one event at a time.
// Lines have no length limit.
type EventReader struct {
	br      *bufio.Reader
	line    bytes.Buffer
	afterCR bool
	started bool
}

// NewEventReader returns a reader decoding events from r.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{br: bufio.NewReader(r)}
}

// Next blocks until the next complete event arrives. It returns io.EOF at the
// end of the stream; an event left unterminated at that point is dropped.
func (er *EventReader) Next() (Event, error) {
	var (
		ev      Event
		data    strings.Builder
		hasData bool
	)

	for {
		line, err := er.readLine()
		if err != nil {
			return Event{}, err
		}

		if line == "" {
			if hasData || ev.HasRetry {
				ev.Data = data.String()
				return ev, nil
			}
			ev = Event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				ev.ID = value
			}
		case "retry":
			if ms, err := strconv.ParseUint(value, 10, 63); err == nil {
				ev.Retry = time.Duration(ms) * time.Millisecond
				ev.HasRetry = true
			}
		}
	}
}

// readLine returns the next line without its LF, CRLF or CR terminator. A
// final line cut off by the end of the stream is returned before io.EOF.
func (er *EventReader) readLine() (string, error) {
	er.line.Reset()
	for {
		b, err := er.br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && er.line.Len() > 0 {
				return er.takeLine(), nil
			}
			return "", err
		}

		if er.afterCR {
			er.afterCR = false
			if b == '\n' {
				continue
			}
		}

		switch b {
		case '\n':
			return er.takeLine(), nil
		case '\r':
			// A following LF belongs to this terminator.
			er.afterCR = true
			return er.takeLine(), nil
		}
		er.line.WriteByte(b)
	}
}

func (er *EventReader) takeLine() string {
	line := er.line.String()
	if !er.started {
		er.started = true
		line = strings.TrimPrefix(line, byteOrderMark)
	}
	return line
}
