package logstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxEventBytes bounds one line and one event's joined data.
const DefaultMaxEventBytes = 1 << 20

// ErrEventTooLarge is returned when a line or an event exceeds the decoder's
// limit. The stream cannot be resynchronized and must be reopened.
var ErrEventTooLarge = errors.New("server-sent event too large")

// Event is one dispatched server-sent event. Name is empty for unnamed
// messages.
type Event struct {
	Name string
	Data string
	ID   string
}

// Decoder reads server-sent events from a stream.
type Decoder struct {
	scanner *bufio.Scanner
	limit   int
}

// NewDecoder wraps r with DefaultMaxEventBytes as the size limit.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderSize(r, DefaultMaxEventBytes)
}

// NewDecoderSize wraps r. Lines and events larger than limit bytes fail
// with ErrEventTooLarge.
func NewDecoderSize(r io.Reader, limit int) *Decoder {
	if limit <= 0 {
		limit = DefaultMaxEventBytes
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64<<10, limit)), limit)
	return &Decoder{scanner: scanner, limit: limit}
}

// Next blocks until a complete event is available. It returns io.EOF when
// the stream ends; a trailing event without its terminating blank line is
// discarded.
func (d *Decoder) Next() (Event, error) {
	var (
		evt     Event
		data    strings.Builder
		hasData bool
	)
	for {
		if !d.scanner.Scan() {
			err := d.scanner.Err()
			switch {
			case err == nil:
				return Event{}, io.EOF
			case errors.Is(err, bufio.ErrTooLong):
				return Event{}, fmt.Errorf("%w: line exceeds %d bytes", ErrEventTooLarge, d.limit)
			default:
				return Event{}, err
			}
		}
		// ScanLines strips "\n" and a "\r" directly before it.
		line := d.scanner.Text()

		if line == "" {
			if !hasData {
				evt = Event{ID: evt.ID}
				continue
			}
			evt.Data = data.String()
			return evt, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
			if data.Len() > d.limit {
				return Event{}, fmt.Errorf("%w: data exceeds %d bytes", ErrEventTooLarge, d.limit)
			}
		case "event":
			evt.Name = value
		case "id":
			evt.ID = value
		}
	}
}
