package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// dataPrefix marks a line carrying an event record. Every other line
// (blank keep-alives, comments) is ignored.
var dataPrefix = []byte("data: ")

// Decoder reassembles discrete StreamEvents from an arbitrarily-chunked
// response body. Bytes are buffered until a full '\n'-terminated line is
// available, so a JSON record — or a multi-byte UTF-8 sequence — split
// across two reads is reassembled before anything is decoded. Decoding a
// fragment in isolation would corrupt split runes; the buffer-then-split
// approach is the only correct order of operations.
type Decoder struct {
	buf  []byte
	warn func(string)
}

// NewDecoder returns a Decoder for one response body. warn receives a
// diagnostic for each malformed data line; it may be nil.
func NewDecoder(warn func(string)) *Decoder {
	return &Decoder{warn: warn}
}

// Feed appends one raw fragment and returns every event completed by it,
// in arrival order. Zero events is a normal outcome for a fragment that
// ends mid-line.
func (d *Decoder) Feed(p []byte) []StreamEvent {
	d.buf = append(d.buf, p...)

	var events []StreamEvent
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]

		ev, ok := d.decodeLine(line)
		if ok {
			events = append(events, ev)
		}
	}
	return events
}

// Close discards any unterminated trailing bytes. A record without its
// newline never arrived completely and must not be surfaced.
func (d *Decoder) Close() {
	d.buf = nil
}

// decodeLine parses a single complete line. Lines without the data prefix
// are silently skipped; a data line that fails to parse is dropped after
// reporting, and decoding continues with the next line.
func (d *Decoder) decodeLine(line []byte) (StreamEvent, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, dataPrefix) {
		return StreamEvent{}, false
	}
	payload := line[len(dataPrefix):]

	var ev StreamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		if d.warn != nil {
			d.warn(fmt.Sprintf("[stream] drop malformed record: %v", err))
		}
		return StreamEvent{}, false
	}
	return ev, true
}
