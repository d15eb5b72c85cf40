package telemetry

import (
	"bytes"
	"time"
)

// DefaultMaxLineLen bounds a pending fragment. Valid lines are a few dozen bytes.
const DefaultMaxLineLen = 256

// Line is one completed line without its terminator. Carried is how many
// leading bytes were already pending before the Feed that completed it.
type Line struct {
	Text    []byte
	Carried int
}

// LineBuffer reassembles lines from a byte stream that may deliver
// partial lines, several lines, or nothing at all on each poll.
// Not safe for concurrent use; the caller synchronizes.
type LineBuffer struct {
	pending  []byte
	since    time.Time // when pending last grew
	maxAge   time.Duration
	maxBytes int
}

// NewLineBuffer creates a LineBuffer. A fragment that has waited longer than
// maxAge for its terminator is released by Expire; maxAge <= 0 disables expiry.
func NewLineBuffer(maxAge time.Duration) *LineBuffer {
	return &LineBuffer{
		maxAge:   maxAge,
		maxBytes: DefaultMaxLineLen,
	}
}

// Feed appends p and returns every completed line, without terminators.
// Empty lines are skipped. A fragment that outgrows the size bound is
// returned as a line of its own so that it is rejected downstream.
func (b *LineBuffer) Feed(p []byte, now time.Time) []Line {
	if len(p) == 0 {
		return nil
	}
	carried := len(b.pending)
	b.pending = append(b.pending, p...)
	b.since = now

	var lines []Line
	for {
		i := bytes.IndexByte(b.pending, '\n')
		if i < 0 {
			break
		}
		text := bytes.TrimRight(b.pending[:i], "\r")
		if len(text) > 0 {
			lines = append(lines, Line{Text: append([]byte(nil), text...), Carried: min(carried, len(text))})
		}
		b.pending = b.pending[i+1:]
		carried = 0
	}

	if len(b.pending) > b.maxBytes {
		lines = append(lines, Line{Text: append([]byte(nil), b.pending...), Carried: carried})
		b.pending = nil
	}
	if len(b.pending) == 0 {
		b.pending = nil
	}
	return lines
}

// Expire releases the pending fragment if it has been waiting longer than maxAge.
// Call it before Feed so a stale fragment is never glued to fresh data.
func (b *LineBuffer) Expire(now time.Time) []byte {
	if b.maxAge <= 0 || len(b.pending) == 0 {
		return nil
	}
	if now.Sub(b.since) < b.maxAge {
		return nil
	}
	frag := bytes.TrimRight(b.pending, "\r")
	b.pending = nil
	if len(frag) == 0 {
		return nil
	}
	return frag
}

// Pending returns the number of buffered bytes without a terminator.
func (b *LineBuffer) Pending() int {
	return len(b.pending)
}

// DecodeLine decodes l. When l does not decode and began with bytes carried
// over from an earlier poll, that prefix is taken to be a truncated line:
// it is returned as dropped and the remainder is decoded on its own.
func DecodeLine(l Line) (r Reading, dropped []byte, err error) {
	r, err = Decode(l.Text)
	if err == nil || l.Carried == 0 || l.Carried >= len(l.Text) {
		return r, nil, err
	}
	rest, restErr := Decode(l.Text[l.Carried:])
	if restErr != nil {
		return Reading{}, nil, err
	}
	return rest, l.Text[:l.Carried], nil
}
