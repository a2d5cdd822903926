package chat

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
	readChunk    = 4096

	// MaxLineSize bounds one buffered line. A longer line is dropped and
	// counted as a skipped frame.
	MaxLineSize = 1 << 20
)

// extractDelta pulls the text delta out of one decoded frame. An empty delta
// means the frame carries no text; stop marks the family's final frame.
type extractDelta func(payload []byte) (delta string, stop bool)

func extractAnthropic(payload []byte) (string, bool) {
	frame := gjson.ParseBytes(payload)
	switch frame.Get("type").String() {
	case "content_block_delta":
		return frame.Get("delta.text").String(), false
	case "message_stop":
		return "", true
	}
	return "", false
}

func extractOpenAI(payload []byte) (string, bool) {
	return gjson.GetBytes(payload, "choices.0.delta.content").String(), false
}

func extractorFor(f Family) extractDelta {
	if f == FamilyAnthropic {
		return extractAnthropic
	}
	return extractOpenAI
}

// StreamParser decodes a server-sent event stream incrementally. Chunks may
// split lines anywhere; the emitted deltas do not depend on where.
type StreamParser struct {
	extract    extractDelta
	pending    []byte
	discarding bool
	done       bool
	skipped    int
}

// NewStreamParser creates a parser for family's frame format.
func NewStreamParser(family Family) *StreamParser {
	return &StreamParser{extract: extractorFor(family)}
}

// Feed consumes chunk and calls emit for every non-empty delta in a completed
// line. It returns true once the stream's final frame ([DONE], or
// message_stop for Anthropic) has been seen; later input is ignored.
func (p *StreamParser) Feed(chunk []byte, emit func(string)) bool {
	if p.done {
		return true
	}
	if p.discarding {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			return false
		}
		p.discarding = false
		chunk = chunk[i+1:]
	}
	p.pending = append(p.pending, chunk...)

	for {
		i := bytes.IndexByte(p.pending, '\n')
		if i < 0 {
			break
		}
		line := p.pending[:i]
		p.pending = p.pending[i+1:]

		if len(line) > MaxLineSize {
			p.skipped++
			continue
		}
		if p.handleLine(line, emit) {
			p.done = true
			p.pending = nil
			return true
		}
	}

	if len(p.pending) > MaxLineSize {
		p.skipped++
		p.discarding = true
		p.pending = nil
	}
	if len(p.pending) == 0 {
		p.pending = nil
	}
	return false
}

// Flush processes a final line that was not newline-terminated.
func (p *StreamParser) Flush(emit func(string)) bool {
	if p.done {
		return true
	}
	line := p.pending
	p.pending = nil
	if p.discarding {
		p.discarding = false
		return false
	}
	if len(line) > 0 && p.handleLine(line, emit) {
		p.done = true
	}
	return p.done
}

// Done reports whether the final frame has been seen.
func (p *StreamParser) Done() bool { return p.done }

// Skipped returns the number of data frames that were not valid JSON.
func (p *StreamParser) Skipped() int { return p.skipped }

func (p *StreamParser) handleLine(line []byte, emit func(string)) bool {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return false
	}

	payload := line[len(dataPrefix):]
	if len(payload) > 0 && payload[0] == ' ' {
		payload = payload[1:]
	}
	if len(payload) == 0 {
		return false
	}
	if string(payload) == doneSentinel {
		return true
	}
	if !gjson.ValidBytes(payload) {
		p.skipped++
		return false
	}

	delta, stop := p.extract(payload)
	if delta != "" {
		emit(delta)
	}
	return stop
}

// Consume reads r to completion through p. It stops at the final frame, at EOF
// (flushing any unterminated final line) or at a read error, which is
// returned wrapped in ErrStreamRead.
func Consume(r io.Reader, p *StreamParser, emit func(string)) error {
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 && p.Feed(buf[:n], emit) {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.Flush(emit)
				return nil
			}
			return fmt.Errorf("%w: %w", ErrStreamRead, err)
		}
	}
}
