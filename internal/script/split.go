package script

import (
	"context"
	"strings"
)

// Event is the outcome of feeding one line to a Splitter.
type Event struct {
	// Statement is the text emitted when Emit is set. It may be blank.
	Statement string

	// Emit is set when a statement boundary was reached.
	Emit bool

	// Boundary is set when the line was the transaction delimiter.
	Boundary bool
}

// Splitter cuts a line sequence into statements. It holds the text seen
// since the last boundary and performs no I/O.
type Splitter struct {
	sqlDelim string
	txDelim  string
	buf      strings.Builder
}

// NewSplitter returns a Splitter for the given delimiters. Surrounding
// whitespace of txDelim is ignored.
func NewSplitter(sqlDelim, txDelim string) *Splitter {
	return &Splitter{sqlDelim: sqlDelim, txDelim: strings.TrimSpace(txDelim)}
}

// Feed consumes one line.
//
// A line equal to the transaction delimiter (ignoring case and surrounding
// whitespace) ends the current statement and the transaction. Any other
// line is appended to the buffer, and if the buffer then ends with the sql
// delimiter (ignoring case and trailing whitespace) the text before the
// delimiter is emitted.
func (s *Splitter) Feed(line string) Event {
	if strings.EqualFold(strings.TrimSpace(line), s.txDelim) {
		return Event{Statement: s.take(s.buf.String()), Emit: true, Boundary: true}
	}

	s.buf.WriteByte('\n')
	s.buf.WriteString(line)

	text := strings.TrimRightFunc(s.buf.String(), isSpace)
	if hasSuffixFold(text, s.sqlDelim) {
		return Event{Statement: s.take(text[:len(text)-len(s.sqlDelim)]), Emit: true}
	}
	return Event{}
}

// Sentinel is the line fed once the input is exhausted.
func (s *Splitter) Sentinel() string {
	return s.txDelim
}

// Pending reports whether text is buffered.
func (s *Splitter) Pending() bool {
	return s.buf.Len() > 0
}

// take resets the buffer and returns text without its leading join newline.
func (s *Splitter) take(text string) string {
	s.buf.Reset()
	return strings.TrimPrefix(text, "\n")
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

// isBlank reports whether stmt holds nothing but whitespace.
func isBlank(stmt string) bool {
	return strings.TrimSpace(stmt) == ""
}

// Lines is a source of script lines such as a DecodedStream.
type Lines interface {
	ReadLine() (line string, ok bool, err error)
}

// Split feeds every line of lines through sp and hands the statements to
// sink, flushing the sink at every transaction boundary. Once lines is
// exhausted the transaction delimiter is fed one more time so the trailing
// text is always flushed. Blank statements are dropped. Split returns the
// number of statements submitted.
func Split(ctx context.Context, lines Lines, sp *Splitter, sink Sink) (int, error) {
	count := 0
	ended := false
	for !ended || sp.Pending() {
		line, ok, err := lines.ReadLine()
		if err != nil {
			return count, err
		}
		if !ok {
			if ended {
				// Sentinel already fed; nothing can remain.
				break
			}
			line = sp.Sentinel()
			ended = true
		}

		ev := sp.Feed(line)
		if ev.Emit && !isBlank(ev.Statement) {
			if err := sink.Submit(ctx, ev.Statement); err != nil {
				return count, err
			}
			count++
		}
		if ev.Boundary {
			if err := sink.Flush(ctx); err != nil {
				return count, err
			}
		}
	}
	return count, nil
}
