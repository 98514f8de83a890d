package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceLines serves lines from memory.
type sliceLines struct {
	lines []string
	pos   int
	err   error
}

func linesOf(text string) *sliceLines {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return &sliceLines{}
	}
	return &sliceLines{lines: strings.Split(text, "\n")}
}

func (l *sliceLines) ReadLine() (string, bool, error) {
	if l.pos >= len(l.lines) {
		if l.err != nil {
			return "", false, l.err
		}
		return "", false, nil
	}
	line := l.lines[l.pos]
	l.pos++
	return line, true, nil
}

// recordingSink records submitted statements and flushes.
type recordingSink struct {
	statements []string
	flushes    int
	failOn     string
}

func (s *recordingSink) Submit(_ context.Context, stmt string) error {
	if s.failOn != "" && stmt == s.failOn {
		return errors.New("submit failed")
	}
	s.statements = append(s.statements, stmt)
	return nil
}

func (s *recordingSink) Flush(context.Context) error {
	s.flushes++
	return nil
}

// feedAll runs text through a splitter, including the end-of-input sentinel.
func feedAll(sp *Splitter, text string) []Event {
	var events []Event
	for _, line := range linesOf(text).lines {
		events = append(events, sp.Feed(line))
	}
	return append(events, sp.Feed(sp.Sentinel()))
}

func emitted(events []Event) []string {
	var out []string
	for _, ev := range events {
		if ev.Emit && !isBlank(ev.Statement) {
			out = append(out, ev.Statement)
		}
	}
	return out
}

func boundaries(events []Event) int {
	n := 0
	for _, ev := range events {
		if ev.Boundary {
			n++
		}
	}
	return n
}

func TestSplitter_Feed(t *testing.T) {
	tests := []struct {
		name     string
		sqlDelim string
		txDelim  string
		line     string
		buffered []string
		want     Event
	}{
		{
			name:     "plain line is buffered",
			sqlDelim: ";", txDelim: "GO",
			line: "SELECT 1",
			want: Event{},
		},
		{
			name:     "sql delimiter ends statement",
			sqlDelim: ";", txDelim: "GO",
			line: "SELECT 1;",
			want: Event{Statement: "SELECT 1", Emit: true},
		},
		{
			name:     "trailing whitespace after delimiter",
			sqlDelim: ";", txDelim: "GO",
			line: "SELECT 1;  \t",
			want: Event{Statement: "SELECT 1", Emit: true},
		},
		{
			name:     "multi line statement keeps inner newlines",
			sqlDelim: ";", txDelim: "GO",
			buffered: []string{"CREATE TABLE t (", "  id INT"},
			line:     ");",
			want:     Event{Statement: "CREATE TABLE t (\n  id INT\n)", Emit: true},
		},
		{
			name:     "transaction delimiter ends buffered statement",
			sqlDelim: ";", txDelim: "GO",
			buffered: []string{"SELECT 1"},
			line:     "GO",
			want:     Event{Statement: "SELECT 1", Emit: true, Boundary: true},
		},
		{
			name:     "transaction delimiter is case insensitive and trimmed",
			sqlDelim: ";", txDelim: "GO",
			buffered: []string{"SELECT 1"},
			line:     "  go\t",
			want:     Event{Statement: "SELECT 1", Emit: true, Boundary: true},
		},
		{
			name:     "transaction delimiter on empty buffer emits empty statement",
			sqlDelim: ";", txDelim: "GO",
			line: "GO",
			want: Event{Emit: true, Boundary: true},
		},
		{
			name:     "word delimiter is case insensitive",
			sqlDelim: "END", txDelim: "/",
			line: "UPDATE t SET x = 1 end",
			want: Event{Statement: "UPDATE t SET x = 1 ", Emit: true},
		},
		{
			name:     "delimiter inside line is not a boundary",
			sqlDelim: ";", txDelim: "GO",
			line: "SELECT ';' AS x",
			want: Event{},
		},
		{
			name:     "transaction delimiter with trailing text is a plain line",
			sqlDelim: ";", txDelim: "GO",
			line: "GO 5",
			want: Event{},
		},
		{
			name:     "blank line after delimited statement",
			sqlDelim: ";", txDelim: "GO",
			buffered: []string{""},
			line:     "",
			want:     Event{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := NewSplitter(tt.sqlDelim, tt.txDelim)
			for _, l := range tt.buffered {
				require.False(t, sp.Feed(l).Emit, "setup line %q must not emit", l)
			}
			assert.Equal(t, tt.want, sp.Feed(tt.line))
		})
	}
}

func TestSplitter_BufferResets(t *testing.T) {
	sp := NewSplitter(";", "GO")

	assert.Equal(t, Event{Statement: "SELECT 1", Emit: true}, sp.Feed("SELECT 1;"))
	assert.False(t, sp.Pending())

	sp.Feed("SELECT 2")
	assert.True(t, sp.Pending())
	assert.Equal(t, Event{Statement: "SELECT 2", Emit: true, Boundary: true}, sp.Feed("GO"))
	assert.False(t, sp.Pending())
}

func TestSplitter_LineNotMutated(t *testing.T) {
	sp := NewSplitter(";", "GO")
	sp.Feed("  SELECT   1  ")
	ev := sp.Feed("GO")
	assert.Equal(t, "  SELECT   1  ", ev.Statement)
}

func TestSplitter_EveryLineIsTransactionDelimiter(t *testing.T) {
	for _, n := range []int{1, 2, 5, 10} {
		text := strings.Repeat("GO\n", n)
		events := feedAll(NewSplitter(";", "GO"), text)

		require.Len(t, events, n+1)
		for _, ev := range events {
			assert.True(t, ev.Emit)
			assert.True(t, ev.Boundary)
			assert.Empty(t, ev.Statement)
		}
		assert.Empty(t, emitted(events))

		sink := &recordingSink{}
		count, err := Split(context.Background(), linesOf(text), NewSplitter(";", "GO"), sink)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Empty(t, sink.statements)
	}
}

func TestSplitter_FlushEventCount(t *testing.T) {
	inputs := []string{
		"",
		"SELECT 1;",
		"SELECT 1\nGO\nSELECT 2\nGO\n",
		"GO\nGO\nSELECT 1;\nSELECT 2\n",
		"INSERT INTO t VALUES (1);\ngo\n\n  GO  \nSELECT 3",
		"GOTO;\nGO;\n",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			explicit := 0
			for _, line := range linesOf(in).lines {
				if strings.EqualFold(strings.TrimSpace(line), "GO") {
					explicit++
				}
			}

			assert.Equal(t, explicit+1, boundaries(feedAll(NewSplitter(";", "GO"), in)))

			sink := &recordingSink{}
			_, err := Split(context.Background(), linesOf(in), NewSplitter(";", "GO"), sink)
			require.NoError(t, err)
			assert.Equal(t, explicit+1, sink.flushes)
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		sqlDelim string
		txDelim  string
		input    string
		want     []string
		flushes  int
	}{
		{
			name:     "two delimited statements",
			sqlDelim: ";", txDelim: "GO",
			input:   "SELECT 1;\nSELECT 2;\n",
			want:    []string{"SELECT 1", "SELECT 2"},
			flushes: 1,
		},
		{
			name:     "transaction delimited statements",
			sqlDelim: ";", txDelim: "GO",
			input:   "SELECT 1\nGO\nSELECT 2\nGO\n",
			want:    []string{"SELECT 1", "SELECT 2"},
			flushes: 3,
		},
		{
			name:     "trailing statement without terminator",
			sqlDelim: ";", txDelim: "GO",
			input:   "SELECT 1;\nSELECT 2",
			want:    []string{"SELECT 1", "SELECT 2"},
			flushes: 1,
		},
		{
			name:     "blank statements dropped",
			sqlDelim: ";", txDelim: "GO",
			input:   ";\n  ;\n\nSELECT 1;\n\n",
			want:    []string{"\nSELECT 1"},
			flushes: 1,
		},
		{
			name:     "empty input",
			sqlDelim: ";", txDelim: "GO",
			input:   "",
			flushes: 1,
		},
		{
			name:     "custom delimiters",
			sqlDelim: "/", txDelim: "COMMIT WORK",
			input:   "BEGIN\n  x := 1;\nEND;\n/\ncommit work\nSELECT 2 FROM dual\n/",
			want:    []string{"BEGIN\n  x := 1;\nEND;\n", "SELECT 2 FROM dual\n"},
			flushes: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			count, err := Split(context.Background(), linesOf(tt.input), NewSplitter(tt.sqlDelim, tt.txDelim), sink)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sink.statements)
			assert.Equal(t, len(tt.want), count)
			assert.Equal(t, tt.flushes, sink.flushes)
		})
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	statements := []string{
		"SELECT 1",
		"INSERT INTO t (a, b)\nVALUES (1, 'x')",
		"  UPDATE t\n     SET a = a + 1\n   WHERE b = 'y'",
		"CREATE TABLE t (\n\n  id INT\n)",
	}

	for _, stmt := range statements {
		t.Run(stmt, func(t *testing.T) {
			sink := &recordingSink{}
			_, err := Split(context.Background(), linesOf(stmt+";\n"), NewSplitter(";", "GO"), sink)
			require.NoError(t, err)
			require.Len(t, sink.statements, 1)
			assert.Equal(t, strings.TrimSpace(stmt), strings.TrimSpace(sink.statements[0]))

			sink = &recordingSink{}
			_, err = Split(context.Background(), linesOf(stmt+"\nGO\n"), NewSplitter(";", "GO"), sink)
			require.NoError(t, err)
			require.Len(t, sink.statements, 1)
			assert.Equal(t, strings.TrimSpace(stmt), strings.TrimSpace(sink.statements[0]))
		})
	}
}

func TestSplit_Errors(t *testing.T) {
	t.Run("read error", func(t *testing.T) {
		lines := &sliceLines{lines: []string{"SELECT 1;"}, err: errors.New("disk gone")}
		sink := &recordingSink{}
		count, err := Split(context.Background(), lines, NewSplitter(";", "GO"), sink)
		require.EqualError(t, err, "disk gone")
		assert.Equal(t, 1, count)
		assert.Zero(t, sink.flushes)
	})

	t.Run("sink error stops splitting", func(t *testing.T) {
		sink := &recordingSink{failOn: "SELECT 2"}
		count, err := Split(context.Background(), linesOf("SELECT 1;\nSELECT 2;\nSELECT 3;"), NewSplitter(";", "GO"), sink)
		require.Error(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, []string{"SELECT 1"}, sink.statements)
	})
}
