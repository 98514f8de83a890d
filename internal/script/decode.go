package script

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/leapstack-labs/leapdb/internal/source"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// bom is a byte order mark and the encoding it selects.
type bom struct {
	mark []byte
	name string
	enc  encoding.Encoding
}

// boms is ordered longest first: the UTF-32LE mark starts with the UTF-16LE one.
var boms = []bom{
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, "UTF-32LE", utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)},
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, "UTF-32BE", utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)},
	{[]byte{0xEF, 0xBB, 0xBF}, "UTF-8", unicode.UTF8},
	{[]byte{0xFF, 0xFE}, "UTF-16LE", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	{[]byte{0xFE, 0xFF}, "UTF-16BE", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
}

// DecodedStream yields the lines of one script.
type DecodedStream struct {
	// Encoding is the name of the character encoding used for decoding.
	Encoding string

	r       *bufio.Reader
	closers []io.Closer
	done    bool
}

// IsGzip reports whether name designates a gzip compressed script.
func IsGzip(name string) bool {
	return strings.HasSuffix(strings.ToUpper(name), "GZ")
}

// Decode opens the script at path and prepares it for line reading.
//
// Names ending in "gz" (any case) are gunzipped. A leading byte order mark
// selects the encoding and is dropped; otherwise cfg.Encoding is used,
// falling back to the platform default which is then stored in cfg.
func Decode(ctx context.Context, src source.Source, path string, cfg *Config, logger *slog.Logger) (*DecodedStream, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	entry, err := src.Stat(ctx, path)
	if err != nil {
		return nil, &NotAFileError{Path: path, Err: err}
	}
	if !entry.Regular {
		return nil, &NotAFileError{Path: path}
	}

	rc, err := src.Open(ctx, path)
	if err != nil {
		return nil, &NotAFileError{Path: path, Err: err}
	}
	s := &DecodedStream{closers: []io.Closer{rc}}

	var raw io.Reader = rc
	if IsGzip(path) {
		logger.Info("file is gz compressed", slog.String("file", path))
		zr, err := gzip.NewReader(rc)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		s.closers = append([]io.Closer{zr}, s.closers...)
		raw = zr
	}

	br := bufio.NewReader(raw)
	enc, name, err := detectEncoding(br, cfg, logger)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	s.Encoding = name
	s.r = bufio.NewReader(transform.NewReader(br, enc.NewDecoder()))
	return s, nil
}

// detectEncoding consumes a byte order mark if present and returns the
// encoding to decode the rest of the stream with.
func detectEncoding(br *bufio.Reader, cfg *Config, logger *slog.Logger) (encoding.Encoding, string, error) {
	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", err
	}

	for _, b := range boms {
		if bytes.HasPrefix(head, b.mark) {
			if _, err := br.Discard(len(b.mark)); err != nil {
				return nil, "", err
			}
			logger.Debug("byte order mark found", slog.String("encoding", b.name))
			return b.enc, b.name, nil
		}
	}

	name := cfg.resolveEncoding(logger)
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, "", err
	}
	logger.Info("reading script", slog.String("encoding", name))
	return enc, name, nil
}

// lookupEncoding resolves an encoding name through the IANA registry and
// the WHATWG encoding labels.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	switch strings.ToUpper(name) {
	case "UTF-32", "UTF-32BE":
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM), nil
	case "UTF-32LE":
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM), nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

// ReadLine returns the next line without its terminator. A line ends at
// "\n", "\r\n" or a lone "\r". ok is false once the stream is exhausted.
func (s *DecodedStream) ReadLine() (line string, ok bool, err error) {
	if s.done {
		return "", false, nil
	}
	var b strings.Builder
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", false, err
			}
			s.done = true
			return b.String(), b.Len() > 0, nil
		}
		switch c {
		case '\n':
			return b.String(), true, nil
		case '\r':
			if next, err := s.r.Peek(1); err == nil && next[0] == '\n' {
				_, _ = s.r.ReadByte()
			}
			return b.String(), true, nil
		}
		b.WriteByte(c)
	}
}

// Close releases the decompressor and the underlying file.
func (s *DecodedStream) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
