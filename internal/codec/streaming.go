package codec

// streaming.go cleans up text input before it reaches a parser.
//
// Spreadsheet exports from Windows tools often start with a UTF-8 byte order
// mark and occasionally contain bytes in a legacy encoding. Both are fixed on
// the fly with constant memory: the BOM is dropped and every byte that is not
// part of a valid UTF-8 sequence becomes '?'.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a reader over r without a leading UTF-8 BOM.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// Sanitizer replaces invalid UTF-8 with '?' while streaming. A multi-byte
// sequence split across reads of the source is held back until complete.
type Sanitizer struct {
	src   io.Reader
	raw   []byte // input not yet decoded; at most a partial rune between reads
	out   []byte // decoded output not yet returned
	err   error  // sticky error from src
	chunk [4096]byte
}

// NewSanitizer wraps r.
func NewSanitizer(r io.Reader) *Sanitizer {
	return &Sanitizer{src: r}
}

func (s *Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		n, err := s.src.Read(s.chunk[:])
		s.raw = append(s.raw, s.chunk[:n]...)
		s.err = err
		s.decode(err != nil)
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// decode moves complete runes from raw to out. When final is set no more
// input follows, so a trailing partial rune is invalid too.
func (s *Sanitizer) decode(final bool) {
	i := 0
	for i < len(s.raw) {
		b := s.raw[i]
		if b < utf8.RuneSelf {
			s.out = append(s.out, b)
			i++
			continue
		}
		if !final && !utf8.FullRune(s.raw[i:]) {
			break
		}
		r, size := utf8.DecodeRune(s.raw[i:])
		if r == utf8.RuneError && size == 1 {
			s.out = append(s.out, '?')
		} else {
			s.out = append(s.out, s.raw[i:i+size]...)
		}
		i += size
	}
	s.raw = append(s.raw[:0], s.raw[i:]...)
}

// CleanText applies SkipBOM and Sanitizer to r.
func CleanText(r io.Reader) io.Reader {
	return NewSanitizer(SkipBOM(r))
}
