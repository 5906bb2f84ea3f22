package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const peekSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// charsets maps chardet names to decoders. Western CSV exports and
// Cyrillic HTML exports are both in scope.
var charsets = map[string]xenc.Encoding{
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-9":   charmap.ISO8859_9,
	"windows-1251": charmap.Windows1251,
	"ISO-8859-5":   charmap.ISO8859_5,
	"KOI8-R":       charmap.KOI8R,
}

// NewUTF8Reader detects the encoding of the input and returns a reader
// that decodes the content to UTF-8. Detection only sees the first
// peekSize bytes; use Decode when the whole input is at hand.
//
// Detection order:
//  1. Check for BOM (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. Validate if the content is valid UTF-8 and return as-is
//  3. Heuristic detection via chardet
//  4. Fallback to the caller's encoding (Windows-1252 when nil)
func NewUTF8Reader(r io.Reader, fallback xenc.Encoding) (io.Reader, error) {
	br := bufio.NewReaderSize(r, peekSize)

	buf, err := br.Peek(peekSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peek: %w", err)
	}

	dec, skip := choose(buf, validUTF8Prefix(buf), fallback)
	_, _ = br.Discard(skip)

	if dec == nil {
		return br, nil
	}

	return transform.NewReader(br, dec), nil
}

// Decode is NewUTF8Reader for input already in memory. UTF-8 validation
// and chardet look at all of data, so a long ASCII preamble does not hide
// a legacy encoding further in.
func Decode(data []byte, fallback xenc.Encoding) io.Reader {
	dec, skip := choose(data, utf8.Valid(data), fallback)

	r := bytes.NewReader(data[skip:])
	if dec == nil {
		return r
	}

	return transform.NewReader(r, dec)
}

// choose picks the decoder for content starting with buf. A nil decoder
// means the content is UTF-8 already; skip bytes of BOM are dropped first.
func choose(buf []byte, isUTF8 bool, fallback xenc.Encoding) (*xenc.Decoder, int) {
	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		return nil, len(bomUTF8)
	case bytes.HasPrefix(buf, bomUTF16LE):
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), 0
	case bytes.HasPrefix(buf, bomUTF16BE):
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder(), 0
	case isUTF8:
		return nil, 0
	}

	// buf already failed UTF-8 validation, so a UTF-8 guess is not trusted.
	result, err := chardet.NewTextDetector().DetectBest(buf)
	if err == nil {
		if enc, ok := charsets[result.Charset]; ok {
			return enc.NewDecoder(), 0
		}
	}

	if fallback == nil {
		fallback = charmap.Windows1252
	}

	return fallback.NewDecoder(), 0
}

// validUTF8Prefix reports whether buf is valid UTF-8, tolerating a
// multi-byte sequence cut off by the peek window.
func validUTF8Prefix(buf []byte) bool {
	if utf8.Valid(buf) {
		return true
	}

	for cut := 1; cut < utf8.UTFMax && cut < len(buf); cut++ {
		head := buf[:len(buf)-cut]
		if utf8.Valid(head) && !utf8.FullRune(buf[len(buf)-cut:]) {
			return true
		}
	}

	return false
}
