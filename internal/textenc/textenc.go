// Package textenc decodes the text files LTspice reads and writes.
//
// LTspice IV writes UTF-8/ASCII, LTspice XVII writes .raw, .log and
// sometimes .net files as UTF-16LE. Callers always work on Go strings.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Encoding int

// The BOM variants remember a byte order mark so Encode writes it back.
const (
	UTF8 Encoding = iota
	UTF16LE
	UTF8BOM
	UTF16LEBOM
)

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "utf-8"
	case UTF16LE:
		return "utf-16le"
	case UTF8BOM:
		return "utf-8 with bom"
	case UTF16LEBOM:
		return "utf-16le with bom"
	default:
		return "unknown"
	}
}

var ErrInvalidText = errors.New("invalid text encoding")

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
)

// Decode detects the encoding of b and returns its contents as a string.
func Decode(b []byte) (string, Encoding, error) {
	if isUTF16LE(b) {
		enc := UTF16LE
		if bytes.HasPrefix(b, utf16LEBOM) {
			enc = UTF16LEBOM
		}
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, b)
		if err != nil {
			return "", enc, fmt.Errorf("%w: %v", ErrInvalidText, err)
		}
		return string(out), enc, nil
	}

	enc := UTF8
	if bytes.HasPrefix(b, utf8BOM) {
		enc = UTF8BOM
		b = b[len(utf8BOM):]
	}
	if !utf8.Valid(b) {
		return "", enc, fmt.Errorf("%w: not valid utf-8", ErrInvalidText)
	}
	return string(b), enc, nil
}

// Encode converts s back to the given encoding.
func Encode(s string, enc Encoding) ([]byte, error) {
	var e *encoding.Encoder
	switch enc {
	case UTF8:
		return []byte(s), nil
	case UTF8BOM:
		return append(append([]byte{}, utf8BOM...), s...), nil
	case UTF16LE:
		e = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	case UTF16LEBOM:
		e = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	default:
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrInvalidText, int(enc))
	}
	out, _, err := transform.Bytes(e, []byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidText, err)
	}
	return out, nil
}

// isUTF16LE reports a BOM, or ASCII text interleaved with NUL bytes.
func isUTF16LE(b []byte) bool {
	if bytes.HasPrefix(b, utf16LEBOM) {
		return true
	}
	if len(b) < 4 || len(b)%2 != 0 {
		return false
	}

	n := min(len(b), 64)
	zeros := 0
	for i := 1; i < n; i += 2 {
		if b[i] == 0 && b[i-1] != 0 {
			zeros++
		}
	}
	return zeros == n/2
}
