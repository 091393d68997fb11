// Package decode converts between raw bytes, hex digit pairs and the
// single-byte text view. The text pane is a strict one-glyph-per-byte view:
// printable ASCII passes through, everything else renders as '.'.
package decode

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidHex reports input outside [0-9a-fA-F].
	ErrInvalidHex = errors.New("invalid hex digit")

	// ErrUnencodable reports a character with no single-byte representation.
	ErrUnencodable = errors.New("character not encodable as a single byte")
)

// Placeholder is the glyph shown for bytes outside printable ASCII.
const Placeholder = '.'

const hexDigits = "0123456789ABCDEF"

// ByteToHex formats b as an uppercase two-digit pair.
func ByteToHex(b byte) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0F]})
}

// BytesToHex formats each byte as an uppercase two-digit pair.
func BytesToHex(data []byte) []string {
	out := make([]string, len(data))
	for i, b := range data {
		out[i] = ByteToHex(b)
	}
	return out
}

// HexDigitToNibble converts one hex digit to its 4-bit value.
func HexDigitToNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidHex, c)
}

// IsHexDigit reports whether c is a valid hex digit.
func IsHexDigit(c byte) bool {
	_, err := HexDigitToNibble(c)
	return err == nil
}

// ParseHex decodes an even-length string of hex digits into bytes.
func ParseHex(s string) ([]byte, error) {
	if len(s) == 0 || len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: %q is not an even number of digits", ErrInvalidHex, s)
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		hi, err := HexDigitToNibble(s[i])
		if err != nil {
			return nil, err
		}
		lo, err := HexDigitToNibble(s[i+1])
		if err != nil {
			return nil, err
		}
		out[i/2] = hi<<4 | lo
	}
	return out, nil
}

// ByteToText returns the text-pane glyph for b.
func ByteToText(b byte) rune {
	if b >= 0x20 && b <= 0x7E {
		return rune(b)
	}
	return Placeholder
}

// BytesToText renders one glyph per byte.
func BytesToText(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(ByteToText(b))
	}
	return sb.String()
}

// TextCharToByte converts typed text-pane input back to a byte. Only the
// single-byte printable range is accepted, since the file is raw bytes.
func TextCharToByte(c rune) (byte, error) {
	if c >= 0x20 && c <= 0x7E {
		return byte(c), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnencodable, c)
}
