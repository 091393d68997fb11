package decode

import (
	"bytes"
	"errors"
	"testing"
)

func TestByteToHex(t *testing.T) {
	cases := []struct {
		in   byte
		want string
	}{
		{0x00, "00"},
		{0x0F, "0F"},
		{0xA5, "A5"},
		{0xFF, "FF"},
	}
	for _, c := range cases {
		if got := ByteToHex(c.in); got != c.want {
			t.Errorf("ByteToHex(%02X) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	for i := 0; i < 256; i++ {
		b := byte(i)
		parsed, err := ParseHex(ByteToHex(b))
		if err != nil {
			t.Fatalf("ParseHex(ByteToHex(%02X)): %v", b, err)
		}
		if len(parsed) != 1 || parsed[0] != b {
			t.Fatalf("round trip of %02X produced %v", b, parsed)
		}
	}
}

func TestParseHex(t *testing.T) {
	b, err := ParseHex("DEADbeef")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("unexpected bytes: %v", b)
	}

	for _, in := range []string{"", "A", "0G", "zz"} {
		if _, err := ParseHex(in); !errors.Is(err, ErrInvalidHex) {
			t.Errorf("ParseHex(%q): expected ErrInvalidHex, got %v", in, err)
		}
	}
}

func TestHexDigitToNibble(t *testing.T) {
	cases := []struct {
		in   byte
		want byte
	}{
		{'0', 0}, {'9', 9},
		{'a', 10}, {'f', 15},
		{'A', 10}, {'F', 15},
	}
	for _, c := range cases {
		got, err := HexDigitToNibble(c.in)
		if err != nil {
			t.Fatalf("HexDigitToNibble(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("HexDigitToNibble(%q) = %d, want %d", c.in, got, c.want)
		}
	}

	if _, err := HexDigitToNibble('g'); !errors.Is(err, ErrInvalidHex) {
		t.Errorf("expected ErrInvalidHex for 'g', got %v", err)
	}
	if IsHexDigit('g') || !IsHexDigit('b') {
		t.Error("IsHexDigit misclassified a digit")
	}
}

func TestByteToText(t *testing.T) {
	if got := ByteToText('A'); got != 'A' {
		t.Errorf("expected printable byte to pass through, got %q", got)
	}
	if got := ByteToText(0x20); got != ' ' {
		t.Errorf("expected space to pass through, got %q", got)
	}
	for _, b := range []byte{0x00, 0x1F, 0x7F, 0x80, 0xFF} {
		if got := ByteToText(b); got != Placeholder {
			t.Errorf("ByteToText(%02X) = %q, want placeholder", b, got)
		}
	}
}

func TestBytesToText(t *testing.T) {
	got := BytesToText([]byte{'H', 'i', 0x00, '!', 0xC3})
	if got != "Hi.!." {
		t.Errorf("unexpected text view: %q", got)
	}
}

func TestTextCharToByte(t *testing.T) {
	b, err := TextCharToByte('~')
	if err != nil {
		t.Fatal(err)
	}
	if b != 0x7E {
		t.Errorf("expected 0x7E, got %02X", b)
	}

	for _, r := range []rune{'\n', '\t', 'é', '世'} {
		if _, err := TextCharToByte(r); !errors.Is(err, ErrUnencodable) {
			t.Errorf("TextCharToByte(%q): expected ErrUnencodable, got %v", r, err)
		}
	}
}
