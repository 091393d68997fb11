package label

import (
	"encoding/binary"
	"testing"
)

func TestComputeByteOrder(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	be := Compute(data, 0, binary.BigEndian)
	if be.Unsigned32 != "16909060" {
		t.Errorf("big-endian u32 = %q, want 16909060", be.Unsigned32)
	}
	if be.Unsigned16 != "258" {
		t.Errorf("big-endian u16 = %q, want 258", be.Unsigned16)
	}

	le := Compute(data, 0, binary.LittleEndian)
	if le.Unsigned32 != "67305985" {
		t.Errorf("little-endian u32 = %q, want 67305985", le.Unsigned32)
	}
	if le.Unsigned16 != "513" {
		t.Errorf("little-endian u16 = %q, want 513", le.Unsigned16)
	}

	// Single-byte labels ignore byte order.
	if be.Unsigned8 != le.Unsigned8 || be.Unsigned8 != "1" {
		t.Errorf("u8 = %q / %q, want 1 for both orders", be.Unsigned8, le.Unsigned8)
	}
}

func TestComputeSigned(t *testing.T) {
	v := Compute([]byte{0xFF, 0xFF}, 0, binary.BigEndian)
	if v.Signed8 != "-1" {
		t.Errorf("i8 = %q, want -1", v.Signed8)
	}
	if v.Unsigned8 != "255" {
		t.Errorf("u8 = %q, want 255", v.Unsigned8)
	}
	if v.Signed16 != "-1" {
		t.Errorf("i16 = %q, want -1", v.Signed16)
	}
	if v.Unsigned16 != "65535" {
		t.Errorf("u16 = %q, want 65535", v.Unsigned16)
	}
}

func TestComputeFloats(t *testing.T) {
	// 1.5 as big-endian float32, then zero padding.
	v := Compute([]byte{0x3F, 0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, 0, binary.BigEndian)
	if v.Float32 != "1.5" {
		t.Errorf("f32 = %q, want 1.5", v.Float32)
	}

	// 1.0 as big-endian float64.
	v = Compute([]byte{0x3F, 0xF0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, 0, binary.BigEndian)
	if v.Float64 != "1" {
		t.Errorf("f64 = %q, want 1", v.Float64)
	}

	// All ones is a NaN in both widths; it must still format.
	v = Compute([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, 0, binary.BigEndian)
	if v.Float32 != "NaN" {
		t.Errorf("f32 = %q, want NaN", v.Float32)
	}
	if v.Float64 != "NaN" {
		t.Errorf("f64 = %q, want NaN", v.Float64)
	}
}

func TestComputeNearEnd(t *testing.T) {
	v := Compute([]byte{0x01, 0x02}, 0, binary.BigEndian)
	if v.Unsigned8 == "" || v.Unsigned16 == "" {
		t.Error("expected 8 and 16 bit labels from two bytes")
	}
	if v.Unsigned32 != "" || v.Signed32 != "" || v.Float32 != "" {
		t.Error("expected 32-bit labels unavailable with two bytes")
	}
	if v.Unsigned64 != "" || v.Signed64 != "" || v.Float64 != "" {
		t.Error("expected 64-bit labels unavailable with two bytes")
	}

	v = Compute(nil, 5, binary.BigEndian)
	if v.Unsigned8 != "" {
		t.Error("expected no value labels past end-of-file")
	}
	if v.Offset == "" {
		t.Error("expected the offset label even past end-of-file")
	}
}

func TestOffsetLabel(t *testing.T) {
	v := Compute([]byte{0x00}, 255, binary.BigEndian)
	if v.Offset != "0xFF (255)" {
		t.Errorf("offset label = %q, want 0xFF (255)", v.Offset)
	}
}

func TestToggleTwiceRestores(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x11, 0x22, 0x33}
	first := Compute(data, 3, binary.BigEndian)
	toggled := Compute(data, 3, binary.LittleEndian)
	back := Compute(data, 3, binary.BigEndian)

	if first != back {
		t.Errorf("labels changed after double toggle: %+v vs %+v", first, back)
	}
	if first == toggled {
		t.Error("expected multi-byte labels to differ between byte orders")
	}
}
