// Package label derives numeric interpretations of the bytes under the
// cursor. Multi-byte labels honor the selected byte order; 8-bit and offset
// labels do not. A label that would need more bytes than remain before
// end-of-file is left empty rather than computed from short data.
package label

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Width is the most bytes any label interprets.
const Width = 8

// Values holds the formatted labels for one cursor position. Empty string
// means unavailable.
type Values struct {
	Offset string

	Signed8    string
	Unsigned8  string
	Signed16   string
	Unsigned16 string
	Signed32   string
	Unsigned32 string
	Signed64   string
	Unsigned64 string

	Float32 string
	Float64 string
}

// Compute derives all labels from up to Width bytes starting at the cursor.
// data holds whatever bytes were available before end-of-file.
func Compute(data []byte, offset int64, order binary.ByteOrder) Values {
	v := Values{Offset: fmt.Sprintf("0x%X (%d)", offset, offset)}

	if len(data) >= 1 {
		v.Signed8 = fmt.Sprintf("%d", int8(data[0]))
		v.Unsigned8 = fmt.Sprintf("%d", data[0])
	}
	if len(data) >= 2 {
		u := order.Uint16(data[:2])
		v.Signed16 = fmt.Sprintf("%d", int16(u))
		v.Unsigned16 = fmt.Sprintf("%d", u)
	}
	if len(data) >= 4 {
		u := order.Uint32(data[:4])
		v.Signed32 = fmt.Sprintf("%d", int32(u))
		v.Unsigned32 = fmt.Sprintf("%d", u)
		v.Float32 = formatFloat(float64(math.Float32frombits(u)))
	}
	if len(data) >= 8 {
		u := order.Uint64(data[:8])
		v.Signed64 = fmt.Sprintf("%d", int64(u))
		v.Unsigned64 = fmt.Sprintf("%d", u)
		v.Float64 = formatFloat(math.Float64frombits(u))
	}
	return v
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprintf("%v", f)
	}
	return fmt.Sprintf("%g", f)
}
