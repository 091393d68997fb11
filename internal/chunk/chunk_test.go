package chunk

import (
	"bytes"
	"errors"
	"testing"
)

func sequence(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func TestReadWithinChunk(t *testing.T) {
	data := sequence(16)
	l := NewLoader(bytes.NewReader(data), int64(len(data)), 8, 0)

	b, err := l.Read(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, data[2:6]) {
		t.Errorf("unexpected bytes: %v", b)
	}
}

func TestReadSpansChunks(t *testing.T) {
	data := sequence(20)
	l := NewLoader(bytes.NewReader(data), int64(len(data)), 4, 0)

	b, err := l.Read(2, 15)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, data[2:17]) {
		t.Errorf("unexpected bytes: %v", b)
	}
}

func TestReadClipped(t *testing.T) {
	data := sequence(10)
	l := NewLoader(bytes.NewReader(data), int64(len(data)), 4, 0)

	b, err := l.Read(8, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, data[8:]) {
		t.Errorf("expected read clipped to end, got %v", b)
	}

	b, err = l.Read(10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 0 {
		t.Errorf("expected empty read past end, got %v", b)
	}

	b, err = l.Read(-3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, data[:2]) {
		t.Errorf("expected negative offset clipped to start, got %v", b)
	}
}

func TestShortTailChunk(t *testing.T) {
	data := sequence(10)
	l := NewLoader(bytes.NewReader(data), int64(len(data)), 4, 0)

	b, err := l.Read(8, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, data[8:]) {
		t.Errorf("unexpected tail bytes: %v", b)
	}
	if l.Resident() != 2 {
		t.Errorf("expected 2 resident bytes for the tail chunk, got %d", l.Resident())
	}
}

func TestBudgetEviction(t *testing.T) {
	data := sequence(64)
	l := NewLoader(bytes.NewReader(data), int64(len(data)), 4, 8)

	for off := int64(0); off < 64; off += 4 {
		if _, err := l.Read(off, 4); err != nil {
			t.Fatal(err)
		}
		if l.Resident() > 8 {
			t.Fatalf("resident %d exceeds budget after reading offset %d", l.Resident(), off)
		}
	}

	// Evicted ranges reload transparently.
	b, err := l.Read(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, data[:4]) {
		t.Errorf("unexpected bytes after reload: %v", b)
	}
}

func TestBudgetBelowChunkSize(t *testing.T) {
	data := sequence(16)
	l := NewLoader(bytes.NewReader(data), int64(len(data)), 8, 1)

	// A budget smaller than one chunk still admits a single chunk.
	b, err := l.Read(0, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, data[:8]) {
		t.Errorf("unexpected bytes: %v", b)
	}
}

func TestDefaults(t *testing.T) {
	l := NewLoader(bytes.NewReader(nil), 0, 0, 0)
	if l.chunkSize != DefaultSize {
		t.Errorf("expected default chunk size %d, got %d", DefaultSize, l.chunkSize)
	}
	if l.budget != DefaultBudget {
		t.Errorf("expected default budget %d, got %d", DefaultBudget, l.budget)
	}
}

func TestReset(t *testing.T) {
	old := sequence(8)
	l := NewLoader(bytes.NewReader(old), int64(len(old)), 4, 0)
	if _, err := l.Read(0, 8); err != nil {
		t.Fatal(err)
	}

	repl := []byte{0xFF, 0xEE, 0xDD}
	l.Reset(bytes.NewReader(repl), int64(len(repl)))

	if l.Size() != 3 {
		t.Errorf("expected size 3 after reset, got %d", l.Size())
	}
	if l.Resident() != 0 {
		t.Errorf("expected empty cache after reset, got %d resident", l.Resident())
	}
	b, err := l.Read(0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, repl) {
		t.Errorf("expected bytes from the new source, got %v", b)
	}
}

type failingReader struct{}

func (failingReader) ReadAt([]byte, int64) (int, error) {
	return 0, errors.New("disk gone")
}

func TestReadError(t *testing.T) {
	l := NewLoader(failingReader{}, 8, 4, 0)
	if _, err := l.Read(0, 4); err == nil {
		t.Error("expected load failure to surface")
	}
	if l.Resident() != 0 {
		t.Errorf("expected no resident bytes after failed load, got %d", l.Resident())
	}
}
