// Package search compiles byte patterns and locates every occurrence in a
// document without ever holding the whole file in memory. Scans stream
// overlapping blocks and check for cancellation between blocks so a
// superseding command can abort them.
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"hexed/internal/decode"
)

var (
	// ErrInvalidPattern reports input that is neither an even-length hex
	// digit string nor single-byte text.
	ErrInvalidPattern = errors.New("invalid search pattern")

	// ErrNoMatches reports match navigation with an empty result set.
	ErrNoMatches = errors.New("no matches")
)

// blockSize is how much of the document one scan step reads. Each block is
// extended by len(pattern)-1 bytes so matches spanning a boundary are seen.
const blockSize = 1 << 16

// A Pattern is a compiled query: the literal byte sequence to look for and
// the text the user typed.
type Pattern struct {
	Term  string
	Bytes []byte
}

// Compile interprets an even-length string of hex digits as a literal byte
// sequence and any other string as literal single-byte text characters.
func Compile(input string) (Pattern, error) {
	if input == "" {
		return Pattern{}, fmt.Errorf("%w: empty", ErrInvalidPattern)
	}
	if b, err := decode.ParseHex(input); err == nil {
		return Pattern{Term: input, Bytes: b}, nil
	}
	b := make([]byte, 0, len(input))
	for _, r := range input {
		c, err := decode.TextCharToByte(r)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: %q", ErrInvalidPattern, input)
		}
		b = append(b, c)
	}
	return Pattern{Term: input, Bytes: b}, nil
}

// reader is the slice of the document the scanner needs.
type reader interface {
	ReadAt(off int64, n int) ([]byte, error)
	Size() int64
}

// State holds the match offsets of one scan, in ascending order.
type State struct {
	Pattern Pattern
	Matches []int64
}

// Scan finds all non-overlapping occurrences of p in src, reading block by
// block. ctx aborts the scan between blocks.
func Scan(ctx context.Context, src reader, p Pattern) (*State, error) {
	st := &State{Pattern: p}
	if len(p.Bytes) == 0 {
		return st, nil
	}

	overlap := int64(len(p.Bytes) - 1)
	lastEnd := int64(-1)
	for pos := int64(0); pos < src.Size(); pos += blockSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		block, err := src.ReadAt(pos, int(blockSize+overlap))
		if err != nil {
			return nil, err
		}
		from := 0
		for {
			i := bytes.Index(block[from:], p.Bytes)
			if i < 0 {
				break
			}
			at := int64(from + i)
			from += i + 1
			// Matches inside the overlap belong to the next block.
			if at >= blockSize {
				break
			}
			if pos+at < lastEnd {
				continue
			}
			st.Matches = append(st.Matches, pos+at)
			lastEnd = pos + at + int64(len(p.Bytes))
		}
	}
	return st, nil
}

// Next returns the offset of the first match after current, wrapping to the
// first match. The second return is the 0-based match index.
func (s *State) Next(current int64) (int64, int, error) {
	if len(s.Matches) == 0 {
		return 0, 0, ErrNoMatches
	}
	i := sort.Search(len(s.Matches), func(i int) bool { return s.Matches[i] > current })
	if i == len(s.Matches) {
		i = 0
	}
	return s.Matches[i], i, nil
}

// Prev returns the offset of the last match before current, wrapping to the
// final match.
func (s *State) Prev(current int64) (int64, int, error) {
	if len(s.Matches) == 0 {
		return 0, 0, ErrNoMatches
	}
	i := sort.Search(len(s.Matches), func(i int) bool { return s.Matches[i] >= current })
	if i == 0 {
		i = len(s.Matches)
	}
	return s.Matches[i-1], i - 1, nil
}

// ShiftAfter adjusts recorded match offsets after an insert or delete of
// delta bytes at point. Matches inside a deleted range are dropped.
func (s *State) ShiftAfter(point, delta int64) {
	out := s.Matches[:0]
	for _, m := range s.Matches {
		if m < point {
			out = append(out, m)
			continue
		}
		if delta < 0 && m < point-delta {
			continue
		}
		out = append(out, m+delta)
	}
	s.Matches = out
}
