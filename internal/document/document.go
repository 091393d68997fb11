// Package document exposes byte-addressable read/write over a file of
// unbounded size and tracks every committed mutation as a reversible edit.
//
// Content is represented as a piece chain: file-backed pieces are read
// through a chunk.Loader on demand, memory pieces hold edited bytes. Insert
// and delete splice the chain instead of shifting file content, so the
// resident footprint stays bounded by the loader budget plus the edits
// themselves.
package document

import (
	"fmt"
	"os"
	"path/filepath"

	"hexed/internal/chunk"
)

type EditKind int

const (
	EditOverwrite EditKind = iota
	EditInsert
	EditDelete
	EditResize
)

// Edit is one committed reversible mutation. Old holds the bytes the edit
// replaced or removed, New the bytes it wrote.
type Edit struct {
	Kind   EditKind
	Offset int64
	Old    []byte
	New    []byte
}

// LengthDelta reports how the edit changed the document length. Callers use
// it to shift cursor, selection and search offsets past the edit point.
func (e Edit) LengthDelta() int64 {
	return int64(len(e.New)) - int64(len(e.Old))
}

// piece is one run of document content: file-backed when data is nil
// (off is the offset in the on-disk file), in-memory otherwise.
type piece struct {
	off  int64
	data []byte
	n    int64
}

type Document struct {
	path   string
	file   *os.File
	loader *chunk.Loader

	pieces []piece
	length int64

	undoStack []Edit
	redoStack []Edit

	// savedDepth is the undo depth at the last successful save, or -1 when
	// that state is no longer reachable through undo/redo.
	savedDepth int

	chunkSize int64
	budget    int64
}

// Open opens path for editing. Content is not read eagerly; the chunk
// loader pulls ranges in as they are addressed. chunkSize and budget of 0
// select the loader defaults.
func Open(path string, chunkSize, budget int64) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	d := &Document{
		path:      path,
		file:      f,
		loader:    chunk.NewLoader(f, info.Size(), chunkSize, budget),
		length:    info.Size(),
		chunkSize: chunkSize,
		budget:    budget,
	}
	if d.length > 0 {
		d.pieces = []piece{{off: 0, n: d.length}}
	}
	return d, nil
}

func (d *Document) Close() error {
	return d.file.Close()
}

func (d *Document) Path() string {
	return d.path
}

func (d *Document) Size() int64 {
	return d.length
}

// Modified reports whether the document differs from its on-disk state.
// True iff the current undo depth is not the depth of the last save.
func (d *Document) Modified() bool {
	return len(d.undoStack) != d.savedDepth
}

func (d *Document) CanUndo() bool { return len(d.undoStack) > 0 }
func (d *Document) CanRedo() bool { return len(d.redoStack) > 0 }

// ReadAt returns up to n bytes starting at off, clipped to the document
// bounds. Reads past end-of-file return a shorter slice, never an error.
func (d *Document) ReadAt(off int64, n int) ([]byte, error) {
	return readPieces(d.pieces, d.loader, d.length, off, n)
}

func readPieces(pieces []piece, loader *chunk.Loader, length, off int64, n int) ([]byte, error) {
	if off < 0 {
		off = 0
	}
	if off >= length || n <= 0 {
		return nil, nil
	}
	end := off + int64(n)
	if end > length {
		end = length
	}

	out := make([]byte, 0, end-off)
	pos := int64(0)
	for _, p := range pieces {
		if pos >= end {
			break
		}
		if pos+p.n <= off {
			pos += p.n
			continue
		}
		from := int64(0)
		if off > pos {
			from = off - pos
		}
		to := p.n
		if pos+to > end {
			to = end - pos
		}
		if p.data != nil {
			out = append(out, p.data[from:to]...)
		} else {
			b, err := loader.Read(p.off+from, int(to-from))
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		pos += p.n
	}
	return out, nil
}

// Snapshot is a read-only view of the document at a point in time. It is
// safe to read from a background goroutine while the main loop keeps
// editing: the piece slice is copied, memory piece bytes are never mutated
// after commit, and the chunk loader serializes its own cache.
type Snapshot struct {
	path   string
	pieces []piece
	length int64
	loader *chunk.Loader
}

// Snapshot captures the current content for a background scan or save.
func (d *Document) Snapshot() Snapshot {
	pieces := make([]piece, len(d.pieces))
	copy(pieces, d.pieces)
	return Snapshot{path: d.path, pieces: pieces, length: d.length, loader: d.loader}
}

func (s Snapshot) Size() int64 {
	return s.length
}

func (s Snapshot) ReadAt(off int64, n int) ([]byte, error) {
	return readPieces(s.pieces, s.loader, s.length, off, n)
}

// Byte returns the byte at off, or false if off is out of bounds or the
// underlying read failed.
func (d *Document) Byte(off int64) (byte, bool) {
	b, err := d.ReadAt(off, 1)
	if err != nil || len(b) != 1 {
		return 0, false
	}
	return b[0], true
}

// Overwrite replaces the bytes at off with data, extending the document if
// the write runs past the current end.
func (d *Document) Overwrite(off int64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if off < 0 {
		off = 0
	}
	if off > d.length {
		off = d.length
	}
	old, err := d.ReadAt(off, len(data))
	if err != nil {
		return err
	}
	return d.commit(Edit{Kind: EditOverwrite, Offset: off, Old: old, New: clone(data)})
}

// Insert splices data into the document at off.
func (d *Document) Insert(off int64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if off < 0 {
		off = 0
	}
	if off > d.length {
		off = d.length
	}
	return d.commit(Edit{Kind: EditInsert, Offset: off, New: clone(data)})
}

// Delete removes n bytes starting at off, clipped to the document bounds.
func (d *Document) Delete(off int64, n int) error {
	if off < 0 || off >= d.length || n <= 0 {
		return nil
	}
	old, err := d.ReadAt(off, n)
	if err != nil {
		return err
	}
	if len(old) == 0 {
		return nil
	}
	return d.commit(Edit{Kind: EditDelete, Offset: off, Old: old})
}

// Resize grows the document with zero bytes or truncates it to n bytes.
func (d *Document) Resize(n int64) error {
	switch {
	case n < 0:
		n = 0
	case n == d.length:
		return nil
	}
	if n > d.length {
		return d.commit(Edit{Kind: EditResize, Offset: d.length, New: make([]byte, n-d.length)})
	}
	old, err := d.ReadAt(n, int(d.length-n))
	if err != nil {
		return err
	}
	return d.commit(Edit{Kind: EditResize, Offset: n, Old: old})
}

// Undo reverts the most recent edit and returns it. The reverted edit moves
// to the redo stack.
func (d *Document) Undo() (Edit, bool) {
	if len(d.undoStack) == 0 {
		return Edit{}, false
	}
	e := d.undoStack[len(d.undoStack)-1]
	d.undoStack = d.undoStack[:len(d.undoStack)-1]
	d.invert(e)
	d.redoStack = append(d.redoStack, e)
	return e, true
}

// Redo reapplies the most recently undone edit and returns it.
func (d *Document) Redo() (Edit, bool) {
	if len(d.redoStack) == 0 {
		return Edit{}, false
	}
	e := d.redoStack[len(d.redoStack)-1]
	d.redoStack = d.redoStack[:len(d.redoStack)-1]
	d.apply(e)
	d.undoStack = append(d.undoStack, e)
	return e, true
}

// commit applies e, pushes it onto the undo stack and clears the redo
// stack. The saved state becomes unreachable if it lay on the cleared
// branch.
func (d *Document) commit(e Edit) error {
	d.apply(e)
	d.undoStack = append(d.undoStack, e)
	d.redoStack = nil
	if d.savedDepth >= len(d.undoStack) {
		d.savedDepth = -1
	}
	return nil
}

func (d *Document) apply(e Edit) {
	switch e.Kind {
	case EditOverwrite:
		d.deleteRange(e.Offset, int64(len(e.Old)))
		d.insertBytes(e.Offset, e.New)
	case EditInsert:
		d.insertBytes(e.Offset, e.New)
	case EditDelete:
		d.deleteRange(e.Offset, int64(len(e.Old)))
	case EditResize:
		if len(e.New) > 0 {
			d.insertBytes(e.Offset, e.New)
		} else {
			d.deleteRange(e.Offset, int64(len(e.Old)))
		}
	}
}

func (d *Document) invert(e Edit) {
	switch e.Kind {
	case EditOverwrite:
		d.deleteRange(e.Offset, int64(len(e.New)))
		d.insertBytes(e.Offset, e.Old)
	case EditInsert:
		d.deleteRange(e.Offset, int64(len(e.New)))
	case EditDelete:
		d.insertBytes(e.Offset, e.Old)
	case EditResize:
		if len(e.New) > 0 {
			d.deleteRange(e.Offset, int64(len(e.New)))
		} else {
			d.insertBytes(e.Offset, e.Old)
		}
	}
}

// split ensures a piece boundary exists at off and returns the index of the
// piece starting there. off must be within [0, length].
func (d *Document) split(off int64) int {
	pos := int64(0)
	for i, p := range d.pieces {
		if pos == off {
			return i
		}
		if off < pos+p.n {
			within := off - pos
			head := p
			tail := p
			head.n = within
			tail.n = p.n - within
			if p.data != nil {
				head.data = p.data[:within]
				tail.data = p.data[within:]
			} else {
				tail.off = p.off + within
			}
			d.pieces = append(d.pieces[:i], append([]piece{head, tail}, d.pieces[i+1:]...)...)
			return i + 1
		}
		pos += p.n
	}
	return len(d.pieces)
}

func (d *Document) insertBytes(off int64, data []byte) {
	if len(data) == 0 {
		return
	}
	i := d.split(off)
	p := piece{data: clone(data), n: int64(len(data))}
	d.pieces = append(d.pieces[:i], append([]piece{p}, d.pieces[i:]...)...)
	d.length += p.n
	d.coalesce(i)
}

func (d *Document) deleteRange(off, n int64) {
	if n <= 0 {
		return
	}
	i := d.split(off)
	j := d.split(off + n)
	d.pieces = append(d.pieces[:i], d.pieces[j:]...)
	d.length -= n
	d.coalesce(i)
}

// coalesce merges the piece at i with its neighbors where the runs are
// contiguous, keeping the chain short under repeated nibble edits.
func (d *Document) coalesce(i int) {
	merge := func(k int) bool {
		if k <= 0 || k >= len(d.pieces) {
			return false
		}
		a, b := &d.pieces[k-1], &d.pieces[k]
		switch {
		case a.data != nil && b.data != nil:
			// a.data may be a head slice from split whose capacity
			// extends into bytes a snapshot still references; cap it so
			// the append cannot write in place.
			a.data = append(a.data[:len(a.data):len(a.data)], b.data...)
			a.n += b.n
		case a.data == nil && b.data == nil && a.off+a.n == b.off:
			a.n += b.n
		default:
			return false
		}
		d.pieces = append(d.pieces[:k], d.pieces[k+1:]...)
		return true
	}
	merge(i + 1)
	merge(i)
}

// WriteTemp streams the snapshot into a temporary file next to the
// original and returns its name. This is the half of a save that may run on
// a background worker; it only reads content. A failed write removes the
// temp file.
func (s Snapshot) WriteTemp() (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".hexed-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) (string, error) {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}

	for _, p := range s.pieces {
		if p.data != nil {
			if _, err := tmp.Write(p.data); err != nil {
				return fail(fmt.Errorf("writing %s: %w", tmpName, err))
			}
			continue
		}
		for done := int64(0); done < p.n; {
			n := p.n - done
			if n > chunk.DefaultSize {
				n = chunk.DefaultSize
			}
			b, err := s.loader.Read(p.off+done, int(n))
			if err != nil {
				return fail(err)
			}
			if _, err := tmp.Write(b); err != nil {
				return fail(fmt.Errorf("writing %s: %w", tmpName, err))
			}
			done += int64(len(b))
		}
	}

	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing %s: %w", tmpName, err))
	}
	if err := tmp.Close(); err != nil {
		return fail(fmt.Errorf("closing %s: %w", tmpName, err))
	}
	return tmpName, nil
}

// CommitSave renames the written temp file over the original and collapses
// the piece chain back to a single file piece. The document must not have
// been edited since the snapshot was taken. Undo history is kept; only the
// saved depth moves.
func (d *Document) CommitSave(tmpName string) error {
	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", d.path, err)
	}

	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("reopening %s: %w", d.path, err)
	}
	d.file.Close()
	d.file = f
	d.loader.Reset(f, d.length)
	if d.length > 0 {
		d.pieces = []piece{{off: 0, n: d.length}}
	} else {
		d.pieces = nil
	}
	d.savedDepth = len(d.undoStack)
	return nil
}

// Save writes and commits synchronously. The write-temp-then-rename order
// means a failure never leaves the file half-written; the document simply
// stays dirty and the error is surfaced.
func (d *Document) Save() error {
	tmpName, err := d.Snapshot().WriteTemp()
	if err != nil {
		return err
	}
	return d.CommitSave(tmpName)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
