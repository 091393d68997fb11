// Package chunk provides bounded-memory random access over a file. Byte
// ranges are loaded lazily in fixed-size chunks and evicted least-recently
// used once the resident budget is exceeded, so reads stay cheap even for
// files far larger than memory.
package chunk

import (
	"fmt"
	"io"
	"sync"
)

const (
	// DefaultSize is the nominal chunk size. Tail chunks are shorter.
	DefaultSize = 1 << 16

	// DefaultBudget caps the total bytes resident in the cache.
	DefaultBudget = 1 << 24
)

type chunk struct {
	data       []byte
	lastAccess int64
}

// Loader reads fixed-size chunks of a backing file on demand. Reads are
// safe to issue from a background scan or save goroutine; the lock is never
// held across anything but cache bookkeeping and the chunk load itself.
type Loader struct {
	mu        sync.Mutex
	src       io.ReaderAt
	size      int64
	chunkSize int64
	budget    int64

	chunks   map[int64]*chunk
	resident int64
	clock    int64
}

// NewLoader creates a loader over src, which is size bytes long. A
// chunkSize or budget of 0 selects the default.
func NewLoader(src io.ReaderAt, size, chunkSize, budget int64) *Loader {
	if chunkSize <= 0 {
		chunkSize = DefaultSize
	}
	if budget <= 0 {
		budget = DefaultBudget
	}
	if budget < chunkSize {
		budget = chunkSize
	}
	return &Loader{
		src:       src,
		size:      size,
		chunkSize: chunkSize,
		budget:    budget,
		chunks:    make(map[int64]*chunk),
	}
}

// Size returns the length of the backing file as known to the loader.
func (l *Loader) Size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Resident returns the total bytes currently held in the cache.
func (l *Loader) Resident() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resident
}

// Reset drops every cached chunk and adopts a new backing size. Used after
// a save rewrites the file underneath the loader.
func (l *Loader) Reset(src io.ReaderAt, size int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.src = src
	l.size = size
	l.chunks = make(map[int64]*chunk)
	l.resident = 0
}

// Read returns up to n bytes starting at off, clipped to the file bounds.
// Requests past end-of-file return a shorter (possibly empty) slice, never
// an error. Errors are only ever I/O failures from loading a chunk, and
// leave the cache state untouched.
func (l *Loader) Read(off int64, n int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if off < 0 {
		off = 0
	}
	if off >= l.size || n <= 0 {
		return nil, nil
	}
	end := off + int64(n)
	if end > l.size {
		end = l.size
	}

	out := make([]byte, 0, end-off)
	for pos := off; pos < end; {
		c, err := l.ensure(pos / l.chunkSize)
		if err != nil {
			return nil, err
		}
		within := pos % l.chunkSize
		take := int64(len(c.data)) - within
		if rem := end - pos; take > rem {
			take = rem
		}
		out = append(out, c.data[within:within+take]...)
		pos += take
	}
	return out, nil
}

// ensure makes the chunk at the given index resident, loading it if needed
// and evicting LRU chunks to stay under budget.
func (l *Loader) ensure(index int64) (*chunk, error) {
	l.clock++
	if c, ok := l.chunks[index]; ok {
		c.lastAccess = l.clock
		return c, nil
	}

	start := index * l.chunkSize
	length := l.chunkSize
	if start+length > l.size {
		length = l.size - start
	}
	if length <= 0 {
		return nil, fmt.Errorf("chunk %d out of range", index)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(io.NewSectionReader(l.src, start, length), data); err != nil {
		return nil, fmt.Errorf("loading chunk %d: %w", index, err)
	}

	c := &chunk{data: data, lastAccess: l.clock}
	l.chunks[index] = c
	l.resident += length
	l.evict()
	return c, nil
}

// evict discards least-recently-used chunks until the cache fits the
// budget. The most recently touched chunk is never evicted.
func (l *Loader) evict() {
	for l.resident > l.budget && len(l.chunks) > 1 {
		var (
			oldest    int64
			oldestHit = int64(-1)
		)
		for idx, c := range l.chunks {
			if c.lastAccess == l.clock {
				continue
			}
			if oldestHit < 0 || c.lastAccess < oldestHit {
				oldest, oldestHit = idx, c.lastAccess
			}
		}
		if oldestHit < 0 {
			return
		}
		l.resident -= int64(len(l.chunks[oldest].data))
		delete(l.chunks, oldest)
	}
}
