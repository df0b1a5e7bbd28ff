// Copyright (c) 2024 Neomantra Corp

package ringbuf

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Writer is the single producer for one ring file. A ring has exactly one
// writer process; opening a second Writer against the same path is the
// caller's mistake to avoid (enforced only by the 0600 filesystem
// 0600 file permission, not by this package).
type Writer struct {
	l       layout
	buf     []byte
	closeFn func() error

	mu  sync.Mutex // serializes Write calls from multiple goroutines in-process
	seq uint64
}

// Create creates a new ring file at path sized for capacity slots of
// slotSize bytes each, and returns a Writer for it.
func Create(path string, capacity, slotSize int) (*Writer, error) {
	if capacity <= 0 || slotSize <= 0 {
		return nil, fmt.Errorf("ringbuf: capacity and slotSize must be positive")
	}
	l := newLayout(capacity, slotSize)
	buf, closeFn, err := mapFile(path, l.totalSize, true)
	if err != nil {
		return nil, err
	}
	putHeader(buf, l, uint64(os.Getpid()))
	return &Writer{l: l, buf: buf, closeFn: closeFn}, nil
}

// Close unmaps and closes the underlying file.
func (w *Writer) Close() error { return w.closeFn() }

// Capacity returns the slot count.
func (w *Writer) Capacity() int { return w.l.capacity }

// Write publishes frame (which must be <= slotSize bytes) as the next
// slot. The writer increments write_sequence with release ordering only
// after the slot's own sequence number has been published, so a reader
// that observes a new write_sequence is guaranteed the corresponding slot
// is fully written.
func (w *Writer) Write(frame []byte) error {
	if len(frame) > w.l.slotSize {
		return fmt.Errorf("ringbuf: frame of %d bytes exceeds slot size %d", len(frame), w.l.slotSize)
	}

	w.mu.Lock()
	seq := w.seq
	w.seq++
	w.mu.Unlock()

	// Field-by-field publish: the slot's own sequence number acts as a
	// barrier rather than a bulk volatile copy of the whole slot.
	// Invalidate the slot first so an in-progress reader of a stale slot
	// at this index detects the overwrite via the sequence mismatch.
	atomic.StoreUint64(slotSequencePtr(w.buf, w.l, seq), 0)
	copy(slotData(w.buf, w.l, seq), frame)
	atomic.StoreUint32(slotLengthPtr(w.buf, w.l, seq), uint32(len(frame)))
	atomic.StoreUint64(slotSequencePtr(w.buf, w.l, seq), seq+1) // publish barrier

	atomic.StoreUint64(writeSequencePtr(w.buf), seq+1)
	atomic.StoreUint64(lastWriteNsPtr(w.buf), uint64(time.Now().UnixNano()))
	return nil
}

// WriteSequence returns the current write_sequence (acquire load), mostly
// useful for tests and operator tooling.
func (w *Writer) WriteSequence() uint64 {
	return atomic.LoadUint64(writeSequencePtr(w.buf))
}
