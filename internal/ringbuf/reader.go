// Copyright (c) 2024 Neomantra Corp

package ringbuf

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Reader is one consumer's view of a ring. Each attached reader owns a
// private cursor block inside the mmap (assigned at Open) and polls from
// a dedicated OS thread, never an async task -- an async
// wake-up costs more than the whole read path at this latency budget.
type Reader struct {
	l        layout
	buf      []byte
	closeFn  func() error
	readerID int
}

// Open attaches to an existing ring file as reader readerID (0-based,
// < MaxReaders()). Distinct reader processes must use distinct readerID
// values; this package does not allocate them itself because doing so
// safely requires a side channel (e.g. a control-plane message) outside
// the ring's own lock-free design.
func Open(path string, readerID int) (*Reader, error) {
	if readerID < 0 || readerID >= MaxReaders() {
		return nil, ErrTooManyReaders
	}

	headerBuf, headerClose, err := mapFile(path, headerSize, false)
	if err != nil {
		return nil, err
	}
	capacity, slotSize, err := readHeaderMeta(headerBuf)
	headerClose()
	if err != nil {
		return nil, err
	}

	l := newLayout(capacity, slotSize)
	buf, closeFn, err := mapFile(path, l.totalSize, false)
	if err != nil {
		return nil, err
	}

	r := &Reader{l: l, buf: buf, closeFn: closeFn, readerID: readerID}
	atomic.StoreUint64(cursorPtr(r.buf, r.l, readerID), 0)
	return r, nil
}

// Close unmaps the ring. The writer and other readers are unaffected.
func (r *Reader) Close() error { return r.closeFn() }

// Cursor returns this reader's current position (the next sequence it
// will read).
func (r *Reader) Cursor() uint64 {
	return atomic.LoadUint64(cursorPtr(r.buf, r.l, r.readerID))
}

// OverrunCount returns the cumulative number of slots this reader has
// lost to writer laps.
func (r *Reader) OverrunCount() uint64 {
	return atomic.LoadUint64(overrunCountPtr(r.buf, r.l, r.readerID))
}

// Read returns the next published frame, ErrNoData if the reader has
// caught up to the writer, or *RingOverrun if the writer lapped the
// reader since its last Read (the reader's cursor is advanced to the
// writer's current sequence in that case, honoring the lossy-by-design
// overrun semantics).
func (r *Reader) Read() ([]byte, error) {
	cursor := atomic.LoadUint64(cursorPtr(r.buf, r.l, r.readerID))
	writeSeq := atomic.LoadUint64(writeSequencePtr(r.buf)) // observed at start of this read

	if cursor >= writeSeq {
		return nil, ErrNoData
	}
	if writeSeq-cursor > uint64(r.l.capacity) {
		lap := writeSeq - cursor - uint64(r.l.capacity)
		atomic.StoreUint64(cursorPtr(r.buf, r.l, r.readerID), writeSeq)
		atomic.AddUint64(overrunCountPtr(r.buf, r.l, r.readerID), lap)
		return nil, &RingOverrun{Lap: lap}
	}

	slotSeq := atomic.LoadUint64(slotSequencePtr(r.buf, r.l, cursor))
	if slotSeq != cursor+1 {
		// The writer has already overwritten this slot (wrapped past it)
		// between our write_sequence load and this slot read. Treat as an
		// overrun of unknown-but-nonzero size and resync to the writer.
		atomic.StoreUint64(cursorPtr(r.buf, r.l, r.readerID), writeSeq)
		atomic.AddUint64(overrunCountPtr(r.buf, r.l, r.readerID), 1)
		return nil, &RingOverrun{Lap: 1}
	}

	length := atomic.LoadUint32(slotLengthPtr(r.buf, r.l, cursor))
	data := make([]byte, length)
	copy(data, slotData(r.buf, r.l, cursor)[:length])

	// Torn-read guard: the invariant is that a reader never
	// trusts a slot whose sequence number has moved past what it
	// observed at the start of its read. Re-check the slot's publish
	// sequence; if it changed mid-copy, the writer lapped us while
	// reading and the bytes we just copied may be a mix of two writes.
	if atomic.LoadUint64(slotSequencePtr(r.buf, r.l, cursor)) != slotSeq {
		atomic.StoreUint64(cursorPtr(r.buf, r.l, r.readerID), writeSeq)
		atomic.AddUint64(overrunCountPtr(r.buf, r.l, r.readerID), 1)
		return nil, &RingOverrun{Lap: 1}
	}

	atomic.StoreUint64(cursorPtr(r.buf, r.l, r.readerID), cursor+1)
	return data, nil
}

// Poll blocks, spinning with backoff, until a frame is available or stop
// is closed. Reserved for dedicated reader threads; callers wanting
// a context.Context-cancellable variant should wrap this themselves, as
// the ring buffer deliberately has no async-aware API.
func (r *Reader) Poll(stop <-chan struct{}, idle time.Duration) ([]byte, error) {
	for {
		data, err := r.Read()
		if err == nil {
			return data, nil
		}
		if err != ErrNoData {
			return nil, err
		}
		select {
		case <-stop:
			return nil, fmt.Errorf("ringbuf: poll stopped")
		case <-time.After(idle):
		}
	}
}

// WriterPID returns the pid recorded by the writer at creation time, for
// liveness diagnostics.
func (r *Reader) WriterPID() uint64 {
	return atomic.LoadUint64(ptrUint64(r.buf, 32))
}
