// Copyright (c) 2024 Neomantra Corp

package ringbuf

import (
	"fmt"
	"unsafe"
)

// AlignmentFailure is fatal (exit code 3): the platform's mmap
// never returned a base address satisfying the required alignment after
// maxMmapAlignAttempts tries.
type AlignmentFailure struct {
	Path     string
	Required int
}

func (e *AlignmentFailure) Error() string {
	return fmt.Sprintf("ringbuf: could not obtain mmap base aligned to %d bytes for %s", e.Required, e.Path)
}

// RingOverrun is returned by Reader.Read when the writer has lapped the
// reader: data was lost, and the reader resumes at the writer's current
// sequence.
type RingOverrun struct {
	Lap uint64 // number of slots skipped
}

func (e *RingOverrun) Error() string {
	return fmt.Sprintf("ringbuf: overrun, skipped %d slots", e.Lap)
}

// ErrNoData is returned by Reader.Read when the reader's cursor has
// caught up to the writer; this is not an error condition, just "nothing
// new yet".
var ErrNoData = fmt.Errorf("ringbuf: no data available")

// ErrTooManyReaders is returned by Open when readerID is outside
// [0, MaxReaders()).
var ErrTooManyReaders = fmt.Errorf("ringbuf: max readers already attached")

func uintptrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
