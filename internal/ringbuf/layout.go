// Copyright (c) 2024 Neomantra Corp

package ringbuf

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Layout (all offsets from the start of the mmap):
//
//	[0, headerSize)                                   header block
//	[headerSize, headerSize+cursorsSize)               per-reader cursor blocks
//	[headerSize+cursorsSize, end)                       capacity * slotStride data array
//
// Every field that is mutated after creation by more than one process is
// accessed exclusively through sync/atomic over an unsafe.Pointer into the
// mmap -- never a bulk struct copy -- so cross-process readers never
// observe a torn value.

const slotHeaderSize = 16 // sequence(8) + length(4) + reserved(4)

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// layout derives all region sizes and offsets for a ring of the given
// capacity and per-slot payload size.
type layout struct {
	capacity      int
	slotSize      int
	alignment     int
	cursorsSize   int
	slotStride    int
	dataOffset    int
	totalSize     int
	maxReaders    int
}

func newLayout(capacity, slotSize int) layout {
	align := CursorAlignment()
	maxReaders := MaxReaders()
	cursorsSize := align * maxReaders
	slotStride := alignUp(slotHeaderSize+slotSize, align)
	dataOffset := alignUp(headerSize+cursorsSize, align)
	return layout{
		capacity:    capacity,
		slotSize:    slotSize,
		alignment:   align,
		cursorsSize: cursorsSize,
		slotStride:  slotStride,
		dataOffset:  dataOffset,
		totalSize:   dataOffset + slotStride*capacity,
		maxReaders:  maxReaders,
	}
}

func (l layout) cursorOffset(readerID int) int {
	return headerSize + readerID*l.alignment
}

func (l layout) slotOffset(seq uint64) int {
	idx := int(seq % uint64(l.capacity))
	return l.dataOffset + idx*l.slotStride
}

// --- header block accessors -------------------------------------------------

func putHeader(buf []byte, l layout, writerPid uint64) {
	binary.LittleEndian.PutUint32(buf[0:4], headerMagic)
	binary.LittleEndian.PutUint32(buf[4:8], headerVersion)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(l.capacity))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(l.slotSize))
	atomic.StoreUint64(ptrUint64(buf, 24), 0) // write_sequence
	binary.LittleEndian.PutUint64(buf[32:40], writerPid)
	atomic.StoreUint64(ptrUint64(buf, 40), 0) // last_write_ns
}

func readHeaderMeta(buf []byte) (capacity, slotSize int, err error) {
	if len(buf) < headerSize {
		return 0, 0, fmt.Errorf("ringbuf: file too small for header")
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != headerMagic {
		return 0, 0, fmt.Errorf("ringbuf: bad magic 0x%08x", magic)
	}
	version := binary.LittleEndian.Uint32(buf[4:8])
	if version != headerVersion {
		return 0, 0, fmt.Errorf("ringbuf: unsupported version %d", version)
	}
	capacity = int(binary.LittleEndian.Uint64(buf[8:16]))
	slotSize = int(binary.LittleEndian.Uint32(buf[16:20]))
	return capacity, slotSize, nil
}

func ptrUint64(buf []byte, offset int) *uint64 {
	return (*uint64)(unsafe.Pointer(&buf[offset]))
}

func ptrUint32(buf []byte, offset int) *uint32 {
	return (*uint32)(unsafe.Pointer(&buf[offset]))
}

func writeSequencePtr(buf []byte) *uint64 { return ptrUint64(buf, 24) }
func lastWriteNsPtr(buf []byte) *uint64   { return ptrUint64(buf, 40) }

// --- per-reader cursor block accessors --------------------------------------

func cursorPtr(buf []byte, l layout, readerID int) *uint64 {
	return ptrUint64(buf, l.cursorOffset(readerID))
}

func overrunCountPtr(buf []byte, l layout, readerID int) *uint64 {
	return ptrUint64(buf, l.cursorOffset(readerID)+8)
}

// --- slot accessors ----------------------------------------------------------

func slotSequencePtr(buf []byte, l layout, seq uint64) *uint64 {
	return ptrUint64(buf, l.slotOffset(seq))
}

func slotLengthPtr(buf []byte, l layout, seq uint64) *uint32 {
	return ptrUint32(buf, l.slotOffset(seq)+8)
}

func slotData(buf []byte, l layout, seq uint64) []byte {
	off := l.slotOffset(seq) + slotHeaderSize
	return buf[off : off+l.slotSize]
}
