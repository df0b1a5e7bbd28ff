// Copyright (c) 2024 Neomantra Corp
//
// Package ringbuf implements C5: a memory-mapped, single-writer /
// many-reader lock-free ring used for the lowest-latency adapter ->
// strategy path within one host. The binary-layout discipline (every
// struct must match a native layout byte-for-byte) is grounded on the
// pack's shm struct translations (a hand-maintained Go mirror of fixed
// C++ struct layouts for a high-frequency trading system); this package
// applies that same discipline to ARM64/other per-reader-cursor alignment
// instead of a single GCC x86-64 layout. Go's sync/atomic package (not
// that C++ source's atomics) implements the acquire/release discipline.
//
// Per the Open Question resolution recorded in DESIGN.md, the
// per-reader-aligned-block cursor layout is used universally, not the
// header-array layout.
package ringbuf

import (
	"runtime"
)

// CursorAlignment is the byte alignment required for a per-reader cursor
// block. Empirically, unaligned cross-process atomics on Apple Silicon
// produce SIGBUS or stale reads; 64 bytes (one cache line) suffices on
// other platforms.
func CursorAlignment() int {
	if runtime.GOARCH == "arm64" {
		return 128
	}
	return 64
}

// MaxReaders bounds the number of concurrently attached readers. ARM64's
// wider cursor alignment roughly halves the header-block budget typically
// reserved for cursors, so it also halves the reader cap.
func MaxReaders() int {
	if runtime.GOARCH == "arm64" {
		return 8
	}
	return 16
}

const (
	// headerMagic identifies a valid ring file.
	headerMagic uint32 = 0x52494e47 // "RING"
	// headerVersion is the current on-disk layout version.
	headerVersion uint32 = 1
)

// headerSize is cache-line aligned (64 bytes) regardless of platform; it
// holds only scalar fields under atomic access, not per-reader state.
const headerSize = 64

// DefaultCapacityTrades is a slot count for a trade ring (2^20 slots).
// internal/config does not read it: RING_CAPACITY_TRADES overrides that
// package's own default, config.DefaultRingCapacityTrades.
const DefaultCapacityTrades = 1 << 20
