// Copyright (c) 2024 Neomantra Corp
//
// mmap/munmap/msync via golang.org/x/sys/unix, already part of the
// retrieved pack's dependency closure (pulled in transitively by its
// toolchain). The ring buffer file is created 0600 so the filesystem
// permission, not any wire-level auth, is the trust boundary.

//go:build unix

package ringbuf

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const maxMmapAlignAttempts = 8

// mapFile opens (creating if needed and sizing to totalSize) path and
// returns an mmap'd byte slice plus a close function. When create is true
// and the file is new, it is truncated to totalSize before mapping.
func mapFile(path string, totalSize int, create bool) (buf []byte, closeFn func() error, err error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("ringbuf: open %s: %w", path, err)
	}

	if create {
		if err := f.Truncate(int64(totalSize)); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("ringbuf: truncate %s: %w", path, err)
		}
	} else {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("ringbuf: stat %s: %w", path, err)
		}
		if int(info.Size()) < totalSize {
			f.Close()
			return nil, nil, fmt.Errorf("ringbuf: %s is smaller than expected layout", path)
		}
	}

	var mapped []byte
	align := CursorAlignment()
	for attempt := 0; attempt < maxMmapAlignAttempts; attempt++ {
		mapped, err = unix.Mmap(int(f.Fd()), 0, totalSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("ringbuf: mmap %s: %w", path, err)
		}
		if uintptrOf(mapped)%uintptr(align) == 0 {
			break
		}
		// Unaligned base address: unmap and retry. On Linux this branch is
		// effectively dead (page alignment is always >= 128), but ARM64
		// correctness requires not trusting that assumption.
		_ = unix.Munmap(mapped)
		mapped = nil
	}
	if mapped == nil {
		f.Close()
		return nil, nil, &AlignmentFailure{Path: path, Required: align}
	}

	closeFn = func() error {
		_ = unix.Msync(mapped, unix.MS_SYNC)
		if err := unix.Munmap(mapped); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return mapped, closeFn, nil
}
