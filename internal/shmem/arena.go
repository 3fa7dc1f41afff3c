// Package shmem models the shared memory block the guest polls for
// peripheral state. The block is externally owned in a real system; here
// it is a bounded byte-addressable arena that controllers publish into at
// fixed offsets. Every access is bounds checked, and fixed windows are
// validated once at construction rather than on every publish.
package shmem

import "fmt"

// MaxArenaSize bounds arena allocations to the largest shared memory
// block the service layer hands out.
const MaxArenaSize = 0x100000

// Arena is a bounded byte-addressable region backing guest-polled state.
type Arena struct {
	buf []byte
}

// New allocates a zeroed arena of the given size.
func New(size uint64) (*Arena, error) {
	if size == 0 {
		return nil, fmt.Errorf("shmem: arena size is zero")
	}
	if size > MaxArenaSize {
		return nil, fmt.Errorf("shmem: arena size 0x%x exceeds maximum 0x%x", size, MaxArenaSize)
	}
	return &Arena{buf: make([]byte, size)}, nil
}

// Size returns the arena size in bytes.
func (a *Arena) Size() uint64 {
	return uint64(len(a.buf))
}

// WriteAt copies p into the arena at the given offset.
func (a *Arena) WriteAt(offset uint64, p []byte) error {
	if err := a.check(offset, uint64(len(p))); err != nil {
		return err
	}
	copy(a.buf[offset:], p)
	return nil
}

// ReadAt copies len(p) bytes from the arena at the given offset into p.
func (a *Arena) ReadAt(offset uint64, p []byte) error {
	if err := a.check(offset, uint64(len(p))); err != nil {
		return err
	}
	copy(p, a.buf[offset:])
	return nil
}

func (a *Arena) check(offset, size uint64) error {
	end := offset + size
	if end < offset {
		return fmt.Errorf("shmem: access 0x%x+0x%x overflows", offset, size)
	}
	if end > uint64(len(a.buf)) {
		return fmt.Errorf("shmem: access 0x%x+0x%x out of bounds (arena size 0x%x)", offset, size, len(a.buf))
	}
	return nil
}

// Region is a fixed window within an arena. Its offset and size are
// validated when the region is created, so publishers can write on every
// tick without re-checking the outer bounds.
type Region struct {
	arena  *Arena
	offset uint64
	size   uint64
}

// Region creates a validated window at [offset, offset+size).
func (a *Arena) Region(offset, size uint64) (Region, error) {
	if size == 0 {
		return Region{}, fmt.Errorf("shmem: region at 0x%x has zero size", offset)
	}
	if err := a.check(offset, size); err != nil {
		return Region{}, err
	}
	return Region{arena: a, offset: offset, size: size}, nil
}

// Size returns the region size in bytes.
func (r Region) Size() uint64 {
	return r.size
}

// Offset returns the region's offset within its arena.
func (r Region) Offset() uint64 {
	return r.offset
}

// Write copies p into the region at the given region-relative offset.
func (r Region) Write(offset uint64, p []byte) error {
	if err := r.check(offset, uint64(len(p))); err != nil {
		return err
	}
	return r.arena.WriteAt(r.offset+offset, p)
}

// Read copies len(p) bytes from the region at the given region-relative
// offset into p.
func (r Region) Read(offset uint64, p []byte) error {
	if err := r.check(offset, uint64(len(p))); err != nil {
		return err
	}
	return r.arena.ReadAt(r.offset+offset, p)
}

func (r Region) check(offset, size uint64) error {
	if r.arena == nil {
		return fmt.Errorf("shmem: region is not backed by an arena")
	}
	end := offset + size
	if end < offset {
		return fmt.Errorf("shmem: region access 0x%x+0x%x overflows", offset, size)
	}
	if end > r.size {
		return fmt.Errorf("shmem: region access 0x%x+0x%x out of bounds (region size 0x%x)", offset, size, r.size)
	}
	return nil
}
