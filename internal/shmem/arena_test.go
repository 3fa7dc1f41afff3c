package shmem

import (
	"bytes"
	"testing"
)

func TestNewArenaValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatalf("expected zero-size arena to fail")
	}
	if _, err := New(MaxArenaSize + 1); err == nil {
		t.Fatalf("expected oversized arena to fail")
	}
	arena, err := New(0x1000)
	if err != nil {
		t.Fatalf("new arena failed: %v", err)
	}
	if arena.Size() != 0x1000 {
		t.Fatalf("expected size 0x1000, got 0x%x", arena.Size())
	}
}

func TestArenaReadWriteRoundTrip(t *testing.T) {
	arena, err := New(0x100)
	if err != nil {
		t.Fatalf("new arena failed: %v", err)
	}

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := arena.WriteAt(0x40, payload); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got := make([]byte, 4)
	if err := arena.ReadAt(0x40, got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back %x, want %x", got, payload)
	}
}

func TestArenaBounds(t *testing.T) {
	arena, err := New(0x100)
	if err != nil {
		t.Fatalf("new arena failed: %v", err)
	}

	if err := arena.WriteAt(0xFE, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected out-of-bounds write to fail")
	}
	if err := arena.ReadAt(0x100, make([]byte, 1)); err == nil {
		t.Fatalf("expected out-of-bounds read to fail")
	}
	if err := arena.WriteAt(^uint64(0), []byte{1}); err == nil {
		t.Fatalf("expected overflowing write to fail")
	}
	// Writing exactly to the end is allowed.
	if err := arena.WriteAt(0xFF, []byte{1}); err != nil {
		t.Fatalf("write at last byte failed: %v", err)
	}
}

func TestRegionValidation(t *testing.T) {
	arena, err := New(0x1000)
	if err != nil {
		t.Fatalf("new arena failed: %v", err)
	}

	if _, err := arena.Region(0x100, 0); err == nil {
		t.Fatalf("expected zero-size region to fail")
	}
	if _, err := arena.Region(0xF00, 0x200); err == nil {
		t.Fatalf("expected region past arena end to fail")
	}
	if _, err := arena.Region(^uint64(0), 2); err == nil {
		t.Fatalf("expected overflowing region to fail")
	}
	if _, err := arena.Region(0xE00, 0x200); err != nil {
		t.Fatalf("region at arena end failed: %v", err)
	}
}

func TestRegionRelativeAccess(t *testing.T) {
	arena, err := New(0x1000)
	if err != nil {
		t.Fatalf("new arena failed: %v", err)
	}
	region, err := arena.Region(0x200, 0x40)
	if err != nil {
		t.Fatalf("region failed: %v", err)
	}

	if err := region.Write(0x10, []byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("region write failed: %v", err)
	}

	// The write lands at arena offset region base + 0x10.
	got := make([]byte, 2)
	if err := arena.ReadAt(0x210, got); err != nil {
		t.Fatalf("arena read failed: %v", err)
	}
	if got[0] != 0xAA || got[1] != 0xBB {
		t.Fatalf("region write landed at wrong offset, read %x", got)
	}

	if err := region.Write(0x3F, []byte{1, 2}); err == nil {
		t.Fatalf("expected write past region end to fail")
	}
	if err := region.Read(0x40, make([]byte, 1)); err == nil {
		t.Fatalf("expected read past region end to fail")
	}

	var zero Region
	if err := zero.Write(0, []byte{1}); err == nil {
		t.Fatalf("expected write through zero region to fail")
	}
}
