package palma

import (
	"testing"
	"unsafe"
)

// The guest reads these structures as flat byte blocks, so their sizes
// are part of the wire contract.
func TestStructSizes(t *testing.T) {
	if size := unsafe.Sizeof(OperationInfo{}); size != 0x148 {
		t.Fatalf("OperationInfo size is 0x%x, want 0x148", size)
	}
	if size := unsafe.Sizeof(OperationData{}); size != 0x140 {
		t.Fatalf("OperationData size is 0x%x, want 0x140", size)
	}
	if size := unsafe.Sizeof(ActivityEntry{}); size != 0x20 {
		t.Fatalf("ActivityEntry size is 0x%x, want 0x20", size)
	}
	if size := unsafe.Sizeof(ConnectionHandle{}); size != 0x8 {
		t.Fatalf("ConnectionHandle size is 0x%x, want 0x8", size)
	}
}

func TestActivityEntryOffsets(t *testing.T) {
	var e ActivityEntry
	base := uintptr(unsafe.Pointer(&e))
	if off := uintptr(unsafe.Pointer(&e.WaveSet)) - base; off != 0x8 {
		t.Fatalf("WaveSet offset is 0x%x, want 0x8", off)
	}
	if off := uintptr(unsafe.Pointer(&e.WaveIndex)) - base; off != 0x10 {
		t.Fatalf("WaveIndex offset is 0x%x, want 0x10", off)
	}
}

func TestOperationKindValues(t *testing.T) {
	// The enumeration order is guest ABI.
	cases := map[OperationKind]uint32{
		OpPlayActivity:                       0,
		OpSetFrModeType:                      1,
		OpReadStep:                           2,
		OpReadApplicationSection:             5,
		OpReadUniqueCode:                     7,
		OpWriteWaveEntry:                     11,
		OpWriteDataBaseIdentificationVersion: 13,
		OpResetPlayLog:                       16,
	}
	for kind, want := range cases {
		if uint32(kind) != want {
			t.Errorf("kind %v encodes as %d, want %d", kind, uint32(kind), want)
		}
	}
}

func TestFeatureSet(t *testing.T) {
	var s FeatureSet
	s = s.Add(FeatureStep).Add(FeatureMuteSwitch)
	if !s.Has(FeatureStep) || !s.Has(FeatureMuteSwitch) {
		t.Fatalf("set does not contain added features")
	}
	if s.Has(FeatureFrMode) {
		t.Fatalf("set contains feature it never added")
	}
	if !s.Valid() {
		t.Fatalf("set of known features reported invalid")
	}
	if FeatureSet(1 << 60).Valid() {
		t.Fatalf("unknown feature bit reported valid")
	}
}

func TestConnectionHandleComparable(t *testing.T) {
	a := ConnectionHandle{NpadID: 0}
	b := ConnectionHandle{NpadID: 0}
	c := ConnectionHandle{NpadID: 1}
	if a != b {
		t.Fatalf("equal handles compare unequal")
	}
	if a == c {
		t.Fatalf("distinct handles compare equal")
	}
}
