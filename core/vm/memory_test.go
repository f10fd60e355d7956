package vm

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
)

func TestMemoryResizeOffset(t *testing.T) {
	m := NewMemory(1 << 20)

	if r := m.ResizeOffset(uint256.NewInt(0), uint256.NewInt(0)); r != nil {
		t.Fatalf("zero-length resize = %v, want nil", r)
	}
	if m.Len() != 0 {
		t.Errorf("zero-length resize grew memory to %d", m.Len())
	}

	if r := m.ResizeOffset(uint256.NewInt(10), uint256.NewInt(1)); r != nil {
		t.Fatalf("resize(10, 1) = %v, want nil", r)
	}
	if m.Len() != 32 {
		t.Errorf("Len() = %d, want 32 (word aligned)", m.Len())
	}

	if r := m.ResizeOffset(uint256.NewInt(33), uint256.NewInt(1)); r != nil {
		t.Fatalf("resize(33, 1) = %v, want nil", r)
	}
	if m.Len() != 64 {
		t.Errorf("Len() = %d, want 64", m.Len())
	}

	// Growth never shrinks.
	if r := m.ResizeOffset(uint256.NewInt(0), uint256.NewInt(1)); r != nil {
		t.Fatalf("small resize = %v, want nil", r)
	}
	if m.Len() != 64 {
		t.Errorf("Len() = %d after small resize, want 64", m.Len())
	}
}

func TestMemoryResizeOffsetLimit(t *testing.T) {
	m := NewMemory(64)
	if r := m.ResizeOffset(uint256.NewInt(63), uint256.NewInt(2)); r != ErrInvalidRange {
		t.Errorf("resize past limit = %v, want ErrInvalidRange", r)
	}
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	if r := m.ResizeOffset(huge, uint256.NewInt(1)); r != FatalNotSupported {
		t.Errorf("resize with unaddressable offset = %v, want FatalNotSupported", r)
	}
}

func TestMemoryGetZeroFill(t *testing.T) {
	m := NewMemory(1 << 20)
	m.Set(0, 2, []byte{0xaa, 0xbb})

	got := m.Get(0, 4)
	want := []byte{0xaa, 0xbb, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("Get(0, 4) = %x, want %x", got, want)
	}

	// Reads beyond the effective length are all zero.
	got = m.Get(1000, 8)
	if !bytes.Equal(got, make([]byte, 8)) {
		t.Errorf("Get past length = %x, want zeros", got)
	}
}

func TestMemorySetZeroPad(t *testing.T) {
	m := NewMemory(1 << 20)
	m.Set(0, 32, bytes.Repeat([]byte{0xff}, 32))
	// A shorter value zero-pads the remainder of the window.
	if r := m.Set(0, 32, []byte{0x01}); r != nil {
		t.Fatalf("Set = %v, want nil", r)
	}
	got := m.Get(0, 32)
	if got[0] != 0x01 {
		t.Errorf("byte 0 = %#x, want 0x01", got[0])
	}
	for i := 1; i < 32; i++ {
		if got[i] != 0 {
			t.Fatalf("byte %d = %#x, want 0 (zero pad)", i, got[i])
		}
	}
}

func TestMemorySet32(t *testing.T) {
	m := NewMemory(1 << 20)
	val := uint256.NewInt(0xdead)
	if r := m.Set32(0, val); r != nil {
		t.Fatalf("Set32 = %v, want nil", r)
	}
	got := m.Get(0, 32)
	if got[30] != 0xde || got[31] != 0xad {
		t.Errorf("Set32 wrote %x, want big-endian 0xdead in the low bytes", got)
	}
}

func TestMemoryCopyLarge(t *testing.T) {
	m := NewMemory(1 << 20)
	src := []byte{1, 2, 3}

	// Source shorter than the copy window: the tail reads as zero.
	if r := m.CopyLarge(uint256.NewInt(0), uint256.NewInt(1), uint256.NewInt(4), src); r != nil {
		t.Fatalf("CopyLarge = %v, want nil", r)
	}
	got := m.Get(0, 4)
	want := []byte{2, 3, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("CopyLarge result = %x, want %x", got, want)
	}

	// Source offset entirely out of range: all zeros.
	m.Set(0, 4, []byte{0xff, 0xff, 0xff, 0xff})
	if r := m.CopyLarge(uint256.NewInt(0), uint256.NewInt(100), uint256.NewInt(4), src); r != nil {
		t.Fatalf("CopyLarge = %v, want nil", r)
	}
	if got := m.Get(0, 4); !bytes.Equal(got, make([]byte, 4)) {
		t.Errorf("out-of-range source copy = %x, want zeros", got)
	}

	// Zero length is a no-op even with absurd offsets.
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	if r := m.CopyLarge(huge, huge, uint256.NewInt(0), src); r != nil {
		t.Errorf("zero-length CopyLarge = %v, want nil", r)
	}
}

func TestMemoryWordAlignment(t *testing.T) {
	m := NewMemory(1 << 20)
	offsets := []uint64{0, 1, 31, 32, 33, 100, 1000}
	for _, off := range offsets {
		if r := m.ResizeOffset(uint256.NewInt(off), uint256.NewInt(1)); r != nil {
			t.Fatalf("resize(%d, 1) = %v", off, r)
		}
		if m.Len()%32 != 0 {
			t.Errorf("Len() = %d after resize(%d, 1), want multiple of 32", m.Len(), off)
		}
		if end := int(off) + 1; m.Len() < ceil32(end) {
			t.Errorf("Len() = %d, want >= ceil32(%d)", m.Len(), end)
		}
	}
}
