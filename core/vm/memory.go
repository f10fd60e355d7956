package vm

import (
	"math"

	"github.com/holiman/uint256"
)

// Memory is the linearly-addressed byte memory of a machine. Its effective
// length is always a multiple of 32 and only ever grows; growth past the
// configured limit fails. Uninitialized bytes read as zero.
type Memory struct {
	store []byte
	limit int
}

// NewMemory returns an empty memory with the given byte capacity limit.
func NewMemory(limit int) *Memory {
	return &Memory{limit: limit}
}

// Len returns the current effective length in bytes (a multiple of 32).
func (m *Memory) Len() int {
	return len(m.store)
}

// Limit returns the configured capacity limit.
func (m *Memory) Limit() int {
	return m.limit
}

// ceil32 rounds n up to the next multiple of 32.
func ceil32(n int) int {
	if r := n % 32; r != 0 {
		return n + 32 - r
	}
	return n
}

// asInt converts a word to a non-negative int, reporting failure when the
// value does not fit the platform's address range.
func asInt(v *uint256.Int) (int, bool) {
	if !v.IsUint64() || v.Uint64() > uint64(math.MaxInt) {
		return 0, false
	}
	return int(v.Uint64()), true
}

// grow extends the store to ceil32(size). The caller has already checked
// the limit.
func (m *Memory) grow(size int) {
	size = ceil32(size)
	if size > len(m.store) {
		m.store = append(m.store, make([]byte, size-len(m.store))...)
	}
}

// ResizeOffset grows memory to cover [offset, offset+length), rounded up to
// a 32-byte multiple. A zero length is a no-op. Growth past the limit fails
// with ErrInvalidRange; offsets outside the address range fail with
// FatalNotSupported.
func (m *Memory) ResizeOffset(offset, length *uint256.Int) ExitReason {
	if length.IsZero() {
		return nil
	}
	off, ok := asInt(offset)
	if !ok {
		return FatalNotSupported
	}
	l, ok := asInt(length)
	if !ok {
		return FatalNotSupported
	}
	return m.resizeEnd(off, l)
}

func (m *Memory) resizeEnd(offset, length int) ExitReason {
	end := offset + length
	if end < 0 || end > m.limit {
		return ErrInvalidRange
	}
	m.grow(end)
	return nil
}

// Get returns length bytes starting at offset, zero-filling any region
// beyond the current effective length. A zero length returns nil.
func (m *Memory) Get(offset, length int) []byte {
	if length == 0 {
		return nil
	}
	out := make([]byte, length)
	if offset < len(m.store) {
		copy(out, m.store[offset:])
	}
	return out
}

// Set writes size bytes at offset, zero-padding when value is shorter than
// size. Memory is grown to cover the window; growth past the limit fails.
func (m *Memory) Set(offset, size int, value []byte) ExitReason {
	if size == 0 {
		return nil
	}
	if r := m.resizeEnd(offset, size); r != nil {
		return r
	}
	if len(value) > size {
		value = value[:size]
	}
	n := copy(m.store[offset:offset+size], value)
	for i := offset + n; i < offset+size; i++ {
		m.store[i] = 0
	}
	return nil
}

// Set32 writes a word at offset as 32 big-endian bytes.
func (m *Memory) Set32(offset int, val *uint256.Int) ExitReason {
	b := val.Bytes32()
	return m.Set(offset, 32, b[:])
}

// CopyLarge copies length bytes from data[dataOffset:] to memory at
// memOffset, treating out-of-range source bytes as zero. Offsets are words
// so that contracts posting absurd source offsets still behave
// deterministically (the source reads as all zeros).
func (m *Memory) CopyLarge(memOffset, dataOffset, length *uint256.Int, data []byte) ExitReason {
	if length.IsZero() {
		return nil
	}
	off, ok := asInt(memOffset)
	if !ok {
		return FatalNotSupported
	}
	l, ok := asInt(length)
	if !ok {
		return FatalNotSupported
	}
	var src []byte
	if srcOff, ok := asInt(dataOffset); ok && srcOff < len(data) {
		src = data[srcOff:]
	}
	return m.Set(off, l, src)
}

// Data returns the full backing slice.
func (m *Memory) Data() []byte {
	return m.store
}
