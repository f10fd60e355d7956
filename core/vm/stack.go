package vm

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// Stack is the EVM operand stack: a bounded LIFO of 256-bit words.
type Stack struct {
	data  []uint256.Int
	limit int
}

// NewStack returns a new empty stack with the given depth limit.
func NewStack(limit int) *Stack {
	return &Stack{data: make([]uint256.Int, 0, 16), limit: limit}
}

// Len returns the number of items on the stack.
func (st *Stack) Len() int {
	return len(st.data)
}

// Limit returns the configured depth limit.
func (st *Stack) Limit() int {
	return st.limit
}

// Push pushes a value onto the stack. Fails with ErrStackOverflow when the
// stack is at its limit; the stack is unchanged on failure.
func (st *Stack) Push(val *uint256.Int) *ExitError {
	if len(st.data) >= st.limit {
		return ErrStackOverflow
	}
	st.data = append(st.data, *val)
	return nil
}

// Pop removes and returns the top element. Fails with ErrStackUnderflow on
// an empty stack; the stack is unchanged on failure.
func (st *Stack) Pop() (uint256.Int, *ExitError) {
	if len(st.data) == 0 {
		return uint256.Int{}, ErrStackUnderflow
	}
	ret := st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return ret, nil
}

// PopHash pops a word and returns its 32-byte big-endian representation.
func (st *Stack) PopHash() (types.Hash, *ExitError) {
	val, err := st.Pop()
	if err != nil {
		return types.Hash{}, err
	}
	return types.Hash(val.Bytes32()), nil
}

// Peek returns the nth element from the top (0-indexed: 0 = top) without
// removing it. Fails with ErrStackUnderflow when n is out of range.
func (st *Stack) Peek(n int) (uint256.Int, *ExitError) {
	if n >= len(st.data) {
		return uint256.Int{}, ErrStackUnderflow
	}
	return st.data[len(st.data)-1-n], nil
}

// Set replaces the nth element from the top (0-indexed: 0 = top). Fails
// with ErrStackUnderflow when n is out of range.
func (st *Stack) Set(n int, val *uint256.Int) *ExitError {
	if n >= len(st.data) {
		return ErrStackUnderflow
	}
	st.data[len(st.data)-1-n] = *val
	return nil
}

// Require fails with ErrStackUnderflow unless at least n items are on the
// stack. Instructions call it before a pop sequence so that a failing
// instruction never partially mutates the stack.
func (st *Stack) Require(n int) *ExitError {
	if len(st.data) < n {
		return ErrStackUnderflow
	}
	return nil
}

// Dup pushes a copy of the nth element from the top (1-indexed, DUP1
// duplicates the top).
func (st *Stack) Dup(n int) *ExitError {
	if n > len(st.data) {
		return ErrStackUnderflow
	}
	if len(st.data) >= st.limit {
		return ErrStackOverflow
	}
	st.data = append(st.data, st.data[len(st.data)-n])
	return nil
}

// Swap exchanges the top element with the n+1th from the top (1-indexed,
// SWAP1 swaps the top two).
func (st *Stack) Swap(n int) *ExitError {
	if n >= len(st.data) {
		return ErrStackUnderflow
	}
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
	return nil
}

// Data returns the underlying stack slice (bottom to top). The caller must
// not grow it; mutating elements is how a driver resumes a trapped machine.
func (st *Stack) Data() []uint256.Int {
	return st.data
}
