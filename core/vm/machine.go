package vm

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// Machine is the pure execution state of one contract invocation: code,
// call data, program counter, operand stack, linear memory and the
// precomputed jump-destination bitmap. It knows nothing about gas,
// accounts or state; externally-defined opcodes surface as traps.
type Machine struct {
	// code and data are immutable after construction and may be shared
	// between machines; they are never copied or written.
	code []byte
	data []byte

	// position is the index of the next instruction to fetch. Once
	// exitReason is set the machine is dead and further steps are refused.
	position   int
	exitReason ExitReason

	// returnStart..returnEnd is the half-open memory range posted by
	// RETURN or REVERT. Kept as words: contracts may post ranges far
	// beyond addressable memory.
	returnStart uint256.Int
	returnEnd   uint256.Int

	valids  Valids
	memory  *Memory
	stack   *Stack
	tracing bool
}

// NewMachine creates a machine for the given code and call data with the
// given stack depth and memory byte limits.
func NewMachine(code, data []byte, stackLimit, memoryLimit int) *Machine {
	return &Machine{
		code:   code,
		data:   data,
		valids: AnalyzeValids(code),
		memory: NewMemory(memoryLimit),
		stack:  NewStack(stackLimit),
	}
}

// Stack returns the machine's operand stack. Drivers mutate it to resume a
// trapped machine with the trap opcode's result.
func (m *Machine) Stack() *Stack {
	return m.stack
}

// Memory returns the machine's linear memory.
func (m *Machine) Memory() *Memory {
	return m.memory
}

// Code returns the machine's bytecode. The slice must not be mutated.
func (m *Machine) Code() []byte {
	return m.code
}

// Data returns the machine's call data. The slice must not be mutated.
func (m *Machine) Data() []byte {
	return m.data
}

// Position returns the program counter, or the latched exit reason if the
// machine has terminated.
func (m *Machine) Position() (int, ExitReason) {
	return m.position, m.exitReason
}

// Exit terminates the machine explicitly. Further steps return the reason.
func (m *Machine) Exit(reason ExitReason) {
	m.exitReason = reason
}

// SetTracing toggles the AfterBytecode observer call on every step.
func (m *Machine) SetTracing(on bool) {
	m.tracing = on
}

// Inspect returns the next opcode to execute, or false if the machine has
// exited or run off the end of the code.
func (m *Machine) Inspect() (OpCode, bool) {
	if m.exitReason != nil || m.position >= len(m.code) {
		return 0, false
	}
	return OpCode(m.code[m.position]), true
}

// SetReturnRange records the memory range materialized by ReturnValue.
func (m *Machine) SetReturnRange(start, end uint256.Int) {
	m.returnStart = start
	m.returnEnd = end
}

// ReturnValue copies the bytes posted by RETURN or REVERT out of memory.
// A range start beyond the addressable space yields an all-zero buffer of
// the requested length; a range end beyond it zero-pads the suffix. This
// keeps execution deterministic for contracts posting astronomical ranges.
func (m *Machine) ReturnValue() []byte {
	var length uint256.Int
	length.Sub(&m.returnEnd, &m.returnStart)
	n, ok := asInt(&length)
	if !ok {
		return nil
	}
	start, ok := asInt(&m.returnStart)
	if !ok {
		return make([]byte, n)
	}
	return m.memory.Get(start, n)
}

// Step advances the machine by one instruction. It returns nil when the
// machine advanced and remains live, or a Capture when it terminated or
// trapped on an external opcode. Stepping a dead machine returns the same
// exit capture every time.
func (m *Machine) Step(h InterpreterHandler, address types.Address) *Capture {
	if m.exitReason != nil {
		return &Capture{Reason: m.exitReason}
	}
	ctl := eval(m, h, m.position, address)
	switch ctl.action {
	case actionContinue:
		m.position += ctl.target
		return nil
	case actionJump:
		m.position = ctl.target
		return nil
	case actionExit:
		m.exitReason = ctl.reason
		return &Capture{Reason: ctl.reason}
	default:
		// Trap: the dispatcher already advanced position past the opcode.
		return &Capture{Trap: ctl.trap}
	}
}

// Run steps the machine until it terminates or traps.
func (m *Machine) Run(h InterpreterHandler, address types.Address) *Capture {
	for {
		if c := m.Step(h, address); c != nil {
			return c
		}
	}
}
