package vm

import "github.com/evmcore/evmcore/core/types"

// InterpreterHandler observes machine execution. BeforeBytecode runs ahead
// of every instruction and may abort execution; the returned error becomes
// the machine's terminal exit reason. AfterBytecode runs after an
// instruction when tracing is enabled; result is nil for a plain
// advancement. These are the only observation points inside the core: gas
// meters, tracers and profilers are all built on this pair.
type InterpreterHandler interface {
	BeforeBytecode(op OpCode, pc int, machine *Machine, address types.Address) *ExitError
	AfterBytecode(result *Capture, machine *Machine)
}

// ProfilingHandler counts executed instructions per opcode.
type ProfilingHandler struct {
	Executed uint64
	Profile  [256]uint64
	Address  types.Address
}

// NewProfilingHandler returns a handler profiling execution at address.
func NewProfilingHandler(address types.Address) *ProfilingHandler {
	return &ProfilingHandler{Address: address}
}

func (h *ProfilingHandler) BeforeBytecode(op OpCode, pc int, machine *Machine, address types.Address) *ExitError {
	h.Executed++
	h.Profile[op]++
	return nil
}

func (h *ProfilingHandler) AfterBytecode(result *Capture, machine *Machine) {}

// NopHandler observes nothing.
type NopHandler struct{}

func (NopHandler) BeforeBytecode(OpCode, int, *Machine, types.Address) *ExitError { return nil }

func (NopHandler) AfterBytecode(*Capture, *Machine) {}
