package vm

import (
	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/log"
)

// TraceEntry is a single step recorded by TraceHandler.
type TraceEntry struct {
	Pc       int
	Op       OpCode
	Depth    int
	StackLen int
	MemLen   int
	Result   string // "", "exit(...)" or "trap(...)"
}

// TraceHandler is an InterpreterHandler that records every step and
// optionally mirrors it to a structured logger. Enable machine tracing to
// also capture per-step results through AfterBytecode.
type TraceHandler struct {
	Entries []TraceEntry
	Depth   int

	logger *log.Logger
}

// NewTraceHandler returns a tracer. A nil logger records steps without
// emitting log output.
func NewTraceHandler(logger *log.Logger) *TraceHandler {
	if logger != nil {
		logger = logger.Module("evm")
	}
	return &TraceHandler{logger: logger}
}

func (t *TraceHandler) BeforeBytecode(op OpCode, pc int, machine *Machine, address types.Address) *ExitError {
	t.Entries = append(t.Entries, TraceEntry{
		Pc:       pc,
		Op:       op,
		Depth:    t.Depth,
		StackLen: machine.Stack().Len(),
		MemLen:   machine.Memory().Len(),
	})
	if t.logger != nil {
		t.logger.Debug("step",
			"pc", pc,
			"op", op.String(),
			"stack", machine.Stack().Len(),
			"mem", machine.Memory().Len(),
			"address", address.Hex(),
		)
	}
	return nil
}

func (t *TraceHandler) AfterBytecode(result *Capture, machine *Machine) {
	if len(t.Entries) == 0 || result == nil {
		return
	}
	t.Entries[len(t.Entries)-1].Result = result.String()
}
