package runtime

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/vm"
)

// DefaultStackLimit is the canonical EVM operand stack depth.
const DefaultStackLimit = 1024

// Config carries the machine bounds a driver hands to new runtimes.
type Config struct {
	StackLimit  int
	MemoryLimit int
	// Tracing enables the AfterBytecode observer call on every step.
	Tracing bool
}

// DefaultConfig returns the canonical bounds: 1024 stack slots and an
// effectively unlimited memory.
func DefaultConfig() Config {
	return Config{
		StackLimit:  DefaultStackLimit,
		MemoryLimit: math.MaxInt32,
	}
}

// Capture is the outcome of stepping a runtime: a terminal exit reason, or
// a suspended nested call/create awaiting the driver.
type Capture struct {
	Reason    vm.ExitReason
	Interrupt *Interrupt
}

// Interrupt is a suspended nested operation; exactly one field is set.
type Interrupt struct {
	Call   *CallInterrupt
	Create *CreateInterrupt
}

// Trapped reports whether the capture is an interrupt rather than an exit.
func (c *Capture) Trapped() bool { return c.Reason == nil }

// pendingKind records which interrupt the runtime is suspended on, so that
// the matching Finish call can be enforced.
type pendingKind uint8

const (
	pendingNone pendingKind = iota
	pendingCall
	pendingCreate
)

// Runtime pairs a machine with its call context and the return-data buffer
// observed by RETURNDATASIZE and RETURNDATACOPY. The runtime exclusively
// owns its machine; hosts build child runtimes for nested calls.
type Runtime struct {
	machine *vm.Machine
	context Context

	returnDataBuffer []byte

	pending          pendingKind
	pendingOutOffset uint256.Int
	pendingOutLen    uint256.Int
}

// NewRuntime creates a runtime executing code with the given call data and
// context under the bounds in config.
func NewRuntime(code, data []byte, context Context, config Config) *Runtime {
	m := vm.NewMachine(code, data, config.StackLimit, config.MemoryLimit)
	m.SetTracing(config.Tracing)
	return &Runtime{machine: m, context: context}
}

// Machine returns the wrapped machine.
func (r *Runtime) Machine() *vm.Machine {
	return r.machine
}

// Context returns the call context.
func (r *Runtime) Context() Context {
	return r.context
}

// ReturnDataBuffer returns the output of the most recent nested call or
// create.
func (r *Runtime) ReturnDataBuffer() []byte {
	return r.returnDataBuffer
}

// ReturnValue materializes the bytes posted by RETURN or REVERT.
func (r *Runtime) ReturnValue() []byte {
	return r.machine.ReturnValue()
}

// Step advances the runtime by one instruction. Internal opcodes run in
// the machine; external opcodes are dispatched to the handler. It returns
// nil while the runtime remains live, or a Capture on exit or interrupt.
func (r *Runtime) Step(handler Handler) *Capture {
	if r.pending != pendingNone {
		return &Capture{Reason: vm.FatalUnhandledInterrupt}
	}
	cap := r.machine.Step(handler, r.context.Address)
	if cap == nil {
		return nil
	}
	if cap.Reason != nil {
		return &Capture{Reason: cap.Reason}
	}
	ctl := evalTrap(r, cap.Trap, handler)
	switch ctl.kind {
	case ctlContinue:
		return nil
	case ctlExit:
		r.machine.Exit(ctl.reason)
		return &Capture{Reason: ctl.reason}
	case ctlCall:
		r.pending = pendingCall
		return &Capture{Interrupt: &Interrupt{Call: ctl.call}}
	default:
		r.pending = pendingCreate
		return &Capture{Interrupt: &Interrupt{Create: ctl.create}}
	}
}

// Run steps the runtime until it exits or interrupts.
func (r *Runtime) Run(handler Handler) *Capture {
	for {
		if c := r.Step(handler); c != nil {
			return c
		}
	}
}

// FinishCall resumes a runtime suspended on a CallInterrupt with the
// serviced result. It returns nil when execution may continue, or a
// Capture when the result was fatal.
func (r *Runtime) FinishCall(result CallResult) *Capture {
	if r.pending != pendingCall {
		return &Capture{Reason: vm.FatalOther(fmt.Sprintf("finish call while %v", r.pending))}
	}
	r.pending = pendingNone
	ctl := r.applyCallResult(result, true)
	if ctl.kind == ctlExit {
		r.machine.Exit(ctl.reason)
		return &Capture{Reason: ctl.reason}
	}
	return nil
}

// FinishCreate resumes a runtime suspended on a CreateInterrupt.
func (r *Runtime) FinishCreate(result CreateResult) *Capture {
	if r.pending != pendingCreate {
		return &Capture{Reason: vm.FatalOther(fmt.Sprintf("finish create while %v", r.pending))}
	}
	r.pending = pendingNone
	ctl := r.applyCreateResult(result, true)
	if ctl.kind == ctlExit {
		r.machine.Exit(ctl.reason)
		return &Capture{Reason: ctl.reason}
	}
	return nil
}

func (k pendingKind) String() string {
	switch k {
	case pendingNone:
		return "idle"
	case pendingCall:
		return "awaiting call result"
	}
	return "awaiting create result"
}
