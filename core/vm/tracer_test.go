package vm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/evmcore/evmcore/core/types"
)

func TestTraceHandlerRecordsSteps(t *testing.T) {
	h := NewTraceHandler(nil)
	m := NewMachine(common.FromHex("6001600201"), nil, 1024, 1<<20)
	m.SetTracing(true)
	cap := m.Run(h, types.Address{})
	if cap.Reason != SucceedStopped {
		t.Fatalf("capture = %v, want stopped", cap)
	}
	// PUSH1, PUSH1, ADD, then the implicit stop (not traced: no opcode).
	if len(h.Entries) != 3 {
		t.Fatalf("trace length = %d, want 3", len(h.Entries))
	}
	wantOps := []OpCode{PUSH1, PUSH1, ADD}
	wantPcs := []int{0, 2, 4}
	for i, e := range h.Entries {
		if e.Op != wantOps[i] || e.Pc != wantPcs[i] {
			t.Errorf("entry %d = %v@%d, want %v@%d", i, e.Op, e.Pc, wantOps[i], wantPcs[i])
		}
	}
}

func TestTraceHandlerRecordsResult(t *testing.T) {
	h := NewTraceHandler(nil)
	m := NewMachine(common.FromHex("fe"), nil, 1024, 1<<20)
	m.SetTracing(true)
	m.Run(h, types.Address{})
	if len(h.Entries) != 1 {
		t.Fatalf("trace length = %d, want 1", len(h.Entries))
	}
	if h.Entries[0].Result == "" {
		t.Errorf("INVALID step recorded no result")
	}
}

func TestProfilingHandler(t *testing.T) {
	h := NewProfilingHandler(types.Address{})
	m := NewMachine(common.FromHex("600160020160005260206000f3"), nil, 1024, 1<<20)
	cap := m.Run(h, types.Address{})
	if cap.Reason != SucceedReturned {
		t.Fatalf("capture = %v, want returned", cap)
	}
	if h.Executed != 8 {
		t.Errorf("Executed = %d, want 8", h.Executed)
	}
	if h.Profile[PUSH1] != 5 {
		t.Errorf("Profile[PUSH1] = %d, want 5", h.Profile[PUSH1])
	}
	if h.Profile[ADD] != 1 {
		t.Errorf("Profile[ADD] = %d, want 1", h.Profile[ADD])
	}
}
