//go:build !evm_switch

package vm

import "github.com/evmcore/evmcore/core/types"

// eval is the dispatch strategy in effect. The default build uses the
// function-pointer table; build with -tags evm_switch for the dense
// switch. Both produce identical observable behavior.
func eval(m *Machine, h InterpreterHandler, position int, address types.Address) Control {
	return evalTable(m, h, position, address)
}
