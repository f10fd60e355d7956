//go:build evm_switch

package vm

import "github.com/evmcore/evmcore/core/types"

// eval is the dispatch strategy in effect: the dense switch, selected by
// the evm_switch build tag.
func eval(m *Machine, h InterpreterHandler, position int, address types.Address) Control {
	return evalSwitch(m, h, position, address)
}
