package vm

import "github.com/evmcore/evmcore/core/types"

// opFunc is the uniform signature of every slot in the dispatch table.
type opFunc func(m *Machine, op OpCode, position int) Control

// opTable is the function-pointer dispatch table, one slot per opcode
// byte. Slots not claimed below keep evalExternal, which traps to the
// driver. Initialized once at package load.
var opTable [256]opFunc

// evalExternal skips past the opcode and traps. It also serves every
// unassigned byte.
func evalExternal(m *Machine, op OpCode, position int) Control {
	m.position = position + 1
	return TrapOn(op)
}

// fixed adapts an instruction that needs neither the opcode nor the
// position to the table signature.
func fixed(fn func(*Machine) Control) opFunc {
	return func(m *Machine, _ OpCode, _ int) Control {
		return fn(m)
	}
}

func init() {
	for i := range opTable {
		opTable[i] = evalExternal
	}

	opTable[STOP] = fixed(opStop)
	opTable[ADD] = fixed(opAdd)
	opTable[MUL] = fixed(opMul)
	opTable[SUB] = fixed(opSub)
	opTable[DIV] = fixed(opDiv)
	opTable[SDIV] = fixed(opSdiv)
	opTable[MOD] = fixed(opMod)
	opTable[SMOD] = fixed(opSmod)
	opTable[ADDMOD] = fixed(opAddmod)
	opTable[MULMOD] = fixed(opMulmod)
	opTable[EXP] = fixed(opExp)
	opTable[SIGNEXTEND] = fixed(opSignExtend)

	opTable[LT] = fixed(opLt)
	opTable[GT] = fixed(opGt)
	opTable[SLT] = fixed(opSlt)
	opTable[SGT] = fixed(opSgt)
	opTable[EQ] = fixed(opEq)
	opTable[ISZERO] = fixed(opIsZero)
	opTable[AND] = fixed(opAnd)
	opTable[OR] = fixed(opOr)
	opTable[XOR] = fixed(opXor)
	opTable[NOT] = fixed(opNot)
	opTable[BYTE] = fixed(opByte)
	opTable[SHL] = fixed(opShl)
	opTable[SHR] = fixed(opShr)
	opTable[SAR] = fixed(opSar)

	opTable[POP] = fixed(opPop)
	opTable[MLOAD] = fixed(opMload)
	opTable[MSTORE] = fixed(opMstore)
	opTable[MSTORE8] = fixed(opMstore8)
	opTable[JUMP] = fixed(opJump)
	opTable[JUMPI] = fixed(opJumpi)
	opTable[MSIZE] = fixed(opMsize)
	opTable[JUMPDEST] = fixed(opJumpdest)
	opTable[PC] = func(m *Machine, _ OpCode, position int) Control {
		return opPC(m, position)
	}

	opTable[CODESIZE] = fixed(opCodeSize)
	opTable[CODECOPY] = fixed(opCodeCopy)
	opTable[CALLDATALOAD] = fixed(opCalldataLoad)
	opTable[CALLDATASIZE] = fixed(opCalldataSize)
	opTable[CALLDATACOPY] = fixed(opCalldataCopy)

	opTable[RETURN] = fixed(opReturn)
	opTable[REVERT] = fixed(opRevert)
	opTable[INVALID] = fixed(opInvalid)

	for i := 0; i < 32; i++ {
		n := i + 1
		opTable[int(PUSH1)+i] = func(m *Machine, _ OpCode, position int) Control {
			return opPush(m, n, position)
		}
	}
	for i := 0; i < 16; i++ {
		n := i + 1
		opTable[int(DUP1)+i] = func(m *Machine, _ OpCode, _ int) Control {
			return opDup(m, n)
		}
		opTable[int(SWAP1)+i] = func(m *Machine, _ OpCode, _ int) Control {
			return opSwap(m, n)
		}
	}
}

// evalTable executes the instruction at position through the dispatch
// table. Behaviorally identical to evalSwitch.
func evalTable(m *Machine, h InterpreterHandler, position int, address types.Address) Control {
	if position >= len(m.code) {
		return ExitWith(SucceedStopped)
	}
	op := OpCode(m.code[position])
	if err := h.BeforeBytecode(op, position, m, address); err != nil {
		return ExitWith(err)
	}

	ctl := opTable[op](m, op, position)

	if m.tracing {
		h.AfterBytecode(ctl.capture(), m)
	}
	return ctl
}
