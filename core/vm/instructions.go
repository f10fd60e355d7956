package vm

import "github.com/holiman/uint256"

// Control is the outcome of a single instruction: advance the program
// counter, jump to an absolute position, terminate, or suspend on an
// external opcode. It is the sole return channel of the dispatchers.
type Control struct {
	action controlAction
	target int
	reason ExitReason
	trap   OpCode
}

type controlAction uint8

const (
	actionContinue controlAction = iota
	actionJump
	actionExit
	actionTrap
)

// Continue advances the program counter by n bytes.
func Continue(n int) Control {
	return Control{action: actionContinue, target: n}
}

// JumpTo sets the program counter to dest.
func JumpTo(dest int) Control {
	return Control{action: actionJump, target: dest}
}

// ExitWith terminates the machine.
func ExitWith(reason ExitReason) Control {
	return Control{action: actionExit, reason: reason}
}

// TrapOn suspends the machine for external handling of op.
func TrapOn(op OpCode) Control {
	return Control{action: actionTrap, trap: op}
}

// capture converts a Control into the observer-facing result: nil for
// plain advancement, a Capture for exits and traps.
func (c Control) capture() *Capture {
	switch c.action {
	case actionExit:
		return &Capture{Reason: c.reason}
	case actionTrap:
		return &Capture{Trap: c.trap}
	}
	return nil
}

var word32 = uint256.NewInt(32)

// op2 pops x and y and pushes fn(x, y). fn writes its result into z;
// uint256 method expressions like (*uint256.Int).Add fit directly.
func op2(m *Machine, fn func(z, x, y *uint256.Int) *uint256.Int) Control {
	if err := m.stack.Require(2); err != nil {
		return ExitWith(err)
	}
	x, _ := m.stack.Pop()
	y, _ := m.stack.Pop()
	var z uint256.Int
	fn(&z, &x, &y)
	m.stack.Push(&z)
	return Continue(1)
}

// op3 pops x, y and w and pushes fn(x, y, w).
func op3(m *Machine, fn func(z, x, y, w *uint256.Int) *uint256.Int) Control {
	if err := m.stack.Require(3); err != nil {
		return ExitWith(err)
	}
	x, _ := m.stack.Pop()
	y, _ := m.stack.Pop()
	w, _ := m.stack.Pop()
	var z uint256.Int
	fn(&z, &x, &y, &w)
	m.stack.Push(&z)
	return Continue(1)
}

// op2Bool pops x and y and pushes 1 when pred(x, y) holds, else 0.
func op2Bool(m *Machine, pred func(x, y *uint256.Int) bool) Control {
	if err := m.stack.Require(2); err != nil {
		return ExitWith(err)
	}
	x, _ := m.stack.Pop()
	y, _ := m.stack.Pop()
	var z uint256.Int
	if pred(&x, &y) {
		z.SetOne()
	}
	m.stack.Push(&z)
	return Continue(1)
}

// Arithmetic. Division and modulus by zero yield zero; add, sub and mul
// wrap mod 2^256; ADDMOD and MULMOD reduce a 512-bit intermediate; SDIV
// keeps the INT256_MIN / -1 = INT256_MIN convention. All of these are the
// native semantics of uint256.

func opAdd(m *Machine) Control { return op2(m, (*uint256.Int).Add) }
func opMul(m *Machine) Control { return op2(m, (*uint256.Int).Mul) }
func opSub(m *Machine) Control { return op2(m, (*uint256.Int).Sub) }
func opDiv(m *Machine) Control { return op2(m, (*uint256.Int).Div) }
func opSdiv(m *Machine) Control { return op2(m, (*uint256.Int).SDiv) }
func opMod(m *Machine) Control { return op2(m, (*uint256.Int).Mod) }
func opSmod(m *Machine) Control { return op2(m, (*uint256.Int).SMod) }
func opExp(m *Machine) Control { return op2(m, (*uint256.Int).Exp) }

func opAddmod(m *Machine) Control { return op3(m, (*uint256.Int).AddMod) }
func opMulmod(m *Machine) Control { return op3(m, (*uint256.Int).MulMod) }

// opSignExtend sign-extends x from byte index b; b >= 31 is the identity.
func opSignExtend(m *Machine) Control {
	return op2(m, func(z, b, x *uint256.Int) *uint256.Int {
		return z.ExtendSign(x, b)
	})
}

// Comparison and bitwise.

func opLt(m *Machine) Control { return op2Bool(m, (*uint256.Int).Lt) }
func opGt(m *Machine) Control { return op2Bool(m, (*uint256.Int).Gt) }
func opSlt(m *Machine) Control { return op2Bool(m, (*uint256.Int).Slt) }
func opSgt(m *Machine) Control { return op2Bool(m, (*uint256.Int).Sgt) }
func opEq(m *Machine) Control { return op2Bool(m, (*uint256.Int).Eq) }

func opIsZero(m *Machine) Control {
	if err := m.stack.Require(1); err != nil {
		return ExitWith(err)
	}
	x, _ := m.stack.Pop()
	var z uint256.Int
	if x.IsZero() {
		z.SetOne()
	}
	m.stack.Push(&z)
	return Continue(1)
}

func opAnd(m *Machine) Control { return op2(m, (*uint256.Int).And) }
func opOr(m *Machine) Control { return op2(m, (*uint256.Int).Or) }
func opXor(m *Machine) Control { return op2(m, (*uint256.Int).Xor) }

func opNot(m *Machine) Control {
	if err := m.stack.Require(1); err != nil {
		return ExitWith(err)
	}
	x, _ := m.stack.Pop()
	var z uint256.Int
	z.Not(&x)
	m.stack.Push(&z)
	return Continue(1)
}

// opByte pushes byte i of x (0 = most significant), zero when i >= 32.
func opByte(m *Machine) Control {
	if err := m.stack.Require(2); err != nil {
		return ExitWith(err)
	}
	i, _ := m.stack.Pop()
	x, _ := m.stack.Pop()
	x.Byte(&i)
	m.stack.Push(&x)
	return Continue(1)
}

func opShl(m *Machine) Control {
	if err := m.stack.Require(2); err != nil {
		return ExitWith(err)
	}
	shift, _ := m.stack.Pop()
	value, _ := m.stack.Pop()
	if shift.LtUint64(256) {
		value.Lsh(&value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	m.stack.Push(&value)
	return Continue(1)
}

func opShr(m *Machine) Control {
	if err := m.stack.Require(2); err != nil {
		return ExitWith(err)
	}
	shift, _ := m.stack.Pop()
	value, _ := m.stack.Pop()
	if shift.LtUint64(256) {
		value.Rsh(&value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	m.stack.Push(&value)
	return Continue(1)
}

// opSar is the arithmetic (sign-extending) right shift.
func opSar(m *Machine) Control {
	if err := m.stack.Require(2); err != nil {
		return ExitWith(err)
	}
	shift, _ := m.stack.Pop()
	value, _ := m.stack.Pop()
	if shift.LtUint64(256) {
		value.SRsh(&value, uint(shift.Uint64()))
	} else if value.Sign() < 0 {
		value.SetAllOne()
	} else {
		value.Clear()
	}
	m.stack.Push(&value)
	return Continue(1)
}

// Stack manipulation.

func opPop(m *Machine) Control {
	if _, err := m.stack.Pop(); err != nil {
		return ExitWith(err)
	}
	return Continue(1)
}

// opPush reads n immediate bytes big-endian. Immediates past the end of
// the code read as zero, as if the code were zero-extended.
func opPush(m *Machine, n, pc int) Control {
	code := m.code
	start := pc + 1
	if start > len(code) {
		start = len(code)
	}
	end := pc + 1 + n
	if end > len(code) {
		end = len(code)
	}
	var word [32]byte
	copy(word[32-n:], code[start:end])
	var val uint256.Int
	val.SetBytes(word[:])
	if err := m.stack.Push(&val); err != nil {
		return ExitWith(err)
	}
	return Continue(1 + n)
}

func opDup(m *Machine, n int) Control {
	if err := m.stack.Dup(n); err != nil {
		return ExitWith(err)
	}
	return Continue(1)
}

func opSwap(m *Machine, n int) Control {
	if err := m.stack.Swap(n); err != nil {
		return ExitWith(err)
	}
	return Continue(1)
}

// Memory.

func opMload(m *Machine) Control {
	if err := m.stack.Require(1); err != nil {
		return ExitWith(err)
	}
	index, _ := m.stack.Pop()
	if r := m.memory.ResizeOffset(&index, word32); r != nil {
		return ExitWith(r)
	}
	off, ok := asInt(&index)
	if !ok {
		return ExitWith(FatalNotSupported)
	}
	var val uint256.Int
	val.SetBytes(m.memory.Get(off, 32))
	m.stack.Push(&val)
	return Continue(1)
}

func opMstore(m *Machine) Control {
	if err := m.stack.Require(2); err != nil {
		return ExitWith(err)
	}
	index, _ := m.stack.Pop()
	value, _ := m.stack.Pop()
	if r := m.memory.ResizeOffset(&index, word32); r != nil {
		return ExitWith(r)
	}
	off, ok := asInt(&index)
	if !ok {
		return ExitWith(FatalNotSupported)
	}
	if r := m.memory.Set32(off, &value); r != nil {
		return ExitWith(r)
	}
	return Continue(1)
}

func opMstore8(m *Machine) Control {
	if err := m.stack.Require(2); err != nil {
		return ExitWith(err)
	}
	index, _ := m.stack.Pop()
	value, _ := m.stack.Pop()
	one := uint256.NewInt(1)
	if r := m.memory.ResizeOffset(&index, one); r != nil {
		return ExitWith(r)
	}
	off, ok := asInt(&index)
	if !ok {
		return ExitWith(FatalNotSupported)
	}
	b := value.Bytes32()
	if r := m.memory.Set(off, 1, b[31:]); r != nil {
		return ExitWith(r)
	}
	return Continue(1)
}

func opMsize(m *Machine) Control {
	var val uint256.Int
	val.SetUint64(uint64(m.memory.Len()))
	if err := m.stack.Push(&val); err != nil {
		return ExitWith(err)
	}
	return Continue(1)
}

// Program counter and code/data access.

func opPC(m *Machine, pc int) Control {
	var val uint256.Int
	val.SetUint64(uint64(pc))
	if err := m.stack.Push(&val); err != nil {
		return ExitWith(err)
	}
	return Continue(1)
}

func opJump(m *Machine) Control {
	if err := m.stack.Require(1); err != nil {
		return ExitWith(err)
	}
	dest, _ := m.stack.Pop()
	return jumpTo(m, &dest)
}

func opJumpi(m *Machine) Control {
	if err := m.stack.Require(2); err != nil {
		return ExitWith(err)
	}
	dest, _ := m.stack.Pop()
	cond, _ := m.stack.Pop()
	if cond.IsZero() {
		return Continue(1)
	}
	return jumpTo(m, &dest)
}

func jumpTo(m *Machine, dest *uint256.Int) Control {
	d, ok := asInt(dest)
	if !ok || !m.valids.IsValid(d) {
		return ExitWith(ErrInvalidJump)
	}
	return JumpTo(d)
}

func opCodeSize(m *Machine) Control {
	var val uint256.Int
	val.SetUint64(uint64(len(m.code)))
	if err := m.stack.Push(&val); err != nil {
		return ExitWith(err)
	}
	return Continue(1)
}

func opCodeCopy(m *Machine) Control {
	return copyFrom(m, m.code)
}

func opCalldataSize(m *Machine) Control {
	var val uint256.Int
	val.SetUint64(uint64(len(m.data)))
	if err := m.stack.Push(&val); err != nil {
		return ExitWith(err)
	}
	return Continue(1)
}

// opCalldataLoad pushes 32 bytes of call data at the popped offset,
// zero-padded past the end.
func opCalldataLoad(m *Machine) Control {
	if err := m.stack.Require(1); err != nil {
		return ExitWith(err)
	}
	index, _ := m.stack.Pop()
	var word [32]byte
	if off, ok := asInt(&index); ok && off < len(m.data) {
		copy(word[:], m.data[off:])
	}
	var val uint256.Int
	val.SetBytes(word[:])
	m.stack.Push(&val)
	return Continue(1)
}

func opCalldataCopy(m *Machine) Control {
	return copyFrom(m, m.data)
}

// copyFrom implements the shared CODECOPY/CALLDATACOPY shape: pop
// destination, source offset and length, grow memory, copy with
// source-zero-padding.
func copyFrom(m *Machine, src []byte) Control {
	if err := m.stack.Require(3); err != nil {
		return ExitWith(err)
	}
	memOffset, _ := m.stack.Pop()
	srcOffset, _ := m.stack.Pop()
	length, _ := m.stack.Pop()
	if r := m.memory.ResizeOffset(&memOffset, &length); r != nil {
		return ExitWith(r)
	}
	if r := m.memory.CopyLarge(&memOffset, &srcOffset, &length, src); r != nil {
		return ExitWith(r)
	}
	return Continue(1)
}

// Termination.

func opStop(m *Machine) Control {
	return ExitWith(SucceedStopped)
}

func opReturn(m *Machine) Control {
	return retWith(m, SucceedReturned)
}

func opRevert(m *Machine) Control {
	return retWith(m, Reverted)
}

func retWith(m *Machine, reason ExitReason) Control {
	if err := m.stack.Require(2); err != nil {
		return ExitWith(err)
	}
	start, _ := m.stack.Pop()
	length, _ := m.stack.Pop()
	if r := m.memory.ResizeOffset(&start, &length); r != nil {
		return ExitWith(r)
	}
	var end uint256.Int
	end.Add(&start, &length)
	m.SetReturnRange(start, end)
	return ExitWith(reason)
}

func opInvalid(m *Machine) Control {
	return ExitWith(ErrDesignatedInvalid)
}

func opJumpdest(m *Machine) Control {
	return Continue(1)
}
