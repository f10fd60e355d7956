package runtime

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/core/vm"
	"github.com/evmcore/evmcore/crypto"
)

// control is the outcome of servicing one trapped opcode.
type control struct {
	kind   ctlKind
	reason vm.ExitReason
	call   *CallInterrupt
	create *CreateInterrupt
}

type ctlKind uint8

const (
	ctlContinue ctlKind = iota
	ctlExit
	ctlCall
	ctlCreate
)

func cont() control {
	return control{kind: ctlContinue}
}

func exitWith(reason vm.ExitReason) control {
	return control{kind: ctlExit, reason: reason}
}

// evalTrap services the external opcode the machine trapped on. Simple
// environmental queries complete synchronously against the handler; the
// call and create families may suspend with an interrupt.
func evalTrap(r *Runtime, op vm.OpCode, handler Handler) control {
	switch op {
	case vm.SHA3:
		return sysSha3(r)
	case vm.ADDRESS:
		return sysAddress(r)
	case vm.BALANCE:
		return sysBalance(r, handler)
	case vm.SELFBALANCE:
		return sysSelfBalance(r, handler)
	case vm.ORIGIN:
		return pushHash(r, handler.Origin().Hash())
	case vm.CALLER:
		return pushHash(r, r.context.Caller.Hash())
	case vm.CALLVALUE:
		v := r.context.ApparentValue
		return pushWord(r, &v)
	case vm.GASPRICE:
		v := handler.GasPrice()
		return pushWord(r, &v)
	case vm.EXTCODESIZE:
		return sysExtCodeSize(r, handler)
	case vm.EXTCODEHASH:
		return sysExtCodeHash(r, handler)
	case vm.EXTCODECOPY:
		return sysExtCodeCopy(r, handler)
	case vm.RETURNDATASIZE:
		return sysReturnDataSize(r)
	case vm.RETURNDATACOPY:
		return sysReturnDataCopy(r)
	case vm.BLOCKHASH:
		return sysBlockHash(r, handler)
	case vm.COINBASE:
		return pushHash(r, handler.BlockCoinbase().Hash())
	case vm.TIMESTAMP:
		v := handler.BlockTimestamp()
		return pushWord(r, &v)
	case vm.NUMBER:
		v := handler.BlockNumber()
		return pushWord(r, &v)
	case vm.DIFFICULTY:
		v := handler.BlockDifficulty()
		return pushWord(r, &v)
	case vm.GASLIMIT:
		v := handler.BlockGasLimit()
		return pushWord(r, &v)
	case vm.CHAINID:
		v := handler.ChainID()
		return pushWord(r, &v)
	case vm.BASEFEE:
		v := handler.BlockBaseFeePerGas()
		return pushWord(r, &v)
	case vm.SLOAD:
		return sysSload(r, handler)
	case vm.SSTORE:
		return sysSstore(r, handler)
	case vm.GAS:
		v := handler.GasLeft()
		return pushWord(r, &v)
	case vm.LOG0, vm.LOG1, vm.LOG2, vm.LOG3, vm.LOG4:
		return sysLog(r, int(op-vm.LOG0), handler)
	case vm.SELFDESTRUCT:
		return sysSelfDestruct(r, handler)
	case vm.CREATE:
		return sysCreate(r, false, handler)
	case vm.CREATE2:
		return sysCreate(r, true, handler)
	case vm.CALL:
		return sysCall(r, SchemeCall, handler)
	case vm.CALLCODE:
		return sysCall(r, SchemeCallCode, handler)
	case vm.DELEGATECALL:
		return sysCall(r, SchemeDelegateCall, handler)
	case vm.STATICCALL:
		return sysCall(r, SchemeStaticCall, handler)
	}
	if err := handler.Other(op, r.machine); err != nil {
		return exitWith(err)
	}
	return cont()
}

// wordToInt converts a word to a non-negative int, reporting failure when
// it does not fit the address range.
func wordToInt(v *uint256.Int) (int, bool) {
	if !v.IsUint64() || v.Uint64() > uint64(math.MaxInt) {
		return 0, false
	}
	return int(v.Uint64()), true
}

func pushWord(r *Runtime, v *uint256.Int) control {
	if err := r.machine.Stack().Push(v); err != nil {
		return exitWith(err)
	}
	return cont()
}

func pushHash(r *Runtime, h types.Hash) control {
	var v uint256.Int
	v.SetBytes(h[:])
	return pushWord(r, &v)
}

// memSlice grows memory to cover [offset, offset+length) and returns a
// copy of that window; a zero length yields nil without growth.
func memSlice(m *vm.Machine, offset, length *uint256.Int) ([]byte, vm.ExitReason) {
	if reason := m.Memory().ResizeOffset(offset, length); reason != nil {
		return nil, reason
	}
	if length.IsZero() {
		return nil, nil
	}
	off, ok := wordToInt(offset)
	if !ok {
		return nil, vm.FatalNotSupported
	}
	l, ok := wordToInt(length)
	if !ok {
		return nil, vm.FatalNotSupported
	}
	return m.Memory().Get(off, l), nil
}

func sysSha3(r *Runtime) control {
	st := r.machine.Stack()
	if err := st.Require(2); err != nil {
		return exitWith(err)
	}
	from, _ := st.Pop()
	length, _ := st.Pop()
	data, reason := memSlice(r.machine, &from, &length)
	if reason != nil {
		return exitWith(reason)
	}
	return pushHash(r, crypto.Keccak256Hash(data))
}

func sysAddress(r *Runtime) control {
	return pushHash(r, r.context.Address.Hash())
}

func sysBalance(r *Runtime, handler Handler) control {
	addr, err := r.machine.Stack().PopHash()
	if err != nil {
		return exitWith(err)
	}
	v := handler.Balance(addr.Address())
	return pushWord(r, &v)
}

func sysSelfBalance(r *Runtime, handler Handler) control {
	v := handler.Balance(r.context.Address)
	return pushWord(r, &v)
}

func sysExtCodeSize(r *Runtime, handler Handler) control {
	addr, err := r.machine.Stack().PopHash()
	if err != nil {
		return exitWith(err)
	}
	v := handler.CodeSize(addr.Address())
	return pushWord(r, &v)
}

func sysExtCodeHash(r *Runtime, handler Handler) control {
	addr, err := r.machine.Stack().PopHash()
	if err != nil {
		return exitWith(err)
	}
	return pushHash(r, handler.CodeHash(addr.Address()))
}

func sysExtCodeCopy(r *Runtime, handler Handler) control {
	st := r.machine.Stack()
	if err := st.Require(4); err != nil {
		return exitWith(err)
	}
	addr, _ := st.PopHash()
	memOffset, _ := st.Pop()
	codeOffset, _ := st.Pop()
	length, _ := st.Pop()
	mem := r.machine.Memory()
	if reason := mem.ResizeOffset(&memOffset, &length); reason != nil {
		return exitWith(reason)
	}
	if reason := mem.CopyLarge(&memOffset, &codeOffset, &length, handler.Code(addr.Address())); reason != nil {
		return exitWith(reason)
	}
	return cont()
}

func sysReturnDataSize(r *Runtime) control {
	var v uint256.Int
	v.SetUint64(uint64(len(r.returnDataBuffer)))
	return pushWord(r, &v)
}

func sysReturnDataCopy(r *Runtime) control {
	st := r.machine.Stack()
	if err := st.Require(3); err != nil {
		return exitWith(err)
	}
	memOffset, _ := st.Pop()
	dataOffset, _ := st.Pop()
	length, _ := st.Pop()
	mem := r.machine.Memory()
	if reason := mem.ResizeOffset(&memOffset, &length); reason != nil {
		return exitWith(reason)
	}
	var end uint256.Int
	if _, overflow := end.AddOverflow(&dataOffset, &length); overflow {
		return exitWith(vm.ErrOutOfOffset)
	}
	if end.GtUint64(uint64(len(r.returnDataBuffer))) {
		return exitWith(vm.ErrOutOfOffset)
	}
	if reason := mem.CopyLarge(&memOffset, &dataOffset, &length, r.returnDataBuffer); reason != nil {
		return exitWith(reason)
	}
	return cont()
}

func sysBlockHash(r *Runtime, handler Handler) control {
	st := r.machine.Stack()
	number, err := st.Pop()
	if err != nil {
		return exitWith(err)
	}
	return pushHash(r, handler.BlockHash(&number))
}

func sysSload(r *Runtime, handler Handler) control {
	key, err := r.machine.Stack().PopHash()
	if err != nil {
		return exitWith(err)
	}
	return pushHash(r, handler.Storage(r.context.Address, key))
}

func sysSstore(r *Runtime, handler Handler) control {
	st := r.machine.Stack()
	if err := st.Require(2); err != nil {
		return exitWith(err)
	}
	key, _ := st.PopHash()
	value, _ := st.PopHash()
	if err := handler.SetStorage(r.context.Address, key, value); err != nil {
		return exitWith(err)
	}
	return cont()
}

func sysLog(r *Runtime, n int, handler Handler) control {
	st := r.machine.Stack()
	if err := st.Require(2 + n); err != nil {
		return exitWith(err)
	}
	offset, _ := st.Pop()
	length, _ := st.Pop()
	data, reason := memSlice(r.machine, &offset, &length)
	if reason != nil {
		return exitWith(reason)
	}
	topics := make([]types.Hash, 0, n)
	for i := 0; i < n; i++ {
		topic, _ := st.PopHash()
		topics = append(topics, topic)
	}
	if err := handler.Log(r.context.Address, topics, data); err != nil {
		return exitWith(err)
	}
	return cont()
}

func sysSelfDestruct(r *Runtime, handler Handler) control {
	target, err := r.machine.Stack().PopHash()
	if err != nil {
		return exitWith(err)
	}
	if err := handler.MarkDelete(r.context.Address, target.Address()); err != nil {
		return exitWith(err)
	}
	return exitWith(vm.SucceedSuicided)
}

func sysCreate(r *Runtime, salted bool, handler Handler) control {
	r.returnDataBuffer = nil

	st := r.machine.Stack()
	need := 3
	if salted {
		need = 4
	}
	if err := st.Require(need); err != nil {
		return exitWith(err)
	}
	value, _ := st.Pop()
	codeOffset, _ := st.Pop()
	length, _ := st.Pop()
	code, reason := memSlice(r.machine, &codeOffset, &length)
	if reason != nil {
		return exitWith(reason)
	}

	scheme := CreateScheme{Kind: CreateLegacy, Caller: r.context.Address}
	if salted {
		salt, _ := st.PopHash()
		scheme = CreateScheme{
			Kind:     CreateSalted,
			Caller:   r.context.Address,
			Salt:     salt,
			CodeHash: crypto.Keccak256Hash(code),
		}
	}

	capture := handler.Create(r.context.Address, scheme, value, code, nil)
	if capture.Interrupt != nil {
		// Placeholder for the created address, fixed up on resume.
		var zero uint256.Int
		if err := st.Push(&zero); err != nil {
			return exitWith(err)
		}
		return control{kind: ctlCreate, create: capture.Interrupt}
	}
	return r.applyCreateResult(*capture.Exit, false)
}

func sysCall(r *Runtime, scheme CallScheme, handler Handler) control {
	r.returnDataBuffer = nil

	st := r.machine.Stack()
	need := 7
	if scheme == SchemeDelegateCall || scheme == SchemeStaticCall {
		need = 6
	}
	if err := st.Require(need); err != nil {
		return exitWith(err)
	}

	gas, _ := st.Pop()
	toHash, _ := st.PopHash()
	to := toHash.Address()

	var gasCap *uint64
	if gas.IsUint64() {
		g := gas.Uint64()
		gasCap = &g
	}

	var value uint256.Int
	if scheme == SchemeCall || scheme == SchemeCallCode {
		value, _ = st.Pop()
	}

	inOffset, _ := st.Pop()
	inLen, _ := st.Pop()
	outOffset, _ := st.Pop()
	outLen, _ := st.Pop()

	input, reason := memSlice(r.machine, &inOffset, &inLen)
	if reason != nil {
		return exitWith(reason)
	}
	if reason := r.machine.Memory().ResizeOffset(&outOffset, &outLen); reason != nil {
		return exitWith(reason)
	}
	r.pendingOutOffset = outOffset
	r.pendingOutLen = outLen

	var context Context
	switch scheme {
	case SchemeCall, SchemeStaticCall:
		context = Context{Address: to, Caller: r.context.Address, ApparentValue: value}
	case SchemeCallCode:
		context = Context{Address: r.context.Address, Caller: r.context.Address, ApparentValue: value}
	case SchemeDelegateCall:
		context = Context{
			Address:       r.context.Address,
			Caller:        r.context.Caller,
			ApparentValue: r.context.ApparentValue,
		}
	}

	var transfer *Transfer
	switch scheme {
	case SchemeCall:
		transfer = &Transfer{Source: r.context.Address, Target: to, Value: value}
	case SchemeCallCode:
		transfer = &Transfer{Source: r.context.Address, Target: r.context.Address, Value: value}
	}

	capture := handler.Call(to, transfer, input, gasCap, scheme == SchemeStaticCall, context)
	if capture.Interrupt != nil {
		capture.Interrupt.OutOffset = outOffset
		capture.Interrupt.OutLen = outLen
		// Placeholder for the status word, fixed up on resume.
		var zero uint256.Int
		if err := st.Push(&zero); err != nil {
			return exitWith(err)
		}
		return control{kind: ctlCall, call: capture.Interrupt}
	}
	return r.applyCallResult(*capture.Exit, false)
}

// placeWord pushes a word, or overwrites the placeholder slot when
// resuming from an interrupt.
func (r *Runtime) placeWord(v *uint256.Int, resumed bool) *vm.ExitError {
	if resumed {
		return r.machine.Stack().Set(0, v)
	}
	return r.machine.Stack().Push(v)
}

// applyCallResult records return data and the status word for a completed
// nested call. On success the output window receives min(outLen,
// len(output)) bytes; on revert the copy still happens so that revert data
// is observable; on error nothing is copied.
func (r *Runtime) applyCallResult(result CallResult, resumed bool) control {
	r.returnDataBuffer = result.Output

	targetLen := r.pendingOutLen
	if bufLen := uint256.NewInt(uint64(len(result.Output))); bufLen.Lt(&targetLen) {
		targetLen = *bufLen
	}
	var zero, status uint256.Int

	switch {
	case result.Reason.IsSucceed():
		if reason := r.machine.Memory().CopyLarge(&r.pendingOutOffset, &zero, &targetLen, result.Output); reason == nil {
			status.SetOne()
		}
		if err := r.placeWord(&status, resumed); err != nil {
			return exitWith(err)
		}
		return cont()
	case result.Reason.IsRevert():
		if err := r.placeWord(&status, resumed); err != nil {
			return exitWith(err)
		}
		r.machine.Memory().CopyLarge(&r.pendingOutOffset, &zero, &targetLen, result.Output)
		return cont()
	case result.Reason.IsFatal():
		if err := r.placeWord(&status, resumed); err != nil {
			return exitWith(err)
		}
		return exitWith(result.Reason)
	default:
		if err := r.placeWord(&status, resumed); err != nil {
			return exitWith(err)
		}
		return cont()
	}
}

// applyCreateResult records return data and the created address (or zero)
// for a completed creation.
func (r *Runtime) applyCreateResult(result CreateResult, resumed bool) control {
	r.returnDataBuffer = result.Output

	var word uint256.Int
	if result.Reason.IsSucceed() && result.Address != nil {
		word.SetBytes(result.Address.Bytes())
	}
	if err := r.placeWord(&word, resumed); err != nil {
		return exitWith(err)
	}
	if result.Reason.IsFatal() {
		return exitWith(result.Reason)
	}
	return cont()
}
