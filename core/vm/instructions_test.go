package vm

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// binOp executes op on a fresh machine with a on top of the stack and b
// below it, returning the single result word.
func binOp(t *testing.T, op OpCode, a, b *uint256.Int) uint256.Int {
	t.Helper()
	m := NewMachine([]byte{byte(op)}, nil, 1024, 1<<20)
	m.stack.Push(b)
	m.stack.Push(a)
	if cap := m.Step(NopHandler{}, types.Address{}); cap != nil {
		t.Fatalf("%v: unexpected capture %v", op, cap)
	}
	if m.stack.Len() != 1 {
		t.Fatalf("%v: stack length = %d, want 1", op, m.stack.Len())
	}
	res, _ := m.stack.Pop()
	return res
}

func ternOp(t *testing.T, op OpCode, a, b, c *uint256.Int) uint256.Int {
	t.Helper()
	m := NewMachine([]byte{byte(op)}, nil, 1024, 1<<20)
	m.stack.Push(c)
	m.stack.Push(b)
	m.stack.Push(a)
	if cap := m.Step(NopHandler{}, types.Address{}); cap != nil {
		t.Fatalf("%v: unexpected capture %v", op, cap)
	}
	res, _ := m.stack.Pop()
	return res
}

func hexWord(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := uint256.FromHex(s)
	if err != nil {
		t.Fatalf("bad hex word %q: %v", s, err)
	}
	return v
}

var (
	maxWord   = "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	int256Min = "0x8000000000000000000000000000000000000000000000000000000000000000"
)

func TestDivModByZero(t *testing.T) {
	x := uint256.NewInt(1234)
	zero := uint256.NewInt(0)
	if got := binOp(t, DIV, x, zero); !got.IsZero() {
		t.Errorf("DIV(x, 0) = %v, want 0", &got)
	}
	if got := binOp(t, MOD, x, zero); !got.IsZero() {
		t.Errorf("MOD(x, 0) = %v, want 0", &got)
	}
	if got := binOp(t, SDIV, x, zero); !got.IsZero() {
		t.Errorf("SDIV(x, 0) = %v, want 0", &got)
	}
	if got := binOp(t, SMOD, x, zero); !got.IsZero() {
		t.Errorf("SMOD(x, 0) = %v, want 0", &got)
	}
}

func TestAddmodMulmodZeroModulus(t *testing.T) {
	x, y, zero := uint256.NewInt(10), uint256.NewInt(20), uint256.NewInt(0)
	if got := ternOp(t, ADDMOD, x, y, zero); !got.IsZero() {
		t.Errorf("ADDMOD(x, y, 0) = %v, want 0", &got)
	}
	if got := ternOp(t, MULMOD, x, y, zero); !got.IsZero() {
		t.Errorf("MULMOD(x, y, 0) = %v, want 0", &got)
	}
}

func TestAddmodUses512BitIntermediate(t *testing.T) {
	max := hexWord(t, maxWord)
	got := ternOp(t, ADDMOD, max, max, uint256.NewInt(7))
	// 2^256 mod 7 = 2, so (2^256-1) mod 7 = 1 and the 512-bit sum reduces
	// to 2. A 256-bit wrapping add would give (2^256-2) mod 7 = 0.
	if got.Uint64() != 2 {
		t.Errorf("ADDMOD(max, max, 7) = %v, want 2", &got)
	}
}

func TestSdivOverflowConvention(t *testing.T) {
	min := hexWord(t, int256Min)
	negOne := hexWord(t, maxWord)
	got := binOp(t, SDIV, min, negOne)
	if !got.Eq(min) {
		t.Errorf("SDIV(INT256_MIN, -1) = %v, want INT256_MIN", &got)
	}
}

func TestArithmeticWrapping(t *testing.T) {
	max := hexWord(t, maxWord)
	one := uint256.NewInt(1)
	zero := uint256.NewInt(0)

	if got := binOp(t, ADD, max, one); !got.IsZero() {
		t.Errorf("ADD(max, 1) = %v, want 0", &got)
	}
	if got := binOp(t, SUB, zero, one); !got.Eq(max) {
		t.Errorf("SUB(0, 1) = %v, want max", &got)
	}
	if got := binOp(t, MUL, max, uint256.NewInt(2)); !got.Eq(hexWord(t, "0xfffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe")) {
		t.Errorf("MUL(max, 2) = %v, want max-1", &got)
	}
}

func TestExp(t *testing.T) {
	zero := uint256.NewInt(0)
	if got := binOp(t, EXP, uint256.NewInt(10), zero); got.Uint64() != 1 {
		t.Errorf("EXP(10, 0) = %v, want 1", &got)
	}
	if got := binOp(t, EXP, zero, zero); got.Uint64() != 1 {
		t.Errorf("EXP(0, 0) = %v, want 1", &got)
	}
	if got := binOp(t, EXP, uint256.NewInt(2), uint256.NewInt(10)); got.Uint64() != 1024 {
		t.Errorf("EXP(2, 10) = %v, want 1024", &got)
	}
}

func TestSignExtend(t *testing.T) {
	// SIGNEXTEND(0, 0xff) = -1.
	got := binOp(t, SIGNEXTEND, uint256.NewInt(0), uint256.NewInt(0xff))
	if !got.Eq(hexWord(t, maxWord)) {
		t.Errorf("SIGNEXTEND(0, 0xff) = %v, want -1", &got)
	}
	// b >= 31 is the identity.
	x := hexWord(t, "0x80000000000000000000000000000000000000000000000000000000000000ff")
	for _, b := range []uint64{31, 32, 1000} {
		got := binOp(t, SIGNEXTEND, uint256.NewInt(b), x)
		if !got.Eq(x) {
			t.Errorf("SIGNEXTEND(%d, x) = %v, want x", b, &got)
		}
	}
}

func TestByte(t *testing.T) {
	// v = 0x0102...1f20: byte i (from the most significant end) is i+1.
	var raw [32]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	v := new(uint256.Int).SetBytes(raw[:])
	for i := uint64(0); i < 32; i++ {
		got := binOp(t, BYTE, uint256.NewInt(i), v)
		if got.Uint64() != i+1 {
			t.Errorf("BYTE(%d, v) = %v, want %d", i, &got, i+1)
		}
	}
	if got := binOp(t, BYTE, uint256.NewInt(32), v); !got.IsZero() {
		t.Errorf("BYTE(32, v) = %v, want 0", &got)
	}
}

func TestShifts(t *testing.T) {
	one := uint256.NewInt(1)
	if got := binOp(t, SHL, uint256.NewInt(8), one); got.Uint64() != 256 {
		t.Errorf("SHL(8, 1) = %v, want 256", &got)
	}
	if got := binOp(t, SHL, uint256.NewInt(256), one); !got.IsZero() {
		t.Errorf("SHL(256, 1) = %v, want 0", &got)
	}
	if got := binOp(t, SHR, uint256.NewInt(4), uint256.NewInt(256)); got.Uint64() != 16 {
		t.Errorf("SHR(4, 256) = %v, want 16", &got)
	}
	// SAR of a negative value shifts in ones.
	neg := hexWord(t, maxWord)
	if got := binOp(t, SAR, uint256.NewInt(8), neg); !got.Eq(neg) {
		t.Errorf("SAR(8, -1) = %v, want -1", &got)
	}
	if got := binOp(t, SAR, uint256.NewInt(300), neg); !got.Eq(neg) {
		t.Errorf("SAR(300, -1) = %v, want -1", &got)
	}
	if got := binOp(t, SAR, uint256.NewInt(300), one); !got.IsZero() {
		t.Errorf("SAR(300, 1) = %v, want 0", &got)
	}
}

func TestSignedComparisons(t *testing.T) {
	negOne := hexWord(t, maxWord)
	negTwo := hexWord(t, "0xfffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe")

	// -1 < -2 is false.
	if got := binOp(t, SLT, negOne, negTwo); !got.IsZero() {
		t.Errorf("SLT(-1, -2) = %v, want 0", &got)
	}
	// -1 > -2 is true.
	if got := binOp(t, SGT, negOne, negTwo); got.Uint64() != 1 {
		t.Errorf("SGT(-1, -2) = %v, want 1", &got)
	}
	// -2 < -1 is true.
	if got := binOp(t, SLT, negTwo, negOne); got.Uint64() != 1 {
		t.Errorf("SLT(-2, -1) = %v, want 1", &got)
	}
	// Unsigned comparison sees the bit patterns.
	if got := binOp(t, LT, negTwo, uint256.NewInt(5)); !got.IsZero() {
		t.Errorf("LT(0xff..fe, 5) = %v, want 0", &got)
	}
}

func TestBitwise(t *testing.T) {
	a := uint256.NewInt(0b1100)
	b := uint256.NewInt(0b1010)
	if got := binOp(t, AND, a, b); got.Uint64() != 0b1000 {
		t.Errorf("AND = %v, want 0b1000", &got)
	}
	if got := binOp(t, OR, a, b); got.Uint64() != 0b1110 {
		t.Errorf("OR = %v, want 0b1110", &got)
	}
	if got := binOp(t, XOR, a, b); got.Uint64() != 0b0110 {
		t.Errorf("XOR = %v, want 0b0110", &got)
	}
}
