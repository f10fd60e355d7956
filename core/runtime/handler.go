package runtime

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/core/vm"
)

// CallResult is the completed outcome of a nested call.
type CallResult struct {
	Reason vm.ExitReason
	Output []byte
}

// CreateResult is the completed outcome of a contract creation. Address is
// nil unless the creation succeeded.
type CreateResult struct {
	Reason  vm.ExitReason
	Address *types.Address
	Output  []byte
}

// CallInterrupt is a suspended nested call: the full request the host
// chose not to complete synchronously. The driver services it and resumes
// the parent with FinishCall.
type CallInterrupt struct {
	To       types.Address
	Transfer *Transfer
	Input    []byte
	GasCap   *uint64
	IsStatic bool
	Context  Context
	// OutOffset and OutLen are the parent's requested output window; the
	// parent runtime also retains them for the resume copy.
	OutOffset uint256.Int
	OutLen    uint256.Int
}

// CreateInterrupt is a suspended contract creation, resumed with
// FinishCreate.
type CreateInterrupt struct {
	Caller   types.Address
	Scheme   CreateScheme
	Value    uint256.Int
	InitCode []byte
	GasCap   *uint64
}

// CallCapture is the host's answer to a nested-call request: exactly one
// of Exit and Interrupt is set.
type CallCapture struct {
	Exit      *CallResult
	Interrupt *CallInterrupt
}

// CreateCapture is the host's answer to a creation request: exactly one of
// Exit and Interrupt is set.
type CreateCapture struct {
	Exit      *CreateResult
	Interrupt *CreateInterrupt
}

// Handler is the host capability set: every environmental query and
// mutation the runtime layer can dispatch. Mutating operations report
// failure as an ExitError, which terminates the calling machine. The
// interpreter observation hooks are embedded so a single host value drives
// both the machine and its environment.
type Handler interface {
	vm.InterpreterHandler

	// Environment.
	ChainID() uint256.Int
	Origin() types.Address
	GasPrice() uint256.Int
	BlockBaseFeePerGas() uint256.Int
	BlockCoinbase() types.Address
	BlockTimestamp() uint256.Int
	BlockNumber() uint256.Int
	BlockDifficulty() uint256.Int
	BlockGasLimit() uint256.Int
	GasLeft() uint256.Int
	BlockHash(number *uint256.Int) types.Hash

	// Accounts.
	Balance(address types.Address) uint256.Int
	Code(address types.Address) []byte
	CodeSize(address types.Address) uint256.Int
	CodeHash(address types.Address) types.Hash

	// Storage.
	Storage(address types.Address, key types.Hash) types.Hash
	SetStorage(address types.Address, key, value types.Hash) *vm.ExitError

	// Side effects.
	Log(address types.Address, topics []types.Hash, data []byte) *vm.ExitError
	MarkDelete(address, beneficiary types.Address) *vm.ExitError

	// Nested execution. For Call, a nil gas cap means the caller requested
	// more gas than a uint64 can hold. CREATE and CREATE2 carry no gas
	// operand, so Create always receives a nil gas cap.
	Call(to types.Address, transfer *Transfer, input []byte, gasCap *uint64, isStatic bool, context Context) CallCapture
	Create(caller types.Address, scheme CreateScheme, value uint256.Int, initCode []byte, gasCap *uint64) CreateCapture

	// Other handles opcodes the runtime does not recognize.
	Other(op vm.OpCode, machine *vm.Machine) *vm.ExitError
}
