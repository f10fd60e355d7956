// Package runtime wraps the pure machine with per-call context and
// dispatches externally-defined opcodes to a host.
package runtime

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// Context is the environment of one call frame as observed by ADDRESS,
// CALLER and CALLVALUE.
type Context struct {
	// Address is the account whose code is executing.
	Address types.Address
	// Caller is the account that initiated this frame.
	Caller types.Address
	// ApparentValue is the value the frame observes; for DELEGATECALL it is
	// inherited rather than transferred.
	ApparentValue uint256.Int
}

// Transfer describes a balance movement accompanying a call.
type Transfer struct {
	Source types.Address
	Target types.Address
	Value  uint256.Int
}

// CallScheme selects the child-context derivation and whether a value
// transfer occurs.
type CallScheme uint8

const (
	// SchemeCall runs the callee in its own context with a transfer.
	SchemeCall CallScheme = iota
	// SchemeCallCode runs the callee's code in the caller's context.
	SchemeCallCode
	// SchemeDelegateCall preserves the parent's caller and value.
	SchemeDelegateCall
	// SchemeStaticCall is SchemeCall without transfer, read-only.
	SchemeStaticCall
)

func (s CallScheme) String() string {
	switch s {
	case SchemeCall:
		return "call"
	case SchemeCallCode:
		return "callcode"
	case SchemeDelegateCall:
		return "delegatecall"
	case SchemeStaticCall:
		return "staticcall"
	}
	return "unknown"
}

// CreateSchemeKind tags the address-derivation rule of a CREATE.
type CreateSchemeKind uint8

const (
	// CreateLegacy derives the address from the caller and its nonce.
	CreateLegacy CreateSchemeKind = iota
	// CreateSalted derives the address from caller, salt and init code hash
	// (CREATE2).
	CreateSalted
	// CreateFixed places the contract at a host-chosen address.
	CreateFixed
)

// CreateScheme describes how the host should derive the created address.
type CreateScheme struct {
	Kind     CreateSchemeKind
	Caller   types.Address
	Salt     types.Hash    // CreateSalted only
	CodeHash types.Hash    // CreateSalted only
	Address  types.Address // CreateFixed only
}
