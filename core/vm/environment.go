// Package vm provides the call environment the delegated account runs
// against: native value transfer, registered Go handlers standing in for
// callee contracts, and CREATE2 deployment with collision detection.
// There is no bytecode interpreter; handlers are ordinary functions.
package vm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/eth7702/eth7702/core/types"
)

// Call and creation errors.
var (
	ErrExecutionReverted   = errors.New("execution reverted")
	ErrDepthExceeded       = errors.New("vm: max call depth exceeded")
	ErrInsufficientBalance = errors.New("vm: insufficient balance for transfer")
	ErrContractCollision   = errors.New("vm: contract address collision")
	ErrNonceOverflow       = errors.New("vm: sender nonce overflow")
)

// MaxCallDepth limits call nesting to the standard 1024 frames.
const MaxCallDepth = 1024

// RevertError carries a callee's revert payload. The payload travels
// unmodified from the frame that reverted to the outermost caller.
// errors.Is(err, ErrExecutionReverted) matches it.
type RevertError struct {
	Reason []byte
}

// Revert builds a RevertError around the given payload.
func Revert(reason []byte) *RevertError {
	return &RevertError{Reason: reason}
}

func (e *RevertError) Error() string {
	if len(e.Reason) == 0 {
		return "execution reverted"
	}
	return fmt.Sprintf("execution reverted: 0x%x", e.Reason)
}

func (e *RevertError) Unwrap() error { return ErrExecutionReverted }

// StateDB is the slice of world state the environment touches. It is
// declared here so vm depends only on what it uses; any implementation
// of core/state.StateDB satisfies it.
type StateDB interface {
	CreateAccount(addr types.Address)
	GetBalance(addr types.Address) *big.Int
	AddBalance(addr types.Address, amount *big.Int)
	SubBalance(addr types.Address, amount *big.Int)
	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)
	GetCode(addr types.Address) []byte
	SetCode(addr types.Address, code []byte)
	GetCodeHash(addr types.Address) types.Hash
	Snapshot() int
	RevertToSnapshot(id int)
}

// Environment is the account's window onto the chain: outbound calls and
// deterministic deployment. Implementations revert all state effects of a
// frame that returns an error.
type Environment interface {
	// Call transfers value and invokes the target. The returned bytes are
	// the callee's return or revert data; on revert err is a *RevertError
	// carrying the same payload.
	Call(caller, target types.Address, value *big.Int, input []byte) ([]byte, error)

	// Create2 deploys initCode at the address
	// keccak256(0xff || caller || salt || keccak256(initCode))[12:].
	Create2(caller types.Address, value *big.Int, salt types.Hash, initCode []byte) (types.Address, []byte, error)
}
