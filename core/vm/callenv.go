package vm

// callenv.go implements the in-memory Environment: value transfer between
// accounts, handler dispatch for registered callees, and CREATE2 with
// collision detection and constructor execution. Every frame runs inside a
// state snapshot; an error from the frame reverts all of its effects.

import (
	"math/big"

	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/crypto"
)

// Handler stands in for a contract at some address. It receives the
// environment so it can call back in (re-entrancy included), the caller,
// the value already credited to its address, and the call input. Returning
// an error reverts the frame; return a *RevertError to hand the caller a
// revert payload.
type Handler func(env Environment, caller types.Address, value *big.Int, input []byte) ([]byte, error)

// Constructor produces the runtime code for a CREATE2 deployment. It is
// keyed by the hash of the init code that triggers it. Returning an error
// reverts the deployment.
type Constructor func(env Environment, self types.Address, value *big.Int, initCode []byte) ([]byte, error)

// CallEnv is the reference Environment implementation. Handlers registered
// per address act as callee contracts; calls to unregistered addresses are
// plain value transfers. The ecrecover precompile is installed at address
// 0x01 like on chain. Not safe for concurrent use.
type CallEnv struct {
	state        StateDB
	handlers     map[types.Address]Handler
	constructors map[types.Hash]Constructor
	depth        int
}

// EcrecoverAddress is where the signature-recovery precompile lives.
var EcrecoverAddress = types.BytesToAddress([]byte{0x01})

// NewCallEnv creates an environment over the given state.
func NewCallEnv(state StateDB) *CallEnv {
	e := &CallEnv{
		state:        state,
		handlers:     make(map[types.Address]Handler),
		constructors: make(map[types.Hash]Constructor),
	}
	e.RegisterHandler(EcrecoverAddress, ecrecoverHandler)
	return e
}

// ecrecoverHandler adapts the ecRecover precompile to the handler shape.
// Like its chain counterpart it never reverts: malformed input yields
// empty return data.
func ecrecoverHandler(_ Environment, _ types.Address, _ *big.Int, input []byte) ([]byte, error) {
	return crypto.EcRecoverPrecompile(input), nil
}

// RegisterHandler installs a handler as the code at addr.
func (e *CallEnv) RegisterHandler(addr types.Address, h Handler) {
	e.handlers[addr] = h
}

// RegisterConstructor installs a constructor for deployments whose init
// code hashes to keccak256(initCode). Deployments with no registered
// constructor store the init code itself as the runtime code.
func (e *CallEnv) RegisterConstructor(initCode []byte, c Constructor) {
	e.constructors[crypto.Keccak256Hash(initCode)] = c
}

// StateDB exposes the underlying state, mainly for tests and handlers
// registered as closures over it.
func (e *CallEnv) StateDB() StateDB {
	return e.state
}

// Call transfers value from caller to target and runs the target's handler
// if one is registered. All effects of a failing frame are reverted; the
// revert payload (if any) is returned alongside the error.
func (e *CallEnv) Call(caller, target types.Address, value *big.Int, input []byte) ([]byte, error) {
	if e.depth >= MaxCallDepth {
		return nil, ErrDepthExceeded
	}
	if !e.canTransfer(caller, value) {
		return nil, ErrInsufficientBalance
	}
	snapshot := e.state.Snapshot()
	e.transfer(caller, target, value)

	handler, ok := e.handlers[target]
	if !ok {
		return nil, nil
	}

	e.depth++
	ret, err := handler(e, caller, valueOrZero(value), input)
	e.depth--

	if err != nil {
		e.state.RevertToSnapshot(snapshot)
		if rev, ok := err.(*RevertError); ok {
			return rev.Reason, rev
		}
		return nil, err
	}
	return ret, nil
}

// Create2 deploys a contract at the deterministic address derived from the
// caller, salt and init code. The creator's nonce is consumed even when the
// deployment fails after the collision check, matching chain semantics.
func (e *CallEnv) Create2(caller types.Address, value *big.Int, salt types.Hash, initCode []byte) (types.Address, []byte, error) {
	if e.depth >= MaxCallDepth {
		return types.Address{}, nil, ErrDepthExceeded
	}
	if !e.canTransfer(caller, value) {
		return types.Address{}, nil, ErrInsufficientBalance
	}

	nonce := e.state.GetNonce(caller)
	if nonce+1 < nonce {
		return types.Address{}, nil, ErrNonceOverflow
	}
	e.state.SetNonce(caller, nonce+1)

	initCodeHash := crypto.Keccak256Hash(initCode)
	addr := crypto.CreateAddress2(caller, salt, initCodeHash.Bytes())

	if e.collides(addr) {
		return addr, nil, ErrContractCollision
	}

	snapshot := e.state.Snapshot()
	e.state.CreateAccount(addr)
	// EIP-161: a freshly created contract starts at nonce 1.
	e.state.SetNonce(addr, 1)
	e.transfer(caller, addr, value)

	code := initCode
	if ctor, ok := e.constructors[initCodeHash]; ok {
		e.depth++
		ret, err := ctor(e, addr, valueOrZero(value), initCode)
		e.depth--
		if err != nil {
			e.state.RevertToSnapshot(snapshot)
			if rev, ok := err.(*RevertError); ok {
				return addr, rev.Reason, rev
			}
			return addr, nil, err
		}
		code = ret
	}
	e.state.SetCode(addr, code)

	return addr, nil, nil
}

// collides reports whether addr already carries account state that forbids
// deploying there: a used nonce or existing code.
func (e *CallEnv) collides(addr types.Address) bool {
	if e.state.GetNonce(addr) != 0 {
		return true
	}
	codeHash := e.state.GetCodeHash(addr)
	return codeHash != (types.Hash{}) && codeHash != types.EmptyCodeHash
}

func (e *CallEnv) canTransfer(from types.Address, value *big.Int) bool {
	if value == nil || value.Sign() == 0 {
		return true
	}
	return e.state.GetBalance(from).Cmp(value) >= 0
}

func (e *CallEnv) transfer(from, to types.Address, value *big.Int) {
	if value == nil || value.Sign() == 0 {
		return
	}
	e.state.SubBalance(from, value)
	e.state.AddBalance(to, value)
}

func valueOrZero(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return value
}

// Verify interface compliance at compile time.
var _ Environment = (*CallEnv)(nil)
