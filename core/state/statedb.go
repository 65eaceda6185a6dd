// Package state holds the world state the authorization engine runs
// against: balances, nonces, code, per-account storage and emitted logs.
// Snapshot/revert gives callers operation-scoped atomicity; there is no
// trie, no commit pipeline and no gas accounting.
package state

import (
	"math/big"

	"github.com/eth7702/eth7702/core/types"
)

// StateDB is the state surface the engine touches. Balances and nonces
// carry fee settlement and replay protection, code carries delegation
// designators, storage carries the account's namespaced configuration,
// and logs carry its notification events.
type StateDB interface {
	CreateAccount(addr types.Address)
	Exist(addr types.Address) bool
	Empty(addr types.Address) bool

	GetBalance(addr types.Address) *big.Int
	AddBalance(addr types.Address, amount *big.Int)
	SubBalance(addr types.Address, amount *big.Int)

	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)

	GetCode(addr types.Address) []byte
	SetCode(addr types.Address, code []byte)
	GetCodeHash(addr types.Address) types.Hash

	GetState(addr types.Address, key types.Hash) types.Hash
	SetState(addr types.Address, key, value types.Hash)

	AddLog(l *types.Log)
	Logs() []*types.Log

	Snapshot() int
	RevertToSnapshot(id int)
}
