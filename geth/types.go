// Package geth bridges the engine's type system to go-ethereum's. It is the
// one package allowed to import go-ethereum; everything else stays on
// core/types.
//
// The bridge exists to prove wire compatibility in both directions:
// signatures and addresses minted with go-ethereum's crypto must check out
// against the engine's own secp256k1 recovery and CREATE2 derivation, and
// the reverse.
package geth

import (
	"math/big"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/eth7702/eth7702/core/types"
)

// Address and Hash share go-ethereum's memory layout, so conversion is a
// cast in both directions.

func ToGethAddress(a types.Address) gethcommon.Address   { return gethcommon.Address(a) }
func FromGethAddress(a gethcommon.Address) types.Address { return types.Address(a) }
func ToGethHash(h types.Hash) gethcommon.Hash            { return gethcommon.Hash(h) }
func FromGethHash(h gethcommon.Hash) types.Hash          { return types.Hash(h) }

// ToUint256 converts a balance into go-ethereum's fixed-width form. Nil
// means zero. Values past 2^256-1 clamp to the maximum; the engine's
// ledgers never produce them, so the clamp only matters for hostile input.
func ToUint256(b *big.Int) *uint256.Int {
	if b == nil {
		return new(uint256.Int)
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return u
}

// FromUint256 converts a fixed-width balance back to *big.Int. Nil means
// zero.
func FromUint256(u *uint256.Int) *big.Int {
	if u == nil {
		return new(big.Int)
	}
	return u.ToBig()
}

// FromGethLog maps an execution log into the engine's form. Only the
// per-frame fields survive the mapping; block and transaction positions
// have no meaning inside the dispatcher.
func FromGethLog(l *gethtypes.Log) *types.Log {
	if l == nil {
		return nil
	}
	out := &types.Log{
		Address: FromGethAddress(l.Address),
		Data:    l.Data,
		Index:   l.Index,
		Removed: l.Removed,
	}
	if len(l.Topics) > 0 {
		out.Topics = make([]types.Hash, len(l.Topics))
		for i, topic := range l.Topics {
			out.Topics[i] = FromGethHash(topic)
		}
	}
	return out
}

// ToGethLog is the inverse of FromGethLog, for replaying engine logs
// through go-ethereum tooling. The positional fields it cannot fill stay
// zero.
func ToGethLog(l *types.Log) *gethtypes.Log {
	if l == nil {
		return nil
	}
	out := &gethtypes.Log{
		Address: ToGethAddress(l.Address),
		Data:    l.Data,
		Index:   l.Index,
		Removed: l.Removed,
	}
	if len(l.Topics) > 0 {
		out.Topics = make([]gethcommon.Hash, len(l.Topics))
		for i, topic := range l.Topics {
			out.Topics[i] = ToGethHash(topic)
		}
	}
	return out
}

// FromGethLogs converts a batch of logs, preserving order.
func FromGethLogs(logs []*gethtypes.Log) []*types.Log {
	out := make([]*types.Log, len(logs))
	for i, l := range logs {
		out[i] = FromGethLog(l)
	}
	return out
}
