// Package dispatch implements the reference entry-point dispatcher for
// delegated accounts: the trusted component that hashes operations, runs
// account validation with prefund accounting, consumes nonces and drives
// the execution gateway, turning sentinel validation results into
// accept/reject decisions.
package dispatch

import (
	"encoding/binary"
	"math/big"

	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/crypto"
)

// Operation is one request submitted on behalf of a delegated account.
// A non-empty InitCode selects deterministic deployment; otherwise the
// operation is a call to Target. MaxCost is the wei the sender must have
// prefunded before execution; the signature covers every other field.
type Operation struct {
	Sender    types.Address
	Nonce     uint64
	Target    types.Address
	Value     *big.Int
	Payload   []byte
	InitCode  []byte
	Salt      types.Hash
	MaxCost   *big.Int
	Signature []byte
}

// IsDeploy reports whether the operation requests a deployment.
func (op *Operation) IsDeploy() bool {
	return len(op.InitCode) > 0
}

// Receipt records the outcome of one operation. Failed operations still
// produce a receipt; a batch never aborts on a single failure.
type Receipt struct {
	OpHash   types.Hash
	Sender   types.Address
	Nonce    uint64
	Success  bool
	Deployed types.Address // contract address for deployment operations
	Cost     *big.Int      // wei charged against the sender's deposit
	Reason   string        // failure description, empty on success
}

// HashOperation computes the canonical signing digest of an operation:
// an inner hash over the packed fields, then an outer hash binding the
// entry-point address and the chain id so a signature cannot be replayed
// against another dispatcher or chain.
func HashOperation(op *Operation, entryPoint types.Address, chainID *big.Int) types.Hash {
	var buf []byte
	buf = append(buf, op.Sender[:]...)
	buf = appendUint64As32(buf, op.Nonce)
	buf = append(buf, op.Target[:]...)
	buf = appendBigAs32(buf, op.Value)
	buf = append(buf, crypto.Keccak256(op.Payload)...)
	buf = append(buf, crypto.Keccak256(op.InitCode)...)
	buf = append(buf, op.Salt.Bytes()...)
	buf = appendBigAs32(buf, op.MaxCost)
	inner := crypto.Keccak256(buf)

	var outer []byte
	outer = append(outer, inner...)
	outer = append(outer, entryPoint[:]...)
	outer = appendBigAs32(outer, chainID)
	return crypto.Keccak256Hash(outer)
}

// appendUint64As32 appends v as a 32-byte big-endian word.
func appendUint64As32(buf []byte, v uint64) []byte {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], v)
	return append(buf, word[:]...)
}

// appendBigAs32 appends v as a 32-byte big-endian word; nil appends zeros.
func appendBigAs32(buf []byte, v *big.Int) []byte {
	return append(buf, crypto.BigToBytes32(v)...)
}
