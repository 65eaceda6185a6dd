// Package crypto implements the cryptographic primitives of the
// delegated-account engine: Keccak-256 hashing, secp256k1 signing and
// recovery, EIP-712 typed-data hashing and contract address derivation.
package crypto

import (
	"hash"
	"sync"

	"github.com/eth7702/eth7702/core/types"
	"golang.org/x/crypto/sha3"
)

// keccakPool recycles sponge state. Address derivation and signature checks
// hash on every hot path, and a fresh sponge per call is the dominant
// allocation there.
var keccakPool = sync.Pool{
	New: func() interface{} { return sha3.NewLegacyKeccak256() },
}

// Keccak256 returns the Keccak-256 digest of the concatenated chunks.
func Keccak256(chunks ...[]byte) []byte {
	d := keccakPool.Get().(hash.Hash)
	d.Reset()
	for _, c := range chunks {
		d.Write(c)
	}
	out := d.Sum(make([]byte, 0, types.HashLength))
	keccakPool.Put(d)
	return out
}

// Keccak256Hash is Keccak256 folded into a types.Hash.
func Keccak256Hash(chunks ...[]byte) types.Hash {
	var h types.Hash
	d := keccakPool.Get().(hash.Hash)
	d.Reset()
	for _, c := range chunks {
		d.Write(c)
	}
	d.Sum(h[:0])
	keccakPool.Put(d)
	return h
}
