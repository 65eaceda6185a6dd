// Package delegation implements the EIP-7702 binding between an externally
// owned account and its delegate code: the signed authorization tuple, the
// recovery of the authorizing key, and the delegation designator installed
// at the authority's address. This is the layer that establishes the fixed
// code-to-address binding the account package assumes.
package delegation

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/crypto"
	"github.com/eth7702/eth7702/rlp"
)

var (
	ErrAuthChainID    = errors.New("delegation: authorization chain id mismatch")
	ErrAuthNonce      = errors.New("delegation: authorization nonce mismatch")
	ErrAuthSignature  = errors.New("delegation: authorization signature recovery failed")
	ErrAuthInvalidSig = errors.New("delegation: authorization signature values invalid")
)

// Authorization is one EIP-7702 authorization tuple. The authority signs
// keccak256(0x05 || rlp([chainID, address, nonce])) to delegate its account
// code to Address. A zero Address revokes an existing delegation.
type Authorization struct {
	ChainID *big.Int
	Address types.Address
	Nonce   uint64
	V       *big.Int
	R       *big.Int
	S       *big.Int
}

// authTuple is the RLP list [chain_id, address, nonce] under the hash.
type authTuple struct {
	ChainID *big.Int
	Address types.Address
	Nonce   uint64
}

// SigningHash returns the digest the authority signs:
// keccak256(0x05 || rlp([chainID, address, nonce])).
func (a *Authorization) SigningHash() (types.Hash, error) {
	tuple, err := rlp.EncodeToBytes(authTuple{a.ChainID, a.Address, a.Nonce})
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte{types.AuthMagic}, tuple), nil
}

// Sign builds a signed authorization delegating the key's account to target
// on the given chain. A nil or zero chainID produces the any-chain wildcard.
func Sign(key *ecdsa.PrivateKey, chainID *big.Int, target types.Address, nonce uint64) (*Authorization, error) {
	auth := &Authorization{Address: target, Nonce: nonce}
	if chainID != nil {
		auth.ChainID = new(big.Int).Set(chainID)
	}
	hash, err := auth.SigningHash()
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return nil, err
	}
	auth.R = new(big.Int).SetBytes(sig[:32])
	auth.S = new(big.Int).SetBytes(sig[32:64])
	auth.V = new(big.Int).SetUint64(uint64(sig[crypto.RecoveryIDOffset]))
	return auth, nil
}

// Authority recovers the address that signed the authorization. The
// signature must carry V in {0, 1} and a low-S value; anything else is
// ErrAuthInvalidSig.
func (a *Authorization) Authority() (types.Address, error) {
	sig, err := a.signatureBytes()
	if err != nil {
		return types.Address{}, err
	}
	hash, err := a.SigningHash()
	if err != nil {
		return types.Address{}, err
	}
	addr, err := crypto.RecoverAddress(hash.Bytes(), sig)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %v", ErrAuthSignature, err)
	}
	return addr, nil
}

// signatureBytes assembles the 65-byte [R || S || V] form. Range checks on
// R and S proper are left to the recovery path.
func (a *Authorization) signatureBytes() ([]byte, error) {
	v := byte(0)
	if a.V != nil {
		if !a.V.IsUint64() || a.V.Uint64() > 1 {
			return nil, ErrAuthInvalidSig
		}
		v = byte(a.V.Uint64())
	}
	if a.R == nil || a.S == nil || a.R.BitLen() > 256 || a.S.BitLen() > 256 {
		return nil, ErrAuthInvalidSig
	}
	sig := make([]byte, crypto.SignatureLength)
	a.R.FillBytes(sig[:32])
	a.S.FillBytes(sig[32:64])
	sig[crypto.RecoveryIDOffset] = v
	return sig, nil
}
