package geth

// signer.go wraps go-ethereum's secp256k1 signing behind the eth7702 type
// system. Signatures are the plain 65-byte [R || S || V] layout with V in
// {0, 1} and low S, which is exactly what crypto.RecoverAddress on the
// eth7702 side accepts. Signing here and verifying there (or the reverse)
// exercises the full wire path.

import (
	"crypto/ecdsa"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/eth7702/eth7702/core/types"
)

// Signer holds a secp256k1 private key managed by go-ethereum's crypto
// package and signs 32-byte digests with it.
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner parses a hex-encoded private key, with or without a 0x prefix.
func NewSigner(hexKey string) (*Signer, error) {
	key, err := gethcrypto.HexToECDSA(trim0x(hexKey))
	if err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

// Address returns the account controlled by the signer's key.
func (s *Signer) Address() types.Address {
	return FromGethAddress(gethcrypto.PubkeyToAddress(s.key.PublicKey))
}

// SignHash signs a 32-byte digest and returns the 65-byte [R || S || V]
// signature.
func (s *Signer) SignHash(h types.Hash) ([]byte, error) {
	return gethcrypto.Sign(h[:], s.key)
}

func trim0x(s string) string {
	if len(s) >= 2 && s[:2] == "0x" {
		return s[2:]
	}
	return s
}
