package crypto

import (
	"math/big"

	"github.com/eth7702/eth7702/core/types"
)

// EIP-712 typed structured data hashing.

// eip712DomainTypeHash is the type hash of the canonical four-field domain:
// keccak256("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)").
var eip712DomainTypeHash = Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))

// TypedDataDomain identifies the signing context of EIP-712 typed data.
// A signature over a digest framed with one domain is invalid under any
// other domain, which is what scopes signatures to a single verifier.
type TypedDataDomain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract types.Address
}

// Separator computes the EIP-712 domain separator:
// keccak256(abi.encode(domainTypeHash, keccak256(name), keccak256(version), chainId, verifyingContract)).
func (d TypedDataDomain) Separator() types.Hash {
	enc := make([]byte, 0, 5*types.HashLength)
	enc = append(enc, eip712DomainTypeHash.Bytes()...)
	enc = append(enc, Keccak256([]byte(d.Name))...)
	enc = append(enc, Keccak256([]byte(d.Version))...)
	enc = append(enc, BigToBytes32(d.ChainID)...)
	enc = append(enc, d.VerifyingContract.Hash().Bytes()...)
	return Keccak256Hash(enc)
}

// TypedDataDigest computes the final EIP-712 signing digest:
// keccak256(0x19 || 0x01 || domainSeparator || hashStruct(message)).
func TypedDataDigest(domainSeparator, structHash types.Hash) types.Hash {
	return Keccak256Hash([]byte{0x19, 0x01}, domainSeparator.Bytes(), structHash.Bytes())
}

// BigToBytes32 encodes x as a 32-byte big-endian ABI word. Values wider
// than 256 bits are truncated to their low 256 bits; nil encodes as zero.
func BigToBytes32(x *big.Int) []byte {
	if x == nil {
		return make([]byte, types.HashLength)
	}
	return types.BytesToHash(x.Bytes()).Bytes()
}
