// ECDSA signature recovery utilities.
//
// Provides the compact signature representation (65 bytes: R || S || V),
// component validation, V-encoding normalization, signer address
// recovery and the ecRecover precompile used by the call environment.
//
// V value encoding:
//   - 0 or 1: raw recovery ID
//   - 27 or 28: Ethereum legacy (pre-EIP-155)
//   - 35 + 2*chainID or 36 + 2*chainID: EIP-155 replay-protected
//
// Signature malleability: s is normalized to the lower half of the curve
// order per EIP-2 (Homestead) wherever signatures are produced.
package crypto

import (
	"errors"
	"math/big"

	"github.com/eth7702/eth7702/core/types"
)

// CompactSignature is a 65-byte ECDSA signature: R (32) || S (32) || V (1).
// R and S are the signature components; V is the recovery ID that allows
// the signer's public key to be recovered from the signature alone.
type CompactSignature struct {
	R [32]byte
	S [32]byte
	V byte
}

// Errors for signature recovery operations.
var (
	ErrRecoverInvalidLength = errors.New("crypto: signature must be 65 bytes")
	ErrRecoverInvalidV      = errors.New("crypto: invalid V value")
	ErrRecoverInvalidR      = errors.New("crypto: R must be in [1, n-1]")
	ErrRecoverInvalidS      = errors.New("crypto: S must be in [1, n-1]")
	ErrRecoverMalleable     = errors.New("crypto: S is in upper half (malleable)")
	ErrRecoverHashLength    = errors.New("crypto: message hash must be 32 bytes")
	ErrRecoverFailed        = errors.New("crypto: public key recovery failed")
)

// ParseCompactSignature parses a 65-byte signature into a CompactSignature.
// Does not validate the signature components; use Validate for that.
func ParseCompactSignature(sig []byte) (*CompactSignature, error) {
	if len(sig) != SignatureLength {
		return nil, ErrRecoverInvalidLength
	}
	cs := &CompactSignature{V: sig[RecoveryIDOffset]}
	copy(cs.R[:], sig[:32])
	copy(cs.S[:], sig[32:64])
	return cs, nil
}

// Bytes encodes the compact signature as 65 bytes: R || S || V.
func (cs *CompactSignature) Bytes() []byte {
	buf := make([]byte, SignatureLength)
	copy(buf[:32], cs.R[:])
	copy(buf[32:64], cs.S[:])
	buf[RecoveryIDOffset] = cs.V
	return buf
}

// RBigInt returns R as a big.Int.
func (cs *CompactSignature) RBigInt() *big.Int {
	return new(big.Int).SetBytes(cs.R[:])
}

// SBigInt returns S as a big.Int.
func (cs *CompactSignature) SBigInt() *big.Int {
	return new(big.Int).SetBytes(cs.S[:])
}

// NormalizeV converts V from any Ethereum encoding to raw 0/1.
// Handles:
//   - 0, 1: already raw
//   - 27, 28: legacy Ethereum (subtract 27)
//   - 35 + 2*chainID, 36 + 2*chainID: EIP-155 (extract recovery bit)
//
// Returns the raw V (0 or 1) and the chain ID (0 for non-EIP-155).
func NormalizeV(v *big.Int) (byte, *big.Int) {
	vUint := v.Uint64()

	// Raw recovery ID.
	if v.IsInt64() && (vUint == 0 || vUint == 1) {
		return byte(vUint), new(big.Int)
	}

	// Legacy Ethereum encoding.
	if v.IsInt64() && (vUint == 27 || vUint == 28) {
		return byte(vUint - 27), new(big.Int)
	}

	// EIP-155: v = 35 + 2*chainID + recoveryBit
	if v.Cmp(big.NewInt(35)) >= 0 {
		diff := new(big.Int).Sub(v, big.NewInt(35))
		recoveryBit := byte(new(big.Int).Mod(diff, big.NewInt(2)).Uint64())
		chainID := new(big.Int).Div(diff, big.NewInt(2))
		return recoveryBit, chainID
	}

	// Unrecognized V: treat as raw if low enough.
	if v.IsInt64() && vUint < 4 {
		return byte(vUint & 1), new(big.Int)
	}
	return 0, new(big.Int)
}

// EncodeVLegacy encodes a raw V (0 or 1) as legacy Ethereum V (27 or 28).
func EncodeVLegacy(rawV byte) byte {
	return rawV + 27
}

// Validate checks that the signature components are valid:
//   - R in [1, n-1]
//   - S in [1, n-1]
//   - S in lower half of curve order (non-malleable)
//   - V is 0 or 1
func (cs *CompactSignature) Validate() error {
	return validateSigComponents(cs.RBigInt(), cs.SBigInt(), cs.V)
}

// validateSigComponents checks r, s, v for correctness.
func validateSigComponents(r, s *big.Int, v byte) error {
	if v > 1 {
		return ErrRecoverInvalidV
	}
	if r.Sign() <= 0 || r.Cmp(secp256k1N) >= 0 {
		return ErrRecoverInvalidR
	}
	if s.Sign() <= 0 || s.Cmp(secp256k1N) >= 0 {
		return ErrRecoverInvalidS
	}
	if s.Cmp(secp256k1halfN) > 0 {
		return ErrRecoverMalleable
	}
	return nil
}

// NormalizeS ensures S is in the lower half of the curve order.
// If S > n/2, it is replaced by n - S and V is flipped.
// Required by EIP-2 to prevent signature malleability.
func (cs *CompactSignature) NormalizeS() {
	s := cs.SBigInt()
	if s.Cmp(secp256k1halfN) > 0 {
		s.Sub(secp256k1N, s)
		cs.S = [32]byte{}
		s.FillBytes(cs.S[:])
		cs.V ^= 1 // flip recovery bit
	}
}

// RecoverAddress recovers the signer address from a 32-byte message hash
// and a 65-byte compact signature with V in {0, 1}:
// address = Keccak256(pubkey[1:])[12:].
func RecoverAddress(hash []byte, sig []byte) (types.Address, error) {
	if len(hash) != DigestLength {
		return types.Address{}, ErrRecoverHashLength
	}
	cs, err := ParseCompactSignature(sig)
	if err != nil {
		return types.Address{}, err
	}
	if err := cs.Validate(); err != nil {
		return types.Address{}, err
	}
	pub, err := SigToPub(hash, sig)
	if err != nil {
		return types.Address{}, ErrRecoverFailed
	}
	return PubkeyToAddress(*pub), nil
}

// EcRecoverPrecompile implements the ecRecover precompile (address 0x01).
// Input: hash (32) || v (32) || r (32) || s (32) = 128 bytes.
// V is the legacy Ethereum value (27 or 28).
// Output: left-padded 32-byte address, or nil on failure.
func EcRecoverPrecompile(input []byte) []byte {
	if len(input) < 128 {
		padded := make([]byte, 128)
		copy(padded, input)
		input = padded
	}

	hash := input[:32]

	// V is a 32-byte big-endian integer; must be 27 or 28.
	vBI := new(big.Int).SetBytes(input[32:64])
	if !vBI.IsInt64() {
		return nil
	}
	vVal := vBI.Int64()
	if vVal != 27 && vVal != 28 {
		return nil
	}
	rawV := byte(vVal - 27)

	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])
	if err := validateSigComponents(r, s, rawV); err != nil {
		return nil
	}

	sig := make([]byte, SignatureLength)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	sig[RecoveryIDOffset] = rawV

	pub, err := Ecrecover(hash, sig)
	if err != nil || pub == nil {
		return nil
	}

	// Derive address: Keccak256(pubkey[1:])[12:], left-padded to 32 bytes.
	addr := Keccak256(pub[1:])
	result := make([]byte, 32)
	copy(result[12:], addr[12:])
	return result
}
