package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/eth7702/eth7702/core/types"
)

const (
	// DigestLength is the length of hashes passed to Sign and recovery.
	DigestLength = 32

	// SignatureLength is the length of a compact signature: R || S || V.
	SignatureLength = 65

	// RecoveryIDOffset is the byte index of the recovery id V.
	RecoveryIDOffset = 64
)

// secp256k1N is the group order of the curve; halfN marks the low-S
// boundary the Homestead rules enforce.
var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

var secp256k1halfN = new(big.Int).Div(secp256k1N, big.NewInt(2))

// S256 returns an instance of the secp256k1 curve.
func S256() elliptic.Curve {
	return secp256k1.S256()
}

// GenerateKey draws a fresh secp256k1 private key from crypto/rand.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(S256(), rand.Reader)
}

// ToECDSA creates a private key with the given D value. The slice must
// be exactly 32 bytes and encode a scalar in [1, N-1].
func ToECDSA(d []byte) (*ecdsa.PrivateKey, error) {
	priv := new(ecdsa.PrivateKey)
	priv.PublicKey.Curve = S256()
	if 8*len(d) != priv.Params().BitSize {
		return nil, fmt.Errorf("invalid private key length, need %d bits", priv.Params().BitSize)
	}
	priv.D = new(big.Int).SetBytes(d)
	if priv.D.Cmp(secp256k1N) >= 0 {
		return nil, errors.New("invalid private key, >=N")
	}
	if priv.D.Sign() <= 0 {
		return nil, errors.New("invalid private key, zero or negative")
	}
	priv.PublicKey.X, priv.PublicKey.Y = priv.PublicKey.Curve.ScalarBaseMult(d)
	if priv.PublicKey.X == nil {
		return nil, errors.New("invalid private key")
	}
	return priv, nil
}

// FromECDSA exports a private key into its 32-byte big-endian D value.
func FromECDSA(priv *ecdsa.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	return priv.D.FillBytes(make([]byte, 32))
}

// HexToECDSA parses a secp256k1 private key from a hex string.
func HexToECDSA(hexkey string) (*ecdsa.PrivateKey, error) {
	b, err := hex.DecodeString(hexkey)
	if err != nil {
		return nil, errors.New("invalid hex string")
	}
	return ToECDSA(b)
}

// Sign calculates an ECDSA signature over a 32-byte digest.
//
// The produced signature is in the [R || S || V] format where V is 0 or 1.
func Sign(digestHash []byte, prv *ecdsa.PrivateKey) ([]byte, error) {
	if len(digestHash) != DigestLength {
		return nil, fmt.Errorf("hash is required to be exactly %d bytes (%d)", DigestLength, len(digestHash))
	}
	if prv.Curve != S256() {
		return nil, errors.New("private key curve is not secp256k1")
	}
	var priv secp256k1.PrivateKey
	if overflow := priv.Key.SetByteSlice(prv.D.Bytes()); overflow || priv.Key.IsZero() {
		return nil, errors.New("invalid private key")
	}
	defer priv.Zero()
	sig := secpecdsa.SignCompact(&priv, digestHash, false)
	// Convert to the [R || S || V] format with the recovery id at the end.
	v := sig[0] - 27
	copy(sig, sig[1:])
	sig[RecoveryIDOffset] = v
	return sig, nil
}

// Ecrecover recovers the uncompressed public key (65 bytes) that created
// the given signature. Malformed input yields an error, never a panic.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	pub, err := sigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	return pub.SerializeUncompressed(), nil
}

// SigToPub recovers the public key that created the given signature.
func SigToPub(hash, sig []byte) (*ecdsa.PublicKey, error) {
	pub, err := sigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	return pub.ToECDSA(), nil
}

func sigToPub(hash, sig []byte) (*secp256k1.PublicKey, error) {
	if len(hash) != DigestLength {
		return nil, errors.New("hash must be 32 bytes")
	}
	if len(sig) != SignatureLength {
		return nil, errors.New("signature must be 65 bytes [R || S || V]")
	}
	// Compact format carries the recovery id in the first byte, offset by 27.
	compact := make([]byte, SignatureLength)
	compact[0] = sig[RecoveryIDOffset] + 27
	copy(compact[1:], sig)

	pub, _, err := secpecdsa.RecoverCompact(compact, hash)
	return pub, err
}

// ValidateSignature verifies that the given signature (64 bytes, no V) is
// valid for the provided public key (compressed or uncompressed) and
// 32-byte hash. Malleable (upper-half S) signatures are rejected.
func ValidateSignature(pubkey, hash, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	if len(hash) != DigestLength {
		return false
	}
	var r, s secp256k1.ModNScalar
	if r.SetByteSlice(sig[:32]) {
		return false // overflow
	}
	if s.SetByteSlice(sig[32:64]) {
		return false
	}
	if s.IsOverHalfOrder() {
		return false
	}
	key, err := secp256k1.ParsePubKey(pubkey)
	if err != nil {
		return false
	}
	return secpecdsa.NewSignature(&r, &s).Verify(hash, key)
}

// ValidateSignatureValues applies the Homestead signature rules to raw
// r, s, v values: both scalars in [1, N) and v in {0, 1}, with s capped
// at halfN when homestead is set.
func ValidateSignatureValues(v byte, r, s *big.Int, homestead bool) bool {
	if r == nil || s == nil {
		return false
	}
	if v > 1 {
		return false
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return false
	}
	if r.Cmp(secp256k1N) >= 0 || s.Cmp(secp256k1N) >= 0 {
		return false
	}
	if homestead && s.Cmp(secp256k1halfN) > 0 {
		return false
	}
	return true
}

// PubkeyToAddress derives the account address of a public key: the low
// 20 bytes of Keccak256 over the uncompressed point without its 0x04 tag.
func PubkeyToAddress(p ecdsa.PublicKey) types.Address {
	pubBytes := FromECDSAPub(&p)
	if pubBytes == nil {
		return types.Address{}
	}
	hash := Keccak256(pubBytes[1:])
	return types.BytesToAddress(hash[12:])
}

// CompressPubkey compresses a public key to the 33-byte compressed format.
func CompressPubkey(pubkey *ecdsa.PublicKey) []byte {
	if pubkey == nil || pubkey.X == nil || pubkey.Y == nil {
		return nil
	}
	var x, y secp256k1.FieldVal
	x.SetByteSlice(pubkey.X.Bytes())
	y.SetByteSlice(pubkey.Y.Bytes())
	return secp256k1.NewPublicKey(&x, &y).SerializeCompressed()
}

// DecompressPubkey expands a 33-byte compressed public key to its full
// point form.
func DecompressPubkey(pubkey []byte) (*ecdsa.PublicKey, error) {
	if len(pubkey) != 33 {
		return nil, errors.New("compressed public key must be 33 bytes")
	}
	key, err := secp256k1.ParsePubKey(pubkey)
	if err != nil {
		return nil, err
	}
	return key.ToECDSA(), nil
}

// UnmarshalPubkey converts a 65-byte uncompressed point to a public key.
func UnmarshalPubkey(pub []byte) (*ecdsa.PublicKey, error) {
	if len(pub) != 65 || pub[0] != 4 {
		return nil, errors.New("invalid uncompressed public key")
	}
	key, err := secp256k1.ParsePubKey(pub)
	if err != nil {
		return nil, err
	}
	return key.ToECDSA(), nil
}

// FromECDSAPub marshals a public key as a 65-byte uncompressed point.
func FromECDSAPub(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	out := make([]byte, 65)
	out[0] = 4
	pub.X.FillBytes(out[1:33])
	pub.Y.FillBytes(out[33:65])
	return out
}
