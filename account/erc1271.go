package account

// erc1271.go implements Mode B validation: the ERC-1271 isValidSignature
// entry point with the ERC-7739 nested typed-data scheme layered on top.
// Both signing conventions fold the account's own EIP-712 domain (name,
// version, chain id, own address) into the digest that gets signed, so a
// signature produced for one account instance recovers a different signer
// on any other instance and is rejected. That is the anti-replay property.
//
// Every failure path returns the failure value; nothing in here faults on
// malformed input.

import (
	"encoding/binary"
	"strings"

	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/crypto"
)

// ERC-1271 result values and the ERC-7739 detection handshake.
var (
	// MagicValue is returned when the signature checks out:
	// bytes4(keccak256("isValidSignature(bytes32,bytes)")).
	MagicValue = [4]byte{0x16, 0x26, 0xba, 0x7e}

	// FailureValue is returned on any verification failure.
	FailureValue = [4]byte{0xff, 0xff, 0xff, 0xff}

	// DetectionValue answers the ERC-7739 support probe.
	DetectionValue = [4]byte{0x77, 0x39, 0x00, 0x01}
)

// detectionProbe is the fixed hash (0x7739 repeated to 32 bytes) callers
// pass with an empty signature to ask whether the account speaks ERC-7739,
// without constructing a real signature.
var detectionProbe = func() types.Hash {
	var h types.Hash
	for i := 0; i < types.HashLength; i += 2 {
		h[i], h[i+1] = 0x77, 0x39
	}
	return h
}()

// personalSignTypeHash is keccak256("PersonalSign(bytes32 prefixed)").
var personalSignTypeHash = crypto.Keccak256Hash([]byte("PersonalSign(bytes32 prefixed)"))

// Domain returns the account's own EIP-712 signing domain.
func (d *Delegate) Domain() crypto.TypedDataDomain {
	return crypto.TypedDataDomain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainID:           d.chainID,
		VerifyingContract: d.self,
	}
}

// DomainSeparator returns the separator of the account's own domain.
func (d *Delegate) DomainSeparator() types.Hash {
	return d.Domain().Separator()
}

// IsValidSignature implements ERC-1271 over the two ERC-7739 conventions.
// A signature that parses as a TypedDataSign envelope is verified against
// the reconstructed nested digest; anything else is treated as a
// PersonalSign signature over hash. Success returns MagicValue, any
// failure returns FailureValue.
func (d *Delegate) IsValidSignature(hash types.Hash, sig []byte) [4]byte {
	if len(sig) == 0 && hash == detectionProbe {
		return DetectionValue
	}
	if env, ok := parseNestedEnvelope(sig); ok {
		if d.verifyTypedDataSign(hash, env) {
			return MagicValue
		}
		return FailureValue
	}
	if d.verifyPersonalSign(hash, sig) {
		return MagicValue
	}
	return FailureValue
}

// nestedEnvelope is the wire layout of an ERC-7739 TypedDataSign signature:
//
//	innerSig || appSeparator (32) || contentsHash (32) || contentsDescr || uint16(len(contentsDescr))
type nestedEnvelope struct {
	innerSig      []byte
	appSeparator  types.Hash
	contentsHash  types.Hash
	contentsDescr []byte
}

// parseNestedEnvelope splits sig from the tail: the last two bytes give the
// descriptor length, the descriptor sits before them, then the two 32-byte
// hashes, and whatever remains in front is the inner signature. Anything
// that does not fit this shape is not an envelope.
func parseNestedEnvelope(sig []byte) (nestedEnvelope, bool) {
	var env nestedEnvelope
	if len(sig) < 2 {
		return env, false
	}
	descrLen := int(binary.BigEndian.Uint16(sig[len(sig)-2:]))
	innerLen := len(sig) - 2 - descrLen - 2*types.HashLength
	if descrLen == 0 || innerLen < 0 {
		return env, false
	}
	env.innerSig = sig[:innerLen]
	env.appSeparator = types.BytesToHash(sig[innerLen : innerLen+types.HashLength])
	env.contentsHash = types.BytesToHash(sig[innerLen+types.HashLength : innerLen+2*types.HashLength])
	env.contentsDescr = sig[len(sig)-2-descrLen : len(sig)-2]
	return env, true
}

// verifyTypedDataSign checks the structured-application-data convention:
// the authority signed the TypedDataSign struct, framed with the FOREIGN
// app's domain separator but binding this account's own domain fields
// inside the struct hash.
func (d *Delegate) verifyTypedDataSign(hash types.Hash, env nestedEnvelope) bool {
	contentsName, contentsType, ok := splitContentsDescr(env.contentsDescr)
	if !ok {
		return false
	}
	// The hash under verification must be the foreign app's own digest of
	// the contents; otherwise the envelope talks about something else.
	if hash != crypto.TypedDataDigest(env.appSeparator, env.contentsHash) {
		return false
	}

	typeHash := crypto.Keccak256Hash(
		[]byte("TypedDataSign("+contentsName+" contents,string name,string version,uint256 chainId,address verifyingContract,bytes32 salt)"),
		[]byte(contentsType),
	)
	var salt types.Hash
	structHash := crypto.Keccak256Hash(
		typeHash.Bytes(),
		env.contentsHash.Bytes(),
		crypto.Keccak256([]byte(DomainName)),
		crypto.Keccak256([]byte(DomainVersion)),
		crypto.BigToBytes32(d.chainID),
		d.self.Hash().Bytes(),
		salt.Bytes(),
	)
	digest := crypto.TypedDataDigest(env.appSeparator, structHash)
	return d.recoversSelf(digest, env.innerSig)
}

// verifyPersonalSign checks the simple-message convention: the authority
// signed keccak256(0x1901 || ownSeparator || hashStruct(PersonalSign{hash})).
func (d *Delegate) verifyPersonalSign(hash types.Hash, sig []byte) bool {
	structHash := crypto.Keccak256Hash(personalSignTypeHash.Bytes(), hash.Bytes())
	digest := crypto.TypedDataDigest(d.DomainSeparator(), structHash)
	return d.recoversSelf(digest, sig)
}

func (d *Delegate) recoversSelf(digest types.Hash, sig []byte) bool {
	recovered, err := crypto.RecoverAddress(digest.Bytes(), sig)
	return err == nil && recovered == d.self
}

// splitContentsDescr resolves the ERC-7739 contents descriptor into the
// contents struct name and the full type string. In implicit mode the
// descriptor is the type itself and the name is the identifier before the
// first "(". In explicit mode the name is appended after the type's final
// ")". Names that are empty or contain "(", ")", ",", space or NUL are
// rejected.
func splitContentsDescr(descr []byte) (name, typ string, ok bool) {
	s := string(descr)
	if idx := strings.LastIndexByte(s, ')'); idx >= 0 && idx != len(s)-1 {
		name, typ = s[idx+1:], s[:idx+1]
	} else {
		idx := strings.IndexByte(s, '(')
		if idx < 0 {
			return "", "", false
		}
		name, typ = s[:idx], s
	}
	if !validContentsName(name) {
		return "", "", false
	}
	return name, typ, true
}

func validContentsName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '(', ')', ',', ' ', 0:
			return false
		}
	}
	return true
}
