// Package types defines the primitives shared across the delegated-account
// engine: 32-byte hashes, 20-byte addresses, log records and the EIP-7702
// delegation designator.
package types

import "encoding/hex"

// Byte lengths of the two fixed-size primitives.
const (
	HashLength    = 32
	AddressLength = 20
)

// Hash is a 32-byte value, usually a Keccak-256 digest.
type Hash [HashLength]byte

// BytesToHash builds a Hash from b: shorter inputs are left-padded with
// zeros, longer ones keep their rightmost 32 bytes.
func BytesToHash(b []byte) (h Hash) {
	h.SetBytes(b)
	return h
}

// HexToHash parses a hex string (0x prefix optional) into a Hash with
// BytesToHash padding rules.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// SetBytes copies b into h right-aligned, cropping to the rightmost 32
// bytes when b is longer.
func (h *Hash) SetBytes(b []byte) {
	b = tail(b, HashLength)
	copy(h[HashLength-len(b):], b)
}

// Bytes returns the hash as a slice.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the 0x-prefixed lowercase hex form.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// IsZero reports whether every byte is zero.
func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) String() string { return h.Hex() }

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// BytesToAddress builds an Address from b: shorter inputs are left-padded
// with zeros, longer ones keep their rightmost 20 bytes.
func BytesToAddress(b []byte) (a Address) {
	a.SetBytes(b)
	return a
}

// HexToAddress parses a hex string (0x prefix optional) into an Address
// with BytesToAddress padding rules.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

// SetBytes copies b into a right-aligned, cropping to the rightmost 20
// bytes when b is longer.
func (a *Address) SetBytes(b []byte) {
	b = tail(b, AddressLength)
	copy(a[AddressLength-len(b):], b)
}

// Bytes returns the address as a slice.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the 0x-prefixed lowercase hex form.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// IsZero reports whether every byte is zero.
func (a Address) IsZero() bool { return a == Address{} }

func (a Address) String() string { return a.Hex() }

// Hash returns the address left-padded to 32 bytes, the ABI word form
// used in typed-data encodings and log topics.
func (a Address) Hash() Hash {
	return BytesToHash(a[:])
}

// EmptyCodeHash is keccak256 of empty input, the code hash of every
// account that carries no code.
var EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

// Log is one event record emitted during execution.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
	Index   uint
	Removed bool
}

// tail crops b to its rightmost n bytes.
func tail(b []byte, n int) []byte {
	if len(b) > n {
		return b[len(b)-n:]
	}
	return b
}

// fromHex decodes s leniently: an optional 0x/0X prefix is stripped, an
// odd-length body gains a leading zero, and undecodable input yields nil.
func fromHex(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}
