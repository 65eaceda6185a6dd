// Package rlp produces Ethereum's Recursive Length Prefix encoding. The
// engine writes RLP in exactly one place, the EIP-7702 authorization tuple
// that is hashed and signed, so the package is encode-only.
package rlp

import (
	"errors"
	"io"
	"math/big"
	"math/bits"
	"reflect"
)

var (
	// ErrUnsupportedType is returned for values the encoder cannot express.
	ErrUnsupportedType = errors.New("rlp: unsupported type")

	// ErrNegativeBigInt is returned for negative *big.Int values, which have
	// no RLP representation.
	ErrNegativeBigInt = errors.New("rlp: cannot encode negative big.Int")
)

// RLP grammar offsets.
const (
	emptyItem   = 0x80 // also the short-string tag base
	longString  = 0xb7
	shortList   = 0xc0
	longList    = 0xf7
	maxShortLen = 55
)

var bigIntType = reflect.TypeOf(big.Int{})

// Encode writes the RLP encoding of val to w.
func Encode(w io.Writer, val interface{}) error {
	out, err := EncodeToBytes(val)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// EncodeToBytes returns the RLP encoding of val. It handles unsigned
// integers, booleans, *big.Int, strings, byte slices and byte arrays, and
// encodes other slices, arrays and structs (exported fields in declaration
// order) as lists. Nil pointers encode as the empty string.
func EncodeToBytes(val interface{}) ([]byte, error) {
	return appendValue(make([]byte, 0, 64), reflect.ValueOf(val))
}

// appendValue appends the encoding of v to dst. All shapes funnel through
// here so nested lists reuse the same buffer.
func appendValue(dst []byte, v reflect.Value) ([]byte, error) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return append(dst, emptyItem), nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		// reflect.ValueOf(nil); treat like a nil pointer.
		return append(dst, emptyItem), nil
	}

	if v.Type() == bigIntType {
		i := v.Interface().(big.Int)
		if i.Sign() < 0 {
			return nil, ErrNegativeBigInt
		}
		if i.Sign() == 0 {
			return append(dst, emptyItem), nil
		}
		return appendString(dst, i.Bytes()), nil
	}

	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return appendUint(dst, v.Uint()), nil

	case reflect.Bool:
		if v.Bool() {
			return append(dst, 0x01), nil
		}
		return append(dst, emptyItem), nil

	case reflect.String:
		return appendString(dst, []byte(v.String())), nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return appendString(dst, v.Bytes()), nil
		}
		return appendElems(dst, v)

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			// Byte arrays may be unaddressable; copy through a slice.
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return appendString(dst, b), nil
		}
		return appendElems(dst, v)

	case reflect.Struct:
		return appendFields(dst, v)

	default:
		return nil, ErrUnsupportedType
	}
}

func appendUint(dst []byte, u uint64) []byte {
	switch {
	case u == 0:
		return append(dst, emptyItem)
	case u < 0x80:
		return append(dst, byte(u))
	default:
		n := beLen(u)
		dst = append(dst, emptyItem+byte(n))
		return appendBE(dst, u, n)
	}
}

// appendString appends a byte-string item: single bytes below 0x80 stand
// for themselves, everything else gets a length header.
func appendString(dst, b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return append(dst, b[0])
	}
	if len(b) <= maxShortLen {
		dst = append(dst, emptyItem+byte(len(b)))
		return append(dst, b...)
	}
	n := beLen(uint64(len(b)))
	dst = append(dst, longString+byte(n))
	dst = appendBE(dst, uint64(len(b)), n)
	return append(dst, b...)
}

// appendElems encodes the elements of a slice or array as a list.
func appendElems(dst []byte, v reflect.Value) ([]byte, error) {
	mark := len(dst)
	for i := 0; i < v.Len(); i++ {
		var err error
		if dst, err = appendValue(dst, v.Index(i)); err != nil {
			return nil, err
		}
	}
	return closeList(dst, mark), nil
}

// appendFields encodes the exported fields of a struct, in declaration
// order, as a list. This is the path that builds the authorization tuple
// [chain_id, address, nonce].
func appendFields(dst []byte, v reflect.Value) ([]byte, error) {
	mark := len(dst)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		var err error
		if dst, err = appendValue(dst, v.Field(i)); err != nil {
			return nil, err
		}
	}
	return closeList(dst, mark), nil
}

// closeList wraps the payload appended after mark in a list header. The
// payload is shifted right to open a gap; copy has memmove semantics, so
// the overlapping move is safe.
func closeList(dst []byte, mark int) []byte {
	size := len(dst) - mark
	if size <= maxShortLen {
		dst = append(dst, 0)
		copy(dst[mark+1:], dst[mark:mark+size])
		dst[mark] = shortList + byte(size)
		return dst
	}
	n := beLen(uint64(size))
	dst = append(dst, make([]byte, 1+n)...)
	copy(dst[mark+1+n:], dst[mark:mark+size])
	dst[mark] = longList + byte(n)
	putBE(dst[mark+1:mark+1+n], uint64(size))
	return dst
}

// beLen returns the minimal big-endian byte length of u, at least 1.
func beLen(u uint64) int {
	if u == 0 {
		return 1
	}
	return (bits.Len64(u) + 7) / 8
}

// appendBE appends the low n bytes of u in big-endian order.
func appendBE(dst []byte, u uint64, n int) []byte {
	for s := 8 * (n - 1); s >= 0; s -= 8 {
		dst = append(dst, byte(u>>s))
	}
	return dst
}

// putBE fills b with u in big-endian order.
func putBE(b []byte, u uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
}
