package main

import (
	"encoding/hex"
	"flag"
	"fmt"

	"github.com/eth7702/eth7702/core/types"
)

// flagSet wraps flag.FlagSet with flag.Value implementations for the
// hex-encoded inputs the subcommands take. Parsing is strict: addresses
// must be exactly 20 bytes and words exactly 32, so a truncated paste
// fails at the flag instead of deriving a wrong value.
type flagSet struct {
	*flag.FlagSet
}

// newFlagSet creates a flagSet with ContinueOnError behavior.
func newFlagSet(name string) *flagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &flagSet{FlagSet: fs}
}

// AddressVar defines a 20-byte hex address flag.
func (fs *flagSet) AddressVar(p *types.Address, name, usage string) {
	fs.FlagSet.Var(&addressValue{p: p}, name, usage)
}

// HashVar defines a 32-byte hex word flag.
func (fs *flagSet) HashVar(p *types.Hash, name, usage string) {
	fs.FlagSet.Var(&hashValue{p: p}, name, usage)
}

// BytesVar defines a variable-length hex flag. An empty body ("0x") is
// accepted and yields empty bytes.
func (fs *flagSet) BytesVar(p *[]byte, name, usage string) {
	fs.FlagSet.Var(&bytesValue{p: p}, name, usage)
}

// provided reports whether the named flag was set on the command line.
// The flag package has no notion of required flags, so subcommands check
// this after Parse.
func (fs *flagSet) provided(name string) bool {
	found := false
	fs.FlagSet.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// addressValue implements flag.Value for 20-byte addresses.
type addressValue struct {
	p *types.Address
}

func (v *addressValue) String() string {
	if v.p == nil {
		return ""
	}
	return v.p.Hex()
}

func (v *addressValue) Set(s string) error {
	b, err := decodeHex(s)
	if err != nil {
		return err
	}
	if len(b) != types.AddressLength {
		return fmt.Errorf("address must be %d bytes, got %d", types.AddressLength, len(b))
	}
	*v.p = types.BytesToAddress(b)
	return nil
}

// hashValue implements flag.Value for 32-byte words.
type hashValue struct {
	p *types.Hash
}

func (v *hashValue) String() string {
	if v.p == nil {
		return ""
	}
	return v.p.Hex()
}

func (v *hashValue) Set(s string) error {
	b, err := decodeHex(s)
	if err != nil {
		return err
	}
	if len(b) != types.HashLength {
		return fmt.Errorf("word must be %d bytes, got %d", types.HashLength, len(b))
	}
	*v.p = types.BytesToHash(b)
	return nil
}

// bytesValue implements flag.Value for variable-length hex blobs.
type bytesValue struct {
	p *[]byte
}

func (v *bytesValue) String() string {
	if v.p == nil {
		return ""
	}
	return fmt.Sprintf("0x%x", *v.p)
}

func (v *bytesValue) Set(s string) error {
	b, err := decodeHex(s)
	if err != nil {
		return err
	}
	*v.p = b
	return nil
}

// decodeHex decodes a hex string with optional 0x prefix, requiring an
// even number of digits.
func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q", s)
	}
	return b, nil
}
