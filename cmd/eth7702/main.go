// Command eth7702 is an offline inspector and signer for the delegated
// account engine. It derives the constants an integrator needs when wiring
// an EIP-7702 account (storage slots, signing domains, deployment
// addresses) and signs or verifies the 32-byte digests the engine checks.
//
// Usage:
//
//	eth7702 <command> [flags]
//
// Commands:
//
//	slot      derive a namespaced configuration slot
//	domain    compute an account's EIP-712 domain separator
//	create2   predict a counterfactual deployment address
//	sign      sign a 32-byte digest with a private key
//	verify    recover the signer of a digest
//	version   print version and exit
//
// Every command works offline; nothing here talks to a node.
package main

import (
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/eth7702/eth7702/account"
	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/crypto"
	"github.com/eth7702/eth7702/geth"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run dispatches to a subcommand and returns an exit code. It accepts the
// CLI arguments (without the program name) and the destination for results
// so it can be tested in isolation. Exit codes: 0 success, 1 failed
// computation or verification, 2 usage error.
func run(args []string, out io.Writer) int {
	if len(args) == 0 {
		usage(os.Stderr)
		return 2
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "slot":
		return cmdSlot(rest, out)
	case "domain":
		return cmdDomain(rest, out)
	case "create2":
		return cmdCreate2(rest, out)
	case "sign":
		return cmdSign(rest, out)
	case "verify":
		return cmdVerify(rest, out)
	case "version":
		fmt.Fprintf(out, "eth7702 %s (commit %s)\n", version, commit)
		return 0
	case "help", "-h", "--help":
		usage(out)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cmd)
		usage(os.Stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `eth7702 %s

Usage:

  eth7702 <command> [flags]

Commands:

  slot      derive a namespaced configuration slot
  domain    compute an account's EIP-712 domain separator
  create2   predict a counterfactual deployment address
  sign      sign a 32-byte digest with a private key
  verify    recover the signer of a digest
  version   print version and exit

Run "eth7702 <command> -h" for the flags of a command.
`, version)
}

// cmdSlot prints the configuration slot for a storage namespace together
// with the intermediate keccak, so the derivation can be checked against
// other tooling.
func cmdSlot(args []string, out io.Writer) int {
	fs := newFlagSet("eth7702 slot")
	ns := fs.String("namespace", account.ConfigNamespace, "storage namespace to derive")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *ns == "" {
		fmt.Fprintln(os.Stderr, "Error: namespace must not be empty")
		return 2
	}
	fmt.Fprintf(out, "namespace: %s\n", *ns)
	fmt.Fprintf(out, "keccak:    %s\n", crypto.Keccak256Hash([]byte(*ns)).Hex())
	fmt.Fprintf(out, "slot:      %s\n", account.NamespacedSlot(*ns).Hex())
	return 0
}

// cmdDomain prints the EIP-712 domain separator a delegated account uses
// for nested signature verification.
func cmdDomain(args []string, out io.Writer) int {
	fs := newFlagSet("eth7702 domain")
	var acct types.Address
	fs.AddressVar(&acct, "account", "delegated account address (the verifying contract)")
	chainID := fs.Uint64("chainid", 1, "chain id the account lives on")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !fs.provided("account") {
		fmt.Fprintln(os.Stderr, "Error: -account is required")
		return 2
	}
	domain := crypto.TypedDataDomain{
		Name:              account.DomainName,
		Version:           account.DomainVersion,
		ChainID:           new(big.Int).SetUint64(*chainID),
		VerifyingContract: acct,
	}
	fmt.Fprintln(out, domain.Separator().Hex())
	return 0
}

// cmdCreate2 predicts the address a deployment will land on before any
// transaction is sent.
func cmdCreate2(args []string, out io.Writer) int {
	fs := newFlagSet("eth7702 create2")
	var (
		deployer types.Address
		salt     types.Hash
		initCode []byte
	)
	fs.AddressVar(&deployer, "deployer", "address performing the CREATE2")
	fs.HashVar(&salt, "salt", "32-byte salt")
	fs.BytesVar(&initCode, "initcode", "hex-encoded init code")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	for _, req := range []string{"deployer", "salt", "initcode"} {
		if !fs.provided(req) {
			fmt.Fprintf(os.Stderr, "Error: -%s is required\n", req)
			return 2
		}
	}
	fmt.Fprintln(out, crypto.CreateAddress2(deployer, salt, crypto.Keccak256(initCode)).Hex())
	return 0
}

// cmdSign signs a 32-byte digest and prints the signer with the 65-byte
// [R || S || V] signature the engine verifies.
func cmdSign(args []string, out io.Writer) int {
	fs := newFlagSet("eth7702 sign")
	key := fs.String("key", "", "hex-encoded secp256k1 private key")
	var digest types.Hash
	fs.HashVar(&digest, "digest", "32-byte digest to sign")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	for _, req := range []string{"key", "digest"} {
		if !fs.provided(req) {
			fmt.Fprintf(os.Stderr, "Error: -%s is required\n", req)
			return 2
		}
	}
	signer, err := geth.NewSigner(*key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	sig, err := signer.SignHash(digest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "signer:    %s\n", signer.Address().Hex())
	fmt.Fprintf(out, "signature: 0x%x\n", sig)
	return 0
}

// cmdVerify recovers the signer of a digest. With -signer it also checks
// the recovered address and fails the exit code on mismatch.
func cmdVerify(args []string, out io.Writer) int {
	fs := newFlagSet("eth7702 verify")
	var (
		digest types.Hash
		sig    []byte
		want   types.Address
	)
	fs.HashVar(&digest, "digest", "32-byte digest that was signed")
	fs.BytesVar(&sig, "sig", "65-byte [R || S || V] signature")
	fs.AddressVar(&want, "signer", "expected signer (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	for _, req := range []string{"digest", "sig"} {
		if !fs.provided(req) {
			fmt.Fprintf(os.Stderr, "Error: -%s is required\n", req)
			return 2
		}
	}
	recovered, err := crypto.RecoverAddress(digest.Bytes(), sig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "signer: %s\n", recovered.Hex())
	if fs.provided("signer") && recovered != want {
		fmt.Fprintf(os.Stderr, "Error: signature is from %s, not %s\n", recovered.Hex(), want.Hex())
		return 1
	}
	return 0
}
