// Package e2e_test exercises the full delegated-account pipeline: an EOA
// signs an EIP-7702 authorization, the delegation layer installs the
// designator, the account bootstraps its trusted dispatcher, and operations
// flow through validation, prefund settlement and execution. Operation
// digests are signed through the go-ethereum adapter to prove the wire
// format matches across implementations.
package e2e_test

import (
	"crypto/ecdsa"
	"math/big"
	"strings"
	"testing"

	"github.com/eth7702/eth7702/account"
	"github.com/eth7702/eth7702/core/state"
	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/core/vm"
	"github.com/eth7702/eth7702/crypto"
	"github.com/eth7702/eth7702/delegation"
	"github.com/eth7702/eth7702/dispatch"
	"github.com/eth7702/eth7702/geth"
)

const userKeyHex = "7702770277027702770277027702770277027702770277027702770277027702"

var (
	chainID = big.NewInt(1)

	// implAddr stands in for the address the reference delegate bytecode
	// is published at; the designator points here.
	implAddr    = types.BytesToAddress([]byte{0x77, 0x02})
	epAddr      = types.BytesToAddress([]byte{0xd1})
	beneficiary = types.BytesToAddress([]byte{0xbe})
	merchant    = types.BytesToAddress([]byte{0x7a})
)

const startBalance = 1_000_000

// pipeline is a fully bootstrapped delegated account: designator installed,
// entry point configured, account registered with the dispatcher.
type pipeline struct {
	st     *state.MemoryStateDB
	env    *vm.CallEnv
	ep     *dispatch.EntryPoint
	del    *account.Delegate
	signer *geth.Signer
	user   types.Address
	key    *ecdsa.PrivateKey
}

// setupPipeline walks the real onboarding sequence instead of constructing
// the end state directly, so every test in this package re-proves the
// delegation and bootstrap steps.
func setupPipeline(t *testing.T) *pipeline {
	t.Helper()

	key, err := crypto.HexToECDSA(userKeyHex)
	if err != nil {
		t.Fatalf("HexToECDSA: %v", err)
	}
	user := crypto.PubkeyToAddress(key.PublicKey)

	// The same key parsed by go-ethereum must control the same address.
	signer, err := geth.NewSigner(userKeyHex)
	if err != nil {
		t.Fatalf("geth.NewSigner: %v", err)
	}
	if signer.Address() != user {
		t.Fatalf("address mismatch across stacks: geth %x, local %x", signer.Address(), user)
	}

	st := state.NewMemoryStateDB()
	st.AddBalance(user, big.NewInt(startBalance))

	// The user authorizes the delegate implementation for their address.
	auth, err := delegation.Sign(key, chainID, implAddr, 0)
	if err != nil {
		t.Fatalf("delegation.Sign: %v", err)
	}
	if n := delegation.Apply(st, []delegation.Authorization{*auth}, chainID); n != 1 {
		t.Fatalf("Apply installed %d authorizations, want 1", n)
	}
	if target, ok := delegation.Delegated(st, user); !ok || target != implAddr {
		t.Fatalf("Delegated = %x, %v; want %x, true", target, ok, implAddr)
	}

	// With the designator in place the delegate code runs at the user's
	// own address. Bootstrap it to trust the dispatcher.
	env := vm.NewCallEnv(st)
	del := account.New(account.Config{Self: user, ChainID: chainID}, st, env)
	if err := del.Initialize(user, epAddr); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	ep := dispatch.NewEntryPoint(dispatch.Config{Address: epAddr, ChainID: chainID}, st)
	ep.Register(user, del)

	return &pipeline{st: st, env: env, ep: ep, del: del, signer: signer, user: user, key: key}
}

// signedOp hashes op against the dispatcher and signs it through the
// go-ethereum adapter.
func (p *pipeline) signedOp(t *testing.T, op *dispatch.Operation) *dispatch.Operation {
	t.Helper()
	sig, err := p.signer.SignHash(p.ep.OperationHash(op))
	if err != nil {
		t.Fatalf("SignHash: %v", err)
	}
	op.Signature = sig
	return op
}

func TestLifecycle_ExecuteThroughDispatcher(t *testing.T) {
	p := setupPipeline(t)

	// The authorization consumed nonce 0, so the first operation uses 1.
	op := p.signedOp(t, &dispatch.Operation{
		Sender:  p.user,
		Nonce:   1,
		Target:  merchant,
		Value:   big.NewInt(25_000),
		MaxCost: big.NewInt(4_000),
	})

	receipts, err := p.ep.HandleOps([]*dispatch.Operation{op}, beneficiary)
	if err != nil {
		t.Fatalf("HandleOps: %v", err)
	}
	if len(receipts) != 1 {
		t.Fatalf("got %d receipts, want 1", len(receipts))
	}
	r := receipts[0]
	if !r.Success {
		t.Fatalf("operation failed: %s", r.Reason)
	}
	if r.Cost.Cmp(big.NewInt(4_000)) != 0 {
		t.Errorf("receipt cost = %s, want 4000", r.Cost)
	}

	// Money moved exactly once each way: value to the merchant, the
	// prefund through the dispatcher to the beneficiary.
	if bal := p.st.GetBalance(merchant); bal.Cmp(big.NewInt(25_000)) != 0 {
		t.Errorf("merchant balance = %s, want 25000", bal)
	}
	if bal := p.st.GetBalance(beneficiary); bal.Cmp(big.NewInt(4_000)) != 0 {
		t.Errorf("beneficiary balance = %s, want 4000", bal)
	}
	wantUser := big.NewInt(startBalance - 25_000 - 4_000)
	if bal := p.st.GetBalance(p.user); bal.Cmp(wantUser) != 0 {
		t.Errorf("user balance = %s, want %s", bal, wantUser)
	}
	if bal := p.st.GetBalance(epAddr); bal.Sign() != 0 {
		t.Errorf("dispatcher retained %s wei after settlement", bal)
	}
	if nonce := p.st.GetNonce(p.user); nonce != 2 {
		t.Errorf("user nonce = %d, want 2", nonce)
	}

	// The bootstrap event is on the log.
	found := false
	for _, l := range p.st.Logs() {
		if len(l.Topics) > 0 && l.Topics[0] == account.EntryPointInitializedTopic {
			found = true
		}
	}
	if !found {
		t.Error("EntryPointInitialized event missing from logs")
	}
}

func TestLifecycle_ReplayRejected(t *testing.T) {
	p := setupPipeline(t)

	op := p.signedOp(t, &dispatch.Operation{
		Sender:  p.user,
		Nonce:   1,
		Target:  merchant,
		Value:   big.NewInt(1_000),
		MaxCost: big.NewInt(500),
	})

	receipts, err := p.ep.HandleOps([]*dispatch.Operation{op}, beneficiary)
	if err != nil || !receipts[0].Success {
		t.Fatalf("first submission failed: %v %v", err, receipts[0].Reason)
	}

	// Same signed operation again: the nonce is consumed.
	receipts, err = p.ep.HandleOps([]*dispatch.Operation{op}, beneficiary)
	if err != nil {
		t.Fatalf("HandleOps: %v", err)
	}
	if receipts[0].Success {
		t.Fatal("replayed operation succeeded")
	}
	if !strings.Contains(receipts[0].Reason, "nonce") {
		t.Errorf("reason = %q, want nonce failure", receipts[0].Reason)
	}

	// The replay charged nothing.
	if bal := p.st.GetBalance(merchant); bal.Cmp(big.NewInt(1_000)) != 0 {
		t.Errorf("merchant balance = %s, want 1000", bal)
	}
	if bal := p.st.GetBalance(beneficiary); bal.Cmp(big.NewInt(500)) != 0 {
		t.Errorf("beneficiary balance = %s, want 500", bal)
	}
}

func TestLifecycle_DeployThroughDispatcher(t *testing.T) {
	p := setupPipeline(t)

	initCode := []byte{0x60, 0x01, 0x60, 0x00, 0xf3}
	salt := types.BytesToHash([]byte{0x42})
	predicted := crypto.CreateAddress2(p.user, salt, crypto.Keccak256(initCode))

	op := p.signedOp(t, &dispatch.Operation{
		Sender:   p.user,
		Nonce:    1,
		InitCode: initCode,
		Salt:     salt,
		MaxCost:  big.NewInt(3_000),
	})

	receipts, err := p.ep.HandleOps([]*dispatch.Operation{op}, beneficiary)
	if err != nil {
		t.Fatalf("HandleOps: %v", err)
	}
	r := receipts[0]
	if !r.Success {
		t.Fatalf("deployment failed: %s", r.Reason)
	}
	if r.Deployed != predicted {
		t.Errorf("deployed at %x, predicted %x", r.Deployed, predicted)
	}
	if code := p.st.GetCode(predicted); string(code) != string(initCode) {
		t.Errorf("deployed code = %x, want %x", code, initCode)
	}

	// Deployment consumes two nonces: the dispatcher's and the create's.
	if nonce := p.st.GetNonce(p.user); nonce != 3 {
		t.Errorf("user nonce = %d, want 3", nonce)
	}

	found := false
	for _, l := range p.st.Logs() {
		if len(l.Topics) > 1 && l.Topics[0] == account.ContractDeployedTopic {
			if l.Topics[1] != predicted.Hash() {
				t.Errorf("deploy event address = %x, want %x", l.Topics[1], predicted.Hash())
			}
			found = true
		}
	}
	if !found {
		t.Error("ContractDeployed event missing from logs")
	}
}

// A nested personal-sign signature produced entirely through the
// go-ethereum adapter must satisfy the account's ERC-1271 check.
func TestLifecycle_NestedSignatureAcrossStacks(t *testing.T) {
	p := setupPipeline(t)

	appHash := crypto.Keccak256Hash([]byte("invoice #42: 18 wei"))
	structHash := crypto.Keccak256Hash(
		crypto.Keccak256([]byte("PersonalSign(bytes32 prefixed)")),
		appHash.Bytes(),
	)
	digest := crypto.TypedDataDigest(p.del.DomainSeparator(), structHash)

	sig, err := p.signer.SignHash(digest)
	if err != nil {
		t.Fatalf("SignHash: %v", err)
	}

	if got := p.del.IsValidSignature(appHash, sig); got != account.MagicValue {
		t.Fatalf("IsValidSignature = %x, want magic value", got)
	}

	// Any corruption must flip the answer to the failure value, silently.
	sig[10] ^= 0x01
	if got := p.del.IsValidSignature(appHash, sig); got != account.FailureValue {
		t.Fatalf("tampered signature returned %x", got)
	}
}

func TestLifecycle_RevocationRestoresEOA(t *testing.T) {
	p := setupPipeline(t)

	// Use the account once so the revocation nonce moves past the
	// operation nonce, as it would on a live chain.
	op := p.signedOp(t, &dispatch.Operation{
		Sender:  p.user,
		Nonce:   1,
		Target:  merchant,
		Value:   big.NewInt(10),
		MaxCost: big.NewInt(100),
	})
	receipts, err := p.ep.HandleOps([]*dispatch.Operation{op}, beneficiary)
	if err != nil || !receipts[0].Success {
		t.Fatalf("operation failed: %v %v", err, receipts[0].Reason)
	}

	// A zero-address authorization clears the delegation.
	revoke, err := delegation.Sign(p.key, chainID, types.Address{}, 2)
	if err != nil {
		t.Fatalf("delegation.Sign: %v", err)
	}
	if n := delegation.Apply(p.st, []delegation.Authorization{*revoke}, chainID); n != 1 {
		t.Fatalf("Apply processed %d authorizations, want 1", n)
	}

	if _, ok := delegation.Delegated(p.st, p.user); ok {
		t.Fatal("delegation still present after revocation")
	}
	if code := p.st.GetCode(p.user); len(code) != 0 {
		t.Fatalf("account still has code after revocation: %x", code)
	}
	if nonce := p.st.GetNonce(p.user); nonce != 3 {
		t.Errorf("user nonce = %d, want 3", nonce)
	}
}

// The designator bytes installed by the delegation layer are exactly what
// the account and dispatcher assume: prefix plus implementation address.
func TestLifecycle_DesignatorShape(t *testing.T) {
	p := setupPipeline(t)

	code := p.st.GetCode(p.user)
	want := types.AddressToDelegation(implAddr)
	if string(code) != string(want) {
		t.Fatalf("designator = %x, want %x", code, want)
	}
	if !types.HasDelegationPrefix(code) {
		t.Fatal("designator missing prefix")
	}
}
