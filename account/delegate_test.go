package account

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/eth7702/eth7702/core/state"
	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/core/vm"
	"github.com/eth7702/eth7702/crypto"
)

// Private key from the EIP-155 example transaction; its address doubles as
// the account identity, the way EIP-7702 runs delegate code at the
// authority's own address.
const authorityKeyHex = "4646464646464646464646464646464646464646464646464646464646464646"

type testAccount struct {
	key        *ecdsa.PrivateKey
	delegate   *Delegate
	state      *state.MemoryStateDB
	env        *vm.CallEnv
	entryPoint types.Address
}

func newTestAccount(t *testing.T) *testAccount {
	t.Helper()
	key, err := crypto.HexToECDSA(authorityKeyHex)
	if err != nil {
		t.Fatalf("HexToECDSA: %v", err)
	}
	st := state.NewMemoryStateDB()
	env := vm.NewCallEnv(st)
	self := crypto.PubkeyToAddress(key.PublicKey)
	return &testAccount{
		key:        key,
		delegate:   New(Config{Self: self, ChainID: big.NewInt(1)}, st, env),
		state:      st,
		env:        env,
		entryPoint: types.BytesToAddress([]byte{0xe9}),
	}
}

func (a *testAccount) initialize(t *testing.T) {
	t.Helper()
	if err := a.delegate.Initialize(a.delegate.Self(), a.entryPoint); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func (a *testAccount) sign(t *testing.T, hash types.Hash) []byte {
	t.Helper()
	sig, err := crypto.Sign(hash.Bytes(), a.key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return sig
}

// --- Authority and bootstrap tests ---

func TestIsAuthority(t *testing.T) {
	a := newTestAccount(t)
	if !a.delegate.IsAuthority(a.delegate.Self()) {
		t.Error("self should be the authority")
	}
	if a.delegate.IsAuthority(types.BytesToAddress([]byte{0x01})) {
		t.Error("arbitrary address should not be the authority")
	}
}

func TestInitializeByOutsiderFails(t *testing.T) {
	a := newTestAccount(t)
	attacker := types.BytesToAddress([]byte{0xba, 0xd1})

	err := a.delegate.Initialize(attacker, attacker)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("err = %v, want ErrNotAuthorized", err)
	}
	if ep := a.delegate.EntryPoint(); !ep.IsZero() {
		t.Errorf("entry point = %s after failed bootstrap, want zero", ep)
	}
}

func TestInitializeExactlyOnce(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)

	other := types.BytesToAddress([]byte{0x77})
	err := a.delegate.Initialize(a.delegate.Self(), other)
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Initialize err = %v, want ErrAlreadyInitialized", err)
	}
	if ep := a.delegate.EntryPoint(); ep != a.entryPoint {
		t.Errorf("entry point = %s, want the first value %s", ep, a.entryPoint)
	}
}

func TestInitializeEmitsLog(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)

	logs := a.state.Logs()
	if len(logs) != 1 {
		t.Fatalf("log count = %d, want 1", len(logs))
	}
	if logs[0].Address != a.delegate.Self() {
		t.Errorf("log address = %s, want self", logs[0].Address)
	}
	if len(logs[0].Topics) != 2 || logs[0].Topics[0] != EntryPointInitializedTopic {
		t.Fatalf("unexpected topics %v", logs[0].Topics)
	}
	if logs[0].Topics[1] != a.entryPoint.Hash() {
		t.Errorf("topic entry point = %s, want %s", logs[0].Topics[1], a.entryPoint.Hash())
	}
}

func TestInitializeWithZeroLeavesUnconfigured(t *testing.T) {
	a := newTestAccount(t)

	// Setting the zero address writes nothing distinguishable from the
	// unconfigured state, so the account stays bootstrappable.
	if err := a.delegate.Initialize(a.delegate.Self(), types.Address{}); err != nil {
		t.Fatalf("Initialize(zero): %v", err)
	}
	if ep := a.delegate.EntryPoint(); !ep.IsZero() {
		t.Fatalf("entry point = %s, want zero", ep)
	}
	a.initialize(t)
	if ep := a.delegate.EntryPoint(); ep != a.entryPoint {
		t.Errorf("entry point = %s, want %s", ep, a.entryPoint)
	}
}

// --- Mode A validation tests ---

func TestValidateOperationRequiresEntryPoint(t *testing.T) {
	a := newTestAccount(t)
	opHash := crypto.Keccak256Hash([]byte("op"))

	// Unconfigured: nobody passes, not even the authority.
	if _, err := a.delegate.ValidateOperation(a.delegate.Self(), opHash, nil, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("unconfigured err = %v, want ErrNotAuthorized", err)
	}

	a.initialize(t)
	if _, err := a.delegate.ValidateOperation(a.delegate.Self(), opHash, nil, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("self caller err = %v, want ErrNotAuthorized", err)
	}
	if _, err := a.delegate.ValidateOperation(types.BytesToAddress([]byte{0x01}), opHash, nil, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("outsider err = %v, want ErrNotAuthorized", err)
	}
}

func TestValidateOperationSignature(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)
	opHash := crypto.Keccak256Hash([]byte("123"))
	sig := a.sign(t, opHash)

	res, err := a.delegate.ValidateOperation(a.entryPoint, opHash, sig, nil)
	if err != nil {
		t.Fatalf("ValidateOperation: %v", err)
	}
	if res != ValidationSuccess {
		t.Fatalf("result = %d, want ValidationSuccess", res)
	}

	// One flipped bit in the S component must flip the verdict, not fault.
	flipped := append([]byte{}, sig...)
	flipped[40] ^= 0x01
	res, err = a.delegate.ValidateOperation(a.entryPoint, opHash, flipped, nil)
	if err != nil {
		t.Fatalf("ValidateOperation(flipped): %v", err)
	}
	if res != ValidationFailed {
		t.Errorf("result = %d, want ValidationFailed", res)
	}
}

func TestValidateOperationWrongKey(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)
	opHash := crypto.Keccak256Hash([]byte("op"))

	stranger, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sig, err := crypto.Sign(opHash.Bytes(), stranger)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	res, err := a.delegate.ValidateOperation(a.entryPoint, opHash, sig, nil)
	if err != nil {
		t.Fatalf("ValidateOperation: %v", err)
	}
	if res != ValidationFailed {
		t.Errorf("result = %d, want ValidationFailed", res)
	}
}

func TestValidateOperationGarbageNeverFaults(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)
	opHash := crypto.Keccak256Hash([]byte("op"))

	for _, n := range []int{0, 1, 32, 64, 66, 129} {
		sig := bytes.Repeat([]byte{0xaa}, n)
		res, err := a.delegate.ValidateOperation(a.entryPoint, opHash, sig, nil)
		if err != nil {
			t.Fatalf("len %d: unexpected error %v", n, err)
		}
		if res != ValidationFailed {
			t.Errorf("len %d: result = %d, want ValidationFailed", n, res)
		}
	}
}

func TestValidateOperationPrefund(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)
	self := a.delegate.Self()
	a.state.AddBalance(self, big.NewInt(1000))
	opHash := crypto.Keccak256Hash([]byte("op"))
	sig := a.sign(t, opHash)

	res, err := a.delegate.ValidateOperation(a.entryPoint, opHash, sig, big.NewInt(300))
	if err != nil {
		t.Fatalf("ValidateOperation: %v", err)
	}
	if res != ValidationSuccess {
		t.Fatalf("result = %d, want ValidationSuccess", res)
	}
	if bal := a.state.GetBalance(self); bal.Cmp(big.NewInt(700)) != 0 {
		t.Errorf("account balance = %s, want 700", bal)
	}
	if bal := a.state.GetBalance(a.entryPoint); bal.Cmp(big.NewInt(300)) != 0 {
		t.Errorf("entry point balance = %s, want 300", bal)
	}
}

func TestValidateOperationZeroPrefundMovesNothing(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)
	self := a.delegate.Self()
	a.state.AddBalance(self, big.NewInt(1000))
	opHash := crypto.Keccak256Hash([]byte("op"))

	for _, funds := range []*big.Int{nil, new(big.Int)} {
		if _, err := a.delegate.ValidateOperation(a.entryPoint, opHash, a.sign(t, opHash), funds); err != nil {
			t.Fatalf("ValidateOperation: %v", err)
		}
		if bal := a.state.GetBalance(self); bal.Cmp(big.NewInt(1000)) != 0 {
			t.Errorf("account balance = %s, want 1000", bal)
		}
		if bal := a.state.GetBalance(a.entryPoint); bal.Sign() != 0 {
			t.Errorf("entry point balance = %s, want 0", bal)
		}
	}
}

func TestValidateOperationPrefundShortfallIgnored(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)
	self := a.delegate.Self()
	a.state.AddBalance(self, big.NewInt(10))
	opHash := crypto.Keccak256Hash([]byte("op"))

	// The push fails for lack of balance; validation does not care, the
	// dispatcher's post-accounting is the layer that rejects the op.
	res, err := a.delegate.ValidateOperation(a.entryPoint, opHash, a.sign(t, opHash), big.NewInt(500))
	if err != nil {
		t.Fatalf("ValidateOperation: %v", err)
	}
	if res != ValidationSuccess {
		t.Errorf("result = %d, want ValidationSuccess", res)
	}
	if bal := a.state.GetBalance(self); bal.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("account balance = %s, want untouched 10", bal)
	}
	if bal := a.state.GetBalance(a.entryPoint); bal.Sign() != 0 {
		t.Errorf("entry point balance = %s, want 0", bal)
	}
}

// --- Execution gateway tests ---

func TestExecuteACL(t *testing.T) {
	a := newTestAccount(t)
	target := types.BytesToAddress([]byte{0x42})

	// Unconfigured: the authority can act, outsiders cannot.
	if err := a.delegate.Execute(types.BytesToAddress([]byte{0x01}), target, nil, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("outsider err = %v, want ErrNotAuthorized", err)
	}
	if err := a.delegate.Execute(a.delegate.Self(), target, nil, nil); err != nil {
		t.Fatalf("self call on unconfigured account: %v", err)
	}

	a.initialize(t)
	if err := a.delegate.Execute(a.entryPoint, target, nil, nil); err != nil {
		t.Fatalf("entry point call: %v", err)
	}
	if err := a.delegate.Execute(types.BytesToAddress([]byte{0x01}), target, nil, nil); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("outsider err = %v, want ErrNotAuthorized", err)
	}
}

func TestExecuteForwardsValueAndPayload(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)
	self := a.delegate.Self()
	a.state.AddBalance(self, big.NewInt(100))

	target := types.BytesToAddress([]byte{0x42})
	payload := []byte{0x01, 0x02, 0x03}

	var gotCaller types.Address
	var gotValue *big.Int
	var gotInput []byte
	a.env.RegisterHandler(target, func(_ vm.Environment, caller types.Address, value *big.Int, input []byte) ([]byte, error) {
		gotCaller, gotValue, gotInput = caller, value, input
		return []byte{0xff}, nil
	})

	if err := a.delegate.Execute(a.entryPoint, target, big.NewInt(25), payload); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotCaller != self {
		t.Errorf("target saw caller %s, want the account itself", gotCaller)
	}
	if gotValue.Cmp(big.NewInt(25)) != 0 {
		t.Errorf("target saw value %s, want 25", gotValue)
	}
	if !bytes.Equal(gotInput, payload) {
		t.Errorf("target saw input %x, want %x", gotInput, payload)
	}
	if bal := a.state.GetBalance(target); bal.Cmp(big.NewInt(25)) != 0 {
		t.Errorf("target balance = %s, want 25", bal)
	}
	if bal := a.state.GetBalance(self); bal.Cmp(big.NewInt(75)) != 0 {
		t.Errorf("account balance = %s, want 75", bal)
	}
}

func TestExecuteRevertPropagatesPayloadVerbatim(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)
	self := a.delegate.Self()
	a.state.AddBalance(self, big.NewInt(100))

	target := types.BytesToAddress([]byte{0x42})
	payload := []byte{0x08, 0xc3, 0x79, 0xa0, 0x01, 0x02}
	a.env.RegisterHandler(target, func(_ vm.Environment, _ types.Address, _ *big.Int, _ []byte) ([]byte, error) {
		return nil, vm.Revert(payload)
	})

	err := a.delegate.Execute(a.entryPoint, target, big.NewInt(10), nil)
	var rev *vm.RevertError
	if !errors.As(err, &rev) {
		t.Fatalf("err = %v, want *vm.RevertError", err)
	}
	if !bytes.Equal(rev.Reason, payload) {
		t.Errorf("revert payload = %x, want %x", rev.Reason, payload)
	}
	// Atomicity: the failed call left no partial effects.
	if bal := a.state.GetBalance(self); bal.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("account balance = %s, want 100", bal)
	}
}

// --- Deterministic deployment tests ---

func TestDeployEmptyInitCode(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)

	for _, caller := range []types.Address{a.delegate.Self(), a.entryPoint} {
		if _, err := a.delegate.Deploy(caller, nil, nil, types.Hash{}); !errors.Is(err, ErrEmptyInitCode) {
			t.Errorf("caller %s: err = %v, want ErrEmptyInitCode", caller, err)
		}
	}
}

func TestDeployACL(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)

	_, err := a.delegate.Deploy(types.BytesToAddress([]byte{0x01}), nil, []byte{0x60}, types.Hash{})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("err = %v, want ErrNotAuthorized", err)
	}
}

func TestDeployAddressLaw(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)
	self := a.delegate.Self()

	initCode := []byte{0x60, 0x60, 0x52}
	salt := types.BytesToHash([]byte{0x07})

	addr, err := a.delegate.Deploy(a.entryPoint, nil, initCode, salt)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	// Recompute the published formula from raw hashes.
	preimage := append([]byte{0xff}, self.Bytes()...)
	preimage = append(preimage, salt.Bytes()...)
	preimage = append(preimage, crypto.Keccak256(initCode)...)
	want := types.BytesToAddress(crypto.Keccak256(preimage)[12:])
	if addr != want {
		t.Errorf("deployed at %s, want %s", addr, want)
	}
}

func TestDeployEmitsLog(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)

	addr, err := a.delegate.Deploy(a.delegate.Self(), nil, []byte{0x01}, types.Hash{})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	logs := a.state.Logs()
	last := logs[len(logs)-1]
	if last.Topics[0] != ContractDeployedTopic {
		t.Fatalf("topic = %s, want ContractDeployedTopic", last.Topics[0])
	}
	if last.Topics[1] != addr.Hash() {
		t.Errorf("deployed address topic = %s, want %s", last.Topics[1], addr.Hash())
	}
}

func TestDeployConstructorRevertPropagates(t *testing.T) {
	a := newTestAccount(t)
	a.initialize(t)

	initCode := []byte{0x11, 0x22}
	payload := []byte{0xba, 0xdc, 0x0d, 0xe0}
	a.env.RegisterConstructor(initCode, func(_ vm.Environment, _ types.Address, _ *big.Int, _ []byte) ([]byte, error) {
		return nil, vm.Revert(payload)
	})

	logsBefore := len(a.state.Logs())
	_, err := a.delegate.Deploy(a.entryPoint, nil, initCode, types.Hash{})
	var rev *vm.RevertError
	if !errors.As(err, &rev) {
		t.Fatalf("err = %v, want *vm.RevertError", err)
	}
	if !bytes.Equal(rev.Reason, payload) {
		t.Errorf("revert payload = %x, want %x", rev.Reason, payload)
	}
	if len(a.state.Logs()) != logsBefore {
		t.Error("failed deployment must not emit ContractDeployed")
	}
}
