// Package account implements the delegated smart-account core: the code an
// EOA installs at its own address via an EIP-7702 delegation. It decides,
// for every incoming operation, whether the operation is authentic,
// non-replayable and permitted, and then carries out the permitted action.
//
// The account trusts exactly one signer, its own address (under EIP-7702
// the code runs at the authority's address, so identity and runtime
// address are the same value). Mutable state is a single namespaced
// storage slot holding the trusted entry-point address. Everything else is
// pure computation against the two collaborators: a StateDB and a call
// Environment.
package account

import (
	"errors"
	"math/big"

	"github.com/eth7702/eth7702/core/state"
	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/core/vm"
	"github.com/eth7702/eth7702/crypto"
)

// Access-control and precondition failures. These abort the enclosing
// operation; signature failures never appear here, they surface as
// ValidationFailed or the ERC-1271 failure value instead.
var (
	ErrNotAuthorized      = errors.New("account: caller not authorized")
	ErrAlreadyInitialized = errors.New("account: entry point already set")
	ErrEmptyInitCode      = errors.New("account: empty init code")
)

// Mode A validation results, the ERC-4337 validation-data sentinels.
const (
	ValidationSuccess uint64 = 0
	ValidationFailed  uint64 = 1
)

// EIP-712 domain parameters. Together with the chain id and the account
// address they scope every nested signature to one account instance.
const (
	DomainName    = "ETH7702Account"
	DomainVersion = "1"
)

// Topics of the events the account emits through the state log.
var (
	EntryPointInitializedTopic = crypto.Keccak256Hash([]byte("EntryPointInitialized(address)"))
	ContractDeployedTopic      = crypto.Keccak256Hash([]byte("ContractDeployed(address)"))
)

// Config carries the per-instance constants of a delegate.
type Config struct {
	// Self is the account's own address and its sole authority.
	Self types.Address
	// ChainID scopes the account's EIP-712 domain.
	ChainID *big.Int
}

// Delegate is one account instance. It holds no mutable Go state; the
// configured entry point lives in the StateDB under the account's own
// address, so two Delegate values over the same state are interchangeable.
type Delegate struct {
	self    types.Address
	chainID *big.Int
	state   state.StateDB
	env     vm.Environment
}

// New constructs a delegate over the given state and call environment.
func New(cfg Config, st state.StateDB, env vm.Environment) *Delegate {
	chainID := new(big.Int)
	if cfg.ChainID != nil {
		chainID.Set(cfg.ChainID)
	}
	return &Delegate{
		self:    cfg.Self,
		chainID: chainID,
		state:   st,
		env:     env,
	}
}

// Self returns the account's address.
func (d *Delegate) Self() types.Address {
	return d.self
}

// IsAuthority reports whether addr is the account's one trusted signer.
func (d *Delegate) IsAuthority(addr types.Address) bool {
	return addr == d.self
}

// Initialize is the one-shot bootstrap that sets the trusted entry point.
// Only the authority itself may call it: anyone observing a pending
// bootstrap could otherwise front-run it with their own dispatcher address
// and walk straight through the execution gateway afterwards. Requiring
// caller == Self collapses that window to zero, since the call is
// submitted together with the delegation that installs this code.
//
// The transition is terminal; a second call fails ErrAlreadyInitialized.
func (d *Delegate) Initialize(caller, entryPoint types.Address) error {
	if caller != d.self {
		return ErrNotAuthorized
	}
	if !d.state.GetState(d.self, configSlot).IsZero() {
		return ErrAlreadyInitialized
	}
	d.setEntryPoint(entryPoint)
	d.state.AddLog(&types.Log{
		Address: d.self,
		Topics:  []types.Hash{EntryPointInitializedTopic, entryPoint.Hash()},
	})
	return nil
}

// ValidateOperation is the Mode A entry point the trusted dispatcher calls
// once per pending operation. It settles the prefund and checks that the
// operation hash was signed by the authority.
//
// The prefund push deliberately ignores the call result: the dispatcher
// measures its own balance delta after this returns and fails the
// operation if underpaid. Checking here as well would add a second point
// of failure without adding safety.
//
// A bad or malformed signature is a normal outcome, not a fault: it yields
// ValidationFailed so that simulators can probe with placeholder
// signatures and still measure the surrounding logic.
func (d *Delegate) ValidateOperation(caller types.Address, opHash types.Hash, sig []byte, missingFunds *big.Int) (uint64, error) {
	if caller != d.EntryPoint() {
		return 0, ErrNotAuthorized
	}
	if missingFunds != nil && missingFunds.Sign() > 0 {
		_, _ = d.env.Call(d.self, caller, missingFunds, nil)
	}
	recovered, err := crypto.RecoverAddress(opHash.Bytes(), sig)
	if err != nil || recovered != d.self {
		return ValidationFailed, nil
	}
	return ValidationSuccess, nil
}

// Execute forwards a single call through the account. The caller must be
// the configured entry point or the authority itself; the self branch is
// what lets the owner act directly, dispatcher or not.
//
// Failure data from the target propagates unchanged (as *vm.RevertError),
// so upstream error matching works exactly as if the target had been
// called directly. Return data from a successful call is discarded.
func (d *Delegate) Execute(caller, target types.Address, value *big.Int, payload []byte) error {
	if !d.authorized(caller) {
		return ErrNotAuthorized
	}
	_, err := d.env.Call(d.self, target, value, payload)
	return err
}

// Deploy creates a contract at the deterministic address
// keccak256(0xff || Self || salt || keccak256(initCode))[12:], computable
// off-chain before submission. Same access policy as Execute; creation
// failures propagate their revert payload the same way.
func (d *Delegate) Deploy(caller types.Address, value *big.Int, initCode []byte, salt types.Hash) (types.Address, error) {
	if !d.authorized(caller) {
		return types.Address{}, ErrNotAuthorized
	}
	if len(initCode) == 0 {
		return types.Address{}, ErrEmptyInitCode
	}
	addr, _, err := d.env.Create2(d.self, value, salt, initCode)
	if err != nil {
		return types.Address{}, err
	}
	d.state.AddLog(&types.Log{
		Address: d.self,
		Topics:  []types.Hash{ContractDeployedTopic, addr.Hash()},
	})
	return addr, nil
}

// authorized re-derives the gateway access decision on every entry. The
// configuration cannot change during a call, so a re-entrant caller faces
// exactly the same check and no lock is needed.
func (d *Delegate) authorized(caller types.Address) bool {
	return caller == d.self || caller == d.EntryPoint()
}
