package dispatch

// entrypoint.go implements the dispatcher lifecycle for a batch: nonce
// check, account validation with balance-delta prefund measurement,
// deposit settlement, then the execution or deployment call. Validation
// failures roll the state back to the pre-operation snapshot; execution
// failures keep the consumed nonce and the settled charge, with the
// execution frame itself already rolled back by the call environment.

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/eth7702/eth7702/account"
	"github.com/eth7702/eth7702/core/state"
	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/log"
	"github.com/eth7702/eth7702/metrics"
)

var (
	ErrInvalidOperation = errors.New("dispatch: malformed operation")
	ErrUnknownAccount   = errors.New("dispatch: sender not registered")
	ErrNonce            = errors.New("dispatch: invalid operation nonce")
	ErrSignature        = errors.New("dispatch: operation signature rejected")
	ErrPrefund          = errors.New("dispatch: insufficient prefund")
	ErrDeposit          = errors.New("dispatch: deposit exceeds balance")
	ErrEmptyBatch       = errors.New("dispatch: batch has no operations")
	ErrZeroBeneficiary  = errors.New("dispatch: beneficiary is zero address")
)

// Account is the validation and execution surface of a delegated account.
type Account interface {
	ValidateOperation(caller types.Address, opHash types.Hash, sig []byte, missingFunds *big.Int) (uint64, error)
	Execute(caller, target types.Address, value *big.Int, payload []byte) error
	Deploy(caller types.Address, value *big.Int, initCode []byte, salt types.Hash) (types.Address, error)
}

var _ Account = (*account.Delegate)(nil)

// Config parameterizes an EntryPoint.
type Config struct {
	// Address is the dispatcher's own account address, the caller that
	// delegated accounts are configured to trust.
	Address types.Address
	// ChainID scopes operation hashes to one chain.
	ChainID *big.Int
}

// EntryPoint dispatches operations to registered delegated accounts over
// a shared state database. Deposits are held at the dispatcher's address
// and tracked per sender in a ledger.
type EntryPoint struct {
	address  types.Address
	chainID  *big.Int
	state    state.StateDB
	accounts map[types.Address]Account
	deposits map[types.Address]*big.Int
	logger   *log.Logger
}

// NewEntryPoint creates a dispatcher over st.
func NewEntryPoint(cfg Config, st state.StateDB) *EntryPoint {
	chainID := new(big.Int)
	if cfg.ChainID != nil {
		chainID.Set(cfg.ChainID)
	}
	return &EntryPoint{
		address:  cfg.Address,
		chainID:  chainID,
		state:    st,
		accounts: make(map[types.Address]Account),
		deposits: make(map[types.Address]*big.Int),
		logger:   log.Default().Module("dispatch"),
	}
}

// Address returns the dispatcher's account address.
func (ep *EntryPoint) Address() types.Address { return ep.address }

// ChainID returns a copy of the dispatcher's chain id.
func (ep *EntryPoint) ChainID() *big.Int { return new(big.Int).Set(ep.chainID) }

// Register binds the delegate running at addr so operations from addr can
// be routed to it.
func (ep *EntryPoint) Register(addr types.Address, acct Account) {
	ep.accounts[addr] = acct
	metrics.AccountsRegistered.Set(int64(len(ep.accounts)))
}

// OperationHash returns the digest of op bound to this dispatcher.
func (ep *EntryPoint) OperationHash(op *Operation) types.Hash {
	return HashOperation(op, ep.address, ep.chainID)
}

// --- Deposit ledger ---

// GetDeposit returns addr's deposit balance.
func (ep *EntryPoint) GetDeposit(addr types.Address) *big.Int {
	if d, ok := ep.deposits[addr]; ok {
		return new(big.Int).Set(d)
	}
	return new(big.Int)
}

// AddDeposit moves amount from addr's account balance into its dispatcher
// deposit. The wei sits at the dispatcher's address; the ledger tracks
// the per-sender claim.
func (ep *EntryPoint) AddDeposit(addr types.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: deposit amount must be positive", ErrInvalidOperation)
	}
	if ep.state.GetBalance(addr).Cmp(amount) < 0 {
		return ErrDeposit
	}
	ep.state.SubBalance(addr, amount)
	ep.state.AddBalance(ep.address, amount)
	ep.credit(addr, amount)
	return nil
}

// WithdrawDeposit moves amount from addr's deposit back into its account
// balance.
func (ep *EntryPoint) WithdrawDeposit(addr types.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: withdraw amount must be positive", ErrInvalidOperation)
	}
	if ep.GetDeposit(addr).Cmp(amount) < 0 {
		return fmt.Errorf("dispatch: withdraw %s exceeds deposit %s", amount, ep.GetDeposit(addr))
	}
	ep.deposits[addr].Sub(ep.deposits[addr], amount)
	ep.state.SubBalance(ep.address, amount)
	ep.state.AddBalance(addr, amount)
	return nil
}

func (ep *EntryPoint) credit(addr types.Address, amount *big.Int) {
	if _, ok := ep.deposits[addr]; !ok {
		ep.deposits[addr] = new(big.Int)
	}
	ep.deposits[addr].Add(ep.deposits[addr], amount)
}

// --- Batch processing ---

// HandleOps processes a batch of operations. Every operation yields a
// receipt; a failed operation never aborts the batch. Charges settle to
// beneficiary as each operation passes validation.
func (ep *EntryPoint) HandleOps(ops []*Operation, beneficiary types.Address) ([]*Receipt, error) {
	if len(ops) == 0 {
		return nil, ErrEmptyBatch
	}
	if beneficiary.IsZero() {
		return nil, ErrZeroBeneficiary
	}
	metrics.BatchSize.Observe(float64(len(ops)))
	defer metrics.NewTimer(metrics.BatchDuration).Stop()

	receipts := make([]*Receipt, 0, len(ops))
	for _, op := range ops {
		receipt, err := ep.handleOp(op, beneficiary)
		if err != nil {
			if receipt.Reason == "" {
				receipt.Reason = err.Error()
			}
			ep.logger.Warn("operation failed",
				"sender", receipt.Sender, "nonce", receipt.Nonce, "err", err)
			metrics.OpsFailed.Inc()
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

// handleOp runs one operation through validation, settlement and
// execution. The returned receipt is always non-nil; err != nil exactly
// when receipt.Success is false.
func (ep *EntryPoint) handleOp(op *Operation, beneficiary types.Address) (*Receipt, error) {
	receipt := &Receipt{Cost: new(big.Int)}
	if op == nil {
		return receipt, ErrInvalidOperation
	}
	receipt.Sender, receipt.Nonce = op.Sender, op.Nonce
	if err := checkShape(op); err != nil {
		return receipt, err
	}
	receipt.OpHash = ep.OperationHash(op)

	acct, ok := ep.accounts[op.Sender]
	if !ok {
		return receipt, ErrUnknownAccount
	}

	snap := ep.state.Snapshot()
	received, err := ep.validateOp(acct, op, receipt.OpHash)
	if err != nil {
		ep.state.RevertToSnapshot(snap)
		return receipt, err
	}
	metrics.OpsValidated.Inc()

	// Point of no return: the nonce is consumed and the charge settles
	// before execution, so the callee cannot respend the prefund.
	maxCost := bigOrZero(op.MaxCost)
	ep.state.SetNonce(op.Sender, op.Nonce+1)
	ep.credit(op.Sender, received)
	ep.deposits[op.Sender].Sub(ep.deposits[op.Sender], maxCost)
	ep.state.SubBalance(ep.address, maxCost)
	ep.state.AddBalance(beneficiary, maxCost)
	receipt.Cost.Set(maxCost)

	if op.IsDeploy() {
		addr, err := acct.Deploy(ep.address, op.Value, op.InitCode, op.Salt)
		if err != nil {
			return receipt, fmt.Errorf("deployment: %w", err)
		}
		receipt.Deployed = addr
		metrics.OpsDeployed.Inc()
	} else {
		if err := acct.Execute(ep.address, op.Target, op.Value, op.Payload); err != nil {
			return receipt, fmt.Errorf("execution: %w", err)
		}
	}
	receipt.Success = true
	metrics.OpsExecuted.Inc()
	return receipt, nil
}

// validateOp runs the validation phase: nonce check, then the account's
// ValidateOperation with the prefund shortfall, measuring what the account
// actually pushed as the dispatcher's balance delta. It mutates state (the
// prefund transfer); callers snapshot around it. The deposit ledger is not
// touched here.
func (ep *EntryPoint) validateOp(acct Account, op *Operation, opHash types.Hash) (*big.Int, error) {
	if ep.state.GetNonce(op.Sender) != op.Nonce {
		return nil, ErrNonce
	}
	maxCost := bigOrZero(op.MaxCost)
	missing := shortfall(maxCost, ep.GetDeposit(op.Sender))

	balBefore := ep.state.GetBalance(ep.address)
	result, err := acct.ValidateOperation(ep.address, opHash, op.Signature, missing)
	if err != nil {
		return nil, fmt.Errorf("account validation: %w", err)
	}
	if result != account.ValidationSuccess {
		return nil, ErrSignature
	}
	received := new(big.Int).Sub(ep.state.GetBalance(ep.address), balBefore)
	if received.Cmp(missing) < 0 {
		return nil, fmt.Errorf("%w: need %s, received %s", ErrPrefund, missing, received)
	}
	return received, nil
}

// SimulateValidation runs the validation phase and rolls every state
// effect back, so a caller can probe acceptance without consuming the
// nonce or moving funds.
func (ep *EntryPoint) SimulateValidation(op *Operation) error {
	if op == nil {
		return ErrInvalidOperation
	}
	if err := checkShape(op); err != nil {
		return err
	}
	acct, ok := ep.accounts[op.Sender]
	if !ok {
		return ErrUnknownAccount
	}
	snap := ep.state.Snapshot()
	_, err := ep.validateOp(acct, op, ep.OperationHash(op))
	ep.state.RevertToSnapshot(snap)
	return err
}

func checkShape(op *Operation) error {
	if op.Sender.IsZero() {
		return fmt.Errorf("%w: zero sender", ErrInvalidOperation)
	}
	if op.Value != nil && op.Value.Sign() < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidOperation)
	}
	if op.MaxCost != nil && op.MaxCost.Sign() < 0 {
		return fmt.Errorf("%w: negative max cost", ErrInvalidOperation)
	}
	return nil
}

// shortfall returns max(0, maxCost - deposit) in wei.
func shortfall(maxCost, deposit *big.Int) *big.Int {
	mc, overflow := uint256.FromBig(maxCost)
	if overflow {
		mc = new(uint256.Int).SetAllOne()
	}
	dep, overflow := uint256.FromBig(deposit)
	if overflow || dep.Cmp(mc) >= 0 {
		return new(big.Int)
	}
	return new(uint256.Int).Sub(mc, dep).ToBig()
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
