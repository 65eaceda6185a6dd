package state

import (
	"math/big"

	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/crypto"
)

// account is the in-memory record behind one address. Balances are
// treated as immutable values: mutators swap in a fresh *big.Int, which
// lets undo closures restore the old pointer.
type account struct {
	nonce    uint64
	balance  *big.Int
	code     []byte
	codeHash types.Hash
	storage  map[types.Hash]types.Hash
}

func blankAccount() *account {
	return &account{
		balance:  new(big.Int),
		codeHash: types.EmptyCodeHash,
		storage:  make(map[types.Hash]types.Hash),
	}
}

// MemoryStateDB keeps the whole world state in maps. Every mutation
// journals its inverse, so RevertToSnapshot restores the exact prior
// state, logs included. Not safe for concurrent use.
type MemoryStateDB struct {
	accounts map[types.Address]*account
	logs     []*types.Log
	j        journal
}

// NewMemoryStateDB returns an empty state.
func NewMemoryStateDB() *MemoryStateDB {
	return &MemoryStateDB{accounts: make(map[types.Address]*account)}
}

// upsert returns the record for addr, materializing (and journaling) an
// empty one on first touch.
func (s *MemoryStateDB) upsert(addr types.Address) *account {
	if acc, ok := s.accounts[addr]; ok {
		return acc
	}
	acc := blankAccount()
	s.accounts[addr] = acc
	s.j.record(func() { delete(s.accounts, addr) })
	return acc
}

// CreateAccount installs a fresh, empty record at addr, displacing any
// existing one. A revert brings the displaced record back.
func (s *MemoryStateDB) CreateAccount(addr types.Address) {
	prev, existed := s.accounts[addr]
	s.accounts[addr] = blankAccount()
	s.j.record(func() {
		if existed {
			s.accounts[addr] = prev
		} else {
			delete(s.accounts, addr)
		}
	})
}

// Exist reports whether addr has a state record.
func (s *MemoryStateDB) Exist(addr types.Address) bool {
	_, ok := s.accounts[addr]
	return ok
}

// Empty reports whether addr is empty per EIP-161: no nonce, no balance,
// no code.
func (s *MemoryStateDB) Empty(addr types.Address) bool {
	acc, ok := s.accounts[addr]
	if !ok {
		return true
	}
	return acc.nonce == 0 && acc.balance.Sign() == 0 && acc.codeHash == types.EmptyCodeHash
}

// GetBalance returns a copy of addr's balance; missing accounts read as
// zero.
func (s *MemoryStateDB) GetBalance(addr types.Address) *big.Int {
	if acc, ok := s.accounts[addr]; ok {
		return new(big.Int).Set(acc.balance)
	}
	return new(big.Int)
}

// AddBalance credits amount to addr.
func (s *MemoryStateDB) AddBalance(addr types.Address, amount *big.Int) {
	acc := s.upsert(addr)
	prev := acc.balance
	acc.balance = new(big.Int).Add(prev, amount)
	s.j.record(func() { acc.balance = prev })
}

// SubBalance debits amount from addr.
func (s *MemoryStateDB) SubBalance(addr types.Address, amount *big.Int) {
	acc := s.upsert(addr)
	prev := acc.balance
	acc.balance = new(big.Int).Sub(prev, amount)
	s.j.record(func() { acc.balance = prev })
}

// GetNonce returns addr's nonce; missing accounts read as zero.
func (s *MemoryStateDB) GetNonce(addr types.Address) uint64 {
	if acc, ok := s.accounts[addr]; ok {
		return acc.nonce
	}
	return 0
}

// SetNonce sets addr's nonce.
func (s *MemoryStateDB) SetNonce(addr types.Address, nonce uint64) {
	acc := s.upsert(addr)
	prev := acc.nonce
	acc.nonce = nonce
	s.j.record(func() { acc.nonce = prev })
}

// GetCode returns addr's code; missing accounts read as nil.
func (s *MemoryStateDB) GetCode(addr types.Address) []byte {
	if acc, ok := s.accounts[addr]; ok {
		return acc.code
	}
	return nil
}

// SetCode installs code at addr and recomputes the code hash. Installing
// nil restores the empty-code hash.
func (s *MemoryStateDB) SetCode(addr types.Address, code []byte) {
	acc := s.upsert(addr)
	prevCode, prevHash := acc.code, acc.codeHash
	acc.code = code
	acc.codeHash = crypto.Keccak256Hash(code)
	s.j.record(func() { acc.code, acc.codeHash = prevCode, prevHash })
}

// GetCodeHash returns keccak256 of addr's code. Existing codeless
// accounts read as the empty-code hash; missing accounts as the zero
// hash.
func (s *MemoryStateDB) GetCodeHash(addr types.Address) types.Hash {
	if acc, ok := s.accounts[addr]; ok {
		return acc.codeHash
	}
	return types.Hash{}
}

// GetState reads one storage slot; missing accounts and unset slots read
// as the zero hash.
func (s *MemoryStateDB) GetState(addr types.Address, key types.Hash) types.Hash {
	if acc, ok := s.accounts[addr]; ok {
		return acc.storage[key]
	}
	return types.Hash{}
}

// SetState writes one storage slot.
func (s *MemoryStateDB) SetState(addr types.Address, key, value types.Hash) {
	acc := s.upsert(addr)
	prev, had := acc.storage[key]
	acc.storage[key] = value
	s.j.record(func() {
		if had {
			acc.storage[key] = prev
		} else {
			delete(acc.storage, key)
		}
	})
}

// AddLog appends a log record, assigning its index within the state's
// log stream. Reverting drops logs emitted after the snapshot.
func (s *MemoryStateDB) AddLog(l *types.Log) {
	n := len(s.logs)
	l.Index = uint(n)
	s.logs = append(s.logs, l)
	s.j.record(func() { s.logs = s.logs[:n] })
}

// Logs returns every log emitted and not reverted, in emission order.
func (s *MemoryStateDB) Logs() []*types.Log {
	return s.logs
}

// Snapshot marks the current state and returns an id for RevertToSnapshot.
func (s *MemoryStateDB) Snapshot() int {
	return s.j.snapshot()
}

// RevertToSnapshot undoes every change recorded after the snapshot id.
// Unknown ids are ignored.
func (s *MemoryStateDB) RevertToSnapshot(id int) {
	s.j.revert(id)
}

var _ StateDB = (*MemoryStateDB)(nil)
