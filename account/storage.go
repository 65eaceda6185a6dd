package account

// Storage layout. An EIP-7702 account shares its storage with whatever
// code previously ran at the same address, so the configuration must not
// live in the low sequential slots a naive contract would use: stale data
// there would be silently misread as configuration. The entry-point
// address therefore lives at the ERC-7201 namespaced location for
// ConfigNamespace, far away from slot 0 and aligned to a 256-slot
// boundary.

import (
	"math/big"

	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/crypto"
)

// ConfigNamespace is the namespace string the configuration slot is
// derived from. Changing it moves the account's entire mutable state.
const ConfigNamespace = "eth7702.account.main"

var configSlot = NamespacedSlot(ConfigNamespace)

// NamespacedSlot derives the ERC-7201 storage root for a namespace:
//
//	keccak256(uint256(keccak256(ns)) - 1) & ~0xff
func NamespacedSlot(ns string) types.Hash {
	inner := new(big.Int).SetBytes(crypto.Keccak256([]byte(ns)))
	inner.Sub(inner, big.NewInt(1))
	slot := crypto.Keccak256(crypto.BigToBytes32(inner))
	slot[31] = 0
	return types.BytesToHash(slot)
}

// ConfigSlot returns the storage slot holding the entry-point address.
func ConfigSlot() types.Hash {
	return configSlot
}

// EntryPoint returns the configured entry-point address, zero while the
// account is unconfigured.
func (d *Delegate) EntryPoint() types.Address {
	word := d.state.GetState(d.self, configSlot)
	return types.BytesToAddress(word.Bytes())
}

func (d *Delegate) setEntryPoint(entryPoint types.Address) {
	d.state.SetState(d.self, configSlot, entryPoint.Hash())
}
