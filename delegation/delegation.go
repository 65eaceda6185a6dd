package delegation

// delegation.go applies signed authorizations to a state database the way
// a set-code transaction would, and probes accounts for an installed
// delegation designator.

import (
	"math"
	"math/big"

	"github.com/eth7702/eth7702/core/state"
	"github.com/eth7702/eth7702/core/types"
	"github.com/eth7702/eth7702/log"
)

// Apply processes a batch of authorizations. Each valid entry installs the
// delegation designator 0xef0100 || address at the authority's account and
// consumes one authority nonce; delegation to the zero address clears the
// account code instead. Invalid entries are skipped without failing the
// batch, per EIP-7702. Returns the number of entries applied.
func Apply(st state.StateDB, auths []Authorization, chainID *big.Int) int {
	logger := log.Default().Module("delegation")
	applied := 0
	for i := range auths {
		if err := applyOne(st, &auths[i], chainID); err != nil {
			logger.Debug("authorization skipped", "index", i, "err", err)
			continue
		}
		applied++
	}
	return applied
}

func applyOne(st state.StateDB, auth *Authorization, chainID *big.Int) error {
	// Chain id 0 (or nil) is the any-chain wildcard.
	if auth.ChainID != nil && auth.ChainID.Sign() != 0 {
		if chainID == nil || auth.ChainID.Cmp(chainID) != 0 {
			return ErrAuthChainID
		}
	}

	authority, err := auth.Authority()
	if err != nil {
		return err
	}

	// The authorization is bound to the authority's current nonce, which
	// must stay incrementable.
	nonce := st.GetNonce(authority)
	if auth.Nonce != nonce || nonce == math.MaxUint64 {
		return ErrAuthNonce
	}

	if auth.Address.IsZero() {
		st.SetCode(authority, nil)
	} else {
		st.SetCode(authority, types.AddressToDelegation(auth.Address))
	}
	st.SetNonce(authority, nonce+1)
	return nil
}

// Delegated reports whether the account at addr carries a delegation
// designator, and if so the delegate it points at.
func Delegated(st state.StateDB, addr types.Address) (types.Address, bool) {
	return types.ParseDelegation(st.GetCode(addr))
}
