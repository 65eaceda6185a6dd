package crypto

import (
	"github.com/eth7702/eth7702/core/types"
)

// CreateAddress2 computes the address of a contract deployed with CREATE2:
// keccak256(0xff || deployer || salt || keccak256(initCode))[12:].
// The address depends only on the deployer, the salt and the init code,
// never on account nonces.
func CreateAddress2(deployer types.Address, salt types.Hash, initCodeHash []byte) types.Address {
	return types.BytesToAddress(Keccak256([]byte{0xff}, deployer.Bytes(), salt.Bytes(), initCodeHash)[12:])
}
