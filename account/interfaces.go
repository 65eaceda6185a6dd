package account

// interfaces.go implements ERC-165 capability advertisement. An interface
// ID is the XOR of the selectors of every function in the interface. The
// IDs are derived from the canonical signatures at init rather than
// hardcoded; the tests pin the published constants.

import (
	"github.com/eth7702/eth7702/crypto"
)

// Selector returns the 4-byte function selector for a canonical signature
// string, keccak256(sig)[:4].
func Selector(sig string) [4]byte {
	var id [4]byte
	copy(id[:], crypto.Keccak256([]byte(sig))[:4])
	return id
}

func xorID(selectors ...[4]byte) [4]byte {
	var id [4]byte
	for _, sel := range selectors {
		for i := range id {
			id[i] ^= sel[i]
		}
	}
	return id
}

// IDs of the interfaces the account implements.
var (
	InterfaceIDERC165  = Selector("supportsInterface(bytes4)")
	InterfaceIDERC1271 = Selector("isValidSignature(bytes32,bytes)")

	// InterfaceIDAccount is the ERC-4337 account interface: a single
	// validateUserOp taking the packed operation struct.
	InterfaceIDAccount = Selector("validateUserOp((address,uint256,bytes,bytes,bytes32,uint256,bytes32,bytes,bytes),bytes32,uint256)")

	InterfaceIDERC721Receiver  = erc721ReceivedMagic
	InterfaceIDERC1155Receiver = xorID(erc1155ReceivedMagic, erc1155BatchReceivedMagic)
)

// SupportsInterface is the ERC-165 membership test over the account's
// fixed capability set. Pure.
func (d *Delegate) SupportsInterface(id [4]byte) bool {
	switch id {
	case InterfaceIDERC165,
		InterfaceIDERC1271,
		InterfaceIDAccount,
		InterfaceIDERC721Receiver,
		InterfaceIDERC1155Receiver:
		return true
	}
	return false
}
