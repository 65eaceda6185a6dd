package account

// Token receipt callbacks. The account accepts any inbound safe transfer
// by returning the acknowledgment selector the respective standard
// expects. The callbacks read and write no state, so they cannot serve as
// a re-entrancy vector regardless of caller.

import (
	"math/big"

	"github.com/eth7702/eth7702/core/types"
)

// Acknowledgment selectors, each the selector of the callback itself.
var (
	erc721ReceivedMagic       = Selector("onERC721Received(address,address,uint256,bytes)")
	erc1155ReceivedMagic      = Selector("onERC1155Received(address,address,uint256,uint256,bytes)")
	erc1155BatchReceivedMagic = Selector("onERC1155BatchReceived(address,address,uint256[],uint256[],bytes)")
)

// OnERC721Received accepts an ERC-721 safe transfer.
func (d *Delegate) OnERC721Received(operator, from types.Address, tokenID *big.Int, data []byte) [4]byte {
	return erc721ReceivedMagic
}

// OnERC1155Received accepts a single-item ERC-1155 safe transfer.
func (d *Delegate) OnERC1155Received(operator, from types.Address, id, value *big.Int, data []byte) [4]byte {
	return erc1155ReceivedMagic
}

// OnERC1155BatchReceived accepts a batch ERC-1155 safe transfer.
func (d *Delegate) OnERC1155BatchReceived(operator, from types.Address, ids, values []*big.Int, data []byte) [4]byte {
	return erc1155BatchReceivedMagic
}
