package lending

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const azraelEventsABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "nftAddress", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "lentAmount", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "lendingId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "lenderAddress", "type": "address"},
      {"indexed": false, "internalType": "uint8", "name": "maxRentDuration", "type": "uint8"},
      {"indexed": false, "internalType": "bytes4", "name": "dailyRentPrice", "type": "bytes4"},
      {"indexed": false, "internalType": "bytes4", "name": "nftPrice", "type": "bytes4"},
      {"indexed": false, "internalType": "bool", "name": "isERC721", "type": "bool"},
      {"indexed": false, "internalType": "enum IResolver.PaymentToken", "name": "paymentToken", "type": "uint8"}
    ],
    "name": "Lent",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "lendingId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "renterAddress", "type": "address"},
      {"indexed": false, "internalType": "uint8", "name": "rentDuration", "type": "uint8"},
      {"indexed": false, "internalType": "uint32", "name": "rentedAt", "type": "uint32"}
    ],
    "name": "Rented",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "lendingId", "type": "uint256"},
      {"indexed": false, "internalType": "uint32", "name": "returnedAt", "type": "uint32"}
    ],
    "name": "Returned",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "lendingId", "type": "uint256"},
      {"indexed": false, "internalType": "uint32", "name": "claimedAt", "type": "uint32"}
    ],
    "name": "CollateralClaimed",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "lendingId", "type": "uint256"},
      {"indexed": false, "internalType": "uint32", "name": "stoppedAt", "type": "uint32"}
    ],
    "name": "LendingStopped",
    "type": "event"
  }
]`

var (
	azraelABIOnce sync.Once
	azraelABI     abi.ABI
	azraelABIErr  error
)

// AzraelABI returns the parsed event ABI of the lending contract.
func AzraelABI() (abi.ABI, error) {
	azraelABIOnce.Do(func() {
		azraelABI, azraelABIErr = abi.JSON(strings.NewReader(azraelEventsABIJSON))
	})
	return azraelABI, azraelABIErr
}
