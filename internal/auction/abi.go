package auction

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const auctionEventsABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "bidder", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "price", "type": "uint256"}
    ],
    "name": "PlaceBid",
    "type": "event"
  }
]`

var (
	auctionABIOnce sync.Once
	auctionABI     abi.ABI
	auctionABIErr  error
)

// AuctionABI returns the parsed event ABI of the auction contract.
func AuctionABI() (abi.ABI, error) {
	auctionABIOnce.Do(func() {
		auctionABI, auctionABIErr = abi.JSON(strings.NewReader(auctionEventsABIJSON))
	})
	return auctionABI, auctionABIErr
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexed := indexedArguments(event.Inputs)
	if len(topics) != len(indexed)+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(topics))
	}
	out := make([]common.Hash, 0, len(indexed))
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
