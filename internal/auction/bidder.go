package auction

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"ethereumIndexer/internal/model"
)

var weiPerEther = new(big.Float).SetInt(big.NewInt(1_000_000_000_000_000_000))

// Bid is one PlaceBid event. TxHash and LogOffset identify it for replays.
type Bid struct {
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"`
	TxHash    string  `json:"txHash"`
	LogOffset uint64  `json:"logOffset"`
}

// Bidder is the auction aggregate, keyed by lowercase bidder address.
type Bidder struct {
	ID   string `json:"_id"`
	Bids []Bid  `json:"bids"`
}

func (b *Bidder) UnmarshalJSON(data []byte) error {
	type plain Bidder
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out.Bids == nil {
		out.Bids = []Bid{}
	}
	*b = Bidder(out)
	return nil
}

// AddBid appends bid unless a bid from the same log is already present.
func (b *Bidder) AddBid(bid Bid) bool {
	for _, existing := range b.Bids {
		if existing.TxHash == bid.TxHash && existing.LogOffset == bid.LogOffset {
			return false
		}
	}
	b.Bids = append(b.Bids, bid)
	return true
}

// PlacedBid is a decoded PlaceBid log.
type PlacedBid struct {
	Bidder string
	Bid    Bid
}

// IsPlaceBid reports whether the log's topic0 is PlaceBid.
func IsPlaceBid(ev model.RawLogEvent) bool {
	contract, err := AuctionABI()
	if err != nil {
		return false
	}
	return strings.EqualFold(ev.Topic0(), contract.Events["PlaceBid"].ID.Hex())
}

// DecodePlaceBid reads bidder and price from the indexed topics. The price is
// in wei and converted to ether; the timestamp comes from the block.
func DecodePlaceBid(tx model.RawTransaction, ev model.RawLogEvent) (PlacedBid, error) {
	contract, err := AuctionABI()
	if err != nil {
		return PlacedBid{}, fmt.Errorf("load abi: %w", err)
	}
	event := contract.Events["PlaceBid"]

	topics, err := parseIndexedTopics(event, ev.RawLogTopics)
	if err != nil {
		return PlacedBid{}, err
	}
	var indexed struct {
		Bidder common.Address
		Price  *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), topics); err != nil {
		return PlacedBid{}, fmt.Errorf("parse topics: %w", err)
	}

	signedAt, err := tx.SignedAt()
	if err != nil {
		return PlacedBid{}, err
	}

	amount, _ := new(big.Float).Quo(new(big.Float).SetInt(indexed.Price), weiPerEther).Float64()
	return PlacedBid{
		Bidder: strings.ToLower(indexed.Bidder.Hex()),
		Bid: Bid{
			Amount:    amount,
			Timestamp: signedAt.Unix(),
			TxHash:    ev.TxHash,
			LogOffset: ev.LogOffset,
		},
	}, nil
}
