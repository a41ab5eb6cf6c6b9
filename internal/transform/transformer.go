// Package transform drives contract transformers over crawled transactions.
package transform

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ethereumIndexer/internal/model"
	"ethereumIndexer/internal/storage"
)

// Transformer turns raw transactions of one contract into persisted aggregates.
type Transformer interface {
	Name() string
	// Process applies the contract's events in tx to the in-memory table.
	Process(ctx context.Context, tx model.RawTransaction) error
	// Flush upserts the table when something changed since the last flush.
	Flush(ctx context.Context) error
	// Reset drops the in-memory table so the next Process re-hydrates it.
	Reset()
}

// Params carries what every transformer needs to run against one contract.
type Params struct {
	Address   common.Address
	NetworkID uint64
	Store     storage.Store
	Logger    *zap.Logger
}

// Collections returns the collection names of the tracked contract.
func (p Params) Collections() model.Collections {
	return model.Collections{Address: p.Address.Hex(), NetworkID: p.NetworkID}
}

// SentBy reports whether sender is the tracked contract.
func (p Params) SentBy(sender string) bool {
	if !common.IsHexAddress(sender) {
		return false
	}
	return common.HexToAddress(sender) == p.Address
}
