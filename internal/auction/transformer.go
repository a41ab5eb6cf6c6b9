package auction

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"ethereumIndexer/internal/metrics"
	"ethereumIndexer/internal/model"
	"ethereumIndexer/internal/storage"
	"ethereumIndexer/internal/transform"
)

// Name is the registry name of the auction transformer.
const Name = "rkl_club_auction"

// Transformer collects PlaceBid events into per-bidder documents.
type Transformer struct {
	params      transform.Params
	collections model.Collections
	table       *transform.Cache[string, *Bidder]
	logger      *zap.Logger
}

var _ transform.Transformer = (*Transformer)(nil)

func New(params transform.Params) (transform.Transformer, error) {
	if _, err := AuctionABI(); err != nil {
		return nil, fmt.Errorf("parse auction abi: %w", err)
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{
		params:      params,
		collections: params.Collections(),
		table:       transform.NewCache[string, *Bidder](),
		logger:      logger.With(zap.String("transformer", Name)),
	}, nil
}

func (t *Transformer) Name() string { return Name }

func (t *Transformer) Process(ctx context.Context, tx model.RawTransaction) error {
	if _, err := t.table.Hydrate(ctx, t.loadState); err != nil {
		return fmt.Errorf("hydrate bidders: %w", err)
	}

	logEvents := make([]model.RawLogEvent, len(tx.LogEvents))
	copy(logEvents, tx.LogEvents)
	sort.SliceStable(logEvents, func(i, j int) bool {
		return logEvents[i].LogOffset < logEvents[j].LogOffset
	})

	for _, ev := range logEvents {
		if !t.params.SentBy(ev.SenderAddress) || !IsPlaceBid(ev) {
			continue
		}

		placed, err := DecodePlaceBid(tx, ev)
		if err != nil {
			t.logger.Warn("decode bid failed",
				zap.Error(err),
				zap.String("tx_hash", ev.TxHash),
				zap.Uint64("log_offset", ev.LogOffset),
			)
			metrics.EventsSkipped.WithLabelValues(Name, metrics.ReasonDecodeError).Inc()
			continue
		}

		bidder, ok := t.table.Get(placed.Bidder)
		if !ok {
			bidder = &Bidder{ID: placed.Bidder, Bids: []Bid{}}
			t.table.Put(placed.Bidder, bidder)
		}
		if !bidder.AddBid(placed.Bid) {
			metrics.EventsSkipped.WithLabelValues(Name, metrics.ReasonDuplicate).Inc()
			continue
		}
		t.table.MarkDirty()
		metrics.EventsApplied.WithLabelValues(Name, "PlaceBid").Inc()
	}

	metrics.AggregatesCached.WithLabelValues(Name).Set(float64(t.table.Len()))
	return nil
}

func (t *Transformer) Flush(ctx context.Context) error {
	if !t.table.Dirty() {
		return nil
	}

	collection := t.collections.State()
	for _, id := range t.table.Keys() {
		bidder, _ := t.table.Get(id)
		doc, err := storage.NewDocument(id, bidder)
		if err != nil {
			return fmt.Errorf("marshal bidder %s: %w", id, err)
		}
		if err := t.params.Store.Put(ctx, collection, doc); err != nil {
			return fmt.Errorf("upsert bidder %s: %w", id, err)
		}
	}
	t.table.ClearDirty()

	t.logger.Info("flushed bidders", zap.Int("count", t.table.Len()), zap.String("collection", collection))
	return nil
}

func (t *Transformer) Reset() {
	t.table.Reset()
}

func (t *Transformer) loadState(ctx context.Context) (map[string]*Bidder, error) {
	bodies, err := t.params.Store.GetAll(ctx, t.collections.State(), storage.Query{})
	if err != nil {
		return nil, err
	}
	items := make(map[string]*Bidder, len(bodies))
	for _, body := range bodies {
		var bidder Bidder
		if err := json.Unmarshal(body, &bidder); err != nil {
			return nil, fmt.Errorf("parse bidder document: %w", err)
		}
		items[bidder.ID] = &bidder
	}
	return items, nil
}
