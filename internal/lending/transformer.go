package lending

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

// Name is the registry name of the lending transformer.
const Name = "azrael"

// Transformer rebuilds LendingRenting aggregates from lending contract logs.
type Transformer struct {
	params      transform.Params
	collections model.Collections
	table       *Table
	reducer     *Reducer
	logger      *zap.Logger
}

var _ transform.Transformer = (*Transformer)(nil)

// New is the transform.Constructor for the lending transformer.
func New(params transform.Params) (transform.Transformer, error) {
	if _, err := AzraelABI(); err != nil {
		return nil, fmt.Errorf("parse lending abi: %w", err)
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("transformer", Name))

	table := transform.NewCache[uint64, *LendingRenting]()
	return &Transformer{
		params:      params,
		collections: params.Collections(),
		table:       table,
		reducer:     NewReducer(table, Name, logger),
		logger:      logger,
	}, nil
}

func (t *Transformer) Name() string { return Name }

// Table exposes the in-memory aggregates.
func (t *Transformer) Table() *Table { return t.table }

func (t *Transformer) Process(ctx context.Context, tx model.RawTransaction) error {
	if err := t.hydrate(ctx); err != nil {
		return err
	}

	logEvents := make([]model.RawLogEvent, len(tx.LogEvents))
	copy(logEvents, tx.LogEvents)
	sort.SliceStable(logEvents, func(i, j int) bool {
		return logEvents[i].LogOffset < logEvents[j].LogOffset
	})

	var buffer []Event
	for _, ev := range logEvents {
		if !t.params.SentBy(ev.SenderAddress) {
			t.logger.Debug("skip log from other contract",
				zap.String("tx_hash", ev.TxHash),
				zap.Uint64("log_offset", ev.LogOffset),
				zap.String("sender", ev.SenderAddress),
			)
			continue
		}
		if ev.Decoded == nil {
			t.logger.Warn("undecoded log event",
				zap.String("tx_hash", ev.TxHash),
				zap.Uint64("log_offset", ev.LogOffset),
			)
			metrics.EventsSkipped.WithLabelValues(Name, metrics.ReasonUndecoded).Inc()
			continue
		}
		if !isKind(ev.EventName()) {
			t.logger.Debug("skip event not tracked",
				zap.String("event", ev.EventName()),
				zap.String("tx_hash", ev.TxHash),
				zap.Uint64("log_offset", ev.LogOffset),
			)
			continue
		}

		event, err := Decode(ev)
		if err != nil {
			t.logger.Warn("decode lending event failed",
				zap.Error(err),
				zap.String("tx_hash", ev.TxHash),
				zap.Uint64("log_offset", ev.LogOffset),
			)
			metrics.EventsSkipped.WithLabelValues(Name, metrics.ReasonDecodeError).Inc()
			continue
		}
		buffer = append(buffer, event)
	}

	stats, err := t.reducer.Apply(buffer)
	if err != nil {
		return fmt.Errorf("apply events: %w", err)
	}
	metrics.AggregatesCached.WithLabelValues(Name).Set(float64(t.table.Len()))

	if stats.Applied > 0 || stats.Skipped > 0 {
		t.logger.Debug("transaction applied",
			zap.String("tx_hash", tx.TxHash),
			zap.Uint64("block_height", tx.BlockHeight),
			zap.Int("applied", stats.Applied),
			zap.Int("skipped", stats.Skipped),
		)
	}
	return nil
}

// Flush upserts every cached aggregate when events were applied since the last flush.
func (t *Transformer) Flush(ctx context.Context) error {
	if !t.table.Dirty() {
		return nil
	}

	collection := t.collections.State()
	for _, id := range t.table.Keys() {
		lr, _ := t.table.Get(id)
		doc, err := storage.NewDocument(int64(id), lr)
		if err != nil {
			return fmt.Errorf("marshal lending %d: %w", id, err)
		}
		if err := t.params.Store.Put(ctx, collection, doc); err != nil {
			return fmt.Errorf("upsert lending %d: %w", id, err)
		}
	}
	t.table.ClearDirty()

	t.logger.Info("flushed lendings", zap.Int("count", t.table.Len()), zap.String("collection", collection))
	return nil
}

func (t *Transformer) Reset() {
	t.table.Reset()
}

func (t *Transformer) hydrate(ctx context.Context) error {
	loaded, err := t.table.Hydrate(ctx, t.loadState)
	if err != nil {
		return fmt.Errorf("hydrate lendings: %w", err)
	}
	if loaded && t.table.Len() > 0 {
		t.logger.Info("hydrated lendings", zap.Int("count", t.table.Len()))
	}
	return nil
}

func (t *Transformer) loadState(ctx context.Context) (map[uint64]*LendingRenting, error) {
	bodies, err := t.params.Store.GetAll(ctx, t.collections.State(), storage.Query{})
	if err != nil {
		return nil, err
	}
	items := make(map[uint64]*LendingRenting, len(bodies))
	for _, body := range bodies {
		var lr LendingRenting
		if err := json.Unmarshal(body, &lr); err != nil {
			return nil, fmt.Errorf("parse lending document: %w", err)
		}
		items[lr.ID] = &lr
	}
	return items, nil
}
