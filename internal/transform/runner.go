package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ethereumIndexer/internal/metrics"
	"ethereumIndexer/internal/model"
	"ethereumIndexer/internal/storage"
)

const blockHeightField = "block_height"

// RunConfig holds runtime settings for the poll loop.
type RunConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// Once runs a single cycle and returns its error.
	Once bool
}

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	From         uint64
	Transactions int
	Checkpoint   uint64
	Advanced     bool
}

// Runner feeds raw transactions past the checkpoint to one transformer.
type Runner struct {
	cfg         RunConfig
	retry       retryPolicy
	transformer Transformer
	store       storage.Store
	collections model.Collections
	checkpoint  *CheckpointStore
	logger      *zap.Logger
}

// NewRunner builds a Runner for the contract described by params.
func NewRunner(cfg RunConfig, transformer Transformer, params Params) *Runner {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collections := params.Collections()
	return &Runner{
		cfg:         cfg,
		retry:       newRetryPolicy(cfg),
		transformer: transformer,
		store:       params.Store,
		collections: collections,
		checkpoint:  NewCheckpointStore(params.Store, collections.BlockHeight()),
		logger:      logger,
	}
}

// Run executes cycles until ctx is cancelled, sleeping PollInterval between them.
func (r *Runner) Run(ctx context.Context) error {
	if r.transformer == nil {
		return fmt.Errorf("transformer is nil")
	}
	if r.store == nil {
		return fmt.Errorf("store is nil")
	}
	if !r.cfg.Once && r.cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be greater than zero")
	}

	r.logger.Info("transform loop start",
		zap.String("transformer", r.transformer.Name()),
		zap.String("raw_collection", r.collections.RawTransactions()),
		zap.Duration("poll_interval", r.cfg.PollInterval),
	)

	for {
		_, err := r.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if r.cfg.Once {
				return err
			}
			r.logger.Error("cycle failed", zap.Error(err))
		}
		if r.cfg.Once {
			return nil
		}

		if !sleep(ctx, r.cfg.PollInterval) {
			return ctx.Err()
		}
	}
}

// RunCycle applies every raw transaction above the checkpoint, flushes the
// transformer and only then advances the checkpoint. On failure the
// transformer is reset and the checkpoint is left untouched.
func (r *Runner) RunCycle(ctx context.Context) (CycleResult, error) {
	name := r.transformer.Name()
	start := time.Now()
	defer func() {
		metrics.CycleDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	result, err := r.runCycle(ctx)
	if err != nil {
		r.transformer.Reset()
		metrics.CyclesTotal.WithLabelValues(name, "error").Inc()
		return result, err
	}
	metrics.CyclesTotal.WithLabelValues(name, "ok").Inc()
	return result, nil
}

func (r *Runner) runCycle(ctx context.Context) (CycleResult, error) {
	name := r.transformer.Name()

	checkpoint, err := r.loadCheckpoint(ctx)
	if err != nil {
		return CycleResult{}, err
	}
	result := CycleResult{From: checkpoint, Checkpoint: checkpoint}

	batch, err := r.fetchBatch(ctx, checkpoint)
	if err != nil {
		return result, err
	}
	if len(batch) == 0 {
		r.logger.Debug("no new transactions", zap.Uint64("checkpoint", checkpoint))
		return result, nil
	}

	for _, tx := range batch {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := r.transformer.Process(ctx, tx); err != nil {
			return result, fmt.Errorf("process tx %s at %d: %w", tx.TxHash, tx.BlockHeight, err)
		}
		result.Transactions++
		metrics.TransactionsProcessed.WithLabelValues(name).Inc()
	}

	flushStart := time.Now()
	if err := r.transformer.Flush(ctx); err != nil {
		return result, fmt.Errorf("flush: %w", err)
	}
	metrics.FlushDuration.WithLabelValues(name).Observe(time.Since(flushStart).Seconds())

	last := batch[len(batch)-1].BlockHeight
	if last > checkpoint {
		if err := r.checkpoint.Save(ctx, last); err != nil {
			return result, err
		}
		result.Checkpoint = last
		result.Advanced = true
		metrics.CheckpointHeight.WithLabelValues(name).Set(float64(last))
	}

	r.logger.Info("cycle complete",
		zap.Int("transactions", result.Transactions),
		zap.Uint64("from", checkpoint),
		zap.Uint64("checkpoint", result.Checkpoint),
	)
	return result, nil
}

func (r *Runner) loadCheckpoint(ctx context.Context) (uint64, error) {
	var height uint64
	err := r.retry.do(ctx, func(ctx context.Context) error {
		var err error
		height, err = r.checkpoint.Load(ctx)
		if err != nil {
			metrics.StoreRetries.WithLabelValues("load_checkpoint").Inc()
			r.logger.Warn("load checkpoint failed", zap.Error(err))
		}
		return err
	})
	return height, err
}

// fetchBatch returns raw transactions above checkpoint in ascending block order.
func (r *Runner) fetchBatch(ctx context.Context, checkpoint uint64) ([]model.RawTransaction, error) {
	var bodies []json.RawMessage
	err := r.retry.do(ctx, func(ctx context.Context) error {
		var err error
		bodies, err = r.store.GetAll(ctx, r.collections.RawTransactions(), storage.Query{
			After:  &storage.Bound{Field: blockHeightField, Value: checkpoint},
			SortBy: blockHeightField,
		})
		if err != nil {
			metrics.StoreRetries.WithLabelValues("fetch_batch").Inc()
			r.logger.Warn("fetch raw transactions failed", zap.Error(err), zap.Uint64("checkpoint", checkpoint))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch raw transactions: %w", err)
	}

	batch := make([]model.RawTransaction, 0, len(bodies))
	prev := checkpoint
	for _, body := range bodies {
		var tx model.RawTransaction
		if err := json.Unmarshal(body, &tx); err != nil {
			return nil, fmt.Errorf("parse raw transaction: %w", err)
		}
		if tx.BlockHeight <= checkpoint || tx.BlockHeight < prev {
			return nil, fmt.Errorf("raw transaction %s at %d out of order (checkpoint %d, previous %d)",
				tx.TxHash, tx.BlockHeight, checkpoint, prev)
		}
		prev = tx.BlockHeight
		batch = append(batch, tx)
	}
	return batch, nil
}
