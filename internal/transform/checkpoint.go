package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ethereumIndexer/internal/storage"
)

// checkpointID is the _id of the checkpoint singleton.
const checkpointID int64 = 1

// Checkpoint is the last block height whose transactions were applied and flushed.
type Checkpoint struct {
	ID          int64  `json:"_id"`
	BlockHeight uint64 `json:"block_height"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// CheckpointStore keeps the checkpoint singleton in a storage collection.
type CheckpointStore struct {
	store      storage.Store
	collection string
}

func NewCheckpointStore(store storage.Store, collection string) *CheckpointStore {
	return &CheckpointStore{store: store, collection: collection}
}

// Load returns the stored height, or 0 when no checkpoint exists yet.
func (c *CheckpointStore) Load(ctx context.Context) (uint64, error) {
	body, err := c.store.Get(ctx, c.collection, checkpointID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(body, &cp); err != nil {
		return 0, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp.BlockHeight, nil
}

func (c *CheckpointStore) Save(ctx context.Context, height uint64) error {
	doc, err := storage.NewDocument(checkpointID, Checkpoint{
		ID:          checkpointID,
		BlockHeight: height,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := c.store.Put(ctx, c.collection, doc); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
