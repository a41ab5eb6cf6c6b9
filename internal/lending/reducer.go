package lending

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"ethereumIndexer/internal/metrics"
	"ethereumIndexer/internal/transform"
)

// Table is the in-memory set of aggregates keyed by lending id.
type Table = transform.Cache[uint64, *LendingRenting]

// ApplyStats counts what one Apply call did.
type ApplyStats struct {
	Applied  int
	Skipped  int
	Dangling int
}

// Reducer folds lending events into a Table.
type Reducer struct {
	table  *Table
	name   string
	logger *zap.Logger
}

func NewReducer(table *Table, name string, logger *zap.Logger) *Reducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reducer{table: table, name: name, logger: logger}
}

// Apply deduplicates events, orders them by lending id with Lent first and
// the rest in log order, and applies them. events is one transaction's buffer.
func (r *Reducer) Apply(events []Event) (ApplyStats, error) {
	var stats ApplyStats
	if len(events) == 0 {
		return stats, nil
	}

	ordered := dedup(events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return less(ordered[i], ordered[j])
	})

	for _, event := range ordered {
		applied, dangling, err := r.apply(event)
		if err != nil {
			return stats, err
		}
		stats.Dangling += dangling
		if !applied {
			stats.Skipped++
			continue
		}
		stats.Applied++
		r.table.MarkDirty()
		metrics.EventsApplied.WithLabelValues(r.name, string(event.Kind())).Inc()
	}
	return stats, nil
}

func (r *Reducer) apply(event Event) (bool, int, error) {
	if lent, ok := event.(Lent); ok {
		if _, exists := r.table.Get(lent.LendingID()); exists {
			return false, 0, nil
		}
		r.table.Put(lent.LendingID(), NewLendingRenting(lent))
		return true, 0, nil
	}

	lr, ok := r.table.Get(event.LendingID())
	if !ok {
		r.logger.Error("event for unknown lending",
			zap.String("event", string(event.Kind())),
			zap.Uint64("lending_id", event.LendingID()),
			zap.String("tx_hash", event.Meta().TxHash),
			zap.Uint64("log_offset", event.Meta().LogOffset),
		)
		metrics.EventsSkipped.WithLabelValues(r.name, metrics.ReasonUnknownAggregate).Inc()
		return false, 0, nil
	}

	dangling := 0
	switch e := event.(type) {
	case Rented:
		lr.Rentings, dangling = normalize(append(lr.Rentings, Renting{
			RenterAddress: e.RenterAddress,
			RentDuration:  e.RentDuration,
			RentedAt:      e.RentedAt,
		}), nil)
	case Returned:
		lr.Rentings, dangling = normalize(lr.Rentings, []uint64{e.ReturnedAt})
	case LendingStopped:
		lr.StoppedAt = At(e.StoppedAt)
	case CollateralClaimed:
		lr.CollateralClaimedAt = At(e.ClaimedAt)
	default:
		return false, 0, fmt.Errorf("unhandled lending event %T", event)
	}

	if dangling > 0 {
		r.logger.Warn("return without open renting",
			zap.Uint64("lending_id", event.LendingID()),
			zap.String("tx_hash", event.Meta().TxHash),
		)
		metrics.EventsSkipped.WithLabelValues(r.name, metrics.ReasonDanglingReturn).Add(float64(dangling))
	}
	return true, dangling, nil
}

// less orders by lending id, puts Lent first and keeps the remaining events
// in the order the contract emitted them.
func less(a, b Event) bool {
	if a.LendingID() != b.LendingID() {
		return a.LendingID() < b.LendingID()
	}
	if la, lb := a.Kind() == KindLent, b.Kind() == KindLent; la != lb {
		return la
	}
	ma, mb := a.Meta(), b.Meta()
	if ma.LogOffset != mb.LogOffset {
		return ma.LogOffset < mb.LogOffset
	}
	return ma.TxHash < mb.TxHash
}
