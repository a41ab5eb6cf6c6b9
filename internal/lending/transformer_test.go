package lending

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ethereumIndexer/internal/model"
	"ethereumIndexer/internal/storage"
	"ethereumIndexer/internal/transform"
)

func newTestTransformer(t *testing.T, store storage.Store) *Transformer {
	t.Helper()
	tr, err := New(transform.Params{
		Address:   common.HexToAddress(contractAddress),
		NetworkID: 1,
		Store:     store,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr.(*Transformer)
}

func loadLending(t *testing.T, store storage.Store, tr *Transformer, id int64) LendingRenting {
	t.Helper()
	body, err := store.Get(context.Background(), tr.collections.State(), id)
	if err != nil {
		t.Fatalf("Get %d: %v", id, err)
	}
	var lr LendingRenting
	if err := json.Unmarshal(body, &lr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return lr
}

func TestTransformerProcessAndFlush(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := newTestTransformer(t, store)

	foreign := rentedLog(0, "1", renterB, 1, 50)
	foreign.SenderAddress = "0x0000000000000000000000000000000000000001"
	undecoded := model.RawLogEvent{TxHash: "0xtx", SenderAddress: contractAddress, LogOffset: 9}

	tx := model.RawTransaction{
		TxHash:      "0xtx",
		BlockHeight: 100,
		LogEvents: []model.RawLogEvent{
			returnedLog(3, "1", 110),
			rentedLog(2, "1", renterA, 5, 100),
			foreign,
			undecoded,
			lentLog(1, "1"),
			logEvent(4, "Approval"),
		},
	}
	if err := tr.Process(ctx, tx); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := tr.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lr := loadLending(t, store, tr, 1)
	want := []Renting{{RenterAddress: renterA, RentDuration: 5, RentedAt: 100, ReturnedAt: At(110)}}
	if !reflect.DeepEqual(lr.Rentings, want) {
		t.Fatalf("unexpected rentings: %+v", lr.Rentings)
	}
	if lr.NFT.Address != nftAddr || lr.Lending.LendingID != 1 {
		t.Fatalf("unexpected aggregate: %+v", lr)
	}
	if tr.Table().Dirty() {
		t.Fatalf("flush must clear the dirty flag")
	}
}

func TestTransformerFlushNoopWhenClean(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := newTestTransformer(t, store)

	if err := tr.Process(ctx, model.RawTransaction{TxHash: "0xempty", BlockHeight: 1}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := tr.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	all, _ := store.GetAll(ctx, tr.collections.State(), storage.Query{})
	if len(all) != 0 {
		t.Fatalf("expected no writes, got %d", len(all))
	}
}

func TestTransformerHydratesAcrossSessions(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	first := newTestTransformer(t, store)
	err := first.Process(ctx, model.RawTransaction{
		TxHash:      "0x1",
		BlockHeight: 10,
		LogEvents:   []model.RawLogEvent{lentLog(0, "7"), rentedLog(1, "7", renterA, 2, 100)},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := first.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// A fresh transformer sees the persisted state before applying the return.
	second := newTestTransformer(t, store)
	err = second.Process(ctx, model.RawTransaction{
		TxHash:      "0x2",
		BlockHeight: 11,
		LogEvents:   []model.RawLogEvent{returnedLog(0, "7", 150)},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := second.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lr := loadLending(t, store, second, 7)
	want := []Renting{{RenterAddress: renterA, RentDuration: 2, RentedAt: 100, ReturnedAt: At(150)}}
	if !reflect.DeepEqual(lr.Rentings, want) {
		t.Fatalf("unexpected rentings: %+v", lr.Rentings)
	}
}

func TestTransformerReplayAfterResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := newTestTransformer(t, store)

	batch := []model.RawTransaction{
		{TxHash: "0x1", BlockHeight: 1, LogEvents: []model.RawLogEvent{lentLog(0, "2")}},
		{TxHash: "0x2", BlockHeight: 2, LogEvents: []model.RawLogEvent{rentedLog(0, "2", renterA, 1, 10)}},
		{TxHash: "0x3", BlockHeight: 3, LogEvents: []model.RawLogEvent{returnedLog(0, "2", 20)}},
	}
	run := func() {
		for _, tx := range batch {
			if err := tr.Process(ctx, tx); err != nil {
				t.Fatalf("Process: %v", err)
			}
		}
		if err := tr.Flush(ctx); err != nil {
			t.Fatalf("Flush: %v", err)
		}
	}

	run()
	once := loadLending(t, store, tr, 2)

	tr.Reset()
	run()
	twice := loadLending(t, store, tr, 2)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("replay changed state:\n got %+v\nwant %+v", twice, once)
	}
	if len(twice.Rentings) != 1 {
		t.Fatalf("expected a single renting, got %+v", twice.Rentings)
	}
}

func TestTransformerReplaySameSecondHandover(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := newTestTransformer(t, store)

	batch := []model.RawTransaction{
		{TxHash: "0x1", BlockHeight: 1, LogEvents: []model.RawLogEvent{lentLog(0, "6"), rentedLog(1, "6", renterA, 5, 100)}},
		{TxHash: "0x2", BlockHeight: 2, LogEvents: []model.RawLogEvent{
			rentedLog(1, "6", renterB, 3, 120),
			returnedLog(0, "6", 120),
		}},
	}
	run := func() {
		for _, tx := range batch {
			if err := tr.Process(ctx, tx); err != nil {
				t.Fatalf("Process: %v", err)
			}
		}
		if err := tr.Flush(ctx); err != nil {
			t.Fatalf("Flush: %v", err)
		}
	}

	run()
	once := loadLending(t, store, tr, 6)
	want := []Renting{
		{RenterAddress: renterA, RentDuration: 5, RentedAt: 100, ReturnedAt: At(120)},
		{RenterAddress: renterB, RentDuration: 3, RentedAt: 120},
	}
	if !reflect.DeepEqual(once.Rentings, want) {
		t.Fatalf("unexpected rentings: %+v", once.Rentings)
	}

	tr.Reset()
	run()
	if twice := loadLending(t, store, tr, 6); !reflect.DeepEqual(once, twice) {
		t.Fatalf("replay changed state:\n got %+v\nwant %+v", twice, once)
	}
}

func TestTransformerLogsSkippedEntries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tr, err := New(transform.Params{
		Address:   common.HexToAddress(contractAddress),
		NetworkID: 1,
		Store:     storage.NewMemoryStore(),
		Logger:    zap.New(core),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	foreign := lentLog(1, "8")
	foreign.SenderAddress = "0x0000000000000000000000000000000000000001"
	tx := model.RawTransaction{
		TxHash:      "0xtx",
		BlockHeight: 1,
		LogEvents:   []model.RawLogEvent{logEvent(0, "Transfer"), foreign},
	}
	if err := tr.Process(context.Background(), tx); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if n := logs.FilterMessage("skip event not tracked").Len(); n != 1 {
		t.Fatalf("expected one untracked event log, got %d", n)
	}
	if n := logs.FilterMessage("skip log from other contract").Len(); n != 1 {
		t.Fatalf("expected one foreign sender log, got %d", n)
	}
	if tr.(*Transformer).Table().Len() != 0 {
		t.Fatalf("skipped entries must not create aggregates")
	}
}

func TestTransformerWithRunner(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	params := transform.Params{
		Address:   common.HexToAddress(contractAddress),
		NetworkID: 1,
		Store:     store,
		Logger:    zap.NewNop(),
	}
	tr, err := New(params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw := []model.RawTransaction{
		{TxHash: "0x1", BlockHeight: 5, LogEvents: []model.RawLogEvent{lentLog(0, "3"), rentedLog(1, "3", renterB, 4, 500)}},
		{TxHash: "0x2", BlockHeight: 6, LogEvents: []model.RawLogEvent{returnedLog(0, "3", 600)}},
	}
	for _, tx := range raw {
		doc, _ := storage.NewDocument(tx.TxHash, tx)
		if err := store.Put(ctx, params.Collections().RawTransactions(), doc); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	runner := transform.NewRunner(transform.RunConfig{Once: true}, tr, params)
	result, err := runner.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Checkpoint != 6 || result.Transactions != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	lr := loadLending(t, store, tr.(*Transformer), 3)
	if len(lr.Rentings) != 1 || lr.Rentings[0].ReturnedAt != At(600) {
		t.Fatalf("unexpected rentings: %+v", lr.Rentings)
	}
}
