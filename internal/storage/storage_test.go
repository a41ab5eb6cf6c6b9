package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Get(ctx, "c", int64(1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	doc, err := NewDocument(int64(1), map[string]any{"block_height": 5})
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	if err := store.Put(ctx, "c", doc); err != nil {
		t.Fatalf("Put: %v", err)
	}
	doc.Body = json.RawMessage(`{"block_height":6}`)
	if err := store.Put(ctx, "c", doc); err != nil {
		t.Fatalf("Put: %v", err)
	}

	body, err := store.Get(ctx, "c", 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != `{"block_height":6}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestMemoryStorePutManyRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	docs := []Document{
		{ID: "a", Body: json.RawMessage(`{}`)},
		{ID: "b", Body: json.RawMessage(`{}`)},
	}
	if err := store.PutMany(ctx, "c", docs); err != nil {
		t.Fatalf("PutMany: %v", err)
	}
	if err := store.PutMany(ctx, "c", docs[:1]); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestMemoryStoreGetAllFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for id, height := range map[string]int{"a": 3, "b": 1, "c": 2, "d": 4} {
		body := json.RawMessage(`{"block_height":` + string(rune('0'+height)) + `}`)
		if err := store.Put(ctx, "raw", Document{ID: id, Body: body}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, err := store.GetAll(ctx, "raw", Query{
		After:  &Bound{Field: "block_height", Value: 1},
		SortBy: "block_height",
	})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	want := []string{`{"block_height":2}`, `{"block_height":3}`, `{"block_height":4}`}
	if !reflect.DeepEqual(bodies(got), want) {
		t.Fatalf("unexpected result: %v", bodies(got))
	}

	got, err = store.GetAll(ctx, "raw", Query{SortBy: "block_height", Descending: true})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(got) != 4 || string(got[0]) != `{"block_height":4}` {
		t.Fatalf("unexpected descending result: %v", bodies(got))
	}
}

func TestMemoryStoreGetAllSkipsMissingField(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Put(ctx, "c", Document{ID: 1, Body: json.RawMessage(`{"other":1}`)})

	got, err := store.GetAll(ctx, "c", Query{After: &Bound{Field: "block_height"}})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no documents, got %v", bodies(got))
	}
}

func TestJsonlReaderBatches(t *testing.T) {
	input := strings.Join([]string{
		`{"tx_hash":"0x1","block_height":1,"log_events":[]}`,
		``,
		`{"tx_hash":"0x2","block_height":2,"log_events":[]}`,
		`{"tx_hash":"0x3","block_height":3,"log_events":[]}`,
	}, "\n")
	reader := NewJsonlReader(strings.NewReader(input))

	first, err := reader.ReadBatch(2)
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}
	if len(first) != 2 || first[1].TxHash != "0x2" {
		t.Fatalf("unexpected first batch: %+v", first)
	}
	second, err := reader.ReadBatch(2)
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}
	if len(second) != 1 || second[0].BlockHeight != 3 {
		t.Fatalf("unexpected second batch: %+v", second)
	}
	if _, err := reader.ReadBatch(2); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestJsonlReaderReportsLine(t *testing.T) {
	reader := NewJsonlReader(strings.NewReader("{\"tx_hash\":\"0x1\"}\nnot json\n"))
	_, err := reader.ReadBatch(10)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}
}

func bodies(docs []json.RawMessage) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, string(doc))
	}
	return out
}
