package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by Get when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// Document is a JSON body addressed by id within a collection. ID is an int64
// or a string; backends that keep typed ids (mongo) store it as given.
type Document struct {
	ID   any
	Body json.RawMessage
}

// Query narrows and orders GetAll. Both parts are pushed down to the backend.
type Query struct {
	// After keeps documents whose numeric After.Field is strictly greater than After.Value.
	After *Bound
	// SortBy orders by a numeric field; empty leaves the order unspecified.
	SortBy     string
	Descending bool
}

// Bound is a strict lower bound on a numeric document field.
type Bound struct {
	Field string
	Value uint64
}

// Store is a document store keyed by (collection, id).
type Store interface {
	Get(ctx context.Context, collection string, id any) (json.RawMessage, error)
	// Put replaces the document with the same id or inserts it.
	Put(ctx context.Context, collection string, doc Document) error
	// PutMany bulk inserts documents; ids must not exist yet.
	PutMany(ctx context.Context, collection string, docs []Document) error
	GetAll(ctx context.Context, collection string, query Query) ([]json.RawMessage, error)
	Close() error
}

// NewDocument marshals value into a Document with the given id.
func NewDocument(id any, value any) (Document, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Body: body}, nil
}
