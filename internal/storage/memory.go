package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// MemoryStore keeps documents in process. It backs tests and dry runs.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]json.RawMessage)}
}

func (s *MemoryStore) Get(_ context.Context, collection string, id any) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.collections[collection][idKey(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBody(body), nil
}

func (s *MemoryStore) Put(_ context.Context, collection string, doc Document) error {
	if !json.Valid(doc.Body) {
		return fmt.Errorf("document %v: invalid json", doc.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collection(collection)[idKey(doc.ID)] = cloneBody(doc.Body)
	return nil
}

func (s *MemoryStore) PutMany(_ context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docsByID := s.collection(collection)
	for _, doc := range docs {
		if !json.Valid(doc.Body) {
			return fmt.Errorf("document %v: invalid json", doc.ID)
		}
		key := idKey(doc.ID)
		if _, exists := docsByID[key]; exists {
			return fmt.Errorf("document %v: duplicate id", doc.ID)
		}
		docsByID[key] = cloneBody(doc.Body)
	}
	return nil
}

func (s *MemoryStore) GetAll(_ context.Context, collection string, query Query) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		key  string
		body json.RawMessage
		sort float64
	}

	rows := make([]row, 0, len(s.collections[collection]))
	for key, body := range s.collections[collection] {
		if query.After != nil {
			value, ok, err := numericField(body, query.After.Field)
			if err != nil {
				return nil, err
			}
			if !ok || value <= float64(query.After.Value) {
				continue
			}
		}

		r := row{key: key, body: cloneBody(body)}
		if query.SortBy != "" {
			value, _, err := numericField(body, query.SortBy)
			if err != nil {
				return nil, err
			}
			r.sort = value
		}
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if query.SortBy != "" && rows[i].sort != rows[j].sort {
			if query.Descending {
				return rows[i].sort > rows[j].sort
			}
			return rows[i].sort < rows[j].sort
		}
		return rows[i].key < rows[j].key
	})

	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.body)
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) collection(name string) map[string]json.RawMessage {
	docs, ok := s.collections[name]
	if !ok {
		docs = make(map[string]json.RawMessage)
		s.collections[name] = docs
	}
	return docs
}

func numericField(body json.RawMessage, field string) (float64, bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return 0, false, fmt.Errorf("decode document: %w", err)
	}
	raw, ok := fields[field]
	if !ok || string(raw) == "null" {
		return 0, false, nil
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return 0, false, fmt.Errorf("field %s is not numeric: %w", field, err)
	}
	value, err := strconv.ParseFloat(number.String(), 64)
	if err != nil {
		return 0, false, fmt.Errorf("field %s is not numeric: %w", field, err)
	}
	return value, true, nil
}

func idKey(id any) string {
	return fmt.Sprintf("%v", id)
}

func cloneBody(body json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(body))
	copy(out, body)
	return out
}
