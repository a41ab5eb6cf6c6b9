package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ethereumIndexer/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

// Store keeps every collection in one JSONB table keyed by (collection, id).
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the documents table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection string, id any) (json.RawMessage, error) {
	var body []byte
	row := s.pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE collection=$1 AND id=$2`,
		collection, documentID(id),
	)
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%v: %w", collection, id, err)
	}
	return body, nil
}

// Put upserts one document.
func (s *Store) Put(ctx context.Context, collection string, doc storage.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id) DO UPDATE
		SET body = EXCLUDED.body, updated_at = now()
	`, collection, documentID(doc.ID), string(doc.Body))
	if err != nil {
		return fmt.Errorf("put %s/%v: %w", collection, doc.ID, err)
	}
	return nil
}

// PutMany copies documents in one round trip. Existing ids fail the copy.
func (s *Store) PutMany(ctx context.Context, collection string, docs []storage.Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, []any{collection, documentID(doc.ID), string(doc.Body)})
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"documents"},
		[]string{"collection", "id", "body"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", collection, err)
	}
	return nil
}

func (s *Store) GetAll(ctx context.Context, collection string, query storage.Query) ([]json.RawMessage, error) {
	sql, args := buildSelect(collection, query)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	return out, nil
}

func buildSelect(collection string, query storage.Query) (string, []any) {
	var sb strings.Builder
	args := []any{collection}
	sb.WriteString(`SELECT body FROM documents WHERE collection=$1`)

	if query.After != nil {
		args = append(args, query.After.Field, query.After.Value)
		fmt.Fprintf(&sb, ` AND (body->>$%d)::numeric > $%d`, len(args)-1, len(args))
	}

	sb.WriteString(` ORDER BY `)
	if query.SortBy != "" {
		args = append(args, query.SortBy)
		fmt.Fprintf(&sb, `(body->>$%d)::numeric `, len(args))
		if query.Descending {
			sb.WriteString(`DESC, `)
		} else {
			sb.WriteString(`ASC, `)
		}
	}
	sb.WriteString(`id`)
	return sb.String(), args
}

func documentID(id any) string {
	return fmt.Sprintf("%v", id)
}
