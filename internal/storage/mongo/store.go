package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ethereumIndexer/internal/storage"
)

// DefaultDatabase is the database the crawler writes raw transactions into.
const DefaultDatabase = "ethereum-indexer"

// Store maps each storage collection onto a mongo collection of the same name.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ storage.Store = (*Store)(nil)

func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) Get(ctx context.Context, collection string, id any) (json.RawMessage, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%v: %w", collection, id, err)
	}
	return toJSON(doc)
}

// Put replaces the document with the same _id, inserting it when absent.
func (s *Store) Put(ctx context.Context, collection string, doc storage.Document) error {
	body, err := toBSON(doc)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(collection).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: doc.ID}},
		body,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put %s/%v: %w", collection, doc.ID, err)
	}
	return nil
}

func (s *Store) PutMany(ctx context.Context, collection string, docs []storage.Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]any, 0, len(docs))
	for _, doc := range docs {
		body, err := toBSON(doc)
		if err != nil {
			return err
		}
		batch = append(batch, body)
	}
	if _, err := s.db.Collection(collection).InsertMany(ctx, batch); err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

func (s *Store) GetAll(ctx context.Context, collection string, query storage.Query) ([]json.RawMessage, error) {
	filter, opts := findArgs(query)
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var out []json.RawMessage
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		body, err := toJSON(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, body)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

func findArgs(query storage.Query) (bson.D, *options.FindOptions) {
	filter := bson.D{}
	if query.After != nil {
		filter = append(filter, bson.E{
			Key:   query.After.Field,
			Value: bson.D{{Key: "$gt", Value: int64(query.After.Value)}},
		})
	}

	opts := options.Find().SetAllowDiskUse(true)
	if query.SortBy != "" {
		order := 1
		if query.Descending {
			order = -1
		}
		opts.SetSort(bson.D{{Key: query.SortBy, Value: order}})
	}
	return filter, opts
}

// toBSON parses a JSON body as relaxed extended JSON and pins _id to doc.ID.
func toBSON(doc storage.Document) (bson.D, error) {
	var body bson.D
	if err := bson.UnmarshalExtJSON(doc.Body, false, &body); err != nil {
		return nil, fmt.Errorf("document %v: %w", doc.ID, err)
	}
	out := bson.D{{Key: "_id", Value: doc.ID}}
	for _, elem := range body {
		if elem.Key == "_id" {
			continue
		}
		out = append(out, elem)
	}
	return out, nil
}

func toJSON(doc bson.M) (json.RawMessage, error) {
	body, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return body, nil
}
