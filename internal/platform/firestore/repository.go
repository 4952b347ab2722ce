package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
)

// Document pairs a decoded value with its Firestore document metadata.
type Document[T any] struct {
	ID         string
	Data       T
	CreateTime time.Time
	UpdateTime time.Time
}

// Decoder turns a raw snapshot into a typed value. The default decoder
// uses DataTo, which is enough for structs with firestore tags.
type Decoder[T any] func(doc *firestore.DocumentSnapshot) (T, error)

// QueryBuilder narrows the collection query before it runs.
type QueryBuilder func(query firestore.Query) firestore.Query

// BaseRepository gives typed access to a single collection. Concrete
// repositories embed it and add their own queries on top.
type BaseRepository[T any] struct {
	provider   *Provider
	collection string
	decode     Decoder[T]
}

// NewBaseRepository builds typed access to collection. A nil decoder
// falls back to snapshot DataTo.
func NewBaseRepository[T any](provider *Provider, collection string, decode Decoder[T]) *BaseRepository[T] {
	if decode == nil {
		decode = func(doc *firestore.DocumentSnapshot) (T, error) {
			var value T
			if err := doc.DataTo(&value); err != nil {
				return value, fmt.Errorf("decode document %q: %w", doc.Ref.ID, err)
			}
			return value, nil
		}
	}
	return &BaseRepository[T]{provider: provider, collection: collection, decode: decode}
}

func (r *BaseRepository[T]) op(action string) string {
	return r.collection + "." + action
}

// DocumentRef resolves the document reference for id.
func (r *BaseRepository[T]) DocumentRef(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, errors.New("firestore: document id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, WrapError(r.op("ref"), err)
	}
	return client.Collection(r.collection).Doc(trimmed), nil
}

// Set writes value at id, replacing any existing document.
func (r *BaseRepository[T]) Set(ctx context.Context, id string, value T) error {
	ref, err := r.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, value); err != nil {
		return WrapError(r.op("set"), err)
	}
	return nil
}

// Get loads and decodes the document with the given id.
func (r *BaseRepository[T]) Get(ctx context.Context, id string) (Document[T], error) {
	ref, err := r.DocumentRef(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snapshot, err := ref.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(r.op("get"), err)
	}
	data, err := r.decode(snapshot)
	if err != nil {
		return Document[T]{}, WrapError(r.op("get"), err)
	}
	return documentFromSnapshot(snapshot, data), nil
}

// Query runs the collection query, optionally narrowed by build, and
// decodes every matching document.
func (r *BaseRepository[T]) Query(ctx context.Context, build QueryBuilder) ([]Document[T], error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, WrapError(r.op("query"), err)
	}

	query := client.Collection(r.collection).Query
	if build != nil {
		query = build(query)
	}

	snapshots, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, WrapError(r.op("query"), err)
	}

	docs := make([]Document[T], 0, len(snapshots))
	for _, snapshot := range snapshots {
		data, err := r.decode(snapshot)
		if err != nil {
			return nil, WrapError(r.op("query"), err)
		}
		docs = append(docs, documentFromSnapshot(snapshot, data))
	}
	return docs, nil
}

func documentFromSnapshot[T any](snapshot *firestore.DocumentSnapshot, data T) Document[T] {
	return Document[T]{
		ID:         snapshot.Ref.ID,
		Data:       data,
		CreateTime: snapshot.CreateTime,
		UpdateTime: snapshot.UpdateTime,
	}
}
