package persistence

import (
	"context"
	"errors"

	"github.com/gowiki/gowiki/internal/storage"
)

// ObjectStore is the subset of an object storage client the adapter needs.
// It is satisfied by *storage.MinIOStorage.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// ObjectAdapter keeps each record as a single "<name>.json" object.
type ObjectAdapter struct {
	store ObjectStore
}

func NewObjectAdapter(store ObjectStore) *ObjectAdapter {
	return &ObjectAdapter{store: store}
}

func objectKey(name string) string { return name + ".json" }

func (o *ObjectAdapter) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := o.store.GetObject(ctx, objectKey(name))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return b, nil
}

func (o *ObjectAdapter) Save(ctx context.Context, name string, data []byte) error {
	return o.store.PutObject(ctx, objectKey(name), data)
}
