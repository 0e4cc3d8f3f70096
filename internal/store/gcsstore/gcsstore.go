// Package gcsstore keeps ledger blobs as JSON objects in a GCS bucket.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/dvloznov/geminifin/internal/gcs"
	"github.com/dvloznov/geminifin/internal/store"
)

// Store is a store.BlobStore that writes each key to <prefix>/<key>.json.
type Store struct {
	objects gcs.ObjectStorage
	bucket  string
	prefix  string
	closer  func() error
}

// New creates a Store over an existing ObjectStorage. The caller owns objects.
func New(objects gcs.ObjectStorage, bucket, prefix string) *Store {
	return &Store{objects: objects, bucket: bucket, prefix: prefix}
}

// Open creates its own GCS client; Close releases it.
func Open(ctx context.Context, bucket, prefix string) (*Store, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	s := New(client, bucket, prefix)
	s.closer = client.Close
	return s, nil
}

func (s *Store) objectName(key string) string {
	return path.Join(s.prefix, key+".json")
}

// Get implements store.BlobStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.objects.Read(ctx, s.bucket, s.objectName(key))
	if errors.Is(err, gcs.ErrObjectNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gcsstore get %q: %w", key, err)
	}
	return data, nil
}

// Put implements store.BlobStore.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.objects.Write(ctx, s.bucket, s.objectName(key), "application/json", data); err != nil {
		return fmt.Errorf("gcsstore put %q: %w", key, err)
	}
	return nil
}

// Close implements store.BlobStore.
func (s *Store) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

var _ store.BlobStore = (*Store)(nil)
