// Package store persists the ledger's two collections, transactions and bank
// accounts, as JSON documents on top of a pluggable blob backend.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Collection keys.
const (
	KeyTransactions = "transactions"
	KeyAccounts     = "bankAccounts"
)

// ErrNotFound is returned by BlobStore.Get when the key was never written.
var ErrNotFound = errors.New("blob not found")

// BlobStore is a minimal key/value backend holding one serialized document
// per key. Implementations must be safe for concurrent use.
type BlobStore interface {
	// Get returns the stored bytes for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the bytes stored under key.
	Put(ctx context.Context, key string, data []byte) error

	// Close releases backend resources.
	Close() error
}

// StoreError reports a failed read or write of a ledger collection.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
