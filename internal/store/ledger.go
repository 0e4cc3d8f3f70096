package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/logger"
)

// Ledger is the repository for transactions and bank accounts. Each
// collection is one JSON array stored under its key; transactions are kept
// newest-first.
type Ledger struct {
	mu    sync.Mutex
	blobs BlobStore
}

// NewLedger creates a Ledger backed by blobs.
func NewLedger(blobs BlobStore) *Ledger {
	return &Ledger{blobs: blobs}
}

// Close closes the underlying blob store.
func (l *Ledger) Close() error {
	return l.blobs.Close()
}

// LoadTransactions returns the full transaction list. The first read of a
// never-written collection persists and returns the default dataset.
func (l *Ledger) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return load(ctx, l.blobs, KeyTransactions, DefaultTransactions)
}

// LoadAccounts returns every bank account, seeding defaults on first read.
func (l *Ledger) LoadAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return load(ctx, l.blobs, KeyAccounts, DefaultAccounts)
}

// SaveTransactions replaces the whole transaction list.
func (l *Ledger) SaveTransactions(ctx context.Context, txs []domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return save(ctx, l.blobs, KeyTransactions, txs)
}

// SaveAccounts replaces the whole account list.
func (l *Ledger) SaveAccounts(ctx context.Context, accounts []domain.BankAccount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return save(ctx, l.blobs, KeyAccounts, accounts)
}

// AppendTransactions prepends txs, in the given order, ahead of the stored
// list and returns the updated list.
func (l *Ledger) AppendTransactions(ctx context.Context, txs ...domain.Transaction) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := load(ctx, l.blobs, KeyTransactions, DefaultTransactions)
	if err != nil {
		return nil, err
	}

	updated := make([]domain.Transaction, 0, len(txs)+len(current))
	updated = append(updated, txs...)
	updated = append(updated, current...)

	if err := save(ctx, l.blobs, KeyTransactions, updated); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)

	log.Info().
		Int("added", len(txs)).
		Int("total", len(updated)).
		Msg("Transactions appended")

	return updated, nil
}

// RemoveTransaction deletes the transaction with the given id. Unknown ids
// leave the list unchanged.
func (l *Ledger) RemoveTransaction(ctx context.Context, id string) ([]domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := load(ctx, l.blobs, KeyTransactions, DefaultTransactions)
	if err != nil {
		return nil, err
	}

	updated := make([]domain.Transaction, 0, len(current))
	for _, tx := range current {
		if tx.ID != id {
			updated = append(updated, tx)
		}
	}

	if err := save(ctx, l.blobs, KeyTransactions, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// AppendAccount adds acc at the end of the account list.
func (l *Ledger) AppendAccount(ctx context.Context, acc domain.BankAccount) ([]domain.BankAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := load(ctx, l.blobs, KeyAccounts, DefaultAccounts)
	if err != nil {
		return nil, err
	}

	updated := append(current, acc)
	if err := save(ctx, l.blobs, KeyAccounts, updated); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("account_id", acc.ID).
		Str("name", acc.Name).
		Msg("Bank account added")

	return updated, nil
}

// RemoveAccount deletes the account with the given id. Transactions that
// reference it are left in place.
func (l *Ledger) RemoveAccount(ctx context.Context, id string) ([]domain.BankAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := load(ctx, l.blobs, KeyAccounts, DefaultAccounts)
	if err != nil {
		return nil, err
	}

	updated := make([]domain.BankAccount, 0, len(current))
	for _, acc := range current {
		if acc.ID != id {
			updated = append(updated, acc)
		}
	}

	if err := save(ctx, l.blobs, KeyAccounts, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func load[T any](ctx context.Context, blobs BlobStore, key string, seed func() []T) ([]T, error) {
	data, err := blobs.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		items := seed()
		if err := save(ctx, blobs, key, items); err != nil {
			return nil, err
		}
		log := logger.FromContext(ctx)
		log.Info().
			Str("collection", key).
			Int("count", len(items)).
			Msg("Seeded empty collection with default data")
		return items, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "load", Collection: key, Err: err}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &StoreError{Op: "decode", Collection: key, Err: err}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func save[T any](ctx context.Context, blobs BlobStore, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return &StoreError{Op: "encode", Collection: key, Err: err}
	}
	// Records that would not load back (a zero date encodes as 0000-00-00)
	// are rejected before they reach the blob.
	var check []T
	if err := json.Unmarshal(data, &check); err != nil {
		return &StoreError{Op: "encode", Collection: key, Err: err}
	}
	if err := blobs.Put(ctx, key, data); err != nil {
		return &StoreError{Op: "save", Collection: key, Err: err}
	}
	return nil
}
