package store

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/shopspring/decimal"
)

// failingBlobStore returns the configured errors from Get and Put.
type failingBlobStore struct {
	getErr error
	putErr error
	data   map[string][]byte
}

func (f *failingBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if d, ok := f.data[key]; ok {
		return d, nil
	}
	return nil, ErrNotFound
}

func (f *failingBlobStore) Put(ctx context.Context, key string, data []byte) error {
	return f.putErr
}

func (f *failingBlobStore) Close() error { return nil }

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(&bytes.Buffer{}))
}

func TestLedger_SeedsOnFirstLoad(t *testing.T) {
	ctx := testContext()
	blobs := NewMemoryBlobStore()
	l := NewLedger(blobs)

	txs, err := l.LoadTransactions(ctx)
	if err != nil {
		t.Fatalf("LoadTransactions: %v", err)
	}
	if len(txs) != 7 {
		t.Fatalf("expected 7 seeded transactions, got %d", len(txs))
	}
	if _, err := blobs.Get(ctx, KeyTransactions); err != nil {
		t.Errorf("seed was not persisted: %v", err)
	}

	accounts, err := l.LoadAccounts(ctx)
	if err != nil {
		t.Fatalf("LoadAccounts: %v", err)
	}
	if len(accounts) != 3 || accounts[0].Name != "Nubank" {
		t.Errorf("unexpected seeded accounts: %+v", accounts)
	}
}

func TestLedger_EmptyListIsNotReseeded(t *testing.T) {
	ctx := testContext()
	l := NewLedger(NewMemoryBlobStore())

	if err := l.SaveTransactions(ctx, nil); err != nil {
		t.Fatalf("SaveTransactions: %v", err)
	}
	txs, err := l.LoadTransactions(ctx)
	if err != nil {
		t.Fatalf("LoadTransactions: %v", err)
	}
	if txs == nil || len(txs) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", txs)
	}
}

func TestLedger_AppendPrependsInOrder(t *testing.T) {
	ctx := testContext()
	l := NewLedger(NewMemoryBlobStore())
	day := civil.Date{Year: 2023, Month: 10, Day: 1}
	if err := l.SaveTransactions(ctx, []domain.Transaction{{ID: "old", Date: day}}); err != nil {
		t.Fatal(err)
	}

	updated, err := l.AppendTransactions(ctx,
		domain.Transaction{ID: "a", Date: day, Amount: decimal.NewFromInt(1)},
		domain.Transaction{ID: "b", Date: day, Amount: decimal.NewFromInt(2)},
	)
	if err != nil {
		t.Fatalf("AppendTransactions: %v", err)
	}

	want := []string{"a", "b", "old"}
	if len(updated) != len(want) {
		t.Fatalf("expected %d transactions, got %d", len(want), len(updated))
	}
	for i, id := range want {
		if updated[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, updated[i].ID, id)
		}
	}

	reloaded, err := l.LoadTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded) != 3 || !reloaded[1].Amount.Equal(decimal.NewFromInt(2)) {
		t.Errorf("reloaded list does not match: %+v", reloaded)
	}
}

func TestLedger_RejectsUnreadableRecords(t *testing.T) {
	ctx := testContext()
	l := NewLedger(NewMemoryBlobStore())

	before, err := l.LoadTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// No date: civil.Date{} encodes as 0000-00-00, which does not parse.
	_, err = l.AppendTransactions(ctx, domain.Transaction{ID: "undated", Amount: decimal.NewFromInt(5)})
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.Op != "encode" {
		t.Fatalf("expected encode StoreError, got %v", err)
	}

	after, err := l.LoadTransactions(ctx)
	if err != nil {
		t.Fatalf("collection unreadable after rejected write: %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("rejected write changed the list: %d -> %d", len(before), len(after))
	}
	for _, tx := range after {
		if tx.ID == "undated" {
			t.Error("rejected transaction was stored")
		}
	}
}

func TestLedger_RemoveTransaction(t *testing.T) {
	ctx := testContext()
	l := NewLedger(NewMemoryBlobStore())

	updated, err := l.RemoveTransaction(ctx, "3")
	if err != nil {
		t.Fatalf("RemoveTransaction: %v", err)
	}
	if len(updated) != 6 {
		t.Fatalf("expected 6 transactions, got %d", len(updated))
	}
	for _, tx := range updated {
		if tx.ID == "3" {
			t.Error("transaction 3 still present")
		}
	}

	unchanged, err := l.RemoveTransaction(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("RemoveTransaction unknown: %v", err)
	}
	if len(unchanged) != 6 {
		t.Errorf("unknown id changed the list: %d", len(unchanged))
	}
}

func TestLedger_Accounts(t *testing.T) {
	ctx := testContext()
	l := NewLedger(NewMemoryBlobStore())

	updated, err := l.AppendAccount(ctx, domain.BankAccount{ID: "bank_4", Name: "Inter", Color: "#ff7a00"})
	if err != nil {
		t.Fatalf("AppendAccount: %v", err)
	}
	if len(updated) != 4 || updated[3].ID != "bank_4" {
		t.Fatalf("account not appended at the end: %+v", updated)
	}

	updated, err = l.RemoveAccount(ctx, "bank_1")
	if err != nil {
		t.Fatalf("RemoveAccount: %v", err)
	}
	if len(updated) != 3 || updated[0].ID != "bank_2" {
		t.Errorf("unexpected accounts after removal: %+v", updated)
	}
}

func TestLedger_Errors(t *testing.T) {
	ctx := testContext()
	boom := errors.New("disk on fire")

	tests := []struct {
		name   string
		blobs  *failingBlobStore
		wantOp string
	}{
		{"get fails", &failingBlobStore{getErr: boom}, "load"},
		{"seed write fails", &failingBlobStore{putErr: boom}, "save"},
		{"corrupt json", &failingBlobStore{data: map[string][]byte{KeyTransactions: []byte("{not json")}}, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLedger(tt.blobs).LoadTransactions(ctx)
			var storeErr *StoreError
			if !errors.As(err, &storeErr) {
				t.Fatalf("expected *StoreError, got %v", err)
			}
			if storeErr.Op != tt.wantOp || storeErr.Collection != KeyTransactions {
				t.Errorf("unexpected error fields: %+v", storeErr)
			}
		})
	}

	_, err := NewLedger(&failingBlobStore{getErr: boom}).LoadAccounts(ctx)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestMemoryBlobStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBlobStore()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	in := []byte("abc")
	if err := m.Put(ctx, "k", in); err != nil {
		t.Fatal(err)
	}
	in[0] = 'x'

	out, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "abc" {
		t.Errorf("stored data was aliased: %q", out)
	}
}
