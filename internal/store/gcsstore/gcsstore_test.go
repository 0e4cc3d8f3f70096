package gcsstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dvloznov/geminifin/internal/gcs"
	"github.com/dvloznov/geminifin/internal/store"
)

// MockObjectStorage is a mock implementation of gcs.ObjectStorage for testing.
type MockObjectStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	ReadErr  error
	WriteErr error
}

func newMockObjectStorage() *MockObjectStorage {
	return &MockObjectStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *MockObjectStorage) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	data, ok := m.objects[bucket+"/"+object]
	if !ok {
		return nil, gcs.ErrObjectNotFound
	}
	return data, nil
}

func (m *MockObjectStorage) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.objects[bucket+"/"+object] = data
	m.types[bucket+"/"+object] = contentType
	return nil
}

func TestStore_ObjectLayout(t *testing.T) {
	ctx := context.Background()
	objects := newMockObjectStorage()
	s := New(objects, "finance", "ledger")

	if _, err := s.Get(ctx, store.KeyTransactions); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}

	if err := s.Put(ctx, store.KeyAccounts, []byte("[]")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := objects.objects["finance/ledger/bankAccounts.json"]; !ok {
		t.Errorf("object not written at expected path: %v", objects.objects)
	}
	if got := objects.types["finance/ledger/bankAccounts.json"]; got != "application/json" {
		t.Errorf("content type = %q", got)
	}

	data, err := s.Get(ctx, store.KeyAccounts)
	if err != nil || string(data) != "[]" {
		t.Errorf("Get = %q, %v", data, err)
	}
}

func TestStore_SeedsThroughLedger(t *testing.T) {
	ctx := context.Background()
	objects := newMockObjectStorage()
	ledger := store.NewLedger(New(objects, "finance", ""))

	accounts, err := ledger.LoadAccounts(ctx)
	if err != nil {
		t.Fatalf("LoadAccounts: %v", err)
	}
	if len(accounts) != 3 {
		t.Errorf("expected 3 seeded accounts, got %d", len(accounts))
	}
	if _, ok := objects.objects["finance/bankAccounts.json"]; !ok {
		t.Error("seed was not written to the bucket")
	}
}

func TestStore_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("permission denied")
	objects := newMockObjectStorage()
	objects.ReadErr = boom

	_, err := store.NewLedger(New(objects, "finance", "")).LoadTransactions(ctx)
	var storeErr *store.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *store.StoreError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected cause to be preserved, got %v", err)
	}
}
