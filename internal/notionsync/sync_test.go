package notionsync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/store"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// MockNotionService serves pages two per query and records writes.
type MockNotionService struct {
	pages []notionapi.Page

	created []notionapi.Properties
	updated []string
	deleted []string
	queries int

	createErr error
	queryErr  error
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, properties)
	return &notionapi.Page{ID: notionapi.ObjectID(fmt.Sprintf("new-%d", len(m.created)))}, nil
}

func (m *MockNotionService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	m.updated = append(m.updated, pageID)
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	m.queries++

	start := 0
	if req.StartCursor != "" {
		fmt.Sscanf(string(req.StartCursor), "%d", &start)
	}
	end := start + 2
	if end > len(m.pages) {
		end = len(m.pages)
	}
	resp := &notionapi.DatabaseQueryResponse{Results: m.pages[start:end]}
	if end < len(m.pages) {
		resp.HasMore = true
		resp.NextCursor = notionapi.Cursor(fmt.Sprint(end))
	}
	return resp, nil
}

func (m *MockNotionService) DeletePage(ctx context.Context, pageID string) error {
	m.deleted = append(m.deleted, pageID)
	return nil
}

func txPage(pageID, txID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			PropTransactionID: &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: txID}},
			},
		},
	}
}

func seededLedger() *store.Ledger {
	return store.NewLedger(store.NewMemoryBlobStore())
}

func TestSyncTransactions_CreatesMissing(t *testing.T) {
	notion := &MockNotionService{
		pages: []notionapi.Page{txPage("p1", "1"), txPage("p2", "2"), txPage("p3", "3")},
	}

	result, err := SyncTransactions(context.Background(), seededLedger(), notion, "db", Options{})
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}

	if result.Created != 4 || result.Skipped != 3 {
		t.Errorf("result = %+v, want 4 created and 3 skipped", result)
	}
	if notion.queries != 2 {
		t.Errorf("expected 2 paginated queries, got %d", notion.queries)
	}
	if len(notion.updated) != 0 || len(notion.deleted) != 0 {
		t.Errorf("unexpected writes: updated=%v deleted=%v", notion.updated, notion.deleted)
	}
}

func TestSyncTransactions_DryRunWritesNothing(t *testing.T) {
	notion := &MockNotionService{pages: []notionapi.Page{txPage("p9", "gone")}}

	result, err := SyncTransactions(context.Background(), seededLedger(), notion, "db", Options{DryRun: true, DeleteStale: true})
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}

	if result.Created != 7 || result.Deleted != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(notion.created) != 0 || len(notion.deleted) != 0 {
		t.Error("dry run must not write to Notion")
	}
}

func TestSyncTransactions_DeleteStaleAndDuplicates(t *testing.T) {
	notion := &MockNotionService{
		pages: []notionapi.Page{
			txPage("p1", "1"),
			txPage("p1-dup", "1"),
			txPage("p-old", "deleted-tx"),
			{ID: "manual", Properties: notionapi.Properties{}},
		},
	}

	result, err := SyncTransactions(context.Background(), seededLedger(), notion, "db", Options{DeleteStale: true})
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}

	if result.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", result.Deleted)
	}
	want := map[string]bool{"p1-dup": true, "p-old": true}
	for _, id := range notion.deleted {
		if !want[id] {
			t.Errorf("unexpected page archived: %s", id)
		}
	}
}

func TestSyncTransactions_StaleKeptWithoutFlag(t *testing.T) {
	notion := &MockNotionService{pages: []notionapi.Page{txPage("p-old", "deleted-tx")}}

	if _, err := SyncTransactions(context.Background(), seededLedger(), notion, "db", Options{}); err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}
	if len(notion.deleted) != 0 {
		t.Errorf("pages archived without DeleteStale: %v", notion.deleted)
	}
}

func TestSyncTransactions_UpdateExisting(t *testing.T) {
	notion := &MockNotionService{pages: []notionapi.Page{txPage("p4", "4")}}

	result, err := SyncTransactions(context.Background(), seededLedger(), notion, "db", Options{UpdateExisting: true})
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}
	if result.Updated != 1 || len(notion.updated) != 1 || notion.updated[0] != "p4" {
		t.Errorf("result = %+v, updated = %v", result, notion.updated)
	}
}

func TestSyncTransactions_DateRange(t *testing.T) {
	notion := &MockNotionService{}
	opts := Options{
		From: civil.Date{Year: 2023, Month: time.October, Day: 3},
		To:   civil.Date{Year: 2023, Month: time.October, Day: 6},
	}

	result, err := SyncTransactions(context.Background(), seededLedger(), notion, "db", opts)
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}
	// Seeded transactions dated Oct 3, 5 and 6.
	if result.Created != 3 {
		t.Errorf("created = %d, want 3", result.Created)
	}
}

func TestSyncTransactions_Errors(t *testing.T) {
	t.Run("query failure is fatal", func(t *testing.T) {
		notion := &MockNotionService{queryErr: errors.New("unauthorized")}
		if _, err := SyncTransactions(context.Background(), seededLedger(), notion, "db", Options{}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("create failures are counted", func(t *testing.T) {
		notion := &MockNotionService{createErr: errors.New("rate limited")}
		result, err := SyncTransactions(context.Background(), seededLedger(), notion, "db", Options{})
		if err != nil {
			t.Fatalf("SyncTransactions: %v", err)
		}
		if result.Failed != 7 || result.Created != 0 {
			t.Errorf("result = %+v", result)
		}
	})
}

func TestSyncAccounts(t *testing.T) {
	notion := &MockNotionService{
		pages: []notionapi.Page{{
			ID: "acc-page",
			Properties: notionapi.Properties{
				PropAccountID: &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "bank_1"}}},
			},
		}},
	}

	result, err := SyncAccounts(context.Background(), seededLedger(), notion, "accounts-db", Options{})
	if err != nil {
		t.Fatalf("SyncAccounts: %v", err)
	}
	if result.Created != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestTransactionToNotionProperties(t *testing.T) {
	tx := domain.Transaction{
		ID:          "g-1-2",
		Date:        civil.Date{Year: 2024, Month: time.February, Day: 29},
		Merchant:    "Geladeira (2/10)",
		Amount:      decimal.RequireFromString("350.00"),
		Type:        domain.TypeExpense,
		Category:    domain.CategoryHousing,
		BankID:      "bank_2",
		Installment: &domain.Installment{Current: 2, Total: 10, ID: "g-1"},
	}

	props := TransactionToNotionProperties(tx, map[string]string{"bank_2": "Bradesco"})

	if got := props[PropBank].(notionapi.SelectProperty).Select.Name; got != "Bradesco" {
		t.Errorf("bank = %q", got)
	}
	if got := props[PropCategory].(notionapi.SelectProperty).Select.Name; got != "Habitação" {
		t.Errorf("category = %q", got)
	}
	if got := props[PropType].(notionapi.SelectProperty).Select.Name; got != "Despesa" {
		t.Errorf("type = %q", got)
	}
	if got := props[PropAmount].(notionapi.NumberProperty).Number; got != 350 {
		t.Errorf("amount = %v", got)
	}
	if got := props[PropInstallment].(notionapi.RichTextProperty).RichText[0].Text.Content; got != "2/10" {
		t.Errorf("installment = %q", got)
	}
	if _, ok := props[PropNotes]; ok {
		t.Error("empty notes should be omitted")
	}

	start := time.Time(*props[PropDate].(notionapi.DateProperty).Date.Start)
	if start.Year() != 2024 || start.Month() != time.February || start.Day() != 29 {
		t.Errorf("date = %v", start)
	}

	if got := TransactionToNotionProperties(tx, nil)[PropBank].(notionapi.SelectProperty).Select.Name; got != "bank_2" {
		t.Errorf("unknown bank should fall back to id, got %q", got)
	}
}
