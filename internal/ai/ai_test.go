package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// MockGenerator is a mock implementation of ContentGenerator for testing.
type MockGenerator struct {
	Response string
	Err      error

	Calls      int
	LastModel  string
	LastPrompt []*genai.Content
	LastConfig *genai.GenerateContentConfig
}

func (m *MockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.Calls++
	m.LastModel = model
	m.LastPrompt = contents
	m.LastConfig = config
	if m.Err != nil {
		return nil, m.Err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(m.Response, genai.RoleModel)},
		},
	}, nil
}

func promptText(contents []*genai.Content) string {
	var b strings.Builder
	for _, c := range contents {
		for _, p := range c.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func TestAnalyze_Success(t *testing.T) {
	gen := &MockGenerator{Response: `{"merchant":" Padaria Real ","amount":23.5,"date":"2024-05-02","category":"alimentação"}`}
	a := NewReceiptAnalyzer(gen, "")

	draft, err := a.Analyze(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if draft.Merchant == nil || *draft.Merchant != "Padaria Real" {
		t.Errorf("merchant = %v", draft.Merchant)
	}
	if draft.Amount == nil || !draft.Amount.Equal(decimal.RequireFromString("23.5")) {
		t.Errorf("amount = %v", draft.Amount)
	}
	if draft.Date == nil || *draft.Date != (civil.Date{Year: 2024, Month: 5, Day: 2}) {
		t.Errorf("date = %v", draft.Date)
	}
	if draft.Category != domain.CategoryFood {
		t.Errorf("category = %q, want Food", draft.Category)
	}
	if draft.Type != domain.TypeExpense {
		t.Errorf("type = %q, want expense", draft.Type)
	}

	if gen.LastModel != DefaultModelName {
		t.Errorf("model = %q", gen.LastModel)
	}
	if gen.LastConfig == nil || gen.LastConfig.ResponseMIMEType != "application/json" || gen.LastConfig.ResponseSchema == nil {
		t.Error("expected a JSON response schema in the request config")
	}
	blob := gen.LastPrompt[0].Parts[0].InlineData
	if blob == nil || blob.MIMEType != "image/jpeg" || len(blob.Data) != 2 {
		t.Errorf("image not attached as inline data: %+v", blob)
	}
	if !strings.Contains(promptText(gen.LastPrompt), "Alimentação") {
		t.Error("prompt should list the category labels")
	}
}

func TestAnalyze_PartialAndFenced(t *testing.T) {
	gen := &MockGenerator{Response: "```json\n{\"merchant\": null, \"amount\": null, \"category\": \"Astrologia\"}\n```"}

	draft, err := NewReceiptAnalyzer(gen, "gemini-test").Analyze(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if draft.Merchant != nil || draft.Amount != nil || draft.Date != nil {
		t.Errorf("expected missing fields to stay nil: %+v", draft)
	}
	if draft.Category != domain.CategoryOther {
		t.Errorf("unknown category should fall back to Other, got %q", draft.Category)
	}
	if gen.LastModel != "gemini-test" {
		t.Errorf("model = %q", gen.LastModel)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name  string
		gen   *MockGenerator
		image []byte
	}{
		{"empty image", &MockGenerator{Response: "{}"}, nil},
		{"remote failure", &MockGenerator{Err: errors.New("quota exceeded")}, []byte("x")},
		{"empty text", &MockGenerator{Response: "   "}, []byte("x")},
		{"not json", &MockGenerator{Response: "não consegui ler"}, []byte("x")},
		{"bad amount", &MockGenerator{Response: `{"amount":"R$ 10"}`}, []byte("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReceiptAnalyzer(tt.gen, "").Analyze(context.Background(), tt.image, "image/jpeg")
			var analysisErr *AnalysisError
			if !errors.As(err, &analysisErr) {
				t.Fatalf("expected *AnalysisError, got %v", err)
			}
		})
	}
}

func TestAnalyze_ReceiptDates(t *testing.T) {
	tests := []struct {
		name string
		date string
		want *civil.Date
	}{
		{"iso", "2024-03-15", &civil.Date{Year: 2024, Month: 3, Day: 15}},
		{"day first with slashes", "15/03/2024", &civil.Date{Year: 2024, Month: 3, Day: 15}},
		{"day first with dots", "02.05.2024", &civil.Date{Year: 2024, Month: 5, Day: 2}},
		{"unreadable", "ontem", nil},
		{"impossible day", "2024-02-30", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &MockGenerator{Response: `{"merchant":"Mercado","amount":12.5,"date":"` + tt.date + `","category":"Food"}`}
			draft, err := NewReceiptAnalyzer(gen, "").Analyze(context.Background(), []byte("x"), "image/jpeg")
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if diff := cmp.Diff(tt.want, draft.Date); diff != "" {
				t.Errorf("date mismatch (-want +got):\n%s", diff)
			}
			if draft.Merchant == nil || *draft.Merchant != "Mercado" || draft.Amount == nil {
				t.Errorf("other fields should survive a bad date: %+v", draft)
			}
		})
	}
}

func TestAsk_ContextLimitAndPrompt(t *testing.T) {
	var txs []domain.Transaction
	for i := 0; i < 60; i++ {
		txs = append(txs, domain.Transaction{
			ID:       fmt.Sprint(i),
			Date:     civil.Date{Year: 2024, Month: 1, Day: 1},
			Merchant: fmt.Sprintf("loja-%02d", i),
			Amount:   decimal.NewFromInt(int64(i + 1)),
			Type:     domain.TypeExpense,
			Category: domain.CategoryShopping,
			BankID:   "bank_secret",
		})
	}

	gen := &MockGenerator{Response: "  Gaste menos em **compras**.  "}
	answer, err := NewAdvisor(gen, "").Ask(context.Background(), "Onde posso economizar?", txs)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Gaste menos em **compras**." {
		t.Errorf("answer = %q", answer)
	}

	prompt := promptText(gen.LastPrompt)
	if !strings.Contains(prompt, "loja-49") || strings.Contains(prompt, "loja-50") {
		t.Error("expected exactly the first 50 transactions in the prompt")
	}
	if strings.Contains(prompt, "bank_secret") {
		t.Error("bank id should not be sent to the model")
	}
	if !strings.Contains(prompt, "Onde posso economizar?") {
		t.Error("question missing from prompt")
	}
	if gen.LastConfig == nil || gen.LastConfig.SystemInstruction == nil {
		t.Error("expected a system instruction")
	}
}

func TestAsk_Errors(t *testing.T) {
	for name, gen := range map[string]*MockGenerator{
		"remote failure": {Err: errors.New("unavailable")},
		"empty answer":   {Response: ""},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewAdvisor(gen, "").Ask(context.Background(), "oi", nil)
			var advisorErr *AdvisorError
			if !errors.As(err, &advisorErr) {
				t.Fatalf("expected *AdvisorError, got %v", err)
			}
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"chatter", "Aqui está: {\"a\":1} obrigado", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
