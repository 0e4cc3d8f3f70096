package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// ReceiptDraft is the partial transaction read from a receipt image. Fields
// the model could not read are nil; the user completes them before saving.
type ReceiptDraft struct {
	Merchant *string                `json:"merchant,omitempty"`
	Amount   *decimal.Decimal       `json:"amount,omitempty"`
	Date     *civil.Date            `json:"date,omitempty"`
	Category domain.Category        `json:"category"`
	Type     domain.TransactionType `json:"type"`
}

// AnalysisError reports a failed receipt analysis.
type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("receipt analysis failed: %s: %v", e.Reason, e.Err)
	}
	return "receipt analysis failed: " + e.Reason
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// ReceiptAnalyzer extracts transaction drafts from receipt photos.
type ReceiptAnalyzer struct {
	gen   ContentGenerator
	model string
}

// NewReceiptAnalyzer creates an analyzer. An empty model uses DefaultModelName.
func NewReceiptAnalyzer(gen ContentGenerator, model string) *ReceiptAnalyzer {
	if model == "" {
		model = DefaultModelName
	}
	return &ReceiptAnalyzer{gen: gen, model: model}
}

func receiptPrompt() string {
	var labels strings.Builder
	for _, c := range domain.Categories {
		labels.WriteString("   - " + c.Label() + "\n")
	}

	return "Você é um especialista em OCR e contabilidade brasileira. Analise a imagem deste recibo/cupom fiscal.\n" +
		"Extraia as seguintes informações com precisão:\n\n" +
		"1. **Merchant (Estabelecimento)**: O nome fantasia do local. Remova CNPJ, endereços ou códigos.\n" +
		"2. **Amount (Valor)**: O valor total da compra. Retorne um número. Se tiver \"R$\", ignore o símbolo.\n" +
		"3. **Date (Data)**: A data da transação. Converta qualquer formato encontrado (ex: DD/MM/YYYY) para o formato ISO padrão: YYYY-MM-DD.\n" +
		"4. **Category (Categoria)**: Classifique o gasto EXATAMENTE em uma destas categorias:\n" +
		labels.String() + "\n" +
		"Retorne APENAS o JSON."
}

var receiptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"merchant": {Type: genai.TypeString},
		"amount":   {Type: genai.TypeNumber},
		"date":     {Type: genai.TypeString},
		"category": {Type: genai.TypeString},
	},
}

type receiptResponse struct {
	Merchant *string         `json:"merchant"`
	Amount   json.RawMessage `json:"amount"`
	Date     string          `json:"date"`
	Category string          `json:"category"`
}

// Analyze sends the image to the model and maps its answer to a draft.
// Receipts are always drafted as expenses.
func (a *ReceiptAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (ReceiptDraft, error) {
	log := logger.FromContext(ctx)

	if len(image) == 0 {
		return ReceiptDraft{}, &AnalysisError{Reason: "empty image"}
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     image,
					},
				},
				{Text: receiptPrompt()},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   receiptSchema,
	}

	resp, err := a.gen.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return ReceiptDraft{}, &AnalysisError{Reason: "generate content", Err: err}
	}

	rawText := resp.Text()
	if strings.TrimSpace(rawText) == "" {
		return ReceiptDraft{}, &AnalysisError{Reason: "empty response from model"}
	}

	draft, err := parseReceipt(ctx, cleanModelJSON(rawText))
	if err != nil {
		log.Warn().Err(err).Str("raw_response", rawText).Msg("Unparsable receipt response")
		return ReceiptDraft{}, err
	}

	log.Info().
		Str("category", string(draft.Category)).
		Bool("has_amount", draft.Amount != nil).
		Bool("has_date", draft.Date != nil).
		Msg("Receipt analyzed")

	return draft, nil
}

func parseReceipt(ctx context.Context, clean string) (ReceiptDraft, error) {
	var raw receiptResponse
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return ReceiptDraft{}, &AnalysisError{Reason: "unmarshal JSON", Err: err}
	}

	draft := ReceiptDraft{
		Category: domain.MatchCategory(raw.Category),
		Type:     domain.TypeExpense,
	}

	if raw.Merchant != nil {
		if m := strings.TrimSpace(*raw.Merchant); m != "" {
			draft.Merchant = &m
		}
	}

	if len(raw.Amount) > 0 && string(raw.Amount) != "null" {
		var amount decimal.Decimal
		if err := amount.UnmarshalJSON(raw.Amount); err != nil {
			return ReceiptDraft{}, &AnalysisError{Reason: "parse amount", Err: err}
		}
		draft.Amount = &amount
	}

	if d := strings.TrimSpace(raw.Date); d != "" {
		if parsed, ok := parseReceiptDate(d); ok {
			draft.Date = &parsed
		} else {
			// Keep the other fields; the user supplies the date.
			log := logger.FromContext(ctx)
			log.Warn().Str("date", d).Msg("Ignoring unreadable receipt date")
		}
	}

	return draft, nil
}

// receiptDateLayouts are tried after ISO 8601. Brazilian receipts print
// dates day first.
var receiptDateLayouts = []string{"02/01/2006", "02-01-2006", "02.01.2006"}

func parseReceiptDate(s string) (civil.Date, bool) {
	if d, err := civil.ParseDate(s); err == nil {
		return d, true
	}
	for _, layout := range receiptDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}
