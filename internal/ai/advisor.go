package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// AdvisorContextLimit caps how many of the newest transactions are sent.
const AdvisorContextLimit = 50

const advisorSystemInstruction = "Você é um assistente financeiro útil. Seja encorajador, mas realista. Fale sempre em Português."

// AdvisorError reports a failed advice request.
type AdvisorError struct {
	Reason string
	Err    error
}

func (e *AdvisorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("advisor unavailable: %s: %v", e.Reason, e.Err)
	}
	return "advisor unavailable: " + e.Reason
}

func (e *AdvisorError) Unwrap() error {
	return e.Err
}

// Advisor answers free-form questions about the user's spending.
type Advisor struct {
	gen   ContentGenerator
	model string
}

// NewAdvisor creates an advisor. An empty model uses DefaultModelName.
func NewAdvisor(gen ContentGenerator, model string) *Advisor {
	if model == "" {
		model = DefaultModelName
	}
	return &Advisor{gen: gen, model: model}
}

type advisorEntry struct {
	Date     civil.Date             `json:"date"`
	Merchant string                 `json:"merchant"`
	Amount   decimal.Decimal        `json:"amount"`
	Category domain.Category        `json:"category"`
	Type     domain.TransactionType `json:"type"`
}

// advisorContext serializes the first AdvisorContextLimit transactions.
func advisorContext(txs []domain.Transaction) (string, error) {
	if len(txs) > AdvisorContextLimit {
		txs = txs[:AdvisorContextLimit]
	}
	entries := make([]advisorEntry, 0, len(txs))
	for _, tx := range txs {
		entries = append(entries, advisorEntry{
			Date:     tx.Date,
			Merchant: tx.Merchant,
			Amount:   tx.Amount,
			Category: tx.Category,
			Type:     tx.Type,
		})
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Ask sends the question with the newest transactions as context and returns
// the model's Markdown answer.
func (a *Advisor) Ask(ctx context.Context, question string, txs []domain.Transaction) (string, error) {
	data, err := advisorContext(txs)
	if err != nil {
		return "", &AdvisorError{Reason: "encode context", Err: err}
	}

	prompt := "Você é um consultor financeiro pessoal.\n" +
		"Aqui está uma lista das transações recentes do usuário: " + data + ".\n\n" +
		"Pergunta do Usuário: \"" + question + "\"\n\n" +
		"Forneça uma resposta útil, concisa e acionável com base nos dados, se relevante. " +
		"Responda em Português do Brasil. Use markdown para formatação."

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(advisorSystemInstruction, genai.RoleUser),
	}

	resp, err := a.gen.GenerateContent(ctx, a.model, genai.Text(prompt), config)
	if err != nil {
		return "", &AdvisorError{Reason: "generate content", Err: err}
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", &AdvisorError{Reason: "empty response from model"}
	}

	log := logger.FromContext(ctx)

	log.Info().
		Int("context_transactions", min(len(txs), AdvisorContextLimit)).
		Int("answer_length", len(answer)).
		Msg("Advisor answered")

	return answer, nil
}
