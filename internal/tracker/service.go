// Package tracker is the application layer: it validates input, runs the
// ledger calculations over stored data and calls out to the AI collaborators.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/geminifin/internal/ai"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/ledger"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrTransactionNotFound is returned when deleting an unknown transaction.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrAccountNotFound is returned when an account id does not exist.
	ErrAccountNotFound = errors.New("bank account not found")
	// ErrAIUnavailable is returned when no AI client was configured.
	ErrAIUnavailable = errors.New("AI features are not configured")
)

// LedgerRepository is the persistence the service needs. *store.Ledger
// implements it.
type LedgerRepository interface {
	LoadTransactions(ctx context.Context) ([]domain.Transaction, error)
	LoadAccounts(ctx context.Context) ([]domain.BankAccount, error)
	AppendTransactions(ctx context.Context, txs ...domain.Transaction) ([]domain.Transaction, error)
	RemoveTransaction(ctx context.Context, id string) ([]domain.Transaction, error)
	AppendAccount(ctx context.Context, acc domain.BankAccount) ([]domain.BankAccount, error)
}

// Analyzer is satisfied by *ai.ReceiptAnalyzer.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (ai.ReceiptDraft, error)
}

// Adviser is satisfied by *ai.Advisor.
type Adviser interface {
	Ask(ctx context.Context, question string, txs []domain.Transaction) (string, error)
}

// Service exposes every ledger operation to the API and CLI.
type Service struct {
	repo     LedgerRepository
	analyzer Analyzer
	advisor  Adviser

	// Now returns the current instant; projections use it as "today".
	Now func() time.Time
}

// NewService creates a Service. analyzer and advisor may be nil, in which
// case the corresponding operations return ErrAIUnavailable.
func NewService(repo LedgerRepository, analyzer Analyzer, advisor Adviser) *Service {
	return &Service{
		repo:     repo,
		analyzer: analyzer,
		advisor:  advisor,
		Now:      time.Now,
	}
}

// Transactions returns the ledger newest-first, filtered by query when set.
func (s *Service) Transactions(ctx context.Context, query string) ([]domain.Transaction, error) {
	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("Transactions: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		return txs, nil
	}
	return ledger.FilterTransactions(txs, query), nil
}

// AddTransaction validates tx, assigns an id when missing and stores it at
// the front of the ledger.
func (s *Service) AddTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Merchant = strings.TrimSpace(tx.Merchant)

	if err := domain.ValidateTransaction(tx); err != nil {
		return domain.Transaction{}, err
	}
	if err := s.requireAccount(ctx, tx.BankID); err != nil {
		return domain.Transaction{}, err
	}

	if _, err := s.repo.AppendTransactions(ctx, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("transaction_id", tx.ID).
		Str("type", string(tx.Type)).
		Str("category", string(tx.Category)).
		Str("amount", tx.Amount.String()).
		Msg("Transaction added")

	return tx, nil
}

// AddInstallmentPurchase expands p into one record per month and stores
// them together.
func (s *Service) AddInstallmentPurchase(ctx context.Context, p domain.InstallmentPurchase) ([]domain.Transaction, error) {
	if p.Type == "" {
		p.Type = domain.TypeExpense
	}
	p.MerchantBase = strings.TrimSpace(p.MerchantBase)
	// Only the total was given: split it evenly, rounded to cents.
	if p.InstallmentAmount.IsZero() && p.TotalAmount.IsPositive() && p.Count >= 2 {
		p.InstallmentAmount = p.TotalAmount.DivRound(decimal.NewFromInt(int64(p.Count)), 2)
	}

	if err := domain.ValidateInstallmentPurchase(p); err != nil {
		return nil, err
	}
	if err := s.requireAccount(ctx, p.BankID); err != nil {
		return nil, err
	}

	records := ledger.ExpandInstallments(p)
	if _, err := s.repo.AppendTransactions(ctx, records...); err != nil {
		return nil, fmt.Errorf("AddInstallmentPurchase: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("group_id", records[0].Installment.ID).
		Int("count", len(records)).
		Str("installment_amount", p.InstallmentAmount.String()).
		Msg("Installment purchase added")

	return records, nil
}

// DeleteTransaction removes one transaction by id.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	found := false
	for _, tx := range txs {
		if tx.ID == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}

	if _, err := s.repo.RemoveTransaction(ctx, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().Str("transaction_id", id).Msg("Transaction deleted")
	return nil
}

// Stats aggregates the whole ledger.
func (s *Service) Stats(ctx context.Context) (domain.FinancialStats, error) {
	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return domain.FinancialStats{}, fmt.Errorf("Stats: %w", err)
	}
	return ledger.ComputeStats(txs), nil
}

// Accounts returns every bank account.
func (s *Service) Accounts(ctx context.Context) ([]domain.BankAccount, error) {
	accounts, err := s.repo.LoadAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("Accounts: %w", err)
	}
	return accounts, nil
}

// AddAccount stores a new account with a generated id.
func (s *Service) AddAccount(ctx context.Context, acc domain.BankAccount) (domain.BankAccount, error) {
	if acc.ID == "" {
		acc.ID = "bank_" + uuid.NewString()
	}
	acc.Name = strings.TrimSpace(acc.Name)

	if err := domain.ValidateAccount(acc); err != nil {
		return domain.BankAccount{}, err
	}

	if _, err := s.repo.AppendAccount(ctx, acc); err != nil {
		return domain.BankAccount{}, fmt.Errorf("AddAccount: %w", err)
	}
	return acc, nil
}

// Projection returns the projection of one account as of asOf. A zero asOf
// means now.
func (s *Service) Projection(ctx context.Context, bankID string, asOf time.Time) (domain.AccountProjection, error) {
	accounts, err := s.repo.LoadAccounts(ctx)
	if err != nil {
		return domain.AccountProjection{}, fmt.Errorf("Projection: %w", err)
	}

	var account *domain.BankAccount
	for i := range accounts {
		if accounts[i].ID == bankID {
			account = &accounts[i]
			break
		}
	}
	if account == nil {
		return domain.AccountProjection{}, fmt.Errorf("%w: %s", ErrAccountNotFound, bankID)
	}

	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return domain.AccountProjection{}, fmt.Errorf("Projection: %w", err)
	}
	return ledger.ProjectAccount(account.ID, account.InitialBalance, txs, s.asOf(asOf)), nil
}

// Projections projects every account, in account order.
func (s *Service) Projections(ctx context.Context, asOf time.Time) ([]domain.AccountProjection, error) {
	accounts, err := s.repo.LoadAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("Projections: %w", err)
	}
	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("Projections: %w", err)
	}
	return ledger.ProjectAccounts(accounts, txs, s.asOf(asOf)), nil
}

// ScanReceipt returns a draft for the user to confirm; nothing is stored.
func (s *Service) ScanReceipt(ctx context.Context, image []byte, mimeType string) (ai.ReceiptDraft, error) {
	if s.analyzer == nil {
		return ai.ReceiptDraft{}, ErrAIUnavailable
	}
	return s.analyzer.Analyze(ctx, image, mimeType)
}

// Ask forwards the question to the advisor with the current ledger.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	if s.advisor == nil {
		return "", ErrAIUnavailable
	}
	if strings.TrimSpace(question) == "" {
		return "", &domain.ValidationError{Field: "question", Reason: "must not be empty"}
	}

	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return "", fmt.Errorf("Ask: %w", err)
	}
	return s.advisor.Ask(ctx, question, txs)
}

func (s *Service) asOf(t time.Time) time.Time {
	if t.IsZero() {
		return s.Now()
	}
	return t
}

func (s *Service) requireAccount(ctx context.Context, bankID string) error {
	accounts, err := s.repo.LoadAccounts(ctx)
	if err != nil {
		return fmt.Errorf("requireAccount: %w", err)
	}
	for _, acc := range accounts {
		if acc.ID == bankID {
			return nil
		}
	}
	return &domain.ValidationError{Field: "bankId", Reason: fmt.Sprintf("unknown bank account %q", bankID)}
}
