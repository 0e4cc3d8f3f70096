package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionRow is one ledger transaction in <dataset>.ledger_transactions.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	AccountID     string `bigquery:"account_id"`     // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED, partition column

	Merchant  string   `bigquery:"merchant"`  // REQUIRED STRING
	Amount    *big.Rat `bigquery:"amount"`    // REQUIRED NUMERIC, always positive
	Direction string   `bigquery:"direction"` // REQUIRED: income | expense

	CategoryName  string `bigquery:"category_name"`  // REQUIRED, canonical name
	CategoryLabel string `bigquery:"category_label"` // REQUIRED, pt-BR label

	Notes bigquery.NullString `bigquery:"notes"` // NULLABLE

	InstallmentGroupID bigquery.NullString `bigquery:"installment_group_id"` // NULLABLE
	InstallmentCurrent bigquery.NullInt64  `bigquery:"installment_current"`  // NULLABLE
	InstallmentTotal   bigquery.NullInt64  `bigquery:"installment_total"`    // NULLABLE

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// Save implements bigquery.ValueSaver. The transaction id doubles as the
// streaming insert id so a retried export does not duplicate rows.
func (r *TransactionRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"transaction_id":       r.TransactionID,
		"account_id":           r.AccountID,
		"transaction_date":     r.TransactionDate,
		"merchant":             r.Merchant,
		"amount":               r.Amount,
		"direction":            r.Direction,
		"category_name":        r.CategoryName,
		"category_label":       r.CategoryLabel,
		"notes":                r.Notes,
		"installment_group_id": r.InstallmentGroupID,
		"installment_current":  r.InstallmentCurrent,
		"installment_total":    r.InstallmentTotal,
		"exported_ts":          r.ExportedTS,
	}, r.TransactionID, nil
}

// AccountRow is one bank account in <dataset>.ledger_accounts.
type AccountRow struct {
	AccountID      string    `bigquery:"account_id"`      // REQUIRED
	AccountName    string    `bigquery:"account_name"`    // REQUIRED
	Color          string    `bigquery:"color"`           // REQUIRED
	InitialBalance *big.Rat  `bigquery:"initial_balance"` // REQUIRED NUMERIC
	ExportedTS     time.Time `bigquery:"exported_ts"`     // REQUIRED
}

// Save implements bigquery.ValueSaver with the account id as insert id.
func (r *AccountRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"account_id":      r.AccountID,
		"account_name":    r.AccountName,
		"color":           r.Color,
		"initial_balance": r.InitialBalance,
		"exported_ts":     r.ExportedTS,
	}, r.AccountID, nil
}

var (
	_ bigquery.ValueSaver = (*TransactionRow)(nil)
	_ bigquery.ValueSaver = (*AccountRow)(nil)
)

// TransactionToRow maps a ledger transaction onto its BigQuery row.
func TransactionToRow(tx domain.Transaction, exported time.Time) *TransactionRow {
	row := &TransactionRow{
		TransactionID:   tx.ID,
		AccountID:       tx.BankID,
		TransactionDate: tx.Date,
		Merchant:        tx.Merchant,
		Amount:          tx.Amount.Rat(),
		Direction:       string(tx.Type),
		CategoryName:    string(tx.Category),
		CategoryLabel:   tx.Category.Label(),
		ExportedTS:      exported,
	}
	if tx.Notes != "" {
		row.Notes = bigquery.NullString{StringVal: tx.Notes, Valid: true}
	}
	if tx.Installment != nil {
		row.InstallmentGroupID = bigquery.NullString{StringVal: tx.Installment.ID, Valid: true}
		row.InstallmentCurrent = bigquery.NullInt64{Int64: int64(tx.Installment.Current), Valid: true}
		row.InstallmentTotal = bigquery.NullInt64{Int64: int64(tx.Installment.Total), Valid: true}
	}
	return row
}

// AccountToRow maps a bank account onto its BigQuery row.
func AccountToRow(acc domain.BankAccount, exported time.Time) *AccountRow {
	return &AccountRow{
		AccountID:      acc.ID,
		AccountName:    acc.Name,
		Color:          acc.Color,
		InitialBalance: acc.InitialBalance.Rat(),
		ExportedTS:     exported,
	}
}

// RowToTransaction maps a row read back from BigQuery onto a ledger transaction.
func RowToTransaction(r *TransactionRow) (domain.Transaction, error) {
	if r.Amount == nil {
		return domain.Transaction{}, fmt.Errorf("RowToTransaction: %s: amount is null", r.TransactionID)
	}
	// NUMERIC carries nine fractional digits.
	amount, err := decimal.NewFromString(r.Amount.FloatString(9))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("RowToTransaction: %s: amount: %w", r.TransactionID, err)
	}

	tx := domain.Transaction{
		ID:       r.TransactionID,
		Date:     r.TransactionDate,
		Merchant: r.Merchant,
		Amount:   amount,
		Type:     domain.TransactionType(r.Direction),
		Category: domain.Category(r.CategoryName),
		BankID:   r.AccountID,
	}
	if r.Notes.Valid {
		tx.Notes = r.Notes.StringVal
	}
	if r.InstallmentGroupID.Valid {
		tx.Installment = &domain.Installment{
			ID:      r.InstallmentGroupID.StringVal,
			Current: int(r.InstallmentCurrent.Int64),
			Total:   int(r.InstallmentTotal.Int64),
		}
	}
	return tx, nil
}
