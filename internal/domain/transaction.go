package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType tells whether money came in or went out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is one ledger record. Records are never edited in place;
// they are created and later removed wholesale.
type Transaction struct {
	ID          string          `json:"id"`
	Date        civil.Date      `json:"date"` // date the money moves, YYYY-MM-DD
	Merchant    string          `json:"merchant"`
	Amount      decimal.Decimal `json:"amount"` // positive; per-installment for installment members
	Type        TransactionType `json:"type"`
	Category    Category        `json:"category"`
	BankID      string          `json:"bankId"`
	Notes       string          `json:"notes,omitempty"`
	Installment *Installment    `json:"installment,omitempty"`
}

// Installment links a transaction to the other members of a parceled purchase.
// ID is shared by every member of one expansion.
type Installment struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	ID      string `json:"id"`
}

// IsIncome reports whether the transaction adds money.
func (t Transaction) IsIncome() bool { return t.Type == TypeIncome }

// IsExpense reports whether the transaction removes money.
func (t Transaction) IsExpense() bool { return t.Type == TypeExpense }

// BankAccount is a place money is held.
type BankAccount struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Color          string          `json:"color"`
	InitialBalance decimal.Decimal `json:"initialBalance"` // balance before any recorded transaction
}
