package store

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultAccounts is written the first time the accounts collection is read.
func DefaultAccounts() []domain.BankAccount {
	return []domain.BankAccount{
		{ID: "bank_1", Name: "Nubank", Color: "#820ad1", InitialBalance: decimal.RequireFromString("1500.00")},
		{ID: "bank_2", Name: "Bradesco", Color: "#cc092f", InitialBalance: decimal.RequireFromString("5000.00")},
		{ID: "bank_3", Name: "Neon", Color: "#00b4d8", InitialBalance: decimal.RequireFromString("800.00")},
	}
}

// DefaultTransactions is written the first time the transactions collection is read.
func DefaultTransactions() []domain.Transaction {
	day := func(d int) civil.Date { return civil.Date{Year: 2023, Month: time.October, Day: d} }
	return []domain.Transaction{
		{ID: "1", Date: day(1), Merchant: "Supermercado Silva", Amount: decimal.RequireFromString("124.50"), Type: domain.TypeExpense, Category: domain.CategoryFood, BankID: "bank_1"},
		{ID: "2", Date: day(2), Merchant: "Posto Shell", Amount: decimal.RequireFromString("45.00"), Type: domain.TypeExpense, Category: domain.CategoryTransport, BankID: "bank_2"},
		{ID: "3", Date: day(3), Merchant: "Salário Tech Corp", Amount: decimal.RequireFromString("3500.00"), Type: domain.TypeIncome, Category: domain.CategorySalary, BankID: "bank_1"},
		{ID: "4", Date: day(5), Merchant: "Netflix", Amount: decimal.RequireFromString("15.99"), Type: domain.TypeExpense, Category: domain.CategoryEntertainment, BankID: "bank_3"},
		{ID: "5", Date: day(6), Merchant: "Conta de Luz", Amount: decimal.RequireFromString("120.00"), Type: domain.TypeExpense, Category: domain.CategoryUtilities, BankID: "bank_2"},
		{ID: "6", Date: day(8), Merchant: "Farmácia Pague Menos", Amount: decimal.RequireFromString("32.40"), Type: domain.TypeExpense, Category: domain.CategoryHealth, BankID: "bank_1"},
		{ID: "7", Date: day(10), Merchant: "Amazon Brasil", Amount: decimal.RequireFromString("89.99"), Type: domain.TypeExpense, Category: domain.CategoryShopping, BankID: "bank_3"},
	}
}
