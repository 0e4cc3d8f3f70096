package domain

import "github.com/shopspring/decimal"

// FinancialStats is derived from the full transaction set on every read.
type FinancialStats struct {
	TotalIncome        decimal.Decimal `json:"totalIncome"`
	TotalExpenses      decimal.Decimal `json:"totalExpenses"`
	NetWorth           decimal.Decimal `json:"netWorth"`
	ExpensesByCategory []CategoryTotal `json:"expensesByCategory"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
}

// CategoryTotal is the expense sum of one category.
type CategoryTotal struct {
	Category   Category        `json:"category"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Color      string          `json:"color"`
}

// AccountProjection is the derived view of one bank account at a point in time.
type AccountProjection struct {
	BankID               string              `json:"bankId"`
	CurrentBalance       decimal.Decimal     `json:"currentBalance"`
	CurrentMonthExpenses decimal.Decimal     `json:"currentMonthExpenses"`
	ActiveInstallments   []ActiveInstallment `json:"activeInstallments"`
}

// ActiveInstallment describes a parceled purchase that still has payments
// dated after the projection instant.
type ActiveInstallment struct {
	GroupID              string          `json:"groupId"`
	Description          string          `json:"description"`
	TotalInstallments    int             `json:"totalInstallments"`
	RemainingCount       int             `json:"remainingCount"`
	PerInstallmentAmount decimal.Decimal `json:"perInstallmentAmount"`
}
