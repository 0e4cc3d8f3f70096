package ledger

import (
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/shopspring/decimal"
)

// RecentTransactionsLimit caps FinancialStats.RecentTransactions.
const RecentTransactionsLimit = 10

// ComputeStats aggregates the full transaction list. The list is expected
// newest-first; RecentTransactions keeps that order and is never re-sorted.
func ComputeStats(txs []domain.Transaction) domain.FinancialStats {
	income := decimal.Zero
	expenses := decimal.Zero
	byCategory := make([]decimal.Decimal, len(domain.Categories))
	for i := range byCategory {
		byCategory[i] = decimal.Zero
	}

	for _, tx := range txs {
		switch tx.Type {
		case domain.TypeIncome:
			income = income.Add(tx.Amount)
		case domain.TypeExpense:
			expenses = expenses.Add(tx.Amount)
			// Unknown categories count as Other, matching Category.Color.
			idx := tx.Category.Index()
			if idx < 0 {
				idx = domain.CategoryOther.Index()
			}
			byCategory[idx] = byCategory[idx].Add(tx.Amount)
		}
	}

	// Built in canonical order so the stable sort breaks ties by declaration.
	totals := make([]domain.CategoryTotal, 0, len(domain.Categories))
	for i, c := range domain.Categories {
		if byCategory[i].IsZero() {
			continue
		}
		totals = append(totals, domain.CategoryTotal{
			Category:   c,
			TotalValue: byCategory[i],
			Color:      c.Color(),
		})
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].TotalValue.GreaterThan(totals[j].TotalValue)
	})

	n := len(txs)
	if n > RecentTransactionsLimit {
		n = RecentTransactionsLimit
	}
	recent := make([]domain.Transaction, n)
	copy(recent, txs[:n])

	return domain.FinancialStats{
		TotalIncome:        income,
		TotalExpenses:      expenses,
		NetWorth:           income.Sub(expenses),
		ExpensesByCategory: totals,
		RecentTransactions: recent,
	}
}

// SeriesPoint is one bar of the recent-activity chart.
type SeriesPoint struct {
	Date   civil.Date      `json:"date"`
	Amount decimal.Decimal `json:"amount"` // income positive, expense negative
}

// RecentSeries turns the recent transactions into an oldest-first series.
func RecentSeries(stats domain.FinancialStats) []SeriesPoint {
	recent := stats.RecentTransactions
	out := make([]SeriesPoint, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		tx := recent[i]
		amount := tx.Amount
		if tx.IsExpense() {
			amount = amount.Neg()
		}
		out = append(out, SeriesPoint{Date: tx.Date, Amount: amount})
	}
	return out
}

// FilterTransactions keeps transactions whose merchant or category contains
// query, case-insensitively. An empty query keeps everything.
func FilterTransactions(txs []domain.Transaction, query string) []domain.Transaction {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if q == "" ||
			strings.Contains(strings.ToLower(tx.Merchant), q) ||
			strings.Contains(strings.ToLower(string(tx.Category)), q) ||
			strings.Contains(strings.ToLower(tx.Category.Label()), q) {
			out = append(out, tx)
		}
	}
	return out
}
