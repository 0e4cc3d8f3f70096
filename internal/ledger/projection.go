package ledger

import (
	"regexp"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/shopspring/decimal"
)

var installmentSuffix = regexp.MustCompile(`\s\(\d+/\d+\)$`)

// StripInstallmentSuffix removes a trailing " (k/N)" from a merchant name.
func StripInstallmentSuffix(merchant string) string {
	return installmentSuffix.ReplaceAllString(merchant, "")
}

// ProjectAccount computes the balance of one account as of asOf.
//
// Transactions dated after asOf's calendar date are not yet spent: they are
// left out of CurrentBalance but counted as remaining installments.
func ProjectAccount(bankID string, initialBalance decimal.Decimal, txs []domain.Transaction, asOf time.Time) domain.AccountProjection {
	today := civil.DateOf(asOf)

	balance := initialBalance
	monthExpenses := decimal.Zero
	groups := make(map[string][]domain.Transaction)

	for _, tx := range txs {
		if tx.BankID != bankID {
			continue
		}

		if !tx.Date.After(today) {
			switch tx.Type {
			case domain.TypeIncome:
				balance = balance.Add(tx.Amount)
			case domain.TypeExpense:
				balance = balance.Sub(tx.Amount)
			}
		}

		if tx.IsExpense() && tx.Date.Year == today.Year && tx.Date.Month == today.Month {
			monthExpenses = monthExpenses.Add(tx.Amount)
		}

		if tx.Installment != nil && tx.Installment.ID != "" {
			groups[tx.Installment.ID] = append(groups[tx.Installment.ID], tx)
		}
	}

	return domain.AccountProjection{
		BankID:               bankID,
		CurrentBalance:       balance,
		CurrentMonthExpenses: monthExpenses,
		ActiveInstallments:   activeInstallments(groups, today),
	}
}

type activeGroup struct {
	start civil.Date
	item  domain.ActiveInstallment
}

func activeInstallments(groups map[string][]domain.Transaction, today civil.Date) []domain.ActiveInstallment {
	active := make([]activeGroup, 0, len(groups))

	for groupID, members := range groups {
		sort.SliceStable(members, func(i, j int) bool {
			if members[i].Date != members[j].Date {
				return members[i].Date.Before(members[j].Date)
			}
			return members[i].Installment.Current < members[j].Installment.Current
		})

		remaining := 0
		for _, m := range members {
			if m.Date.After(today) {
				remaining++
			}
		}
		if remaining == 0 {
			continue
		}

		first := members[0]
		active = append(active, activeGroup{
			start: first.Date,
			item: domain.ActiveInstallment{
				GroupID:              groupID,
				Description:          StripInstallmentSuffix(first.Merchant),
				TotalInstallments:    first.Installment.Total,
				RemainingCount:       remaining,
				PerInstallmentAmount: first.Amount,
			},
		})
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].start != active[j].start {
			return active[i].start.Before(active[j].start)
		}
		return active[i].item.GroupID < active[j].item.GroupID
	})

	out := make([]domain.ActiveInstallment, len(active))
	for i, a := range active {
		out[i] = a.item
	}
	return out
}

// ProjectAccounts projects every account, in account order.
func ProjectAccounts(accounts []domain.BankAccount, txs []domain.Transaction, asOf time.Time) []domain.AccountProjection {
	out := make([]domain.AccountProjection, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, ProjectAccount(acc.ID, acc.InitialBalance, txs, asOf))
	}
	return out
}
