// Package ledger holds the pure computations over the transaction set:
// installment expansion, statistics and per-account projections.
// Nothing here performs I/O or keeps state between calls.
package ledger

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/google/uuid"
)

// ExpandInstallments materializes a parceled purchase into one transaction
// per month. Member i is dated i calendar months after StartDate and carries
// InstallmentAmount unchanged.
//
// The caller validates the purchase first (domain.ValidateInstallmentPurchase).
// A Count below 2 yields no records.
func ExpandInstallments(p domain.InstallmentPurchase) []domain.Transaction {
	if p.Count < 2 {
		return nil
	}

	groupID := p.GroupID
	if groupID == "" {
		groupID = uuid.NewString()
	}
	txType := p.Type
	if txType == "" {
		txType = domain.TypeExpense
	}

	out := make([]domain.Transaction, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		out = append(out, domain.Transaction{
			ID:       fmt.Sprintf("%s-%d", groupID, i),
			Date:     AddMonths(p.StartDate, i),
			Merchant: fmt.Sprintf("%s (%d/%d)", p.MerchantBase, i+1, p.Count),
			Amount:   p.InstallmentAmount,
			Type:     txType,
			Category: p.Category,
			BankID:   p.BankID,
			Notes:    p.Notes,
			Installment: &domain.Installment{
				Current: i + 1,
				Total:   p.Count,
				ID:      groupID,
			},
		})
	}
	return out
}

// AddMonths moves d by n calendar months, keeping the day of month.
// When the target month is shorter the result is clamped to its last day,
// so 2024-01-31 plus one month is 2024-02-29.
func AddMonths(d civil.Date, n int) civil.Date {
	months := int(d.Month) - 1 + n
	year := d.Year + months/12
	months %= 12
	if months < 0 {
		months += 12
		year--
	}
	month := time.Month(months + 1)

	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
