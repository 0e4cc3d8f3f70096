package domain

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ValidationError reports a caller precondition that does not hold.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InstallmentPurchase describes one parceled purchase before expansion.
type InstallmentPurchase struct {
	StartDate         civil.Date
	MerchantBase      string
	TotalAmount       decimal.Decimal // kept in sync by the entry form; informational
	InstallmentAmount decimal.Decimal // amount written on every member
	Count             int
	Category          Category
	Type              TransactionType
	BankID            string
	Notes             string

	// GroupID is optional. When empty the expander generates one.
	GroupID string
}

// ValidateTransaction checks the fields every stored transaction must satisfy.
func ValidateTransaction(t Transaction) error {
	if strings.TrimSpace(t.ID) == "" {
		return invalid("id", "must not be empty")
	}
	if !t.Date.IsValid() {
		return invalid("date", "%q is not a calendar date", t.Date.String())
	}
	if strings.TrimSpace(t.Merchant) == "" {
		return invalid("merchant", "must not be empty")
	}
	if !t.Amount.IsPositive() {
		return invalid("amount", "must be positive, got %s", t.Amount.String())
	}
	if !t.Type.Valid() {
		return invalid("type", "unknown type %q", t.Type)
	}
	if !t.Category.Valid() {
		return invalid("category", "unknown category %q", t.Category)
	}
	if strings.TrimSpace(t.BankID) == "" {
		return invalid("bankId", "must not be empty")
	}
	if in := t.Installment; in != nil {
		if in.Total < 2 {
			return invalid("installment.total", "must be at least 2, got %d", in.Total)
		}
		if in.Current < 1 || in.Current > in.Total {
			return invalid("installment.current", "must be within 1..%d, got %d", in.Total, in.Current)
		}
		if strings.TrimSpace(in.ID) == "" {
			return invalid("installment.id", "must not be empty")
		}
	}
	return nil
}

// ValidateInstallmentPurchase checks an installment purchase before expansion.
func ValidateInstallmentPurchase(p InstallmentPurchase) error {
	if p.Count < 2 {
		return invalid("installmentCount", "must be at least 2, got %d", p.Count)
	}
	if !p.StartDate.IsValid() {
		return invalid("date", "%q is not a calendar date", p.StartDate.String())
	}
	if strings.TrimSpace(p.MerchantBase) == "" {
		return invalid("merchant", "must not be empty")
	}
	if !p.InstallmentAmount.IsPositive() {
		return invalid("installmentAmount", "must be positive, got %s", p.InstallmentAmount.String())
	}
	if p.Type != TypeExpense {
		return invalid("type", "installment purchases must be expenses, got %q", p.Type)
	}
	if !p.Category.Valid() {
		return invalid("category", "unknown category %q", p.Category)
	}
	if strings.TrimSpace(p.BankID) == "" {
		return invalid("bankId", "must not be empty")
	}
	return nil
}

// ValidateAccount checks a bank account before it is stored.
func ValidateAccount(a BankAccount) error {
	if strings.TrimSpace(a.ID) == "" {
		return invalid("id", "must not be empty")
	}
	if strings.TrimSpace(a.Name) == "" {
		return invalid("name", "must not be empty")
	}
	return nil
}
