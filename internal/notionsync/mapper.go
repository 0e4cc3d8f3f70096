package notionsync

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the Notion databases.
const (
	PropTransactionID    = "Transaction ID"
	PropMerchant         = "Merchant"
	PropDate             = "Date"
	PropAmount           = "Amount"
	PropType             = "Type"
	PropCategory         = "Category"
	PropBank             = "Bank"
	PropInstallment      = "Installment"
	PropInstallmentGroup = "Installment Group"
	PropNotes            = "Notes"

	PropAccountID      = "Account ID"
	PropAccountName    = "Name"
	PropColor          = "Color"
	PropInitialBalance = "Initial Balance"
)

func richText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: content},
			},
		},
	}
}

func title(content string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Title: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: content},
			},
		},
	}
}

func dateProperty(d civil.Date) notionapi.DateProperty {
	start := notionapi.Date(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
	return notionapi.DateProperty{
		Date: &notionapi.DateObject{Start: &start},
	}
}

// typeLabel is the pt-BR select option for a transaction type.
func typeLabel(t domain.TransactionType) string {
	if t == domain.TypeIncome {
		return "Receita"
	}
	return "Despesa"
}

// TransactionToNotionProperties converts a ledger transaction to the
// properties of a Notion page. bankNames maps account id to display name;
// unknown ids are written as-is.
func TransactionToNotionProperties(tx domain.Transaction, bankNames map[string]string) notionapi.Properties {
	bank := tx.BankID
	if name, ok := bankNames[tx.BankID]; ok {
		bank = name
	}

	props := notionapi.Properties{
		PropMerchant:      title(tx.Merchant),
		PropTransactionID: richText(tx.ID),
		PropDate:          dateProperty(tx.Date),
		PropAmount:        notionapi.NumberProperty{Number: tx.Amount.InexactFloat64()},
		PropType:          notionapi.SelectProperty{Select: notionapi.Option{Name: typeLabel(tx.Type)}},
		PropCategory:      notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category.Label()}},
		PropBank:          notionapi.SelectProperty{Select: notionapi.Option{Name: bank}},
	}

	if tx.Installment != nil {
		props[PropInstallment] = richText(fmt.Sprintf("%d/%d", tx.Installment.Current, tx.Installment.Total))
		props[PropInstallmentGroup] = richText(tx.Installment.ID)
	}

	if tx.Notes != "" {
		props[PropNotes] = richText(tx.Notes)
	}

	return props
}

// AccountToNotionProperties converts a bank account to Notion properties.
func AccountToNotionProperties(acc domain.BankAccount) notionapi.Properties {
	return notionapi.Properties{
		PropAccountID:      title(acc.ID),
		PropAccountName:    richText(acc.Name),
		PropColor:          richText(acc.Color),
		PropInitialBalance: notionapi.NumberProperty{Number: acc.InitialBalance.InexactFloat64()},
	}
}

// extractTransactionID reads the Transaction ID property of a page.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}

// extractAccountID reads the Account ID title of a page.
// Returns empty string if not found.
func extractAccountID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropAccountID]; ok {
		if t, ok := prop.(*notionapi.TitleProperty); ok && len(t.Title) > 0 {
			return t.Title[0].PlainText
		}
	}
	return ""
}
