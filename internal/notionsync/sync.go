package notionsync

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/jomei/notionapi"
)

// QueryPageSize is the page size used when listing a Notion database.
const QueryPageSize = 100

// LedgerSource supplies the records to push. *store.Ledger implements it.
type LedgerSource interface {
	LoadTransactions(ctx context.Context) ([]domain.Transaction, error)
	LoadAccounts(ctx context.Context) ([]domain.BankAccount, error)
}

// Options controls one sync run.
type Options struct {
	// DryRun logs what would change without writing to Notion.
	DryRun bool
	// DeleteStale archives pages whose id is no longer in the ledger, and
	// duplicate pages for the same id.
	DeleteStale bool
	// UpdateExisting rewrites pages that already exist instead of skipping them.
	UpdateExisting bool
	// From and To bound the transaction dates pushed; zero means unbounded.
	// Stale detection always uses the whole ledger.
	From, To civil.Date
}

// Result counts what a sync did, or would do in dry-run mode.
type Result struct {
	Created int
	Updated int
	Skipped int
	Deleted int
	Failed  int
}

type record struct {
	id    string
	props notionapi.Properties
}

// SyncTransactions pushes ledger transactions into a Notion database,
// matching pages on the Transaction ID property.
func SyncTransactions(ctx context.Context, source LedgerSource, notion NotionService, databaseID string, opts Options) (Result, error) {
	log := logger.FromContext(ctx)

	txs, err := source.LoadTransactions(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("SyncTransactions: load transactions: %w", err)
	}
	accounts, err := source.LoadAccounts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("SyncTransactions: load accounts: %w", err)
	}

	bankNames := make(map[string]string, len(accounts))
	for _, acc := range accounts {
		bankNames[acc.ID] = acc.Name
	}

	valid := make(map[string]bool, len(txs))
	var records []record
	for _, tx := range txs {
		valid[tx.ID] = true
		if !inRange(tx.Date, opts.From, opts.To) {
			continue
		}
		records = append(records, record{id: tx.ID, props: TransactionToNotionProperties(tx, bankNames)})
	}

	log.Info().
		Int("ledger_transactions", len(txs)).
		Int("in_range", len(records)).
		Bool("dry_run", opts.DryRun).
		Msg("Starting transaction sync to Notion")

	result, err := syncRecords(ctx, notion, databaseID, "transaction", records, valid, extractTransactionID, opts)
	if err != nil {
		return result, fmt.Errorf("SyncTransactions: %w", err)
	}
	return result, nil
}

// SyncAccounts pushes bank accounts into a Notion database, matching pages
// on the Account ID title.
func SyncAccounts(ctx context.Context, source LedgerSource, notion NotionService, databaseID string, opts Options) (Result, error) {
	accounts, err := source.LoadAccounts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("SyncAccounts: load accounts: %w", err)
	}

	valid := make(map[string]bool, len(accounts))
	records := make([]record, 0, len(accounts))
	for _, acc := range accounts {
		valid[acc.ID] = true
		records = append(records, record{id: acc.ID, props: AccountToNotionProperties(acc)})
	}

	result, err := syncRecords(ctx, notion, databaseID, "account", records, valid, extractAccountID, opts)
	if err != nil {
		return result, fmt.Errorf("SyncAccounts: %w", err)
	}
	return result, nil
}

func inRange(d, from, to civil.Date) bool {
	if from != (civil.Date{}) && d.Before(from) {
		return false
	}
	if to != (civil.Date{}) && d.After(to) {
		return false
	}
	return true
}

// syncRecords reconciles one database. Failures on single pages are logged
// and counted; only listing the database is fatal.
func syncRecords(ctx context.Context, notion NotionService, databaseID, kind string, records []record, valid map[string]bool, extractID func(notionapi.Page) string, opts Options) (Result, error) {
	log := logger.FromContext(ctx)
	var result Result

	pages, err := queryAllNotionPages(ctx, notion, databaseID)
	if err != nil {
		return result, err
	}

	log.Info().Str("kind", kind).Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	existing := make(map[string]string, len(pages))
	var stale []notionapi.Page
	for _, page := range pages {
		id := extractID(page)
		if id == "" {
			// Pages without an id were not written by the sync.
			continue
		}
		if _, dup := existing[id]; dup || !valid[id] {
			stale = append(stale, page)
			continue
		}
		existing[id] = string(page.ID)
	}

	if opts.DeleteStale {
		for _, page := range stale {
			id := extractID(page)
			if opts.DryRun {
				log.Info().Str("id", id).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would delete stale Notion page")
				result.Deleted++
				continue
			}
			if err := notion.DeletePage(ctx, string(page.ID)); err != nil {
				log.Warn().Err(err).Str("id", id).Str("page_id", string(page.ID)).Msg("Failed to delete stale Notion page")
				result.Failed++
				continue
			}
			result.Deleted++
		}
	}

	for _, rec := range records {
		pageID, found := existing[rec.id]

		switch {
		case found && !opts.UpdateExisting:
			result.Skipped++

		case found:
			if opts.DryRun {
				log.Info().Str("id", rec.id).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				result.Updated++
				continue
			}
			if _, err := notion.UpdatePage(ctx, pageID, rec.props); err != nil {
				log.Warn().Err(err).Str("id", rec.id).Str("page_id", pageID).Msg("Failed to update Notion page")
				result.Failed++
				continue
			}
			result.Updated++

		default:
			if opts.DryRun {
				log.Info().Str("id", rec.id).Msg("[DRY RUN] Would create Notion page")
				result.Created++
				continue
			}
			page, err := notion.CreatePage(ctx, databaseID, rec.props)
			if err != nil {
				log.Warn().Err(err).Str("id", rec.id).Msg("Failed to create Notion page")
				result.Failed++
				continue
			}
			log.Debug().Str("id", rec.id).Str("page_id", string(page.ID)).Msg("Created Notion page")
			result.Created++
		}
	}

	log.Info().
		Str("kind", kind).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("deleted", result.Deleted).
		Int("failed", result.Failed).
		Msg("Notion sync completed")

	return result, nil
}

// queryAllNotionPages lists every page of a database, following cursors.
func queryAllNotionPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: QueryPageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
