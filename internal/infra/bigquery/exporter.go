package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/logger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const (
	TransactionsTable = "ledger_transactions"
	AccountsTable     = "ledger_accounts"

	// DefaultBatchSize keeps each streaming insert request well under the
	// per-request row limit.
	DefaultBatchSize = 500
)

// RowInserter streams rows into one table. *bigquery.Inserter implements it.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// ExportResult counts the rows written by one export.
type ExportResult struct {
	Transactions int
	Accounts     int
}

// Exporter copies the ledger into BigQuery for reporting. It holds one
// shared client for all operations.
type Exporter struct {
	client    *bigquery.Client
	projectID string
	datasetID string

	inserterFor func(table string) RowInserter

	Now       func() time.Time
	BatchSize int
}

// NewExporter creates an exporter writing into projectID.datasetID.
func NewExporter(ctx context.Context, projectID, datasetID string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: creating client: %w", err)
	}

	e := newExporter(datasetID, func(table string) RowInserter {
		return client.Dataset(datasetID).Table(table).Inserter()
	})
	e.client = client
	e.projectID = projectID
	return e, nil
}

func newExporter(datasetID string, inserterFor func(table string) RowInserter) *Exporter {
	return &Exporter{
		datasetID:   datasetID,
		inserterFor: inserterFor,
		Now:         time.Now,
		BatchSize:   DefaultBatchSize,
	}
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ExportLedger streams every account and transaction. Both tables are
// written concurrently; the first failure cancels the other.
func (e *Exporter) ExportLedger(ctx context.Context, accounts []domain.BankAccount, txs []domain.Transaction) (ExportResult, error) {
	log := logger.FromContext(ctx)
	exported := e.Now().UTC()

	txRows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		txRows = append(txRows, TransactionToRow(tx, exported))
	}
	accRows := make([]*AccountRow, 0, len(accounts))
	for _, acc := range accounts {
		accRows = append(accRows, AccountToRow(acc, exported))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return putInBatches(gctx, e.inserterFor(TransactionsTable), txRows, e.BatchSize)
	})
	g.Go(func() error {
		return putInBatches(gctx, e.inserterFor(AccountsTable), accRows, e.BatchSize)
	})
	if err := g.Wait(); err != nil {
		return ExportResult{}, fmt.Errorf("ExportLedger: %w", err)
	}

	result := ExportResult{Transactions: len(txRows), Accounts: len(accRows)}
	log.Info().
		Str("dataset", e.datasetID).
		Int("transactions", result.Transactions).
		Int("accounts", result.Accounts).
		Msg("Ledger exported to BigQuery")

	return result, nil
}

func putInBatches[T any](ctx context.Context, ins RowInserter, rows []T, size int) error {
	if size <= 0 {
		size = DefaultBatchSize
	}
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		if err := ins.Put(ctx, rows[start:end]); err != nil {
			var multi bigquery.PutMultiError
			if errors.As(err, &multi) {
				return fmt.Errorf("inserting rows %d-%d: %d rows rejected: %w", start, end-1, len(multi), err)
			}
			return fmt.Errorf("inserting rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// EnsureTables creates both ledger tables when they do not exist yet. The
// transactions table is partitioned by transaction_date.
func (e *Exporter) EnsureTables(ctx context.Context) error {
	if e.client == nil {
		return fmt.Errorf("EnsureTables: no client")
	}

	txSchema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureTables: infer transactions schema: %w", err)
	}
	accSchema, err := bigquery.InferSchema(AccountRow{})
	if err != nil {
		return fmt.Errorf("EnsureTables: infer accounts schema: %w", err)
	}

	tables := []struct {
		name string
		meta *bigquery.TableMetadata
	}{
		{TransactionsTable, &bigquery.TableMetadata{
			Schema:           txSchema,
			TimePartitioning: &bigquery.TimePartitioning{Field: "transaction_date"},
		}},
		{AccountsTable, &bigquery.TableMetadata{Schema: accSchema}},
	}

	dataset := e.client.Dataset(e.datasetID)
	for _, t := range tables {
		err := dataset.Table(t.name).Create(ctx, t.meta)
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
			continue
		}
		if err != nil {
			return fmt.Errorf("EnsureTables: create %s: %w", t.name, err)
		}
		log := logger.FromContext(ctx)
		log.Info().Str("table", t.name).Msg("Created BigQuery table")
	}
	return nil
}

// QueryTransactionsByDateRange reads back the latest exported copy of each
// transaction dated within [start, end], newest first.
func (e *Exporter) QueryTransactionsByDateRange(ctx context.Context, start, end civil.Date) ([]domain.Transaction, error) {
	if e.client == nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: no client")
	}

	q := e.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			account_id,
			transaction_date,
			merchant,
			amount,
			direction,
			category_name,
			category_label,
			notes,
			installment_group_id,
			installment_current,
			installment_total,
			exported_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE transaction_date >= @start_date
		  AND transaction_date <= @end_date
		QUALIFY ROW_NUMBER() OVER (PARTITION BY transaction_id ORDER BY exported_ts DESC) = 1
		ORDER BY transaction_date DESC, transaction_id
	`, e.projectID, e.datasetID, TransactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var txs []domain.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		tx, err := RowToTransaction(&r)
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: %w", err)
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

// PruneTransactions deletes exported rows whose id is not in keep, so
// transactions removed from the ledger disappear from reports. Rows still in
// the streaming buffer cannot be deleted and make the job fail.
func (e *Exporter) PruneTransactions(ctx context.Context, keep []string) (int64, error) {
	if e.client == nil {
		return 0, fmt.Errorf("PruneTransactions: no client")
	}

	q := e.client.Query(`
		DELETE FROM ` + "`" + e.projectID + "." + e.datasetID + "." + TransactionsTable + "`" + `
		WHERE transaction_id NOT IN UNNEST(@keep_ids)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "keep_ids", Value: keep},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("PruneTransactions: run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("PruneTransactions: wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("PruneTransactions: job error: %w", err)
	}

	var deleted int64
	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			deleted = qs.NumDMLAffectedRows
		}
	}

	log := logger.FromContext(ctx)

	log.Info().Int64("deleted", deleted).Msg("Pruned exported transactions")
	return deleted, nil
}
