package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/ai"
	"github.com/dvloznov/geminifin/internal/config"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/gcs"
	infraBQ "github.com/dvloznov/geminifin/internal/infra/bigquery"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/dvloznov/geminifin/internal/store"
	"github.com/dvloznov/geminifin/internal/store/backend"
	"github.com/dvloznov/geminifin/internal/tracker"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	switch os.Args[1] {
	case "stats":
		runStats(log, cfg)
	case "accounts":
		runAccounts(log, cfg)
	case "add":
		runAdd(log, cfg)
	case "installments":
		runInstallments(log, cfg)
	case "delete":
		runDelete(log, cfg)
	case "scan":
		runScan(log, cfg)
	case "ask":
		runAsk(log, cfg)
	case "export-bigquery":
		runExportBigQuery(log, cfg)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("geminifin CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  stats            Show income, expenses and spending by category")
	fmt.Println("  accounts         List accounts with their projections, or add one")
	fmt.Println("  add              Record a single transaction")
	fmt.Println("  installments     Record a purchase split into monthly installments")
	fmt.Println("  delete           Delete a transaction by ID")
	fmt.Println("  scan             Extract a transaction draft from a receipt image")
	fmt.Println("  ask              Ask the financial advisor a question")
	fmt.Println("  export-bigquery  Export the ledger to BigQuery")
	fmt.Println("  upload           Upload a receipt image to GCS")
	fmt.Println("  help             Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// session holds what every ledger command needs.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	ledger *store.Ledger
	svc    *tracker.Service
}

func (s *session) Close() {
	_ = s.ledger.Close()
	s.cancel()
}

func openSession(log zerolog.Logger, cfg *config.Config, withAI bool) *session {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	ctx = logger.WithContext(ctx, log)

	ledger, err := backend.OpenLedger(ctx, cfg)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}

	svc := tracker.NewService(ledger, nil, nil)
	if withAI {
		if !cfg.AIEnabled() {
			cancel()
			log.Fatal().Msg("Error: GEMINI_API_KEY is required for this command")
		}
		gen, err := ai.NewGenerator(ctx, cfg.GeminiAPIKey)
		if err != nil {
			cancel()
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		svc = tracker.NewService(ledger,
			ai.NewReceiptAnalyzer(gen, cfg.GeminiModel),
			ai.NewAdvisor(gen, cfg.GeminiModel))
	}

	return &session{ctx: ctx, cancel: cancel, ledger: ledger, svc: svc}
}

func parseDateFlag(log zerolog.Logger, name, value string) civil.Date {
	if value == "" {
		return civil.DateOf(time.Now())
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		log.Fatal().Err(err).Str(name, value).Msg("Error: invalid date, expected YYYY-MM-DD")
	}
	return d
}

func parseAmountFlag(log zerolog.Logger, name, value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "."))
	if err != nil {
		log.Fatal().Err(err).Str(name, value).Msg("Error: invalid amount")
	}
	return d
}

func parseCategoryFlag(value string) domain.Category {
	if c, ok := domain.ParseCategory(value); ok {
		return c
	}
	return domain.Category(value)
}

func printTransaction(tx domain.Transaction) {
	sign := "-"
	if tx.IsIncome() {
		sign = "+"
	}
	fmt.Printf("  %s  %-36s %-32s %s%10s  %-14s %s\n",
		tx.Date, tx.ID, tx.Merchant, sign, tx.Amount.StringFixed(2), tx.Category.Label(), tx.BankID)
}

func runStats(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	query := fs.String("q", "", "Only list transactions whose merchant or category matches")
	fs.Parse(os.Args[2:])

	s := openSession(log, cfg, false)
	defer s.Close()

	stats, err := s.svc.Stats(s.ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute statistics")
	}

	fmt.Println("\n=== Summary ===")
	fmt.Printf("Income:    %12s\n", stats.TotalIncome.StringFixed(2))
	fmt.Printf("Expenses:  %12s\n", stats.TotalExpenses.StringFixed(2))
	fmt.Printf("Net worth: %12s\n", stats.NetWorth.StringFixed(2))

	fmt.Println("\n=== Expenses by category ===")
	for _, ct := range stats.ExpensesByCategory {
		fmt.Printf("  %-16s %12s\n", ct.Category.Label(), ct.TotalValue.StringFixed(2))
	}

	txs := stats.RecentTransactions
	title := "Recent transactions"
	if *query != "" {
		if txs, err = s.svc.Transactions(s.ctx, *query); err != nil {
			log.Fatal().Err(err).Msg("Failed to load transactions")
		}
		title = fmt.Sprintf("Transactions matching %q", *query)
	}
	fmt.Printf("\n=== %s (%d) ===\n", title, len(txs))
	for _, tx := range txs {
		printTransaction(tx)
	}
}

func runAccounts(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	asOf := fs.String("as-of", "", "Project balances as of this date (YYYY-MM-DD, default today)")
	add := fs.String("add", "", "Name of a new account to create")
	color := fs.String("color", "#64748b", "Display color of the new account")
	initial := fs.String("initial-balance", "0", "Initial balance of the new account")
	fs.Parse(os.Args[2:])

	s := openSession(log, cfg, false)
	defer s.Close()

	if *add != "" {
		acc, err := s.svc.AddAccount(s.ctx, domain.BankAccount{
			Name:           *add,
			Color:          *color,
			InitialBalance: parseAmountFlag(log, "initial_balance", *initial),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add account")
		}
		fmt.Printf("Created account %s (%s)\n", acc.Name, acc.ID)
		return
	}

	var when time.Time
	if *asOf != "" {
		d := parseDateFlag(log, "as_of", *asOf)
		when = time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 0, time.UTC)
	}

	accounts, err := s.svc.Accounts(s.ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load accounts")
	}
	projections, err := s.svc.Projections(s.ctx, when)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to project accounts")
	}

	for i, p := range projections {
		fmt.Printf("\n=== %s (%s) ===\n", accounts[i].Name, p.BankID)
		fmt.Printf("Balance:              %12s\n", p.CurrentBalance.StringFixed(2))
		fmt.Printf("Expenses this month:  %12s\n", p.CurrentMonthExpenses.StringFixed(2))
		for _, inst := range p.ActiveInstallments {
			fmt.Printf("  %-32s %2d of %2d left  %10s/month\n",
				inst.Description, inst.RemainingCount, inst.TotalInstallments, inst.PerInstallmentAmount.StringFixed(2))
		}
	}
}

func runAdd(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	date := fs.String("date", "", "Transaction date (YYYY-MM-DD, default today)")
	merchant := fs.String("merchant", "", "Merchant or description")
	amount := fs.String("amount", "", "Positive amount")
	typ := fs.String("type", string(domain.TypeExpense), "income or expense")
	category := fs.String("category", string(domain.CategoryOther), "Category name or label")
	bank := fs.String("bank", "", "Bank account ID")
	notes := fs.String("notes", "", "Optional notes")
	fs.Parse(os.Args[2:])

	if *merchant == "" || *amount == "" || *bank == "" {
		log.Fatal().Msg("Usage: cli add -merchant NAME -amount N -bank ID [-date YYYY-MM-DD] [-type expense] [-category Food]")
	}

	s := openSession(log, cfg, false)
	defer s.Close()

	tx, err := s.svc.AddTransaction(s.ctx, domain.Transaction{
		Date:     parseDateFlag(log, "date", *date),
		Merchant: *merchant,
		Amount:   parseAmountFlag(log, "amount", *amount),
		Type:     domain.TransactionType(*typ),
		Category: parseCategoryFlag(*category),
		BankID:   *bank,
		Notes:    *notes,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add transaction")
	}

	fmt.Printf("Added transaction %s\n", tx.ID)
}

func runInstallments(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("installments", flag.ExitOnError)
	date := fs.String("date", "", "Date of the first installment (YYYY-MM-DD, default today)")
	merchant := fs.String("merchant", "", "Merchant or description")
	count := fs.Int("count", 0, "Number of installments (at least 2)")
	amount := fs.String("amount", "", "Amount of each installment")
	total := fs.String("total", "", "Total amount, split evenly when -amount is omitted")
	category := fs.String("category", string(domain.CategoryShopping), "Category name or label")
	bank := fs.String("bank", "", "Bank account ID")
	notes := fs.String("notes", "", "Optional notes")
	fs.Parse(os.Args[2:])

	if *merchant == "" || *bank == "" || *count == 0 || (*amount == "" && *total == "") {
		log.Fatal().Msg("Usage: cli installments -merchant NAME -count N (-amount N | -total N) -bank ID")
	}

	s := openSession(log, cfg, false)
	defer s.Close()

	records, err := s.svc.AddInstallmentPurchase(s.ctx, domain.InstallmentPurchase{
		StartDate:         parseDateFlag(log, "date", *date),
		MerchantBase:      *merchant,
		TotalAmount:       parseAmountFlag(log, "total", *total),
		InstallmentAmount: parseAmountFlag(log, "amount", *amount),
		Count:             *count,
		Category:          parseCategoryFlag(*category),
		BankID:            *bank,
		Notes:             *notes,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add installment purchase")
	}

	fmt.Printf("Added %d installments (group %s)\n", len(records), records[0].Installment.ID)
	for _, tx := range records {
		printTransaction(tx)
	}
}

func runDelete(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Transaction ID to delete")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Error: --id is required")
	}

	s := openSession(log, cfg, false)
	defer s.Close()

	if err := s.svc.DeleteTransaction(s.ctx, *id); err != nil {
		log.Fatal().Err(err).Msg("Failed to delete transaction")
	}

	fmt.Printf("Deleted transaction %s\n", *id)
}

func runScan(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the receipt image")
	bank := fs.String("bank", "", "Record the draft on this bank account after scanning")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Usage: cli scan -file PATH [-bank ID]")
	}

	image, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read image")
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(*filePath)))
	if !strings.HasPrefix(mimeType, "image/") {
		log.Fatal().Str("file", *filePath).Msg("Error: file does not look like an image")
	}

	s := openSession(log, cfg, true)
	defer s.Close()

	draft, err := s.svc.ScanReceipt(s.ctx, image, mimeType)
	if err != nil {
		log.Fatal().Err(err).Msg("Receipt scan failed")
	}

	out, _ := json.MarshalIndent(draft, "", "  ")
	fmt.Println(string(out))

	if *bank == "" {
		return
	}
	if draft.Merchant == nil || draft.Amount == nil {
		log.Fatal().Msg("Draft is incomplete; record it manually with 'cli add'")
	}

	tx := domain.Transaction{
		Date:     civil.DateOf(time.Now()),
		Merchant: *draft.Merchant,
		Amount:   *draft.Amount,
		Type:     draft.Type,
		Category: draft.Category,
		BankID:   *bank,
	}
	if draft.Date != nil {
		tx.Date = *draft.Date
	}
	saved, err := s.svc.AddTransaction(s.ctx, tx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add scanned transaction")
	}
	fmt.Printf("Added transaction %s\n", saved.ID)
}

func runAsk(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	question := fs.String("q", "", "Question for the advisor")
	fs.Parse(os.Args[2:])

	if *question == "" && fs.NArg() > 0 {
		*question = strings.Join(fs.Args(), " ")
	}

	s := openSession(log, cfg, true)
	defer s.Close()

	answer, err := s.svc.Ask(s.ctx, *question)
	if err != nil {
		log.Fatal().Err(err).Msg("Advisor failed")
	}
	fmt.Println(answer)
}

func runExportBigQuery(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("export-bigquery", flag.ExitOnError)
	project := fs.String("project", cfg.GCPProject, "GCP project (or set GCP_PROJECT env)")
	dataset := fs.String("dataset", cfg.BQDataset, "BigQuery dataset (or set BQ_DATASET env)")
	ensure := fs.Bool("ensure-tables", false, "Create the ledger tables if missing")
	prune := fs.Bool("prune", false, "Delete exported transactions no longer in the ledger")
	fs.Parse(os.Args[2:])

	if *project == "" || *dataset == "" {
		log.Fatal().Msg("Error: --project and --dataset are required")
	}

	s := openSession(log, cfg, false)
	defer s.Close()

	exporter, err := infraBQ.NewExporter(s.ctx, *project, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery exporter")
	}
	defer exporter.Close()

	if *ensure {
		if err := exporter.EnsureTables(s.ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to create tables")
		}
	}

	accounts, err := s.ledger.LoadAccounts(s.ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load accounts")
	}
	txs, err := s.ledger.LoadTransactions(s.ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load transactions")
	}

	result, err := exporter.ExportLedger(s.ctx, accounts, txs)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	fmt.Printf("Exported %d transactions and %d accounts to %s.%s\n", result.Transactions, result.Accounts, *project, *dataset)

	if *prune {
		keep := make([]string, 0, len(txs))
		for _, tx := range txs {
			keep = append(keep, tx.ID)
		}
		deleted, err := exporter.PruneTransactions(s.ctx, keep)
		if err != nil {
			log.Fatal().Err(err).Msg("Prune failed")
		}
		fmt.Printf("Pruned %d stale rows\n", deleted)
	}
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("RECEIPT_BUCKET"), "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to receipts/<filename>)")
	filePath := fs.String("file", "", "Path to local receipt image")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = "receipts/" + filepath.Base(*filePath)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(*filePath)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx := logger.WithContext(context.Background(), log)

	client, err := gcs.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer client.Close()

	uri, err := client.UploadFile(ctx, *bucketName, *objectName, *filePath, contentType)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}
