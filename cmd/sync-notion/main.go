package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/config"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/dvloznov/geminifin/internal/notionsync"
	"github.com/dvloznov/geminifin/internal/store/backend"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	// Parse CLI flags
	startDateStr := flag.String("start-date", "", "Only push transactions on or after this date (YYYY-MM-DD)")
	endDateStr := flag.String("end-date", "", "Only push transactions on or before this date (YYYY-MM-DD)")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := flag.String("notion-db-id", cfg.NotionDBID, "Notion transactions database ID (or set NOTION_DB_ID env)")
	accountsDBID := flag.String("accounts-db-id", "", "Notion accounts database ID; accounts are skipped when empty")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	deleteStale := flag.Bool("delete-stale", false, "Archive pages whose transaction no longer exists")
	update := flag.Bool("update", false, "Rewrite pages that already exist")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}
	// Token and database come from flags here, so only the store settings matter.
	cfg.NotionToken, cfg.NotionDBID = *notionToken, *notionDBID
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	opts := notionsync.Options{
		DryRun:         *dryRun,
		DeleteStale:    *deleteStale,
		UpdateExisting: *update,
	}

	var err error
	if *startDateStr != "" {
		if opts.From, err = civil.ParseDate(*startDateStr); err != nil {
			log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
		}
	}
	if *endDateStr != "" {
		if opts.To, err = civil.ParseDate(*endDateStr); err != nil {
			log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
		}
	}
	if *startDateStr != "" && *endDateStr != "" && opts.To.Before(opts.From) {
		log.Fatal().
			Str("start_date", *startDateStr).
			Str("end_date", *endDateStr).
			Msg("Error: end-date must be after start-date")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	ledger, err := backend.OpenLedger(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer ledger.Close()

	notionClient := notionsync.NewNotionClient(*notionToken)

	failed := 0
	if *accountsDBID != "" {
		res, err := notionsync.SyncAccounts(ctx, ledger, notionClient, *accountsDBID, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("Account sync failed")
		}
		failed += res.Failed
	}

	res, err := notionsync.SyncTransactions(ctx, ledger, notionClient, *notionDBID, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}
	failed += res.Failed

	fmt.Printf("Sync completed: %d created, %d updated, %d skipped, %d deleted, %d failed.\n",
		res.Created, res.Updated, res.Skipped, res.Deleted, res.Failed)
	if failed > 0 {
		os.Exit(1)
	}
}
