package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/geminifin/internal/config"
	infraBQ "github.com/dvloznov/geminifin/internal/infra/bigquery"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/dvloznov/geminifin/internal/store/sqlitestore"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqlitePath := flag.String("sqlite", cfg.SQLiteDBPath, "SQLite ledger database to migrate (empty to skip)")
	projectID := flag.String("project", cfg.GCPProject, "GCP project for the BigQuery export tables (empty to skip)")
	datasetID := flag.String("dataset", cfg.BQDataset, "BigQuery dataset ID")
	flag.Parse()

	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	if *sqlitePath == "" && *projectID == "" {
		log.Fatal().Msg("Nothing to migrate: pass -sqlite and/or -project")
	}

	if *sqlitePath != "" {
		version, err := migrateSQLite(log, *sqlitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *sqlitePath).Msg("SQLite migration failed")
		}
		fmt.Printf("SQLite schema at version %d\n", version)
	}

	if *projectID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ctx = logger.WithContext(ctx, log)

		exporter, err := infraBQ.NewExporter(ctx, *projectID, *datasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer exporter.Close()

		if err := exporter.EnsureTables(ctx); err != nil {
			log.Fatal().Err(err).Msg("BigQuery table creation failed")
		}
		fmt.Printf("BigQuery tables ready in %s.%s\n", *projectID, *datasetID)
	}
}

// migrateSQLite brings the ledger database at path to the latest schema and
// returns the resulting version.
func migrateSQLite(log zerolog.Logger, path string) (uint, error) {
	before, _, err := sqlitestore.SchemaVersion(path)
	if err != nil {
		return 0, err
	}

	if err := sqlitestore.RunMigrations(path); err != nil {
		return 0, err
	}

	after, dirty, err := sqlitestore.SchemaVersion(path)
	if err != nil {
		return 0, err
	}
	if dirty {
		return after, fmt.Errorf("schema version %d is dirty", after)
	}

	if before == after {
		log.Info().Uint("version", after).Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Uint("from", before).Uint("to", after).Msg("Applied SQLite migrations")
	}
	return after, nil
}
