// Package backend opens the ledger blob store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/dvloznov/geminifin/internal/config"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/dvloznov/geminifin/internal/store"
	"github.com/dvloznov/geminifin/internal/store/gcsstore"
	"github.com/dvloznov/geminifin/internal/store/sqlitestore"
)

// Open returns the BlobStore named by cfg.StoreBackend. The caller closes it.
func Open(ctx context.Context, cfg *config.Config) (store.BlobStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend.Open: config is nil")
	}
	log := logger.FromContext(ctx)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory ledger store; data is lost on exit")
		return store.NewMemoryBlobStore(), nil

	case config.BackendSQLite:
		s, err := sqlitestore.Open(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("backend.Open: sqlite: %w", err)
		}
		log.Info().Str("path", cfg.SQLiteDBPath).Msg("Using SQLite ledger store")
		return s, nil

	case config.BackendGCS:
		s, err := gcsstore.Open(ctx, cfg.GCSBucket, cfg.GCSLedgerPrefix)
		if err != nil {
			return nil, fmt.Errorf("backend.Open: gcs: %w", err)
		}
		log.Info().Str("bucket", cfg.GCSBucket).Str("prefix", cfg.GCSLedgerPrefix).Msg("Using GCS ledger store")
		return s, nil

	default:
		return nil, fmt.Errorf("backend.Open: unknown store backend %q", cfg.StoreBackend)
	}
}

// OpenLedger opens the configured backend wrapped in a Ledger.
func OpenLedger(ctx context.Context, cfg *config.Config) (*store.Ledger, error) {
	blobs, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store.NewLedger(blobs), nil
}
