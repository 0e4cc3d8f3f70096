package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/geminifin/internal/ai"
	"github.com/dvloznov/geminifin/internal/api/handlers"
	"github.com/dvloznov/geminifin/internal/api/middleware"
	"github.com/dvloznov/geminifin/internal/config"
	"github.com/dvloznov/geminifin/internal/gcs"
	"github.com/dvloznov/geminifin/internal/jobs"
	"github.com/dvloznov/geminifin/internal/jobs/inmemory"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/dvloznov/geminifin/internal/store/backend"
	"github.com/dvloznov/geminifin/internal/tracker"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file for local development (ignore errors in production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Flags override the environment
	port := flag.String("port", cfg.Port, "HTTP server port")
	receiptBucket := flag.String("receipt-bucket", cfg.ReceiptBucket, "GCS bucket for uploaded receipts (or set RECEIPT_BUCKET env)")
	flag.Parse()
	cfg.Port = *port
	cfg.ReceiptBucket = *receiptBucket

	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	ledger, err := backend.OpenLedger(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer ledger.Close()

	// Gemini collaborators are optional; without a key the AI routes answer 503.
	var (
		analyzer *ai.ReceiptAnalyzer
		svc      *tracker.Service
	)
	if cfg.AIEnabled() {
		gen, err := ai.NewGenerator(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		analyzer = ai.NewReceiptAnalyzer(gen, cfg.GeminiModel)
		svc = tracker.NewService(ledger, analyzer, ai.NewAdvisor(gen, cfg.GeminiModel))
		log.Info().Str("model", cfg.GeminiModel).Msg("Gemini enabled")
	} else {
		svc = tracker.NewService(ledger, nil, nil)
		log.Warn().Msg("No GEMINI_API_KEY configured - receipt scanning and advisor are disabled")
	}

	// Receipt images go to GCS when a bucket is configured, otherwise they
	// travel inline with the job.
	var (
		objects gcs.ObjectStorage
		fetcher jobs.ObjectFetcher
	)
	if cfg.ReceiptBucket != "" {
		gcsClient, err := gcs.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		defer gcsClient.Close()
		objects = gcsClient
		fetcher = gcsClient
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.ScanQueueSize, cfg.ScanWorkers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var receipts *handlers.ReceiptsHandler
	if analyzer != nil {
		if err := jobQueue.Start(workerCtx, jobs.NewScanHandler(analyzer, fetcher)); err != nil {
			log.Fatal().Err(err).Msg("Failed to start receipt workers")
		}
		receipts = handlers.NewReceiptsHandler(jobQueue, objects, cfg.ReceiptBucket)
	}

	mux := handlers.NewMux(handlers.Routes{
		Transactions: handlers.NewTransactionsHandler(svc),
		Accounts:     handlers.NewAccountsHandler(svc),
		Receipts:     receipts,
		Jobs:         handlers.NewJobsHandler(jobStore),
		Advisor:      handlers.NewAdvisorHandler(svc),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Chain(log, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // advisor calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreBackend).
			Bool("receipts", receipts != nil).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight scans
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
