package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/geminifin/internal/ai"
	"github.com/dvloznov/geminifin/internal/logger"
)

// ReceiptAnalyzer is satisfied by *ai.ReceiptAnalyzer.
type ReceiptAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (ai.ReceiptDraft, error)
}

// ObjectFetcher is satisfied by *gcs.Client.
type ObjectFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// NewScanHandler returns a JobHandler that analyzes the job's image and
// stores the draft on the job. fetcher may be nil when every job carries
// its image inline.
func NewScanHandler(analyzer ReceiptAnalyzer, fetcher ObjectFetcher) JobHandler {
	return func(ctx context.Context, job *ScanReceiptJob) error {
		log := logger.FromContext(ctx).With().
			Str("job_id", job.JobID).
			Str("job_type", string(job.GetType())).
			Logger()

		image := job.Image
		if len(image) == 0 {
			if job.ObjectURI == "" || fetcher == nil {
				return fmt.Errorf("scanReceipt: job has no image")
			}
			data, err := fetcher.Fetch(ctx, job.ObjectURI)
			if err != nil {
				return fmt.Errorf("scanReceipt: fetch image: %w", err)
			}
			image = data
		}

		draft, err := analyzer.Analyze(ctx, image, job.MIMEType)
		if err != nil {
			log.Warn().Err(err).Int("attempt", job.RetryCount+1).Msg("Receipt scan failed")
			return fmt.Errorf("scanReceipt: %w", err)
		}

		job.Draft = &draft
		log.Info().Str("category", string(draft.Category)).Msg("Receipt scan completed")
		return nil
	}
}
