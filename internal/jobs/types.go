package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/geminifin/internal/ai"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeScanReceipt extracts a transaction draft from a receipt image.
	JobTypeScanReceipt JobType = "scan_receipt"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries applies when a job is published without MaxRetries.
const DefaultMaxRetries = 3

// ErrJobNotFound is returned by JobStore.GetJob for unknown ids.
var ErrJobNotFound = errors.New("job not found")

// ScanReceiptJob represents a receipt image waiting to be analyzed.
// The resulting draft is never written to the ledger by the job itself.
type ScanReceiptJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// ObjectURI is the gs:// location of the uploaded image, if any.
	ObjectURI string `json:"object_uri,omitempty"`

	// MIMEType of the image, e.g. "image/jpeg".
	MIMEType string `json:"mime_type"`

	// Image holds the raw bytes when the image was not uploaded.
	Image []byte `json:"-"`

	Status JobStatus `json:"status"`

	// Draft is set once the job completes.
	Draft *ai.ReceiptDraft `json:"draft,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the last attempt failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// GetType returns the job type.
func (j *ScanReceiptJob) GetType() JobType {
	return JobTypeScanReceipt
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishScanReceipt enqueues a receipt scan.
	PublishScanReceipt(ctx context.Context, job *ScanReceiptJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It should return an error if the job failed
// and should be retried.
type JobHandler func(ctx context.Context, job *ScanReceiptJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ScanReceiptJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ScanReceiptJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ScanReceiptJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
