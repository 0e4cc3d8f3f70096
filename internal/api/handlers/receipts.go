package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/geminifin/internal/api/middleware"
	"github.com/dvloznov/geminifin/internal/gcs"
	"github.com/dvloznov/geminifin/internal/jobs"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/google/uuid"
)

// MaxReceiptBytes caps the size of an uploaded receipt image.
const MaxReceiptBytes = 10 << 20

// ReceiptsHandler accepts receipt images and queues them for analysis.
type ReceiptsHandler struct {
	publisher jobs.Publisher
	objects   gcs.ObjectStorage
	bucket    string
}

// NewReceiptsHandler creates a receipts handler. When objects is nil or
// bucket is empty the image travels inline with the job.
func NewReceiptsHandler(publisher jobs.Publisher, objects gcs.ObjectStorage, bucket string) *ReceiptsHandler {
	return &ReceiptsHandler{publisher: publisher, objects: objects, bucket: bucket}
}

// UploadReceipt handles POST /api/receipts with the raw image as body.
func (h *ReceiptsHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	mimeType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mimeType, "image/") {
		middleware.WriteError(w, http.StatusUnsupportedMediaType, "Content-Type must be an image type")
		return
	}

	image, err := io.ReadAll(io.LimitReader(r.Body, MaxReceiptBytes+1))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(image) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Empty image")
		return
	}
	if len(image) > MaxReceiptBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Image exceeds "+strconv.Itoa(MaxReceiptBytes>>20)+" MiB")
		return
	}

	job := &jobs.ScanReceiptJob{MIMEType: mimeType}

	if h.objects != nil && h.bucket != "" {
		objectName := fmt.Sprintf("receipts/%s/%s%s", time.Now().Format("2006/01/02"), uuid.New().String(), extensionFor(mimeType))
		if err := h.objects.Write(ctx, h.bucket, objectName, mimeType, image); err != nil {
			log.Error().Err(err).Msg("Failed to upload receipt")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload receipt")
			return
		}
		job.ObjectURI = gcs.URI(h.bucket, objectName)
	} else {
		job.Image = image
	}

	if err := h.publisher.PublishScanReceipt(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue receipt scan")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue receipt scan")
		return
	}

	log.Info().
		Str("job_id", job.JobID).
		Str("object_uri", job.ObjectURI).
		Int("bytes", len(image)).
		Msg("Receipt scan enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"status":     string(job.Status),
		"object_uri": job.ObjectURI,
	})
}

func extensionFor(mimeType string) string {
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
