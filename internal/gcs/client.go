// Package gcs wraps Google Cloud Storage for receipt images and ledger blobs.
// It assumes Application Default Credentials are configured
// (gcloud auth application-default login).
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
)

// ErrObjectNotFound is returned by Read when the object does not exist.
var ErrObjectNotFound = errors.New("gcs object not found")

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// ObjectStorage provides the object operations used by the rest of the
// module. This interface enables mocking and testing of storage functionality.
type ObjectStorage interface {
	// Read returns the full contents of bucket/object.
	Read(ctx context.Context, bucket, object string) ([]byte, error)

	// Write replaces bucket/object with data.
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error
}

// Client is the Cloud Storage implementation of ObjectStorage.
type Client struct {
	client *storage.Client
}

// NewClient creates a storage client.
func NewClient(ctx context.Context) (*Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{client: client}, nil
}

// Close releases the underlying storage client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Read implements ObjectStorage.
func (c *Client) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}

	return data, nil
}

// Write implements ObjectStorage.
func (c *Client) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object %s/%s: %w", bucket, object, err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}

	return nil
}

// Fetch downloads the object referenced by a gs:// URI.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	data, err := c.Read(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}
	return data, nil
}

// UploadFile uploads a local file to bucket/object and returns its URI.
func (c *Client) UploadFile(ctx context.Context, bucket, object, filePath, contentType string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read file %q: %w", filePath, err)
	}

	if err := c.Write(ctx, bucket, object, contentType, data); err != nil {
		return "", err
	}
	return URI(bucket, object), nil
}

var _ ObjectStorage = (*Client)(nil)
