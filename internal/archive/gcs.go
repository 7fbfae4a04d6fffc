package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// GCS is an ObjectStore backed by a Google Cloud Storage bucket. It
// assumes Application Default Credentials are configured.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a GCS object store for the given bucket.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Put implements ObjectStore.
func (g *GCS) Put(ctx context.Context, objectName, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy report to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

var _ ObjectStore = (*GCS)(nil)
