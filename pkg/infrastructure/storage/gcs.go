// Package storage persists enriched-activity artifacts in Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// EnrichedArtifactObject is the canonical object path for one pipeline pass.
// Keyed by pipeline execution ID so redelivered passes overwrite their own
// artifact instead of accumulating copies.
func EnrichedArtifactObject(userID, pipelineExecutionID string) string {
	return fmt.Sprintf("enriched/%s/%s.json", userID, pipelineExecutionID)
}

// ObjectURI renders the gs:// URI consumers use to fetch an artifact.
func ObjectURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

type StorageAdapter struct {
	Client *storage.Client
}

func (a *StorageAdapter) Write(ctx context.Context, bucketName, objectName string, data []byte) error {
	wc := a.Client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = "application/json"
	if _, err := wc.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", ObjectURI(bucketName, objectName), err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("write %s: %w", ObjectURI(bucketName, objectName), err)
	}
	return nil
}

func (a *StorageAdapter) Read(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	rc, err := a.Client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ObjectURI(bucketName, objectName), err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
