package shared

import (
	"context"
	"errors"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/fitglue/enricher/pkg/types"
)

// ErrNotFound is returned by persistence adapters when a document is absent.
// Callers must treat it as an expected outcome, not a dependency failure.
var ErrNotFound = errors.New("not found")

// --- Persistence Interfaces ---

type Database interface {
	SetExecution(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error

	GetUser(ctx context.Context, id string) (*types.UserRecord, error)

	// Pipelines (sub-collection of users)
	GetUserPipelines(ctx context.Context, userID string) ([]*types.PipelineConfig, error)

	// Pending inputs (sub-collection of users, keyed by stable ID).
	// GetPendingInput returns ErrNotFound when no record exists.
	GetPendingInput(ctx context.Context, userID, id string) (*types.PendingInput, error)
	// CreatePendingInput is an idempotent create-if-absent: when a record with
	// the same stable ID already exists (e.g. a concurrently redelivered pass
	// raced us), the existing record is returned unchanged.
	CreatePendingInput(ctx context.Context, userID string, input *types.PendingInput) (*types.PendingInput, error)
}

// --- Messaging Interfaces ---

type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte) (string, error)
	PublishWithAttrs(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}

// --- Notification Interfaces ---

type NotificationService interface {
	// NotifyPendingInput pushes an "action required" notification to the
	// user's registered devices for the given pending-input record. A user
	// without registered tokens is not an error.
	NotifyPendingInput(ctx context.Context, user *types.UserRecord, pendingInputID string) error
}

// --- Secret Interfaces ---

type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}
