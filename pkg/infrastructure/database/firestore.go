package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/fitglue/enricher/pkg"
	storage "github.com/fitglue/enricher/pkg/storage/firestore"
	"github.com/fitglue/enricher/pkg/types"
)

// FirestoreAdapter provides database operations using Firestore.
// It wraps our typed storage client and maps gRPC status codes onto the
// shared sentinels callers branch on.
type FirestoreAdapter struct {
	Client  *firestore.Client
	storage *storage.Client
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{
		Client:  client,
		storage: storage.NewClient(client),
	}
}

func (a *FirestoreAdapter) SetExecution(ctx context.Context, record *types.ExecutionRecord) error {
	return a.storage.Executions().Doc(record.ExecutionID).Set(ctx, record)
}

func (a *FirestoreAdapter) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	return a.storage.Executions().Doc(id).Update(ctx, data)
}

func (a *FirestoreAdapter) GetUser(ctx context.Context, id string) (*types.UserRecord, error) {
	user, err := a.storage.Users().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapNotFound(err, "user %s", id)
	}
	return user, nil
}

func (a *FirestoreAdapter) GetUserPipelines(ctx context.Context, userID string) ([]*types.PipelineConfig, error) {
	return a.storage.UserPipelines(userID).All(ctx)
}

func (a *FirestoreAdapter) GetPendingInput(ctx context.Context, userID, id string) (*types.PendingInput, error) {
	input, err := a.storage.UserPendingInputs(userID).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapNotFound(err, "pending input %s", id)
	}
	return input, nil
}

// CreatePendingInput is create-if-absent: a concurrent pass losing the Create
// race reads back the winner's record instead of overwriting it. Status
// transitions (WAITING to COMPLETED) happen elsewhere and must never be
// reverted here.
func (a *FirestoreAdapter) CreatePendingInput(ctx context.Context, userID string, input *types.PendingInput) (*types.PendingInput, error) {
	doc := a.storage.UserPendingInputs(userID).Doc(input.ID)
	err := doc.Create(ctx, input)
	if err == nil {
		return input, nil
	}
	if status.Code(err) == codes.AlreadyExists {
		existing, getErr := doc.Get(ctx)
		if getErr != nil {
			return nil, fmt.Errorf("read existing pending input %s: %w", input.ID, getErr)
		}
		return existing, nil
	}
	return nil, fmt.Errorf("create pending input %s: %w", input.ID, err)
}

func mapNotFound(err error, format string, args ...interface{}) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf(format+": %w", append(args, shared.ErrNotFound)...)
	}
	return err
}
