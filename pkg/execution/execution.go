// Package execution records per-invocation lifecycle documents used by the
// admin surface. Write failures here are logged and swallowed by callers;
// observability must never fail the work itself.
package execution

import (
	"context"
	"time"

	"github.com/google/uuid"

	shared "github.com/fitglue/enricher/pkg"
	"github.com/fitglue/enricher/pkg/types"
)

// ExecutionOptions carries optional metadata for a new execution record.
type ExecutionOptions struct {
	UserID      string
	TestRunID   string
	TriggerType string
}

// LogStart creates a STARTED record and returns its ID.
func LogStart(ctx context.Context, db shared.Database, service string, opts ExecutionOptions) (string, error) {
	id := uuid.NewString()
	record := &types.ExecutionRecord{
		ExecutionID: id,
		Service:     service,
		UserID:      opts.UserID,
		TestRunID:   opts.TestRunID,
		TriggerType: opts.TriggerType,
		Status:      types.StatusStarted,
		StartedAt:   time.Now().UTC(),
	}
	if err := db.SetExecution(ctx, record); err != nil {
		return id, err
	}
	return id, nil
}

// LogSuccess marks the record SUCCESS with final outputs.
func LogSuccess(ctx context.Context, db shared.Database, id string, outputs interface{}) error {
	return LogStatus(ctx, db, id, types.StatusSuccess, outputs)
}

// LogFailure marks the record FAILED, preserving any partial outputs.
func LogFailure(ctx context.Context, db shared.Database, id string, cause error, outputs interface{}) error {
	updates := map[string]interface{}{
		"status":      types.StatusFailed,
		"finished_at": time.Now().UTC(),
	}
	if cause != nil {
		updates["error"] = cause.Error()
	}
	if outputs != nil {
		updates["outputs"] = outputs
	}
	return db.UpdateExecution(ctx, id, updates)
}

// LogStatus marks the record with an explicit terminal status.
func LogStatus(ctx context.Context, db shared.Database, id string, status string, outputs interface{}) error {
	updates := map[string]interface{}{
		"status":      status,
		"finished_at": time.Now().UTC(),
	}
	if outputs != nil {
		updates["outputs"] = outputs
	}
	return db.UpdateExecution(ctx, id, updates)
}
