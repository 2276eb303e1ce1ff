package enricher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/testing/mocks"
	"github.com/fitglue/enricher/pkg/types"
)

func testPayload() *types.ActivityPayload {
	return &types.ActivityPayload{
		UserID: "user-123",
		Source: "hevy",
		Activity: &types.Activity{
			Source:     "hevy",
			ExternalID: "workout-1",
			Name:       "Original Run",
			StartTime:  time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
			Sessions: []*types.Session{
				{
					StartTime:        time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
					TotalElapsedTime: 60,
					Laps:             []*types.Lap{{Records: []*types.Record{{HeartRate: 120}}}},
				},
			},
		},
	}
}

func testUser() *types.UserRecord {
	return &types.UserRecord{UserID: "user-123", FCMTokens: []string{"token-1"}}
}

func pipelineOf(entries ...*types.EnricherConfig) *types.PipelineConfig {
	return &types.PipelineConfig{
		ID:        "pipeline-1",
		Source:    "hevy",
		Enrichers: entries,
	}
}

func appliedProvider(id providers.ID, res *providers.EnrichmentResult) *stubProvider {
	return &stubProvider{
		IdentityFunc: func() providers.ID { return id },
		EnrichFunc: func(ctx context.Context, _ *slog.Logger, _ *types.Activity, _ *types.UserRecord, _ map[string]string, _ bool) (providers.Outcome, error) {
			return providers.Done(res), nil
		},
	}
}

func TestOrchestratorRun(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("folds results from providers in order", func(t *testing.T) {
		first := appliedProvider("first", &providers.EnrichmentResult{
			Name:          "Enriched Run",
			Description:   "💪 Training Load: 85 (Easy)",
			SectionHeader: "💪 Training Load:",
			Metadata:      map[string]string{"first_status": "success"},
		})
		second := appliedProvider("second", &providers.EnrichmentResult{
			Description:   "❤️ Heart Rate: 120 bpm avg",
			SectionHeader: "❤️ Heart Rate:",
			Metadata:      map[string]string{"second_status": "success"},
		})

		registry, err := NewRegistry(first, second)
		require.NoError(t, err)
		o := NewOrchestrator(registry, &mocks.MockDatabase{}, nil)

		payload := testPayload()
		result, err := o.Run(ctx, logger, payload, testUser(), pipelineOf(
			&types.EnricherConfig{Provider: "first"},
			&types.EnricherConfig{Provider: "second"},
		), "exec-1", false)

		require.NoError(t, err)
		assert.Equal(t, RunSuccess, result.Status)
		assert.Equal(t, "Enriched Run", result.Activity.Name)
		assert.Equal(t, "💪 Training Load: 85 (Easy)\n\n❤️ Heart Rate: 120 bpm avg", result.Activity.Description)
		assert.Equal(t, []string{"first", "second"}, result.AppliedEnrichments)
		assert.Equal(t, "success", result.Metadata["first_status"])
		assert.Equal(t, "success", result.Metadata["second_status"])
		assert.Len(t, result.Executions, 2)
		assert.Equal(t, "exec-1-pipeline-1", result.PipelineExecutionID)

		// The payload's activity must stay untouched.
		assert.Equal(t, "Original Run", payload.Activity.Name)
		assert.Empty(t, payload.Activity.Description)
	})

	t.Run("re-running a completed pass yields the same description", func(t *testing.T) {
		p := appliedProvider("load", &providers.EnrichmentResult{
			Description:   "💪 Training Load: 85 (Easy)",
			SectionHeader: "💪 Training Load:",
		})
		registry, err := NewRegistry(p)
		require.NoError(t, err)
		o := NewOrchestrator(registry, &mocks.MockDatabase{}, nil)
		pipeline := pipelineOf(&types.EnricherConfig{Provider: "load"})

		payload := testPayload()
		first, err := o.Run(ctx, logger, payload, testUser(), pipeline, "exec-1", false)
		require.NoError(t, err)

		// Redelivery: the already-enriched description comes back in.
		payload.Activity.Description = first.Activity.Description
		second, err := o.Run(ctx, logger, payload, testUser(), pipeline, "exec-2", false)
		require.NoError(t, err)

		assert.Equal(t, first.Activity.Description, second.Activity.Description)
	})

	t.Run("wait signal halts the pass and persists a WAITING record", func(t *testing.T) {
		var created *types.PendingInput
		var notifiedID string
		db := &mocks.MockDatabase{
			CreatePendingInputFunc: func(ctx context.Context, userID string, input *types.PendingInput) (*types.PendingInput, error) {
				created = input
				return input, nil
			},
		}
		notify := &mocks.MockNotificationService{
			NotifyPendingInputFunc: func(ctx context.Context, user *types.UserRecord, pendingInputID string) error {
				notifiedID = pendingInputID
				return nil
			},
		}

		waiting := &stubProvider{
			IdentityFunc: func() providers.ID { return "user-input" },
			EnrichFunc: func(ctx context.Context, _ *slog.Logger, _ *types.Activity, _ *types.UserRecord, _ map[string]string, _ bool) (providers.Outcome, error) {
				return providers.Wait(&providers.WaitSignal{
					StableID:       "hevy:workout-1:user-input",
					Provider:       "user-input",
					RequiredFields: []string{"description"},
				}), nil
			},
		}
		var afterRan bool
		after := &stubProvider{
			IdentityFunc: func() providers.ID { return "after" },
			EnrichFunc: func(ctx context.Context, _ *slog.Logger, _ *types.Activity, _ *types.UserRecord, _ map[string]string, _ bool) (providers.Outcome, error) {
				afterRan = true
				return providers.Done(&providers.EnrichmentResult{}), nil
			},
		}

		registry, err := NewRegistry(waiting, after)
		require.NoError(t, err)
		o := NewOrchestrator(registry, db, notify)

		payload := testPayload()
		result, err := o.Run(ctx, logger, payload, testUser(), pipelineOf(
			&types.EnricherConfig{Provider: "user-input"},
			&types.EnricherConfig{Provider: "after"},
		), "exec-1", false)

		require.NoError(t, err)
		assert.Equal(t, RunAwaitingInput, result.Status)
		require.NotNil(t, result.Wait)
		assert.Equal(t, "hevy:workout-1:user-input", result.Wait.StableID)
		assert.False(t, afterRan, "providers after the wait must not run")
		assert.Equal(t, "hevy:workout-1:user-input", notifiedID, "user should be notified of the pending input")

		require.NotNil(t, created)
		assert.Equal(t, types.PendingInputWaiting, created.Status)
		assert.Equal(t, "user-123", created.UserID)
		assert.Equal(t, []string{"description"}, created.RequiredFields)
		require.NotNil(t, created.OriginalPayload, "payload snapshot enables resume")
		assert.Equal(t, payload.Activity.ExternalID, created.OriginalPayload.Activity.ExternalID)
	})

	t.Run("wait persistence failure becomes retryable", func(t *testing.T) {
		db := &mocks.MockDatabase{
			CreatePendingInputFunc: func(ctx context.Context, userID string, input *types.PendingInput) (*types.PendingInput, error) {
				return nil, fmt.Errorf("firestore unavailable")
			},
		}
		waiting := &stubProvider{
			IdentityFunc: func() providers.ID { return "user-input" },
			EnrichFunc: func(ctx context.Context, _ *slog.Logger, _ *types.Activity, _ *types.UserRecord, _ map[string]string, _ bool) (providers.Outcome, error) {
				return providers.Wait(&providers.WaitSignal{StableID: "id", Provider: "user-input"}), nil
			},
		}
		registry, err := NewRegistry(waiting)
		require.NoError(t, err)
		o := NewOrchestrator(registry, db, nil)

		result, err := o.Run(ctx, logger, testPayload(), testUser(), pipelineOf(
			&types.EnricherConfig{Provider: "user-input"},
		), "exec-1", false)

		require.Error(t, err)
		assert.Equal(t, RunRetryable, result.Status)
		var retryErr *providers.RetryableError
		assert.True(t, errors.As(err, &retryErr))
	})

	t.Run("retryable error propagates when retries remain", func(t *testing.T) {
		lagging := &stubProvider{
			IdentityFunc: func() providers.ID { return "lagging" },
			EnrichFunc: func(ctx context.Context, _ *slog.Logger, _ *types.Activity, _ *types.UserRecord, _ map[string]string, _ bool) (providers.Outcome, error) {
				return nil, providers.NewRetryableError(fmt.Errorf("data not ready"), time.Minute, "source lag")
			},
		}
		registry, err := NewRegistry(lagging)
		require.NoError(t, err)
		o := NewOrchestrator(registry, &mocks.MockDatabase{}, nil)

		result, err := o.Run(ctx, logger, testPayload(), testUser(), pipelineOf(
			&types.EnricherConfig{Provider: "lagging"},
		), "exec-1", false)

		require.Error(t, err)
		assert.Equal(t, RunRetryable, result.Status)
		var retryErr *providers.RetryableError
		require.True(t, errors.As(err, &retryErr))
		assert.Equal(t, "source lag", retryErr.Reason)
	})

	t.Run("retryable error degrades and continues when do-not-retry is set", func(t *testing.T) {
		lagging := &stubProvider{
			IdentityFunc: func() providers.ID { return "lagging" },
			EnrichFunc: func(ctx context.Context, _ *slog.Logger, _ *types.Activity, _ *types.UserRecord, _ map[string]string, _ bool) (providers.Outcome, error) {
				return nil, providers.NewRetryableError(fmt.Errorf("data not ready"), time.Minute, "source lag")
			},
		}
		after := appliedProvider("after", &providers.EnrichmentResult{
			Metadata: map[string]string{"after_status": "success"},
		})
		registry, err := NewRegistry(lagging, after)
		require.NoError(t, err)
		o := NewOrchestrator(registry, &mocks.MockDatabase{}, nil)

		result, err := o.Run(ctx, logger, testPayload(), testUser(), pipelineOf(
			&types.EnricherConfig{Provider: "lagging"},
			&types.EnricherConfig{Provider: "after"},
		), "exec-1", true)

		require.NoError(t, err)
		assert.Equal(t, RunSuccess, result.Status)
		assert.Equal(t, "error", result.Metadata["lagging_status"])
		assert.Equal(t, "success", result.Metadata["after_status"])
		assert.Equal(t, []string{"after"}, result.AppliedEnrichments)
	})

	t.Run("entry-level do-not-retry degrades a single provider", func(t *testing.T) {
		lagging := &stubProvider{
			IdentityFunc: func() providers.ID { return "lagging" },
			EnrichFunc: func(ctx context.Context, _ *slog.Logger, _ *types.Activity, _ *types.UserRecord, _ map[string]string, doNotRetry bool) (providers.Outcome, error) {
				require.True(t, doNotRetry)
				return nil, providers.NewRetryableError(fmt.Errorf("data not ready"), 0, "source lag")
			},
		}
		registry, err := NewRegistry(lagging)
		require.NoError(t, err)
		o := NewOrchestrator(registry, &mocks.MockDatabase{}, nil)

		result, err := o.Run(ctx, logger, testPayload(), testUser(), pipelineOf(
			&types.EnricherConfig{Provider: "lagging", DoNotRetry: true},
		), "exec-1", false)

		require.NoError(t, err)
		assert.Equal(t, RunSuccess, result.Status)
		assert.Equal(t, "error", result.Metadata["lagging_status"])
	})

	t.Run("unknown provider is a config error", func(t *testing.T) {
		registry, err := NewRegistry()
		require.NoError(t, err)
		o := NewOrchestrator(registry, &mocks.MockDatabase{}, nil)

		result, err := o.Run(ctx, logger, testPayload(), testUser(), pipelineOf(
			&types.EnricherConfig{Provider: "does-not-exist"},
		), "exec-1", false)

		require.Error(t, err)
		assert.Equal(t, RunConfigError, result.Status)
		assert.True(t, errors.Is(err, ErrUnknownProvider))
	})

	t.Run("hard provider error fails the pass", func(t *testing.T) {
		broken := &stubProvider{
			IdentityFunc: func() providers.ID { return "broken" },
			EnrichFunc: func(ctx context.Context, _ *slog.Logger, _ *types.Activity, _ *types.UserRecord, _ map[string]string, _ bool) (providers.Outcome, error) {
				return nil, fmt.Errorf("invariant violated")
			},
		}
		registry, err := NewRegistry(broken)
		require.NoError(t, err)
		o := NewOrchestrator(registry, &mocks.MockDatabase{}, nil)

		result, err := o.Run(ctx, logger, testPayload(), testUser(), pipelineOf(
			&types.EnricherConfig{Provider: "broken"},
		), "exec-1", false)

		require.Error(t, err)
		assert.Equal(t, RunFailed, result.Status)
	})

	t.Run("replace-description result resets accumulated text", func(t *testing.T) {
		section := appliedProvider("section", &providers.EnrichmentResult{
			Description:   "💪 Training Load: 85 (Easy)",
			SectionHeader: "💪 Training Load:",
		})
		override := appliedProvider("override", &providers.EnrichmentResult{
			Description:        "My own words about this run",
			ReplaceDescription: true,
		})
		registry, err := NewRegistry(section, override)
		require.NoError(t, err)
		o := NewOrchestrator(registry, &mocks.MockDatabase{}, nil)

		result, err := o.Run(ctx, logger, testPayload(), testUser(), pipelineOf(
			&types.EnricherConfig{Provider: "section"},
			&types.EnricherConfig{Provider: "override"},
		), "exec-1", false)

		require.NoError(t, err)
		assert.Equal(t, "My own words about this run", result.Activity.Description)
	})
}

func TestResolvePipelines(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	pipelines := []*types.PipelineConfig{
		{ID: "p-hevy", Source: "hevy"},
		{ID: "p-strava", Source: "strava"},
		{ID: "p-disabled", Source: "hevy", Disabled: true},
	}
	db := &mocks.MockDatabase{
		GetUserPipelinesFunc: func(ctx context.Context, userID string) ([]*types.PipelineConfig, error) {
			return pipelines, nil
		},
	}

	t.Run("filters by source and skips disabled", func(t *testing.T) {
		matched, err := ResolvePipelines(ctx, logger, db, &types.ActivityPayload{UserID: "u", Source: "hevy"})
		require.NoError(t, err)
		require.Len(t, matched, 1)
		assert.Equal(t, "p-hevy", matched[0].ID)
	})

	t.Run("pinned pipeline ID wins over source filter", func(t *testing.T) {
		matched, err := ResolvePipelines(ctx, logger, db, &types.ActivityPayload{
			UserID: "u", Source: "hevy", PipelineID: "p-strava",
		})
		require.NoError(t, err)
		require.Len(t, matched, 1)
		assert.Equal(t, "p-strava", matched[0].ID)
	})

	t.Run("pinned ID matching nothing yields empty", func(t *testing.T) {
		matched, err := ResolvePipelines(ctx, logger, db, &types.ActivityPayload{
			UserID: "u", Source: "hevy", PipelineID: "gone",
		})
		require.NoError(t, err)
		assert.Empty(t, matched)
	})
}
