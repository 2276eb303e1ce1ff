// Package enricher is the cloud function that consumes normalized activity
// payloads and runs each matching pipeline's providers over them.
package enricher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/fitglue/enricher/pkg"
	"github.com/fitglue/enricher/pkg/bootstrap"
	"github.com/fitglue/enricher/pkg/enricher"
	"github.com/fitglue/enricher/pkg/enricher/providers/elevation_summary"
	"github.com/fitglue/enricher/pkg/enricher/providers/heart_rate_summary"
	"github.com/fitglue/enricher/pkg/enricher/providers/mock"
	"github.com/fitglue/enricher/pkg/enricher/providers/running_dynamics"
	"github.com/fitglue/enricher/pkg/enricher/providers/source_link"
	"github.com/fitglue/enricher/pkg/enricher/providers/speed_summary"
	"github.com/fitglue/enricher/pkg/enricher/providers/training_load"
	"github.com/fitglue/enricher/pkg/enricher/providers/user_input"
	"github.com/fitglue/enricher/pkg/framework"
	infrapubsub "github.com/fitglue/enricher/pkg/infrastructure/pubsub"
	infrasentry "github.com/fitglue/enricher/pkg/infrastructure/sentry"
	infrastorage "github.com/fitglue/enricher/pkg/infrastructure/storage"
	"github.com/fitglue/enricher/pkg/types"
)

// Messages older than this have exhausted the lag queue's backoff and run in
// forced (do-not-retry) mode.
const lagExhaustion = 15 * time.Minute

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("EnrichActivity", EnrichActivity)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx)
		if svcErr != nil {
			slog.Error("Failed to initialize service", "error", svcErr)
		}
	})
	return svc, svcErr
}

// EnrichActivity is the entry point
func EnrichActivity(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("enricher", svc, enrichHandler)(ctx, e)
}

func buildRegistry(svc *bootstrap.Service) (*enricher.Registry, error) {
	return enricher.NewRegistry(
		source_link.New(),
		training_load.New(),
		speed_summary.New(),
		running_dynamics.New(),
		heart_rate_summary.New(),
		elevation_summary.New(),
		user_input.New(svc.DB, user_input.Options{
			RequireSourceKey: svc.Config.RequireSourceKey,
			Secrets:          svc.Secrets,
		}),
		mock.New(),
	)
}

// publishedEvent is the per-pipeline output recorded on the execution record.
type publishedEvent struct {
	ActivityID         string   `json:"activity_id"`
	PipelineID         string   `json:"pipeline_id"`
	Destinations       []string `json:"destinations"`
	AppliedEnrichments []string `json:"applied_enrichments"`
	ArtifactURI        string   `json:"artifact_uri,omitempty"`
	PubSubMessageID    string   `json:"pubsub_message_id"`
}

// enrichHandler contains the business logic
func enrichHandler(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err != nil {
		return nil, fmt.Errorf("event.DataAs: %v", err)
	}

	var payload types.ActivityPayload
	if err := json.Unmarshal(msg.Message.Data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal activity payload: %v", err)
	}
	if err := validatePayload(&payload); err != nil {
		return nil, err
	}

	fwCtx.Logger.Info("Starting enrichment",
		"source", payload.Source,
		"activity_id", payload.Activity.ExternalID,
		"pinned_pipeline", payload.PipelineID,
	)

	registry, err := buildRegistry(fwCtx.Service)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}
	orchestrator := enricher.NewOrchestrator(registry, fwCtx.Service.DB, fwCtx.Service.Notify)

	user, err := fwCtx.Service.DB.GetUser(ctx, payload.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", payload.UserID, err)
	}

	pipelines, err := enricher.ResolvePipelines(ctx, fwCtx.Logger, fwCtx.Service.DB, &payload)
	if err != nil {
		return nil, err
	}
	if len(pipelines) == 0 {
		fwCtx.Logger.Info("No pipelines matched, skipping enrichment")
		return map[string]interface{}{"status": types.StatusSkipped}, nil
	}

	// For Pub/Sub events e.Time() is the publish time. Old messages have been
	// through the lag queue's full backoff already; force partial enrichment
	// rather than looping forever.
	doNotRetry := false
	if !e.Time().IsZero() {
		if lag := time.Since(e.Time()); lag > lagExhaustion {
			fwCtx.Logger.Warn("Activity lag exhausted, forcing partial enrichment", "age", lag)
			doNotRetry = true
		}
	}

	var (
		published  []publishedEvent
		waiting    []string
		executions []enricher.ProviderExecution
	)

	for _, pipeline := range pipelines {
		result, runErr := orchestrator.Run(ctx, fwCtx.Logger, &payload, user, pipeline, fwCtx.ExecutionID, doNotRetry)
		if result != nil {
			executions = append(executions, result.Executions...)
		}

		switch {
		case runErr != nil && result != nil && result.Status == enricher.RunRetryable:
			return handleRetryable(ctx, fwCtx, &msg, runErr)

		case runErr != nil:
			// Config errors and provider invariant violations are terminal;
			// redelivery cannot fix them.
			infrasentry.CaptureException(runErr, map[string]interface{}{
				"user_id":     payload.UserID,
				"pipeline_id": pipeline.ID,
				"activity_id": payload.Activity.ExternalID,
			}, fwCtx.Logger)
			return map[string]interface{}{
				"status":              types.StatusFailed,
				"provider_executions": executions,
			}, runErr

		case result.Status == enricher.RunAwaitingInput:
			fwCtx.Logger.Info("Pipeline paused awaiting user input",
				"pipeline_id", pipeline.ID,
				"pending_input_id", result.Wait.StableID,
			)
			waiting = append(waiting, result.Wait.StableID)

		default:
			pub, pubErr := publishEnriched(ctx, fwCtx, &payload, pipeline, result)
			if pubErr != nil {
				return nil, pubErr
			}
			published = append(published, *pub)
		}
	}

	status := types.StatusSuccess
	if len(published) == 0 && len(waiting) > 0 {
		status = types.StatusWaiting
	}

	fwCtx.Logger.Info("Enrichment complete", "published_count", len(published), "waiting_count", len(waiting))
	return map[string]interface{}{
		"status":              status,
		"published_count":     len(published),
		"published_events":    published,
		"waiting_inputs":      waiting,
		"provider_executions": executions,
	}, nil
}

func validatePayload(payload *types.ActivityPayload) error {
	if payload.UserID == "" {
		return fmt.Errorf("missing user_id in payload")
	}
	if payload.Activity == nil {
		return fmt.Errorf("missing activity in payload")
	}
	if len(payload.Activity.Sessions) == 0 {
		return fmt.Errorf("activity has no sessions")
	}
	if len(payload.Activity.Sessions) > 1 {
		return fmt.Errorf("multiple sessions not supported")
	}
	if payload.Activity.Sessions[0].TotalElapsedTime <= 0 {
		return fmt.Errorf("session total elapsed time is 0")
	}
	return nil
}

// handleRetryable offloads a transient failure to the lag topic once; a
// message already stamped origin=lag-queue is instead failed so the lag
// subscription's backoff policy drives the retry.
func handleRetryable(ctx context.Context, fwCtx *framework.FrameworkContext, msg *types.PubSubMessage, cause error) (interface{}, error) {
	isLagRetry := msg.Message.Attributes != nil && msg.Message.Attributes["origin"] == "lag-queue"

	if isLagRetry {
		fwCtx.Logger.Warn("Lag retry failed (will retry with backoff)", "error", cause)
		return map[string]interface{}{
			"status": types.StatusLaggedRetry,
			"error":  cause.Error(),
		}, cause
	}

	fwCtx.Logger.Info("Activity data lagging, offloading to lag queue", "error", cause)

	// Republish the exact same raw payload; the attribute breaks the loop on
	// the next consumption.
	lagAttributes := map[string]string{"origin": "lag-queue"}
	if _, pubErr := fwCtx.Service.Pub.PublishWithAttrs(ctx, shared.TopicEnrichmentLag, msg.Message.Data, lagAttributes); pubErr != nil {
		fwCtx.Logger.Error("Failed to publish to lag topic", "error", pubErr)
		return nil, pubErr
	}

	// ACK the original message: it now lives in the delay queue.
	return map[string]interface{}{
		"status": types.StatusLagged,
		"reason": cause.Error(),
	}, nil
}

// publishEnriched writes the enriched activity artifact to GCS and publishes
// the downstream event.
func publishEnriched(ctx context.Context, fwCtx *framework.FrameworkContext, payload *types.ActivityPayload, pipeline *types.PipelineConfig, result *enricher.RunResult) (*publishedEvent, error) {
	enrichedEvent := &types.EnrichedActivityEvent{
		UserID:              payload.UserID,
		Source:              payload.Source,
		ActivityID:          payload.Activity.ExternalID,
		Activity:            result.Activity,
		Name:                result.Activity.Name,
		Description:         result.Activity.Description,
		AppliedEnrichments:  result.AppliedEnrichments,
		EnrichmentMetadata:  result.Metadata,
		Destinations:        pipeline.Destinations,
		PipelineID:          pipeline.ID,
		PipelineExecutionID: result.PipelineExecutionID,
		StartTime:           payload.Activity.StartTime,
	}

	// Artifact write is best effort: downstream consumers get the full
	// activity inline and only use the artifact for replay and debugging.
	if bucket := fwCtx.Service.Config.GCSArtifactBucket; bucket != "" {
		object := infrastorage.EnrichedArtifactObject(payload.UserID, result.PipelineExecutionID)
		data, err := json.Marshal(enrichedEvent)
		if err != nil {
			return nil, fmt.Errorf("marshal enriched event: %w", err)
		}
		if err := fwCtx.Service.Store.Write(ctx, bucket, object, data); err != nil {
			fwCtx.Logger.Error("Failed to write enriched artifact", "error", err, "object", object)
		} else {
			enrichedEvent.ArtifactURI = infrastorage.ObjectURI(bucket, object)
		}
	}

	ce, err := infrapubsub.NewEnrichedActivityEvent(result.PipelineExecutionID, enrichedEvent)
	if err != nil {
		return nil, fmt.Errorf("build enriched event for pipeline %s: %w", pipeline.ID, err)
	}
	msgID, err := fwCtx.Service.Pub.PublishCloudEvent(ctx, shared.TopicEnrichedActivity, ce)
	if err != nil {
		return nil, fmt.Errorf("publish enriched event for pipeline %s: %w", pipeline.ID, err)
	}

	fwCtx.Logger.Info("Published enriched event",
		"activity_id", enrichedEvent.ActivityID,
		"pipeline_id", pipeline.ID,
		"destinations", pipeline.Destinations,
		"message_id", msgID,
	)

	return &publishedEvent{
		ActivityID:         enrichedEvent.ActivityID,
		PipelineID:         pipeline.ID,
		Destinations:       pipeline.Destinations,
		AppliedEnrichments: result.AppliedEnrichments,
		ArtifactURI:        enrichedEvent.ArtifactURI,
		PubSubMessageID:    msgID,
	}, nil
}
