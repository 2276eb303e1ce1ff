// Package enricher drives the enrichment pipeline: it resolves configured
// providers, invokes them in order, folds their results into the activity,
// and turns wait signals into persisted pending-input records.
package enricher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	shared "github.com/fitglue/enricher/pkg"
	"github.com/fitglue/enricher/pkg/description"
	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

// RunStatus is the terminal status of one pipeline pass.
type RunStatus string

const (
	// RunSuccess: every configured provider ran (or was skipped) and the
	// enriched activity is ready to publish.
	RunSuccess RunStatus = "SUCCESS"
	// RunAwaitingInput: a provider raised a wait signal; the pass halted and a
	// WAITING record was persisted. Not a failure.
	RunAwaitingInput RunStatus = "AWAITING_INPUT"
	// RunRetryable: a transient failure; the caller should let the transport
	// redeliver the message.
	RunRetryable RunStatus = "RETRYABLE"
	// RunConfigError: the pipeline references an unknown provider. Never
	// retried; redelivery cannot fix configuration.
	RunConfigError RunStatus = "CONFIG_ERROR"
	// RunFailed: a provider hit an invariant violation. Never retried.
	RunFailed RunStatus = "FAILED"
)

// ErrUnknownProvider marks pipeline entries that resolve to nothing.
var ErrUnknownProvider = errors.New("unknown provider")

// ProviderExecution tracks a single provider invocation for telemetry.
type ProviderExecution struct {
	Provider    string
	ExecutionID string
	Status      string
	Error       string
	DurationMs  int64
	Metadata    map[string]string
}

// RunResult is the outcome of one pipeline pass.
type RunResult struct {
	Status   RunStatus
	Activity *types.Activity

	// Wait is set when Status is RunAwaitingInput.
	Wait *providers.WaitSignal

	AppliedEnrichments []string
	Metadata           map[string]string
	Executions         []ProviderExecution

	PipelineExecutionID string
}

// Orchestrator executes enrichment pipelines. One Run call is one synchronous
// pass over one activity; concurrency only exists across independent calls.
type Orchestrator struct {
	registry      *Registry
	database      shared.Database
	notifications shared.NotificationService
}

func NewOrchestrator(registry *Registry, db shared.Database, notifications shared.NotificationService) *Orchestrator {
	return &Orchestrator{
		registry:      registry,
		database:      db,
		notifications: notifications,
	}
}

// Run executes the configured providers strictly in order against a private
// clone of the payload's activity. Providers never mutate the activity
// themselves; their results are folded in here, so an aborted pass leaves no
// partial writes behind.
//
// Because description fragments are merged as replaceable sections, re-running
// a pass that was interrupted (or redelivered) produces the same description
// as running it once straight through.
func (o *Orchestrator) Run(ctx context.Context, logger *slog.Logger, payload *types.ActivityPayload, user *types.UserRecord, pipeline *types.PipelineConfig, baseExecutionID string, doNotRetry bool) (*RunResult, error) {
	if payload == nil || payload.Activity == nil {
		return &RunResult{Status: RunFailed}, fmt.Errorf("activity payload is nil")
	}

	pipelineExecutionID := fmt.Sprintf("%s-%s", baseExecutionID, pipeline.ID)
	logger = logger.With("pipeline_id", pipeline.ID, "pipeline_execution_id", pipelineExecutionID)

	activity := payload.Activity.Clone()
	desc := activity.Description

	result := &RunResult{
		Status:              RunSuccess,
		Activity:            activity,
		Metadata:            make(map[string]string),
		PipelineExecutionID: pipelineExecutionID,
	}

	for _, entry := range pipeline.Enrichers {
		id := providers.ID(entry.Provider)
		provider, ok := o.registry.Resolve(id)
		if !ok {
			logger.Error("Provider not registered", "provider", entry.Provider)
			result.Status = RunConfigError
			result.Executions = append(result.Executions, ProviderExecution{
				Provider: entry.Provider,
				Status:   "CONFIG_ERROR",
				Error:    "provider not registered",
			})
			return result, fmt.Errorf("%w: %s", ErrUnknownProvider, entry.Provider)
		}

		inputs := buildInputs(entry.Config, pipeline.ID, pipelineExecutionID)
		entryDoNotRetry := doNotRetry || entry.DoNotRetry

		execID := uuid.NewString()
		started := time.Now()
		pe := ProviderExecution{Provider: entry.Provider, ExecutionID: execID}

		providerLogger := logger.With("provider", entry.Provider, "execution_id", execID)
		outcome, err := provider.Enrich(ctx, providerLogger, activity, user, inputs, entryDoNotRetry)
		pe.DurationMs = time.Since(started).Milliseconds()

		if err != nil {
			var retryErr *providers.RetryableError
			if errors.As(err, &retryErr) {
				if entryDoNotRetry {
					// Retry budget spent: degrade to a skipped provider and
					// keep going so the rest of the pipeline still applies.
					providerLogger.Warn("Provider failed transiently, continuing without it", "error", err)
					pe.Status = "ERROR"
					pe.Error = retryErr.Reason
					pe.Metadata = map[string]string{providers.StatusKey(id): "error"}
					result.Metadata[providers.StatusKey(id)] = "error"
					result.Executions = append(result.Executions, pe)
					continue
				}
				providerLogger.Warn("Provider requested retry", "reason", retryErr.Reason, "retry_after", retryErr.RetryAfter)
				pe.Status = "RETRY"
				pe.Error = retryErr.Reason
				result.Executions = append(result.Executions, pe)
				result.Status = RunRetryable
				return result, retryErr
			}

			providerLogger.Error("Provider failed", "error", err, "duration_ms", pe.DurationMs)
			pe.Status = "FAILED"
			pe.Error = err.Error()
			result.Executions = append(result.Executions, pe)
			result.Status = RunFailed
			return result, fmt.Errorf("enricher failed: %s: %w", entry.Provider, err)
		}

		switch out := outcome.(type) {
		case providers.AwaitingInput:
			pe.Status = "WAITING"
			pe.Metadata = map[string]string{
				"pending_input_id": out.Signal.StableID,
				"required_fields":  strings.Join(out.Signal.RequiredFields, ","),
			}
			result.Executions = append(result.Executions, pe)
			return o.handleWait(ctx, logger, payload, user, result, out.Signal)

		case providers.Applied:
			res := out.Result
			if res == nil {
				providerLogger.Warn("Provider returned nil result")
				pe.Status = "SKIPPED"
				pe.Error = "nil result"
				result.Executions = append(result.Executions, pe)
				continue
			}

			pe.Status = "SUCCESS"
			pe.Metadata = res.Metadata
			result.Executions = append(result.Executions, pe)
			result.AppliedEnrichments = append(result.AppliedEnrichments, entry.Provider)

			for k, v := range res.Metadata {
				result.Metadata[k] = v
			}

			// Apply changes immediately so the next provider observes them.
			if res.Name != "" {
				activity.Name = res.Name
			}
			desc = mergeDescription(desc, res)
			activity.Description = desc

			providerLogger.Debug("Provider completed", "duration_ms", pe.DurationMs, "description_len", len(desc))

		default:
			pe.Status = "FAILED"
			pe.Error = "nil outcome"
			result.Executions = append(result.Executions, pe)
			result.Status = RunFailed
			return result, fmt.Errorf("enricher returned no outcome: %s", entry.Provider)
		}
	}

	activity.Description = desc
	return result, nil
}

// mergeDescription folds a result's fragment into the accumulated description.
// Section-tagged fragments replace their own prior section; override results
// reset the text wholesale; everything else appends once.
func mergeDescription(desc string, res *providers.EnrichmentResult) string {
	fragment := strings.TrimSpace(res.Description)
	if fragment == "" {
		return desc
	}
	if res.ReplaceDescription {
		return fragment
	}
	header := res.SectionHeader
	if header == "" {
		// Fall back to the fragment's first line, which by convention is the
		// emoji-prefixed section header.
		if i := strings.IndexByte(fragment, '\n'); i >= 0 {
			header = fragment[:i]
		} else {
			header = fragment
		}
	}
	return description.ReplaceSection(desc, header, fragment)
}

// handleWait persists the WAITING record and reports the pause. Creation is
// create-if-absent: a redelivered pass re-raising the same signal finds the
// existing record instead of duplicating it.
func (o *Orchestrator) handleWait(ctx context.Context, logger *slog.Logger, payload *types.ActivityPayload, user *types.UserRecord, result *RunResult, sig *providers.WaitSignal) (*RunResult, error) {
	logger.Info("Provider awaiting user input", "pending_input_id", sig.StableID, "required_fields", sig.RequiredFields)

	now := time.Now().UTC()
	record := &types.PendingInput{
		ID:              sig.StableID,
		UserID:          user.UserID,
		Provider:        string(sig.Provider),
		Status:          types.PendingInputWaiting,
		RequiredFields:  sig.RequiredFields,
		DisplayMetadata: sig.DisplayMetadata,
		OriginalPayload: payload,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := o.database.CreatePendingInput(ctx, user.UserID, record); err != nil {
		// The wait state could not be persisted, so the pause would be lost.
		// Surface as retryable: redelivery will re-raise the same signal.
		result.Status = RunRetryable
		return result, providers.NewRetryableError(err, time.Minute, "persist pending input")
	}

	if o.notifications != nil {
		// Best effort: the WAITING record is already persisted, so a missed
		// push only delays the user, it never loses the pause.
		if err := o.notifications.NotifyPendingInput(ctx, user, sig.StableID); err != nil {
			logger.Error("Failed to send pending input notification", "error", err)
		}
	}

	result.Status = RunAwaitingInput
	result.Wait = sig
	return result, nil
}

// ResolvePipelines returns the user's enabled pipelines matching the payload:
// by pinned pipeline ID when set (resume), otherwise by activity source.
func ResolvePipelines(ctx context.Context, logger *slog.Logger, db shared.Database, payload *types.ActivityPayload) ([]*types.PipelineConfig, error) {
	all, err := db.GetUserPipelines(ctx, payload.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user pipelines: %w", err)
	}

	var matched []*types.PipelineConfig
	for _, p := range all {
		if p.Disabled {
			logger.Debug("Skipping disabled pipeline", "pipeline_id", p.ID)
			continue
		}
		if payload.PipelineID != "" {
			// Resume targets one pipeline regardless of source filtering.
			if p.ID == payload.PipelineID {
				return []*types.PipelineConfig{p}, nil
			}
			continue
		}
		if p.Source == payload.Source {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func buildInputs(config map[string]string, pipelineID, pipelineExecutionID string) map[string]string {
	inputs := make(map[string]string, len(config)+2)
	for k, v := range config {
		inputs[k] = v
	}
	inputs["pipeline_id"] = pipelineID
	inputs["pipeline_execution_id"] = pipelineExecutionID
	return inputs
}
