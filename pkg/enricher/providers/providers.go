// Package providers defines the capability contract every enrichment provider
// implements, and the outcome values the orchestrator folds into an activity.
package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/fitglue/enricher/pkg/types"
)

// ID is the stable identity of a provider (e.g. "source-link"). IDs are
// unique across the registry and appear verbatim in pipeline configuration.
type ID string

// EnrichmentResult represents the applied outcome of one provider invocation.
type EnrichmentResult struct {
	// Name overrides the activity name when non-empty.
	Name string

	// Description is a fragment merged into the activity description.
	Description string

	// SectionHeader identifies the fragment as a replaceable section. When the
	// section already exists in the description it is replaced in place rather
	// than appended, so repeated passes cannot stack duplicates.
	// Example: "💪 Training Load:"
	SectionHeader string

	// ReplaceDescription resets the whole description to the fragment instead
	// of merging it as a section (used for user-supplied overrides).
	ReplaceDescription bool

	// Metadata is folded into the published event. Keys are provider-prefixed
	// by convention ("training_load_status", "speed_avg_kmh", ...) so entries
	// from different providers never collide.
	Metadata map[string]string
}

// WaitSignal asks the orchestrator to stop the pipeline pending human input.
// It is an expected pause, not an error.
type WaitSignal struct {
	// StableID keys the persisted pending-input record; derived from
	// (source, external ID, provider) so redeliveries converge on one record.
	StableID string

	// Provider is the identity of the provider raising the wait.
	Provider ID

	// RequiredFields lists the inputs the user must supply.
	RequiredFields []string

	// DisplayMetadata carries labels/types/summary for the external
	// input-collection surface.
	DisplayMetadata map[string]string
}

// Outcome is the result sum of one provider invocation: either an applied
// enrichment or a request to pause for input. Failures travel on the error
// return instead.
type Outcome interface {
	outcome()
}

// Applied wraps a completed enrichment, including "nothing to do" results
// carrying a skipped status in their metadata.
type Applied struct {
	Result *EnrichmentResult
}

// AwaitingInput wraps a wait signal.
type AwaitingInput struct {
	Signal *WaitSignal
}

func (Applied) outcome()       {}
func (AwaitingInput) outcome() {}

// Done is a convenience constructor for an applied outcome.
func Done(res *EnrichmentResult) Outcome { return Applied{Result: res} }

// Wait is a convenience constructor for an awaiting-input outcome.
func Wait(sig *WaitSignal) Outcome { return AwaitingInput{Signal: sig} }

// Skipped builds an applied outcome that records why a provider had no
// applicable data. Absence of data is success, not failure.
func Skipped(provider ID, detail string) Outcome {
	md := map[string]string{statusKey(provider): "skipped"}
	if detail != "" {
		md["status_detail"] = detail
	}
	return Applied{Result: &EnrichmentResult{Metadata: md}}
}

func statusKey(provider ID) string {
	out := make([]byte, 0, len(provider)+8)
	for i := 0; i < len(provider); i++ {
		c := provider[i]
		if c == '-' {
			c = '_'
		}
		out = append(out, c)
	}
	return string(out) + "_status"
}

// StatusKey returns the metadata key a provider reports its status under.
func StatusKey(provider ID) string { return statusKey(provider) }

// RetryableError signals a transient dependency failure. The pass is retried
// by the transport's redelivery unless the pipeline entry opts out.
type RetryableError struct {
	Err        error
	RetryAfter time.Duration
	Reason     string
}

func (e *RetryableError) Error() string {
	return "retryable: " + e.Reason + ": " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error { return e.Err }

// NewRetryableError wraps a transient failure with a retry hint.
func NewRetryableError(err error, retryAfter time.Duration, reason string) *RetryableError {
	return &RetryableError{Err: err, RetryAfter: retryAfter, Reason: reason}
}

// Provider is the contract every enrichment capability implements.
// Implementations are read-only over the activity and stateless between
// invocations; any state they need lives in the pending-input store.
type Provider interface {
	// Identity returns the unique identifier for the provider.
	Identity() ID

	// Enrich inspects the activity and returns an outcome. A nil Outcome with
	// a nil error is invalid. doNotRetry tells the provider that the retry
	// budget is exhausted and partial output is preferred over a
	// RetryableError.
	Enrich(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (Outcome, error)
}
