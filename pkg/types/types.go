// Package types holds the hand-written domain model shared across the enricher.
// Field names use JSON snake_case on the wire to stay compatible with the
// TypeScript ingestion layer that produces activity payloads.
package types

import "time"

// ActivitySource identifiers as normalized by the ingestion layer.
const (
	SourceHevy   = "hevy"
	SourceStrava = "strava"
	SourceFitbit = "fitbit"
)

// Record is a single time-series sample inside a lap.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	HeartRate int32     `json:"heart_rate,omitempty"` // bpm
	Speed     float64   `json:"speed,omitempty"`      // m/s
	Cadence   int32     `json:"cadence,omitempty"`    // rpm/spm
	Power     int32     `json:"power,omitempty"`      // watts
	Altitude  float64   `json:"altitude,omitempty"`   // meters

	// Running dynamics. Pointers distinguish "absent" from zero.
	GroundContactTime   *float64 `json:"ground_contact_time,omitempty"`  // ms
	VerticalOscillation *float64 `json:"vertical_oscillation,omitempty"` // mm
	StepLength          *float64 `json:"step_length,omitempty"`          // m
}

// Lap groups records; most sources emit a single lap per session.
type Lap struct {
	StartTime        time.Time `json:"start_time"`
	TotalElapsedTime float64   `json:"total_elapsed_time"` // seconds
	Records          []*Record `json:"records"`
}

// Session is one continuous recording block of an activity.
type Session struct {
	Sport            string    `json:"sport,omitempty"`
	StartTime        time.Time `json:"start_time"`
	TotalElapsedTime float64   `json:"total_elapsed_time"` // seconds
	Laps             []*Lap    `json:"laps"`
}

// Activity is the normalized aggregate produced by the ingestion layer.
// Only the orchestrator mutates it, and only by folding enrichment results.
type Activity struct {
	Source      string     `json:"source"`
	ExternalID  string     `json:"external_id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	Sessions    []*Session `json:"sessions"`
}

// Clone returns a deep copy so each pipeline pass works on isolated state.
func (a *Activity) Clone() *Activity {
	if a == nil {
		return nil
	}
	out := *a
	out.Sessions = make([]*Session, len(a.Sessions))
	for i, s := range a.Sessions {
		sc := *s
		sc.Laps = make([]*Lap, len(s.Laps))
		for j, l := range s.Laps {
			lc := *l
			lc.Records = make([]*Record, len(l.Records))
			for k, r := range l.Records {
				rc := *r
				rc.GroundContactTime = clonePtr(r.GroundContactTime)
				rc.VerticalOscillation = clonePtr(r.VerticalOscillation)
				rc.StepLength = clonePtr(r.StepLength)
				lc.Records[k] = &rc
			}
			sc.Laps[j] = &lc
		}
		out.Sessions[i] = &sc
	}
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ActivityPayload is the inbound message: a normalized activity plus routing
// metadata. Redelivered copies of the same logical payload are expected.
type ActivityPayload struct {
	UserID    string    `json:"user_id"`
	Source    string    `json:"source"`
	Activity  *Activity `json:"activity"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	// PipelineID pins the pass to a single pipeline. Set on resume publishes so
	// a pass re-enters exactly the pipeline that raised the wait, even when the
	// source filter would no longer match.
	PipelineID string `json:"pipeline_id,omitempty"`
}

// EnricherConfig is one ordered pipeline entry.
type EnricherConfig struct {
	Provider   string            `json:"provider"`
	Config     map[string]string `json:"config,omitempty"`
	DoNotRetry bool              `json:"do_not_retry,omitempty"`
}

// PipelineConfig is a user-configured enrichment pipeline. Entry order is
// significant and preserved verbatim; later providers observe the description
// state left by earlier ones.
type PipelineConfig struct {
	ID           string            `json:"id"`
	Name         string            `json:"name,omitempty"`
	Source       string            `json:"source"`
	Disabled     bool              `json:"disabled,omitempty"`
	Enrichers    []*EnricherConfig `json:"enrichers"`
	Destinations []string          `json:"destinations,omitempty"`
}

// UserRecord is the slice of the user document the enricher needs.
type UserRecord struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email,omitempty"`
	FCMTokens []string `json:"fcm_tokens,omitempty"`
}

// PendingInput statuses. WAITING never reverts once COMPLETED; the enricher
// only ever creates WAITING records, completion happens externally.
const (
	PendingInputWaiting   = "WAITING"
	PendingInputCompleted = "COMPLETED"
)

// PendingInput is the persisted wait-state record for a human-input gate.
// Keyed by the stable ID so redelivered passes converge on the same document.
type PendingInput struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Provider        string            `json:"provider"`
	Status          string            `json:"status"`
	RequiredFields  []string          `json:"required_fields"`
	InputData       map[string]string `json:"input_data,omitempty"`
	DisplayMetadata map[string]string `json:"display_metadata,omitempty"`

	// OriginalPayload is the snapshot republished to resume the pipeline once
	// the input is supplied.
	OriginalPayload *ActivityPayload `json:"original_payload,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Execution statuses recorded per function invocation.
const (
	StatusStarted     = "STATUS_STARTED"
	StatusSuccess     = "STATUS_SUCCESS"
	StatusFailed      = "STATUS_FAILED"
	StatusSkipped     = "STATUS_SKIPPED"
	StatusWaiting     = "STATUS_WAITING"
	StatusLagged      = "STATUS_LAGGED"
	StatusLaggedRetry = "STATUS_LAGGED_RETRY"
)

// ExecutionRecord tracks one function invocation for the admin surface.
type ExecutionRecord struct {
	ExecutionID string         `json:"execution_id"`
	Service     string         `json:"service"`
	UserID      string         `json:"user_id,omitempty"`
	TestRunID   string         `json:"test_run_id,omitempty"`
	TriggerType string         `json:"trigger_type,omitempty"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at,omitempty"`
}

// EnrichedActivityEvent is published downstream once a pipeline pass completes.
type EnrichedActivityEvent struct {
	UserID              string            `json:"user_id"`
	Source              string            `json:"source"`
	ActivityID          string            `json:"activity_id"`
	Activity            *Activity         `json:"activity"`
	Name                string            `json:"name,omitempty"`
	Description         string            `json:"description,omitempty"`
	AppliedEnrichments  []string          `json:"applied_enrichments"`
	EnrichmentMetadata  map[string]string `json:"enrichment_metadata,omitempty"`
	Destinations        []string          `json:"destinations,omitempty"`
	PipelineID          string            `json:"pipeline_id"`
	PipelineExecutionID string            `json:"pipeline_execution_id,omitempty"`
	StartTime           time.Time         `json:"start_time"`
	ArtifactURI         string            `json:"artifact_uri,omitempty"`
}
