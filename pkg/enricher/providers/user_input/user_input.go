// Package user_input implements the human-input gate. It never completes a
// pending input itself: records move ABSENT → WAITING here, and an external
// surface moves WAITING → COMPLETED. A later pass then consumes the record.
package user_input

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	shared "github.com/fitglue/enricher/pkg"
	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/pendinginput"
	"github.com/fitglue/enricher/pkg/types"
)

// Options configures the gate.
type Options struct {
	// RequireSourceKey gates enrichment on a resolvable source API key
	// ("source-api-key-{source}" in the secret store). Off by default; turn it
	// on only for deployments where a missing key means the resume publisher
	// cannot work either.
	RequireSourceKey bool
	Secrets          shared.SecretStore
}

type Provider struct {
	db   shared.Database
	opts Options
}

func New(db shared.Database, opts Options) *Provider {
	return &Provider{db: db, opts: opts}
}

func (p *Provider) Identity() providers.ID { return "user-input" }

func (p *Provider) Enrich(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (providers.Outcome, error) {
	stableID := pendinginput.StableID(activity.Source, activity.ExternalID, string(p.Identity()))
	logger.Debug("user_input: starting", "stable_id", stableID, "requested_fields", inputs["fields"])

	if p.db == nil {
		return nil, fmt.Errorf("user_input: database not configured")
	}

	if p.opts.RequireSourceKey {
		if p.opts.Secrets == nil {
			return nil, fmt.Errorf("user_input: source key required but no secret store configured")
		}
		if _, err := p.opts.Secrets.GetSecret(ctx, "source-api-key-"+activity.Source); err != nil {
			return nil, providers.NewRetryableError(err, 0, "resolve source API key")
		}
	}

	pending, err := p.db.GetPendingInput(ctx, user.UserID, stableID)
	switch {
	case err == nil:
		if pending.Status == types.PendingInputCompleted {
			logger.Debug("user_input: applying completed input",
				"has_title", pending.InputData["title"] != "",
				"has_description", pending.InputData["description"] != "",
			)
			return providers.Done(&providers.EnrichmentResult{
				Name:               pending.InputData["title"],
				Description:        pending.InputData["description"],
				ReplaceDescription: pending.InputData["description"] != "",
				Metadata: map[string]string{
					providers.StatusKey(p.Identity()): "success",
					"user_input_applied":              "true",
				},
			}), nil
		}
		// Still WAITING: re-raise the same signal. Expected steady state while
		// the user has not responded yet.
		logger.Debug("user_input: still waiting for user input")
		return providers.Wait(p.signal(stableID, inputs)), nil

	case errors.Is(err, shared.ErrNotFound):
		logger.Debug("user_input: no pending input exists - requesting")
		return providers.Wait(p.signal(stableID, inputs)), nil

	default:
		// The store being unreachable is transient, unlike the wait itself.
		return nil, providers.NewRetryableError(err, 0, "get pending input")
	}
}

func (p *Provider) signal(stableID string, inputs map[string]string) *providers.WaitSignal {
	fields := parseFields(inputs["fields"])
	return &providers.WaitSignal{
		StableID:        stableID,
		Provider:        p.Identity(),
		RequiredFields:  fields,
		DisplayMetadata: buildDisplayMetadata(fields),
	}
}

func parseFields(s string) []string {
	if s == "" {
		return []string{"description"}
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []string{"description"}
	}
	return out
}

// buildDisplayMetadata generates labels and input types for the external
// input-collection surface.
func buildDisplayMetadata(fields []string) map[string]string {
	labels := make(map[string]string, len(fields))
	inputTypes := make(map[string]string, len(fields))
	for _, f := range fields {
		labels[f] = humanize(f)
		switch f {
		case "description":
			inputTypes[f] = "textarea:rows=3"
		default:
			inputTypes[f] = "text"
		}
	}
	labelsJSON, _ := json.Marshal(labels)
	typesJSON, _ := json.Marshal(inputTypes)
	return map[string]string{
		"display.field_labels": string(labelsJSON),
		"display.field_types":  string(typesJSON),
		"display.summary":      "Provide additional details for this activity",
	}
}

// humanize converts a snake_case field name to Title Case.
func humanize(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
