// Package mock provides a configurable provider for exercising the full
// pipeline without touching real data sources.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/pendinginput"
	"github.com/fitglue/enricher/pkg/types"
)

// Provider simulates behaviors via the "behavior" input:
//   - "success": applied result with optional name/description inputs
//   - "lag":     RetryableError, or forced success when doNotRetry is set
//   - "fail":    hard error
//   - "wait":    AwaitingInput signal
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Identity() providers.ID { return "mock" }

func (p *Provider) Enrich(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (providers.Outcome, error) {
	behavior := inputs["behavior"]
	if behavior == "" {
		behavior = "success"
	}

	switch behavior {
	case "success":
		name := inputs["name"]
		if name == "" {
			name = "Mock Activity"
		}
		desc := inputs["description"]
		if desc == "" {
			desc = "🤖 Mock: enriched by the mock provider"
		}
		return providers.Done(&providers.EnrichmentResult{
			Name:        name,
			Description: desc,
			Metadata: map[string]string{
				providers.StatusKey(p.Identity()): "success",
				"mock_provider":                   "true",
			},
		}), nil

	case "lag":
		if doNotRetry {
			return providers.Done(&providers.EnrichmentResult{
				Name: "Mock Activity (Lag Exhausted)",
				Metadata: map[string]string{
					providers.StatusKey(p.Identity()): "success",
					"lag_exhausted":                   "true",
				},
			}), nil
		}
		return nil, providers.NewRetryableError(fmt.Errorf("mock provider simulating incomplete data"), time.Minute, "mock lag delay")

	case "fail":
		message := inputs["error_message"]
		if message == "" {
			message = "mock provider hard failure"
		}
		return nil, fmt.Errorf("%s", message)

	case "wait":
		fields := []string{"description"}
		if f := inputs["fields"]; f != "" {
			fields = strings.Split(f, ",")
		}
		return providers.Wait(&providers.WaitSignal{
			StableID:       pendinginput.StableID(activity.Source, activity.ExternalID, string(p.Identity())),
			Provider:       p.Identity(),
			RequiredFields: fields,
		}), nil

	default:
		return nil, fmt.Errorf("unknown mock behavior: %s", behavior)
	}
}
