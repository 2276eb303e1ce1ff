// Package running_dynamics summarizes ground contact time, stride length and
// vertical oscillation averages when the source recorded them.
package running_dynamics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

const sectionHeader = "🏃 Running Dynamics:"

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Identity() providers.ID { return "running-dynamics" }

func (p *Provider) Enrich(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (providers.Outcome, error) {
	logger.Debug("running_dynamics: starting", "activity_name", activity.Name)

	var gcts, vos, sls []float64
	for _, session := range activity.Sessions {
		for _, lap := range session.Laps {
			for _, record := range lap.Records {
				if record.GroundContactTime != nil && *record.GroundContactTime > 0 {
					gcts = append(gcts, *record.GroundContactTime)
				}
				if record.VerticalOscillation != nil && *record.VerticalOscillation > 0 {
					vos = append(vos, *record.VerticalOscillation)
				}
				if record.StepLength != nil && *record.StepLength > 0 {
					sls = append(sls, *record.StepLength)
				}
			}
		}
	}

	if len(gcts) == 0 && len(vos) == 0 && len(sls) == 0 {
		logger.Debug("running_dynamics: skipping - no running dynamics data")
		return providers.Skipped(p.Identity(), ""), nil
	}

	// Metrics with no samples are omitted from the line entirely.
	var parts []string
	if len(gcts) > 0 {
		parts = append(parts, fmt.Sprintf("⏱️ GCT: %.0f ms", mean(gcts)))
	}
	if len(sls) > 0 {
		parts = append(parts, fmt.Sprintf("📏 Stride: %.2f m", mean(sls)))
	}
	if len(vos) > 0 {
		parts = append(parts, fmt.Sprintf("↕️ Vert: %.1f cm", mean(vos)/10.0)) // mm to cm
	}

	return providers.Done(&providers.EnrichmentResult{
		Description:   sectionHeader + " " + strings.Join(parts, " • "),
		SectionHeader: sectionHeader,
		Metadata: map[string]string{
			providers.StatusKey(p.Identity()): "success",
		},
	}), nil
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
