// Package speed_summary appends average/maximum speed statistics (km/h) to
// the activity description.
package speed_summary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

const sectionHeader = "🚀 Speed:"

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Identity() providers.ID { return "speed-summary" }

func (p *Provider) Enrich(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (providers.Outcome, error) {
	var speeds []float64
	for _, session := range activity.Sessions {
		for _, lap := range session.Laps {
			for _, record := range lap.Records {
				if record.Speed > 0 {
					speeds = append(speeds, record.Speed)
				}
			}
		}
	}

	if len(speeds) == 0 {
		logger.Debug("speed_summary: skipping - no speed data")
		return providers.Skipped(p.Identity(), "no speed data found"), nil
	}

	var sum float64
	max := speeds[0]
	for _, s := range speeds {
		sum += s
		if s > max {
			max = s
		}
	}

	// m/s to km/h
	avgKmh := sum / float64(len(speeds)) * 3.6
	maxKmh := max * 3.6

	logger.Info("Speed summary calculated", "avg_kmh", avgKmh, "max_kmh", maxKmh, "sample_count", len(speeds))

	return providers.Done(&providers.EnrichmentResult{
		Description:   fmt.Sprintf("%s %.1f km/h avg • %.1f km/h max", sectionHeader, avgKmh, maxKmh),
		SectionHeader: sectionHeader,
		Metadata: map[string]string{
			providers.StatusKey(p.Identity()): "success",
			"speed_avg_kmh":                   fmt.Sprintf("%.1f", avgKmh),
			"speed_max_kmh":                   fmt.Sprintf("%.1f", maxKmh),
			"speed_sample_count":              fmt.Sprintf("%d", len(speeds)),
		},
	}), nil
}
