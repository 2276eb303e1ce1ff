// Package heart_rate_summary appends min/avg/max heart rate statistics to the
// activity description.
package heart_rate_summary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

const sectionHeader = "❤️ Heart Rate:"

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Identity() providers.ID { return "heart-rate-summary" }

func (p *Provider) Enrich(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (providers.Outcome, error) {
	var rates []int32
	for _, session := range activity.Sessions {
		for _, lap := range session.Laps {
			for _, record := range lap.Records {
				if record.HeartRate > 0 {
					rates = append(rates, record.HeartRate)
				}
			}
		}
	}

	if len(rates) == 0 {
		logger.Debug("heart_rate_summary: skipping - no heart rate data")
		return providers.Skipped(p.Identity(), "no heart rate data found"), nil
	}

	minHR, maxHR := rates[0], rates[0]
	var sum int64
	for _, hr := range rates {
		if hr < minHR {
			minHR = hr
		}
		if hr > maxHR {
			maxHR = hr
		}
		sum += int64(hr)
	}
	avgHR := float64(sum) / float64(len(rates))

	logger.Info("Heart rate summary calculated", "min_hr", minHR, "avg_hr", avgHR, "max_hr", maxHR, "sample_count", len(rates))

	return providers.Done(&providers.EnrichmentResult{
		Description:   fmt.Sprintf("%s %d bpm min • %.0f bpm avg • %d bpm max", sectionHeader, minHR, avgHR, maxHR),
		SectionHeader: sectionHeader,
		Metadata: map[string]string{
			providers.StatusKey(p.Identity()): "success",
			"hr_min":                          fmt.Sprintf("%d", minHR),
			"hr_avg":                          fmt.Sprintf("%.0f", avgHR),
			"hr_max":                          fmt.Sprintf("%d", maxHR),
			"hr_sample_count":                 fmt.Sprintf("%d", len(rates)),
		},
	}), nil
}
