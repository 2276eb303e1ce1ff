// Package training_load computes a heart-rate-reserve-weighted training
// impulse (TRIMP) from the activity's time series and classifies it into a
// named load zone.
package training_load

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

const sectionHeader = "💪 Training Load:"

// Banister TRIMP coefficients per sex.
const (
	maleK   = 0.64
	maleC   = 1.92
	femaleK = 0.86
	femaleC = 1.67
)

// Gaps longer than this contribute nothing; pauses in recording would
// otherwise inflate the score.
const maxGap = 10 * time.Minute

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Identity() providers.ID { return "training-load" }

func (p *Provider) Enrich(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (providers.Outcome, error) {
	logger.Debug("training_load: starting", "activity_name", activity.Name)

	maxHR := floatInput(inputs, "max_hr", 190)
	restHR := floatInput(inputs, "rest_hr", 60)

	k, c := maleK, maleC
	if inputs["gender"] == "female" {
		k, c = femaleK, femaleC
	}

	hrRange := maxHR - restHR
	if hrRange <= 0 {
		logger.Warn("Invalid HR range (max_hr <= rest_hr)", "max_hr", maxHR, "rest_hr", restHR)
		return providers.Skipped(p.Identity(), "invalid HR range"), nil
	}

	var total float64
	var lastTime *time.Time

	for _, session := range activity.Sessions {
		for _, lap := range session.Laps {
			for _, record := range lap.Records {
				if record.HeartRate <= 0 {
					continue
				}
				current := record.Timestamp
				if lastTime == nil {
					lastTime = &current
					continue
				}

				delta := current.Sub(*lastTime).Minutes()
				if delta > maxGap.Minutes() {
					delta = 0
				}
				if delta > 0 {
					hrr := (float64(record.HeartRate) - restHR) / hrRange
					if hrr < 0 {
						hrr = 0
					}
					if hrr > 1 {
						hrr = 1
					}
					total += delta * hrr * k * math.Exp(c*hrr)
				}

				lastTime = &current
			}
		}
	}

	if total == 0 {
		return providers.Skipped(p.Identity(), "no TRIMP calculated (insufficient HR data)"), nil
	}

	score := math.Round(total)
	zone := Zone(score)

	logger.Info("Training load calculated", "trimp", score, "zone", zone)

	return providers.Done(&providers.EnrichmentResult{
		Description:   fmt.Sprintf("%s %.0f (%s)", sectionHeader, score, zone),
		SectionHeader: sectionHeader,
		Metadata: map[string]string{
			providers.StatusKey(p.Identity()): "success",
			"trimp":                           fmt.Sprintf("%.0f", score),
			"trimp_zone":                      zone,
		},
	}), nil
}

// Zone classifies a TRIMP score into a named training-load zone. The
// boundaries are inclusive: 50 is still Recovery, 51 is Easy.
func Zone(trimp float64) string {
	switch {
	case trimp <= 50:
		return "Recovery"
	case trimp <= 100:
		return "Easy"
	case trimp <= 150:
		return "Moderate"
	case trimp <= 250:
		return "Hard"
	default:
		return "Very Hard"
	}
}

func floatInput(inputs map[string]string, key string, fallback float64) float64 {
	if v, ok := inputs[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
