// Package elevation_summary appends elevation gain/loss statistics and an
// optional unicode elevation profile to the activity description.
package elevation_summary

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

const sectionHeader = "⛰️ Elevation:"

// Profile bar characters from low to high.
var profileBars = []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Identity() providers.ID { return "elevation-summary" }

func (p *Provider) Enrich(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (providers.Outcome, error) {
	showProfile := inputs["style"] == "profile"

	var gain, loss, maxAlt float64
	minAlt := -1.0
	var prev float64
	var hasPrev bool
	var altitudes []float64

	for _, session := range activity.Sessions {
		for _, lap := range session.Laps {
			for _, record := range lap.Records {
				if record.Altitude <= 0 {
					continue
				}
				alt := record.Altitude
				if alt > maxAlt {
					maxAlt = alt
				}
				if minAlt < 0 || alt < minAlt {
					minAlt = alt
				}
				if hasPrev {
					diff := alt - prev
					if diff > 0 {
						gain += diff
					} else {
						loss += math.Abs(diff)
					}
				}
				prev = alt
				hasPrev = true
				altitudes = append(altitudes, alt)
			}
		}
	}

	if len(altitudes) == 0 {
		logger.Debug("elevation_summary: skipping - no altitude data")
		return providers.Skipped(p.Identity(), "no altitude data found"), nil
	}

	logger.Info("Elevation summary calculated", "gain", gain, "loss", loss, "max_altitude", maxAlt)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s +%.0fm gain • -%.0fm loss • %.0fm max", sectionHeader, gain, loss, maxAlt)
	if showProfile && len(altitudes) >= 10 {
		fmt.Fprintf(&sb, "\n📈 %s", renderProfile(altitudes, minAlt, maxAlt, 20))
	}

	return providers.Done(&providers.EnrichmentResult{
		Description:   sb.String(),
		SectionHeader: sectionHeader,
		Metadata: map[string]string{
			providers.StatusKey(p.Identity()): "success",
			"elevation_gain":                  fmt.Sprintf("%.2f", gain),
			"elevation_loss":                  fmt.Sprintf("%.2f", loss),
			"elevation_max":                   fmt.Sprintf("%.2f", maxAlt),
		},
	}), nil
}

// renderProfile downsamples the altitude series into width buckets and maps
// each bucket mean onto the bar alphabet.
func renderProfile(altitudes []float64, minAlt, maxAlt float64, width int) string {
	if width > len(altitudes) {
		width = len(altitudes)
	}
	span := maxAlt - minAlt
	var sb strings.Builder
	bucket := float64(len(altitudes)) / float64(width)
	for i := 0; i < width; i++ {
		lo := int(float64(i) * bucket)
		hi := int(float64(i+1) * bucket)
		if hi > len(altitudes) {
			hi = len(altitudes)
		}
		var sum float64
		for _, v := range altitudes[lo:hi] {
			sum += v
		}
		avg := sum / float64(hi-lo)
		idx := 0
		if span > 0 {
			idx = int((avg - minAlt) / span * float64(len(profileBars)-1))
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= len(profileBars) {
			idx = len(profileBars) - 1
		}
		sb.WriteString(profileBars[idx])
	}
	return sb.String()
}
