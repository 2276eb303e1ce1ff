package speed_summary

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

func activityWithSpeeds(speeds []float64) *types.Activity {
	records := make([]*types.Record, len(speeds))
	for i, s := range speeds {
		records[i] = &types.Record{Speed: s}
	}
	return &types.Activity{
		Sessions: []*types.Session{
			{TotalElapsedTime: 60, Laps: []*types.Lap{{Records: records}}},
		},
	}
}

func TestEnrich(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	p := New()

	t.Run("converts to km/h and reports avg and max", func(t *testing.T) {
		// avg 7 m/s = 25.2 km/h, max 10 m/s = 36.0 km/h
		outcome, err := p.Enrich(ctx, logger, activityWithSpeeds([]float64{5, 7, 8, 10, 5}), nil, nil, false)
		require.NoError(t, err)

		applied, ok := outcome.(providers.Applied)
		require.True(t, ok)
		assert.Equal(t, "🚀 Speed: 25.2 km/h avg • 36.0 km/h max", applied.Result.Description)
		assert.Equal(t, "🚀 Speed:", applied.Result.SectionHeader)
		assert.Equal(t, "success", applied.Result.Metadata["speed_summary_status"])
		assert.Equal(t, "25.2", applied.Result.Metadata["speed_avg_kmh"])
		assert.Equal(t, "36.0", applied.Result.Metadata["speed_max_kmh"])
		assert.Equal(t, "5", applied.Result.Metadata["speed_sample_count"])
	})

	t.Run("ignores zero-speed samples", func(t *testing.T) {
		outcome, err := p.Enrich(ctx, logger, activityWithSpeeds([]float64{0, 10, 0}), nil, nil, false)
		require.NoError(t, err)

		applied := outcome.(providers.Applied)
		assert.Equal(t, "1", applied.Result.Metadata["speed_sample_count"])
		assert.Equal(t, "36.0", applied.Result.Metadata["speed_avg_kmh"])
	})

	t.Run("skips when no speed data", func(t *testing.T) {
		outcome, err := p.Enrich(ctx, logger, activityWithSpeeds(nil), nil, nil, false)
		require.NoError(t, err)

		applied := outcome.(providers.Applied)
		assert.Equal(t, "skipped", applied.Result.Metadata["speed_summary_status"])
		assert.Empty(t, applied.Result.Description)
	})
}
