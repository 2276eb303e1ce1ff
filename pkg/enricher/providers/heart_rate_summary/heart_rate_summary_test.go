package heart_rate_summary

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

func activityWithHR(rates []int32) *types.Activity {
	records := make([]*types.Record, len(rates))
	for i, hr := range rates {
		records[i] = &types.Record{HeartRate: hr}
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

	t.Run("reports min avg max", func(t *testing.T) {
		outcome, err := p.Enrich(ctx, logger, activityWithHR([]int32{100, 120, 140}), nil, nil, false)
		require.NoError(t, err)

		applied, ok := outcome.(providers.Applied)
		require.True(t, ok)
		assert.Equal(t, "❤️ Heart Rate: 100 bpm min • 120 bpm avg • 140 bpm max", applied.Result.Description)
		assert.Equal(t, "❤️ Heart Rate:", applied.Result.SectionHeader)
		assert.Equal(t, "success", applied.Result.Metadata["heart_rate_summary_status"])
		assert.Equal(t, "100", applied.Result.Metadata["hr_min"])
		assert.Equal(t, "120", applied.Result.Metadata["hr_avg"])
		assert.Equal(t, "140", applied.Result.Metadata["hr_max"])
		assert.Equal(t, "3", applied.Result.Metadata["hr_sample_count"])
	})

	t.Run("ignores zero samples", func(t *testing.T) {
		outcome, err := p.Enrich(ctx, logger, activityWithHR([]int32{0, 150, 0}), nil, nil, false)
		require.NoError(t, err)

		applied := outcome.(providers.Applied)
		assert.Equal(t, "1", applied.Result.Metadata["hr_sample_count"])
		assert.Equal(t, "150", applied.Result.Metadata["hr_min"])
	})

	t.Run("skips with no heart rate data", func(t *testing.T) {
		outcome, err := p.Enrich(ctx, logger, activityWithHR(nil), nil, nil, false)
		require.NoError(t, err)

		applied := outcome.(providers.Applied)
		assert.Equal(t, "skipped", applied.Result.Metadata["heart_rate_summary_status"])
	})
}
