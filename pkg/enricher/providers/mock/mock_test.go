package mock

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

func TestEnrich(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	p := New()
	activity := &types.Activity{Source: "hevy", ExternalID: "w-1"}

	t.Run("defaults to success", func(t *testing.T) {
		outcome, err := p.Enrich(ctx, logger, activity, nil, map[string]string{}, false)
		require.NoError(t, err)

		applied, ok := outcome.(providers.Applied)
		require.True(t, ok)
		assert.Equal(t, "Mock Activity", applied.Result.Name)
		assert.Equal(t, "success", applied.Result.Metadata["mock_status"])
	})

	t.Run("lag raises a retryable error", func(t *testing.T) {
		_, err := p.Enrich(ctx, logger, activity, nil, map[string]string{"behavior": "lag"}, false)
		require.Error(t, err)
		var retryErr *providers.RetryableError
		assert.True(t, errors.As(err, &retryErr))
	})

	t.Run("lag succeeds partially once retries are exhausted", func(t *testing.T) {
		outcome, err := p.Enrich(ctx, logger, activity, nil, map[string]string{"behavior": "lag"}, true)
		require.NoError(t, err)

		applied := outcome.(providers.Applied)
		assert.Equal(t, "true", applied.Result.Metadata["lag_exhausted"])
	})

	t.Run("fail returns a hard error", func(t *testing.T) {
		_, err := p.Enrich(ctx, logger, activity, nil, map[string]string{"behavior": "fail", "error_message": "boom"}, false)
		require.EqualError(t, err, "boom")
	})

	t.Run("wait raises an awaiting-input signal", func(t *testing.T) {
		outcome, err := p.Enrich(ctx, logger, activity, nil, map[string]string{"behavior": "wait"}, false)
		require.NoError(t, err)

		waiting, ok := outcome.(providers.AwaitingInput)
		require.True(t, ok)
		assert.Equal(t, "hevy:w-1:mock", waiting.Signal.StableID)
	})

	t.Run("unknown behavior errors", func(t *testing.T) {
		_, err := p.Enrich(ctx, logger, activity, nil, map[string]string{"behavior": "explode"}, false)
		require.Error(t, err)
	})
}
