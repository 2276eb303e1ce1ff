package enricher

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

// stubProvider implements providers.Provider with function fields.
type stubProvider struct {
	IdentityFunc func() providers.ID
	EnrichFunc   func(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (providers.Outcome, error)
}

func (s *stubProvider) Identity() providers.ID {
	if s.IdentityFunc != nil {
		return s.IdentityFunc()
	}
	return "stub"
}

func (s *stubProvider) Enrich(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (providers.Outcome, error) {
	if s.EnrichFunc != nil {
		return s.EnrichFunc(ctx, logger, activity, user, inputs, doNotRetry)
	}
	return providers.Done(&providers.EnrichmentResult{}), nil
}

func named(id providers.ID) *stubProvider {
	return &stubProvider{IdentityFunc: func() providers.ID { return id }}
}

func TestNewRegistry(t *testing.T) {
	t.Run("resolves registered providers", func(t *testing.T) {
		r, err := NewRegistry(named("a"), named("b"))
		require.NoError(t, err)

		p, ok := r.Resolve("a")
		assert.True(t, ok)
		assert.Equal(t, providers.ID("a"), p.Identity())

		_, ok = r.Resolve("missing")
		assert.False(t, ok)

		assert.Len(t, r.All(), 2)
	})

	t.Run("rejects duplicate identities", func(t *testing.T) {
		_, err := NewRegistry(named("a"), named("a"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("rejects empty identity", func(t *testing.T) {
		_, err := NewRegistry(named(""))
		require.Error(t, err)
	})

	t.Run("empty registry is valid", func(t *testing.T) {
		r, err := NewRegistry()
		require.NoError(t, err)
		assert.Empty(t, r.All())
	})
}
