// Package source_link appends a canonical link back to the original activity
// on its source platform.
package source_link

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fitglue/enricher/pkg/enricher/providers"
	"github.com/fitglue/enricher/pkg/types"
)

const sectionHeader = "🔗 View on"

// urlTemplates maps known sources to their activity URL templates.
// Unknown sources are skipped, never guessed.
var urlTemplates = map[string]string{
	types.SourceHevy:   "https://hevy.com/workout/%s",
	types.SourceStrava: "https://www.strava.com/activities/%s",
}

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Identity() providers.ID { return "source-link" }

func (p *Provider) Enrich(ctx context.Context, logger *slog.Logger, activity *types.Activity, user *types.UserRecord, inputs map[string]string, doNotRetry bool) (providers.Outcome, error) {
	logger.Debug("source_link: starting", "source", activity.Source, "external_id", activity.ExternalID)

	if activity.ExternalID == "" {
		return providers.Skipped(p.Identity(), "no external_id"), nil
	}

	source := strings.ToLower(strings.TrimPrefix(strings.ToLower(activity.Source), "source_"))
	template, ok := urlTemplates[source]
	if !ok {
		logger.Debug("source_link: skipping - unknown source", "source", source)
		return providers.Skipped(p.Identity(), "unknown source: "+source), nil
	}

	link := fmt.Sprintf(template, activity.ExternalID)
	display := strings.ToUpper(source[:1]) + source[1:]

	return providers.Done(&providers.EnrichmentResult{
		Description:   fmt.Sprintf("%s %s: %s", sectionHeader, display, link),
		SectionHeader: sectionHeader,
		Metadata: map[string]string{
			providers.StatusKey(p.Identity()): "success",
			"source_link_url":                 link,
			"source_link_display":             display,
		},
	}), nil
}
