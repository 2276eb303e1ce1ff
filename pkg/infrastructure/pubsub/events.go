package pubsub

import (
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

const (
	// EventTypeActivityEnriched marks a fully enriched activity ready for its
	// configured destinations.
	EventTypeActivityEnriched = "com.fitglue.activity.enriched"

	// eventSource identifies this service as the producer.
	eventSource = "//fitglue/enricher"
)

// NewEnrichedActivityEvent wraps an enriched activity in a CloudEvent v1.0
// envelope keyed by the pipeline execution ID, so downstream consumers can
// deduplicate redelivered passes.
func NewEnrichedActivityEvent(pipelineExecutionID string, data interface{}) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetSpecVersion("1.0")
	e.SetID(pipelineExecutionID)
	e.SetType(EventTypeActivityEnriched)
	e.SetSource(eventSource)

	if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return e, err
	}

	return e, nil
}
