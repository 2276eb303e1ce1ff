// Package pubsub provides message publishing using Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/cloudevents/sdk-go/v2/event"
)

// PubSubAdapter publishes to real topics.
type PubSubAdapter struct {
	Client *pubsub.Client
}

func (a *PubSubAdapter) Publish(ctx context.Context, topicID string, data []byte) (string, error) {
	topic := a.Client.Topic(topicID)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	return res.Get(ctx)
}

func (a *PubSubAdapter) PublishWithAttrs(ctx context.Context, topicID string, data []byte, attrs map[string]string) (string, error) {
	topic := a.Client.Topic(topicID)
	res := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	return res.Get(ctx)
}

func (a *PubSubAdapter) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return a.PublishWithAttrs(ctx, topicID, data, map[string]string{
		"ce-type":   e.Type(),
		"ce-source": e.Source(),
	})
}

// LogPublisher is a no-op publisher for local development and tests.
type LogPublisher struct{}

func (p *LogPublisher) Publish(ctx context.Context, topicID string, data []byte) (string, error) {
	slog.Info("MOCK PUBLISH", "topic", topicID, "bytes", len(data))
	return "mock-msg-id", nil
}

func (p *LogPublisher) PublishWithAttrs(ctx context.Context, topicID string, data []byte, attrs map[string]string) (string, error) {
	slog.Info("MOCK PUBLISH", "topic", topicID, "bytes", len(data), "attrs", attrs)
	return "mock-msg-id", nil
}

func (p *LogPublisher) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	slog.Info("MOCK PUBLISH CLOUDEVENT", "topic", topicID, "type", e.Type())
	return "mock-msg-id", nil
}
