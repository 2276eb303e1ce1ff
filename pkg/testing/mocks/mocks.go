// Package mocks provides function-field test doubles for the shared
// interfaces. Unset fields fall back to benign defaults.
package mocks

import (
	"context"
	"fmt"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/fitglue/enricher/pkg"
	"github.com/fitglue/enricher/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	SetExecutionFunc       func(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecutionFunc    func(ctx context.Context, id string, data map[string]interface{}) error
	GetUserFunc            func(ctx context.Context, id string) (*types.UserRecord, error)
	GetUserPipelinesFunc   func(ctx context.Context, userID string) ([]*types.PipelineConfig, error)
	GetPendingInputFunc    func(ctx context.Context, userID, id string) (*types.PendingInput, error)
	CreatePendingInputFunc func(ctx context.Context, userID string, input *types.PendingInput) (*types.PendingInput, error)
}

func (m *MockDatabase) SetExecution(ctx context.Context, record *types.ExecutionRecord) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}
func (m *MockDatabase) GetUser(ctx context.Context, id string) (*types.UserRecord, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return nil, fmt.Errorf("user %s: %w", id, shared.ErrNotFound)
}
func (m *MockDatabase) GetUserPipelines(ctx context.Context, userID string) ([]*types.PipelineConfig, error) {
	if m.GetUserPipelinesFunc != nil {
		return m.GetUserPipelinesFunc(ctx, userID)
	}
	return nil, nil
}
func (m *MockDatabase) GetPendingInput(ctx context.Context, userID, id string) (*types.PendingInput, error) {
	if m.GetPendingInputFunc != nil {
		return m.GetPendingInputFunc(ctx, userID, id)
	}
	return nil, fmt.Errorf("pending input %s: %w", id, shared.ErrNotFound)
}
func (m *MockDatabase) CreatePendingInput(ctx context.Context, userID string, input *types.PendingInput) (*types.PendingInput, error) {
	if m.CreatePendingInputFunc != nil {
		return m.CreatePendingInputFunc(ctx, userID, input)
	}
	return input, nil
}
// --- Mock Publisher ---
type MockPublisher struct {
	PublishFunc           func(ctx context.Context, topic string, data []byte) (string, error)
	PublishWithAttrsFunc  func(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) (string, error) {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	return "msg-id", nil
}
func (m *MockPublisher) PublishWithAttrs(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	if m.PublishWithAttrsFunc != nil {
		return m.PublishWithAttrsFunc(ctx, topic, data, attrs)
	}
	return "msg-id", nil
}
func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}
func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return []byte("mock-data"), nil
}

// --- Mock Secrets ---
type MockSecretStore struct {
	GetSecretFunc func(ctx context.Context, name string) (string, error)
}

func (m *MockSecretStore) GetSecret(ctx context.Context, name string) (string, error) {
	if m.GetSecretFunc != nil {
		return m.GetSecretFunc(ctx, name)
	}
	return "mock-secret-value", nil
}

// --- Mock Notifications ---
type MockNotificationService struct {
	NotifyPendingInputFunc func(ctx context.Context, user *types.UserRecord, pendingInputID string) error
}

func (m *MockNotificationService) NotifyPendingInput(ctx context.Context, user *types.UserRecord, pendingInputID string) error {
	if m.NotifyPendingInputFunc != nil {
		return m.NotifyPendingInputFunc(ctx, user, pendingInputID)
	}
	return nil
}
