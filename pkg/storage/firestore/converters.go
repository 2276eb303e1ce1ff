package firestore

import (
	"encoding/json"
	"time"

	"github.com/fitglue/enricher/pkg/types"
)

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Helper to safely get bool from map
func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Helper to safely get time from map (handles time.Time from Firestore)
func getTime(m map[string]interface{}, key string) time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

func getStringSlice(m map[string]interface{}, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, raw := range v {
			if s, ok := raw.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func getStringMap(m map[string]interface{}, key string) map[string]string {
	switch v := m[key].(type) {
	case map[string]string:
		return v
	case map[string]interface{}:
		out := make(map[string]string, len(v))
		for k, raw := range v {
			if s, ok := raw.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}

// --- UserRecord Converters ---

func UserToFirestore(u *types.UserRecord) map[string]interface{} {
	m := map[string]interface{}{
		"user_id": u.UserID,
	}
	if u.Email != "" {
		m["email"] = u.Email
	}
	if len(u.FCMTokens) > 0 {
		m["fcm_tokens"] = u.FCMTokens
	}
	return m
}

func FirestoreToUser(m map[string]interface{}) *types.UserRecord {
	return &types.UserRecord{
		UserID:    getString(m, "user_id"),
		Email:     getString(m, "email"),
		FCMTokens: getStringSlice(m, "fcm_tokens"),
	}
}

// --- PipelineConfig Converters ---

func PipelineToFirestore(p *types.PipelineConfig) map[string]interface{} {
	enrichers := make([]map[string]interface{}, len(p.Enrichers))
	for i, e := range p.Enrichers {
		em := map[string]interface{}{
			"provider": e.Provider,
		}
		if len(e.Config) > 0 {
			em["config"] = e.Config
		}
		if e.DoNotRetry {
			em["do_not_retry"] = true
		}
		enrichers[i] = em
	}
	m := map[string]interface{}{
		"id":        p.ID,
		"source":    p.Source,
		"enrichers": enrichers,
	}
	if p.Name != "" {
		m["name"] = p.Name
	}
	if p.Disabled {
		m["disabled"] = true
	}
	if len(p.Destinations) > 0 {
		m["destinations"] = p.Destinations
	}
	return m
}

func FirestoreToPipeline(m map[string]interface{}) *types.PipelineConfig {
	p := &types.PipelineConfig{
		ID:           getString(m, "id"),
		Name:         getString(m, "name"),
		Source:       getString(m, "source"),
		Disabled:     getBool(m, "disabled"),
		Destinations: getStringSlice(m, "destinations"),
	}
	if eList, ok := m["enrichers"].([]interface{}); ok {
		p.Enrichers = make([]*types.EnricherConfig, 0, len(eList))
		for _, raw := range eList {
			eMap, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			p.Enrichers = append(p.Enrichers, &types.EnricherConfig{
				Provider:   getString(eMap, "provider"),
				Config:     getStringMap(eMap, "config"),
				DoNotRetry: getBool(eMap, "do_not_retry"),
			})
		}
	}
	return p
}

// --- PendingInput Converters ---

func PendingInputToFirestore(p *types.PendingInput) map[string]interface{} {
	m := map[string]interface{}{
		"id":         p.ID,
		"user_id":    p.UserID,
		"provider":   p.Provider,
		"status":     p.Status,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}
	if len(p.RequiredFields) > 0 {
		m["required_fields"] = p.RequiredFields
	}
	if len(p.InputData) > 0 {
		m["input_data"] = p.InputData
	}
	if len(p.DisplayMetadata) > 0 {
		m["display_metadata"] = p.DisplayMetadata
	}
	if p.OriginalPayload != nil {
		// Payload snapshots are stored as a JSON blob. They are opaque to
		// queries and only ever read back whole for resume publishes.
		if data, err := json.Marshal(p.OriginalPayload); err == nil {
			m["original_payload"] = string(data)
		}
	}
	return m
}

func FirestoreToPendingInput(m map[string]interface{}) *types.PendingInput {
	p := &types.PendingInput{
		ID:              getString(m, "id"),
		UserID:          getString(m, "user_id"),
		Provider:        getString(m, "provider"),
		Status:          getString(m, "status"),
		RequiredFields:  getStringSlice(m, "required_fields"),
		InputData:       getStringMap(m, "input_data"),
		DisplayMetadata: getStringMap(m, "display_metadata"),
		CreatedAt:       getTime(m, "created_at"),
		UpdatedAt:       getTime(m, "updated_at"),
	}
	if raw := getString(m, "original_payload"); raw != "" {
		var payload types.ActivityPayload
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			p.OriginalPayload = &payload
		}
	}
	return p
}

// --- ExecutionRecord Converters ---

func ExecutionToFirestore(e *types.ExecutionRecord) map[string]interface{} {
	m := map[string]interface{}{
		"execution_id": e.ExecutionID,
		"service":      e.Service,
		"status":       e.Status,
		"started_at":   e.StartedAt,
	}
	if e.UserID != "" {
		m["user_id"] = e.UserID
	}
	if e.TestRunID != "" {
		m["test_run_id"] = e.TestRunID
	}
	if e.TriggerType != "" {
		m["trigger_type"] = e.TriggerType
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	if len(e.Outputs) > 0 {
		m["outputs"] = e.Outputs
	}
	if !e.FinishedAt.IsZero() {
		m["finished_at"] = e.FinishedAt
	}
	return m
}

func FirestoreToExecution(m map[string]interface{}) *types.ExecutionRecord {
	e := &types.ExecutionRecord{
		ExecutionID: getString(m, "execution_id"),
		Service:     getString(m, "service"),
		UserID:      getString(m, "user_id"),
		TestRunID:   getString(m, "test_run_id"),
		TriggerType: getString(m, "trigger_type"),
		Status:      getString(m, "status"),
		Error:       getString(m, "error"),
		StartedAt:   getTime(m, "started_at"),
		FinishedAt:  getTime(m, "finished_at"),
	}
	if outputs, ok := m["outputs"].(map[string]interface{}); ok {
		e.Outputs = outputs
	}
	return e
}
