package pendinginput

import (
	"testing"
)

func TestStableID(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		externalID string
		provider   string
		expected   string
	}{
		{
			name:       "Hevy workout",
			source:     "hevy",
			externalID: "workout-abc123",
			provider:   "user-input",
			expected:   "hevy:workout-abc123:user-input",
		},
		{
			name:       "Strava activity",
			source:     "strava",
			externalID: "987654",
			provider:   "mock",
			expected:   "strava:987654:mock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StableID(tt.source, tt.externalID, tt.provider)
			if got != tt.expected {
				t.Errorf("StableID() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// Redelivered passes must derive the same ID every time; this is what keeps
// the pending-input store free of duplicates.
func TestStableIDDeterministic(t *testing.T) {
	a := StableID("hevy", "w-1", "user-input")
	b := StableID("hevy", "w-1", "user-input")
	if a != b {
		t.Errorf("StableID not deterministic: %q != %q", a, b)
	}
}
