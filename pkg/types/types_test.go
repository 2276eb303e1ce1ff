package types

import (
	"testing"
	"time"
)

// Each pipeline pass mutates its own clone; a shallow copy would leak one
// pipeline's enrichments into the next.
func TestActivityClone(t *testing.T) {
	gct := 200.0
	original := &Activity{
		Source:     "hevy",
		ExternalID: "w-1",
		Name:       "Original",
		StartTime:  time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
		Sessions: []*Session{
			{
				TotalElapsedTime: 60,
				Laps: []*Lap{
					{Records: []*Record{{HeartRate: 120, GroundContactTime: &gct}}},
				},
			},
		},
	}

	clone := original.Clone()
	clone.Name = "Changed"
	clone.Sessions[0].Laps[0].Records[0].HeartRate = 999
	*clone.Sessions[0].Laps[0].Records[0].GroundContactTime = 1.0

	if original.Name != "Original" {
		t.Errorf("clone mutated original name: %q", original.Name)
	}
	if hr := original.Sessions[0].Laps[0].Records[0].HeartRate; hr != 120 {
		t.Errorf("clone mutated original record: hr = %d", hr)
	}
	if g := *original.Sessions[0].Laps[0].Records[0].GroundContactTime; g != 200.0 {
		t.Errorf("clone shares pointer fields with original: gct = %v", g)
	}
}

func TestActivityCloneNil(t *testing.T) {
	var a *Activity
	if a.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}
