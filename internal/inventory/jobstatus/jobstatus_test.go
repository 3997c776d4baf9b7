package jobstatus

import (
	"context"
	"testing"
)

func TestStaticChecker(t *testing.T) {
	checker := NewStaticChecker()
	ctx := context.Background()

	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{"unknown shipment", "", false},
		{"started", StatusStarted, true},
		{"completed", StatusCompleted, true},
		{"cancelled", StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shipment := "SHP-" + tt.name
			if tt.status != "" {
				if err := checker.SetStatus(ctx, shipment, tt.status); err != nil {
					t.Fatalf("SetStatus: %v", err)
				}
			}
			got, err := checker.HasStarted(ctx, shipment)
			if err != nil {
				t.Fatalf("HasStarted: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasStarted() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestStatusIsValid(t *testing.T) {
	if !StatusStarted.IsValid() || Status("paused").IsValid() {
		t.Error("unexpected status validity")
	}
}
