package chunker

import (
	"math"
	"testing"
)

const mb = 1000 * 1000

func TestChunkCount(t *testing.T) {
	tests := []struct {
		size, budget int64
		want         int
	}{
		{1, 10 * mb, 1},
		{9 * mb, 10 * mb, 1},
		{10 * mb, 10 * mb, 2},
		{22 * mb, 10 * mb, 3},
		{25 * mb, 10 * mb, 3},
		{100 * mb, 10 * mb, 11},
	}

	for _, tt := range tests {
		if got := ChunkCount(tt.size, tt.budget); got != tt.want {
			t.Errorf("ChunkCount(%d, %d) = %d, want %d", tt.size, tt.budget, got, tt.want)
		}
	}
}

// A 100s file compressed to 22MB with a 10MB budget is cut into three ~33.3s ranges
func TestPlanChunks_CompressedVideoScenario(t *testing.T) {
	plan, err := PlanChunks(22*mb, 100, 10*mb)
	if err != nil {
		t.Fatalf("PlanChunks() error = %v", err)
	}

	if len(plan) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(plan))
	}

	wantStarts := []float64{0, 100.0 / 3, 200.0 / 3}
	for i, spec := range plan {
		if math.Abs(spec.Start-wantStarts[i]) > Tolerance {
			t.Errorf("chunk %d start = %.4f, want %.4f", i, spec.Start, wantStarts[i])
		}
	}
	if plan[2].End() != 100 {
		t.Errorf("last chunk ends at %v, want 100", plan[2].End())
	}

	if err := plan.Validate(100); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestPlanChunks_SingleChunk(t *testing.T) {
	plan, err := PlanChunks(5*mb, 61.25, 10*mb)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Single() {
		t.Fatalf("expected single chunk, got %d", len(plan))
	}
	if plan[0].Start != 0 || plan[0].Length != 61.25 {
		t.Errorf("unexpected spec %+v", plan[0])
	}
}

func TestPlanChunks_CoverageProperty(t *testing.T) {
	durations := []float64{0.5, 1, 7.77, 59.999, 100, 3600.123, 86399.9}
	sizes := []int64{1, 10*mb - 1, 10 * mb, 33*mb + 7, 999 * mb}

	for _, d := range durations {
		for _, s := range sizes {
			plan, err := PlanChunks(s, d, 10*mb)
			if err != nil {
				t.Fatalf("PlanChunks(%d, %v) error = %v", s, d, err)
			}
			if len(plan) != ChunkCount(s, 10*mb) {
				t.Errorf("PlanChunks(%d, %v) produced %d chunks", s, d, len(plan))
			}
			if err := plan.Validate(d); err != nil {
				t.Errorf("PlanChunks(%d, %v) invalid: %v", s, d, err)
			}
		}
	}
}

func TestPlanChunks_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		duration float64
		budget   int64
	}{
		{"zero size", 0, 10, mb},
		{"zero budget", mb, 10, 0},
		{"zero duration", mb, 0, mb},
		{"negative duration", mb, -1, mb},
		{"nan duration", mb, math.NaN(), mb},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PlanChunks(tt.size, tt.duration, tt.budget); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPlan_ValidateDetectsGapsAndOverlaps(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{"empty", Plan{}},
		{"gap", Plan{{0, 10}, {11, 9}}},
		{"overlap", Plan{{0, 10}, {9, 11}}},
		{"short", Plan{{0, 10}, {10, 5}}},
		{"late start", Plan{{1, 19}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.plan.Validate(20); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
