// Package chunker decides how a media file is cut into time ranges that fit a
// byte budget.
//
// The plan converts bytes into seconds assuming a roughly constant bitrate.
// Variable bitrate sources can produce chunks above the budget; callers that
// care should check the produced chunk sizes and plan again.
package chunker

import (
	"fmt"
	"math"
)

// Tolerance is the floating point slack allowed when validating coverage
const Tolerance = 1e-6

// Spec is one planned chunk: a half-open time range [Start, Start+Length)
type Spec struct {
	Start  float64 `json:"start"`
	Length float64 `json:"length"`
}

// End returns the exclusive end of the range
func (s Spec) End() float64 {
	return s.Start + s.Length
}

// Plan is an ordered, contiguous sequence of chunk specs
type Plan []Spec

// Single reports whether the plan spans the whole file in one chunk
func (p Plan) Single() bool {
	return len(p) == 1
}

// ChunkCount returns the number of chunks needed so the estimated per-chunk
// size stays within budget
func ChunkCount(size, budget int64) int {
	if budget <= 0 {
		return 1
	}
	n := int(size/budget) + 1
	if n < 1 {
		n = 1
	}
	return n
}

// PlanChunks splits [0, duration) into ChunkCount(size, budget) equal ranges
func PlanChunks(size int64, duration float64, budget int64) (Plan, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid file size: %d bytes", size)
	}
	if budget <= 0 {
		return nil, fmt.Errorf("invalid size budget: %d bytes", budget)
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("invalid duration: %.2f seconds", duration)
	}

	count := ChunkCount(size, budget)
	chunkLength := duration / float64(count)

	plan := make(Plan, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * chunkLength
		length := math.Min(chunkLength, duration-start)

		// Last chunk ends exactly at the source duration
		if i == count-1 {
			length = duration - start
		}

		plan = append(plan, Spec{Start: start, Length: length})
	}

	return plan, nil
}

// Validate checks the plan is contiguous, non-overlapping and covers [0, duration)
func (p Plan) Validate(duration float64) error {
	if len(p) == 0 {
		return fmt.Errorf("chunk plan is empty")
	}

	if math.Abs(p[0].Start) > Tolerance {
		return fmt.Errorf("first chunk starts at %.6f, expected 0", p[0].Start)
	}

	var total float64
	for i, spec := range p {
		if spec.Length <= 0 {
			return fmt.Errorf("chunk %d has non-positive length %.6f", i, spec.Length)
		}
		total += spec.Length

		if i == 0 {
			continue
		}
		prevEnd := p[i-1].End()
		if spec.Start < prevEnd-Tolerance {
			return fmt.Errorf("chunks %d and %d overlap: %.6f > %.6f", i-1, i, prevEnd, spec.Start)
		}
		if spec.Start > prevEnd+Tolerance {
			return fmt.Errorf("gap between chunks %d and %d: %.6f < %.6f", i-1, i, prevEnd, spec.Start)
		}
	}

	if math.Abs(p[len(p)-1].End()-duration) > Tolerance {
		return fmt.Errorf("plan ends at %.6f, expected %.6f", p[len(p)-1].End(), duration)
	}
	if math.Abs(total-duration) > Tolerance {
		return fmt.Errorf("chunk lengths sum to %.6f, expected %.6f", total, duration)
	}

	return nil
}
