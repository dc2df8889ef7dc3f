// Package diarize assigns speaker labels to transcript segments.
package diarize

import (
	"context"
	"fmt"

	"github.com/scribeflow/scribeflow/internal/models"
)

// Turn is one contiguous span attributed to a single speaker.
type Turn struct {
	Start   float64
	End     float64
	Speaker string
}

// Result is the output of a diarization pass.
type Result struct {
	Speakers []string
	Turns    []Turn
}

// Diarizer produces speaker turns for a transcript.
type Diarizer interface {
	Diarize(ctx context.Context, segments []models.Segment, minSpeakers, maxSpeakers int) (*Result, error)
}

// Noop performs no diarization; every segment stays unattributed.
type Noop struct{}

func (Noop) Diarize(_ context.Context, _ []models.Segment, _, _ int) (*Result, error) {
	return &Result{}, nil
}

// HasSpeakers reports whether the engine already attributed speakers,
// in which case diarization must not overwrite them.
func HasSpeakers(segments []models.Segment) bool {
	for _, seg := range segments {
		if seg.Speaker != "" {
			return true
		}
	}
	return false
}

// Merge assigns each transcript segment the speaker of the diarization
// turn it overlaps the most. Segments without any overlap become
// SPEAKER_UNKNOWN.
func Merge(segments []models.Segment, result *Result) []models.Segment {
	merged := make([]models.Segment, len(segments))
	for i, seg := range segments {
		best := "SPEAKER_UNKNOWN"
		bestOverlap := 0.0

		for _, turn := range result.Turns {
			start := max(seg.Start, turn.Start)
			end := min(seg.End, turn.End)
			if overlap := end - start; overlap > bestOverlap {
				bestOverlap = overlap
				best = turn.Speaker
			}
		}

		seg.Speaker = best
		merged[i] = seg
	}
	return merged
}

// CountSpeakers returns the number of distinct speakers in segments.
func CountSpeakers(segments []models.Segment) int {
	seen := map[string]bool{}
	for _, seg := range segments {
		if seg.Speaker != "" {
			seen[seg.Speaker] = true
		}
	}
	return len(seen)
}

func speakerLabel(n int) string {
	return fmt.Sprintf("SPEAKER_%02d", n)
}
