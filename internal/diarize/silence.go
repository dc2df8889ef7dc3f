package diarize

import (
	"context"

	"github.com/scribeflow/scribeflow/internal/models"
)

// DefaultGapThreshold is the silence gap, in seconds, that triggers a
// speaker change.
const DefaultGapThreshold = 1.5

// Silence is a heuristic diarizer: a pause longer than the gap threshold
// between consecutive segments is read as a turn change, cycling through
// at most maxSpeakers labels. It needs no model or token, which makes it
// the default for engines that do not diarize themselves.
type Silence struct {
	GapThreshold float64
}

// NewSilence creates a silence-gap diarizer with the default threshold.
func NewSilence() *Silence {
	return &Silence{GapThreshold: DefaultGapThreshold}
}

func (s *Silence) Diarize(_ context.Context, segments []models.Segment, minSpeakers, maxSpeakers int) (*Result, error) {
	if len(segments) == 0 {
		return &Result{}, nil
	}

	if maxSpeakers < 1 {
		maxSpeakers = 1
	}
	if minSpeakers > maxSpeakers {
		minSpeakers = maxSpeakers
	}

	threshold := s.GapThreshold
	if threshold <= 0 {
		threshold = DefaultGapThreshold
	}

	current := 0
	seen := 1
	var turns []Turn
	for i, seg := range segments {
		if i > 0 {
			gap := seg.Start - segments[i-1].End
			if gap > threshold {
				current = (current + 1) % maxSpeakers
				if current+1 > seen {
					seen = current + 1
				}
			}
		}
		turns = append(turns, Turn{Start: seg.Start, End: seg.End, Speaker: speakerLabel(current)})
	}

	count := seen
	if count < minSpeakers {
		count = minSpeakers
	}

	speakers := make([]string, 0, count)
	for i := 0; i < count; i++ {
		speakers = append(speakers, speakerLabel(i))
	}

	return &Result{Speakers: speakers, Turns: turns}, nil
}
