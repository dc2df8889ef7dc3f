package diarize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeflow/scribeflow/internal/models"
)

func TestSilenceAlternatesOnGaps(t *testing.T) {
	segments := []models.Segment{
		{Start: 0, End: 3, Text: "First speaker talking."},
		{Start: 3.2, End: 6, Text: "Still the same turn."}, // 0.2s gap, no switch
		{Start: 8, End: 10, Text: "Someone else now."},     // 2s gap, switch
		{Start: 12, End: 14, Text: "And back again."},      // 2s gap, switch
	}

	result, err := NewSilence().Diarize(context.Background(), segments, 2, 2)
	require.NoError(t, err)
	require.Len(t, result.Turns, 4)

	assert.Equal(t, "SPEAKER_00", result.Turns[0].Speaker)
	assert.Equal(t, "SPEAKER_00", result.Turns[1].Speaker)
	assert.Equal(t, "SPEAKER_01", result.Turns[2].Speaker)
	assert.Equal(t, "SPEAKER_00", result.Turns[3].Speaker) // wraps at maxSpeakers
	assert.Equal(t, []string{"SPEAKER_00", "SPEAKER_01"}, result.Speakers)
}

func TestSilenceRespectsMaxSpeakers(t *testing.T) {
	segments := []models.Segment{
		{Start: 0, End: 1}, {Start: 5, End: 6}, {Start: 10, End: 11}, {Start: 15, End: 16},
	}

	result, err := NewSilence().Diarize(context.Background(), segments, 1, 3)
	require.NoError(t, err)

	assert.Equal(t, "SPEAKER_00", result.Turns[0].Speaker)
	assert.Equal(t, "SPEAKER_01", result.Turns[1].Speaker)
	assert.Equal(t, "SPEAKER_02", result.Turns[2].Speaker)
	assert.Equal(t, "SPEAKER_00", result.Turns[3].Speaker)
	assert.Len(t, result.Speakers, 3)
}

func TestSilenceEmptyInput(t *testing.T) {
	result, err := NewSilence().Diarize(context.Background(), nil, 2, 6)
	require.NoError(t, err)
	assert.Empty(t, result.Turns)
}

func TestMergeBestOverlap(t *testing.T) {
	segments := []models.Segment{
		{Start: 0, End: 4, Text: "Mostly the first turn."},
		{Start: 4, End: 6, Text: "Fully inside the second."},
		{Start: 100, End: 101, Text: "Nothing overlaps this."},
	}
	result := &Result{Turns: []Turn{
		{Start: 0, End: 3, Speaker: "SPEAKER_00"},
		{Start: 3, End: 10, Speaker: "SPEAKER_01"},
	}}

	merged := Merge(segments, result)
	require.Len(t, merged, 3)
	assert.Equal(t, "SPEAKER_00", merged[0].Speaker) // 3s overlap beats 1s
	assert.Equal(t, "SPEAKER_01", merged[1].Speaker)
	assert.Equal(t, "SPEAKER_UNKNOWN", merged[2].Speaker)
	// Text is untouched.
	assert.Equal(t, "Mostly the first turn.", merged[0].Text)
}

func TestHasSpeakersAndCount(t *testing.T) {
	assert.False(t, HasSpeakers([]models.Segment{{Text: "a"}, {Text: "b"}}))
	assert.True(t, HasSpeakers([]models.Segment{{Text: "a"}, {Speaker: "SPEAKER_00"}}))

	count := CountSpeakers([]models.Segment{
		{Speaker: "SPEAKER_00"}, {Speaker: "SPEAKER_01"}, {Speaker: "SPEAKER_00"}, {},
	})
	assert.Equal(t, 2, count)
}

func TestNoopLeavesSegmentsAlone(t *testing.T) {
	result, err := Noop{}.Diarize(context.Background(), []models.Segment{{Start: 0, End: 1}}, 2, 6)
	require.NoError(t, err)
	assert.Empty(t, result.Turns)
}
