package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseObject(t *testing.T) {
	segments, suggestions, err := parseResponse(cleanupJSON)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "SPEAKER_00", segments[0].Speaker)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Anna (PM)", suggestions[0].DisplayName)
}

func TestParseResponseArrayFallback(t *testing.T) {
	segments, suggestions, err := parseResponse(`[{"start": 1.5, "speaker": "SPEAKER_01", "text": "Hi."}]`)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 1.5, segments[0].Start)
	assert.Empty(t, suggestions)
}

func TestParseResponseFenced(t *testing.T) {
	fenced := "```json\n" + cleanupJSON + "\n```"
	segments, _, err := parseResponse(fenced)
	require.NoError(t, err)
	assert.Len(t, segments, 1)
}

func TestParseResponseMissingSpeaker(t *testing.T) {
	segments, _, err := parseResponse(`{"segments": [{"start": 0, "text": "orphan line"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "SPEAKER_UNKNOWN", segments[0].Speaker)
}

func TestParseResponseRoleOnlySuggestion(t *testing.T) {
	_, suggestions, err := parseResponse(`{
		"segments": [],
		"speaker_suggestions": [
			{"speaker_id": "SPEAKER_00", "role": "Interviewer", "role_confidence": 0.8},
			{"speaker_id": "SPEAKER_01"}
		]
	}`)
	require.NoError(t, err)
	require.Len(t, suggestions, 1, "empty suggestions are dropped")
	assert.Equal(t, "Interviewer", suggestions[0].DisplayName)
}

func TestParseResponseGarbage(t *testing.T) {
	_, _, err := parseResponse("not json at all")
	assert.Error(t, err)
}
