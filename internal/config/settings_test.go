package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsStoreDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	st, err := NewSettingsStore(path)
	require.NoError(t, err)

	s := st.Get()
	assert.Equal(t, "whisper", s.DefaultEngine)
	assert.Equal(t, "silence", s.DiarizationMethod)
	assert.Equal(t, 2, s.MinSpeakers)
	assert.Equal(t, 6, s.MaxSpeakers)

	// Defaults are not persisted until the first update.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSettingsStoreUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	st, err := NewSettingsStore(path)
	require.NoError(t, err)

	engine := "deepgram"
	_, err = st.Update(Patch{DefaultEngine: &engine, DeepgramKey: "dk-123"})
	require.NoError(t, err)

	// Reload from disk.
	st2, err := NewSettingsStore(path)
	require.NoError(t, err)

	s := st2.Get()
	assert.Equal(t, "deepgram", s.DefaultEngine)
	assert.Equal(t, "dk-123", s.DeepgramKey)
	assert.Equal(t, "dk-123", s.APIKeyFor("deepgram"))
}

func TestSettingsEmptyKeyLeavesCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	st, err := NewSettingsStore(path)
	require.NoError(t, err)

	_, err = st.Update(Patch{GeminiKey: "g-1"})
	require.NoError(t, err)

	// A patch round-tripped through the masked view carries empty keys;
	// they must not wipe the stored one.
	s, err := st.Update(Patch{GeminiKey: ""})
	require.NoError(t, err)
	assert.Equal(t, "g-1", s.GeminiKey)
}

func TestSettingsPatchValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	st, err := NewSettingsStore(path)
	require.NoError(t, err)

	minS, maxS := 5, 2
	_, err = st.Update(Patch{MinSpeakers: &minS, MaxSpeakers: &maxS})
	assert.ErrorIs(t, err, ErrBadSpeakerBounds)

	method := "accurate"
	_, err = st.Update(Patch{DiarizationMethod: &method})
	assert.ErrorIs(t, err, ErrBadDiarizationMethod)

	// Failed updates leave the current settings untouched.
	s := st.Get()
	assert.Equal(t, 2, s.MinSpeakers)
	assert.Equal(t, "silence", s.DiarizationMethod)
}

func TestSettingsViewMasksKeys(t *testing.T) {
	s := DefaultSettings()
	s.AssemblyAIKey = "aai-secret"

	v := s.View()
	assert.True(t, v.HasAssemblyAIKey)
	assert.False(t, v.HasDeepgramKey)
}
