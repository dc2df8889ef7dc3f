package llm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelCost(t *testing.T) {
	in, out := 0.30, 2.50
	m := ModelInfo{ID: "gemini-2.5-flash", InputPricePer1M: &in, OutputPrice1M: &out}

	cost := m.Cost(1_000_000, 100_000)
	require.NotNil(t, cost)
	assert.InDelta(t, 0.30+0.25, *cost, 1e-9)
}

func TestModelCostUnpriced(t *testing.T) {
	m := ModelInfo{ID: "llama3.1"}
	assert.Nil(t, m.Cost(1000, 1000), "unpriced model must not report a cost")
}

func TestCatalogDefaults(t *testing.T) {
	c, err := NewCatalog(filepath.Join(t.TempDir(), "llm_models.json"))
	require.NoError(t, err)

	models := c.List("gemini")
	require.NotEmpty(t, models)
	assert.NotNil(t, c.Get("gemini", "gemini-2.5-flash"))
	assert.Nil(t, c.Get("gemini", "no-such-model"))
	assert.Nil(t, c.CostFor("gemini", "no-such-model", 100, 100))
	assert.NotNil(t, c.CostFor("gemini", "gemini-2.5-flash", 100, 100))
}

func TestCatalogReplacePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_models.json")
	c, err := NewCatalog(path)
	require.NoError(t, err)

	custom := map[string][]ModelInfo{
		"ollama": {unpriced("mistral", "Mistral (local)")},
	}
	require.NoError(t, c.Replace(custom))

	reloaded, err := NewCatalog(path)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.Get("ollama", "mistral"))
	assert.Empty(t, reloaded.List("gemini"))
}
