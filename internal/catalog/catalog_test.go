package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog(t *testing.T) {
	t.Run("accepts the default model set", func(t *testing.T) {
		c, err := NewCatalog(DefaultModels())
		require.NoError(t, err)
		assert.Equal(t, len(DefaultModels()), c.Len())
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := NewCatalog([]ModelDescriptor{
			{ID: "openai:gpt-4o", Provider: "openai", DisplayName: "GPT-4o"},
			{ID: "openai:gpt-4o", Provider: "openai", DisplayName: "GPT-4o again"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate model id")
	})

	t.Run("rejects empty ids", func(t *testing.T) {
		_, err := NewCatalog([]ModelDescriptor{
			{ID: "", Provider: "openai", DisplayName: "nameless"},
		})
		require.Error(t, err)
	})

	t.Run("rejects id and provider mismatch", func(t *testing.T) {
		_, err := NewCatalog([]ModelDescriptor{
			{ID: "openai:gpt-4o", Provider: "anthropic"},
		})
		require.Error(t, err)
	})
}

func TestCatalog_Get(t *testing.T) {
	c, err := NewCatalog(DefaultModels())
	require.NoError(t, err)

	t.Run("exact lookup", func(t *testing.T) {
		d, ok := c.Get("openai:gpt-4o")
		require.True(t, ok)
		assert.Equal(t, "openai", d.Provider)
		assert.Equal(t, "GPT-4o", d.DisplayName)
		assert.True(t, d.Capabilities.Tools)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, ok := c.Get("openai:gpt-9000")
		assert.False(t, ok)
	})

	t.Run("never resolves aliases", func(t *testing.T) {
		_, ok := c.Get("gemini")
		assert.False(t, ok)
	})
}

func TestCatalog_List(t *testing.T) {
	models := DefaultModels()
	c, err := NewCatalog(models)
	require.NoError(t, err)

	t.Run("preserves declaration order", func(t *testing.T) {
		listed := c.List()
		require.Len(t, listed, len(models))
		for i, d := range listed {
			assert.Equal(t, models[i].ID, d.ID)
		}
	})

	t.Run("by provider", func(t *testing.T) {
		google := c.ListByProvider("google")
		require.Len(t, google, 3)
		assert.Equal(t, "google:gemini-2.5-pro", google[0].ID)

		assert.Empty(t, c.ListByProvider("mistral"))
	})
}

func TestNewAliasTable(t *testing.T) {
	c, err := NewCatalog(DefaultModels())
	require.NoError(t, err)

	t.Run("accepts the default aliases", func(t *testing.T) {
		table, err := NewAliasTable(c, DefaultAliases())
		require.NoError(t, err)
		assert.Equal(t, len(DefaultAliases()), table.Len())
	})

	t.Run("rejects dangling targets", func(t *testing.T) {
		_, err := NewAliasTable(c, map[string]string{
			"llama": "meta:llama-4",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown model")
	})

	t.Run("rejects empty alias names", func(t *testing.T) {
		_, err := NewAliasTable(c, map[string]string{
			"": "openai:gpt-4o",
		})
		require.Error(t, err)
	})
}
