package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-orchestrator/internal/catalog"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	entry, ok := catalog.Lookup("alloy")
	require.True(t, ok)
	assert.Equal(t, "openai", entry.Provider)
	assert.Equal(t, "Alloy", entry.Name)

	entry, ok = catalog.Lookup("21m00Tcm4TlvDq8ikWAM")
	require.True(t, ok)
	assert.Equal(t, "elevenlabs", entry.Provider)

	_, ok = catalog.Lookup("no-such-voice")
	assert.False(t, ok)
}

func TestListCoversEveryProvider(t *testing.T) {
	t.Parallel()

	providers := make(map[string]bool)
	for _, entry := range catalog.List() {
		providers[entry.Provider] = true
	}

	assert.True(t, providers["elevenlabs"])
	assert.True(t, providers["openai"])
	assert.True(t, providers["playht"])
	assert.True(t, providers["fishaudio"])
}
