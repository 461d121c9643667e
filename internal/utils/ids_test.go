package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNanoID(t *testing.T) {
	id := GenerateNanoID(12)

	assert.Len(t, id, 12)
	for _, r := range id {
		assert.Contains(t, idAlphabet, string(r))
	}
}

func TestGenerateNanoID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateNanoID(21)
		assert.False(t, seen[id], "generated a duplicate id: %s", id)
		seen[id] = true
	}
}

func TestGenerateNanoIDWithPrefix(t *testing.T) {
	id := GenerateNanoIDWithPrefix("cycle", 12)

	require.True(t, strings.HasPrefix(id, "cycle_"))
	assert.Len(t, id, len("cycle_")+12)
}

func TestIsStringInSlice(t *testing.T) {
	slice := []string{"skip", "abort"}

	assert.True(t, IsStringInSlice("skip", slice))
	assert.True(t, IsStringInSlice("abort", slice))
	assert.False(t, IsStringInSlice("retry", slice))
	assert.False(t, IsStringInSlice("", slice))
	assert.False(t, IsStringInSlice("skip", nil))
}
