package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeed(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 16; i++ {
		s, err := NewSeed()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s, int64(0))
		seen[s] = true
	}
	assert.Greater(t, len(seen), 1)
}
