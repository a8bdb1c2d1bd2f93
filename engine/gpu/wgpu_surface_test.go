package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilHandle(t *testing.T) {
	assert.True(t, nilHandle(nil))
	assert.True(t, nilHandle(&wgpu.Texture{}))
}

func TestAcquireMissesEscalateToSurfaceLost(t *testing.T) {
	var m acquireMisses
	for i := 1; i < maxAcquireMisses; i++ {
		err := m.miss()
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSurfaceLost, "miss %d", i)
	}
	assert.ErrorIs(t, m.miss(), ErrSurfaceLost)
}

func TestAcquireMissesReset(t *testing.T) {
	var m acquireMisses
	for i := 1; i < maxAcquireMisses; i++ {
		_ = m.miss()
	}
	m.reset()
	assert.NotErrorIs(t, m.miss(), ErrSurfaceLost)
}
