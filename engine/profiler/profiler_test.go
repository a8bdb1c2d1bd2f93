package profiler

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsOncePerInterval(t *testing.T) {
	start := time.Unix(1000, 0)
	now := start
	p := NewProfiler(time.Second)
	p.lastTime = start
	p.now = func() time.Time { return now }

	for i := 0; i < 59; i++ {
		now = now.Add(10 * time.Millisecond)
		require.False(t, p.Tick())
	}

	now = start.Add(2 * time.Second)
	require.True(t, p.Tick())
	assert.InDelta(t, 30.0, p.Last().FPS, 1e-9)
	assert.Greater(t, p.Last().SysMB, 0.0)

	now = now.Add(500 * time.Millisecond)
	assert.False(t, p.Tick())
}

func TestDefaultInterval(t *testing.T) {
	assert.Equal(t, time.Second, NewProfiler(0).updateInterval)
	assert.Equal(t, 250*time.Millisecond, NewProfiler(250*time.Millisecond).updateInterval)
}

func TestFirstIntervalStartsFromConstruction(t *testing.T) {
	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	require.Greater(t, before.TotalAlloc, uint64(0))

	start := time.Unix(1000, 0)
	p := NewProfiler(time.Second)
	assert.GreaterOrEqual(t, p.lastTotalAlloc, before.TotalAlloc)
	assert.GreaterOrEqual(t, p.lastGCCount, before.NumGC)

	p.lastTime = start
	p.now = func() time.Time { return start.Add(2 * time.Second) }
	require.True(t, p.Tick())

	allocated := p.Last().AllocRateMB * 2 * 1024 * 1024
	assert.LessOrEqual(t, allocated, float64(p.memStats.TotalAlloc-before.TotalAlloc)+1)
}
