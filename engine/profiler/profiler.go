// Package profiler reports frame rate and memory statistics of the frame loop.
package profiler

import (
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

// Snapshot is one reporting interval of the profiler.
type Snapshot struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate and memory statistics, logging them at a fixed interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Snapshot

	now func() time.Time
}

// NewProfiler creates a Profiler reporting every interval. An interval <= 0 defaults to 1 second.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		now:            time.Now,
	}
	// Rates and pauses of the first interval start from here, not from process start.
	runtime.ReadMemStats(&p.memStats)
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.lastGCCount = p.memStats.NumGC
	return p
}

// Tick should be called once per presented frame. When the interval has elapsed it logs FPS,
// heap usage, allocation rate, GC count and pause times, and process memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	snap := Snapshot{
		FPS:     float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:  float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:   float64(p.memStats.Sys) / 1024 / 1024,
		GCCount: p.memStats.NumGC,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	snap.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		snap.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > snap.MaxPauseUs {
				snap.MaxPauseUs = pause
			}
		}
	}

	log.WithFields(log.Fields{
		"fps":         snap.FPS,
		"heapMB":      snap.HeapMB,
		"allocRateMB": snap.AllocRateMB,
		"gc":          snap.GCCount,
		"lastPauseUs": snap.LastPauseUs,
		"maxPauseUs":  snap.MaxPauseUs,
		"sysMB":       snap.SysMB,
	}).Info("profiler")

	p.last = snap
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = snap.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recently logged snapshot.
func (p *Profiler) Last() Snapshot {
	return p.last
}
