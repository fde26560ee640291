// Package profiler provides a lightweight frame-rate and memory readout for
// the render loop: call Tick once per frame and stats are logged on an
// interval. The latest figures are also kept as a snapshot for callers that
// want to display them instead of reading the log.
package profiler

import (
	"log"
	"runtime"
	"time"
)

// Snapshot is the most recent set of computed statistics.
type Snapshot struct {
	// FPS is the frame rate over the last interval.
	FPS float64

	// HeapMB is the live heap size in megabytes.
	HeapMB float64

	// SysMB is the total memory obtained from the OS in megabytes.
	SysMB float64

	// AllocRateMB is the heap allocation churn in megabytes per second.
	AllocRateMB float64

	// GCCount is the cumulative garbage collection count.
	GCCount uint32

	// LastGCPauseUs is the duration of the most recent GC pause in microseconds.
	LastGCPauseUs uint64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	snapshot Snapshot
}

// ProfilerOption is a functional option for configuring a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often Tick logs and refreshes the snapshot.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerOption: option function to apply
func WithInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// NewProfiler creates a new Profiler with the given options.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Snapshot returns the statistics computed on the most recent reporting
// interval. Zero-valued until the first interval elapses.
//
// Returns:
//   - Snapshot: the latest statistics
func (p *Profiler) Snapshot() Snapshot {
	return p.snapshot
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
	}

	log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, sysMB)

	p.snapshot = Snapshot{
		FPS:           fps,
		HeapMB:        allocMB,
		SysMB:         sysMB,
		AllocRateMB:   allocRateMB,
		GCCount:       gcCount,
		LastGCPauseUs: lastPauseUs,
	}

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
