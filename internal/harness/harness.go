// Package harness implements the measurement harness of spec §4.8 (C7):
// for one stream count, build a topology, release its start barrier, sample
// CPU for a fixed measurement window, stop, join, and aggregate a
// StreamTestResult. Grounded on benchmark_runner.cpp's runSingleTestDirect
// and runSingleTestPool, split out of the sweep loop that drives it.
package harness

import (
	"fmt"
	"time"

	"github.com/developer0hye/video-decode-bench/internal/monitor"
	"github.com/developer0hye/video-decode-bench/internal/result"
	"github.com/developer0hye/video-decode-bench/internal/streamctx"
	"github.com/developer0hye/video-decode-bench/internal/topology"
)

// fpsTolerance allows 2% timing overhead before a stream is considered to
// have missed its target rate, grounded on kFpsTolerance.
const fpsTolerance = 0.98

// runnable is the minimal interface both internal/topology.Direct and
// internal/topology.Pool satisfy; the harness does not care which one it
// drives.
type runnable interface {
	Start()
	Stop()
	Join()
	Elapsed() time.Duration
	Streams() []*streamctx.Context
	FirstError() error
}

// Params configures one harness run.
type Params struct {
	StreamCount         int
	VideoPath           string
	TargetFPS           float64
	CPUCores            int
	DecoderThreadCount  int
	IsLiveStream        bool
	QueueCapacity       int
	MeasurementDuration time.Duration
	CPUThresholdPercent float64
}

// Run executes one full measurement cycle for p.StreamCount and returns the
// aggregated result, per spec §4.8 steps 1-10.
func Run(p Params, cpu monitor.CPUSampler, mem monitor.MemoryGauge) (result.StreamTestResult, error) {
	usePool := p.StreamCount >= p.CPUCores

	var rt runnable
	if usePool {
		readerCount := p.CPUCores
		if readerCount < 1 {
			readerCount = 1
		}
		rt = topology.NewPool(p.StreamCount, p.VideoPath, p.TargetFPS, p.DecoderThreadCount, p.IsLiveStream, p.QueueCapacity, p.StreamCount, readerCount)
	} else {
		rt = topology.NewDirect(p.StreamCount, p.VideoPath, p.TargetFPS, p.DecoderThreadCount, p.IsLiveStream, p.QueueCapacity)
	}

	// Step 2: even on an init error, arrive at the barrier (Start), set
	// stop, join, and return the error — never leave the barrier short of
	// arrivals. buildStreams/NewDirect/NewPool already guarantee every
	// worker goroutine is spawned regardless of per-stream init failure, so
	// this path is always safe to take unconditionally.
	rt.Start() // step 3: arrive at the start barrier

	cpu.Start() // step 4: start CPU snapshot, record start time (Elapsed() tracks this)

	time.Sleep(p.MeasurementDuration) // step 5

	rt.Stop() // step 6: release store on the stop flag

	cpuUsage := cpu.UsagePercent() // step 7
	memoryMB := float64(mem.ResidentMB())
	elapsed := rt.Elapsed().Seconds()

	rt.Join() // step 8: workers then readers

	if err := rt.FirstError(); err != nil {
		return result.StreamTestResult{}, err
	}

	return aggregate(p.StreamCount, rt.Streams(), elapsed, cpuUsage, memoryMB, p.TargetFPS, p.CPUThresholdPercent), nil
}

// aggregate computes per-stream fps and pass/fail, step 9/10.
func aggregate(streamCount int, streams []*streamctx.Context, elapsed, cpuUsage float64, memoryMB float64, targetFPS, cpuThreshold float64) result.StreamTestResult {
	perStreamFrames := make([]int64, len(streams))
	perStreamFPS := make([]float64, len(streams))

	minFPS, maxFPS, sumFPS := 0.0, 0.0, 0.0
	for i, sc := range streams {
		frames := sc.FramesDecoded.Load()
		perStreamFrames[i] = frames

		fps := 0.0
		if elapsed > 0 {
			fps = float64(frames) / elapsed
		}
		perStreamFPS[i] = fps
		sumFPS += fps

		if i == 0 {
			minFPS, maxFPS = fps, fps
		} else {
			if fps < minFPS {
				minFPS = fps
			}
			if fps > maxFPS {
				maxFPS = fps
			}
		}
	}

	avgFPS := 0.0
	if len(streams) > 0 {
		avgFPS = sumFPS / float64(len(streams))
	}

	fpsPassed := minFPS >= targetFPS*fpsTolerance
	cpuPassed := cpuUsage <= cpuThreshold

	return result.StreamTestResult{
		TraceID:         "",
		StreamCount:     streamCount,
		PerStreamFrames: perStreamFrames,
		PerStreamFPS:    perStreamFPS,
		MinFPS:          minFPS,
		AvgFPS:          avgFPS,
		MaxFPS:          maxFPS,
		CPUUsagePercent: cpuUsage,
		MemoryMB:        memoryMB,
		FPSPassed:       fpsPassed,
		CPUPassed:       cpuPassed,
		Passed:          fpsPassed && cpuPassed,
	}
}

// Error wraps a harness-reported error with the stream count it occurred
// at, so the sweep controller's abort message is specific.
func Error(streamCount int, err error) error {
	return fmt.Errorf("harness: stream_count=%d: %w", streamCount, err)
}
