// Package config validates and defaults CLI input into a Benchmark struct,
// following the fail-fast validation style of NewRTSPStream in the teacher's
// stream-capture module: every invalid setting is rejected at construction
// time, never discovered mid-run.
package config

import (
	"fmt"
	"time"
)

// Defaults mirror the CLI defaults of spec §6 and cli_parser.cpp's flag
// table: target FPS and max streams default from the probed source and the
// host, respectively, so they are not fixed constants here.
const (
	DefaultMeasurementDuration = 10 * time.Second
	DefaultCPUThresholdPercent = 85.0
	DefaultQueueCapacity       = 32
	DefaultPushPopTimeout      = 100 * time.Millisecond
	MultiThreadStreamThreshold = 4
)

// Benchmark holds one fully validated benchmark run's configuration.
type Benchmark struct {
	VideoPath           string
	MaxStreams          int // 0 means "default to host thread count"
	TargetFPS           float64 // 0 means "default to probed source FPS"
	MeasurementDuration time.Duration
	CPUThresholdPercent float64
	QueueCapacity       int
	CSVPath             string
	Debug               bool
}

// New validates raw CLI input and returns a Benchmark, or an error naming
// the first invalid field. A non-positive measurement duration or queue
// capacity is replaced by its default. Zero target FPS and max streams are
// left as zero so the caller can apply probe-derived defaults after source
// probing, which config does not perform.
func New(videoPath string, maxStreams int, targetFPS float64, measurementDuration time.Duration, cpuThresholdPercent float64, queueCapacity int, csvPath string, debug bool) (Benchmark, error) {
	if videoPath == "" {
		return Benchmark{}, fmt.Errorf("config: video path or RTSP URL is required")
	}
	if maxStreams < 0 {
		return Benchmark{}, fmt.Errorf("config: max streams %d must be non-negative", maxStreams)
	}
	if targetFPS < 0 {
		return Benchmark{}, fmt.Errorf("config: target fps %.2f must be non-negative", targetFPS)
	}
	if measurementDuration <= 0 {
		measurementDuration = DefaultMeasurementDuration
	}
	if cpuThresholdPercent <= 0 || cpuThresholdPercent > 100 {
		return Benchmark{}, fmt.Errorf("config: cpu threshold %.1f must be in (0, 100]", cpuThresholdPercent)
	}
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}

	return Benchmark{
		VideoPath:           videoPath,
		MaxStreams:          maxStreams,
		TargetFPS:           targetFPS,
		MeasurementDuration: measurementDuration,
		CPUThresholdPercent: cpuThresholdPercent,
		QueueCapacity:       queueCapacity,
		CSVPath:             csvPath,
		Debug:               debug,
	}, nil
}

// DecoderThreadCount computes the per-decoder FFmpeg thread count of spec
// §4.3: 1 once stream count reaches the multi-thread threshold, otherwise
// spread evenly across the host's cores.
func DecoderThreadCount(streamCount, cpuCores int) int {
	if streamCount >= MultiThreadStreamThreshold {
		return 1
	}
	if streamCount < 1 {
		streamCount = 1
	}
	threads := cpuCores / streamCount
	if threads < 1 {
		threads = 1
	}
	return threads
}
