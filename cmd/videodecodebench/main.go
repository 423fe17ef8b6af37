// Command videodecodebench measures how many concurrent video streams a
// host can CPU-decode in real time, via a stream-count sweep, in the style
// of the teacher's stream-capture/cmd/test-capture CLI front-end.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/developer0hye/video-decode-bench/internal/config"
	"github.com/developer0hye/video-decode-bench/internal/csvexport"
	"github.com/developer0hye/video-decode-bench/internal/harness"
	"github.com/developer0hye/video-decode-bench/internal/monitor"
	"github.com/developer0hye/video-decode-bench/internal/output"
	"github.com/developer0hye/video-decode-bench/internal/probe"
	"github.com/developer0hye/video-decode-bench/internal/result"
	"github.com/developer0hye/video-decode-bench/internal/sweep"
)

const version = "v0.1.0"

func main() {
	maxStreams := flag.Int("max-streams", 0, "Maximum streams to test (0 = host thread count)")
	targetFPS := flag.Float64("target-fps", 0, "Target FPS per stream (0 = source FPS)")
	duration := flag.Duration("duration", config.DefaultMeasurementDuration, "Measurement window per sweep point")
	cpuThreshold := flag.Float64("cpu-threshold", config.DefaultCPUThresholdPercent, "CPU usage ceiling percent (0-100)")
	queueCapacity := flag.Int("queue-capacity", config.DefaultQueueCapacity, "Packet channel capacity per stream")
	csvPath := flag.String("csv", "", "Write sweep records to this CSV path (optional)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("videodecodebench %s\n", version)
		os.Exit(0)
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <video-path-or-rtsp-url>\n\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	videoPath := flag.Arg(0)

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.New(videoPath, *maxStreams, *targetFPS, *duration, *cpuThreshold, *queueCapacity, *csvPath, *debug)
	if err != nil {
		log.Fatalf("videodecodebench: %v", err)
	}

	info, err := probe.Probe(cfg.VideoPath)
	if err != nil {
		log.Fatalf("videodecodebench: failed to probe source: %v", err)
	}
	if !probe.Supported(info.CodecID) {
		log.Fatalf("videodecodebench: unsupported codec %s", info.CodecName)
	}

	cpuSampler, memGauge, sysInfo := monitor.New()

	cpuCores := sysInfo.ThreadCount()
	resolvedTargetFPS := cfg.TargetFPS
	if resolvedTargetFPS <= 0 {
		resolvedTargetFPS = info.FPS
	}
	resolvedMaxStreams := cfg.MaxStreams
	if resolvedMaxStreams <= 0 {
		resolvedMaxStreams = cpuCores
	}

	benchResult := result.BenchmarkResult{
		RunID:               uuid.New().String(),
		CPUName:             sysInfo.CPUName(),
		ThreadCount:         cpuCores,
		TotalSystemMemoryMB: float64(memGauge.TotalSystemMB()),
		VideoPath:           cfg.VideoPath,
		VideoWidth:          info.Width,
		VideoHeight:         info.Height,
		CodecName:           info.CodecName,
		VideoFPS:            info.FPS,
		IsLiveStream:        info.IsLiveStream,
		TargetFPS:           resolvedTargetFPS,
	}

	output.PrintHeader(benchResult)
	output.PrintTestingStart()

	runner := func(count int) (result.StreamTestResult, error) {
		decoderThreads := config.DecoderThreadCount(count, cpuCores)
		r, err := harness.Run(harness.Params{
			StreamCount:         count,
			VideoPath:           cfg.VideoPath,
			TargetFPS:           resolvedTargetFPS,
			CPUCores:            cpuCores,
			DecoderThreadCount:  decoderThreads,
			IsLiveStream:        info.IsLiveStream,
			QueueCapacity:       cfg.QueueCapacity,
			MeasurementDuration: cfg.MeasurementDuration,
			CPUThresholdPercent: cfg.CPUThresholdPercent,
		}, cpuSampler, memGauge)
		if err != nil {
			return result.StreamTestResult{}, harness.Error(count, err)
		}
		r.TraceID = uuid.New().String()
		return r, nil
	}

	maxPassing, testResults, sweepErr := sweep.Run(resolvedMaxStreams, runner, output.PrintTestResult)

	benchResult.TestResults = testResults
	benchResult.MaxStreams = maxPassing

	if sweepErr != nil {
		benchResult.Success = false
		benchResult.ErrorMessage = sweepErr.Error()
		output.PrintError(sweepErr.Error())
		if cfg.CSVPath != "" {
			if err := csvexport.Write(cfg.CSVPath, testResults); err != nil {
				slog.Error("videodecodebench: csv export failed", "error", err)
			}
		}
		os.Exit(1)
	}

	benchResult.Success = true
	output.PrintSummary(benchResult)

	if cfg.CSVPath != "" {
		if err := csvexport.Write(cfg.CSVPath, testResults); err != nil {
			slog.Error("videodecodebench: csv export failed", "error", err)
		} else {
			slog.Info("videodecodebench: csv written", "path", cfg.CSVPath)
		}
	}
}
