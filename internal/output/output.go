// Package output formats the benchmark header, per-point progress line, and
// final summary printed to stdout, grounded on output_formatter.cpp's
// OutputFormatter. It also logs the same events structurally via log/slog,
// the teacher's logging idiom throughout stream-capture/framebus.
package output

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/developer0hye/video-decode-bench/internal/result"
)

// PrintHeader prints the CPU/source/video info banner once at startup.
func PrintHeader(r result.BenchmarkResult) {
	fmt.Printf("CPU: %s (%d threads)\n", r.CPUName, r.ThreadCount)

	if r.IsLiveStream {
		fmt.Printf("Source: %s\n", r.VideoPath)
	} else {
		fmt.Printf("File: %s\n", r.VideoPath)
	}

	label := "Video: "
	if r.IsLiveStream {
		label = "Source: "
	}
	line := fmt.Sprintf("%s%dx%d %s, %dfps", label, r.VideoWidth, r.VideoHeight, r.CodecName, int(r.VideoFPS))
	if r.IsLiveStream {
		line += " (live)"
	}
	fmt.Println(line)
	fmt.Println()

	slog.Info("videodecodebench: starting sweep",
		"cpu_name", r.CPUName,
		"thread_count", r.ThreadCount,
		"video_path", r.VideoPath,
		"codec", r.CodecName,
		"video_fps", r.VideoFPS,
		"is_live_stream", r.IsLiveStream,
		"target_fps", r.TargetFPS,
	)
}

// PrintTestingStart announces the sweep is about to run its first point.
func PrintTestingStart() {
	fmt.Println("Testing...")
}

// statusSymbol mirrors StreamTestResult::getStatusSymbol.
func statusSymbol(passed bool) string {
	if passed {
		return "✓"
	}
	return "✗"
}

// failureReason mirrors StreamTestResult::getFailureReason.
func failureReason(r result.StreamTestResult) string {
	if r.Passed {
		return ""
	}
	if !r.FPSPassed {
		return "FPS below target"
	}
	if !r.CPUPassed {
		return "CPU threshold exceeded"
	}
	return "Unknown"
}

// PrintTestResult prints one sweep point's line and logs its per-stream
// frame counts and trace id.
func PrintTestResult(r result.StreamTestResult) {
	streamWord := "streams:"
	if r.StreamCount == 1 {
		streamWord = "stream: "
	}

	line := fmt.Sprintf("%2d %s%5dfps (min:%d/avg:%d/max:%d) (CPU: %2d%%) %s",
		r.StreamCount, streamWord, int(r.AvgFPS), int(r.MinFPS), int(r.AvgFPS), int(r.MaxFPS),
		int(r.CPUUsagePercent), statusSymbol(r.Passed))

	if !r.Passed {
		line += " " + failureReason(r)
	}
	fmt.Println(line)

	slog.Info("videodecodebench: sweep point evaluated",
		"trace_id", r.TraceID,
		"stream_count", r.StreamCount,
		"min_fps", r.MinFPS,
		"avg_fps", r.AvgFPS,
		"max_fps", r.MaxFPS,
		"cpu_usage_percent", r.CPUUsagePercent,
		"memory_mb", r.MemoryMB,
		"passed", r.Passed,
		"per_stream_frames", r.PerStreamFrames,
	)
}

// PrintSummary prints the final "maximum sustainable streams" line.
func PrintSummary(r result.BenchmarkResult) {
	fmt.Println()
	if r.MaxStreams > 0 {
		suffix := "s"
		if r.MaxStreams == 1 {
			suffix = ""
		}
		fmt.Printf("Result: Maximum %d concurrent stream%s can be decoded in real-time\n", r.MaxStreams, suffix)
	} else {
		fmt.Println("Result: Could not achieve real-time decoding even with 1 stream")
	}

	slog.Info("videodecodebench: sweep complete",
		"run_id", r.RunID,
		"max_streams", r.MaxStreams,
		"success", r.Success,
	)
}

// PrintError prints a terminal error to stderr and logs it.
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	slog.Error("videodecodebench: " + message)
}
