// Package csvexport writes sweep records to a CSV file using the standard
// library's encoding/csv. No third-party CSV library in the retrieved pack
// improves materially on encoding/csv for flat numeric rows, so this one
// ambient concern stays on the standard library (see DESIGN.md).
package csvexport

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/developer0hye/video-decode-bench/internal/result"
)

var header = []string{
	"trace_id", "stream_count", "min_fps", "avg_fps", "max_fps",
	"cpu_usage_percent", "memory_mb", "fps_passed", "cpu_passed", "passed",
}

// Write creates path and writes one row per r, in the order given.
func Write(path string, rows []result.StreamTestResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvexport: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(header); err != nil {
		return fmt.Errorf("csvexport: write header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.TraceID,
			strconv.Itoa(r.StreamCount),
			strconv.FormatFloat(r.MinFPS, 'f', 2, 64),
			strconv.FormatFloat(r.AvgFPS, 'f', 2, 64),
			strconv.FormatFloat(r.MaxFPS, 'f', 2, 64),
			strconv.FormatFloat(r.CPUUsagePercent, 'f', 2, 64),
			strconv.FormatFloat(r.MemoryMB, 'f', 1, 64),
			strconv.FormatBool(r.FPSPassed),
			strconv.FormatBool(r.CPUPassed),
			strconv.FormatBool(r.Passed),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csvexport: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csvexport: flush: %w", err)
	}
	return nil
}
