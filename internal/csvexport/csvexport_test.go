package csvexport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/developer0hye/video-decode-bench/internal/result"
)

func TestWriteProducesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sweep.csv")

	rows := []result.StreamTestResult{
		{
			TraceID: "trace-1", StreamCount: 4,
			MinFPS: 29.5, AvgFPS: 30.0, MaxFPS: 30.2,
			CPUUsagePercent: 42.1, MemoryMB: 512.3,
			FPSPassed: true, CPUPassed: true, Passed: true,
		},
		{
			TraceID: "trace-2", StreamCount: 8,
			MinFPS: 12.0, AvgFPS: 18.0, MaxFPS: 22.0,
			CPUUsagePercent: 95.0, MemoryMB: 768.9,
			FPSPassed: false, CPUPassed: false, Passed: false,
		},
	}

	if err := Write(path, rows); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open written csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse written csv: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	if len(records[0]) != len(header) {
		t.Fatalf("header has %d columns, want %d", len(records[0]), len(header))
	}
	for i, col := range header {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
	if records[1][0] != "trace-1" || records[1][1] != "4" {
		t.Errorf("row 1 = %v, unexpected content", records[1])
	}
	if records[2][7] != "false" || records[2][9] != "false" {
		t.Errorf("row 2 passed columns = %v, want false/false", records[2])
	}
}

func TestWriteEmptyRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")

	if err := Write(path, nil); err != nil {
		t.Fatalf("Write with no rows should succeed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open written csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse written csv: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected only the header row, got %d records", len(records))
	}
}

func TestWriteFailsOnUnwritablePath(t *testing.T) {
	if err := Write(filepath.Join("no-such-dir-xyz", "out.csv"), nil); err == nil {
		t.Fatalf("expected error when the target directory does not exist")
	}
}
