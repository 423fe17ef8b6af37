package monitor

import "testing"

// TestNewReturnsUsableSamplers exercises the platform-selected
// constructor without asserting on platform-specific values, since the
// Linux implementation depends on /proc being present and the fallback
// reports zero CPU usage and zero total memory (see fallback.go).
func TestNewReturnsUsableSamplers(t *testing.T) {
	cpu, mem, sys := New()
	if cpu == nil || mem == nil || sys == nil {
		t.Fatalf("New returned a nil sampler: cpu=%v mem=%v sys=%v", cpu, mem, sys)
	}

	cpu.Start()
	if usage := cpu.UsagePercent(); usage < 0 {
		t.Errorf("UsagePercent() = %v, want >= 0", usage)
	}

	if rss := mem.ResidentMB(); rss == 0 {
		t.Errorf("ResidentMB() = 0, want a positive resident set size for a running process")
	}

	if n := sys.ThreadCount(); n < 1 {
		t.Errorf("ThreadCount() = %d, want >= 1", n)
	}
	if sys.CPUName() == "" {
		t.Errorf("CPUName() returned empty string")
	}
}
