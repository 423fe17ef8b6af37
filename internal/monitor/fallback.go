//go:build !linux

package monitor

import "runtime"

// Portable fallback used on any non-Linux platform: no reliable
// general-purpose CPU-percent syscall exists in the standard library, so
// this reports a best-effort zero rather than a fabricated number. It keeps
// the sweep running rather than crashing for lack of /proc.
func newPlatform() (CPUSampler, MemoryGauge, SystemInfo) {
	return &fallbackCPUSampler{}, &fallbackMemoryGauge{}, &fallbackSystemInfo{}
}

type fallbackCPUSampler struct{}

func (*fallbackCPUSampler) Start()                {}
func (*fallbackCPUSampler) UsagePercent() float64 { return 0 }

type fallbackMemoryGauge struct{}

func (*fallbackMemoryGauge) ResidentMB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Sys / (1024 * 1024)
}

func (*fallbackMemoryGauge) TotalSystemMB() uint64 { return 0 }

type fallbackSystemInfo struct{}

func (*fallbackSystemInfo) CPUName() string { return "Unknown CPU" }

func (*fallbackSystemInfo) ThreadCount() int {
	n := runtime.NumCPU()
	if n <= 0 {
		return 1
	}
	return n
}
