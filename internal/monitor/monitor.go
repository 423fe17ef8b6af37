// Package monitor implements the CPU sampler, memory gauge, and system-info
// probes of spec §6/§9: capability interfaces resolved once at process
// start, platform-specific where the platform offers one, and a portable
// fallback everywhere else so the sweep never crashes for lack of /proc.
package monitor

// CPUSampler measures CPU usage averaged across all cores over a window
// delimited by Start and UsagePercent, spec §4.8 steps 4/7.
type CPUSampler interface {
	Start()
	UsagePercent() float64
}

// MemoryGauge reports process and system memory figures in MB.
type MemoryGauge interface {
	ResidentMB() uint64
	TotalSystemMB() uint64
}

// SystemInfo reports static host facts used in the benchmark header.
type SystemInfo interface {
	CPUName() string
	ThreadCount() int
}

// New resolves the best available implementation for the current platform.
// Linux gets /proc-backed samplers, which report zero (or "Unknown CPU")
// when a read fails; every other platform gets a runtime-only implementation
// that stays functional without crashing the sweep, per spec.md §9's
// "capability interfaces" design note.
func New() (CPUSampler, MemoryGauge, SystemInfo) {
	return newPlatform()
}
