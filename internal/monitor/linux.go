//go:build linux

package monitor

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

func newPlatform() (CPUSampler, MemoryGauge, SystemInfo) {
	return &linuxCPUSampler{}, &linuxMemoryGauge{}, &linuxSystemInfo{}
}

// cpuStats mirrors /proc/stat's aggregate "cpu" line, grounded on
// cpu_monitor_linux.cpp's CpuStats.
type cpuStats struct {
	user, nice, system, idle, iowait, irq, softirq, steal uint64
}

func (s cpuStats) totalActive() uint64 {
	return s.user + s.nice + s.system + s.irq + s.softirq + s.steal
}

func (s cpuStats) totalIdle() uint64 { return s.idle + s.iowait }
func (s cpuStats) total() uint64     { return s.totalActive() + s.totalIdle() }

func readCPUStats() cpuStats {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return cpuStats{}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return cpuStats{}
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 9 || fields[0] != "cpu" {
		return cpuStats{}
	}

	vals := make([]uint64, 8)
	for i := 0; i < 8; i++ {
		vals[i], _ = strconv.ParseUint(fields[i+1], 10, 64)
	}
	return cpuStats{
		user: vals[0], nice: vals[1], system: vals[2], idle: vals[3],
		iowait: vals[4], irq: vals[5], softirq: vals[6], steal: vals[7],
	}
}

type linuxCPUSampler struct {
	start cpuStats
}

func (s *linuxCPUSampler) Start() { s.start = readCPUStats() }

func (s *linuxCPUSampler) UsagePercent() float64 {
	current := readCPUStats()
	totalDiff := current.total() - s.start.total()
	if totalDiff == 0 {
		return 0
	}
	idleDiff := current.totalIdle() - s.start.totalIdle()
	return 100.0 * (1.0 - float64(idleDiff)/float64(totalDiff))
}

type linuxMemoryGauge struct{}

func (linuxMemoryGauge) ResidentMB() uint64 {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "VmRSS:") {
			kb := parseKBField(line[len("VmRSS:"):])
			return kb / 1024
		}
	}
	return 0
}

func (linuxMemoryGauge) TotalSystemMB() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err == nil && info.Totalram > 0 {
		return uint64(info.Totalram) * uint64(info.Unit) / (1024 * 1024)
	}
	return 0
}

func parseKBField(s string) uint64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	kb, _ := strconv.ParseUint(fields[0], 10, 64)
	return kb
}

type linuxSystemInfo struct{}

func (linuxSystemInfo) CPUName() string {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return "Unknown CPU"
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "model name") {
			if idx := strings.Index(line, ":"); idx >= 0 {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return "Unknown CPU"
}

func (linuxSystemInfo) ThreadCount() int {
	n := runtime.NumCPU()
	if n <= 0 {
		return 1
	}
	return n
}
