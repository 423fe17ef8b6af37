// Package sweep implements the sweep controller of spec §4.9 (C8): the
// ascending coarse schedule, pass/fail tracking, and binary search after
// the first failure, grounded on benchmark_runner.cpp's getStreamCountsToTest
// and BenchmarkRunner::run.
package sweep

import (
	"sort"

	"github.com/developer0hye/video-decode-bench/internal/result"
)

// Coarse schedule constants, grounded on benchmark_runner.cpp's anonymous
// namespace: powers of two up to 16, an extra probe at 12, then linear steps
// of 4 from 20 up to maxStreams.
const (
	powerOfTwoMax   = 16
	extraStep       = 12
	linearStepSize  = 4
	linearStepStart = 20
)

// StreamCounts returns the ascending sequence of stream counts to test for
// a sweep bounded by maxStreams, always including maxStreams itself.
func StreamCounts(maxStreams int) []int {
	if maxStreams < 1 {
		return nil
	}

	seen := make(map[int]bool)
	var counts []int
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			counts = append(counts, n)
		}
	}

	for n := 1; n <= powerOfTwoMax && n <= maxStreams; n *= 2 {
		add(n)
	}
	if maxStreams >= extraStep {
		add(extraStep)
	}
	for n := linearStepStart; n <= maxStreams; n += linearStepSize {
		add(n)
	}
	add(maxStreams)

	sort.Ints(counts)
	return counts
}

// Runner is the single point-evaluation callback the controller drives.
// Implementations run one full harness cycle for count and return its
// result.
type Runner func(count int) (result.StreamTestResult, error)

// ProgressFunc is called once per evaluated point, coarse or binary-search,
// in evaluation order.
type ProgressFunc func(result.StreamTestResult)

// Run drives runner across StreamCounts(maxStreams), tracking the highest
// passing count and binary-searching the gap after the first failure, per
// spec §4.9. It returns the final max_streams and the full ordered list of
// evaluated results, or the first harness error encountered (which aborts
// the sweep immediately, per spec §4.9's "any harness-reported error
// aborts" rule).
func Run(maxStreams int, runner Runner, progress ProgressFunc) (int, []result.StreamTestResult, error) {
	counts := StreamCounts(maxStreams)

	lastPassing := 0
	var results []result.StreamTestResult

	evaluate := func(count int) (result.StreamTestResult, error) {
		r, err := runner(count)
		if err != nil {
			return result.StreamTestResult{}, err
		}
		results = append(results, r)
		if progress != nil {
			progress(r)
		}
		return r, nil
	}

	for _, count := range counts {
		r, err := evaluate(count)
		if err != nil {
			return lastPassing, results, err
		}

		if r.Passed {
			lastPassing = count
			continue
		}

		// First failure: binary-search the gap between the last passing
		// point and this failing point, if one exists.
		if lastPassing > 0 && count-lastPassing > 1 {
			low, high := lastPassing+1, count-1
			for low <= high {
				mid := low + (high-low)/2
				midResult, err := evaluate(mid)
				if err != nil {
					return lastPassing, results, err
				}
				if midResult.Passed {
					lastPassing = mid
					low = mid + 1
				} else {
					high = mid - 1
				}
			}
		}
		break
	}

	return lastPassing, results, nil
}
