package sweep

import (
	"errors"
	"reflect"
	"testing"

	"github.com/developer0hye/video-decode-bench/internal/result"
)

func TestStreamCounts(t *testing.T) {
	cases := []struct {
		max  int
		want []int
	}{
		{1, []int{1}},
		{8, []int{1, 2, 4, 8}},
		{16, []int{1, 2, 4, 8, 12, 16}},
		{30, []int{1, 2, 4, 8, 12, 16, 20, 24, 28, 30}},
	}
	for _, tc := range cases {
		got := StreamCounts(tc.max)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("StreamCounts(%d) = %v, want %v", tc.max, got, tc.want)
		}
	}
}

// passUpTo returns a Runner that passes for every count <= threshold and
// fails above it, grounded on end-to-end scenario 2 of spec §8.
func passUpTo(threshold int) Runner {
	return func(count int) (result.StreamTestResult, error) {
		return result.StreamTestResult{
			StreamCount: count,
			Passed:      count <= threshold,
		}, nil
	}
}

func TestRunBinarySearchesAfterFirstFailure(t *testing.T) {
	// Coarse schedule for max=8 is 1,2,4,8. A decoder that sustains exactly
	// 3 concurrent streams fails first at 4; the gap (3) must be probed by
	// binary search between last_passing=2 and the failing point=4.
	runner := passUpTo(3)
	var seen []int
	progress := func(r result.StreamTestResult) { seen = append(seen, r.StreamCount) }

	maxStreams, results, err := Run(8, runner, progress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxStreams != 3 {
		t.Fatalf("max_streams = %d, want 3", maxStreams)
	}

	wantOrder := []int{1, 2, 4, 3}
	if !reflect.DeepEqual(seen, wantOrder) {
		t.Fatalf("evaluation order = %v, want %v", seen, wantOrder)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 evaluated points, got %d", len(results))
	}
}

func TestRunAllPass(t *testing.T) {
	runner := passUpTo(1000)
	maxStreams, _, err := Run(8, runner, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxStreams != 8 {
		t.Fatalf("max_streams = %d, want 8 (max_streams itself is always included)", maxStreams)
	}
}

func TestRunAbortsOnHarnessError(t *testing.T) {
	wantErr := errors.New("source open failed")
	runner := func(count int) (result.StreamTestResult, error) {
		if count == 4 {
			return result.StreamTestResult{}, wantErr
		}
		return result.StreamTestResult{StreamCount: count, Passed: true}, nil
	}

	_, _, err := Run(8, runner, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected sweep to surface the harness error, got %v", err)
	}
}
