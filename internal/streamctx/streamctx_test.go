package streamctx

import (
	"testing"
	"time"

	"github.com/developer0hye/video-decode-bench/internal/result"
)

func TestAdvancePacingAheadOfSchedule(t *testing.T) {
	interval := 33 * time.Millisecond
	start := time.Now()
	c := New(0, interval)
	c.NextFrameTime = start

	// now is well before next_frame_time + interval: expect a sleep.
	now := start.Add(5 * time.Millisecond)
	sleep := c.AdvancePacing(now)

	wantNext := start.Add(interval)
	if !c.NextFrameTime.Equal(wantNext) {
		t.Fatalf("next_frame_time = %v, want %v (unconditional advance)", c.NextFrameTime, wantNext)
	}
	if sleep <= 0 {
		t.Fatalf("expected a positive sleep duration when ahead of schedule, got %v", sleep)
	}
	if c.LagCount != 0 {
		t.Fatalf("expected no lag recorded, got lag_count=%d", c.LagCount)
	}
}

func TestAdvancePacingLagResets(t *testing.T) {
	interval := 10 * time.Millisecond
	start := time.Now()
	c := New(0, interval)
	c.NextFrameTime = start

	// now is far past next_frame_time + interval + tolerance: expect lag reset.
	now := start.Add(100 * time.Millisecond)
	sleep := c.AdvancePacing(now)

	if sleep != 0 {
		t.Fatalf("expected zero sleep on lag reset, got %v", sleep)
	}
	if c.LagCount != 1 {
		t.Fatalf("expected lag_count=1, got %d", c.LagCount)
	}
	if !c.NextFrameTime.Equal(now) {
		t.Fatalf("expected next_frame_time reset to now on lag, got %v want %v", c.NextFrameTime, now)
	}
	if c.MaxLagMs <= 0 {
		t.Fatalf("expected max_lag_ms to be recorded, got %v", c.MaxLagMs)
	}
}

func TestAdvancePacingWithinTolerance(t *testing.T) {
	interval := 10 * time.Millisecond
	start := time.Now()
	c := New(0, interval)
	c.NextFrameTime = start

	// now lands exactly on the advanced next_frame_time: no lag, no sleep.
	now := start.Add(interval)
	sleep := c.AdvancePacing(now)

	if sleep != 0 {
		t.Fatalf("expected zero sleep when exactly on schedule, got %v", sleep)
	}
	if c.LagCount != 0 {
		t.Fatalf("expected no lag within tolerance, got lag_count=%d", c.LagCount)
	}
}

func TestRecordFramePublishesEveryBatch(t *testing.T) {
	c := New(0, time.Millisecond)

	for i := 0; i < batchSize-1; i++ {
		if boundary := c.RecordFrame(); boundary {
			t.Fatalf("unexpected publish boundary at frame %d", i+1)
		}
	}
	if c.FramesDecoded.Load() != 0 {
		t.Fatalf("FramesDecoded should not publish before a full batch")
	}

	if boundary := c.RecordFrame(); !boundary {
		t.Fatalf("expected publish boundary at frame %d", batchSize)
	}
	if got := c.FramesDecoded.Load(); got != batchSize {
		t.Fatalf("FramesDecoded = %d, want %d", got, batchSize)
	}
}

func TestPublishFinalSyncsPartialBatch(t *testing.T) {
	c := New(0, time.Millisecond)
	for i := 0; i < batchSize/2; i++ {
		c.RecordFrame()
	}
	if c.FramesDecoded.Load() != 0 {
		t.Fatalf("partial batch should not have published yet")
	}

	c.PublishFinal()
	if got := c.FramesDecoded.Load(); got != batchSize/2 {
		t.Fatalf("PublishFinal did not sync worker-local total, got %d want %d", got, batchSize/2)
	}
}

func TestTryClaimExcludesSecondWorker(t *testing.T) {
	c := New(0, time.Millisecond)
	if !c.TryClaim() {
		t.Fatalf("first TryClaim should succeed")
	}
	if c.TryClaim() {
		t.Fatalf("second TryClaim should fail while claimed")
	}
	c.Release()
	if !c.TryClaim() {
		t.Fatalf("TryClaim should succeed again after Release")
	}
}

func TestSetErrorMarksFinished(t *testing.T) {
	c := New(0, time.Millisecond)
	c.SetError(result.ErrorKindDecode, "boom")

	if !c.HasError() {
		t.Fatalf("expected HasError true after SetError")
	}
	if !c.Finished() {
		t.Fatalf("expected Finished true after SetError")
	}
	if c.ErrorKind() != result.ErrorKindDecode {
		t.Fatalf("expected ErrorKind decode, got %v", c.ErrorKind())
	}
	if c.ErrorMessage() != "boom" {
		t.Fatalf("expected error message 'boom', got %q", c.ErrorMessage())
	}
}
