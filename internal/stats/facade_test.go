package stats

import (
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"
)

func TestStatsCachesSnapshot(t *testing.T) {
	clk := clocktesting.NewFakeClock(t0)
	b := NewBucket(Options{BufferSize: 8, Clock: clk, Generation: 3})
	s := NewStats(b, 100*time.Millisecond, clk)

	b.Append(t0, 1)
	if got := s.Snapshot().Count; got != 1 {
		t.Fatalf("expected count 1, got %d", got)
	}

	b.Append(t0, 2)
	clk.Step(50 * time.Millisecond)
	if got := s.Snapshot().Count; got != 1 {
		t.Errorf("expected cached count 1, got %d", got)
	}

	clk.Step(50 * time.Millisecond)
	if got := s.Snapshot().Count; got != 2 {
		t.Errorf("expected refreshed count 2, got %d", got)
	}

	if s.Generation() != 3 || s.Bucket() != b {
		t.Error("expected facade to expose its bucket and generation")
	}
}

func TestStatsDefaultInterval(t *testing.T) {
	s := NewStats(NewBucket(Options{BufferSize: 1}), 0, nil)
	if s.cacheInterval != DefaultCacheInterval {
		t.Errorf("expected default interval, got %v", s.cacheInterval)
	}
}
