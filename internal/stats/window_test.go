package stats

import (
	"math"
	"testing"
)

func TestScanWindowSkipsExpiredPrefix(t *testing.T) {
	r := ring{
		timestamps: []int64{10, 20, 30, 40, 0},
		samples:    []float64{1, 2, 3, 4, 0},
	}

	w, head := scanWindow(r, 0, 4, 20, 50)

	if head != 2 {
		t.Errorf("expected head to advance to 2, got %d", head)
	}
	if w.count != 2 || w.min != 3 || w.max != 4 || w.avg != 3.5 {
		t.Errorf("unexpected window: %+v", w)
	}
	if w.window != 0.02 {
		t.Errorf("expected span of 20ms, got %v", w.window)
	}
}

func TestScanWindowWrapsAround(t *testing.T) {
	r := ring{
		timestamps: []int64{40, 50, 0, 20, 30},
		samples:    []float64{4, 5, 0, 2, 3},
	}

	w, head := scanWindow(r, 3, 2, math.MinInt64, 50)

	if head != 3 {
		t.Errorf("expected head unchanged, got %d", head)
	}
	if w.count != 4 || w.min != 2 || w.max != 5 {
		t.Errorf("unexpected window: %+v", w)
	}
}

func TestScanWindowAllExpired(t *testing.T) {
	r := ring{
		timestamps: []int64{10, 20, 0},
		samples:    []float64{1, 2, 0},
	}

	w, head := scanWindow(r, 0, 2, 100, 200)

	if head != 2 {
		t.Errorf("expected head to reach tail, got %d", head)
	}
	if w.count != 0 || !math.IsNaN(w.avg) {
		t.Errorf("expected empty window, got %+v", w)
	}
}

func TestScanWindowZeroSpanHasNoRate(t *testing.T) {
	r := ring{
		timestamps: []int64{50, 50, 50, 0},
		samples:    []float64{1, 2, 3, 0},
	}

	w, _ := scanWindow(r, 0, 3, 0, 50)

	if w.count != 3 {
		t.Fatalf("expected 3 samples, got %d", w.count)
	}
	if !math.IsNaN(w.rate) {
		t.Errorf("expected NaN rate for zero span, got %v", w.rate)
	}
	if w.window != 0 {
		t.Errorf("expected zero window, got %v", w.window)
	}
}
