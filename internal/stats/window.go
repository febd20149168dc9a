package stats

import (
	"math"

	"github.com/shopspring/decimal"
)

// Snapshot содержит результат Analyze: статистику скользящего окна и агрегаты за время жизни.
// Времена указаны в миллисекундах Unix, Window в секундах, Rate в значениях за секунду.
type Snapshot struct {
	Description string
	Timestamp   int64

	Count  int
	Avg    float64
	StdDev float64
	Min    float64
	Max    float64
	Rate   float64
	Window float64

	LifetimeStart     int64
	LifetimeCount     int64
	LifetimeSum       decimal.Decimal
	LifetimeSquareSum decimal.Decimal
	LifetimeCubeSum   decimal.Decimal
	LifetimeMin       float64
	LifetimeMax       float64
}

type ring struct {
	timestamps []int64
	samples    []float64
}

func (r ring) inc(idx int) int {
	return (idx + 1) % len(r.timestamps)
}

type window struct {
	count  int
	avg    float64
	stdDev float64
	min    float64
	max    float64
	rate   float64
	window float64
}

// scanWindow агрегирует значения кольца между head и tail, которые новее cut.
// Возвращает статистику окна и новый head: ведущие устаревшие слоты пропускаются.
// Кольцо не изменяется.
func scanWindow(r ring, head, tail int, cut, now int64) (window, int) {
	w := window{
		avg:    math.NaN(),
		stdDev: math.NaN(),
		min:    math.NaN(),
		max:    math.NaN(),
		rate:   math.NaN(),
		window: math.NaN(),
	}

	newHead := head
	start := int64(0)
	total := 0.0

	for n := head; n != tail; n = r.inc(n) {
		if r.timestamps[n] <= cut {
			if w.count == 0 {
				newHead = r.inc(n)
			}
			continue
		}

		if w.count == 0 {
			start = r.timestamps[n]
		}
		w.count++

		v := r.samples[n]
		total += v
		if math.IsNaN(w.max) || v > w.max {
			w.max = v
		}
		if math.IsNaN(w.min) || v < w.min {
			w.min = v
		}
	}

	if w.count == 0 {
		return w, newHead
	}

	span := float64(now - start)
	w.avg = total / float64(w.count)
	w.window = span / msPerSecond

	if w.count > 2 {
		if span > 0 {
			w.rate = msPerSecond * float64(w.count) / span
		}

		sq := 0.0
		for n := newHead; n != tail; n = r.inc(n) {
			if r.timestamps[n] > cut {
				dv := w.avg - r.samples[n]
				sq += dv * dv
			}
		}
		w.stdDev = math.Sqrt(sq / float64(w.count))
	}

	return w, newHead
}
