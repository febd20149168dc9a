// Package stats накапливает статистику по одной идентичности метрики:
// скользящее окно последних значений в кольцевом буфере и агрегаты за всё
// время жизни. Bucket изменяется только через Append и Analyze, оба метода
// защищены собственным мьютексом ведра.
package stats

import (
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"k8s.io/utils/clock"

	"github.com/levinOo/go-logstats-project/internal/identity"
)

// FlushEvery задаёт число добавлений, после которого быстрые суммы float64
// переносятся в точные десятичные аккумуляторы.
const FlushEvery = 1000

const msPerSecond = float64(time.Second / time.Millisecond)

// Bucket накапливает статистику одной идентичности.
type Bucket struct {
	mu sync.Mutex

	id          identity.ID
	description string
	generation  uint64
	clock       clock.PassiveClock

	// кольцо хранит bufferSize значений в bufferSize+1 слотах: head == tail означает пустое окно
	timestamps []int64
	samples    []float64
	head       int
	tail       int
	timeDepth  int64

	anchorTimestamp int64
	lastTimestamp   int64

	totalCount       int64
	runningSum       float64
	runningSquareSum float64
	runningCubeSum   float64
	totalSum         decimal.Decimal
	totalSquareSum   decimal.Decimal
	totalCubeSum     decimal.Decimal
	totalMin         float64
	totalMax         float64
}

// Options задаёт параметры нового ведра.
type Options struct {
	ID          identity.ID
	Description string
	BufferSize  int
	// TimeDepth задаёт глубину скользящего окна; значение <= 0 отключает вытеснение по времени.
	TimeDepth  time.Duration
	Generation uint64
	Clock      clock.PassiveClock
}

// NewBucket создаёт ведро. Момент создания фиксируется как якорь времени жизни.
func NewBucket(opts Options) *Bucket {
	size := opts.BufferSize
	if size < 1 {
		size = 1
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	now := clk.Now().UnixMilli()

	return &Bucket{
		id:              opts.ID,
		description:     opts.Description,
		generation:      opts.Generation,
		clock:           clk,
		timestamps:      make([]int64, size+1),
		samples:         make([]float64, size+1),
		timeDepth:       opts.TimeDepth.Milliseconds(),
		anchorTimestamp: now,
		lastTimestamp:   now,
		totalSum:        decimal.Zero,
		totalSquareSum:  decimal.Zero,
		totalCubeSum:    decimal.Zero,
		totalMin:        math.NaN(),
		totalMax:        math.NaN(),
	}
}

// ID возвращает идентичность ведра.
func (b *Bucket) ID() identity.ID {
	return b.id
}

// Generation возвращает номер поколения, выданный реестром при создании.
// Разные экземпляры ведра одной идентичности имеют разные поколения.
func (b *Bucket) Generation() uint64 {
	return b.generation
}

// Description возвращает описание метрики.
func (b *Bucket) Description() string {
	return b.description
}

// Capacity возвращает число значений, которое удерживает скользящее окно.
func (b *Bucket) Capacity() int {
	return len(b.timestamps) - 1
}

// Append добавляет значение. Метка времени, меньшая последней виденной,
// заменяется последней, поэтому граница окна никогда не сдвигается назад.
// При заполненном кольце самое старое значение перезаписывается.
// NaN и бесконечности не записываются.
func (b *Bucket) Append(ts time.Time, sample float64) {
	if math.IsNaN(sample) || math.IsInf(sample, 0) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCount++
	accumulate(&b.runningSum, &b.totalSum, sample, func() decimal.Decimal {
		return decimal.NewFromFloat(sample)
	})
	accumulate(&b.runningSquareSum, &b.totalSquareSum, sample*sample, func() decimal.Decimal {
		d := decimal.NewFromFloat(sample)
		return d.Mul(d)
	})
	accumulate(&b.runningCubeSum, &b.totalCubeSum, sample*sample*sample, func() decimal.Decimal {
		d := decimal.NewFromFloat(sample)
		return d.Mul(d).Mul(d)
	})
	if b.totalCount%FlushEvery == 0 {
		b.flushRunning()
	}

	if math.IsNaN(b.totalMax) || sample > b.totalMax {
		b.totalMax = sample
	}
	if math.IsNaN(b.totalMin) || sample < b.totalMin {
		b.totalMin = sample
	}

	if ms := ts.UnixMilli(); ms > b.lastTimestamp {
		b.lastTimestamp = ms
	}
	b.timestamps[b.tail] = b.lastTimestamp
	b.samples[b.tail] = sample

	b.tail = b.inc(b.tail)
	if b.tail == b.head {
		b.head = b.inc(b.head)
	}
}

// accumulate прибавляет term к быстрой сумме running. Если term или новая
// сумма выходят за пределы float64, точное слагаемое exact() сразу
// прибавляется к total, а running не меняется.
func accumulate(running *float64, total *decimal.Decimal, term float64, exact func() decimal.Decimal) {
	if next := *running + term; !math.IsInf(next, 0) && !math.IsNaN(next) {
		*running = next
		return
	}
	*total = total.Add(exact())
}

func (b *Bucket) flushRunning() {
	b.totalSum = b.totalSum.Add(decimal.NewFromFloat(b.runningSum))
	b.totalSquareSum = b.totalSquareSum.Add(decimal.NewFromFloat(b.runningSquareSum))
	b.totalCubeSum = b.totalCubeSum.Add(decimal.NewFromFloat(b.runningCubeSum))
	b.runningSum = 0
	b.runningSquareSum = 0
	b.runningCubeSum = 0
}

func (b *Bucket) inc(idx int) int {
	return (idx + 1) % len(b.timestamps)
}

// Analyze переносит быстрые суммы в точные аккумуляторы и строит снимок.
// Значения старше now-TimeDepth исключаются из окна, а head продвигается за них.
func (b *Bucket) Analyze() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.flushRunning()

	now := b.clock.Now().UnixMilli()
	cut := int64(math.MinInt64)
	if b.timeDepth > 0 {
		cut = now - b.timeDepth
	}

	w, head := scanWindow(ring{timestamps: b.timestamps, samples: b.samples}, b.head, b.tail, cut, now)
	b.head = head

	return Snapshot{
		Description: b.description,
		Timestamp:   now,

		Count:  w.count,
		Avg:    w.avg,
		StdDev: w.stdDev,
		Min:    w.min,
		Max:    w.max,
		Rate:   w.rate,
		Window: w.window,

		LifetimeStart:     b.anchorTimestamp,
		LifetimeCount:     b.totalCount,
		LifetimeSum:       b.totalSum,
		LifetimeSquareSum: b.totalSquareSum,
		LifetimeCubeSum:   b.totalCubeSum,
		LifetimeMin:       b.totalMin,
		LifetimeMax:       b.totalMax,
	}
}
