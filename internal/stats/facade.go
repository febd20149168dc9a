package stats

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// DefaultCacheInterval определяет, как долго фасад отдаёт закэшированный снимок.
const DefaultCacheInterval = 100 * time.Millisecond

// Stats предоставляет доступ только для чтения к одному ведру и кэширует
// результат Analyze на cacheInterval. Попадание в кэш не берёт мьютекс ведра.
type Stats struct {
	source        *Bucket
	clock         clock.PassiveClock
	cacheInterval time.Duration

	mu       sync.Mutex
	cachedAt time.Time
	snapshot *Snapshot
}

// NewStats создаёт фасад. Нулевой или отрицательный интервал заменяется DefaultCacheInterval.
func NewStats(source *Bucket, cacheInterval time.Duration, clk clock.PassiveClock) *Stats {
	if cacheInterval <= 0 {
		cacheInterval = DefaultCacheInterval
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &Stats{
		source:        source,
		clock:         clk,
		cacheInterval: cacheInterval,
	}
}

// Snapshot возвращает статистику, обновлённую не позднее cacheInterval назад.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.snapshot != nil && now.Sub(s.cachedAt) < s.cacheInterval {
		return *s.snapshot
	}

	snap := s.source.Analyze()
	s.snapshot = &snap
	s.cachedAt = now

	return snap
}

// Bucket возвращает ведро, над которым построен фасад.
func (s *Stats) Bucket() *Bucket {
	return s.source
}

// Generation возвращает поколение ведра.
func (s *Stats) Generation() uint64 {
	return s.source.Generation()
}
