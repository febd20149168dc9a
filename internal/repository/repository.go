// Package repository хранит вёдра статистики по идентичностям метрик.
// Реестр ограничен по размеру: при вставке новой идентичности в заполненный
// реестр вытесняется та, в которую дольше всего не записывались значения.
package repository

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"k8s.io/utils/clock"

	"github.com/levinOo/go-logstats-project/internal/identity"
	"github.com/levinOo/go-logstats-project/internal/stats"
)

// DefaultBucketLimit ограничивает число живых идентичностей по умолчанию.
const DefaultBucketLimit = 1000

// ErrNotFound возвращается, когда идентичность отсутствует в реестре.
var ErrNotFound = errors.New("metric not found")

// Recorder принимает значения для идентичностей метрик.
type Recorder interface {
	RecordSample(id identity.ID, description string, bufferSize int, timeDepth time.Duration, ts time.Time, value float64)
}

// Entry хранит пару идентичность/ведро из снимка реестра.
type Entry struct {
	ID     identity.ID
	Bucket *stats.Bucket
}

// BucketRegistry хранит упорядоченное ограниченное отображение идентичность -> ведро.
// Мьютекс защищает только структуру; добавление значения выполняется под мьютексом ведра.
type BucketRegistry struct {
	mu         sync.Mutex
	buckets    *simplelru.LRU
	limit      int
	modCount   uint64
	generation uint64
	clock      clock.PassiveClock
}

// NewBucketRegistry создаёт реестр на limit идентичностей.
func NewBucketRegistry(limit int, clk clock.PassiveClock) (*BucketRegistry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("bucket limit must be positive, got %d", limit)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	buckets, err := simplelru.NewLRU(limit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket index: %w", err)
	}

	return &BucketRegistry{
		buckets: buckets,
		limit:   limit,
		clock:   clk,
	}, nil
}

// RecordSample находит или создаёт ведро идентичности и добавляет в него значение.
// Создание нового ведра увеличивает счётчик изменений; повторное обращение
// только переносит идентичность в конец порядка вытеснения.
func (r *BucketRegistry) RecordSample(id identity.ID, description string, bufferSize int, timeDepth time.Duration, ts time.Time, value float64) {
	b := r.ensureBucket(id, description, bufferSize, timeDepth)
	b.Append(ts, value)
}

func (r *BucketRegistry) ensureBucket(id identity.ID, description string, bufferSize int, timeDepth time.Duration) *stats.Bucket {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.buckets.Get(id); ok {
		return v.(*stats.Bucket)
	}

	r.generation++
	b := stats.NewBucket(stats.Options{
		ID:          id,
		Description: description,
		BufferSize:  bufferSize,
		TimeDepth:   timeDepth,
		Generation:  r.generation,
		Clock:       r.clock,
	})

	// при заполненном реестре Add вытесняет самую старую запись
	r.buckets.Add(id, b)
	r.modCount++

	return b
}

// ModCount возвращает число вставок новых идентичностей за всё время.
func (r *BucketRegistry) ModCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modCount
}

// Snapshot возвращает текущие записи от самой давно тронутой к самой свежей.
func (r *BucketRegistry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.buckets.Keys()
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		v, ok := r.buckets.Peek(k)
		if !ok {
			continue
		}
		entries = append(entries, Entry{ID: k.(identity.ID), Bucket: v.(*stats.Bucket)})
	}

	return entries
}

// Get возвращает ведро идентичности, не меняя порядок вытеснения.
func (r *BucketRegistry) Get(id identity.ID) (*stats.Bucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.buckets.Peek(id)
	if !ok {
		return nil, ErrNotFound
	}
	return v.(*stats.Bucket), nil
}

// Len возвращает число живых идентичностей.
func (r *BucketRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buckets.Len()
}

// Limit возвращает ограничение реестра.
func (r *BucketRegistry) Limit() int {
	return r.limit
}
