package directory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/levinOo/go-logstats-project/internal/identity"
	"github.com/levinOo/go-logstats-project/internal/stats"
)

// DefaultNamespace задаёт префикс имён метрик Prometheus.
const DefaultNamespace = "logstats"

// Prometheus публикует фасады статистики в реестре Prometheus. Каждая
// идентичность становится отдельным коллектором с постоянными метками
// domain и metric; семейства метрик общие для всех идентичностей.
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string

	mu         sync.Mutex
	collectors map[identity.ID]prometheus.Collector
}

// NewPrometheus создаёт каталог поверх reg. Пустой namespace заменяется DefaultNamespace.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Prometheus{
		reg:        reg,
		namespace:  namespace,
		collectors: make(map[identity.ID]prometheus.Collector),
	}
}

// Register регистрирует коллектор для id.
func (p *Prometheus) Register(id identity.ID, s *stats.Stats) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.collectors[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}

	c := newStatsCollector(p.namespace, id, s)
	if err := p.reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
		}
		return fmt.Errorf("failed to register %s: %w", id, err)
	}

	p.collectors[id] = c
	return nil
}

// Unregister удаляет коллектор id из реестра.
func (p *Prometheus) Unregister(id identity.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.collectors[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(p.collectors, id)

	if !p.reg.Unregister(c) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type statDesc struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(s stats.Snapshot) float64
}

type statsCollector struct {
	source *stats.Stats
	descs  []statDesc
}

func newStatsCollector(namespace string, id identity.ID, s *stats.Stats) *statsCollector {
	labels := prometheus.Labels{"domain": id.Domain(), "metric": id.String()}

	gauge := func(name, help string, value func(stats.Snapshot) float64) statDesc {
		return statDesc{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, labels),
			kind:  prometheus.GaugeValue,
			value: value,
		}
	}

	descs := []statDesc{
		gauge("window_count", "Number of samples in the sliding window.", func(s stats.Snapshot) float64 { return float64(s.Count) }),
		gauge("window_avg", "Average of samples in the sliding window.", func(s stats.Snapshot) float64 { return s.Avg }),
		gauge("window_stddev", "Population standard deviation of samples in the sliding window.", func(s stats.Snapshot) float64 { return s.StdDev }),
		gauge("window_min", "Minimum sample in the sliding window.", func(s stats.Snapshot) float64 { return s.Min }),
		gauge("window_max", "Maximum sample in the sliding window.", func(s stats.Snapshot) float64 { return s.Max }),
		gauge("window_rate", "Samples per second in the sliding window.", func(s stats.Snapshot) float64 { return s.Rate }),
		gauge("window_seconds", "Age of the oldest sample in the sliding window.", func(s stats.Snapshot) float64 { return s.Window }),
		gauge("lifetime_min", "Minimum sample since the metric was created.", func(s stats.Snapshot) float64 { return s.LifetimeMin }),
		gauge("lifetime_max", "Maximum sample since the metric was created.", func(s stats.Snapshot) float64 { return s.LifetimeMax }),
		{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "lifetime_count_total"), "Number of samples since the metric was created.", nil, labels),
			kind:  prometheus.CounterValue,
			value: func(s stats.Snapshot) float64 { return float64(s.LifetimeCount) },
		},
		gauge("lifetime_sum", "Sum of samples since the metric was created.", func(s stats.Snapshot) float64 {
			f, _ := s.LifetimeSum.Float64()
			return f
		}),
	}

	return &statsCollector{source: s, descs: descs}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d.desc
	}
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Snapshot()
	for _, d := range c.descs {
		m, err := prometheus.NewConstMetric(d.desc, d.kind, d.value(snap))
		if err != nil {
			ch <- prometheus.NewInvalidMetric(d.desc, err)
			continue
		}
		ch <- m
	}
}
