// Package processor превращает строки лога в значения метрик.
//
// LineProcessor прогоняет каждую строку через таблицу шаблонов. Для каждого
// совпавшего шаблона каждое прикреплённое правило (Reporter) строит
// идентичность метрики из полей совпадения и констант, разбирает значение и
// передаёт его в Recorder. Ошибки отдельных строк и правил уходят в
// logger.Sink и никогда не прерывают обработку.
package processor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/levinOo/go-logstats-project/internal/grok"
	"github.com/levinOo/go-logstats-project/internal/identity"
	"github.com/levinOo/go-logstats-project/internal/logger"
	"github.com/levinOo/go-logstats-project/internal/pool"
	"github.com/levinOo/go-logstats-project/internal/repository"
	"github.com/levinOo/go-logstats-project/internal/rules"
)

// Значения по умолчанию для правил без явных размера буфера и глубины окна.
const (
	DefaultBufferSize = 512
	DefaultTimeDepth  = 30 * time.Second
)

// ConfigError описывает некорректное правило: шаблон, имя метрики и причину.
type ConfigError struct {
	Pattern string
	Metric  string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Metric == "" {
		return fmt.Sprintf("configuration error in pattern %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("configuration error in metric %q (pattern %q): %v", e.Metric, e.Pattern, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrNotFinite означает, что значение разобрано, но равно NaN или бесконечности.
var ErrNotFinite = errors.New("value is not finite")

// ParseError возвращается, когда значение метрики не является конечным числом.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("value %q is not a number: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options задаёт значения по умолчанию для правил.
type Options struct {
	// BufferSize используется правилами, в которых размер окна не задан.
	BufferSize int
	// TimeDepth используется правилами, в которых глубина окна не задана.
	// Отрицательное значение отключает вытеснение по времени для таких правил.
	TimeDepth time.Duration
}

// LineProcessor обрабатывает строки лога. Безопасен для конкурентного вызова Process.
type LineProcessor struct {
	lib      *grok.Library
	table    *MatcherTable
	recorder repository.Recorder
	sink     logger.Sink
	scratch  *pool.Pool[varState]

	defaultBufferSize int
	defaultTimeDepth  time.Duration
}

// New создаёт обработчик. Нулевые поля opts заменяются DefaultBufferSize и DefaultTimeDepth;
// nil sink заменяется logger.NopSink.
func New(lib *grok.Library, recorder repository.Recorder, sink logger.Sink, opts Options) *LineProcessor {
	if sink == nil {
		sink = logger.NopSink{}
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.TimeDepth == 0 {
		opts.TimeDepth = DefaultTimeDepth
	}

	return &LineProcessor{
		lib:      lib,
		table:    NewMatcherTable(lib),
		recorder: recorder,
		sink:     sink,
		scratch: pool.New[varState](func() varState {
			return make(varState)
		}),
		defaultBufferSize: opts.BufferSize,
		defaultTimeDepth:  opts.TimeDepth,
	}
}

// Table возвращает таблицу шаблонов обработчика.
func (p *LineProcessor) Table() *MatcherTable {
	return p.table
}

// AddReporter прикрепляет правило к шаблону pattern (регулярное выражение со
// ссылками %{...}). Отрицательные bufferSize и timeDepth заменяются значениями
// по умолчанию. Все ошибки имеют тип *ConfigError.
func (p *LineProcessor) AddReporter(pattern string, vars []rules.Var, template, valueVar, description string, bufferSize int, timeDepth time.Duration) error {
	if bufferSize < 0 {
		bufferSize = p.defaultBufferSize
	}
	if bufferSize == 0 {
		return &ConfigError{Pattern: pattern, Metric: template, Err: fmt.Errorf("buffer size must be positive")}
	}
	if timeDepth < 0 {
		timeDepth = p.defaultTimeDepth
	}

	r, err := NewReporter(vars, template, valueVar, description, bufferSize, timeDepth)
	if err != nil {
		return &ConfigError{Pattern: pattern, Metric: template, Err: err}
	}

	if err := p.table.Add(pattern, r); err != nil {
		return &ConfigError{Pattern: pattern, Metric: template, Err: err}
	}

	return nil
}

// LoadRules добавляет определения шаблонов и все правила из cfg. Ошибка
// одного правила не мешает загрузке остальных; возвращаются число
// добавленных правил и объединённая ошибка.
func (p *LineProcessor) LoadRules(cfg rules.Config) (int, error) {
	var result *multierror.Error

	for _, path := range cfg.Includes {
		if err := p.lib.AddPatternsFromFile(path); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, defs := range cfg.Patterns {
		if err := p.lib.AddPatterns(strings.NewReader(defs)); err != nil {
			result = multierror.Append(result, fmt.Errorf("inline patterns: %w", err))
		}
	}

	added := 0
	for _, m := range cfg.Match {
		pattern, err := m.Regex()
		if err != nil {
			result = multierror.Append(result, &ConfigError{Pattern: m.Pattern, Err: err})
			continue
		}

		for _, metric := range m.Metrics {
			depth, err := metric.TimeDepthOrDefault()
			if err != nil {
				result = multierror.Append(result, &ConfigError{Pattern: m.Pattern, Metric: metric.Name, Err: err})
				continue
			}

			err = p.AddReporter(pattern, m.Vars, metric.Name, metric.Report, metric.Description, metric.BufferSizeOrDefault(), depth)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			added++
		}
	}

	return added, result.ErrorOrNil()
}

// Process обрабатывает одну строку с меткой времени ts.
func (p *LineProcessor) Process(ts time.Time, line string) {
	for _, e := range p.table.view() {
		fields, ok := e.matcher.Match(line)
		if !ok {
			continue
		}

		for _, r := range e.reporters {
			p.report(ts, line, r, fields)
		}
	}
}

func (p *LineProcessor) report(ts time.Time, line string, r *Reporter, fields grok.Fields) {
	vars := p.scratch.Get()
	defer p.scratch.Put(vars)

	r.resolve(fields, vars)

	id, err := identity.Instantiate(r.template, vars)
	if err != nil {
		p.sink.Report(fmt.Sprintf("failed to instantiate metric name [%s] for line: %s", r.template, line), err)
		return
	}

	raw := vars[r.valueVar]
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		p.sink.Report(fmt.Sprintf("reporting error for line: %s", line), &ParseError{Value: raw, Err: err})
		return
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		p.sink.Report(fmt.Sprintf("reporting error for line: %s", line), &ParseError{Value: raw, Err: ErrNotFinite})
		return
	}

	p.recorder.RecordSample(id, r.description, r.bufferSize, r.timeDepth, ts, value)
}
