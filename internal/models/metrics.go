// Package models содержит структуры данных, которые передаются между сервисом
// и внешним миром: JSON-представление статистики метрики и события аудита.
// Кодеки easyjson лежат в metrics_easyjson.go.
package models

//go:generate easyjson -all metrics.go

import (
	"math"

	"github.com/levinOo/go-logstats-project/internal/stats"
)

// Действия, фиксируемые событиями аудита.
const (
	// ActionRegister означает, что идентичность опубликована во внешнем каталоге.
	ActionRegister = "register"

	// ActionUnregister означает, что идентичность снята с публикации.
	ActionUnregister = "unregister"
)

// SnapshotList содержит список снимков для пакетной отправки.
type SnapshotList struct {
	// List содержит снимки всех живых идентичностей.
	List []Snapshot `json:"metrics"`
}

// Snapshot содержит JSON-представление статистики одной идентичности.
// Поля окна, не определённые для текущего числа значений, равны nil и не сериализуются.
type Snapshot struct {
	// ID содержит каноническое имя идентичности метрики.
	ID string `json:"id"`

	// Description содержит описание метрики из правил.
	Description string `json:"description,omitempty"`

	// Timestamp хранит момент построения снимка в миллисекундах Unix.
	Timestamp int64 `json:"ts"`

	// Count хранит число значений в скользящем окне.
	Count int `json:"count"`

	Avg    *float64 `json:"avg,omitempty"`
	StdDev *float64 `json:"stddev,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	// Rate измеряется в значениях за секунду.
	Rate *float64 `json:"rate,omitempty"`
	// Window хранит длительность окна в секундах.
	Window *float64 `json:"window,omitempty"`

	// LifetimeStart хранит момент создания ведра в миллисекундах Unix.
	LifetimeStart int64 `json:"lifetime_start"`
	LifetimeCount int64 `json:"lifetime_count"`

	// Суммы за время жизни передаются строками без потери точности.
	LifetimeSum       string   `json:"lifetime_sum"`
	LifetimeSquareSum string   `json:"lifetime_square_sum"`
	LifetimeCubeSum   string   `json:"lifetime_cube_sum"`
	LifetimeMin       *float64 `json:"lifetime_min,omitempty"`
	LifetimeMax       *float64 `json:"lifetime_max,omitempty"`
}

// NewSnapshot строит JSON-представление снимка ведра с именем id.
func NewSnapshot(id string, s stats.Snapshot) Snapshot {
	return Snapshot{
		ID:                id,
		Description:       s.Description,
		Timestamp:         s.Timestamp,
		Count:             s.Count,
		Avg:               defined(s.Avg),
		StdDev:            defined(s.StdDev),
		Min:               defined(s.Min),
		Max:               defined(s.Max),
		Rate:              defined(s.Rate),
		Window:            defined(s.Window),
		LifetimeStart:     s.LifetimeStart,
		LifetimeCount:     s.LifetimeCount,
		LifetimeSum:       s.LifetimeSum.String(),
		LifetimeSquareSum: s.LifetimeSquareSum.String(),
		LifetimeCubeSum:   s.LifetimeCubeSum.String(),
		LifetimeMin:       defined(s.LifetimeMin),
		LifetimeMax:       defined(s.LifetimeMax),
	}
}

func defined(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Event представляет событие аудита публикации метрики.
type Event struct {
	// TS содержит временную метку события в формате Unix timestamp.
	TS int64 `json:"ts"`

	// Action принимает ActionRegister или ActionUnregister.
	Action string `json:"action"`

	// Metric содержит каноническое имя идентичности.
	Metric string `json:"metric"`

	// Generation хранит поколение ведра, опубликованного под этим именем.
	Generation uint64 `json:"generation,omitempty"`
}

// Reset очищает событие для повторного использования.
func (e *Event) Reset() {
	e.TS = 0
	e.Action = ""
	e.Metric = ""
	e.Generation = 0
}

// IngestResult содержит ответ на приём строк журнала.
type IngestResult struct {
	// Lines содержит число обработанных строк.
	Lines int `json:"lines"`
}
