// Package audit реализует аудит публикации метрик.
// Использует паттерн Observer: задача сверки уведомляет Auditer о каждой
// успешной регистрации и снятии метрики, а тот в фоне передаёт событие всем
// подписчикам (файл, HTTP endpoint).
package audit

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mailru/easyjson"
	"go.uber.org/zap"

	"github.com/levinOo/go-logstats-project/internal/models"
)

// Observer определяет интерфейс наблюдателя для системы аудита.
type Observer interface {
	// RegisterClient добавляет нового подписчика для получения уведомлений.
	RegisterClient(Consumer)

	// Notify отправляет событие всем зарегистрированным подписчикам.
	Notify(models.Event)
}

// Consumer определяет интерфейс потребителя событий аудита.
type Consumer interface {
	// Update обрабатывает событие аудита.
	Update(data models.Event) error
}

// DefaultQueueSize задаёт ёмкость очереди событий Auditer.
const DefaultQueueSize = 1024

// Auditer координирует отправку событий аудита зарегистрированным подписчикам.
// Notify только ставит событие в очередь; подписчики вызываются фоновой
// горутиной по порядку. Ошибки подписчиков только логируются.
type Auditer struct {
	mu      sync.RWMutex
	clients []Consumer
	logger  *zap.SugaredLogger

	queueMu sync.RWMutex
	closed  bool
	events  chan models.Event
	done    chan struct{}
}

// NewAuditer создаёт Auditer без подписчиков и запускает доставку событий.
// Неположительный queueSize заменяется DefaultQueueSize.
func NewAuditer(logger *zap.SugaredLogger, queueSize int) *Auditer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	a := &Auditer{
		logger: logger,
		events: make(chan models.Event, queueSize),
		done:   make(chan struct{}),
	}
	go a.deliver()
	return a
}

// RegisterClient добавляет нового подписчика в список получателей уведомлений.
func (a *Auditer) RegisterClient(o Consumer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clients = append(a.clients, o)
}

// Len возвращает число подписчиков.
func (a *Auditer) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.clients)
}

// Notify ставит событие в очередь и не блокируется. При переполненной
// очереди или после Close событие отбрасывается с предупреждением.
func (a *Auditer) Notify(data models.Event) {
	a.queueMu.RLock()
	defer a.queueMu.RUnlock()

	if a.closed {
		a.logger.Warnw("Audit event after close dropped", "action", data.Action, "metric", data.Metric)
		return
	}

	select {
	case a.events <- data:
	default:
		a.logger.Warnw("Audit queue is full, event dropped", "action", data.Action, "metric", data.Metric)
	}
}

// Close прекращает приём событий и дожидается доставки уже поставленных
// в очередь. Повторный вызов ничего не делает.
func (a *Auditer) Close() {
	a.queueMu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.queueMu.Unlock()

	<-a.done
}

func (a *Auditer) deliver() {
	defer close(a.done)

	for data := range a.events {
		a.mu.RLock()
		clients := a.clients
		a.mu.RUnlock()

		for _, client := range clients {
			if err := client.Update(data); err != nil {
				a.logger.Errorw("Audit delivery failed", "action", data.Action, "metric", data.Metric, "error", err)
			}
		}
	}
}

// FileAuditer дописывает события аудита в файл, по одному JSON-объекту на строку.
type FileAuditer struct {
	mu   sync.Mutex
	path string
}

// NewFileAuditer создаёт FileAuditer для записи в указанный файл.
func NewFileAuditer(path string) *FileAuditer {
	return &FileAuditer{
		path: path,
	}
}

// Update дописывает событие в конец файла, создавая файл при необходимости.
func (a *FileAuditer) Update(data models.Event) error {
	jsonData, err := easyjson.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit file %s: %w", a.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write audit file %s: %w", a.path, err)
	}
	return nil
}

// URLAuditer отправляет события аудита на внешний HTTP endpoint.
type URLAuditer struct {
	url    string
	client *resty.Client
}

// NewURLAuditer создаёт URLAuditer для отправки на указанный URL.
func NewURLAuditer(url string) *URLAuditer {
	return &URLAuditer{
		url:    url,
		client: resty.New().SetTimeout(5 * time.Second),
	}
}

// Update отправляет событие методом POST с Content-Type: application/json.
func (a *URLAuditer) Update(data models.Event) error {
	jsonData, err := easyjson.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	resp, err := a.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(jsonData).
		Post(a.url)
	if err != nil {
		return fmt.Errorf("audit request to %s failed: %w", a.url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("audit endpoint %s responded with %s", a.url, resp.Status())
	}
	return nil
}

// New создаёт Auditer с подписчиками для непустых path и url.
// Если оба параметра пусты, возвращает nil.
func New(path, url string, logger *zap.SugaredLogger) *Auditer {
	if path == "" && url == "" {
		return nil
	}

	a := NewAuditer(logger, DefaultQueueSize)
	if path != "" {
		a.RegisterClient(NewFileAuditer(path))
	}
	if url != "" {
		a.RegisterClient(NewURLAuditer(url))
	}
	return a
}
