// Package publisher сверяет живые идентичности реестра с внешним каталогом.
//
// Task периодически сравнивает содержимое реестра вёдер с тем, что было
// опубликовано ранее: новые идентичности регистрируются, пропавшие
// снимаются с публикации, а идентичность, вытесненная и созданная заново,
// перерегистрируется. Вёдра сравниваются по номеру поколения, а не по
// указателю. Вызовы каталога выполняются только на горутине задачи и
// никогда под блокировками реестра или ведра.
package publisher

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/levinOo/go-logstats-project/internal/identity"
	"github.com/levinOo/go-logstats-project/internal/logger"
	"github.com/levinOo/go-logstats-project/internal/models"
	"github.com/levinOo/go-logstats-project/internal/repository"
	"github.com/levinOo/go-logstats-project/internal/stats"
)

// Значения по умолчанию для расписания задачи.
const (
	DefaultInitialDelay = 5 * time.Second
	DefaultInterval     = 5 * time.Second
)

var (
	// ErrAlreadyRegistered возвращается каталогом, если имя уже занято.
	ErrAlreadyRegistered = errors.New("metric already registered")

	// ErrNotFound возвращается каталогом при снятии неизвестного имени.
	ErrNotFound = errors.New("metric not registered")
)

// Directory описывает внешний каталог, в котором публикуются метрики.
type Directory interface {
	// Register публикует фасад статистики под именем id.
	Register(id identity.ID, s *stats.Stats) error

	// Unregister снимает имя id с публикации.
	Unregister(id identity.ID) error
}

// Source отдаёт реестр вёдер, который сверяется с каталогом.
type Source interface {
	ModCount() uint64
	Snapshot() []repository.Entry
}

// Notifier получает события об успешной публикации и снятии метрик.
type Notifier interface {
	Notify(e models.Event)
}

// Options задаёт параметры задачи. Нулевые значения заменяются значениями по умолчанию.
type Options struct {
	InitialDelay  time.Duration
	Interval      time.Duration
	CacheInterval time.Duration
	Clock         clock.WithTicker
	Sink          logger.Sink
	Logger        *zap.SugaredLogger
	Notifier      Notifier
}

type record struct {
	generation uint64
	facade     *stats.Stats
}

// Task выполняет периодическую сверку. Проходы сериализованы мьютексом задачи.
type Task struct {
	source Source
	dir    Directory
	opts   Options

	mu        sync.Mutex
	published map[identity.ID]record
	modCount  uint64
	// synced означает, что последний проход завершился без ошибок
	synced  bool
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopCh    chan struct{}
	done      chan struct{}
}

// New создаёт задачу сверки source с каталогом dir.
func New(source Source, dir Directory, opts Options) *Task {
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.CacheInterval <= 0 {
		opts.CacheInterval = stats.DefaultCacheInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Sink == nil {
		opts.Sink = logger.NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	return &Task{
		source:    source,
		dir:       dir,
		opts:      opts,
		published: make(map[identity.ID]record),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run выполняет один проход сверки. Если счётчик изменений реестра не
// изменился и предыдущий проход завершился без ошибок, проход пропускается.
func (t *Task) Run() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	mod := t.source.ModCount()
	if t.synced && mod == t.modCount {
		return
	}

	entries := t.source.Snapshot()
	t.modCount = mod
	clean := true

	live := make(map[identity.ID]struct{}, len(entries))
	for _, e := range entries {
		live[e.ID] = struct{}{}
		gen := e.Bucket.Generation()

		if rec, ok := t.published[e.ID]; ok {
			if rec.generation == gen {
				continue
			}
			if !t.unregister(e.ID) {
				clean = false
				continue
			}
		}

		if !t.register(e.ID, e.Bucket) {
			clean = false
		}
	}

	for id := range t.published {
		if _, ok := live[id]; ok {
			continue
		}
		if !t.unregister(id) {
			clean = false
		}
	}

	t.synced = clean
}

func (t *Task) register(id identity.ID, b *stats.Bucket) bool {
	facade := stats.NewStats(b, t.opts.CacheInterval, t.opts.Clock)
	if err := t.dir.Register(id, facade); err != nil {
		t.opts.Sink.Report(fmt.Sprintf("failed to register metric %s", id), err)
		return false
	}

	t.published[id] = record{generation: b.Generation(), facade: facade}
	t.opts.Logger.Debugw("Metric registered", "metric", id.String(), "generation", b.Generation())
	t.notify(models.ActionRegister, id, b.Generation())
	return true
}

// unregister снимает id с публикации. ErrNotFound означает, что каталог уже
// не знает имени, и запись удаляется; при прочих ошибках запись сохраняется
// до следующего прохода.
func (t *Task) unregister(id identity.ID) bool {
	rec := t.published[id]

	err := t.dir.Unregister(id)
	switch {
	case err == nil:
		t.opts.Logger.Debugw("Metric unregistered", "metric", id.String(), "generation", rec.generation)
		t.notify(models.ActionUnregister, id, rec.generation)
	case errors.Is(err, ErrNotFound):
		t.opts.Sink.Report(fmt.Sprintf("metric %s was already unregistered", id), err)
	default:
		t.opts.Sink.Report(fmt.Sprintf("failed to unregister metric %s", id), err)
		return false
	}

	delete(t.published, id)
	return true
}

func (t *Task) notify(action string, id identity.ID, generation uint64) {
	if t.opts.Notifier == nil {
		return
	}
	t.opts.Notifier.Notify(models.Event{
		TS:         t.opts.Clock.Now().Unix(),
		Action:     action,
		Metric:     id.String(),
		Generation: generation,
	})
}

// Published возвращает число опубликованных идентичностей.
func (t *Task) Published() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.published)
}

// Start запускает периодическую сверку на отдельной горутине: первый проход
// через InitialDelay, далее каждые Interval. Повторный вызов ничего не делает.
func (t *Task) Start() {
	t.startOnce.Do(func() {
		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return
		}
		t.started = true
		t.mu.Unlock()

		go t.loop()
	})
}

func (t *Task) loop() {
	defer close(t.done)

	t.opts.Logger.Infow("Starting metric reconciliation", "initialDelay", t.opts.InitialDelay, "interval", t.opts.Interval)

	timer := t.opts.Clock.NewTimer(t.opts.InitialDelay)
	select {
	case <-timer.C():
	case <-t.stopCh:
		timer.Stop()
		return
	}

	t.Run()

	ticker := t.opts.Clock.NewTicker(t.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			t.Run()
		case <-t.stopCh:
			t.opts.Logger.Debugw("Stopping metric reconciliation")
			return
		}
	}
}

// Stop останавливает сверку, дожидается завершения текущего прохода и
// снимает с публикации все опубликованные идентичности. Ошибки каталога
// только сообщаются. Повторный вызов ничего не делает.
func (t *Task) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		started := t.started
		t.stopped = true
		t.mu.Unlock()

		if started {
			close(t.stopCh)
			<-t.done
		}

		t.mu.Lock()
		defer t.mu.Unlock()

		for id := range t.published {
			t.unregister(id)
		}
		clear(t.published)

		t.opts.Logger.Infow("Metric reconciliation stopped")
	})
}
