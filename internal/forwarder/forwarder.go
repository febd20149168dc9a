// Package forwarder периодически отправляет снимки статистики всех живых
// идентичностей на удалённый сервер одним сжатым пакетом.
package forwarder

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mailru/easyjson"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/levinOo/go-logstats-project/internal/models"
	"github.com/levinOo/go-logstats-project/internal/repository"
)

// DefaultInterval задаёт период отправки по умолчанию.
const DefaultInterval = 10 * time.Second

var retryIntervals = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// Source отдаёт текущие записи реестра.
type Source interface {
	Snapshot() []repository.Entry
}

// Options задаёт параметры Forwarder.
type Options struct {
	// URL задаёт базовый адрес сервера; пакет отправляется на <URL>/updates.
	URL string

	// Interval задаёт период отправки. Ноль заменяется DefaultInterval.
	Interval time.Duration

	Clock  clock.WithTicker
	Logger *zap.SugaredLogger
	Client *resty.Client
}

// Forwarder отправляет пакеты снимков по расписанию.
type Forwarder struct {
	source   Source
	endpoint string
	interval time.Duration
	clock    clock.WithTicker
	logger   *zap.SugaredLogger
	client   *resty.Client

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// New создаёт Forwarder. Пустой или некорректный URL является ошибкой.
func New(source Source, opts Options) (*Forwarder, error) {
	if opts.URL == "" {
		return nil, errors.New("forward URL is empty")
	}
	endpoint, err := url.JoinPath(opts.URL, "updates")
	if err != nil {
		return nil, fmt.Errorf("failed to join URL path: %w", err)
	}

	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Client == nil {
		opts.Client = resty.New().SetTimeout(5 * time.Second)
	}

	return &Forwarder{
		source:   source,
		endpoint: endpoint,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   opts.Logger,
		client:   opts.Client,
		done:     make(chan struct{}),
	}, nil
}

// Collect строит снимки всех записей источника.
func (f *Forwarder) Collect() models.SnapshotList {
	entries := f.source.Snapshot()
	list := models.SnapshotList{List: make([]models.Snapshot, 0, len(entries))}
	for _, e := range entries {
		list.List = append(list.List, models.NewSnapshot(e.ID.String(), e.Bucket.Analyze()))
	}
	return list
}

// Send отправляет один пакет. Пустой пакет не отправляется.
func (f *Forwarder) Send(ctx context.Context) error {
	list := f.Collect()
	if len(list.List) == 0 {
		f.logger.Debugln("No metrics to send, skipping batch")
		return nil
	}

	data, err := easyjson.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	buffer, err := CompressData(data)
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Content-Encoding", "gzip").
		SetHeader("Accept-Encoding", "gzip").
		SetBody(buffer).
		Post(f.endpoint)
	if err != nil {
		return fmt.Errorf("failed to send batch request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

// sendWithRetry повторяет отправку, пока сервер отказывает в соединении.
func (f *Forwarder) sendWithRetry(ctx context.Context) error {
	err := f.Send(ctx)

	for i, interval := range retryIntervals {
		if !errors.Is(err, syscall.ECONNREFUSED) {
			break
		}
		f.logger.Infow("Retrying batch", "attempt", i+1, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.clock.After(interval):
		}

		err = f.Send(ctx)
		if err == nil {
			f.logger.Infow("Batch sent after retries", "attempts", i+1)
		}
	}

	return err
}

// Start запускает отправку в фоне. Повторный вызов ничего не делает.
func (f *Forwarder) Start() {
	f.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		f.cancel = cancel
		go f.loop(ctx)
	})
}

func (f *Forwarder) loop(ctx context.Context) {
	defer close(f.done)

	ticker := f.clock.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := f.sendWithRetry(ctx); err != nil && !errors.Is(err, context.Canceled) {
				f.logger.Errorw("Final sending metrics error", "error", err)
			}
		}
	}
}

// Stop останавливает отправку и дожидается завершения текущего пакета.
func (f *Forwarder) Stop() {
	f.stopOnce.Do(func() {
		if f.cancel == nil {
			return
		}
		f.cancel()
		<-f.done
	})
}

// CompressData сжимает данные gzip.
func CompressData(data []byte) ([]byte, error) {
	var buffer bytes.Buffer

	w := gzip.NewWriter(&buffer)

	_, err := w.Write(data)
	if err != nil {
		return nil, err
	}

	err = w.Close()
	if err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}
