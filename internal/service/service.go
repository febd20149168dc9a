// Package service собирает сервис статистики журналов из конфигурации:
// реестр вёдер, обработчик строк, задачу публикации, аудит, отправку
// снимков и HTTP-сервер. Управляет их жизненным циклом и корректным
// завершением работы при получении системных сигналов.
package service

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/levinOo/go-logstats-project/internal/audit"
	"github.com/levinOo/go-logstats-project/internal/config"
	"github.com/levinOo/go-logstats-project/internal/config/db"
	"github.com/levinOo/go-logstats-project/internal/directory"
	"github.com/levinOo/go-logstats-project/internal/forwarder"
	"github.com/levinOo/go-logstats-project/internal/grok"
	"github.com/levinOo/go-logstats-project/internal/handler"
	"github.com/levinOo/go-logstats-project/internal/logger"
	"github.com/levinOo/go-logstats-project/internal/processor"
	"github.com/levinOo/go-logstats-project/internal/publisher"
	"github.com/levinOo/go-logstats-project/internal/repository"
	"github.com/levinOo/go-logstats-project/internal/rules"
	"github.com/levinOo/go-logstats-project/migrations"
)

// ErrNoReporters возвращается, если из правил не удалось загрузить ни одной метрики.
var ErrNoReporters = errors.New("no metrics configured")

// Service содержит все компоненты запущенного сервиса.
type Service struct {
	cfg    config.Config
	logger *zap.SugaredLogger
	clock  clock.WithTicker

	registry  *repository.BucketRegistry
	processor *processor.LineProcessor
	promReg   *prometheus.Registry
	task      *publisher.Task
	audit     *audit.Auditer
	forwarder *forwarder.Forwarder
	dbConn    *sql.DB
	server    *http.Server

	sourceCancel context.CancelFunc
	sourceDone   chan struct{}
	closeSource  func() error
}

// New создаёт сервис по конфигурации. Ошибка загрузки отдельных правил
// только логируется; отсутствие загруженных метрик является ошибкой.
func New(ctx context.Context, cfg config.Config, sugar *zap.SugaredLogger) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		logger: sugar,
		clock:  clock.RealClock{},
	}

	registry, err := repository.NewBucketRegistry(cfg.BucketLimit, s.clock)
	if err != nil {
		return nil, err
	}
	s.registry = registry

	rc, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, err
	}

	s.processor = processor.New(grok.NewLibrary(), registry, logger.NewZapSink(sugar), processor.Options{
		BufferSize: cfg.BufferSize,
		TimeDepth:  cfg.TimeDepth,
	})
	added, err := s.processor.LoadRules(rc)
	if err != nil {
		sugar.Warnw("Some rules were rejected", "error", err)
	}
	if added == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoReporters, cfg.RulesPath)
	}
	sugar.Infow("Rules loaded", "file", cfg.RulesPath, "metrics", added, "patterns", s.processor.Table().Len())

	s.promReg = prometheus.NewRegistry()
	s.promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.ForwardURL != "" {
		s.forwarder, err = forwarder.New(registry, forwarder.Options{
			URL:      cfg.ForwardURL,
			Interval: cfg.ForwardInterval,
			Clock:    s.clock,
			Logger:   sugar,
		})
		if err != nil {
			return nil, err
		}
	}

	var pinger handler.Pinger
	var dir publisher.Directory = directory.NewPrometheus(s.promReg, cfg.Namespace)
	if cfg.DatabaseDSN != "" {
		pg, err := s.setupDatabase(ctx)
		if err != nil {
			return nil, err
		}
		dir = directory.Fanout{dir, pg}
		pinger = pg
	}

	opts := publisher.Options{
		InitialDelay:  cfg.InitialDelay,
		Interval:      cfg.Interval,
		CacheInterval: cfg.CacheInterval,
		Clock:         s.clock,
		Sink:          logger.NewZapSink(sugar),
		Logger:        sugar,
	}
	if a := audit.New(cfg.AuditFile, cfg.AuditURL, sugar); a != nil {
		s.audit = a
		opts.Notifier = a
	}
	s.task = publisher.New(registry, dir, opts)

	deps := handler.Deps{
		Buckets:   registry,
		Processor: s.processor,
		Gatherer:  s.promReg,
		Pinger:    pinger,
		Clock:     s.clock,
	}
	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: handler.NewRouter(deps, sugar),
	}

	return s, nil
}

func (s *Service) setupDatabase(ctx context.Context) (*directory.Postgres, error) {
	conn, err := db.ConnectDB(ctx, s.cfg.DatabaseDSN, s.logger)
	if err != nil {
		return nil, err
	}

	if err := migrations.RunMigrations(s.cfg.DatabaseDSN); err != nil {
		conn.Close()
		return nil, err
	}

	pg := directory.NewPostgres(conn)
	if err := pg.Reset(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	s.dbConn = conn
	return pg, nil
}

// Handler возвращает HTTP-обработчик сервиса.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

// Start запускает чтение источника строк, задачу публикации и отправку снимков.
func (s *Service) Start() error {
	if s.cfg.Source != "" {
		r, closeFn, err := openSource(s.cfg.Source)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		s.sourceCancel = cancel
		s.closeSource = closeFn
		s.sourceDone = make(chan struct{})

		go func() {
			defer close(s.sourceDone)
			s.logger.Infow("Reading log lines", "source", s.cfg.Source)
			if err := ReadLines(ctx, r, s.processor, s.clock); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Errorw("Log source failed", "source", s.cfg.Source, "error", err)
				return
			}
			s.logger.Infow("Log source finished", "source", s.cfg.Source)
		}()
	}

	s.task.Start()
	if s.forwarder != nil {
		s.forwarder.Start()
	}
	return nil
}

// Shutdown останавливает компоненты в обратном порядке: источник строк,
// отправку снимков, задачу публикации (со снятием всех метрик), доставку
// аудита, HTTP-сервер и базу.
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error

	if s.sourceCancel != nil {
		s.sourceCancel()
		if err := s.closeSource(); err != nil {
			errs = append(errs, fmt.Errorf("close log source: %w", err))
		}
		// чтение stdin нельзя прервать, его горутина завершится вместе с процессом
		if s.cfg.Source != "-" {
			<-s.sourceDone
		}
	}

	if s.forwarder != nil {
		s.forwarder.Stop()
	}

	s.task.Stop()
	if s.audit != nil {
		s.audit.Close()
	}

	if err := s.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	if s.dbConn != nil {
		s.logger.Infow("Closing database connection")
		if err := s.dbConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Serve создаёт и запускает сервис, обслуживает HTTP до SIGINT/SIGTERM
// или ошибки сервера и затем корректно завершает работу.
func Serve(cfg config.Config, sugar *zap.SugaredLogger) error {
	sugar.Infow("Starting service with config",
		"address", cfg.Addr,
		"rules", cfg.RulesPath,
		"source", cfg.Source,
		"bucketLimit", cfg.BucketLimit,
		"interval", cfg.Interval,
		"database", cfg.DatabaseDSN != "",
		"forwardURL", cfg.ForwardURL,
	)

	s, err := New(context.Background(), cfg, sugar)
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		sugar.Infow("HTTP server started", "address", cfg.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case err := <-serverErr:
		if err != nil {
			sugar.Errorw("Server error", "error", err)
			runErr = fmt.Errorf("server error: %w", err)
		}
	case <-quit:
		sugar.Infoln("Shutting down service...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		sugar.Errorw("Shutdown error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	if runErr == nil {
		sugar.Infoln("Service stopped gracefully")
	}
	return runErr
}

// openSource открывает файл журнала или stdin для "-".
func openSource(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log source: %w", err)
	}
	var once sync.Once
	return f, func() error {
		var err error
		once.Do(func() { err = f.Close() })
		return err
	}, nil
}

// ReadLines передаёт каждую строку r обработчику с текущим временем,
// пока не кончится ввод или не будет отменён ctx.
func ReadLines(ctx context.Context, r io.Reader, proc handler.Processor, clk clock.PassiveClock) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), handler.MaxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		proc.Process(clk.Now(), scanner.Text())
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return scanner.Err()
}
