// Package config предоставляет функциональность для управления конфигурацией сервиса.
// Значения собираются из трёх источников с возрастающим приоритетом:
// JSON-файл, флаги командной строки, переменные окружения.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// ConfigStruct описывает формат JSON-файла конфигурации. Длительности задаются строками
// в формате time.ParseDuration ("5s", "1m30s").
type ConfigStruct struct {
	Addr            string `json:"address"`
	RulesPath       string `json:"rules_path"`
	Source          string `json:"log_source"`
	LogLevel        string `json:"log_level"`
	BucketLimit     int    `json:"bucket_limit"`
	BufferSize      int    `json:"buffer_size"`
	TimeDepth       string `json:"time_depth"`
	InitialDelay    string `json:"initial_delay"`
	Interval        string `json:"publish_interval"`
	CacheInterval   string `json:"cache_interval"`
	DatabaseDSN     string `json:"database_dsn"`
	AuditFile       string `json:"audit_file"`
	AuditURL        string `json:"audit_url"`
	ForwardURL      string `json:"forward_url"`
	ForwardInterval string `json:"forward_interval"`
	Namespace       string `json:"metrics_namespace"`
}

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// Addr задаёт адрес и порт HTTP-сервера (например, "localhost:8080").
	Addr string `env:"ADDRESS"`

	// RulesPath указывает путь к YAML-файлу правил разбора строк.
	RulesPath string `env:"RULES_PATH"`

	// Source задаёт файл журнала для чтения строк; "-" означает stdin.
	// Пустое значение отключает чтение, строки принимаются только через /ingest.
	Source string `env:"LOG_SOURCE"`

	LogLevel string `env:"LOG_LEVEL"`

	// BucketLimit ограничивает число одновременно живых идентичностей.
	BucketLimit int `env:"BUCKET_LIMIT"`

	// BufferSize и TimeDepth задают значения по умолчанию для метрик,
	// в правилах которых они не заданы.
	BufferSize int           `env:"BUFFER_SIZE"`
	TimeDepth  time.Duration `env:"TIME_DEPTH"`

	// InitialDelay и Interval задают расписание задачи сверки.
	InitialDelay time.Duration `env:"INITIAL_DELAY"`
	Interval     time.Duration `env:"PUBLISH_INTERVAL"`

	// CacheInterval задаёт время жизни закэшированного снимка статистики.
	CacheInterval time.Duration `env:"CACHE_INTERVAL"`

	// DatabaseDSN содержит строку подключения к PostgreSQL.
	// Если не указано, метрики публикуются только в Prometheus.
	DatabaseDSN string `env:"DATABASE_DSN"`

	// AuditFile указывает путь к файлу для записи аудит-логов.
	AuditFile string `env:"AUDIT_FILE"`

	// AuditURL содержит URL для отправки аудит-событий на внешний сервис.
	AuditURL string `env:"AUDIT_URL"`

	// ForwardURL задаёт адрес сервера, принимающего пакеты снимков.
	// Пустое значение отключает отправку.
	ForwardURL      string        `env:"FORWARD_URL"`
	ForwardInterval time.Duration `env:"FORWARD_INTERVAL"`

	// Namespace задаёт префикс имён метрик Prometheus.
	Namespace string `env:"METRICS_NAMESPACE"`

	ConfigFilePath string `env:"CONFIG"`
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() Config {
	return Config{
		Addr:            "localhost:8080",
		RulesPath:       "rules.yaml",
		LogLevel:        "info",
		BucketLimit:     1000,
		BufferSize:      512,
		TimeDepth:       30 * time.Second,
		InitialDelay:    5 * time.Second,
		Interval:        5 * time.Second,
		CacheInterval:   100 * time.Millisecond,
		ForwardInterval: 10 * time.Second,
		Namespace:       "logstats",
	}
}

// GetConfig загружает конфигурацию из аргументов процесса и окружения.
func GetConfig() (Config, error) {
	return Load(os.Args[1:])
}

// Load собирает конфигурацию: значения по умолчанию, затем JSON-файл из
// -config или CONFIG, затем явно заданные флаги, затем переменные окружения.
//
// Поддерживаемые флаги:
//
//	-a: адрес сервера (по умолчанию "localhost:8080")
//	-rules: путь к файлу правил (по умолчанию "rules.yaml")
//	-s: источник строк журнала, файл или "-" (по умолчанию "")
//	-l: максимум живых идентичностей (по умолчанию 1000)
//	-i: интервал сверки (по умолчанию 5s)
//	-d: строка подключения к базе данных (по умолчанию "")
//	-p: путь к файлу аудита (по умолчанию "")
//	-u: URL для аудита (по умолчанию "")
//	-f: URL сервера для отправки снимков (по умолчанию "")
//	-r: интервал отправки снимков (по умолчанию 10s)
//
// Соответствующие переменные окружения:
//
//	ADDRESS, RULES_PATH, LOG_SOURCE, BUCKET_LIMIT, PUBLISH_INTERVAL,
//	DATABASE_DSN, AUDIT_FILE, AUDIT_URL, FORWARD_URL, FORWARD_INTERVAL
func Load(args []string) (Config, error) {
	cfg := Default()

	// первый проход нужен только чтобы узнать путь к файлу
	pre := Default()
	if err := newFlagSet(&pre).Parse(args); err != nil {
		return Config{}, err
	}

	configPath := pre.ConfigFilePath
	if configPath == "" {
		configPath = os.Getenv("CONFIG")
	}
	if configPath != "" {
		if err := loadFile(configPath, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := newFlagSet(&cfg).Parse(args); err != nil {
		return Config{}, err
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate проверяет значения, без которых сервис не может работать.
func (c Config) Validate() error {
	var errs []error
	if c.RulesPath == "" {
		errs = append(errs, errors.New("rules path is empty"))
	}
	if c.BucketLimit <= 0 {
		errs = append(errs, fmt.Errorf("bucket limit must be positive, got %d", c.BucketLimit))
	}
	if c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("buffer size must be positive, got %d", c.BufferSize))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("publish interval must be positive, got %s", c.Interval))
	}
	if c.ForwardURL != "" && c.ForwardInterval <= 0 {
		errs = append(errs, fmt.Errorf("forward interval must be positive, got %s", c.ForwardInterval))
	}
	return errors.Join(errs...)
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("logstats", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "HTTP server address")
	fs.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "path to rules file")
	fs.StringVar(&cfg.Source, "s", cfg.Source, "log source file, - for stdin")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.IntVar(&cfg.BucketLimit, "l", cfg.BucketLimit, "maximum number of live identities")
	fs.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "default sample buffer size")
	fs.DurationVar(&cfg.TimeDepth, "time-depth", cfg.TimeDepth, "default sliding window depth")
	fs.DurationVar(&cfg.InitialDelay, "initial-delay", cfg.InitialDelay, "delay before the first reconciliation")
	fs.DurationVar(&cfg.Interval, "i", cfg.Interval, "reconciliation interval")
	fs.DurationVar(&cfg.CacheInterval, "cache-interval", cfg.CacheInterval, "statistics cache interval")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "Database address")
	fs.StringVar(&cfg.AuditFile, "p", cfg.AuditFile, "audit file path")
	fs.StringVar(&cfg.AuditURL, "u", cfg.AuditURL, "audit url")
	fs.StringVar(&cfg.ForwardURL, "f", cfg.ForwardURL, "forward server url")
	fs.DurationVar(&cfg.ForwardInterval, "r", cfg.ForwardInterval, "forward interval")
	fs.StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "prometheus namespace")
	fs.StringVar(&cfg.ConfigFilePath, "config", cfg.ConfigFilePath, "path to config file")

	return fs
}

// loadFile накладывает непустые значения JSON-файла на cfg.
func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cs ConfigStruct
	if err := json.NewDecoder(f).Decode(&cs); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	setString(&cfg.Addr, cs.Addr)
	setString(&cfg.RulesPath, cs.RulesPath)
	setString(&cfg.Source, cs.Source)
	setString(&cfg.LogLevel, cs.LogLevel)
	setString(&cfg.DatabaseDSN, cs.DatabaseDSN)
	setString(&cfg.AuditFile, cs.AuditFile)
	setString(&cfg.AuditURL, cs.AuditURL)
	setString(&cfg.ForwardURL, cs.ForwardURL)
	setString(&cfg.Namespace, cs.Namespace)
	setInt(&cfg.BucketLimit, cs.BucketLimit)
	setInt(&cfg.BufferSize, cs.BufferSize)

	durations := []struct {
		name string
		dst  *time.Duration
		src  string
	}{
		{"time_depth", &cfg.TimeDepth, cs.TimeDepth},
		{"initial_delay", &cfg.InitialDelay, cs.InitialDelay},
		{"publish_interval", &cfg.Interval, cs.Interval},
		{"cache_interval", &cfg.CacheInterval, cs.CacheInterval},
		{"forward_interval", &cfg.ForwardInterval, cs.ForwardInterval},
	}
	for _, d := range durations {
		if d.src == "" {
			continue
		}
		v, err := time.ParseDuration(d.src)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.name, path, err)
		}
		*d.dst = v
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
