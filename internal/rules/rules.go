// Package rules загружает правила извлечения метрик из YAML-файла.
//
// Пример файла:
//
//	patterns:
//	  - "MS %{NUMBER}ms"
//	includes:
//	  - /etc/logstats/patterns
//	match:
//	  - pattern: "%{WORD:NAME}: %{NUMBER:TIME}ms"
//	    var:
//	      - {name: NAME, expr: NAME}
//	      - {name: TIME, expr: TIME}
//	    metric:
//	      - name: "Bean:name=%{NAME}"
//	        report: TIME
//	        description: request time
//	        buffer-size: 128
//	        time-depth: 1m
//
// Пакет только описывает форму правил; проверка переменных и шаблонов
// выполняется при добавлении правил в обработчик строк.
package rules

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/levinOo/go-logstats-project/internal/grok"
)

// Типы шаблонов сопоставления.
const (
	// TypeSimple обозначает текстовый шаблон: литеральный текст экранируется, ссылки %{...} раскрываются.
	TypeSimple = "simple"

	// TypeRegex обозначает регулярное выражение со ссылками %{...}.
	TypeRegex = "regex"
)

// Config описывает корневой элемент файла правил.
type Config struct {
	// Patterns содержит встроенные определения шаблонов, по одному блоку "NAME regex" на элемент.
	Patterns []string `yaml:"patterns"`

	// Includes содержит пути к файлам определений шаблонов.
	Includes []string `yaml:"includes"`

	Match []Matcher `yaml:"match"`
}

// Matcher описывает один шаблон строки и метрики, которые строятся из его совпадений.
type Matcher struct {
	Pattern string `yaml:"pattern"`

	// Type принимает TypeSimple (по умолчанию) или TypeRegex.
	Type string `yaml:"type"`

	Vars    []Var    `yaml:"var"`
	Metrics []Metric `yaml:"metric"`
}

// Var связывает имя переменной с выражением: путём к полю совпадения
// ("req.time") или константой ("'prod'", "42").
type Var struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// Metric объявляет метрику: шаблон имени идентичности и переменную со значением.
type Metric struct {
	Name        string `yaml:"name"`
	Report      string `yaml:"report"`
	Description string `yaml:"description"`

	// BufferSize задаёт число значений в скользящем окне; nil означает значение по умолчанию.
	BufferSize *int `yaml:"buffer-size"`

	// TimeDepth задаёт глубину окна в формате ParseTimeDepth; пустая строка означает значение по умолчанию.
	TimeDepth string `yaml:"time-depth"`
}

// Regex возвращает текст шаблона в виде регулярного выражения с учётом Type.
func (m Matcher) Regex() (string, error) {
	switch m.Type {
	case "", TypeSimple:
		return grok.SimpleTemplateToRegex(m.Pattern), nil
	case TypeRegex:
		return m.Pattern, nil
	default:
		return "", fmt.Errorf("unknown pattern type %q", m.Type)
	}
}

// BufferSizeOrDefault возвращает размер буфера или -1, если он не задан.
func (m Metric) BufferSizeOrDefault() int {
	if m.BufferSize == nil {
		return -1
	}
	return *m.BufferSize
}

// TimeDepthOrDefault разбирает глубину окна; -1 означает значение по умолчанию.
func (m Metric) TimeDepthOrDefault() (time.Duration, error) {
	if strings.TrimSpace(m.TimeDepth) == "" {
		return -1, nil
	}
	return ParseTimeDepth(m.TimeDepth)
}

// Load читает файл правил.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	return cfg, nil
}

// Parse декодирует правила из r. Неизвестные ключи считаются ошибкой.
func Parse(r io.Reader) (Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}

	return cfg, nil
}

// ParseTimeDepth разбирает глубину окна. Поддерживаются длительности Go
// ("30s", "1m30s"), целое число миллисекунд ("1500") и дни ("2d").
func ParseTimeDepth(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time depth")
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time depth %q: %w", s, err)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid time depth %q: %w", s, err)
	}
	return d, nil
}
