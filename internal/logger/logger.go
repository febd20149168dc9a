// Package logger предоставляет утилиты логирования: создание zap логгера,
// приёмник диагностических сообщений для обработки строк и обёртку
// ResponseWriter для журналирования HTTP-ответов.
package logger

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ResponseData содержит метаданные HTTP-ответа для логирования.
// Используется совместно с LoggingRW для отслеживания характеристик ответа.
type ResponseData struct {
	// Status содержит HTTP-код ответа (например, 200, 404, 500).
	Status int

	// Size содержит общий размер тела ответа в байтах.
	// Накапливается при множественных вызовах Write.
	Size int
}

// LoggingRW оборачивает стандартный http.ResponseWriter для захвата метрик ответа.
// Перехватывает вызовы Write и WriteHeader для сбора статистики без изменения поведения.
type LoggingRW struct {
	http.ResponseWriter
	// ResponseData указывает на структуру для накопления метаданных ответа.
	ResponseData *ResponseData
}

// Write записывает данные в ответ и обновляет накопленный размер в ResponseData.
func (r *LoggingRW) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.ResponseData.Size += size
	return size, err
}

// WriteHeader устанавливает HTTP-код ответа и сохраняет его в ResponseData.
func (r *LoggingRW) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.ResponseData.Status = statusCode
}

// NewLogger создаёт zap.SugaredLogger с заданным уровнем ("debug", "info", "warn", "error").
// Пустой уровень означает "info".
func NewLogger(level string) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return l.Sugar(), nil
}

// Sink принимает диагностические сообщения обработки строк: ошибки
// конфигурации, разбора значений и публикации. Реализации должны быть
// безопасны для конкурентного вызова.
type Sink interface {
	Report(msg string, err error)
}

// ZapSink пишет диагностику в zap логгер на уровне warn.
type ZapSink struct {
	log *zap.SugaredLogger
}

// NewZapSink создаёт приёмник поверх логгера.
func NewZapSink(log *zap.SugaredLogger) *ZapSink {
	return &ZapSink{log: log}
}

// Report записывает сообщение и ошибку.
func (s *ZapSink) Report(msg string, err error) {
	if err == nil {
		s.log.Warn(msg)
		return
	}
	s.log.Warnw(msg, "error", err)
}

// NopSink отбрасывает все сообщения.
type NopSink struct{}

// Report ничего не делает.
func (NopSink) Report(string, error) {}
