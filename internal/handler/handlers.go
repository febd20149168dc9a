// Package handler содержит HTTP API сервиса: приём строк журнала,
// просмотр статистики идентичностей, выдачу метрик Prometheus и проверку базы.
package handler

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/mailru/easyjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/levinOo/go-logstats-project/internal/identity"
	"github.com/levinOo/go-logstats-project/internal/logger"
	"github.com/levinOo/go-logstats-project/internal/models"
	"github.com/levinOo/go-logstats-project/internal/repository"
	"github.com/levinOo/go-logstats-project/internal/stats"
)

// MaxLineSize ограничивает длину одной строки в теле /ingest.
const MaxLineSize = 1024 * 1024

// Buckets даёт доступ к реестру вёдер только на чтение.
type Buckets interface {
	Snapshot() []repository.Entry
	Get(id identity.ID) (*stats.Bucket, error)
}

// Processor обрабатывает одну строку журнала.
type Processor interface {
	Process(ts time.Time, line string)
}

// Pinger проверяет доступность базы данных.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps собирает зависимости маршрутизатора. Pinger и Gatherer могут быть nil.
type Deps struct {
	Buckets   Buckets
	Processor Processor
	Gatherer  prometheus.Gatherer
	Pinger    Pinger
	Clock     clock.PassiveClock
}

// NewRouter создаёт маршрутизатор chi со всеми обработчиками.
func NewRouter(deps Deps, sugar *zap.SugaredLogger) *chi.Mux {
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}

	r := chi.NewRouter()

	r.Get("/", LoggerFuncServer(GetListHandler(deps.Buckets), sugar))
	r.Get("/value", LoggerFuncServer(GetValueHandler(deps.Buckets), sugar))
	r.Get("/ping", LoggerFuncServer(PingHandler(deps.Pinger), sugar))
	r.Post("/ingest", LoggerFuncServer(DecompressMiddleware(IngestHandler(deps.Processor, deps.Clock)), sugar))

	if deps.Gatherer != nil {
		r.Get("/metrics", LoggerFuncServer(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}), sugar))
	}

	return r
}

// LoggerFuncServer логирует URI, метод, длительность, статус и размер ответа.
func LoggerFuncServer(h http.Handler, sugar *zap.SugaredLogger) http.HandlerFunc {
	logFn := func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()

		responseData := &logger.ResponseData{
			Size:   0,
			Status: 0,
		}
		lw := logger.LoggingRW{
			ResponseWriter: rw,
			ResponseData:   responseData,
		}

		h.ServeHTTP(&lw, r)

		sugar.Infow("Request served",
			"uri", r.RequestURI,
			"method", r.Method,
			"duration", time.Since(start),
			"status", responseData.Status,
			"size", responseData.Size,
		)
	}
	return http.HandlerFunc(logFn)
}

// DecompressMiddleware подменяет тело запроса распаковывающим читателем,
// если клиент прислал Content-Encoding: gzip.
func DecompressMiddleware(h http.Handler) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") == "gzip" {
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(rw, "Failed to decompress gzip body", http.StatusBadRequest)
				return
			}
			defer gz.Close()

			r.Body = gz
			r.ContentLength = -1
			r.Header.Del("Content-Encoding")
		}
		h.ServeHTTP(rw, r)
	}
}

// writeBody отправляет тело, сжимая его, если клиент принимает gzip.
func writeBody(rw http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	rw.Header().Set("Content-Type", contentType)

	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write(body)
		return
	}

	rw.Header().Set("Content-Encoding", "gzip")
	rw.WriteHeader(http.StatusOK)

	gz := gzip.NewWriter(rw)
	defer gz.Close()
	_, _ = gz.Write(body)
}

// PingHandler проверяет соединение с базой. Без базы всегда отвечает 200.
func PingHandler(pinger Pinger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if pinger == nil {
			rw.WriteHeader(http.StatusOK)
			_, _ = rw.Write([]byte("OK"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			http.Error(rw, "No connection with Database", http.StatusInternalServerError)
			return
		}

		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("Database is reachable"))
	}
}

// IngestHandler обрабатывает каждую строку тела запроса с текущим временем
// и отвечает числом обработанных строк.
func IngestHandler(proc Processor, clk clock.PassiveClock) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		scanner := bufio.NewScanner(r.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

		lines := 0
		for scanner.Scan() {
			proc.Process(clk.Now(), scanner.Text())
			lines++
		}
		if err := scanner.Err(); err != nil {
			http.Error(rw, "Failed to read body: "+err.Error(), http.StatusBadRequest)
			return
		}

		body, err := easyjson.Marshal(models.IngestResult{Lines: lines})
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write(body)
	}
}

// GetValueHandler отдаёт JSON-снимок идентичности из параметра id.
func GetValueHandler(buckets Buckets) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		id, err := identity.Parse(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}

		b, err := buckets.Get(id)
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(rw, "Metric not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}

		body, err := easyjson.Marshal(models.NewSnapshot(id.String(), b.Analyze()))
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}

		writeBody(rw, r, "application/json", body)
	}
}

// GetListHandler выводит все живые идентичности с числом значений и средним
// по окну. Формат HTML выбирается по заголовку Accept.
func GetListHandler(buckets Buckets) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		entries := buckets.Snapshot()
		slices.SortFunc(entries, func(a, b repository.Entry) int {
			return strings.Compare(a.ID.String(), b.ID.String())
		})

		asHTML := strings.Contains(r.Header.Get("Accept"), "text/html")

		var sb strings.Builder
		if asHTML {
			sb.WriteString("<html><body>")
			sb.WriteString("<h1>Metrics</h1><ul>")
		}
		for _, e := range entries {
			s := e.Bucket.Analyze()
			if asHTML {
				sb.WriteString(fmt.Sprintf("<li>%s: count=%d avg=%f</li>", html.EscapeString(e.ID.String()), s.Count, s.Avg))
			} else {
				sb.WriteString(fmt.Sprintf("%s: count=%d avg=%f\n", e.ID, s.Count, s.Avg))
			}
		}
		if asHTML {
			sb.WriteString("</ul></body></html>")
			writeBody(rw, r, "text/html", []byte(sb.String()))
			return
		}

		writeBody(rw, r, "text/plain", []byte(sb.String()))
	}
}
