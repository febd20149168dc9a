package service

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mailru/easyjson"
	"go.uber.org/zap"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/levinOo/go-logstats-project/internal/config"
	"github.com/levinOo/go-logstats-project/internal/models"
)

const testRules = `
match:
  - pattern: "%{WORD:NAME}: %{NUMBER:TIME}ms"
    var:
      - {name: NAME, expr: NAME}
      - {name: TIME, expr: TIME}
    metric:
      - name: "Bean:name=%{NAME}"
        report: TIME
        description: request time
`

func testConfig(t *testing.T, rulesBody string) config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte(rulesBody), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.RulesPath = path
	cfg.AuditFile = filepath.Join(dir, "audit.log")
	return cfg
}

func TestNewRejectsRulesWithoutMetrics(t *testing.T) {
	tests := []struct {
		name  string
		rules string
	}{
		{name: "empty file", rules: ""},
		{name: "only bad metrics", rules: `
match:
  - pattern: "%{NUMBER:V}"
    metric:
      - name: "Bean:id=1"
        report: UNDECLARED
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(t.Context(), testConfig(t, tt.rules), zap.NewNop().Sugar())
			if !errors.Is(err, ErrNoReporters) {
				t.Errorf("expected ErrNoReporters, got %v", err)
			}
		})
	}
}

func TestNewMissingRulesFile(t *testing.T) {
	cfg := config.Default()
	cfg.RulesPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(t.Context(), cfg, zap.NewNop().Sugar()); err == nil {
		t.Error("expected error for missing rules file")
	}
}

func TestIngestPublishAndRetire(t *testing.T) {
	cfg := testConfig(t, testRules)
	s, err := New(t.Context(), cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/ingest", "text/plain", strings.NewReader("X3: 1ms\nX3: 3ms\nnoise\n"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest status %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/value?id=Bean:name=X3")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var snap models.Snapshot
	if err := easyjson.Unmarshal(body, &snap); err != nil {
		t.Fatalf("unmarshal %q: %v", body, err)
	}
	if snap.Count != 2 || snap.Description != "request time" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	s.task.Run()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `logstats_window_count{domain="Bean",metric="Bean:name=X3"} 2`) {
		t.Errorf("expected published metric in scrape output:\n%s", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if s.task.Published() != 0 {
		t.Errorf("expected everything retired, %d left", s.task.Published())
	}

	f, err := os.Open(cfg.AuditFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var actions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e models.Event
		if err := easyjson.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatal(err)
		}
		actions = append(actions, e.Action+" "+e.Metric)
	}
	want := []string{"register Bean:name=X3", "unregister Bean:name=X3"}
	if strings.Join(actions, "|") != strings.Join(want, "|") {
		t.Errorf("expected audit trail %v, got %v", want, actions)
	}
}

func TestStartReadsSourceFile(t *testing.T) {
	cfg := testConfig(t, testRules)
	cfg.Source = filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(cfg.Source, []byte("A: 1ms\nB: 2ms\nA: 3ms\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := New(t.Context(), cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-s.sourceDone:
	case <-time.After(5 * time.Second):
		t.Fatal("source was not drained")
	}

	if s.registry.Len() != 2 {
		t.Errorf("expected 2 identities, got %d", s.registry.Len())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestStartMissingSource(t *testing.T) {
	cfg := testConfig(t, testRules)
	cfg.Source = filepath.Join(t.TempDir(), "missing.log")

	s, err := New(t.Context(), cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err == nil {
		t.Error("expected error for missing source")
	}
}

type lineCollector struct {
	mu    sync.Mutex
	lines []string
	times []time.Time
}

func (c *lineCollector) Process(ts time.Time, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	c.times = append(c.times, ts)
}

func TestReadLines(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := clocktesting.NewFakeClock(t0)
	c := &lineCollector{}

	if err := ReadLines(t.Context(), strings.NewReader("one\n\nthree"), c, clk); err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if strings.Join(c.lines, "|") != "one||three" {
		t.Errorf("unexpected lines: %q", c.lines)
	}
	for _, ts := range c.times {
		if !ts.Equal(t0) {
			t.Errorf("expected timestamps from the clock, got %s", ts)
		}
	}
}

func TestReadLinesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	c := &lineCollector{}
	err := ReadLines(ctx, strings.NewReader("one\ntwo\n"), c, clocktesting.NewFakeClock(time.Now()))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(c.lines) != 0 {
		t.Errorf("expected no lines after cancellation, got %q", c.lines)
	}
}
