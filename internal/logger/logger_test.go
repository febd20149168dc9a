package logger

import (
	"errors"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "default", level: ""},
		{name: "debug", level: "debug"},
		{name: "error", level: "error"},
		{name: "invalid", level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Error("expected logger")
			}
		})
	}
}

func TestZapSinkReport(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core).Sugar())

	sink.Report("failed to parse value", errors.New("bad number"))
	sink.Report("no reporters", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel || entries[0].Message != "failed to parse value" {
		t.Errorf("unexpected entry: %+v", entries[0].Entry)
	}
	if entries[0].ContextMap()["error"] != "bad number" {
		t.Errorf("expected error field, got %v", entries[0].ContextMap())
	}
}

func TestLoggingRW(t *testing.T) {
	rec := httptest.NewRecorder()
	data := &ResponseData{}
	rw := &LoggingRW{ResponseWriter: rec, ResponseData: data}

	rw.WriteHeader(404)
	rw.Write([]byte("not "))
	rw.Write([]byte("found"))

	if data.Status != 404 || data.Size != 9 {
		t.Errorf("unexpected response data: %+v", *data)
	}
}
