package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown flag", args: []string{"-zzz"}, wantErr: "ошибка чтения конфигурации"},
		{name: "bad log level", args: []string{"-log-level", "loud"}, wantErr: "invalid log level"},
		{name: "missing rules", args: []string{"-rules", filepath.Join(os.TempDir(), "logstats-missing-rules.yaml")}, wantErr: "rules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			os.Args = append([]string{"server"}, tt.args...)
			defer func() { os.Args = oldArgs }()

			err := run()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
