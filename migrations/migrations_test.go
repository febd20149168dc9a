package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	if err != nil {
		t.Fatal(err)
	}

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		default:
			t.Errorf("unexpected file %s", e.Name())
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("expected paired migrations, got %d up and %d down", ups, downs)
	}
}

func TestRunMigrationsBadDSN(t *testing.T) {
	if err := RunMigrations("unknown-scheme://nowhere"); err == nil {
		t.Error("expected error for unsupported database scheme")
	}
}
