package database_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anon-comments-api/internal/database"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestCheckMigrationsPath(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		wantErr bool
	}{
		{"paired migrations", []string{"000001_init.up.sql", "000001_init.down.sql"}, false},
		{"missing down file", []string{"000001_init.up.sql", "000001_init.down.sql", "000002_next.up.sql"}, true},
		{"empty directory", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files...)
			err := database.CheckMigrationsPath(dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckMigrationsPath() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckMigrationsPath_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "000001_init.up.sql")

	if err := database.CheckMigrationsPath(filepath.Join(dir, "000001_init.up.sql")); err == nil {
		t.Error("expected error for a file path")
	}
	if err := database.CheckMigrationsPath(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for a missing path")
	}
}

func TestCheckMigrationsPath_ShippedMigrations(t *testing.T) {
	if err := database.CheckMigrationsPath(filepath.Join("..", "..", "migrations")); err != nil {
		t.Errorf("shipped migrations are incomplete: %v", err)
	}
}
