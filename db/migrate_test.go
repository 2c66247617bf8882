package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob error: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected at least one embedded migration")
	}

	found := false
	for _, name := range entries {
		if strings.HasSuffix(name, "00001_init.sql") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected init migration among %v", entries)
	}
}

func TestEmbeddedMigrationsHaveGooseMarkers(t *testing.T) {
	entries, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob error: %v", err)
	}
	for _, name := range entries {
		body, err := fs.ReadFile(migrations, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(body), "-- +goose Up") {
			t.Fatalf("migration %s missing goose Up marker", name)
		}
	}
}
