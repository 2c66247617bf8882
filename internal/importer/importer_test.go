package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"trailhead/internal/config"
)

func TestPendingLedgers_OnlyUnclaimedTSVs(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"a.tsv", "b.tsv.done", "c.tsv.failed", "d.tsv.importing", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.tsv"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	paths, err := pendingLedgers(dir)
	if err != nil {
		t.Fatalf("pendingLedgers error: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "a.tsv" {
		t.Fatalf("expected only a.tsv, got %v", paths)
	}
}

func TestProcessFile_UnreadableLedgerMarkedFailed(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "gone.tsv")
	claimed := original + ".importing"

	// A symlink to a missing target makes the open fail while the
	// rename to .failed still works on the link itself.
	if err := os.Symlink(filepath.Join(dir, "nonexistent"), claimed); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	cfg := &config.Config{}
	cfg.Importer.WatchDir = dir

	im := New(cfg, nil, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	im.processFile(context.Background(), original, claimed)

	if _, err := os.Lstat(original + ".failed"); err != nil {
		t.Fatalf("expected gone.tsv.failed to exist: %v", err)
	}
	if _, err := os.Lstat(claimed); !os.IsNotExist(err) {
		t.Fatalf("expected claimed file to be renamed away, lstat err: %v", err)
	}
}

func TestProcessFile_InvalidLedgerMarkedFailed(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "bad.tsv")
	claimed := original + ".importing"

	ledger := "participant_id\tsession_id\tbogus\n01\tBL\tx\n"
	if err := os.WriteFile(claimed, []byte(ledger), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := &config.Config{}
	cfg.Importer.WatchDir = dir

	// Validation rejects the file before any store access, so a nil
	// store is fine here.
	im := New(cfg, nil, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	im.processFile(context.Background(), original, claimed)

	if _, err := os.Stat(original + ".failed"); err != nil {
		t.Fatalf("expected bad.tsv.failed to exist: %v", err)
	}
	if _, err := os.Stat(claimed); !os.IsNotExist(err) {
		t.Fatalf("expected claimed file to be renamed away, stat err: %v", err)
	}
}
