// Package importer ingests ledger TSV files dropped into a watch
// directory by pipeline trackers. Files must be moved into the
// directory atomically (write elsewhere, then rename); partially
// written files fail validation and are marked .failed.
package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"trailhead/internal/config"
	"trailhead/internal/jobs"
	"trailhead/internal/metrics"
	"trailhead/internal/store"
	"trailhead/internal/tabular"
)

// Importer watches a drop directory and ingests ledger files under
// import jobs. It also runs periodic retention cleanup, since it is
// the long-lived background loop of the process.
type Importer struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *Importer {
	return &Importer{cfg: cfg, store: st, logger: logger}
}

// Start runs the watch loop in the current goroutine until the context
// is cancelled. Callers typically run this in its own goroutine.
//
// Events from fsnotify trigger a scan, but the ticker rescans anyway:
// events can be dropped, and files may already be present at startup.
func (im *Importer) Start(ctx context.Context) error {
	dir := im.cfg.Importer.WatchDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	pollInterval := time.Duration(im.cfg.Importer.PollIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}

	maxImports := im.cfg.Importer.MaxConcurrentImports
	if maxImports <= 0 {
		maxImports = 2
	}
	sem := make(chan struct{}, maxImports)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastCleanup time.Time
	cleanupInterval := time.Duration(im.cfg.Retention.CleanupIntervalMinutes) * time.Minute
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}

	// Pick up files that were already waiting.
	im.scan(ctx, sem)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
				im.scan(ctx, sem)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			im.logger.Warn("watcher error", "error", err)
		case <-ticker.C:
			im.scan(ctx, sem)

			if im.cfg.Retention.Enabled {
				now := time.Now().UTC()
				if lastCleanup.IsZero() || now.Sub(lastCleanup) >= cleanupInterval {
					stats := jobs.CleanupExpiredImports(ctx, im.cfg, im.store)
					if stats.ImportsDeleted > 0 {
						im.logger.Info("retention cleanup", "imports_deleted", stats.ImportsDeleted)
					}
					lastCleanup = now
				}
			}
		}
	}
}

func (im *Importer) scan(ctx context.Context, sem chan struct{}) {
	pending, err := pendingLedgers(im.cfg.Importer.WatchDir)
	if err != nil {
		im.logger.Warn("scan failed", "error", err)
		return
	}

	for _, path := range pending {
		// Claim the file by renaming it; a failed rename means another
		// scan got there first.
		claimed := path + ".importing"
		if err := os.Rename(path, claimed); err != nil {
			continue
		}

		sem <- struct{}{}
		go func(original, claimed string) {
			defer func() { <-sem }()
			im.processFile(ctx, original, claimed)
		}(path, claimed)
	}
}

// pendingLedgers lists unclaimed ledger files in the drop directory,
// oldest first.
func pendingLedgers(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".tsv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// processFile ingests one claimed ledger file and renames it to
// .done or .failed. Validation happens before any database work so a
// malformed file never creates an import job.
func (im *Importer) processFile(ctx context.Context, original, claimed string) {
	name := filepath.Base(original)

	f, err := os.Open(claimed)
	if err != nil {
		metrics.RecordImport("failed")
		im.logger.Error("open ledger failed", "file", name, "error", err)
		im.finish(claimed, original+".failed")
		return
	}
	table, err := tabular.Read(f)
	f.Close()
	if err != nil {
		metrics.RecordValidationFailure("watcher")
		metrics.RecordImport("failed")
		im.logger.Error("ledger rejected", "file", name, "error", err)
		im.finish(claimed, original+".failed")
		return
	}

	id := func() uuid.UUID {
		if id, err := uuid.NewV7(); err == nil {
			return id
		}
		return uuid.New()
	}()

	job, err := im.store.CreateImportJob(ctx, id, name, string(jobs.StatusPending))
	if err != nil {
		im.logger.Error("create import job failed", "file", name, "error", err)
		im.finish(claimed, original+".failed")
		return
	}

	// Mark the job running while rows are inserted so concurrent API
	// reads can distinguish in-flight imports from queued ones.
	if err := im.store.UpdateImportJobStatus(ctx, job.ID, string(jobs.StatusRunning), 0, nil); err != nil {
		im.logger.Warn("update import job failed", "file", name, "import_id", job.ID.String(), "error", err)
	}

	recs := table.Records()
	if err := im.store.InsertStatusRecords(ctx, recs, job.ID); err != nil {
		msg := err.Error()
		_ = im.store.UpdateImportJobStatus(ctx, job.ID, string(jobs.StatusFailed), 0, &msg)
		metrics.RecordImport("failed")
		im.logger.Error("ledger import failed", "file", name, "import_id", job.ID.String(), "error", err)
		im.finish(claimed, original+".failed")
		return
	}

	if err := im.store.UpdateImportJobStatus(ctx, job.ID, string(jobs.StatusCompleted), int32(len(recs)), nil); err != nil {
		im.logger.Error("update import job failed", "file", name, "import_id", job.ID.String(), "error", err)
	}

	metrics.RecordImport("completed")
	for _, rec := range recs {
		metrics.RecordIngested(rec.PipelineName, 1)
	}

	im.logger.Info("ledger imported", "file", name, "import_id", job.ID.String(), "records", len(recs))
	im.finish(claimed, original+".done")
}

func (im *Importer) finish(claimed, final string) {
	if err := os.Rename(claimed, final); err != nil {
		im.logger.Warn("rename failed", "from", claimed, "to", final, "error", err)
	}
}
