package jobs

import (
	"context"
	"time"

	"trailhead/internal/config"
	"trailhead/internal/metrics"
	"trailhead/internal/store"
)

// RetentionStats captures the number of import jobs deleted by TTL cleanup.
type RetentionStats struct {
	ImportsDeleted int64 `json:"importsDeleted"`
}

// CleanupExpiredImports deletes old import jobs based on retention
// settings so that the import history does not grow without bound.
// Ledger rows keep their import_id set to NULL when their job is
// deleted; the rows themselves are never expired.
func CleanupExpiredImports(ctx context.Context, cfg *config.Config, st *store.Store) RetentionStats {
	var stats RetentionStats

	days := cfg.Retention.ImportsDays
	if days <= 0 {
		return stats
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	if n, err := st.DeleteImportJobsBefore(ctx, cutoff); err == nil && n > 0 {
		stats.ImportsDeleted += n
		metrics.RecordRetentionImports(n)
	}

	return stats
}
