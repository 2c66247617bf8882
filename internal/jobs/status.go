package jobs

// Status represents the lifecycle state of a ledger import in the
// import_jobs table. These values must match the text values stored
// in the database (import_jobs.status).
//
// Synchronous API imports move pending -> completed/failed in one
// request; the drop-directory importer passes through running while
// rows are being inserted.
//
// Centralizing these here avoids scattering string literals like
// "pending" or "completed" across packages.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)
