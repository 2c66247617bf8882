package jobs

import "testing"

func TestStatusValues(t *testing.T) {
	// These strings are stored in import_jobs.status; changing one is
	// a schema migration, not a rename.
	cases := []struct {
		status Status
		want   string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusCompleted, "completed"},
		{StatusFailed, "failed"},
	}
	for _, tc := range cases {
		if string(tc.status) != tc.want {
			t.Errorf("status %q, want %q", tc.status, tc.want)
		}
	}
}
