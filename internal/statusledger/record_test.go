package statusledger

import (
	"errors"
	"strings"
	"testing"
)

func validFields() map[string]string {
	return map[string]string{
		ColParticipantID:   "01",
		ColSessionID:       "BL",
		ColPipelineName:    "fmriprep",
		ColPipelineVersion: "23.1.3",
		ColPipelineStep:    "default",
		ColStatus:          "SUCCESS",
	}
}

func TestNewRecord_DerivesBIDSIDs(t *testing.T) {
	rec, err := NewRecord(validFields())
	if err != nil {
		t.Fatalf("NewRecord error: %v", err)
	}
	if rec.BIDSParticipantID != "sub-01" {
		t.Fatalf("expected derived sub-01, got %q", rec.BIDSParticipantID)
	}
	if rec.BIDSSessionID != "ses-BL" {
		t.Fatalf("expected derived ses-BL, got %q", rec.BIDSSessionID)
	}
}

func TestNewRecord_KeepsSuppliedBIDSIDsVerbatim(t *testing.T) {
	fields := validFields()
	// Deliberately inconsistent with the raw IDs; supplied values win.
	fields[ColBIDSParticipantID] = "sub-99"
	fields[ColBIDSSessionID] = "ses-M12"

	rec, err := NewRecord(fields)
	if err != nil {
		t.Fatalf("NewRecord error: %v", err)
	}
	if rec.BIDSParticipantID != "sub-99" {
		t.Fatalf("expected supplied sub-99, got %q", rec.BIDSParticipantID)
	}
	if rec.BIDSSessionID != "ses-M12" {
		t.Fatalf("expected supplied ses-M12, got %q", rec.BIDSSessionID)
	}
}

func TestNewRecord_DoesNotMutateInput(t *testing.T) {
	fields := validFields()
	if _, err := NewRecord(fields); err != nil {
		t.Fatalf("NewRecord error: %v", err)
	}
	if _, ok := fields[ColBIDSParticipantID]; ok {
		t.Fatalf("input map gained derived field %s", ColBIDSParticipantID)
	}
}

func TestNewRecord_AllStatusesAccepted(t *testing.T) {
	for _, s := range ValidStatuses() {
		fields := validFields()
		fields[ColStatus] = string(s)
		if _, err := NewRecord(fields); err != nil {
			t.Fatalf("expected status %q to be accepted, got %v", s, err)
		}
	}
}

func TestNewRecord_RejectsUnknownStatus(t *testing.T) {
	fields := validFields()
	fields[ColStatus] = "DONE"

	_, err := NewRecord(fields)
	if err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	// The message must name the offending value and the legal set.
	msg := err.Error()
	if !strings.Contains(msg, "DONE") || !strings.Contains(msg, "SUCCESS") {
		t.Fatalf("error message missing value or legal set: %q", msg)
	}
}

func TestNewRecord_RejectsMalformedIdentifiers(t *testing.T) {
	fields := validFields()
	fields[ColParticipantID] = "sub-01"
	if _, err := NewRecord(fields); err == nil {
		t.Fatalf("expected error for prefixed participant ID")
	}

	fields = validFields()
	fields[ColSessionID] = "B L"
	if _, err := NewRecord(fields); err == nil {
		t.Fatalf("expected error for non-alphanumeric session ID")
	}
}

func TestNewRecord_RejectsMissingAndUnknownFields(t *testing.T) {
	fields := validFields()
	delete(fields, ColPipelineVersion)
	if _, err := NewRecord(fields); err == nil {
		t.Fatalf("expected error for missing pipeline_version")
	}

	fields = validFields()
	fields["extra_col"] = "x"
	if _, err := NewRecord(fields); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestValidate_RequiresBIDSIDsOnStructPath(t *testing.T) {
	rec := StatusRecord{
		ParticipantID:   "01",
		SessionID:       "BL",
		PipelineName:    "fmriprep",
		PipelineVersion: "23.1.3",
		PipelineStep:    "default",
		Status:          StatusSuccess,
	}
	if err := rec.Validate(); err == nil {
		t.Fatalf("expected error: struct construction must not default BIDS IDs")
	}
}

func TestColumns_CanonicalOrder(t *testing.T) {
	want := []string{
		"participant_id", "bids_participant_id", "session_id", "bids_session_id",
		"pipeline_name", "pipeline_version", "pipeline_step", "status",
	}
	got := Columns()
	if len(got) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestIndexCols_ExcludesBIDSSessionAndStatus(t *testing.T) {
	for _, col := range IndexCols() {
		if col == ColBIDSSessionID || col == ColStatus {
			t.Fatalf("index cols must not include %q", col)
		}
	}
	if len(IndexCols()) != 6 {
		t.Fatalf("expected 6 index cols, got %d", len(IndexCols()))
	}
}
