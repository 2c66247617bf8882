package statusledger

import (
	"errors"
	"fmt"

	"trailhead/internal/identifier"
)

// Status is the terminal outcome of one pipeline-step run for one
// participant/session pair. These values are a fixed contract with
// the trackers that produce ledger rows; they must match the text
// stored in the database and in ledger TSV files.
type Status string

const (
	StatusSuccess     Status = "SUCCESS"
	StatusFail        Status = "FAIL"
	StatusIncomplete  Status = "INCOMPLETE"
	StatusUnavailable Status = "UNAVAILABLE"
)

// ValidStatuses returns the full status vocabulary in canonical order.
func ValidStatuses() []Status {
	return []Status{StatusSuccess, StatusFail, StatusIncomplete, StatusUnavailable}
}

// ErrInvalidStatus tags enumeration failures so callers can
// distinguish them from identifier-format errors.
var ErrInvalidStatus = errors.New("invalid status")

// CheckStatus verifies that a status value is part of the vocabulary.
// The error names the offending value and lists the legal set.
func CheckStatus(value Status) error {
	for _, s := range ValidStatuses() {
		if value == s {
			return nil
		}
	}
	return fmt.Errorf("%w %q, must be one of: %v", ErrInvalidStatus, value, ValidStatuses())
}

// Ledger column names, in canonical order. These are a stable contract
// with the TSV files and the status_records table; consumers must not
// reorder or rename them.
const (
	ColParticipantID     = "participant_id"
	ColBIDSParticipantID = "bids_participant_id"
	ColSessionID         = "session_id"
	ColBIDSSessionID     = "bids_session_id"
	ColPipelineName      = "pipeline_name"
	ColPipelineVersion   = "pipeline_version"
	ColPipelineStep      = "pipeline_step"
	ColStatus            = "status"
)

// Columns returns the ledger column names in canonical order.
func Columns() []string {
	return []string{
		ColParticipantID,
		ColBIDSParticipantID,
		ColSessionID,
		ColBIDSSessionID,
		ColPipelineName,
		ColPipelineVersion,
		ColPipelineStep,
		ColStatus,
	}
}

// IndexCols returns the columns used for sorting and comparing
// ledgers. bids_session_id and status are deliberately excluded.
func IndexCols() []string {
	return []string{
		ColParticipantID,
		ColBIDSParticipantID,
		ColSessionID,
		ColPipelineName,
		ColPipelineVersion,
		ColPipelineStep,
	}
}

// StatusRecord is one row of the status ledger: the outcome of one
// pipeline-step run for one participant/session pair.
type StatusRecord struct {
	ParticipantID     string `json:"participant_id"`
	BIDSParticipantID string `json:"bids_participant_id"`
	SessionID         string `json:"session_id"`
	BIDSSessionID     string `json:"bids_session_id"`
	PipelineName      string `json:"pipeline_name"`
	PipelineVersion   string `json:"pipeline_version"`
	PipelineStep      string `json:"pipeline_step"`
	Status            Status `json:"status"`
}

// NewRecord builds a validated StatusRecord from a raw field map.
//
// Construction is two-phase. Normalization runs first: if the map has
// no bids_participant_id entry, one is derived from participant_id;
// same for bids_session_id from session_id. Explicitly supplied BIDS
// IDs are kept verbatim, even if they disagree with what derivation
// would produce. Validation then checks required fields, the status
// vocabulary, and the raw identifier formats. Either phase failing
// yields a zero record and an error; there is no partial result.
func NewRecord(raw map[string]string) (StatusRecord, error) {
	fields := make(map[string]string, len(raw)+2)
	for k, v := range raw {
		fields[k] = v
	}
	if _, ok := fields[ColBIDSParticipantID]; !ok {
		fields[ColBIDSParticipantID] = identifier.ToBIDSParticipantID(fields[ColParticipantID])
	}
	if _, ok := fields[ColBIDSSessionID]; !ok {
		fields[ColBIDSSessionID] = identifier.ToBIDSSessionID(fields[ColSessionID])
	}

	for _, col := range Columns() {
		if fields[col] == "" {
			return StatusRecord{}, fmt.Errorf("missing required field %q", col)
		}
	}
	if unknown := unknownFields(fields); len(unknown) > 0 {
		return StatusRecord{}, fmt.Errorf("unknown fields %v, expected %v", unknown, Columns())
	}

	rec := StatusRecord{
		ParticipantID:     fields[ColParticipantID],
		BIDSParticipantID: fields[ColBIDSParticipantID],
		SessionID:         fields[ColSessionID],
		BIDSSessionID:     fields[ColBIDSSessionID],
		PipelineName:      fields[ColPipelineName],
		PipelineVersion:   fields[ColPipelineVersion],
		PipelineStep:      fields[ColPipelineStep],
		Status:            Status(fields[ColStatus]),
	}
	if err := rec.Validate(); err != nil {
		return StatusRecord{}, err
	}
	return rec, nil
}

func unknownFields(fields map[string]string) []string {
	known := make(map[string]struct{}, len(Columns()))
	for _, col := range Columns() {
		known[col] = struct{}{}
	}
	var unknown []string
	for k := range fields {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// Validate checks an already-populated record. No defaulting happens
// here: callers constructing records directly must supply both the
// raw and the BIDS identifier fields.
func (r StatusRecord) Validate() error {
	if r.BIDSParticipantID == "" || r.BIDSSessionID == "" {
		return errors.New("bids_participant_id and bids_session_id are required (derived only on map input)")
	}
	if r.PipelineName == "" || r.PipelineVersion == "" || r.PipelineStep == "" {
		return errors.New("pipeline_name, pipeline_version and pipeline_step are required")
	}
	if err := CheckStatus(r.Status); err != nil {
		return err
	}
	if err := identifier.CheckParticipantID(r.ParticipantID); err != nil {
		return err
	}
	if err := identifier.CheckSessionID(r.SessionID); err != nil {
		return err
	}
	return nil
}

// Fields returns the record as a column-name keyed map, the inverse
// of NewRecord for a valid record.
func (r StatusRecord) Fields() map[string]string {
	return map[string]string{
		ColParticipantID:     r.ParticipantID,
		ColBIDSParticipantID: r.BIDSParticipantID,
		ColSessionID:         r.SessionID,
		ColBIDSSessionID:     r.BIDSSessionID,
		ColPipelineName:      r.PipelineName,
		ColPipelineVersion:   r.PipelineVersion,
		ColPipelineStep:      r.PipelineStep,
		ColStatus:            string(r.Status),
	}
}
