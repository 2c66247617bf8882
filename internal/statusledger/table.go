package statusledger

import (
	"fmt"
	"iter"
	"sort"
)

// Table is an ordered collection of validated status records.
//
// There is no uniqueness constraint on the natural key: the same
// participant/session/pipeline combination may appear on multiple
// rows, and queries return one result per matching row. IndexCols
// defines the canonical sort order, not a deduplication rule.
//
// A Table is safe for concurrent readers; appends must be serialized
// by the owner.
type Table struct {
	records []StatusRecord
}

// NewTable builds a table from already-constructed records, validating
// each one. Row order is preserved. The first invalid record aborts
// construction with its row index.
func NewTable(records ...StatusRecord) (*Table, error) {
	t := &Table{records: make([]StatusRecord, 0, len(records))}
	for i, rec := range records {
		if err := t.Append(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return t, nil
}

// FromMaps builds a table from raw field maps, applying the full
// two-phase construction (BIDS ID defaulting, then validation) to
// each row.
func FromMaps(rows []map[string]string) (*Table, error) {
	t := &Table{records: make([]StatusRecord, 0, len(rows))}
	for i, row := range rows {
		rec, err := NewRecord(row)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		t.records = append(t.records, rec)
	}
	return t, nil
}

// Append validates a record and adds it to the end of the table. No
// BIDS ID defaulting happens on this path; the record must already
// carry all eight fields.
func (t *Table) Append(rec StatusRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	t.records = append(t.records, rec)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns a copy of the rows in table order.
func (t *Table) Records() []StatusRecord {
	out := make([]StatusRecord, len(t.records))
	copy(out, t.records)
	return out
}

// indexKey is the IndexCols tuple for one record: everything except
// bids_session_id and status.
func indexKey(r StatusRecord) [6]string {
	return [6]string{
		r.ParticipantID,
		r.BIDSParticipantID,
		r.SessionID,
		r.PipelineName,
		r.PipelineVersion,
		r.PipelineStep,
	}
}

// SortForComparison orders the rows by IndexCols so that two ledgers
// holding the same rows compare equal regardless of ingestion order.
// The sort is stable: rows sharing an index key keep their relative
// order.
func (t *Table) SortForComparison() {
	sort.SliceStable(t.records, func(i, j int) bool {
		a, b := indexKey(t.records[i]), indexKey(t.records[j])
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
}

// CompletedPairs returns the (participant_id, session_id) pairs that
// have a SUCCESS row for the given pipeline name, version and step.
//
// A nil participantID builds the candidate set from every distinct
// participant currently in the table; a non-nil value restricts to
// exactly that participant. Likewise for sessionID.
//
// Pairs are yielded lazily in table row order, one per matching row,
// with no deduplication. Each call re-scans the table; re-iterating
// requires calling the method again.
func (t *Table) CompletedPairs(pipelineName, pipelineVersion, pipelineStep string, participantID, sessionID *string) iter.Seq2[string, string] {
	participantIDs := t.candidateSet(participantID, func(r StatusRecord) string { return r.ParticipantID })
	sessionIDs := t.candidateSet(sessionID, func(r StatusRecord) string { return r.SessionID })

	return func(yield func(string, string) bool) {
		for _, rec := range t.records {
			if rec.PipelineName != pipelineName ||
				rec.PipelineVersion != pipelineVersion ||
				rec.PipelineStep != pipelineStep {
				continue
			}
			if _, ok := participantIDs[rec.ParticipantID]; !ok {
				continue
			}
			if _, ok := sessionIDs[rec.SessionID]; !ok {
				continue
			}
			if rec.Status != StatusSuccess {
				continue
			}
			if !yield(rec.ParticipantID, rec.SessionID) {
				return
			}
		}
	}
}

func (t *Table) candidateSet(filter *string, field func(StatusRecord) string) map[string]struct{} {
	if filter != nil {
		return map[string]struct{}{*filter: {}}
	}
	set := make(map[string]struct{}, len(t.records))
	for _, rec := range t.records {
		set[field(rec)] = struct{}{}
	}
	return set
}
