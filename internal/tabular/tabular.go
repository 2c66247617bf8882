// Package tabular reads and writes status ledger files. Ledgers are
// tab-separated text tables with a header row; this is the on-disk
// interchange format produced by the pipeline trackers.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"trailhead/internal/statusledger"
)

// Read parses a ledger TSV into a validated table.
//
// The header must contain the six required columns; the two BIDS ID
// columns are optional and are derived per-row when absent. Unknown
// columns are rejected so that typos in tracker output fail loudly
// instead of silently dropping data. Row order is preserved.
func Read(r io.Reader) (*statusledger.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty ledger: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			fields[col] = record[i]
		}
		rows = append(rows, fields)
	}

	table, err := statusledger.FromMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return table, nil
}

func checkHeader(header []string) error {
	known := make(map[string]struct{})
	for _, col := range statusledger.Columns() {
		known[col] = struct{}{}
	}

	seen := make(map[string]struct{}, len(header))
	for _, col := range header {
		if _, ok := known[col]; !ok {
			return fmt.Errorf("unknown column %q, expected a subset of %v", col, statusledger.Columns())
		}
		if _, dup := seen[col]; dup {
			return fmt.Errorf("duplicate column %q", col)
		}
		seen[col] = struct{}{}
	}

	// Only the BIDS ID columns may be omitted.
	for _, col := range statusledger.Columns() {
		if col == statusledger.ColBIDSParticipantID || col == statusledger.ColBIDSSessionID {
			continue
		}
		if _, ok := seen[col]; !ok {
			return fmt.Errorf("missing required column %q", col)
		}
	}
	return nil
}

// Write serializes a table as TSV with the canonical header. Rows are
// written in table order; callers wanting the canonical order should
// call SortForComparison first.
func Write(w io.Writer, table *statusledger.Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(statusledger.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range table.Records() {
		fields := rec.Fields()
		row := make([]string, 0, len(fields))
		for _, col := range statusledger.Columns() {
			row = append(row, fields[col])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
