package statusledger

import "testing"

func mustRecord(t *testing.T, participant, session, name, version, step string, status Status) StatusRecord {
	t.Helper()
	rec, err := NewRecord(map[string]string{
		ColParticipantID:   participant,
		ColSessionID:       session,
		ColPipelineName:    name,
		ColPipelineVersion: version,
		ColPipelineStep:    step,
		ColStatus:          string(status),
	})
	if err != nil {
		t.Fatalf("NewRecord error: %v", err)
	}
	return rec
}

type pair struct{ participant, session string }

func collect(seq func(yield func(string, string) bool)) []pair {
	var out []pair
	seq(func(p, s string) bool {
		out = append(out, pair{p, s})
		return true
	})
	return out
}

func testTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(
		mustRecord(t, "p1", "s1", "pipeA", "v1", "stepX", StatusSuccess),
		mustRecord(t, "p1", "s2", "pipeA", "v1", "stepX", StatusFail),
		mustRecord(t, "p2", "s1", "pipeA", "v1", "stepX", StatusSuccess),
	)
	if err != nil {
		t.Fatalf("NewTable error: %v", err)
	}
	return tbl
}

func TestCompletedPairs_NoFilters(t *testing.T) {
	tbl := testTable(t)

	got := collect(tbl.CompletedPairs("pipeA", "v1", "stepX", nil, nil))
	want := []pair{{"p1", "s1"}, {"p2", "s1"}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pair %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestCompletedPairs_ParticipantFilter(t *testing.T) {
	tbl := testTable(t)

	p := "p1"
	got := collect(tbl.CompletedPairs("pipeA", "v1", "stepX", &p, nil))
	if len(got) != 1 || got[0] != (pair{"p1", "s1"}) {
		t.Fatalf("expected [{p1 s1}], got %v", got)
	}
}

func TestCompletedPairs_SessionFilter(t *testing.T) {
	tbl := testTable(t)

	s := "s1"
	got := collect(tbl.CompletedPairs("pipeA", "v1", "stepX", nil, &s))
	want := []pair{{"p1", "s1"}, {"p2", "s1"}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCompletedPairs_StepMismatchYieldsNothing(t *testing.T) {
	tbl := testTable(t)

	if got := collect(tbl.CompletedPairs("pipeA", "v1", "stepY", nil, nil)); len(got) != 0 {
		t.Fatalf("expected empty result for mismatched step, got %v", got)
	}
	if got := collect(tbl.CompletedPairs("pipeA", "v2", "stepX", nil, nil)); len(got) != 0 {
		t.Fatalf("expected empty result for mismatched version, got %v", got)
	}
}

func TestCompletedPairs_OnlySuccessCounts(t *testing.T) {
	tbl, err := NewTable(
		mustRecord(t, "p1", "s1", "pipeA", "v1", "stepX", StatusIncomplete),
		mustRecord(t, "p1", "s1", "pipeA", "v1", "stepX", StatusUnavailable),
	)
	if err != nil {
		t.Fatalf("NewTable error: %v", err)
	}
	if got := collect(tbl.CompletedPairs("pipeA", "v1", "stepX", nil, nil)); len(got) != 0 {
		t.Fatalf("expected no pairs for non-SUCCESS rows, got %v", got)
	}
}

func TestCompletedPairs_NoDeduplication(t *testing.T) {
	tbl, err := NewTable(
		mustRecord(t, "p1", "s1", "pipeA", "v1", "stepX", StatusSuccess),
		mustRecord(t, "p1", "s1", "pipeA", "v1", "stepX", StatusSuccess),
	)
	if err != nil {
		t.Fatalf("NewTable error: %v", err)
	}
	if got := collect(tbl.CompletedPairs("pipeA", "v1", "stepX", nil, nil)); len(got) != 2 {
		t.Fatalf("expected one pair per matching row, got %v", got)
	}
}

func TestCompletedPairs_Idempotent(t *testing.T) {
	tbl := testTable(t)

	first := collect(tbl.CompletedPairs("pipeA", "v1", "stepX", nil, nil))
	second := collect(tbl.CompletedPairs("pipeA", "v1", "stepX", nil, nil))
	if len(first) != len(second) {
		t.Fatalf("expected identical results, got %v then %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("pair %d differs between calls: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestCompletedPairs_EarlyStop(t *testing.T) {
	tbl := testTable(t)

	count := 0
	tbl.CompletedPairs("pipeA", "v1", "stepX", nil, nil)(func(p, s string) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("expected iteration to stop after first pair, got %d", count)
	}
}

func TestSortForComparison(t *testing.T) {
	tbl, err := NewTable(
		mustRecord(t, "p2", "s1", "pipeA", "v1", "stepX", StatusSuccess),
		mustRecord(t, "p1", "s2", "pipeB", "v1", "stepX", StatusFail),
		mustRecord(t, "p1", "s1", "pipeA", "v1", "stepX", StatusSuccess),
	)
	if err != nil {
		t.Fatalf("NewTable error: %v", err)
	}

	tbl.SortForComparison()
	recs := tbl.Records()
	if recs[0].ParticipantID != "p1" || recs[0].SessionID != "s1" {
		t.Fatalf("expected p1/s1 first, got %s/%s", recs[0].ParticipantID, recs[0].SessionID)
	}
	if recs[1].ParticipantID != "p1" || recs[1].PipelineName != "pipeB" {
		t.Fatalf("expected p1/pipeB second, got %s/%s", recs[1].ParticipantID, recs[1].PipelineName)
	}
	if recs[2].ParticipantID != "p2" {
		t.Fatalf("expected p2 last, got %s", recs[2].ParticipantID)
	}
}

func TestAppend_RejectsInvalidRecord(t *testing.T) {
	tbl, err := NewTable()
	if err != nil {
		t.Fatalf("NewTable error: %v", err)
	}
	err = tbl.Append(StatusRecord{ParticipantID: "p1", SessionID: "s1", Status: "BOGUS"})
	if err == nil {
		t.Fatalf("expected append of invalid record to fail")
	}
	if tbl.Len() != 0 {
		t.Fatalf("failed append must not grow the table")
	}
}

func TestFromMaps_RowErrorNamesIndex(t *testing.T) {
	rows := []map[string]string{
		{
			ColParticipantID: "p1", ColSessionID: "s1",
			ColPipelineName: "pipeA", ColPipelineVersion: "v1",
			ColPipelineStep: "stepX", ColStatus: "SUCCESS",
		},
		{
			ColParticipantID: "p2", ColSessionID: "s1",
			ColPipelineName: "pipeA", ColPipelineVersion: "v1",
			ColPipelineStep: "stepX", ColStatus: "NOPE",
		},
	}
	_, err := FromMaps(rows)
	if err == nil {
		t.Fatalf("expected error for invalid second row")
	}
}
