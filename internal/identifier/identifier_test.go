package identifier

import "testing"

func TestCheckParticipantID_Valid(t *testing.T) {
	for _, id := range []string{"01", "MNI0001", "participant1"} {
		if err := CheckParticipantID(id); err != nil {
			t.Fatalf("expected %q to be valid, got %v", id, err)
		}
	}
}

func TestCheckParticipantID_RejectsBIDSPrefix(t *testing.T) {
	if err := CheckParticipantID("sub-01"); err == nil {
		t.Fatalf("expected error for prefixed participant ID")
	}
}

func TestCheckParticipantID_RejectsNonAlphanumeric(t *testing.T) {
	for _, id := range []string{"", "p_1", "p 1", "p-1"} {
		if err := CheckParticipantID(id); err == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}

func TestCheckSessionID_RejectsBIDSPrefix(t *testing.T) {
	if err := CheckSessionID("ses-BL"); err == nil {
		t.Fatalf("expected error for prefixed session ID")
	}
	if err := CheckSessionID("BL"); err != nil {
		t.Fatalf("expected raw session ID to be valid, got %v", err)
	}
}

func TestToBIDSIDs(t *testing.T) {
	if got := ToBIDSParticipantID("01"); got != "sub-01" {
		t.Fatalf("expected sub-01, got %q", got)
	}
	if got := ToBIDSParticipantID("sub-01"); got != "sub-01" {
		t.Fatalf("expected idempotent conversion, got %q", got)
	}
	if got := ToBIDSSessionID("BL"); got != "ses-BL" {
		t.Fatalf("expected ses-BL, got %q", got)
	}
}

func TestStripBIDSIDs(t *testing.T) {
	if got := StripBIDSParticipantID("sub-01"); got != "01" {
		t.Fatalf("expected 01, got %q", got)
	}
	if got := StripBIDSSessionID("BL"); got != "BL" {
		t.Fatalf("expected unchanged ID, got %q", got)
	}
}
