package identifier

import (
	"fmt"
	"strings"
	"unicode"
)

// BIDS prefixes for the canonical participant and session ID forms.
// Raw IDs stored in the ledger never carry these; the BIDS columns
// always do.
const (
	BIDSParticipantPrefix = "sub-"
	BIDSSessionPrefix     = "ses-"
)

// CheckParticipantID validates a raw participant ID. Raw IDs must be
// non-empty, alphanumeric, and must not already carry the BIDS "sub-"
// prefix.
func CheckParticipantID(id string) error {
	return checkRawID("participant", id, BIDSParticipantPrefix)
}

// CheckSessionID validates a raw session ID. Same rules as participant
// IDs but with the "ses-" prefix.
func CheckSessionID(id string) error {
	return checkRawID("session", id, BIDSSessionPrefix)
}

func checkRawID(kind, id, prefix string) error {
	if id == "" {
		return fmt.Errorf("%s ID must not be empty", kind)
	}
	if strings.HasPrefix(id, prefix) {
		return fmt.Errorf("%s ID %q must not start with %q (use the raw ID; the BIDS form is derived)", kind, id, prefix)
	}
	if !isAlphanumeric(id) {
		return fmt.Errorf("%s ID %q must only contain alphanumeric characters", kind, id)
	}
	return nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ToBIDSParticipantID converts a raw participant ID to its BIDS form
// by adding the "sub-" prefix. The input is returned unchanged if it
// already carries the prefix.
func ToBIDSParticipantID(id string) string {
	if strings.HasPrefix(id, BIDSParticipantPrefix) {
		return id
	}
	return BIDSParticipantPrefix + id
}

// ToBIDSSessionID converts a raw session ID to its BIDS form by
// adding the "ses-" prefix.
func ToBIDSSessionID(id string) string {
	if strings.HasPrefix(id, BIDSSessionPrefix) {
		return id
	}
	return BIDSSessionPrefix + id
}

// StripBIDSParticipantID removes the "sub-" prefix if present. Query
// filters accept either form and are matched against the raw column.
func StripBIDSParticipantID(id string) string {
	return strings.TrimPrefix(id, BIDSParticipantPrefix)
}

// StripBIDSSessionID removes the "ses-" prefix if present. Same
// filter normalization role as StripBIDSParticipantID.
func StripBIDSSessionID(id string) string {
	return strings.TrimPrefix(id, BIDSSessionPrefix)
}
