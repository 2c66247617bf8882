package http

import (
	"time"

	"trailhead/internal/statusledger"
)

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// RecordResponse wraps a single accepted ledger row.
type RecordResponse struct {
	Success bool                      `json:"success"`
	Data    statusledger.StatusRecord `json:"data"`
}

// RecordsListResponse wraps a ledger listing.
type RecordsListResponse struct {
	Success bool                        `json:"success"`
	Count   int                         `json:"count"`
	Data    []statusledger.StatusRecord `json:"data"`
}

// CompletedPair is one (participant, session) pair with a SUCCESS row
// for the queried pipeline step.
type CompletedPair struct {
	ParticipantID string `json:"participantId"`
	SessionID     string `json:"sessionId"`
}

// CompletedResponse wraps the completion query result. Pairs appear in
// ledger row order, one per matching row.
type CompletedResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Data    []CompletedPair `json:"data"`
}

// ImportJobView is the API shape of an import job.
type ImportJobView struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	RecordCount int32     `json:"recordCount"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ImportResponse wraps a single import job.
type ImportResponse struct {
	Success bool          `json:"success"`
	Data    ImportJobView `json:"data"`
}

// ImportsListResponse wraps an import job listing.
type ImportsListResponse struct {
	Success bool            `json:"success"`
	Data    []ImportJobView `json:"data"`
}

// APIKeyView is the API shape of a stored key. The raw key appears
// only in the creation response and is never retrievable again.
type APIKeyView struct {
	ID                 string    `json:"id"`
	Label              string    `json:"label"`
	IsAdmin            bool      `json:"isAdmin"`
	RateLimitPerMinute *int32    `json:"rateLimitPerMinute,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	Revoked            bool      `json:"revoked"`
}

// APIKeyCreateRequest is the admin key-creation payload.
type APIKeyCreateRequest struct {
	Label              string `json:"label"`
	IsAdmin            bool   `json:"isAdmin"`
	RateLimitPerMinute *int   `json:"rateLimitPerMinute,omitempty"`
}

// APIKeyCreateResponse includes the raw key exactly once.
type APIKeyCreateResponse struct {
	Success bool       `json:"success"`
	Key     string     `json:"key"`
	Data    APIKeyView `json:"data"`
}

// APIKeysListResponse wraps a key listing.
type APIKeysListResponse struct {
	Success bool         `json:"success"`
	Data    []APIKeyView `json:"data"`
}
