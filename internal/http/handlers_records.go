package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"trailhead/internal/identifier"
	"trailhead/internal/metrics"
	"trailhead/internal/statusledger"
	"trailhead/internal/store"
)

// recordCreateHandler appends a single ledger row. The payload is a
// flat JSON object keyed by column name; the BIDS ID columns may be
// omitted and are then derived from the raw IDs.
func recordCreateHandler(c *fiber.Ctx) error {
	var fields map[string]string
	if err := c.BodyParser(&fields); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}

	rec, err := statusledger.NewRecord(fields)
	if err != nil {
		metrics.RecordValidationFailure("api")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "INVALID_RECORD",
			Error:   err.Error(),
		})
	}

	st := c.Locals("store").(*store.Store)
	if err := st.InsertStatusRecord(c.Context(), rec, nil); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "RECORD_INSERT_FAILED",
			Error:   err.Error(),
		})
	}

	metrics.RecordIngested(rec.PipelineName, 1)

	if loggerVal := c.Locals("logger"); loggerVal != nil {
		if lg, ok := loggerVal.(interface{ Info(msg string, args ...any) }); ok {
			lg.Info("record appended",
				"participant_id", rec.ParticipantID,
				"session_id", rec.SessionID,
				"pipeline_name", rec.PipelineName,
				"status", string(rec.Status),
			)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(RecordResponse{Success: true, Data: rec})
}

// recordsListHandler lists ledger rows with optional exact-match
// filters. Rows come back in insertion order; sort=index returns the
// canonical IndexCols order instead.
func recordsListHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	filter := store.LedgerFilter{
		PipelineName:    optionalQuery(c, "pipelineName"),
		PipelineVersion: optionalQuery(c, "pipelineVersion"),
		PipelineStep:    optionalQuery(c, "pipelineStep"),
		ParticipantID:   idFilter(c.Query("participantId"), identifier.StripBIDSParticipantID),
		SessionID:       idFilter(c.Query("sessionId"), identifier.StripBIDSSessionID),
	}

	table, err := st.LoadLedger(c.Context(), filter)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "LEDGER_LOAD_FAILED",
			Error:   err.Error(),
		})
	}

	if c.Query("sort") == "index" {
		table.SortForComparison()
	}

	recs := table.Records()
	return c.JSON(RecordsListResponse{Success: true, Count: len(recs), Data: recs})
}

// optionalQuery returns nil for absent or empty query parameters so
// that "no filter" and "filter on empty string" cannot be confused.
func optionalQuery(c *fiber.Ctx, name string) *string {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	return &v
}

// idFilter normalizes a participant or session filter value. The
// ledger stores raw IDs, but callers often copy the BIDS form out of
// dataset paths, so both forms are accepted and matched against the
// raw column.
func idFilter(v string, strip func(string) string) *string {
	if v == "" {
		return nil
	}
	raw := strip(v)
	return &raw
}
