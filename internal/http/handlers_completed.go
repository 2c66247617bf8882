package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"trailhead/internal/identifier"
	"trailhead/internal/store"
)

// completedHandler answers the completion query: which participant/
// session pairs have a SUCCESS row for the given pipeline step.
//
// pipelineName, pipelineVersion and pipelineStep are required exact
// matches. participantId and sessionId are optional; when omitted the
// candidate set is every distinct value currently in the ledger, so
// the whole stored ledger is loaded and the query runs through the
// in-memory table to keep those semantics in one place.
func completedHandler(c *fiber.Ctx) error {
	pipelineName := c.Query("pipelineName")
	pipelineVersion := c.Query("pipelineVersion")
	pipelineStep := c.Query("pipelineStep")

	if pipelineName == "" || pipelineVersion == "" || pipelineStep == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "pipelineName, pipelineVersion and pipelineStep are required",
		})
	}

	participantID := idFilter(c.Query("participantId"), identifier.StripBIDSParticipantID)
	sessionID := idFilter(c.Query("sessionId"), identifier.StripBIDSSessionID)

	st := c.Locals("store").(*store.Store)
	table, err := st.LoadLedger(c.Context(), store.LedgerFilter{})
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "LEDGER_LOAD_FAILED",
			Error:   err.Error(),
		})
	}

	pairs := []CompletedPair{}
	for p, s := range table.CompletedPairs(pipelineName, pipelineVersion, pipelineStep, participantID, sessionID) {
		pairs = append(pairs, CompletedPair{ParticipantID: p, SessionID: s})
	}

	return c.JSON(CompletedResponse{Success: true, Count: len(pairs), Data: pairs})
}
