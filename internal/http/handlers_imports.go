package http

import (
	"bytes"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"trailhead/internal/jobs"
	"trailhead/internal/metrics"
	"trailhead/internal/statusledger"
	"trailhead/internal/store"
	"trailhead/internal/tabular"
)

// importCreateHandler ingests a whole ledger TSV in one request. The
// body is parsed and validated up front; only a fully valid ledger
// creates rows, under a single import job.
func importCreateHandler(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Missing TSV request body",
		})
	}

	table, err := tabular.Read(bytes.NewReader(body))
	if err != nil {
		metrics.RecordValidationFailure("import")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "INVALID_LEDGER",
			Error:   err.Error(),
		})
	}

	st := c.Locals("store").(*store.Store)

	source := c.Query("source")
	if source == "" {
		source = "api"
	}

	id := func() uuid.UUID {
		if id, err := uuid.NewV7(); err == nil {
			return id
		}
		return uuid.New()
	}()

	job, err := st.CreateImportJob(c.Context(), id, source, string(jobs.StatusPending))
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "IMPORT_JOB_CREATE_FAILED",
			Error:   err.Error(),
		})
	}

	recs := table.Records()
	if err := st.InsertStatusRecords(c.Context(), recs, job.ID); err != nil {
		msg := err.Error()
		_ = st.UpdateImportJobStatus(c.Context(), job.ID, string(jobs.StatusFailed), 0, &msg)
		metrics.RecordImport("failed")
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "IMPORT_FAILED",
			Error:   msg,
		})
	}

	if err := st.UpdateImportJobStatus(c.Context(), job.ID, string(jobs.StatusCompleted), int32(len(recs)), nil); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "IMPORT_JOB_UPDATE_FAILED",
			Error:   err.Error(),
		})
	}

	metrics.RecordImport("completed")
	for name, count := range countByPipeline(recs) {
		metrics.RecordIngested(name, count)
	}

	if loggerVal := c.Locals("logger"); loggerVal != nil {
		if lg, ok := loggerVal.(interface{ Info(msg string, args ...any) }); ok {
			lg.Info("ledger imported", "import_id", job.ID.String(), "records", len(recs), "source", source)
		}
	}

	job.Status = string(jobs.StatusCompleted)
	job.RecordCount = int32(len(recs))
	return c.Status(fiber.StatusCreated).JSON(ImportResponse{Success: true, Data: importJobView(job)})
}

func importDetailHandler(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Invalid import job id",
		})
	}

	st := c.Locals("store").(*store.Store)
	job, err := st.GetImportJob(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "Import job not found",
		})
	}

	return c.JSON(ImportResponse{Success: true, Data: importJobView(job)})
}

func importsListHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	limit := int32(c.QueryInt("limit", 50))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	list, err := st.ListImportJobs(c.Context(), limit)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "IMPORT_LIST_FAILED",
			Error:   err.Error(),
		})
	}

	views := make([]ImportJobView, 0, len(list))
	for _, job := range list {
		views = append(views, importJobView(job))
	}
	return c.JSON(ImportsListResponse{Success: true, Data: views})
}

func countByPipeline(recs []statusledger.StatusRecord) map[string]int64 {
	counts := make(map[string]int64)
	for _, rec := range recs {
		counts[rec.PipelineName]++
	}
	return counts
}

func importJobView(job store.ImportJob) ImportJobView {
	view := ImportJobView{
		ID:          job.ID.String(),
		Source:      job.Source,
		Status:      job.Status,
		RecordCount: job.RecordCount,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	if job.Error.Valid {
		view.Error = job.Error.String
	}
	return view
}
