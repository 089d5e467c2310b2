package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/upgrowplan/upgrowplan/internal/logger"
	"github.com/upgrowplan/upgrowplan/internal/sandbox"
	"github.com/upgrowplan/upgrowplan/pkg/api/v1/routes"
	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// JobHandler serves the job routes from a sandbox store
type JobHandler struct {
	store *sandbox.Store
}

var _ routes.JobHandler = (*JobHandler)(nil)

// NewJobHandler creates a JobHandler backed by store
func NewJobHandler(store *sandbox.Store) *JobHandler {
	return &JobHandler{
		store: store,
	}
}

// SubmitJob creates a job in the collection named by the route
func (h *JobHandler) SubmitJob(c *fiber.Ctx) error {
	collection := c.Params(routes.ParamCollection)

	var req jobs.SubmitRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, SlugInvalidInput, ErrMsgInvalidReqBody)
		}
	}

	job, err := h.store.Submit(collection, req.Params)
	if err != nil {
		return h.storeError(c, err)
	}

	logger.InfoWithFields("Job submitted", map[string]interface{}{
		"collection": collection,
		"job_id":     job["id"],
	})
	return c.Status(fiber.StatusCreated).JSON(job)
}

// GetJob returns the job status, advancing the simulation by one step
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	id := c.Params(routes.ParamID)
	if id == "" {
		return errorResponse(c, fiber.StatusBadRequest, SlugInvalidInput, ErrMsgJobIDRequired)
	}

	job, err := h.store.Advance(c.Params(routes.ParamCollection), jobs.JobID(id))
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(job)
}

// GetJobResult returns the result payload of a completed job
func (h *JobHandler) GetJobResult(c *fiber.Ctx) error {
	result, err := h.store.Result(
		c.Params(routes.ParamCollection),
		jobs.JobID(c.Params(routes.ParamID)),
		c.Params(routes.ParamResult),
	)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(result)
}

func (h *JobHandler) storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, jobs.ErrUnknownKind):
		return errorResponse(c, fiber.StatusNotFound, SlugNotFound, ErrMsgUnknownKind)
	case errors.Is(err, sandbox.ErrNotFound):
		return errorResponse(c, fiber.StatusNotFound, SlugNotFound, ErrMsgJobNotFound)
	case errors.Is(err, sandbox.ErrBadResult):
		return errorResponse(c, fiber.StatusNotFound, SlugNotFound, ErrMsgUnknownResult)
	case errors.Is(err, sandbox.ErrNotReady):
		logger.Debugf("Result requested early: %v", err)
		return errorResponse(c, fiber.StatusConflict, SlugConflict, ErrMsgResultNotReady)
	case errors.Is(err, sandbox.ErrUnavailable):
		return errorResponse(c, fiber.StatusServiceUnavailable, SlugUnavailable, ErrMsgUnavailable)
	case errors.Is(err, sandbox.ErrBadScenario):
		logger.Debugf("Rejected scenario: %v", err)
		return errorResponse(c, fiber.StatusUnprocessableEntity, SlugInvalidInput, ErrMsgInvalidScenario)
	default:
		logger.Errorf("❌ Sandbox error: %v", err)
		return errorResponse(c, fiber.StatusInternalServerError, SlugServerError, err.Error())
	}
}

func errorResponse(c *fiber.Ctx, status int, slug, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   slug,
		"message": message,
		"status":  status,
	})
}
