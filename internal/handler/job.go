package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/playbookpilot/api/internal/model"
	"github.com/playbookpilot/api/internal/service"
	"github.com/playbookpilot/api/internal/store"
	"github.com/playbookpilot/api/pkg/response"
)

type JobHandler struct {
	service *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{service: svc}
}

// Status handles GET /api/jobs/:jobId
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.GetJob(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, &model.JobStatusResponse{
		JobID:       job.ID,
		Type:        job.Type,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		ExecutionID: job.ExecutionID,
		PlaybookID:  job.PlaybookID,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	})
}

// Result handles GET /api/jobs/:jobId/result
func (h *JobHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetJobResult(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if err.Error() == "job not completed" {
			return response.ValidationError(c, "Job not completed yet", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	c.Set("Content-Type", "application/json")
	return c.Send(result)
}

// Cancel handles POST /api/jobs/:jobId/cancel
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.CancelJob(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, service.ErrJobFinished) {
			return response.ValidationError(c, "Job already finished", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, &model.JobCancelResponse{
		Success: true,
		JobID:   job.ID,
		Status:  job.Status,
	})
}

// Execution handles GET /api/executions/:id
func (h *JobHandler) Execution(c *fiber.Ctx) error {
	executionID := c.Params("id")
	if executionID == "" {
		return response.ValidationError(c, "Execution ID is required", nil)
	}

	execution, err := h.service.GetExecution(c.Context(), executionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Execution not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, execution)
}

// CancelExecution handles POST /api/executions/:id/cancel
func (h *JobHandler) CancelExecution(c *fiber.Ctx) error {
	executionID := c.Params("id")
	if executionID == "" {
		return response.ValidationError(c, "Execution ID is required", nil)
	}

	execution, err := h.service.CancelExecution(c.Context(), executionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Execution not found")
		}
		if errors.Is(err, service.ErrExecutionFinished) {
			return response.ValidationError(c, "Execution already finished", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, &model.ExecutionCancelResponse{
		Success:     true,
		ExecutionID: execution.ID,
		Status:      execution.Status,
	})
}
