package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/playbookpilot/api/internal/middleware"
	"github.com/playbookpilot/api/internal/model"
	"github.com/playbookpilot/api/internal/service"
	"github.com/playbookpilot/api/internal/store"
	"github.com/playbookpilot/api/pkg/response"
)

type PlaybookHandler struct {
	jobs      *service.JobService
	playbooks *service.PlaybookService
	validator *validator.Validate
}

func NewPlaybookHandler(jobs *service.JobService, playbooks *service.PlaybookService, v *validator.Validate) *PlaybookHandler {
	return &PlaybookHandler{
		jobs:      jobs,
		playbooks: playbooks,
		validator: v,
	}
}

// Generate handles POST /api/playbooks/generate
func (h *PlaybookHandler) Generate(c *fiber.Ctx) error {
	var req model.PlaybookGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.jobs.QueueGenerateJob(c.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, queuedJobResponse(job))
}

// Get handles GET /api/playbooks/:id
func (h *PlaybookHandler) Get(c *fiber.Ctx) error {
	playbookID := c.Params("id")
	if playbookID == "" {
		return response.ValidationError(c, "Playbook ID is required", nil)
	}

	playbook, err := h.playbooks.Get(c.Context(), playbookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Playbook not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, playbook)
}

// Validate handles POST /api/playbooks/:id/validate
func (h *PlaybookHandler) Validate(c *fiber.Ctx) error {
	playbookID := c.Params("id")
	if playbookID == "" {
		return response.ValidationError(c, "Playbook ID is required", nil)
	}

	job, err := h.jobs.QueueValidateJob(c.Context(), playbookID, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Playbook not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, queuedJobResponse(job))
}

// Lint handles POST /api/playbooks/:id/lint
func (h *PlaybookHandler) Lint(c *fiber.Ctx) error {
	playbookID := c.Params("id")
	if playbookID == "" {
		return response.ValidationError(c, "Playbook ID is required", nil)
	}

	var req model.PlaybookLintRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}

	job, err := h.jobs.QueueLintJob(c.Context(), playbookID, &req, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Playbook not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, queuedJobResponse(job))
}

// Execute handles POST /api/playbooks/:id/execute
func (h *PlaybookHandler) Execute(c *fiber.Ctx) error {
	playbookID := c.Params("id")
	if playbookID == "" {
		return response.ValidationError(c, "Playbook ID is required", nil)
	}

	var req model.PlaybookExecuteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, execution, err := h.jobs.QueueExecuteJob(c.Context(), playbookID, &req, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Playbook not found")
		}
		return response.ServiceError(c, err.Error())
	}

	resp := queuedJobResponse(job)
	resp.ExecutionID = &execution.ID
	return response.Accepted(c, resp)
}

// Refine handles POST /api/playbooks/:id/refine
func (h *PlaybookHandler) Refine(c *fiber.Ctx) error {
	playbookID := c.Params("id")
	if playbookID == "" {
		return response.ValidationError(c, "Playbook ID is required", nil)
	}

	var req model.PlaybookRefineRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.jobs.QueueRefineJob(c.Context(), playbookID, &req, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Playbook not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, queuedJobResponse(job))
}

func queuedJobResponse(job *model.Job) *model.QueuedJobResponse {
	return &model.QueuedJobResponse{
		JobID:       job.ID,
		Type:        job.Type,
		Status:      job.Status,
		ExecutionID: job.ExecutionID,
		PlaybookID:  job.PlaybookID,
		CreatedAt:   job.CreatedAt,
	}
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
