package model

import (
	"encoding/json"
	"time"
)

// PlaybookGenerateRequest starts a generate job
type PlaybookGenerateRequest struct {
	Prompt      string   `json:"prompt" validate:"required,min=4"`
	Name        string   `json:"name,omitempty" validate:"omitempty,max=128"`
	Template    string   `json:"template,omitempty"`
	TargetHosts string   `json:"targetHosts,omitempty"`
	Environment string   `json:"environment,omitempty" validate:"omitempty,oneof=production staging development"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,max=16,dive,max=64"`
}

// PlaybookLintRequest starts a lint job
type PlaybookLintRequest struct {
	Profile string `json:"profile,omitempty" validate:"omitempty,oneof=min basic moderate safety shared production"`
}

// PlaybookExecuteRequest starts an execute job
type PlaybookExecuteRequest struct {
	Inventory string         `json:"inventory" validate:"required"`
	ExtraVars map[string]any `json:"extraVars,omitempty"`
	Limit     string         `json:"limit,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	SkipTags  []string       `json:"skipTags,omitempty"`
	CheckMode bool           `json:"checkMode,omitempty"`
	DiffMode  bool           `json:"diffMode,omitempty"`
	Verbosity int            `json:"verbosity,omitempty" validate:"omitempty,min=0,max=4"`
}

// PlaybookRefineRequest starts a refine job
type PlaybookRefineRequest struct {
	Instructions string `json:"instructions" validate:"required,min=4"`
}

// QueuedJobResponse is returned by every enqueue endpoint
type QueuedJobResponse struct {
	JobID       string    `json:"jobId"`
	Type        JobType   `json:"type"`
	Status      JobStatus `json:"status"`
	ExecutionID *string   `json:"executionId,omitempty"`
	PlaybookID  *string   `json:"playbookId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// JobStatusResponse reports the current state of a job
type JobStatusResponse struct {
	JobID       string     `json:"jobId"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	ExecutionID *string    `json:"executionId,omitempty"`
	PlaybookID  *string    `json:"playbookId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// JobCancelResponse confirms a cancellation
type JobCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}

// ExecutionCancelResponse confirms an execution cancellation
type ExecutionCancelResponse struct {
	Success     bool            `json:"success"`
	ExecutionID string          `json:"executionId"`
	Status      ExecutionStatus `json:"status"`
}

// Job results stored on completion, one shape per job type.

// GenerateJobResult is the result payload of a completed generate job
type GenerateJobResult struct {
	PlaybookID  string           `json:"playbookId"`
	Content     string           `json:"content"`
	ContentType string           `json:"contentType,omitempty"`
	Type        PlaybookType     `json:"playbookType"`
	Validation  ValidationReport `json:"validation"`
}

// ValidateJobResult is the result payload of a completed validate job
type ValidateJobResult struct {
	PlaybookID  string   `json:"playbookId"`
	Valid       bool     `json:"valid"`
	YAMLValid   bool     `json:"yamlValid"`
	SyntaxValid bool     `json:"syntaxValid"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// LintJobResult is the result payload of a completed lint job
type LintJobResult struct {
	PlaybookID string      `json:"playbookId"`
	Passed     bool        `json:"passed"`
	Issues     []LintIssue `json:"issues,omitempty"`
	Summary    string      `json:"summary,omitempty"`
}

// LintIssue is one finding reported by the linter
type LintIssue struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

// ExecuteJobResult is the result payload of a completed execute job
type ExecuteJobResult struct {
	ExecutionID     string          `json:"executionId"`
	PlaybookID      string          `json:"playbookId"`
	Success         bool            `json:"success"`
	Stats           json.RawMessage `json:"stats,omitempty"`
	DurationSeconds float64         `json:"durationSeconds,omitempty"`
}

// RefineJobResult is the result payload of a completed refine job
type RefineJobResult struct {
	PlaybookID string           `json:"playbookId"`
	Version    int64            `json:"version"`
	Content    string           `json:"content"`
	Validation ValidationReport `json:"validation"`
}

// ValidationReport summarizes the generation service's validation pass
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}
