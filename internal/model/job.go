package model

import (
	"encoding/json"
	"time"
)

// Job represents one unit of orchestrated background work.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *string         `json:"error,omitempty"`
	ExecutionID *string         `json:"executionId,omitempty"`
	PlaybookID  *string         `json:"playbookId,omitempty"`
	CreatedBy   string          `json:"createdById,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return j.Status.Terminal()
}

// TaskEnvelope is the wire format of a queued task message.
type TaskEnvelope struct {
	JobID   string          `json:"jobId"`
	Payload json.RawMessage `json:"payload"`
}

// GenerateJobPayload contains the data for a generate job
type GenerateJobPayload struct {
	Prompt      string   `json:"prompt"`
	Template    string   `json:"template,omitempty"`
	Name        string   `json:"name,omitempty"`
	TargetHosts string   `json:"targetHosts,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ValidateJobPayload contains the data for a validate job
type ValidateJobPayload struct {
	PlaybookID string `json:"playbookId"`
}

// LintJobPayload contains the data for a lint job
type LintJobPayload struct {
	PlaybookID string `json:"playbookId"`
	Profile    string `json:"profile,omitempty"`
}

// ExecuteJobPayload contains the data for an execute job
type ExecuteJobPayload struct {
	PlaybookID  string         `json:"playbookId"`
	ExecutionID string         `json:"executionId"`
	Inventory   string         `json:"inventory"`
	ExtraVars   map[string]any `json:"extraVars,omitempty"`
	Limit       string         `json:"limit,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	SkipTags    []string       `json:"skipTags,omitempty"`
	CheckMode   bool           `json:"checkMode,omitempty"`
	DiffMode    bool           `json:"diffMode,omitempty"`
	Verbosity   int            `json:"verbosity,omitempty"`
}

// RefineJobPayload contains the data for a refine job
type RefineJobPayload struct {
	PlaybookID   string `json:"playbookId"`
	Instructions string `json:"instructions"`
}
