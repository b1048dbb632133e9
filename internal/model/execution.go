package model

import (
	"encoding/json"
	"time"
)

// Execution records one run of a playbook against the automation service.
// It is owned 1:1 by an execute-type Job but independently queryable.
type Execution struct {
	ID              string          `json:"id"`
	PlaybookID      string          `json:"playbookId"`
	Status          ExecutionStatus `json:"status"`
	Inventory       string          `json:"inventory"`
	ExtraVars       map[string]any  `json:"extraVars,omitempty"`
	CheckMode       bool            `json:"checkMode"`
	Tags            []string        `json:"tags,omitempty"`
	Command         string          `json:"command,omitempty"`
	Output          string          `json:"output,omitempty"`
	Error           *string         `json:"error,omitempty"`
	Stats           json.RawMessage `json:"stats,omitempty"`
	ExecutedBy      string          `json:"executedById,omitempty"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	DurationSeconds float64         `json:"durationSeconds,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Terminal reports whether the execution reached a final state.
func (e *Execution) Terminal() bool {
	return e.Status.Terminal()
}
