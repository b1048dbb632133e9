package model

import "time"

// Notification event types
type EventType string

const (
	EventTypeProgress EventType = "progress"
	EventTypeResult   EventType = "result"
)

// Event is the envelope published to notification channel subscribers.
type Event struct {
	Type        EventType   `json:"type"`
	Channel     string      `json:"channel"`
	JobID       string      `json:"jobId,omitempty"`
	ExecutionID string      `json:"executionId,omitempty"`
	Progress    *int        `json:"progress,omitempty"`
	Status      string      `json:"status"`
	Result      interface{} `json:"result,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// JobChannel names the notification channel for one job.
func JobChannel(jobID string) string { return "job:" + jobID }

// ExecutionChannel names the notification channel for one execution.
func ExecutionChannel(executionID string) string { return "execution:" + executionID }

// PlaybookChannel names the notification channel for one playbook.
func PlaybookChannel(playbookID string) string { return "playbook:" + playbookID }
