package model

// Job types
type JobType string

const (
	JobTypeGenerate JobType = "generate"
	JobTypeValidate JobType = "validate"
	JobTypeLint     JobType = "lint"
	JobTypeExecute  JobType = "execute"
	JobTypeRefine   JobType = "refine"
)

var ValidJobTypes = []JobType{
	JobTypeGenerate, JobTypeValidate, JobTypeLint, JobTypeExecute, JobTypeRefine,
}

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether a job in this status can never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Execution status
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusSuccess   ExecutionStatus = "success"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether an execution in this status can never change again.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusSuccess || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// Playbook validation status
type PlaybookStatus string

const (
	PlaybookStatusUnknown PlaybookStatus = "unknown"
	PlaybookStatusValid   PlaybookStatus = "valid"
	PlaybookStatusInvalid PlaybookStatus = "invalid"
)

// Playbook categories detected by the generation service
type PlaybookType string

const (
	PlaybookTypeKubernetes PlaybookType = "kubernetes"
	PlaybookTypeDocker     PlaybookType = "docker"
	PlaybookTypeSystem     PlaybookType = "system"
	PlaybookTypeNetwork    PlaybookType = "network"
	PlaybookTypeDatabase   PlaybookType = "database"
	PlaybookTypeMonitoring PlaybookType = "monitoring"
	PlaybookTypeSecurity   PlaybookType = "security"
	PlaybookTypeCICD       PlaybookType = "cicd"
	PlaybookTypeGeneral    PlaybookType = "general"
)
