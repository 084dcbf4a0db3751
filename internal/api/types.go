// Package api provides transport-friendly views of task state shared by the
// HTTP server and the CLI.
package api

// Task describes a workflow task in a transport-friendly format.
type Task struct {
	ID           int64          `json:"id"`
	TaskID       string         `json:"task_id"`
	UserRequest  string         `json:"user_request"`
	Operation    string         `json:"operation"`
	InputRef     string         `json:"input_ref,omitempty"`
	OutputRef    string         `json:"output_ref,omitempty"`
	Status       string         `json:"status"`
	Progress     int            `json:"progress"`
	Context      map[string]any `json:"context,omitempty"`
	Errors       []StageError   `json:"errors"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	NeedsReview  bool           `json:"needs_review"`
	ReviewReason string         `json:"review_reason,omitempty"`
	ErrorMessage string         `json:"error,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	UpdatedAt    string         `json:"updated_at,omitempty"`
}

// StageError mirrors one recorded stage failure.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// EngineStatus summarizes background execution state.
type EngineStatus struct {
	Running     bool           `json:"running"`
	Mode        string         `json:"mode"`
	LastError   string         `json:"last_error,omitempty"`
	LastTask    *Task          `json:"last_task,omitempty"`
	QueueStats  map[string]int `json:"queue_stats"`
	StageHealth []StageHealth  `json:"stage_health"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	DatabasePath string       `json:"database_path"`
	LockFilePath string       `json:"lock_file_path"`
	Engine       EngineStatus `json:"engine"`
}

// SubmitRequest is the POST body for creating a task.
type SubmitRequest struct {
	UserRequest string `json:"user_request"`
	InputRef    string `json:"input_ref,omitempty"`
	Operation   string `json:"operation,omitempty"`
	MaxRetries  int    `json:"max_retries,omitempty"`
}

// SubmitResponse acknowledges a created task.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskListResponse wraps a collection of tasks for API responses.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task Task `json:"task"`
}
