package task

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a workflow task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusExecuting  Status = "executing"
	StatusValidating Status = "validating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusAnalyzing,
	StatusExecuting,
	StatusValidating,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusAnalyzing:  {},
	StatusExecuting:  {},
	StatusValidating: {},
}

// OperationKind enumerates the supported image transformations.
type OperationKind string

const (
	OpUnknown      OperationKind = "unknown"
	OpRestore      OperationKind = "restore"
	OpRemoveRegion OperationKind = "remove_region"
	OpBeautify     OperationKind = "beautify"
	OpGenerate     OperationKind = "generate"
)

// OperationPriority is the fixed enumeration order used to break classifier
// ties and to iterate operations deterministically.
var OperationPriority = []OperationKind{OpRestore, OpRemoveRegion, OpBeautify, OpGenerate}

// DefaultOperation is applied when analysis cannot classify a request.
const DefaultOperation = OpRestore

// StageError records one stage failure, in the order failures occurred.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// State is the per-task workflow record threaded through the pipeline. One
// executing orchestrator owns a State at a time; pollers only ever see
// snapshots read back from the registry.
type State struct {
	ID          int64
	TaskID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserRequest string
	Operation   OperationKind
	InputRef    string
	OutputRef   string
	Status      Status
	Progress    int
	// Context carries stage-to-stage metadata. Stages append under their own
	// keys and never rewrite another stage's entries.
	Context map[string]any
	// Errors is always present and append-only; it is never lazily created.
	Errors          []StageError
	RetryCount      int
	MaxRetries      int
	NeedsReview     bool
	ReviewReason    string
	CancelRequested bool
	ErrorMessage    string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseOperation converts a string into a known OperationKind.
func ParseOperation(value string) (OperationKind, bool) {
	normalized := OperationKind(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case OpUnknown, OpRestore, OpRemoveRegion, OpBeautify, OpGenerate:
		return normalized, true
	default:
		return "", false
	}
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (s *State) IsProcessing() bool {
	_, ok := processingStatuses[s.Status]
	return ok
}

// IsTerminal reports whether the task reached a final status.
func (s *State) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// IsTerminalStatus reports whether a status is final.
func IsTerminalStatus(status Status) bool {
	return status == StatusCompleted || status == StatusFailed
}

// SetProgress advances progress, never moving backwards within a run.
func (s *State) SetProgress(percent int) {
	if percent > 100 {
		percent = 100
	}
	if percent > s.Progress {
		s.Progress = percent
	}
}

// SetContext stores a stage's metadata under key. Existing entries for other
// keys are untouched; callers own their keys and only append to them.
func (s *State) SetContext(key string, value any) {
	if s.Context == nil {
		s.Context = map[string]any{}
	}
	s.Context[key] = value
}

// ContextValue reads a stage metadata entry.
func (s *State) ContextValue(key string) (any, bool) {
	if s.Context == nil {
		return nil, false
	}
	v, ok := s.Context[key]
	return v, ok
}

// AppendError records a stage failure without changing status. Progress is
// left where the failing stage put it.
func (s *State) AppendError(stage, message, kind string) {
	s.Errors = append(s.Errors, StageError{Stage: stage, Message: message, Kind: kind})
}

// MarkFailed appends a stage error and moves the task to its terminal failed
// status. Progress is deliberately frozen at its last value.
func (s *State) MarkFailed(stage, message, kind string) {
	s.AppendError(stage, message, kind)
	s.Status = StatusFailed
	s.ErrorMessage = message
}

// MarkCompleted transitions the task to its terminal success status.
func (s *State) MarkCompleted() {
	s.Status = StatusCompleted
	s.Progress = 100
}

// LastError returns the most recent stage error, if any.
func (s *State) LastError() (StageError, bool) {
	if len(s.Errors) == 0 {
		return StageError{}, false
	}
	return s.Errors[len(s.Errors)-1], true
}

// Clone produces an independent snapshot safe to hand to pollers.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Context != nil {
		cp.Context = make(map[string]any, len(s.Context))
		for k, v := range s.Context {
			cp.Context[k] = v
		}
	}
	if s.Errors != nil {
		cp.Errors = append([]StageError{}, s.Errors...)
	}
	return &cp
}
