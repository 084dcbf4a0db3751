package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind labels a failure category for logging and stage error records.
type ErrorKind string

const (
	ErrorKindAnalysis      ErrorKind = "analysis"
	ErrorKindNotFound      ErrorKind = "not_found"
	ErrorKindProvider      ErrorKind = "provider"
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindOutputMissing ErrorKind = "output_missing"
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindTransient     ErrorKind = "transient"
)

var (
	// ErrAnalysis marks recoverable analysis failures; stages self-heal with defaults.
	ErrAnalysis = errors.New("analysis error")
	// ErrNotFound marks missing input artifacts; fatal to the current attempt.
	ErrNotFound = errors.New("not found")
	// ErrProvider marks hosted inference failures; fatal once the fallback chain is exhausted.
	ErrProvider = errors.New("provider error")
	// ErrValidation marks quality-check failures on produced output.
	ErrValidation = errors.New("validation error")
	// ErrOutputMissing marks an execute stage that finished without producing output.
	ErrOutputMissing = errors.New("output missing")
	// ErrConfiguration marks invalid or incomplete configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures with no more specific classification.
	ErrTransient = errors.New("transient failure")
)

var kindByMarker = []struct {
	marker error
	kind   ErrorKind
}{
	{ErrAnalysis, ErrorKindAnalysis},
	{ErrNotFound, ErrorKindNotFound},
	{ErrProvider, ErrorKindProvider},
	{ErrValidation, ErrorKindValidation},
	{ErrOutputMissing, ErrorKindOutputMissing},
	{ErrConfiguration, ErrorKindConfiguration},
	{ErrTransient, ErrorKindTransient},
}

// ErrorDetails carries the structured fields extracted from a wrapped stage error.
type ErrorDetails struct {
	Kind      ErrorKind
	Stage     string
	Operation string
	Message   string
	Cause     error
}

type serviceError struct {
	marker    error
	stage     string
	operation string
	message   string
	cause     error
}

func (e *serviceError) Error() string {
	detail := buildDetail(e.stage, e.operation, e.message)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.marker.Error(), detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.marker.Error(), detail)
}

func (e *serviceError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return e.marker
}

func (e *serviceError) Is(target error) bool {
	return target == e.marker
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &serviceError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

// Kind maps an error to its classification, defaulting to transient.
func Kind(err error) ErrorKind {
	for _, entry := range kindByMarker {
		if errors.Is(err, entry.marker) {
			return entry.kind
		}
	}
	return ErrorKindTransient
}

// Details extracts structured failure fields from err. Errors that were not
// produced by Wrap still yield a usable Message and Kind.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: ErrorKindTransient}
	}
	var svcErr *serviceError
	if errors.As(err, &svcErr) {
		message := svcErr.message
		if message == "" && svcErr.cause != nil {
			message = svcErr.cause.Error()
		}
		return ErrorDetails{
			Kind:      Kind(err),
			Stage:     svcErr.stage,
			Operation: svcErr.operation,
			Message:   message,
			Cause:     svcErr.cause,
		}
	}
	return ErrorDetails{Kind: Kind(err), Message: err.Error(), Cause: err}
}

// IsFatal reports whether an error should end the current pipeline attempt.
// Analysis failures are recoverable; every other classified failure is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrAnalysis)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
