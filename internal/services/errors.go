package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidPath        = errors.New("invalid path")
	ErrMoveFailed         = errors.New("move failed")
	ErrMissingSource      = errors.New("missing source")
	ErrToolUnavailable    = errors.New("tool unavailable")
	ErrProcessingFailed   = errors.New("processing failed")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidResponse    = errors.New("invalid response")
	ErrAlreadyRunning     = errors.New("already running")
	ErrValidation         = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProcessingFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// CodedError carries a caller-visible error code that does not map onto one of
// the sentinel markers (for example an upstream HTTP status).
type CodedError struct {
	Code string
	Err  error
}

func (e *CodedError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

// WithCode attaches an explicit error code to err.
func WithCode(code string, err error) error {
	return &CodedError{Code: strings.TrimSpace(code), Err: err}
}

// Code maps an error to the stable snake_case code reported to API callers and
// recorded on ledger records.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var coded *CodedError
	if errors.As(err, &coded) && coded.Code != "" {
		return coded.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidPath):
		return "invalid_path"
	case errors.Is(err, ErrMoveFailed):
		return "move_failed"
	case errors.Is(err, ErrMissingSource):
		return "missing_source"
	case errors.Is(err, ErrToolUnavailable):
		return "ffmpeg_missing"
	case errors.Is(err, ErrProcessingFailed):
		return "processing_failed"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_key"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, ErrAlreadyRunning):
		return "job_running"
	case errors.Is(err, ErrValidation):
		return "invalid_request"
	default:
		return "exception"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
