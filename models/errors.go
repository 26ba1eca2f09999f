package models

import (
	"errors"
	"fmt"
)

// Error codes used for terminal run failures and internal error handling.
const (
	ErrCodeTimeout       = "SCRAPE_TIMEOUT"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash  = "BROWSER_CRASH"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotStabilized = "NOT_STABILIZED"
	ErrCodeExtraction    = "EXTRACTION_FAILED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ErrMissingField reports that a required field could not be resolved by
// any extraction strategy. The enclosing record is dropped.
var ErrMissingField = errors.New("required field not found")

// ErrorDetail is the structured error written alongside a failed run.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an output-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// FieldError names the record kind and field whose required value was missing.
type FieldError struct {
	Record string
	Field  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Record, e.Field, ErrMissingField)
}

func (e *FieldError) Unwrap() error {
	return ErrMissingField
}

// CodeOf returns the ScrapeError code carried by err, or ErrCodeInternal.
func CodeOf(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}
