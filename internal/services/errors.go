package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is returned for inbound events missing a sender or text
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidStatus is returned when a quotation status is not recognised
var ErrInvalidStatus = errors.New("invalid quotation status")

// ValidationError lists every problem found in collected quotation data, in check order
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid quotation data: " + strings.Join(e.Problems, ", ")
}

// StorageError wraps a failure to persist a quotation
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "store quotation: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// NotificationError collects the failures of one notification attempt
type NotificationError struct {
	QuotationID uint
	Errors      []string
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify quotation #%d: %s", e.QuotationID, strings.Join(e.Errors, "; "))
}

// UnknownStepError means a session held a step the state machine does not handle
type UnknownStepError struct {
	Step Step
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown conversation step %q", string(e.Step))
}
