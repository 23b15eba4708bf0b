package service

import (
	"errors"
	"fmt"
)

// Common service errors. The API layer maps them to HTTP status codes.
var (
	// ErrTaskNotFound indicates the task does not exist or is owned by
	// someone else. The two cases are never distinguished.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNoIdentity indicates a TaskAccess was requested without an identity.
	ErrNoIdentity = errors.New("task access requires an identity")
)

// TaskServiceError wraps unexpected errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "list", "update")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{Operation: operation, Message: message, Err: err}
}
