package errors

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeStore represents local interaction store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeDocument represents source document errors
	ErrorTypeDocument ErrorType = "document"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when the Neo4j connection cannot be verified.
// URI never carries credentials.
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	safe := RedactURI(uri)
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", safe), err),
		URI:       safe,
	}
}

// ErrGraphQueryFailed is returned when a statement fails on a live connection
type ErrGraphQueryFailed struct {
	*BaseError
	Operation string
}

func NewGraphQueryFailed(operation string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", operation), err),
		Operation: operation,
	}
}

// ErrInvalidNamespace is returned for namespace tags that cannot scope graph data
type ErrInvalidNamespace struct {
	*BaseError
	Namespace string
	Reason    string
}

func NewInvalidNamespace(namespace, reason string) *ErrInvalidNamespace {
	return &ErrInvalidNamespace{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("invalid namespace %q: %s", namespace, reason), nil),
		Namespace: namespace,
		Reason:    reason,
	}
}

// Local Store Errors

// ErrLocalStoreFailed is returned when the local interaction file cannot be read or written
type ErrLocalStoreFailed struct {
	*BaseError
	Path      string
	Operation string
}

func NewLocalStoreFailed(path, operation string, err error) *ErrLocalStoreFailed {
	return &ErrLocalStoreFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("local store %s failed: %s", operation, path), err),
		Path:      path,
		Operation: operation,
	}
}

// Document Errors

// ErrDocumentInvalid is returned when a graph document fails validation
type ErrDocumentInvalid struct {
	*BaseError
	Problems []string
}

func NewDocumentInvalid(problems []string, err error) *ErrDocumentInvalid {
	return &ErrDocumentInvalid{
		BaseError: NewBaseError(ErrorTypeDocument, fmt.Sprintf("document invalid (%d problems)", len(problems)), err),
		Problems:  problems,
	}
}

// ErrDocumentUnreadable is returned when a graph document cannot be loaded or saved
type ErrDocumentUnreadable struct {
	*BaseError
	Path string
}

func NewDocumentUnreadable(path string, err error) *ErrDocumentUnreadable {
	return &ErrDocumentUnreadable{
		BaseError: NewBaseError(ErrorTypeDocument, fmt.Sprintf("cannot access document: %s", path), err),
		Path:      path,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typedError interface {
	error
	errorType() ErrorType
}

func (e *BaseError) errorType() ErrorType { return e.Type }

// IsErrorType checks if any error in err's chain is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if typed, ok := err.(typedError); ok && typed.errorType() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	// A failed connection may succeed on the next start; a failed statement may be transient
	return IsErrorType(err, ErrorTypeGraph)
}

// RedactURI strips user info (and with it any password) from a connection URI
func RedactURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable uri>"
	}
	u.User = nil
	return u.String()
}
