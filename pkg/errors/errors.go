package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "SM1001"
	ErrCodeConnectionTimeout    ErrorCode = "SM1002"
	ErrCodeAuthenticationFailed ErrorCode = "SM1003"
	ErrCodeNetworkUnavailable   ErrorCode = "SM1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound   ErrorCode = "SM2001"
	ErrCodeConfigInvalid    ErrorCode = "SM2002"
	ErrCodeConfigPermission ErrorCode = "SM2003"
	ErrCodeCredentialStore  ErrorCode = "SM2004"

	// Catalog access errors (3xxx)
	ErrCodeCatalogAccess    ErrorCode = "SM3001"
	ErrCodeObjectNotFound   ErrorCode = "SM3002"
	ErrCodePermissionDenied ErrorCode = "SM3003"

	// Query execution errors (4xxx)
	ErrCodeQueryExecution ErrorCode = "SM4001"
	ErrCodeQueryTimeout   ErrorCode = "SM4002"
	ErrCodeNoResults      ErrorCode = "SM4003"
	ErrCodeCloneFailed    ErrorCode = "SM4004"

	// Validation and comparison errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "SM6001"
	ErrCodeInvalidInput     ErrorCode = "SM6002"
	ErrCodeComparisonFailed ErrorCode = "SM6003"

	// System errors (9xxx)
	ErrCodeInternal           ErrorCode = "SM9001"
	ErrCodeTimeout            ErrorCode = "SM9002"
	ErrCodeResourceExhausted  ErrorCode = "SM9003"
	ErrCodeServiceUnavailable ErrorCode = "SM9004"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	// Preserve the original chain for already-structured errors
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:      code,
			Message:   message,
			Severity:  appErr.Severity,
			Context:   appErr.Context,
			Cause:     appErr,
			Stack:     captureStack(),
			Timestamp: time.Now(),
		}
	}

	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Cause:     err,
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the severity of the error
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds actionable suggestions to the error
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

func captureStack() string {
	var b strings.Builder
	for i := 2; i < 7; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", fn.Name(), file, line))
	}
	return b.String()
}

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSuggestions(
			"Check your network connection",
			"Verify the account identifier is correct",
			"Ensure the warehouse is running",
		)
}

// CatalogError creates a catalog-access error
func CatalogError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeCatalogAccess, message).
		WithSeverity(SeverityWarning)
}

// QueryError creates a query-execution error, truncating long SQL for display
func QueryError(message string, query string, cause error) *AppError {
	return Wrap(cause, ErrCodeQueryExecution, message).
		WithContext("query", truncateString(query, 200))
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value)
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// RootCause unwraps to the innermost error in the chain
func RootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

// FirstLine returns only the first line of the root cause's message. Driver
// errors from the warehouse are frequently multi-line and unreadable in a
// table cell.
func FirstLine(err error) string {
	if err == nil {
		return ""
	}
	msg := RootCause(err).Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		return msg[:idx]
	}
	return msg
}
