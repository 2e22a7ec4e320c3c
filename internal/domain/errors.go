package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeDocumentUnreadable ErrorType = "document_unreadable"
	ErrorTypePeriodNotDetected  ErrorType = "period_not_detected"
	ErrorTypeInvalidOperation   ErrorType = "invalid_operation"
	ErrorTypeParseAnomaly       ErrorType = "parse_anomaly"
	ErrorTypeNoEmployees        ErrorType = "no_employees"
	ErrorTypeConfig             ErrorType = "config"
	ErrorTypeIO                 ErrorType = "io"
	ErrorTypeStorage            ErrorType = "storage"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether any error in err's chain is a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == errType
	}
	return false
}

// TypeOf returns the type of the first DomainError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func DocumentUnreadableError(message string, err error) *DomainError {
	return NewError(ErrorTypeDocumentUnreadable, message, err)
}

func PeriodNotDetectedError(message string, err error) *DomainError {
	return NewError(ErrorTypePeriodNotDetected, message, err)
}

func InvalidOperationError(message string, err error) *DomainError {
	return NewError(ErrorTypeInvalidOperation, message, err)
}

func ParseAnomalyError(message string, err error) *DomainError {
	return NewError(ErrorTypeParseAnomaly, message, err)
}

func NoEmployeesError(message string, err error) *DomainError {
	return NewError(ErrorTypeNoEmployees, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

func StorageError(message string, err error) *DomainError {
	return NewError(ErrorTypeStorage, message, err)
}
