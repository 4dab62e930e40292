package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrDuplicateRecord is matched by every *DuplicateRecordError.
	ErrDuplicateRecord = errors.New("duplicate record")
	// ErrDimensionMismatch indicates a vector whose length differs from the store dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrUnknownTier indicates a complexity tier name that is not configured.
	ErrUnknownTier = errors.New("unknown tier")
	// ErrNotFound indicates a missing store entry.
	ErrNotFound = errors.New("not found")
)

// ConfigurationError describes an invalid parameter, rejected before any work starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

// NewConfigurationError builds a ConfigurationError with a formatted reason.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) succeed.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// DuplicateRecordError is returned when a store key is written twice.
type DuplicateRecordError struct {
	Level string
	Key   string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("duplicate record: %s/%s already exists", e.Level, e.Key)
}

// Is makes errors.Is(err, ErrDuplicateRecord) succeed.
func (e *DuplicateRecordError) Is(target error) bool { return target == ErrDuplicateRecord }
