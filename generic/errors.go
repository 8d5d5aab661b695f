/*
errors.go - Centralized error types for the grade engine service

PURPOSE:
  All error types in one place for consistency and discoverability.
  The promotion engine itself never returns errors (it degrades to
  documented defaults); these errors come from the store, the
  configuration factory and request validation.

ERROR CATEGORIES:
  1. Not found - Missing employee, course or letter
  2. Validation errors - Malformed dates, grades, letters, configuration

USAGE:
  if generic.IsNotFound(err) {
      // 404
  }
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrCourseNotFound is returned when a referenced course doesn't exist.
	ErrCourseNotFound = errors.New("course not found")

	// ErrLetterNotFound is returned when a referenced letter doesn't exist.
	ErrLetterNotFound = errors.New("letter not found")

	// ErrInvalidDate is returned when a date string cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidGrade is returned for grade numbers outside 1..8.
	ErrInvalidGrade = errors.New("invalid grade")

	// ErrInvalidLetter is returned when a letter's kind and months disagree.
	ErrInvalidLetter = errors.New("invalid letter")

	// ErrInvalidCourse is returned when a course ID already belongs to another employee.
	ErrInvalidCourse = errors.New("invalid course")

	// ErrInvalidConfig is returned when course requirement settings are malformed.
	ErrInvalidConfig = errors.New("invalid course requirement configuration")

	// ErrInvalidEmployee is returned when an employee record fails validation.
	ErrInvalidEmployee = errors.New("invalid employee")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigError points at the offending field of a course requirement config.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// LetterError describes a rejected commendation or sanction.
type LetterError struct {
	Kind        LetterKind
	BonusMonths int
}

func (e *LetterError) Error() string {
	return fmt.Sprintf("invalid letter: %s cannot carry %d bonus months", e.Kind, e.BonusMonths)
}

func (e *LetterError) Unwrap() error {
	return ErrInvalidLetter
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidGrade) ||
		errors.Is(err, ErrInvalidLetter) ||
		errors.Is(err, ErrInvalidCourse) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidEmployee)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrLetterNotFound)
}
