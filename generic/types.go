/*
Package generic provides the shared vocabulary of the grade engine service.

PURPOSE:
  This package contains the types every other package speaks: calendar
  dates, grades, the employee-facing records read by the promotion engine,
  the repository interfaces the stores implement, and sentinel errors.
  It has no business rules of its own; those live in package promotion.

KEY CONCEPTS IN THIS FILE (types.go):
  - Grade: civil-service rank, 1 (most senior) to 8 (entry)
  - Employee: the slice of an employee record the engine consumes
  - Letter: a commendation or sanction carrying signed bonus months
  - Course: a training course taken by an employee
  - GradeSnapshot: a recorded (grade, grade start) observation

DESIGN PRINCIPLES:
  1. Records are plain data; the engine never mutates them
  2. Absent values are pointers (a hire date may be unknown)
  3. Type Safety: Strong typing for IDs prevents mixing employee/course IDs

SEE ALSO:
  - time.go: TimePoint calendar date
  - store.go: Repository interfaces
  - promotion/: The tenure and grade engine
*/
package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// GRADE
// =============================================================================

// Grade is a civil-service rank. Lower numbers are more senior.
type Grade int

const (
	TopGrade    Grade = 1
	BottomGrade Grade = 8
)

func (g Grade) Valid() bool { return g >= TopGrade && g <= BottomGrade }

// ParseGrade validates a grade number coming from outside the process.
func ParseGrade(n int) (Grade, error) {
	g := Grade(n)
	if !g.Valid() {
		return 0, fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidGrade, n, TopGrade, BottomGrade)
	}
	return g, nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type CourseID string
type LetterID string

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the part of the HR record the tenure engine reads.
// BonusServiceMonths is the running sum of all letter adjustments and is
// maintained by the LetterStore, never written directly by callers.
type Employee struct {
	ID                 EmployeeID
	Name               string
	HireDate           *TimePoint // nil = unknown tenure
	Certificate        string     // free text, e.g. "بكالوريوس محاسبة"
	BonusServiceMonths int
	CreatedAt          time.Time
}

// =============================================================================
// LETTERS - Commendations and sanctions
// =============================================================================

type LetterKind string

const (
	LetterCommendation LetterKind = "commendation"
	LetterSanction     LetterKind = "sanction"
)

// Letter adjusts service duration by BonusMonths: positive for a
// commendation, negative for a sanction.
type Letter struct {
	ID          LetterID
	EmployeeID  EmployeeID
	Kind        LetterKind
	BonusMonths int
	IssuedAt    TimePoint
	Subject     string
	CreatedAt   time.Time
}

// Validate checks that the sign of BonusMonths agrees with Kind.
func (l Letter) Validate() error {
	switch l.Kind {
	case LetterCommendation:
		if l.BonusMonths <= 0 {
			return &LetterError{Kind: l.Kind, BonusMonths: l.BonusMonths}
		}
	case LetterSanction:
		if l.BonusMonths >= 0 {
			return &LetterError{Kind: l.Kind, BonusMonths: l.BonusMonths}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidLetter, l.Kind)
	}
	return nil
}

// SignedMonths returns months with the sign implied by kind, so callers can
// submit an absolute number of months.
func SignedMonths(kind LetterKind, months int) int {
	if months < 0 {
		months = -months
	}
	if kind == LetterSanction {
		return -months
	}
	return months
}

// =============================================================================
// COURSES
// =============================================================================

// Course is a training course on an employee's record. DurationLabel is the
// free-text duration as typed by HR staff ("أسبوعين", "3 أيام", ...).
type Course struct {
	ID            CourseID
	EmployeeID    EmployeeID
	Title         string
	Date          TimePoint
	DurationLabel *string
	CreatedAt     time.Time
}

// =============================================================================
// GRADE SNAPSHOT
// =============================================================================

// GradeSnapshot records the grade an employee was observed in, so grade
// changes over time can be detected and listed.
type GradeSnapshot struct {
	EmployeeID     EmployeeID
	Grade          Grade
	GradeStartDate *TimePoint
	RecordedAt     TimePoint
}
