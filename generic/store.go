/*
store.go - Persistence interfaces for employee, letter, course and settings data

PURPOSE:
  Defines the interface between the service and the database. The promotion
  engine never touches a store; handlers and the scheduler read a snapshot
  through these interfaces and hand plain values to the engine.

KEY INTERFACES:
  EmployeeStore: Employee records
  LetterStore:   Commendations/sanctions, keeps BonusServiceMonths in sync
  CourseStore:   Training course history
  SettingsStore: Course requirement configuration (JSON)
  SnapshotStore: Grade observations for history and promotion detection
  Repository:    All of the above

ATOMIC LETTERS:
  AddLetter and RemoveLetter write the letter and adjust the employee's
  BonusServiceMonths in one transaction. Either both happen or neither does.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - types.go: Record types
  - errors.go: ErrEmployeeNotFound and friends
*/
package generic

import "context"

// EmployeeStore persists employee records.
type EmployeeStore interface {
	SaveEmployee(ctx context.Context, emp Employee) error

	// GetEmployee returns ErrEmployeeNotFound when id is unknown.
	GetEmployee(ctx context.Context, id EmployeeID) (Employee, error)

	// ListEmployees returns all employees ordered by name.
	ListEmployees(ctx context.Context) ([]Employee, error)

	// DeleteEmployee removes the employee with their letters, courses and snapshots.
	DeleteEmployee(ctx context.Context, id EmployeeID) error
}

// LetterStore persists letters and maintains Employee.BonusServiceMonths.
type LetterStore interface {
	// AddLetter appends the letter and adds its BonusMonths to the employee.
	AddLetter(ctx context.Context, letter Letter) error

	// RemoveLetter deletes the letter and subtracts its BonusMonths.
	// Returns ErrLetterNotFound when id is unknown.
	RemoveLetter(ctx context.Context, id LetterID) error

	// ListLetters returns an employee's letters ordered by IssuedAt.
	ListLetters(ctx context.Context, employeeID EmployeeID) ([]Letter, error)
}

// CourseStore persists training course history.
type CourseStore interface {
	SaveCourse(ctx context.Context, course Course) error

	// DeleteCourse returns ErrCourseNotFound when id is unknown.
	DeleteCourse(ctx context.Context, id CourseID) error

	// ListCourses returns an employee's courses ordered by Date.
	ListCourses(ctx context.Context, employeeID EmployeeID) ([]Course, error)
}

// SettingsStore persists the admin-editable course requirement configuration.
// The payload is the JSON document understood by package factory.
type SettingsStore interface {
	// GetCourseRequirementJSON returns "" when nothing has been saved yet.
	GetCourseRequirementJSON(ctx context.Context) (string, error)
	SaveCourseRequirementJSON(ctx context.Context, doc string) error
}

// SnapshotStore records grade observations.
type SnapshotStore interface {
	// LatestGradeSnapshot returns nil when the employee has none.
	LatestGradeSnapshot(ctx context.Context, employeeID EmployeeID) (*GradeSnapshot, error)
	SaveGradeSnapshot(ctx context.Context, snap GradeSnapshot) error

	// GradeHistory returns snapshots ordered by RecordedAt.
	GradeHistory(ctx context.Context, employeeID EmployeeID) ([]GradeSnapshot, error)
}

// Repository is everything the API and scheduler need.
type Repository interface {
	EmployeeStore
	LetterStore
	CourseStore
	SettingsStore
	SnapshotStore

	// Reset clears all data (for demo scenarios).
	Reset(ctx context.Context) error
}
