/*
Package sqlite provides a SQLite-backed implementation of generic.Repository.

PURPOSE:
  Persists the employee data the promotion engine reads (employees,
  commendation/sanction letters, training courses), the course requirement
  settings, and grade snapshots recorded by the promotion watch.

KEY TABLES:
  employees:        Employee records; bonus_service_months is the letter sum
  letters:          Commendations (+months) and sanctions (-months)
  courses:          Training course history
  settings:         Key/value JSON documents (course requirement policy)
  grade_snapshots:  Observed grades over time

LETTER CONSISTENCY:
  employees.bonus_service_months always equals SUM(letters.bonus_months)
  for the employee. AddLetter and RemoveLetter update both in one SQL
  transaction.

DATES:
  Calendar dates are stored as TEXT "YYYY-MM-DD"; a NULL hire_date means
  unknown tenure. Audit timestamps are RFC3339.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block.

USAGE:
  store, err := sqlite.New("./data/grades.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/grade-engine/generic"
)

// Store implements generic.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.Repository = (*Store)(nil)

const courseRequirementsKey = "course_requirements"

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives as long as its connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hire_date TEXT,
		certificate TEXT NOT NULL DEFAULT '',
		bonus_service_months INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS letters (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		kind TEXT NOT NULL CHECK (kind IN ('commendation', 'sanction')),
		bonus_months INTEGER NOT NULL,
		issued_at TEXT NOT NULL,
		subject TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_letters_employee
		ON letters(employee_id, issued_at);

	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		course_date TEXT NOT NULL,
		duration_label TEXT,
		created_at TEXT NOT NULL
	);

	-- Course history per employee, filtered by date (grade start)
	CREATE INDEX IF NOT EXISTS idx_courses_employee_date
		ON courses(employee_id, course_date);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS grade_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		grade INTEGER NOT NULL CHECK (grade BETWEEN 1 AND 8),
		grade_start_date TEXT,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_grade_snapshots_employee
		ON grade_snapshots(employee_id, recorded_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee inserts or updates an employee. bonus_service_months is only
// ever changed through letters, so an update leaves it alone.
func (s *Store) SaveEmployee(ctx context.Context, emp generic.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, hire_date, certificate, bonus_service_months, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hire_date = excluded.hire_date,
			certificate = excluded.certificate
	`

	_, err := s.db.ExecContext(ctx, query,
		string(emp.ID), emp.Name, nullDate(emp.HireDate), emp.Certificate,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, hire_date, certificate, bonus_service_months, created_at FROM employees WHERE id = ?",
		string(id),
	)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Employee{}, generic.ErrEmployeeNotFound
	}
	return emp, err
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, hire_date, certificate, bonus_service_months, created_at FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []generic.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee; letters, courses and snapshots cascade.
func (s *Store) DeleteEmployee(ctx context.Context, id generic.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	return requireAffected(res, generic.ErrEmployeeNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (generic.Employee, error) {
	var emp generic.Employee
	var id, createdAt string
	var hireDate sql.NullString
	if err := row.Scan(&id, &emp.Name, &hireDate, &emp.Certificate, &emp.BonusServiceMonths, &createdAt); err != nil {
		return generic.Employee{}, err
	}
	emp.ID = generic.EmployeeID(id)
	emp.HireDate = parseNullDate(hireDate)
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return emp, nil
}

// =============================================================================
// LETTER STORE
// =============================================================================

// AddLetter records a commendation or sanction and applies its months to the
// employee's bonus_service_months in the same transaction.
func (s *Store) AddLetter(ctx context.Context, letter generic.Letter) error {
	if err := letter.Validate(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE employees SET bonus_service_months = bonus_service_months + ? WHERE id = ?",
			letter.BonusMonths, string(letter.EmployeeID),
		)
		if err != nil {
			return err
		}
		if err := requireAffected(res, generic.ErrEmployeeNotFound); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO letters (id, employee_id, kind, bonus_months, issued_at, subject, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(letter.ID), string(letter.EmployeeID), string(letter.Kind), letter.BonusMonths,
			letter.IssuedAt.String(), nullString(letter.Subject),
			time.Now().UTC().Format(time.RFC3339),
		)
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: letter %s already exists", generic.ErrInvalidLetter, letter.ID)
		}
		return err
	})
}

// RemoveLetter deletes a letter and reverts its months.
func (s *Store) RemoveLetter(ctx context.Context, id generic.LetterID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var employeeID string
		var months int
		err := tx.QueryRowContext(ctx,
			"SELECT employee_id, bonus_months FROM letters WHERE id = ?", string(id),
		).Scan(&employeeID, &months)
		if errors.Is(err, sql.ErrNoRows) {
			return generic.ErrLetterNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM letters WHERE id = ?", string(id)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE employees SET bonus_service_months = bonus_service_months - ? WHERE id = ?",
			months, employeeID,
		)
		return err
	})
}

// ListLetters returns an employee's letters ordered by issue date.
func (s *Store) ListLetters(ctx context.Context, employeeID generic.EmployeeID) ([]generic.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, kind, bonus_months, issued_at, subject, created_at
		FROM letters WHERE employee_id = ?
		ORDER BY issued_at, id`,
		string(employeeID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var letters []generic.Letter
	for rows.Next() {
		var l generic.Letter
		var id, empID, kind, issuedAt, createdAt string
		var subject sql.NullString
		if err := rows.Scan(&id, &empID, &kind, &l.BonusMonths, &issuedAt, &subject, &createdAt); err != nil {
			return nil, err
		}
		l.ID = generic.LetterID(id)
		l.EmployeeID = generic.EmployeeID(empID)
		l.Kind = generic.LetterKind(kind)
		l.IssuedAt, _ = generic.ParseDate(issuedAt)
		l.Subject = subject.String
		l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		letters = append(letters, l)
	}
	return letters, rows.Err()
}

// =============================================================================
// COURSE STORE
// =============================================================================

// SaveCourse inserts or updates a course.
func (s *Store) SaveCourse(ctx context.Context, course generic.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM employees WHERE id = ?", string(course.EmployeeID)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.ErrEmployeeNotFound
	}
	if err != nil {
		return err
	}

	// An existing ID owned by another employee matches no row to update.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO courses (id, employee_id, title, course_date, duration_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			course_date = excluded.course_date,
			duration_label = excluded.duration_label
		WHERE courses.employee_id = excluded.employee_id`,
		string(course.ID), string(course.EmployeeID), course.Title,
		course.Date.String(), nullStringPtr(course.DurationLabel),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: course %s belongs to another employee", generic.ErrInvalidCourse, course.ID)
	}
	return nil
}

// DeleteCourse removes a course.
func (s *Store) DeleteCourse(ctx context.Context, id generic.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	return requireAffected(res, generic.ErrCourseNotFound)
}

// ListCourses returns an employee's courses ordered by date.
func (s *Store) ListCourses(ctx context.Context, employeeID generic.EmployeeID) ([]generic.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, title, course_date, duration_label, created_at
		FROM courses WHERE employee_id = ?
		ORDER BY course_date, id`,
		string(employeeID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []generic.Course
	for rows.Next() {
		var c generic.Course
		var id, empID, courseDate, createdAt string
		var duration sql.NullString
		if err := rows.Scan(&id, &empID, &c.Title, &courseDate, &duration, &createdAt); err != nil {
			return nil, err
		}
		c.ID = generic.CourseID(id)
		c.EmployeeID = generic.EmployeeID(empID)
		c.Date, _ = generic.ParseDate(courseDate)
		if duration.Valid {
			label := duration.String
			c.DurationLabel = &label
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

// GetCourseRequirementJSON returns the stored policy document, or "".
func (s *Store) GetCourseRequirementJSON(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT value_json FROM settings WHERE key = ?", courseRequirementsKey).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return doc, err
}

// SaveCourseRequirementJSON replaces the stored policy document.
func (s *Store) SaveCourseRequirementJSON(ctx context.Context, doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value_json = excluded.value_json,
			updated_at = excluded.updated_at`,
		courseRequirementsKey, doc, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

// SaveGradeSnapshot records an observed grade.
func (s *Store) SaveGradeSnapshot(ctx context.Context, snap generic.GradeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grade_snapshots (employee_id, grade, grade_start_date, recorded_at)
		VALUES (?, ?, ?, ?)`,
		string(snap.EmployeeID), int(snap.Grade), nullDate(snap.GradeStartDate), snap.RecordedAt.String(),
	)
	return err
}

// LatestGradeSnapshot returns the most recent snapshot, or nil.
func (s *Store) LatestGradeSnapshot(ctx context.Context, employeeID generic.EmployeeID) (*generic.GradeSnapshot, error) {
	snaps, err := s.querySnapshots(ctx, `
		SELECT employee_id, grade, grade_start_date, recorded_at
		FROM grade_snapshots WHERE employee_id = ?
		ORDER BY recorded_at DESC, id DESC LIMIT 1`,
		string(employeeID),
	)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return &snaps[0], nil
}

// GradeHistory returns all snapshots, oldest first.
func (s *Store) GradeHistory(ctx context.Context, employeeID generic.EmployeeID) ([]generic.GradeSnapshot, error) {
	return s.querySnapshots(ctx, `
		SELECT employee_id, grade, grade_start_date, recorded_at
		FROM grade_snapshots WHERE employee_id = ?
		ORDER BY recorded_at, id`,
		string(employeeID),
	)
}

func (s *Store) querySnapshots(ctx context.Context, query string, args ...any) ([]generic.GradeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []generic.GradeSnapshot
	for rows.Next() {
		var snap generic.GradeSnapshot
		var empID, recordedAt string
		var grade int
		var start sql.NullString
		if err := rows.Scan(&empID, &grade, &start, &recordedAt); err != nil {
			return nil, err
		}
		snap.EmployeeID = generic.EmployeeID(empID)
		snap.Grade = generic.Grade(grade)
		snap.GradeStartDate = parseNullDate(start)
		snap.RecordedAt, _ = generic.ParseDate(recordedAt)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		tables := []string{"grade_snapshots", "letters", "courses", "employees", "settings"}
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}
		return nil
	})
}

// withTx executes fn within a database transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDate(tp *generic.TimePoint) sql.NullString {
	if tp == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: tp.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) *generic.TimePoint {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	tp, err := generic.ParseDate(ns.String)
	if err != nil {
		return nil
	}
	return &tp
}
