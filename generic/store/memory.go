// Package store provides Repository implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/grade-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[generic.EmployeeID]generic.Employee
	letters   map[generic.LetterID]generic.Letter
	courses   map[generic.CourseID]generic.Course
	snapshots map[generic.EmployeeID][]generic.GradeSnapshot
	settings  string
}

var _ generic.Repository = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.employees = make(map[generic.EmployeeID]generic.Employee)
	m.letters = make(map[generic.LetterID]generic.Letter)
	m.courses = make(map[generic.CourseID]generic.Course)
	m.snapshots = make(map[generic.EmployeeID][]generic.GradeSnapshot)
	m.settings = ""
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// SaveEmployee inserts or updates an employee. BonusServiceMonths is owned by
// the letter workflow and is preserved on update.
func (m *Memory) SaveEmployee(_ context.Context, emp generic.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.employees[emp.ID]; ok {
		emp.BonusServiceMonths = existing.BonusServiceMonths
		emp.CreatedAt = existing.CreatedAt
	} else {
		emp.BonusServiceMonths = 0
		emp.CreatedAt = time.Now().UTC()
	}
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id generic.EmployeeID) (generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[id]
	if !ok {
		return generic.Employee{}, generic.ErrEmployeeNotFound
	}
	return emp, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) DeleteEmployee(_ context.Context, id generic.EmployeeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[id]; !ok {
		return generic.ErrEmployeeNotFound
	}
	delete(m.employees, id)
	delete(m.snapshots, id)
	for lid, l := range m.letters {
		if l.EmployeeID == id {
			delete(m.letters, lid)
		}
	}
	for cid, c := range m.courses {
		if c.EmployeeID == id {
			delete(m.courses, cid)
		}
	}
	return nil
}

// =============================================================================
// LETTERS
// =============================================================================

func (m *Memory) AddLetter(_ context.Context, letter generic.Letter) error {
	if err := letter.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	emp, ok := m.employees[letter.EmployeeID]
	if !ok {
		return generic.ErrEmployeeNotFound
	}
	if _, dup := m.letters[letter.ID]; dup {
		return fmt.Errorf("%w: letter %s already exists", generic.ErrInvalidLetter, letter.ID)
	}
	letter.CreatedAt = time.Now().UTC()
	m.letters[letter.ID] = letter
	emp.BonusServiceMonths += letter.BonusMonths
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) RemoveLetter(_ context.Context, id generic.LetterID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	letter, ok := m.letters[id]
	if !ok {
		return generic.ErrLetterNotFound
	}
	delete(m.letters, id)
	if emp, ok := m.employees[letter.EmployeeID]; ok {
		emp.BonusServiceMonths -= letter.BonusMonths
		m.employees[emp.ID] = emp
	}
	return nil
}

func (m *Memory) ListLetters(_ context.Context, employeeID generic.EmployeeID) ([]generic.Letter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Letter
	for _, l := range m.letters {
		if l.EmployeeID == employeeID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IssuedAt.Equal(result[j].IssuedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].IssuedAt.Before(result[j].IssuedAt)
	})
	return result, nil
}

// =============================================================================
// COURSES
// =============================================================================

func (m *Memory) SaveCourse(_ context.Context, course generic.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[course.EmployeeID]; !ok {
		return generic.ErrEmployeeNotFound
	}
	if existing, ok := m.courses[course.ID]; ok {
		if existing.EmployeeID != course.EmployeeID {
			return fmt.Errorf("%w: course %s belongs to another employee", generic.ErrInvalidCourse, course.ID)
		}
		course.CreatedAt = existing.CreatedAt
	} else {
		course.CreatedAt = time.Now().UTC()
	}
	m.courses[course.ID] = course
	return nil
}

func (m *Memory) DeleteCourse(_ context.Context, id generic.CourseID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.courses[id]; !ok {
		return generic.ErrCourseNotFound
	}
	delete(m.courses, id)
	return nil
}

func (m *Memory) ListCourses(_ context.Context, employeeID generic.EmployeeID) ([]generic.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Course
	for _, c := range m.courses {
		if c.EmployeeID == employeeID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID < result[j].ID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Memory) GetCourseRequirementJSON(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *Memory) SaveCourseRequirementJSON(_ context.Context, doc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = doc
	return nil
}

// =============================================================================
// GRADE SNAPSHOTS
// =============================================================================

func (m *Memory) LatestGradeSnapshot(_ context.Context, employeeID generic.EmployeeID) (*generic.GradeSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := m.snapshots[employeeID]
	if len(snaps) == 0 {
		return nil, nil
	}
	latest := snaps[len(snaps)-1]
	return &latest, nil
}

func (m *Memory) SaveGradeSnapshot(_ context.Context, snap generic.GradeSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps := m.snapshots[snap.EmployeeID]

	// Keep ordered by RecordedAt
	i := sort.Search(len(snaps), func(i int) bool {
		return snaps[i].RecordedAt.After(snap.RecordedAt)
	})
	snaps = append(snaps, generic.GradeSnapshot{})
	copy(snaps[i+1:], snaps[i:])
	snaps[i] = snap
	m.snapshots[snap.EmployeeID] = snaps
	return nil
}

func (m *Memory) GradeHistory(_ context.Context, employeeID generic.EmployeeID) ([]generic.GradeSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.GradeSnapshot, len(m.snapshots[employeeID]))
	copy(result, m.snapshots[employeeID])
	return result, nil
}
