/*
handlers_test.go - HTTP tests for the API handlers

Tests run the full chi router over the in-memory repository with the
as-of date pinned to 2026-10-15.
*/
package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/grade-engine/generic"
	"github.com/warp/grade-engine/generic/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testToday = generic.NewTimePoint(2026, time.October, 15)

func newTestAPI(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	h := NewHandler(store.NewMemory(), NewMetrics())
	h.Now = func() generic.TimePoint { return testToday }
	return h, NewRouter(h)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createEmployee(t *testing.T, router http.Handler, req CreateEmployeeRequest) EmployeeDTO {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/employees", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[EmployeeDTO](t, rec)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestCreateEmployee(t *testing.T) {
	_, router := newTestAPI(t)

	emp := createEmployee(t, router, CreateEmployeeRequest{Name: "سارة", HireDate: "2022-10-15", Certificate: "بكالوريوس"})

	assert.NotEmpty(t, emp.ID, "ID generated when not supplied")
	require.NotNil(t, emp.HireDate)
	assert.Equal(t, "2022-10-15", *emp.HireDate)
	assert.Equal(t, 0, emp.BonusServiceMonths)

	rec := do(t, router, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EmployeeDTO](t, rec), 1)
}

func TestCreateEmployee_WithoutHireDate(t *testing.T) {
	_, router := newTestAPI(t)

	emp := createEmployee(t, router, CreateEmployeeRequest{ID: "emp-x", Name: "Unknown Tenure", Certificate: "ماجستير"})
	assert.Nil(t, emp.HireDate)

	rec := do(t, router, http.MethodGet, "/api/employees/emp-x/assessment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[AssessmentDTO](t, rec)

	assert.False(t, a.Service.Known)
	assert.Equal(t, 6, a.Grade.CurrentGrade)
	assert.Nil(t, a.Grade.GradeStartDate)
	assert.Nil(t, a.Grade.NextPromotionDate)
}

func TestCreateEmployee_Validation(t *testing.T) {
	_, router := newTestAPI(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing name", CreateEmployeeRequest{HireDate: "2020-01-01"}},
		{"bad hire date", CreateEmployeeRequest{Name: "A", HireDate: "15/10/2020"}},
		{"malformed body", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/employees", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestEmployee_NotFound(t *testing.T) {
	_, router := newTestAPI(t)

	for _, path := range []string{
		"/api/employees/ghost",
		"/api/employees/ghost/assessment",
		"/api/employees/ghost/letters",
		"/api/employees/ghost/courses",
		"/api/employees/ghost/grade-history",
	} {
		rec := do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/employees/ghost", nil).Code)
}

func TestDeleteEmployee(t *testing.T) {
	_, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-1", Name: "A"})

	rec := do(t, router, http.MethodDelete, "/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/employees/emp-1", nil).Code)
}

// =============================================================================
// ASSESSMENT
// =============================================================================

func TestAssessment_PromotedAfterFourYears(t *testing.T) {
	// GIVEN: A bachelor hired exactly four years ago
	_, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-a", Name: "سارة", HireDate: "2022-10-15", Certificate: "بكالوريوس"})

	// WHEN: Assessed today
	rec := do(t, router, http.MethodGet, "/api/employees/emp-a/assessment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[AssessmentDTO](t, rec)

	// THEN: One promotion out of grade 7, at the very start of grade 6
	assert.Equal(t, "2026-10-15", a.AsOf)
	assert.Equal(t, 48, a.Service.TotalMonths)
	assert.Equal(t, 4, a.Service.WholeYears)
	assert.Equal(t, 0, a.Service.WholeMonths)
	assert.Equal(t, "4 سنوات", a.Service.Display)

	assert.Equal(t, 7, a.Grade.StartingGrade)
	assert.Equal(t, 6, a.Grade.CurrentGrade)
	assert.InDelta(t, 4.0, a.Grade.YearsConsumedForPromotion, 1e-9)
	assert.InDelta(t, 0.0, a.Grade.YearsRemainingInGrade, 1e-9)
	assert.Equal(t, "الدرجة 6 - السنة 1", a.Grade.Display)
	require.NotNil(t, a.Grade.GradeStartDate)
	assert.Equal(t, "2026-10-15", *a.Grade.GradeStartDate)
	require.NotNil(t, a.Grade.NextPromotionDate)
	assert.Equal(t, "2030-10-01", *a.Grade.NextPromotionDate)

	assert.Equal(t, 0, a.Courses.WeightedCount)
	assert.Equal(t, 2, a.Courses.Required)
	assert.Equal(t, 2, a.Courses.Deficit)
	assert.False(t, a.Courses.Satisfied)
}

func TestAssessment_AsOfParameter(t *testing.T) {
	_, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-a", Name: "A", HireDate: "2022-10-15", Certificate: "بكالوريوس"})

	// One month before the fourth anniversary month: still grade 7
	rec := do(t, router, http.MethodGet, "/api/employees/emp-a/grade?as_of=2026-09-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, decode[GradeDTO](t, rec).CurrentGrade)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-a/service?as_of=2026-09-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	svc := decode[ServiceDTO](t, rec)
	assert.Equal(t, 47, svc.TotalMonths)
	assert.Equal(t, "3 سنوات و 11 شهرًا", svc.Display)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-a/assessment?as_of=2026-13-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// LETTERS
// =============================================================================

func TestLetters_ChangeGrade(t *testing.T) {
	// GIVEN: A bachelor with three years of service (grade 7)
	_, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-l", Name: "مريم", HireDate: "2023-10-15", Certificate: "بكالوريوس"})

	// WHEN: A one-year commendation is recorded
	rec := do(t, router, http.MethodPost, "/api/employees/emp-l/letters",
		CreateLetterRequest{Kind: "commendation", Months: 12, IssuedAt: "2026-01-10", Subject: "كتاب شكر"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	commendation := decode[LetterDTO](t, rec)
	assert.Equal(t, 12, commendation.BonusMonths)

	// THEN: Service crosses the grade-7 rung
	rec = do(t, router, http.MethodGet, "/api/employees/emp-l/grade", nil)
	assert.Equal(t, 6, decode[GradeDTO](t, rec).CurrentGrade)

	// WHEN: A sanction is given as an absolute number of months
	rec = do(t, router, http.MethodPost, "/api/employees/emp-l/letters",
		CreateLetterRequest{Kind: "sanction", Months: 3, IssuedAt: "2026-05-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, -3, decode[LetterDTO](t, rec).BonusMonths)

	// THEN: Bonus is the letter sum and the promotion is lost
	rec = do(t, router, http.MethodGet, "/api/employees/emp-l", nil)
	assert.Equal(t, 9, decode[EmployeeDTO](t, rec).BonusServiceMonths)
	rec = do(t, router, http.MethodGet, "/api/employees/emp-l/grade", nil)
	assert.Equal(t, 7, decode[GradeDTO](t, rec).CurrentGrade)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-l/letters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]LetterDTO](t, rec), 2)

	// WHEN: The commendation is withdrawn
	rec = do(t, router, http.MethodDelete, "/api/letters/"+commendation.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-l", nil)
	assert.Equal(t, -3, decode[EmployeeDTO](t, rec).BonusServiceMonths)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/letters/"+commendation.ID, nil).Code)
}

func TestLetters_Validation(t *testing.T) {
	_, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-l", Name: "A", HireDate: "2023-10-15"})

	tests := []struct {
		name   string
		path   string
		req    CreateLetterRequest
		status int
	}{
		{"unknown kind", "/api/employees/emp-l/letters", CreateLetterRequest{Kind: "warning", Months: 1, IssuedAt: "2026-01-01"}, http.StatusBadRequest},
		{"zero months", "/api/employees/emp-l/letters", CreateLetterRequest{Kind: "commendation", Months: 0, IssuedAt: "2026-01-01"}, http.StatusBadRequest},
		{"missing date", "/api/employees/emp-l/letters", CreateLetterRequest{Kind: "commendation", Months: 1}, http.StatusBadRequest},
		{"unknown employee", "/api/employees/ghost/letters", CreateLetterRequest{Kind: "commendation", Months: 1, IssuedAt: "2026-01-01"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, tt.path, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, router, http.MethodGet, "/api/employees/emp-l", nil)
	assert.Equal(t, 0, decode[EmployeeDTO](t, rec).BonusServiceMonths, "rejected letters leave no trace")
}

// =============================================================================
// COURSES & SETTINGS
// =============================================================================

func TestCourses_CountFromGradeStart(t *testing.T) {
	// GIVEN: A bachelor hired 5.5 years ago, in grade 6 since 2025-04-15
	_, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-c", Name: "نور", HireDate: "2021-04-15", Certificate: "بكالوريوس"})

	// WHEN: A two-week course after the grade start and one the day before are recorded
	rec := do(t, router, http.MethodPost, "/api/employees/emp-c/courses",
		map[string]any{"title": "إدارة المشاريع", "date": "2025-05-01", "duration_label": "أسبوعين"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	course := decode[CourseDTO](t, rec)
	assert.True(t, course.TwoWeek)

	rec = do(t, router, http.MethodPost, "/api/employees/emp-c/courses",
		map[string]any{"id": "early", "title": "Safety", "date": "2025-04-14", "duration_label": "two weeks"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: Only the later one counts, at double weight
	rec = do(t, router, http.MethodGet, "/api/employees/emp-c/course-requirement", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	req := decode[CourseRequirementDTO](t, rec)
	assert.Equal(t, 6, req.Grade)
	require.NotNil(t, req.CountedFrom)
	assert.Equal(t, "2025-04-15", *req.CountedFrom)
	assert.Equal(t, 2, req.WeightedCount)
	assert.Equal(t, 0, req.Deficit)
	assert.True(t, req.Satisfied)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-c/courses", nil)
	assert.Len(t, decode[[]CourseDTO](t, rec), 2)

	// Deleting the counted course reopens the deficit
	require.Equal(t, http.StatusOK, do(t, router, http.MethodDelete, "/api/courses/"+course.ID, nil).Code)
	rec = do(t, router, http.MethodGet, "/api/employees/emp-c/course-requirement", nil)
	assert.Equal(t, 2, decode[CourseRequirementDTO](t, rec).Deficit)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/courses/"+course.ID, nil).Code)
}

func TestCourses_Validation(t *testing.T) {
	_, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-c", Name: "A"})

	rec := do(t, router, http.MethodPost, "/api/employees/emp-c/courses", map[string]any{"title": "x", "date": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/employees/ghost/courses", map[string]any{"title": "x", "date": "2025-01-01"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A course ID already held by another employee is rejected
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-d", Name: "B"})
	rec = do(t, router, http.MethodPost, "/api/employees/emp-c/courses", map[string]any{"id": "shared", "title": "Excel", "date": "2025-01-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, router, http.MethodPost, "/api/employees/emp-d/courses", map[string]any{"id": "shared", "title": "Other", "date": "2025-02-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-c/courses", nil)
	courses := decode[[]CourseDTO](t, rec)
	require.Len(t, courses, 1)
	assert.Equal(t, "Excel", courses[0].Title)
}

func TestSettings_CourseRequirements(t *testing.T) {
	_, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-c", Name: "A", HireDate: "2021-04-15", Certificate: "بكالوريوس"})
	do(t, router, http.MethodPost, "/api/employees/emp-c/courses", map[string]any{"title": "x", "date": "2025-06-01"})

	// Defaults
	rec := do(t, router, http.MethodGet, "/api/settings/course-requirements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[CourseRequirementSettingsDTO](t, rec)
	require.Len(t, settings.Effective, 8)
	assert.Equal(t, 1, settings.Effective[7].Required)
	assert.Equal(t, 2, settings.Config.TwoWeekWeight)

	// Raise grade 6 to three courses
	rec = do(t, router, http.MethodPut, "/api/settings/course-requirements", `{"courses_required": {"6": 3}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	settings = decode[CourseRequirementSettingsDTO](t, rec)
	assert.Equal(t, 3, settings.Effective[5].Required)
	assert.True(t, settings.Effective[5].Explicit)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-c/course-requirement", nil)
	req := decode[CourseRequirementDTO](t, rec)
	assert.Equal(t, 3, req.Required)
	assert.Equal(t, 2, req.Deficit)

	// Invalid documents are rejected and leave the stored policy alone
	rec = do(t, router, http.MethodPut, "/api/settings/course-requirements", `{"courses_required": {"9": 1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "courses_required.9")

	rec = do(t, router, http.MethodGet, "/api/settings/course-requirements", nil)
	assert.Equal(t, 3, decode[CourseRequirementSettingsDTO](t, rec).Config.CoursesRequired["6"])
}

// =============================================================================
// DASHBOARDS, SCENARIOS & METRICS
// =============================================================================

func TestDashboard_GradeDistribution(t *testing.T) {
	_, router := newTestAPI(t)
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "career-ladder"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/dashboard/grades", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dist := decode[GradeDistributionDTO](t, rec)

	assert.Equal(t, 4, dist.Total)
	require.Len(t, dist.Grades, 8)
	counts := map[int]int{}
	for _, g := range dist.Grades {
		counts[g.Grade] = g.Count
	}
	assert.Equal(t, map[int]int{1: 1, 2: 0, 3: 1, 4: 0, 5: 0, 6: 2, 7: 0, 8: 0}, counts)
}

func TestDashboard_CourseDeficits(t *testing.T) {
	_, router := newTestAPI(t)
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "course-tracking"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/dashboard/course-deficits", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deficits := decode[[]CourseDeficitDTO](t, rec)

	require.Len(t, deficits, 1)
	assert.Equal(t, "emp-202", deficits[0].EmployeeID)
	assert.Equal(t, 1, deficits[0].WeightedCount)
	assert.Equal(t, 1, deficits[0].Deficit)
}

func TestScenarios(t *testing.T) {
	_, router := newTestAPI(t)

	rec := do(t, router, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ScenarioDTO](t, rec), len(scenarios))

	for _, s := range scenarios {
		rec = do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: s.ID})
		assert.Equal(t, http.StatusOK, rec.Code, s.ID+": "+rec.Body.String())
	}

	// Letters scenario: the four years of sanctions keep emp-101 at grade 7
	do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "letters"})
	rec = do(t, router, http.MethodGet, "/api/employees/emp-101/grade", nil)
	assert.Equal(t, 7, decode[GradeDTO](t, rec).CurrentGrade)
	rec = do(t, router, http.MethodGet, "/api/employees/emp-102/grade", nil)
	assert.Equal(t, 6, decode[GradeDTO](t, rec).CurrentGrade)

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/employees", nil)
	assert.Empty(t, decode[[]EmployeeDTO](t, rec))
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-a", Name: "A", HireDate: "2022-10-15", Certificate: "بكالوريوس"})
	do(t, router, http.MethodGet, "/api/employees/emp-a/assessment", nil)

	rec := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `grade_engine_http_requests_total{method="GET",route="/api/employees/{id}/assessment",status="200"} 1`)
	assert.Contains(t, body, `grade_engine_assessments_total{grade="6"} 1`)
}
