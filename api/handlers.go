/*
handlers.go - HTTP API handlers for the grade engine

PURPOSE:
  Exposes the tenure and promotion engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the promotion
  package. Every assessment is computed on read from the stored record;
  nothing derived is persisted except grade snapshots.

ENDPOINTS:
  Employees:
    GET    /api/employees                          List all employees
    POST   /api/employees                          Create or update employee
    GET    /api/employees/{id}                     Get employee record
    DELETE /api/employees/{id}                     Delete employee

  Assessment (all accept ?as_of=YYYY-MM-DD, default today):
    GET    /api/employees/{id}/assessment          Service, grade and courses
    GET    /api/employees/{id}/service             Service duration only
    GET    /api/employees/{id}/grade               Grade state only
    GET    /api/employees/{id}/course-requirement  Course verdict only
    GET    /api/employees/{id}/grade-history       Recorded grade snapshots

  Letters & courses:
    GET    /api/employees/{id}/letters             List letters
    POST   /api/employees/{id}/letters             Add commendation/sanction
    DELETE /api/letters/{id}                       Withdraw letter
    GET    /api/employees/{id}/courses             List courses
    POST   /api/employees/{id}/courses             Add course
    DELETE /api/courses/{id}                       Delete course

  Settings:
    GET    /api/settings/course-requirements       Current course policy
    PUT    /api/settings/course-requirements       Replace course policy

  Dashboards:
    GET    /api/dashboard/grades                   Grade distribution
    GET    /api/dashboard/course-deficits          Employees short of courses

  Admin:
    POST   /api/admin/grade-snapshots              Run the promotion watch once

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - scheduler.go: Promotion watch
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/warp/grade-engine/factory"
	"github.com/warp/grade-engine/generic"
	"github.com/warp/grade-engine/promotion"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo          generic.Repository
	PolicyFactory *factory.PolicyFactory
	Metrics       *Metrics

	// Now supplies the default as-of date. Tests pin it.
	Now func() generic.TimePoint

	// snapshotMu serializes grade change recording.
	snapshotMu sync.Mutex
}

// NewHandler creates a new handler over the given repository.
func NewHandler(repo generic.Repository, metrics *Metrics) *Handler {
	return &Handler{
		Repo:          repo,
		PolicyFactory: factory.NewPolicyFactory(),
		Metrics:       metrics,
		Now:           generic.Today,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Repo.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee record.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Repo.GetEmployee(r.Context(), employeeIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates an employee, or updates one when the ID exists.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Invalid employee", fmt.Errorf("%w: name is required", generic.ErrInvalidEmployee))
		return
	}
	hire, err := generic.ParseOptionalDate(strings.TrimSpace(req.HireDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	emp := generic.Employee{
		ID:          generic.EmployeeID(req.ID),
		Name:        strings.TrimSpace(req.Name),
		HireDate:    hire,
		Certificate: strings.TrimSpace(req.Certificate),
	}
	if err := h.Repo.SaveEmployee(r.Context(), emp); err != nil {
		writeDomainError(w, "Failed to save employee", err)
		return
	}

	saved, err := h.Repo.GetEmployee(r.Context(), emp.ID)
	if err != nil {
		writeDomainError(w, "Failed to reload employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(saved))
}

// DeleteEmployee removes an employee and everything recorded for them.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.DeleteEmployee(r.Context(), employeeIDParam(r)); err != nil {
		writeDomainError(w, "Failed to delete employee", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// ASSESSMENT HANDLERS
// =============================================================================

// GetAssessment returns service duration, grade and course verdict together.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	emp, a, ok := h.assessRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentDTO(emp, a))
}

// GetService returns the counted service duration.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	_, a, ok := h.assessRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toServiceDTO(a.Service))
}

// GetGrade returns the resolved grade state.
func (h *Handler) GetGrade(w http.ResponseWriter, r *http.Request) {
	_, a, ok := h.assessRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toGradeDTO(a))
}

// GetCourseRequirement returns the course requirement verdict for the
// employee's current grade.
func (h *Handler) GetCourseRequirement(w http.ResponseWriter, r *http.Request) {
	_, a, ok := h.assessRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCourseRequirementDTO(a))
}

// GetGradeHistory lists the grade snapshots recorded by the promotion watch.
func (h *Handler) GetGradeHistory(w http.ResponseWriter, r *http.Request) {
	id := employeeIDParam(r)
	if _, err := h.Repo.GetEmployee(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}

	history, err := h.Repo.GradeHistory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load grade history", err)
		return
	}

	dtos := make([]GradeSnapshotDTO, len(history))
	for i, s := range history {
		dtos[i] = toGradeSnapshotDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// assessRequest parses ?as_of, loads the employee and runs the engine. It
// writes the error response itself and reports whether to continue.
func (h *Handler) assessRequest(w http.ResponseWriter, r *http.Request) (generic.Employee, promotion.Assessment, bool) {
	asOf, err := h.asOfParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return generic.Employee{}, promotion.Assessment{}, false
	}

	emp, err := h.Repo.GetEmployee(r.Context(), employeeIDParam(r))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return generic.Employee{}, promotion.Assessment{}, false
	}

	cfg, err := h.courseConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load course requirements", err)
		return generic.Employee{}, promotion.Assessment{}, false
	}

	a, err := h.assess(r.Context(), emp, cfg, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to assess employee", err)
		return generic.Employee{}, promotion.Assessment{}, false
	}
	return emp, a, true
}

// assess reads the employee's courses and runs the engine pipeline.
func (h *Handler) assess(ctx context.Context, emp generic.Employee, cfg promotion.CourseRequirementConfig, asOf generic.TimePoint) (promotion.Assessment, error) {
	courses, err := h.Repo.ListCourses(ctx, emp.ID)
	if err != nil {
		return promotion.Assessment{}, fmt.Errorf("list courses for %s: %w", emp.ID, err)
	}
	a := promotion.Assess(promotion.InputFor(emp, courses), cfg, asOf)
	h.Metrics.ObserveAssessment(a.Grade.CurrentGrade)
	return a, nil
}

// courseConfig loads the stored course policy, falling back to defaults
// when none has been saved.
func (h *Handler) courseConfig(ctx context.Context) (promotion.CourseRequirementConfig, error) {
	doc, err := h.Repo.GetCourseRequirementJSON(ctx)
	if err != nil {
		return promotion.CourseRequirementConfig{}, err
	}
	return h.PolicyFactory.ParseCourseRequirements(doc)
}

// =============================================================================
// LETTER HANDLERS
// =============================================================================

// ListLetters returns an employee's commendations and sanctions.
func (h *Handler) ListLetters(w http.ResponseWriter, r *http.Request) {
	id := employeeIDParam(r)
	if _, err := h.Repo.GetEmployee(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}

	letters, err := h.Repo.ListLetters(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list letters", err)
		return
	}

	dtos := make([]LetterDTO, len(letters))
	for i, l := range letters {
		dtos[i] = toLetterDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLetter records a letter and adjusts the employee's bonus months.
func (h *Handler) CreateLetter(w http.ResponseWriter, r *http.Request) {
	var req CreateLetterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	issuedAt, err := generic.ParseDate(strings.TrimSpace(req.IssuedAt))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid issued_at", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	kind := generic.LetterKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	letter := generic.Letter{
		ID:          generic.LetterID(req.ID),
		EmployeeID:  employeeIDParam(r),
		Kind:        kind,
		BonusMonths: generic.SignedMonths(kind, req.Months),
		IssuedAt:    issuedAt,
		Subject:     strings.TrimSpace(req.Subject),
	}
	if err := h.Repo.AddLetter(r.Context(), letter); err != nil {
		writeDomainError(w, "Failed to add letter", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLetterDTO(letter))
}

// DeleteLetter withdraws a letter and reverts its months.
func (h *Handler) DeleteLetter(w http.ResponseWriter, r *http.Request) {
	id := generic.LetterID(chi.URLParam(r, "id"))
	if err := h.Repo.RemoveLetter(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to remove letter", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// COURSE HANDLERS
// =============================================================================

// ListCourses returns an employee's course history.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	id := employeeIDParam(r)
	if _, err := h.Repo.GetEmployee(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}

	courses, err := h.Repo.ListCourses(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list courses", err)
		return
	}

	dtos := make([]CourseDTO, len(courses))
	for i, c := range courses {
		dtos[i] = toCourseDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCourse adds a course to an employee's record.
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := generic.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if req.DurationLabel != nil && strings.TrimSpace(*req.DurationLabel) == "" {
		req.DurationLabel = nil
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	course := generic.Course{
		ID:            generic.CourseID(req.ID),
		EmployeeID:    employeeIDParam(r),
		Title:         strings.TrimSpace(req.Title),
		Date:          date,
		DurationLabel: req.DurationLabel,
	}
	if err := h.Repo.SaveCourse(r.Context(), course); err != nil {
		writeDomainError(w, "Failed to save course", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCourseDTO(course))
}

// DeleteCourse removes a course.
func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id := generic.CourseID(chi.URLParam(r, "id"))
	if err := h.Repo.DeleteCourse(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete course", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetCourseRequirementSettings returns the stored policy and its effect.
func (h *Handler) GetCourseRequirementSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.courseConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load course requirements", err)
		return
	}
	writeJSON(w, http.StatusOK, h.settingsDTO(cfg))
}

// UpdateCourseRequirementSettings validates and replaces the course policy.
// The body is the policy document itself.
func (h *Handler) UpdateCourseRequirementSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	cfg, err := h.PolicyFactory.ParseCourseRequirements(string(body))
	if err != nil {
		writeDomainError(w, "Invalid course requirements", err)
		return
	}

	doc, err := h.PolicyFactory.MarshalCourseRequirements(cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode course requirements", err)
		return
	}
	if err := h.Repo.SaveCourseRequirementJSON(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save course requirements", err)
		return
	}
	writeJSON(w, http.StatusOK, h.settingsDTO(cfg))
}

func (h *Handler) settingsDTO(cfg promotion.CourseRequirementConfig) CourseRequirementSettingsDTO {
	rows := h.PolicyFactory.EffectiveRequirements(cfg)
	effective := make([]GradeRequirementDTO, len(rows))
	for i, row := range rows {
		effective[i] = GradeRequirementDTO{Grade: int(row.Grade), Required: row.Required, Explicit: row.Explicit}
	}
	return CourseRequirementSettingsDTO{
		Config:    h.PolicyFactory.ToJSON(cfg),
		Effective: effective,
	}
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetGradeDistribution counts employees per current grade, top grade first.
// Every grade appears, including empty ones.
func (h *Handler) GetGradeDistribution(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOfParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}

	assessments, err := h.assessAll(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to assess employees", err)
		return
	}

	counts := make(map[generic.Grade]int)
	for _, ea := range assessments {
		counts[ea.assessment.Grade.CurrentGrade]++
	}

	dto := GradeDistributionDTO{AsOf: asOf.String(), Total: len(assessments)}
	for g := generic.TopGrade; g <= generic.BottomGrade; g++ {
		dto.Grades = append(dto.Grades, GradeCountDTO{Grade: int(g), Count: counts[g]})
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetCourseDeficits lists employees who have not yet met the course
// requirement of their current grade, largest deficit first.
func (h *Handler) GetCourseDeficits(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOfParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}

	assessments, err := h.assessAll(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to assess employees", err)
		return
	}

	dtos := []CourseDeficitDTO{}
	for _, ea := range assessments {
		c := ea.assessment.Courses
		if c.Satisfied() {
			continue
		}
		dtos = append(dtos, CourseDeficitDTO{
			EmployeeID:    string(ea.employee.ID),
			Name:          ea.employee.Name,
			Grade:         int(ea.assessment.Grade.CurrentGrade),
			WeightedCount: c.WeightedCount,
			Required:      c.Required,
			Deficit:       c.Deficit,
		})
	}
	sort.SliceStable(dtos, func(i, j int) bool { return dtos[i].Deficit > dtos[j].Deficit })
	writeJSON(w, http.StatusOK, dtos)
}

type employeeAssessment struct {
	employee   generic.Employee
	assessment promotion.Assessment
}

// assessAll runs the engine for every employee with one config read.
func (h *Handler) assessAll(ctx context.Context, asOf generic.TimePoint) ([]employeeAssessment, error) {
	employees, err := h.Repo.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := h.courseConfig(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]employeeAssessment, 0, len(employees))
	for _, emp := range employees {
		a, err := h.assess(ctx, emp, cfg, asOf)
		if err != nil {
			return nil, err
		}
		out = append(out, employeeAssessment{employee: emp, assessment: a})
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func employeeIDParam(r *http.Request) generic.EmployeeID {
	return generic.EmployeeID(chi.URLParam(r, "id"))
}

// asOfParam reads ?as_of, defaulting to today.
func (h *Handler) asOfParam(r *http.Request) (generic.TimePoint, error) {
	if s := strings.TrimSpace(r.URL.Query().Get("as_of")); s != "" {
		return generic.ParseDate(s)
	}
	return h.Now(), nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's category.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
