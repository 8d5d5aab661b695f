/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Dates are
  always YYYY-MM-DD strings; an unknown hire date is JSON null.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Employee:    EmployeeDTO, CreateEmployeeRequest
  Assessment:  AssessmentDTO, ServiceDTO, GradeDTO, CourseRequirementDTO
  Letters:     LetterDTO, CreateLetterRequest
  Courses:     CourseDTO, CreateCourseRequest
  Settings:    CourseRequirementSettingsDTO (wraps factory.CourseRequirementJSON)
  Dashboards:  GradeDistributionDTO, CourseDeficitDTO, GradeSnapshotDTO
  Scenarios:   ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - promotion/assessment.go: Assessment, the source of most response fields
*/
package api

import (
	"time"

	"github.com/warp/grade-engine/factory"
	"github.com/warp/grade-engine/generic"
	"github.com/warp/grade-engine/promotion"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	HireDate           *string `json:"hire_date"`
	Certificate        string  `json:"certificate"`
	BonusServiceMonths int     `json:"bonus_service_months"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

// CreateEmployeeRequest creates or updates an employee. Bonus months are
// not accepted here; they come from letters.
type CreateEmployeeRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HireDate    string `json:"hire_date"`
	Certificate string `json:"certificate"`
}

// =============================================================================
// ASSESSMENT
// =============================================================================

// ServiceDTO is the counted service duration.
type ServiceDTO struct {
	WholeYears   int     `json:"whole_years"`
	WholeMonths  int     `json:"whole_months"`
	TotalMonths  int     `json:"total_months"`
	YearsDecimal float64 `json:"years_decimal"`
	Display      string  `json:"display"`
	Known        bool    `json:"known"`
}

// GradeDTO is the resolved grade state.
type GradeDTO struct {
	StartingGrade             int     `json:"starting_grade"`
	CurrentGrade              int     `json:"current_grade"`
	YearsConsumedForPromotion float64 `json:"years_consumed_for_promotion"`
	YearsRemainingInGrade     float64 `json:"years_remaining_in_grade"`
	YearInGrade               int     `json:"year_in_grade"`
	Display                   string  `json:"display"`
	GradeStartDate            *string `json:"grade_start_date"`
	NextPromotionDate         *string `json:"next_promotion_date"`
}

// CourseRequirementDTO is the course requirement verdict for the current grade.
type CourseRequirementDTO struct {
	Grade         int     `json:"grade"`
	CountedFrom   *string `json:"counted_from"`
	WeightedCount int     `json:"weighted_count"`
	Required      int     `json:"required"`
	Deficit       int     `json:"deficit"`
	Satisfied     bool    `json:"satisfied"`
}

// AssessmentDTO is the full per-employee view.
type AssessmentDTO struct {
	EmployeeID string               `json:"employee_id"`
	Name       string               `json:"name"`
	AsOf       string               `json:"as_of"`
	Service    ServiceDTO           `json:"service"`
	Grade      GradeDTO             `json:"grade"`
	Courses    CourseRequirementDTO `json:"courses"`
}

// =============================================================================
// LETTERS & COURSES
// =============================================================================

// LetterDTO represents a commendation or sanction.
type LetterDTO struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employee_id"`
	Kind        string `json:"kind"`
	BonusMonths int    `json:"bonus_months"`
	IssuedAt    string `json:"issued_at"`
	Subject     string `json:"subject,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreateLetterRequest records a letter. Months is the magnitude; the sign is
// taken from Kind.
type CreateLetterRequest struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Months   int    `json:"months"`
	IssuedAt string `json:"issued_at"`
	Subject  string `json:"subject"`
}

// CourseDTO represents a course on an employee's record.
type CourseDTO struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	Title         string  `json:"title"`
	Date          string  `json:"date"`
	DurationLabel *string `json:"duration_label"`
	TwoWeek       bool    `json:"two_week"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// CreateCourseRequest adds a course.
type CreateCourseRequest struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Date          string  `json:"date"`
	DurationLabel *string `json:"duration_label"`
}

// =============================================================================
// SETTINGS
// =============================================================================

// CourseRequirementSettingsDTO is the stored policy plus the effective
// requirement for every grade.
type CourseRequirementSettingsDTO struct {
	Config    factory.CourseRequirementJSON `json:"config"`
	Effective []GradeRequirementDTO         `json:"effective"`
}

type GradeRequirementDTO struct {
	Grade    int  `json:"grade"`
	Required int  `json:"required"`
	Explicit bool `json:"explicit"`
}

// =============================================================================
// DASHBOARDS & HISTORY
// =============================================================================

type GradeCountDTO struct {
	Grade int `json:"grade"`
	Count int `json:"count"`
}

// GradeDistributionDTO counts employees per current grade.
type GradeDistributionDTO struct {
	AsOf   string          `json:"as_of"`
	Total  int             `json:"total"`
	Grades []GradeCountDTO `json:"grades"`
}

// CourseDeficitDTO lists an employee still short of courses for their grade.
type CourseDeficitDTO struct {
	EmployeeID    string `json:"employee_id"`
	Name          string `json:"name"`
	Grade         int    `json:"grade"`
	WeightedCount int    `json:"weighted_count"`
	Required      int    `json:"required"`
	Deficit       int    `json:"deficit"`
}

// GradeSnapshotDTO is one entry of an employee's grade history.
type GradeSnapshotDTO struct {
	Grade          int     `json:"grade"`
	GradeStartDate *string `json:"grade_start_date"`
	RecordedAt     string  `json:"recorded_at"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func datePtr(tp *generic.TimePoint) *string {
	if tp == nil {
		return nil
	}
	s := tp.String()
	return &s
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toEmployeeDTO(e generic.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:                 string(e.ID),
		Name:               e.Name,
		HireDate:           datePtr(e.HireDate),
		Certificate:        e.Certificate,
		BonusServiceMonths: e.BonusServiceMonths,
		CreatedAt:          timestamp(e.CreatedAt),
	}
}

func toServiceDTO(s promotion.ServiceDuration) ServiceDTO {
	return ServiceDTO{
		WholeYears:   s.WholeYears,
		WholeMonths:  s.WholeMonths,
		TotalMonths:  s.TotalMonths,
		YearsDecimal: s.YearsDecimal,
		Display:      s.Display,
		Known:        s.Known,
	}
}

func toGradeDTO(a promotion.Assessment) GradeDTO {
	return GradeDTO{
		StartingGrade:             int(a.Grade.StartingGrade),
		CurrentGrade:              int(a.Grade.CurrentGrade),
		YearsConsumedForPromotion: a.Grade.YearsConsumedForPromotion.InexactFloat64(),
		YearsRemainingInGrade:     a.Grade.YearsRemainingInGrade.InexactFloat64(),
		YearInGrade:               a.Grade.YearInGrade(),
		Display:                   a.GradeDisplay,
		GradeStartDate:            datePtr(a.GradeStartDate),
		NextPromotionDate:         datePtr(a.NextPromotionDate),
	}
}

func toCourseRequirementDTO(a promotion.Assessment) CourseRequirementDTO {
	return CourseRequirementDTO{
		Grade:         int(a.Grade.CurrentGrade),
		CountedFrom:   datePtr(a.GradeStartDate),
		WeightedCount: a.Courses.WeightedCount,
		Required:      a.Courses.Required,
		Deficit:       a.Courses.Deficit,
		Satisfied:     a.Courses.Satisfied(),
	}
}

func toAssessmentDTO(e generic.Employee, a promotion.Assessment) AssessmentDTO {
	return AssessmentDTO{
		EmployeeID: string(e.ID),
		Name:       e.Name,
		AsOf:       a.AsOf.String(),
		Service:    toServiceDTO(a.Service),
		Grade:      toGradeDTO(a),
		Courses:    toCourseRequirementDTO(a),
	}
}

func toLetterDTO(l generic.Letter) LetterDTO {
	return LetterDTO{
		ID:          string(l.ID),
		EmployeeID:  string(l.EmployeeID),
		Kind:        string(l.Kind),
		BonusMonths: l.BonusMonths,
		IssuedAt:    l.IssuedAt.String(),
		Subject:     l.Subject,
		CreatedAt:   timestamp(l.CreatedAt),
	}
}

func toCourseDTO(c generic.Course) CourseDTO {
	dto := CourseDTO{
		ID:            string(c.ID),
		EmployeeID:    string(c.EmployeeID),
		Title:         c.Title,
		Date:          c.Date.String(),
		DurationLabel: c.DurationLabel,
		CreatedAt:     timestamp(c.CreatedAt),
	}
	if c.DurationLabel != nil {
		dto.TwoWeek = promotion.IsTwoWeekDuration(*c.DurationLabel)
	}
	return dto
}

func toGradeSnapshotDTO(s generic.GradeSnapshot) GradeSnapshotDTO {
	return GradeSnapshotDTO{
		Grade:          int(s.Grade),
		GradeStartDate: datePtr(s.GradeStartDate),
		RecordedAt:     s.RecordedAt.String(),
	}
}
