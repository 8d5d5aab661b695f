/*
Package promotion implements the service tenure and promotion grade engine.

PURPOSE:
  Converts an employee's hire date, certificate and accumulated
  commendation/sanction months into:
  - a civil-service grade (1 = most senior, 8 = entry level)
  - the date the employee entered that grade
  - how many qualifying training courses they still need before the
    next promotion

PIPELINE:
  Data flows strictly downstream, each step pure:

    ComputeServiceDuration   hire date + bonus months -> ServiceDuration
          |
    ResolveGrade             certificate + years      -> GradeState
          |
    DeriveGradeStartDate     hire date + consumed     -> grade start date
          |
    EvaluateCourseRequirement courses since grade start -> CourseRequirement

  Assess runs the whole pipeline in one place so every caller applies the
  same "courses reset on promotion" rule.

FALLBACKS (never errors):
  - No hire date:           zero tenure, starting grade, all courses count
  - Unknown certificate:    starting grade 8
  - Missing config entry:   1 course for grade 8, 2 for every other grade
  - Negative tenure:        stays at the starting grade

CLOCK:
  Nothing here reads the wall clock. Every entry point takes an explicit
  asOf date, so results are reproducible.

CONCURRENCY:
  All functions are safe for concurrent use. Inputs are never mutated.

SEE ALSO:
  - tenure.go: Service duration
  - ladder.go: Grade ladder and grade start date
  - courses.go: Course requirement evaluation
  - assessment.go: The full pipeline
*/
package promotion

import (
	"github.com/shopspring/decimal"
	"github.com/warp/grade-engine/generic"
)

// =============================================================================
// SERVICE DURATION
// =============================================================================

// ServiceDuration is total countable service, recomputed on every query.
//
// Invariants:
//
//	TotalMonths == WholeYears*12 + WholeMonths
//	Years == TotalMonths / 12
//
// TotalMonths goes negative when sanctions exceed accrued service; whole
// parts then truncate toward zero so the first invariant still holds.
type ServiceDuration struct {
	WholeYears   int
	WholeMonths  int
	TotalMonths  int
	Years        decimal.Decimal
	YearsDecimal float64
	Display      string

	// Known is false when the hire date is missing and the duration is the
	// zero fallback.
	Known bool
}

// =============================================================================
// GRADE STATE
// =============================================================================

// GradeState is where the promotion ladder walk ended.
type GradeState struct {
	StartingGrade generic.Grade
	CurrentGrade  generic.Grade

	// YearsConsumedForPromotion is the service spent climbing from
	// StartingGrade to CurrentGrade.
	YearsConsumedForPromotion decimal.Decimal

	// YearsRemainingInGrade is service left over after the last promotion.
	// Negative when total tenure is negative.
	YearsRemainingInGrade decimal.Decimal
}

// =============================================================================
// COURSES
// =============================================================================

// CourseRecord is the slice of a course the evaluator looks at.
type CourseRecord struct {
	Date          generic.TimePoint
	DurationLabel *string
}

// CourseRequirementConfig is the admin-editable course policy.
// Grades missing from CoursesRequired use the defaults (see Required).
type CourseRequirementConfig struct {
	CoursesRequired map[generic.Grade]int
	TwoWeekWeight   int
}

const (
	DefaultTwoWeekWeight         = 2
	DefaultCoursesRequired       = 2
	DefaultBottomCoursesRequired = 1
)

// DefaultCourseRequirementConfig has no explicit grade entries, so every
// grade falls back to its documented default.
func DefaultCourseRequirementConfig() CourseRequirementConfig {
	return CourseRequirementConfig{
		CoursesRequired: map[generic.Grade]int{},
		TwoWeekWeight:   DefaultTwoWeekWeight,
	}
}

// Required returns the number of weighted courses needed to leave grade.
func (c CourseRequirementConfig) Required(grade generic.Grade) int {
	if n, ok := c.CoursesRequired[grade]; ok {
		return n
	}
	if grade == generic.BottomGrade {
		return DefaultBottomCoursesRequired
	}
	return DefaultCoursesRequired
}

// Weight returns the weight of a two-week course. An unset or non-positive
// weight means the default.
func (c CourseRequirementConfig) Weight() int {
	if c.TwoWeekWeight <= 0 {
		return DefaultTwoWeekWeight
	}
	return c.TwoWeekWeight
}

// CourseRequirement is the evaluator's verdict for the current grade.
type CourseRequirement struct {
	WeightedCount int
	Required      int
	Deficit       int
}

// Satisfied reports whether no more courses are needed.
func (r CourseRequirement) Satisfied() bool { return r.Deficit == 0 }
