package promotion

import (
	"time"

	"github.com/warp/grade-engine/generic"
)

// =============================================================================
// ASSESSMENT - The full tenure -> grade -> courses pipeline
// =============================================================================

// AssessmentInput is the read-only snapshot of one employee the engine needs.
// Employee, courses and config must be read for the same asOf for the result
// to be coherent; the engine does not check this.
type AssessmentInput struct {
	HireDate           *generic.TimePoint
	Certificate        string
	BonusServiceMonths int
	Courses            []CourseRecord
}

// Assessment is everything the engine derives for one employee.
type Assessment struct {
	AsOf    generic.TimePoint
	Service ServiceDuration
	Grade   GradeState

	// GradeStartDate is nil when the hire date is unknown.
	GradeStartDate *generic.TimePoint

	// NextPromotionDate is the first date the service total reaches the next
	// rung, assuming no further letters. Nil at the top grade or without a
	// hire date.
	NextPromotionDate *generic.TimePoint

	Courses      CourseRequirement
	GradeDisplay string
}

// InputFor builds the engine input from stored records.
func InputFor(emp generic.Employee, courses []generic.Course) AssessmentInput {
	return AssessmentInput{
		HireDate:           emp.HireDate,
		Certificate:        emp.Certificate,
		BonusServiceMonths: emp.BonusServiceMonths,
		Courses:            CourseRecordsFrom(courses),
	}
}

// CourseRecordsFrom projects stored courses onto what the evaluator reads.
func CourseRecordsFrom(courses []generic.Course) []CourseRecord {
	records := make([]CourseRecord, len(courses))
	for i, c := range courses {
		records[i] = CourseRecord{Date: c.Date, DurationLabel: c.DurationLabel}
	}
	return records
}

// Assess runs the pipeline for one employee as of asOf.
//
// Without a hire date the employee sits at their starting grade and, since
// they have never been promoted, every course on record counts.
func Assess(in AssessmentInput, cfg CourseRequirementConfig, asOf generic.TimePoint) Assessment {
	service := ComputeServiceDuration(in.HireDate, in.BonusServiceMonths, asOf)
	grade := ResolveGrade(in.Certificate, service.Years)

	result := Assessment{
		AsOf:         asOf,
		Service:      service,
		Grade:        grade,
		GradeDisplay: grade.Display(),
	}

	var countFrom generic.TimePoint
	if in.HireDate != nil {
		start := DeriveGradeStartDate(*in.HireDate, grade.YearsConsumedForPromotion)
		result.GradeStartDate = &start
		countFrom = start
		result.NextPromotionDate = nextPromotionDate(*in.HireDate, in.BonusServiceMonths, grade)
	}

	result.Courses = EvaluateCourseRequirement(in.Courses, countFrom, grade.CurrentGrade, cfg)
	return result
}

// nextPromotionDate solves MonthsBetween(hire, d) + bonus >= rung months for
// the earliest d. Month counting ignores the day, so that is the first of
// the month.
func nextPromotionDate(hire generic.TimePoint, bonusMonths int, grade GradeState) *generic.TimePoint {
	if grade.CurrentGrade <= generic.TopGrade {
		return nil
	}
	rung := grade.YearsConsumedForPromotion.Add(DefaultLadder.Interval(grade.CurrentGrade))
	months := int(rung.Mul(monthsPerYear).Ceil().IntPart()) - bonusMonths
	d := generic.NewTimePoint(hire.Year(), hire.Month()+time.Month(months), 1)
	return &d
}
