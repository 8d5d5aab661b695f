package promotion

import "github.com/warp/grade-engine/generic"

// =============================================================================
// COURSE REQUIREMENT EVALUATOR
// =============================================================================

// twoWeekTerms are the duration labels that mark a two-week course.
// Anything else, including other durations like "10 أيام", weighs 1.
var twoWeekTerms = []string{
	"أسبوعين",
	"أسبوعان",
	"2 أسبوع",
	"2أسبوع",
	"2 أسابيع",
	"two weeks",
	"two-week",
	"2 weeks",
	"2-week",
	"2weeks",
	"fortnight",
}

func init() {
	for i, term := range twoWeekTerms {
		twoWeekTerms[i] = normalize(term)
	}
}

// IsTwoWeekDuration reports whether a free-text duration label denotes a
// two-week course.
func IsTwoWeekDuration(label string) bool {
	text := normalize(label)
	for _, term := range twoWeekTerms {
		if containsTerm(text, term) {
			return true
		}
	}
	return false
}

// CourseWeight is how many units a course counts for.
func CourseWeight(course CourseRecord, cfg CourseRequirementConfig) int {
	if course.DurationLabel != nil && IsTwoWeekDuration(*course.DurationLabel) {
		return cfg.Weight()
	}
	return 1
}

// EvaluateCourseRequirement counts the weighted courses taken on or after
// gradeStart and compares them with what grade requires. Courses from a
// previous grade never count: the tally resets on promotion.
func EvaluateCourseRequirement(courses []CourseRecord, gradeStart generic.TimePoint, grade generic.Grade, cfg CourseRequirementConfig) CourseRequirement {
	weighted := 0
	for _, c := range courses {
		if c.Date.Before(gradeStart) {
			continue
		}
		weighted += CourseWeight(c, cfg)
	}

	required := cfg.Required(grade)
	deficit := required - weighted
	if deficit < 0 {
		deficit = 0
	}
	return CourseRequirement{
		WeightedCount: weighted,
		Required:      required,
		Deficit:       deficit,
	}
}
