package promotion

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/grade-engine/generic"
)

// =============================================================================
// STARTING GRADE - From certificate text
// =============================================================================

type certificateRule struct {
	names []string
	grade generic.Grade
}

// Checked in order, so "دكتوراه" wins over a "ماجستير" mentioned in the
// same certificate text.
var certificateRules = []certificateRule{
	{names: []string{"دكتوراه", "doctorate", "doctoral", "phd", "ph.d"}, grade: 5},
	{names: []string{"ماجستير", "master"}, grade: 6},
	{names: []string{"بكالوريوس", "bachelor"}, grade: 7},
	{names: []string{"دبلوم", "diploma"}, grade: 8},
}

func init() {
	for i := range certificateRules {
		for j, name := range certificateRules[i].names {
			certificateRules[i].names[j] = normalize(name)
		}
	}
}

// StartingGrade maps free-text certificate wording to the grade a new hire
// enters at. Matching is a case-insensitive substring match after
// normalization; anything unrecognized starts at the bottom grade.
func StartingGrade(certificate string) generic.Grade {
	text := normalize(certificate)
	if text == "" {
		return generic.BottomGrade
	}
	for _, rule := range certificateRules {
		for _, name := range rule.names {
			if strings.Contains(text, name) {
				return rule.grade
			}
		}
	}
	return generic.BottomGrade
}

// =============================================================================
// LADDER - Promotion interval per grade
// =============================================================================

// Ladder holds the service years required to leave each grade.
type Ladder struct {
	intervals map[generic.Grade]int64
}

// DefaultLadder is the fixed civil-service promotion policy.
var DefaultLadder = Ladder{
	intervals: map[generic.Grade]int64{
		8: 1,
		7: 4,
		6: 4,
		5: 5,
		4: 5,
		3: 5,
		2: 5,
		1: 5,
	},
}

// Interval returns the years of service needed to leave grade.
func (l Ladder) Interval(grade generic.Grade) decimal.Decimal {
	return decimal.NewFromInt(l.intervals[grade])
}

// Resolve walks the ladder from start, spending years on each promotion
// until the next one is unaffordable or the top grade is reached.
// Years left at the top grade stay in YearsRemainingInGrade.
//
// Negative years leave the employee at start with nothing consumed.
func (l Ladder) Resolve(start generic.Grade, years decimal.Decimal) GradeState {
	if !start.Valid() {
		start = generic.BottomGrade
	}

	state := GradeState{
		StartingGrade:             start,
		CurrentGrade:              start,
		YearsConsumedForPromotion: decimal.Zero,
		YearsRemainingInGrade:     years,
	}
	if years.IsNegative() {
		return state
	}

	// At most BottomGrade-TopGrade iterations: each step moves one grade up.
	remaining := years
	grade := start
	for grade > generic.TopGrade {
		interval := l.Interval(grade)
		if remaining.LessThan(interval) {
			break
		}
		remaining = remaining.Sub(interval)
		grade--
	}

	state.CurrentGrade = grade
	state.YearsRemainingInGrade = remaining
	state.YearsConsumedForPromotion = years.Sub(remaining)
	return state
}

// ResolveGrade is Resolve on the default ladder from the certificate's
// starting grade.
func ResolveGrade(certificate string, totalYears decimal.Decimal) GradeState {
	return DefaultLadder.Resolve(StartingGrade(certificate), totalYears)
}

// =============================================================================
// GRADE START DATE
// =============================================================================

// DeriveGradeStartDate approximates the date the employee entered the grade:
// hire date plus the whole consumed years plus the rounded leftover months.
// Day-level drift is accepted; the date only partitions course history.
func DeriveGradeStartDate(hireDate generic.TimePoint, yearsConsumed decimal.Decimal) generic.TimePoint {
	whole := yearsConsumed.Floor()
	months := yearsConsumed.Sub(whole).Mul(monthsPerYear).Round(0)
	return hireDate.AddYears(int(whole.IntPart())).AddMonths(int(months.IntPart()))
}
