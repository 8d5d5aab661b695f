package promotion

import (
	"fmt"
	"strings"
)

// =============================================================================
// DISPLAY STRINGS (Arabic)
// =============================================================================

const (
	lessThanAMonth   = "أقل من شهر"
	noCountedService = "لا توجد خدمة محتسبة"
)

// arabicNoun holds the count-dependent forms of a unit noun.
type arabicNoun struct {
	one  string // 1
	two  string // 2 (dual)
	few  string // 3..10, printed after the number
	many string // 11+, printed after the number
}

var (
	yearNoun  = arabicNoun{one: "سنة واحدة", two: "سنتان", few: "سنوات", many: "سنة"}
	monthNoun = arabicNoun{one: "شهر واحد", two: "شهران", few: "أشهر", many: "شهرًا"}
)

func (n arabicNoun) count(k int) string {
	switch {
	case k == 1:
		return n.one
	case k == 2:
		return n.two
	case k >= 3 && k <= 10:
		return fmt.Sprintf("%d %s", k, n.few)
	default:
		return fmt.Sprintf("%d %s", k, n.many)
	}
}

func formatServiceDuration(d ServiceDuration) string {
	if d.TotalMonths < 0 {
		return noCountedService
	}
	var parts []string
	if d.WholeYears > 0 {
		parts = append(parts, yearNoun.count(d.WholeYears))
	}
	if d.WholeMonths > 0 {
		parts = append(parts, monthNoun.count(d.WholeMonths))
	}
	if len(parts) == 0 {
		return lessThanAMonth
	}
	return strings.Join(parts, " و ")
}

// YearInGrade is the 1-based service year the employee is in within the
// current grade.
func (s GradeState) YearInGrade() int {
	if s.YearsRemainingInGrade.IsNegative() {
		return 1
	}
	return int(s.YearsRemainingInGrade.Floor().IntPart()) + 1
}

// Display renders the grade for employee-facing screens, e.g.
// "الدرجة 6 - السنة 2".
func (s GradeState) Display() string {
	return fmt.Sprintf("الدرجة %d - السنة %d", s.CurrentGrade, s.YearInGrade())
}
