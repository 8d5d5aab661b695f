package promotion

import (
	"github.com/shopspring/decimal"
	"github.com/warp/grade-engine/generic"
)

var monthsPerYear = decimal.NewFromInt(12)

// =============================================================================
// TENURE CALCULATOR
// =============================================================================

// ComputeServiceDuration returns the service between hireDate and asOf,
// counted in whole calendar months, plus bonusMonths.
//
// Month counting looks at the year and month fields only, so an employee
// hired on the 28th has a full month of service on the 1st of the next month.
// A nil hireDate yields the zero duration with Known == false.
func ComputeServiceDuration(hireDate *generic.TimePoint, bonusMonths int, asOf generic.TimePoint) ServiceDuration {
	if hireDate == nil {
		return durationFromMonths(0, false)
	}
	total := generic.MonthsBetween(*hireDate, asOf) + bonusMonths
	return durationFromMonths(total, true)
}

func durationFromMonths(total int, known bool) ServiceDuration {
	years := decimal.NewFromInt(int64(total)).Div(monthsPerYear)
	d := ServiceDuration{
		WholeYears:   total / 12,
		WholeMonths:  total % 12,
		TotalMonths:  total,
		Years:        years,
		YearsDecimal: years.InexactFloat64(),
		Known:        known,
	}
	d.Display = formatServiceDuration(d)
	return d
}
