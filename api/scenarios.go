/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	HR records. Each scenario creates employees, letters and courses that
	demonstrate a specific part of the tenure and promotion rules. Hire
	dates are relative to today so the demo stays meaningful over time.

AVAILABLE SCENARIOS:

	new-hires:        One employee per certificate, freshly promoted or not
	letters:          Commendations and sanctions moving service time
	course-tracking:  Course counting from the grade start date
	career-ladder:    Long careers, unknown hire date, unknown certificate

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create employees
 3. Record letters (which maintain bonus service months)
 4. Record courses

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "letters"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handlers these scenarios are meant to be explored with
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/warp/grade-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-hires",
		Name:        "New Hires",
		Description: "One employee per certificate level, showing starting grades and the first promotion",
	},
	{
		ID:          "letters",
		Name:        "Commendations & Sanctions",
		Description: "Letters adding or removing service months, including a sanction that cancels a promotion",
	},
	{
		ID:          "course-tracking",
		Name:        "Course Tracking",
		Description: "Courses before and after the grade start date, two-week courses weighted double",
	},
	{
		ID:          "career-ladder",
		Name:        "Career Ladder",
		Description: "Long careers reaching the top grade, plus records with missing data",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	today := h.Now()

	var load func(context.Context, generic.TimePoint) error
	switch req.ScenarioID {
	case "new-hires":
		load = h.loadNewHiresScenario
	case "letters":
		load = h.loadLettersScenario
	case "course-tracking":
		load = h.loadCourseTrackingScenario
	case "career-ladder":
		load = h.loadCareerLadderScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	if err := h.Repo.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx, today); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadNewHiresScenario(ctx context.Context, today generic.TimePoint) error {
	// Bachelor hired exactly four years ago: one full grade-7 interval, now grade 6
	// Diploma hired one year ago: grade 8 interval is a single year, now grade 7
	// Master hired eight months ago: still in grade 6, year 1
	// Doctorate hired two years ago: grade 5, year 3
	return h.seedEmployees(ctx,
		seedEmployee{id: "emp-001", name: "سارة أحمد", hire: today.AddYears(-4).Ptr(), certificate: "بكالوريوس محاسبة"},
		seedEmployee{id: "emp-002", name: "خالد محمود", hire: today.AddYears(-1).Ptr(), certificate: "دبلوم فني"},
		seedEmployee{id: "emp-003", name: "ليلى حسن", hire: today.AddMonths(-8).Ptr(), certificate: "ماجستير إدارة أعمال"},
		seedEmployee{id: "emp-004", name: "Omar Nasser", hire: today.AddYears(-2).Ptr(), certificate: "PhD in Economics"},
	)
}

func (h *Handler) loadLettersScenario(ctx context.Context, today generic.TimePoint) error {
	err := h.seedEmployees(ctx,
		seedEmployee{id: "emp-101", name: "يوسف علي", hire: today.AddYears(-4).Ptr(), certificate: "بكالوريوس"},
		seedEmployee{id: "emp-102", name: "مريم سالم", hire: today.AddYears(-3).Ptr(), certificate: "بكالوريوس"},
		seedEmployee{id: "emp-103", name: "Hassan Karim", hire: today.AddMonths(-10).Ptr(), certificate: "Diploma"},
	)
	if err != nil {
		return err
	}

	letters := []generic.Letter{
		// Four years of sanctions erase four years of service: no promotion
		{ID: "ltr-101", EmployeeID: "emp-101", Kind: generic.LetterSanction, BonusMonths: -24, IssuedAt: today.AddYears(-2), Subject: "إنذار نهائي"},
		{ID: "ltr-102", EmployeeID: "emp-101", Kind: generic.LetterSanction, BonusMonths: -24, IssuedAt: today.AddYears(-1), Subject: "عقوبة إدارية"},
		// A year of commendation pushes three years of service over the grade-7 rung
		{ID: "ltr-103", EmployeeID: "emp-102", Kind: generic.LetterCommendation, BonusMonths: 12, IssuedAt: today.AddMonths(-6), Subject: "كتاب شكر وتقدير"},
		// Two months of commendation complete the grade-8 year
		{ID: "ltr-104", EmployeeID: "emp-103", Kind: generic.LetterCommendation, BonusMonths: 2, IssuedAt: today.AddMonths(-1), Subject: "Outstanding audit support"},
	}
	for _, l := range letters {
		if err := h.Repo.AddLetter(ctx, l); err != nil {
			return fmt.Errorf("letter %s: %w", l.ID, err)
		}
	}
	return nil
}

func (h *Handler) loadCourseTrackingScenario(ctx context.Context, today generic.TimePoint) error {
	// Both employees were promoted out of grade 7 one year ago, so their
	// grade start date is today minus one year.
	hire := today.AddYears(-5)
	gradeStart := hire.AddYears(4)

	err := h.seedEmployees(ctx,
		seedEmployee{id: "emp-201", name: "نور الهدى", hire: &hire, certificate: "بكالوريوس هندسة"},
		seedEmployee{id: "emp-202", name: "Tariq Saleh", hire: &hire, certificate: "Bachelor of Science"},
		seedEmployee{id: "emp-203", name: "رنا يوسف", hire: today.AddMonths(-5).Ptr(), certificate: "دبلوم"},
	)
	if err != nil {
		return err
	}

	twoWeeks := "أسبوعين"
	threeDays := "3 أيام"
	fortnight := "Two weeks"
	courses := []generic.Course{
		// Counted: a two-week course (weight 2) after the grade start
		{ID: "crs-201", EmployeeID: "emp-201", Title: "إدارة المشاريع", Date: gradeStart.AddMonths(3), DurationLabel: &twoWeeks},
		// Not counted: taken the day before the grade start
		{ID: "crs-202", EmployeeID: "emp-201", Title: "السلامة المهنية", Date: gradeStart.AddDays(-1), DurationLabel: &twoWeeks},

		// Counted once: a short course after the grade start; still one short
		{ID: "crs-203", EmployeeID: "emp-202", Title: "Excel Advanced", Date: gradeStart.AddMonths(2), DurationLabel: &threeDays},
		{ID: "crs-204", EmployeeID: "emp-202", Title: "Leadership Basics", Date: gradeStart.AddMonths(-6), DurationLabel: &fortnight},

		// Grade 8 needs a single course
		{ID: "crs-205", EmployeeID: "emp-203", Title: "الأرشفة الإلكترونية", Date: today.AddMonths(-2)},
	}
	for _, c := range courses {
		if err := h.Repo.SaveCourse(ctx, c); err != nil {
			return fmt.Errorf("course %s: %w", c.ID, err)
		}
	}
	return nil
}

func (h *Handler) loadCareerLadderScenario(ctx context.Context, today generic.TimePoint) error {
	return h.seedEmployees(ctx,
		// 30 years from grade 7 reaches the top grade with two years to spare
		seedEmployee{id: "emp-301", name: "عبدالله الراشد", hire: today.AddYears(-30).Ptr(), certificate: "بكالوريوس"},
		// 12 years from grade 5: two promotions, two years into grade 3
		seedEmployee{id: "emp-302", name: "Dr. Amal Faris", hire: today.AddYears(-12).Ptr(), certificate: "دكتوراه"},
		// Unknown hire date: stays at the starting grade
		seedEmployee{id: "emp-303", name: "فاطمة زكي", certificate: "ماجستير"},
		// Unrecognized certificate: starts at the bottom grade
		seedEmployee{id: "emp-304", name: "Sami Haddad", hire: today.AddYears(-6).Ptr(), certificate: "شهادة ثانوية"},
	)
}

// =============================================================================
// HELPERS
// =============================================================================

type seedEmployee struct {
	id          generic.EmployeeID
	name        string
	hire        *generic.TimePoint
	certificate string
}

func (h *Handler) seedEmployees(ctx context.Context, seeds ...seedEmployee) error {
	for _, s := range seeds {
		emp := generic.Employee{ID: s.id, Name: s.name, HireDate: s.hire, Certificate: s.certificate}
		if err := h.Repo.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("employee %s: %w", s.id, err)
		}
	}
	return nil
}
