/*
Package factory provides JSON to Go conversion of the course requirement policy.

PURPOSE:
  Converts the admin-editable JSON settings document into a
  promotion.CourseRequirementConfig, and back. HR can change how many
  courses each grade requires, and how much a two-week course weighs,
  without a code change.

JSON SCHEMA:
  {
    "courses_required": {
      "8": 1,
      "7": 2,
      "6": 3
    },
    "two_week_weight": 2
  }

  Both fields are optional. Grades left out fall back to the engine
  defaults (1 for grade 8, 2 for the rest); a missing or zero
  two_week_weight means 2.

VALIDATION:
  - Grade keys must be integers 1..8
  - Required course counts must be >= 0
  - two_week_weight must be >= 0
  Violations return *generic.ConfigError (errors.Is ErrInvalidConfig).

USAGE:
  pf := factory.NewPolicyFactory()
  cfg, err := pf.ParseCourseRequirements(doc)

SEE ALSO:
  - promotion/types.go: CourseRequirementConfig
  - api/handlers.go: GET/PUT /api/settings/course-requirements
*/
package factory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/warp/grade-engine/generic"
	"github.com/warp/grade-engine/promotion"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CourseRequirementJSON is the JSON representation of the course policy.
type CourseRequirementJSON struct {
	CoursesRequired map[string]int `json:"courses_required,omitempty"`
	TwoWeekWeight   int            `json:"two_week_weight,omitempty"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts settings documents to engine configuration.
type PolicyFactory struct{}

func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParseCourseRequirements parses a settings document. An empty document is
// the default configuration.
func (pf *PolicyFactory) ParseCourseRequirements(doc string) (promotion.CourseRequirementConfig, error) {
	if strings.TrimSpace(doc) == "" {
		return promotion.DefaultCourseRequirementConfig(), nil
	}

	var raw CourseRequirementJSON
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return promotion.CourseRequirementConfig{}, fmt.Errorf("%w: %v", generic.ErrInvalidConfig, err)
	}
	return pf.FromJSON(raw)
}

// FromJSON validates a decoded settings document.
func (pf *PolicyFactory) FromJSON(raw CourseRequirementJSON) (promotion.CourseRequirementConfig, error) {
	cfg := promotion.CourseRequirementConfig{
		CoursesRequired: make(map[generic.Grade]int, len(raw.CoursesRequired)),
		TwoWeekWeight:   raw.TwoWeekWeight,
	}

	if raw.TwoWeekWeight < 0 {
		return promotion.CourseRequirementConfig{}, &generic.ConfigError{
			Field:  "two_week_weight",
			Reason: fmt.Sprintf("must be >= 0, got %d", raw.TwoWeekWeight),
		}
	}
	if cfg.TwoWeekWeight == 0 {
		cfg.TwoWeekWeight = promotion.DefaultTwoWeekWeight
	}

	for key, required := range raw.CoursesRequired {
		field := "courses_required." + key
		n, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return promotion.CourseRequirementConfig{}, &generic.ConfigError{Field: field, Reason: "grade must be an integer"}
		}
		grade, err := generic.ParseGrade(n)
		if err != nil {
			return promotion.CourseRequirementConfig{}, &generic.ConfigError{Field: field, Reason: err.Error()}
		}
		if required < 0 {
			return promotion.CourseRequirementConfig{}, &generic.ConfigError{
				Field:  field,
				Reason: fmt.Sprintf("must be >= 0, got %d", required),
			}
		}
		cfg.CoursesRequired[grade] = required
	}

	return cfg, nil
}

// ToJSON converts a configuration back to its JSON form.
func (pf *PolicyFactory) ToJSON(cfg promotion.CourseRequirementConfig) CourseRequirementJSON {
	raw := CourseRequirementJSON{
		CoursesRequired: make(map[string]int, len(cfg.CoursesRequired)),
		TwoWeekWeight:   cfg.Weight(),
	}
	for grade, n := range cfg.CoursesRequired {
		raw.CoursesRequired[strconv.Itoa(int(grade))] = n
	}
	return raw
}

// MarshalCourseRequirements serializes a configuration for storage.
func (pf *PolicyFactory) MarshalCourseRequirements(cfg promotion.CourseRequirementConfig) (string, error) {
	b, err := json.Marshal(pf.ToJSON(cfg))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EffectiveRequirements lists the required course count for every grade,
// top to bottom, with defaults filled in. Used by the settings screen.
func (pf *PolicyFactory) EffectiveRequirements(cfg promotion.CourseRequirementConfig) []GradeRequirement {
	out := make([]GradeRequirement, 0, int(generic.BottomGrade))
	for g := generic.TopGrade; g <= generic.BottomGrade; g++ {
		_, explicit := cfg.CoursesRequired[g]
		out = append(out, GradeRequirement{Grade: g, Required: cfg.Required(g), Explicit: explicit})
	}
	return out
}

// GradeRequirement is one row of the effective course policy.
type GradeRequirement struct {
	Grade    generic.Grade
	Required int
	Explicit bool // false = default applied
}
