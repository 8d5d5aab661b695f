/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request counter and latency histogram
  5. CORS:       Cross-origin requests for the HR frontend

ROUTE GROUPS:
  /api/employees/*      Employee records, assessment views, letters, courses
  /api/letters/*        Letter withdrawal
  /api/courses/*        Course deletion
  /api/settings/*       Course requirement policy
  /api/dashboard/*      Grade distribution, course deficits
  /api/admin/*          Manual promotion watch run
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics.go: Prometheus collectors
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	if h.Metrics == nil {
		h.Metrics = NewMetrics()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Delete("/{id}", h.DeleteEmployee)

			r.Get("/{id}/assessment", h.GetAssessment)
			r.Get("/{id}/service", h.GetService)
			r.Get("/{id}/grade", h.GetGrade)
			r.Get("/{id}/course-requirement", h.GetCourseRequirement)
			r.Get("/{id}/grade-history", h.GetGradeHistory)

			r.Get("/{id}/letters", h.ListLetters)
			r.Post("/{id}/letters", h.CreateLetter)
			r.Get("/{id}/courses", h.ListCourses)
			r.Post("/{id}/courses", h.CreateCourse)
		})

		r.Delete("/letters/{id}", h.DeleteLetter)
		r.Delete("/courses/{id}", h.DeleteCourse)

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Get("/course-requirements", h.GetCourseRequirementSettings)
			r.Put("/course-requirements", h.UpdateCourseRequirementSettings)
		})

		// Dashboard routes
		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/grades", h.GetGradeDistribution)
			r.Get("/course-deficits", h.GetCourseDeficits)
		})

		// Admin routes
		r.Post("/admin/grade-snapshots", h.TriggerGradeSnapshots)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Grade Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Service Tenure &amp; Promotion Grade Engine API</h1>
<ul>
<li><a href="/api/employees">/api/employees</a> - List employees</li>
<li><a href="/api/dashboard/grades">/api/dashboard/grades</a> - Grade distribution</li>
<li><a href="/api/dashboard/course-deficits">/api/dashboard/course-deficits</a> - Course deficits</li>
<li><a href="/api/settings/course-requirements">/api/settings/course-requirements</a> - Course policy</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`))
	})

	return r
}
