/*
scheduler.go - Promotion watch

PURPOSE:
  Grades are derived on read and never stored, so a promotion happens
  silently when an employee's service crosses a rung. The promotion watch
  periodically assesses every employee and records a GradeSnapshot whenever
  the grade differs from the last one recorded, which gives HR a grade
  history and a log line (and a metric) for each promotion.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - First observation of an employee records a baseline snapshot
  - A lower grade number than the last snapshot is a promotion
  - A higher one (e.g. after a sanction letter) is recorded as a regression
  - Unchanged grades record nothing, so running twice is harmless
  - Passes are serialized, and an employee whose latest snapshot is dated
    after the pass's as-of date is skipped, so history stays append-only

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the watch is active (default: true)

USAGE:
  watch := NewPromotionWatch(handler)
  watch.Start()
  // ... later
  watch.Stop()

SEE ALSO:
  - handlers.go: GetGradeHistory endpoint
  - POST /api/admin/grade-snapshots: manual run
*/
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/warp/grade-engine/generic"
)

// PromotionWatch periodically records grade changes.
type PromotionWatch struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// WatchSummary reports one pass over all employees.
type WatchSummary struct {
	AsOf        string `json:"as_of"`
	Checked     int    `json:"checked"`
	Baselines   int    `json:"baselines"`
	Promotions  int    `json:"promotions"`
	Regressions int    `json:"regressions"`
	Skipped     int    `json:"skipped"`
}

// NewPromotionWatch creates a new watch.
func NewPromotionWatch(handler *Handler) *PromotionWatch {
	return &PromotionWatch{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the watch.
func (pw *PromotionWatch) Start() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.Enabled {
		log.Println("[PromotionWatch] Disabled, not starting")
		return
	}
	if pw.ticker != nil {
		return
	}
	if pw.CheckInterval <= 0 {
		pw.CheckInterval = time.Hour
	}

	pw.ticker = time.NewTicker(pw.CheckInterval)
	pw.stop = make(chan struct{})
	pw.wg.Add(1)

	go pw.run(pw.ticker, pw.stop)

	log.Printf("[PromotionWatch] Started with check interval: %v", pw.CheckInterval)
}

// Stop stops the watch and waits for an in-flight pass to finish.
func (pw *PromotionWatch) Stop() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.ticker == nil {
		return
	}
	pw.ticker.Stop()
	close(pw.stop)
	pw.wg.Wait()
	pw.ticker = nil
	log.Println("[PromotionWatch] Stopped")
}

func (pw *PromotionWatch) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer pw.wg.Done()

	// Run immediately on start
	pw.check()

	for {
		select {
		case <-ticker.C:
			pw.check()
		case <-stop:
			return
		}
	}
}

func (pw *PromotionWatch) check() {
	summary, err := pw.Handler.RecordGradeChanges(context.Background(), pw.Handler.Now())
	if err != nil {
		log.Printf("[PromotionWatch] Error: %v", err)
		return
	}
	if summary.Baselines > 0 || summary.Promotions > 0 || summary.Regressions > 0 {
		log.Printf("[PromotionWatch] Completed: %d checked, %d baselines, %d promotions, %d regressions",
			summary.Checked, summary.Baselines, summary.Promotions, summary.Regressions)
	}
}

// =============================================================================
// GRADE CHANGE DETECTION
// =============================================================================

// RecordGradeChanges assesses every employee as of asOf and stores a
// snapshot for each one whose grade differs from their latest snapshot.
// An error for one employee is logged and does not stop the pass.
// Employees already snapshotted after asOf are skipped.
func (h *Handler) RecordGradeChanges(ctx context.Context, asOf generic.TimePoint) (WatchSummary, error) {
	h.snapshotMu.Lock()
	defer h.snapshotMu.Unlock()

	summary := WatchSummary{AsOf: asOf.String()}

	assessments, err := h.assessAll(ctx, asOf)
	if err != nil {
		return summary, fmt.Errorf("assess employees: %w", err)
	}

	for _, ea := range assessments {
		summary.Checked++
		id := ea.employee.ID
		grade := ea.assessment.Grade.CurrentGrade

		latest, err := h.Repo.LatestGradeSnapshot(ctx, id)
		if err != nil {
			log.Printf("[PromotionWatch] Error loading snapshot for %s: %v", id, err)
			continue
		}
		if latest != nil && asOf.Before(latest.RecordedAt) {
			summary.Skipped++
			continue
		}
		if latest != nil && latest.Grade == grade {
			continue
		}

		snap := generic.GradeSnapshot{
			EmployeeID:     id,
			Grade:          grade,
			GradeStartDate: ea.assessment.GradeStartDate,
			RecordedAt:     asOf,
		}
		if err := h.Repo.SaveGradeSnapshot(ctx, snap); err != nil {
			log.Printf("[PromotionWatch] Error saving snapshot for %s: %v", id, err)
			continue
		}

		switch {
		case latest == nil:
			summary.Baselines++
		case grade < latest.Grade:
			summary.Promotions++
			h.Metrics.IncPromotion()
			log.Printf("[PromotionWatch] %s (%s) promoted from grade %d to grade %d",
				ea.employee.Name, id, latest.Grade, grade)
		default:
			summary.Regressions++
			log.Printf("[PromotionWatch] %s (%s) moved from grade %d back to grade %d",
				ea.employee.Name, id, latest.Grade, grade)
		}
	}

	return summary, nil
}

// TriggerGradeSnapshots runs the promotion watch once, as of ?as_of or today.
func (h *Handler) TriggerGradeSnapshots(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOfParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}

	summary, err := h.RecordGradeChanges(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record grade changes", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
