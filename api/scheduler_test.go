package api

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/grade-engine/generic"
)

func TestRecordGradeChanges_BaselineThenPromotion(t *testing.T) {
	// GIVEN: A bachelor one month short of the grade-7 rung
	h, router := newTestAPI(t)
	ctx := context.Background()
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-w", Name: "Watched", HireDate: "2022-11-01", Certificate: "بكالوريوس"})

	// WHEN: The watch first runs
	summary, err := h.RecordGradeChanges(ctx, generic.NewTimePoint(2026, time.October, 15))
	require.NoError(t, err)

	// THEN: A baseline at grade 7 is recorded
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Baselines)
	assert.Equal(t, 0, summary.Promotions)

	// WHEN: It runs again once the rung is reached
	summary, err = h.RecordGradeChanges(ctx, generic.NewTimePoint(2026, time.November, 1))
	require.NoError(t, err)

	// THEN: The promotion is recorded
	assert.Equal(t, 1, summary.Promotions)

	// WHEN: It runs again with nothing changed
	summary, err = h.RecordGradeChanges(ctx, generic.NewTimePoint(2026, time.November, 2))
	require.NoError(t, err)

	// THEN: Nothing new is recorded
	assert.Equal(t, 0, summary.Baselines+summary.Promotions+summary.Regressions)

	history, err := h.Repo.GradeHistory(ctx, "emp-w")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, generic.Grade(7), history[0].Grade)
	assert.Equal(t, generic.Grade(6), history[1].Grade)
	require.NotNil(t, history[1].GradeStartDate)
	assert.Equal(t, "2026-11-01", history[1].GradeStartDate.String())

	rec := do(t, router, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rec.Body.String(), "grade_engine_promotions_detected_total 1")
}

func TestRecordGradeChanges_SanctionRegression(t *testing.T) {
	h, router := newTestAPI(t)
	ctx := context.Background()
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-r", Name: "R", HireDate: "2022-10-15", Certificate: "بكالوريوس"})

	summary, err := h.RecordGradeChanges(ctx, testToday)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Baselines)

	rec := do(t, router, http.MethodPost, "/api/employees/emp-r/letters",
		CreateLetterRequest{Kind: "sanction", Months: 6, IssuedAt: "2026-10-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	summary, err = h.RecordGradeChanges(ctx, testToday.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Regressions)
	assert.Equal(t, 0, summary.Promotions)
}

func TestRecordGradeChanges_ConcurrentPassesRecordOnce(t *testing.T) {
	// GIVEN: Two employees and no snapshots yet
	h, router := newTestAPI(t)
	ctx := context.Background()
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-1", Name: "A", HireDate: "2020-01-01", Certificate: "دبلوم"})
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-2", Name: "B", HireDate: "2015-06-01", Certificate: "ماجستير"})

	// WHEN: Several passes run at the same time
	var wg sync.WaitGroup
	baselines := make([]int, 8)
	for i := range baselines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			summary, err := h.RecordGradeChanges(ctx, testToday)
			assert.NoError(t, err)
			baselines[i] = summary.Baselines
		}(i)
	}
	wg.Wait()

	// THEN: Each employee gets exactly one baseline
	total := 0
	for _, n := range baselines {
		total += n
	}
	assert.Equal(t, 2, total)
	for _, id := range []generic.EmployeeID{"emp-1", "emp-2"} {
		history, err := h.Repo.GradeHistory(ctx, id)
		require.NoError(t, err)
		assert.Len(t, history, 1, "employee %s", id)
	}
}

func TestRecordGradeChanges_EarlierAsOfIsSkipped(t *testing.T) {
	// GIVEN: A promotion already recorded on 2026-11-01
	h, router := newTestAPI(t)
	ctx := context.Background()
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-w", Name: "Watched", HireDate: "2022-11-01", Certificate: "بكالوريوس"})
	_, err := h.RecordGradeChanges(ctx, generic.NewTimePoint(2026, time.October, 15))
	require.NoError(t, err)
	_, err = h.RecordGradeChanges(ctx, generic.NewTimePoint(2026, time.November, 1))
	require.NoError(t, err)

	// WHEN: A pass runs as of a date before that snapshot
	summary, err := h.RecordGradeChanges(ctx, generic.NewTimePoint(2026, time.October, 20))
	require.NoError(t, err)

	// THEN: The employee is skipped and the history is untouched
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Baselines+summary.Promotions+summary.Regressions)

	history, err := h.Repo.GradeHistory(ctx, "emp-w")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, generic.Grade(7), history[0].Grade)
	assert.Equal(t, generic.Grade(6), history[1].Grade)
	assert.Equal(t, "2026-11-01", history[1].RecordedAt.String())
}

func TestTriggerGradeSnapshots_Endpoint(t *testing.T) {
	_, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-1", Name: "A", HireDate: "2020-01-01", Certificate: "دبلوم"})

	rec := do(t, router, http.MethodPost, "/api/admin/grade-snapshots?as_of=2026-10-15", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[WatchSummary](t, rec)
	assert.Equal(t, "2026-10-15", summary.AsOf)
	assert.Equal(t, 1, summary.Baselines)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-1/grade-history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]GradeSnapshotDTO](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, "2026-10-15", history[0].RecordedAt)

	rec = do(t, router, http.MethodPost, "/api/admin/grade-snapshots?as_of=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPromotionWatch_StartStop(t *testing.T) {
	// GIVEN: A watch over one employee
	h, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-1", Name: "A", HireDate: "2020-01-01", Certificate: "ماجستير"})

	watch := NewPromotionWatch(h)
	watch.CheckInterval = time.Hour

	// WHEN: Started and stopped
	watch.Start()
	watch.Stop()
	watch.Stop()

	// THEN: The immediate first pass recorded a baseline
	history, err := h.Repo.GradeHistory(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestPromotionWatch_Disabled(t *testing.T) {
	h, router := newTestAPI(t)
	createEmployee(t, router, CreateEmployeeRequest{ID: "emp-1", Name: "A", HireDate: "2020-01-01"})

	watch := NewPromotionWatch(h)
	watch.Enabled = false
	watch.Start()
	watch.Stop()

	history, err := h.Repo.GradeHistory(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
