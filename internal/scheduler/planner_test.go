package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/housekeeper/internal/domain"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

func newTestPlanner(store Store) *Planner {
	return NewPlanner(PlannerConfig{
		Store:  store,
		Logger: telemetry.DiscardLogger(),
		Now:    func() time.Time { return testNow },
	})
}

func TestPlanner_AssignsFirstDue(t *testing.T) {
	fresh := domain.Schedule{ID: uuid.New(), CronExpr: "0 13 * * *", Timezone: "UTC", Enabled: true}
	planned := domain.Schedule{ID: uuid.New(), IntervalSec: 10, Timezone: "UTC", Enabled: true, NextDueAt: timePtr(testNow.Add(time.Hour))}
	store := newFakeStore(fresh, planned)

	if err := newTestPlanner(store).RunActionOnPoll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := store.get(fresh.ID)
	want := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	if got.NextDueAt == nil || !got.NextDueAt.Equal(want) {
		t.Errorf("expected next due %v, got %v", want, got.NextDueAt)
	}
	if got.LastDueAt != nil {
		t.Error("planning must not set last due")
	}
	if store.updates != 1 {
		t.Errorf("already planned schedule must be left alone, got %d updates", store.updates)
	}
}

func TestPlanner_CollectsErrors(t *testing.T) {
	broken := domain.Schedule{ID: uuid.New(), CronExpr: "bogus", Enabled: true}
	failing := domain.Schedule{ID: uuid.New(), IntervalSec: 5, Enabled: true}
	ok := domain.Schedule{ID: uuid.New(), IntervalSec: 5, Enabled: true}
	store := newFakeStore(broken, failing, ok)
	setErr := errors.New("deadlock detected")
	store.setErr[failing.ID] = setErr

	err := newTestPlanner(store).RunActionOnPoll(context.Background())
	if !errors.Is(err, setErr) {
		t.Fatalf("expected joined set error, got %v", err)
	}

	if got := store.get(ok.ID); got.NextDueAt == nil {
		t.Error("healthy schedule should be planned")
	}
	if !errors.Is(err, ErrInvalidCron) {
		t.Errorf("expected cron error to be joined, got %v", err)
	}
	got := store.get(broken.ID)
	if got.NextDueAt != nil {
		t.Error("broken schedule must stay unplanned")
	}
	if got.Enabled {
		t.Error("broken schedule must be disabled")
	}
}
