package scheduler

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shaiso/housekeeper/internal/domain"
)

func TestCalculateNextDue_Interval(t *testing.T) {
	sched := &domain.Schedule{IntervalSec: 90, Timezone: "UTC"}
	from := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := from.Add(90 * time.Second)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
	if next.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", next.Location())
	}
}

func TestCalculateNextDue_CronWithTimezone(t *testing.T) {
	sched := &domain.Schedule{CronExpr: "0 9 * * *", Timezone: "Europe/Moscow"}
	// 05:00 UTC = 08:00 MSK
	from := time.Date(2026, 1, 10, 5, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 09:00 MSK = 06:00 UTC
	want := time.Date(2026, 1, 10, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	sched := &domain.Schedule{CronExpr: "30 * * * *", Timezone: "Mars/Olympus"}
	from := time.Date(2026, 1, 10, 5, 10, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 1, 10, 5, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_Errors(t *testing.T) {
	from := time.Now()

	if _, err := CalculateNextDue(&domain.Schedule{Timezone: "UTC"}, from); !errors.Is(err, ErrNoRecurrence) {
		t.Errorf("expected ErrNoRecurrence, got %v", err)
	}
	if _, err := CalculateNextDue(&domain.Schedule{CronExpr: "not a cron"}, from); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"*/5 * * * *", false},
		{"0 9 * * 1-5", false},
		{"0 9 * *", true},
		{"@every 1s", true},
		{"61 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateCronExpr(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCronExpr(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}
