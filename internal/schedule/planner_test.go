package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/manaaki-care/manaaki/internal/cultural"
	"github.com/manaaki-care/manaaki/internal/models"
)

func testSchedule() models.CheckInSchedule {
	return models.CheckInSchedule{
		ID:                "sched-1",
		UserID:            "user-1",
		Name:              "Morning check-in",
		IsActive:          true,
		RecurrencePattern: models.RecurrenceDaily,
		PreferredTime:     "10:00",
		CulturalGroup:     models.CulturalGroupMaori,
	}
}

func TestAdjustToAppropriateTime(t *testing.T) {
	cfg := cultural.Resolve(models.CulturalGroupMaori)
	horizonEnd := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

	// Saturday 22:30 is past the window and Sunday is avoided, so the slot
	// lands on Monday at window start.
	saturday := time.Date(2025, 6, 7, 22, 30, 0, 0, time.UTC)
	adjusted, ok := AdjustToAppropriateTime(cfg, saturday, horizonEnd)
	if !ok {
		t.Fatal("expected an appropriate slot within the horizon")
	}
	want := time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)
	if !adjusted.Equal(want) {
		t.Errorf("expected Monday 08:00 (%v), got %v", want, adjusted)
	}

	// Too early clamps to window start on the same day.
	early := time.Date(2025, 6, 9, 6, 0, 0, 0, time.UTC)
	adjusted, ok = AdjustToAppropriateTime(cfg, early, horizonEnd)
	if !ok || !adjusted.Equal(time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("expected same-day clamp to 08:00, got %v ok=%v", adjusted, ok)
	}

	// Inside the window is untouched.
	inside := time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC)
	adjusted, ok = AdjustToAppropriateTime(cfg, inside, horizonEnd)
	if !ok || !adjusted.Equal(inside) {
		t.Errorf("in-window time should be unchanged, got %v ok=%v", adjusted, ok)
	}
}

func TestAdjustToAppropriateTimeIdempotent(t *testing.T) {
	cfg := cultural.Resolve(models.CulturalGroupMaori)
	horizonEnd := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	inputs := []time.Time{
		time.Date(2025, 6, 7, 22, 30, 0, 0, time.UTC),
		time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC), // Sunday
		time.Date(2025, 6, 9, 6, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 10, 10, 15, 0, 0, time.UTC),
	}
	for _, in := range inputs {
		first, ok := AdjustToAppropriateTime(cfg, in, horizonEnd)
		if !ok {
			t.Fatalf("no slot for %v", in)
		}
		second, ok := AdjustToAppropriateTime(cfg, first, horizonEnd)
		if !ok || !second.Equal(first) {
			t.Errorf("adjustment not idempotent for %v: %v then %v", in, first, second)
		}
	}
}

func TestAdjustToAppropriateTimeHorizonBound(t *testing.T) {
	// A config avoiding every day can never produce a slot; the walk must
	// stop at the horizon instead of looping.
	cfg := models.CulturalConfig{
		RespectfulHours: models.RespectfulHours{Start: "09:00", End: "17:00"},
		AvoidDays:       []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
	}
	start := time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)
	if _, ok := AdjustToAppropriateTime(cfg, start, start.AddDate(0, 0, 31)); ok {
		t.Error("expected no slot when every day is avoided")
	}
}

func TestNextOccurrence(t *testing.T) {
	from := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)

	next, err := NextOccurrence(models.RecurrenceDaily, 1, from)
	if err != nil || !next.Equal(from.AddDate(0, 0, 1)) {
		t.Errorf("daily: got %v err=%v", next, err)
	}
	next, err = NextOccurrence(models.RecurrenceWeekly, 2, from)
	if err != nil || !next.Equal(from.AddDate(0, 0, 14)) {
		t.Errorf("weekly interval 2: got %v err=%v", next, err)
	}
	next, err = NextOccurrence(models.RecurrenceMonthly, 1, from)
	if err != nil || !next.Equal(from.AddDate(0, 1, 0)) {
		t.Errorf("monthly: got %v err=%v", next, err)
	}
	next, err = NextOccurrence(models.RecurrenceDaily, 0, from)
	if err != nil || !next.Equal(from.AddDate(0, 0, 1)) {
		t.Errorf("interval below 1 should be treated as 1: got %v err=%v", next, err)
	}
	if _, err := NextOccurrence("fortnightly", 1, from); !errors.Is(err, models.ErrInvalidRecurrence) {
		t.Errorf("expected ErrInvalidRecurrence, got %v", err)
	}
}

func TestPlanHorizonRespectsCulturalConstraints(t *testing.T) {
	s := testSchedule()
	cfg := cultural.Resolve(models.CulturalGroupMaori)
	now := time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC) // Friday

	planned, err := PlanHorizon(s, cfg, 14, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(planned) == 0 {
		t.Fatal("expected planned occurrences")
	}
	for _, n := range planned {
		if !cultural.AppropriateToSend(cfg, n.ScheduledFor) {
			t.Errorf("occurrence %v violates cultural constraints", n.ScheduledFor)
		}
		if n.ScheduledFor.Weekday() == time.Sunday {
			t.Errorf("occurrence %v lands on avoided Sunday", n.ScheduledFor)
		}
		if !n.ScheduledFor.After(now) {
			t.Errorf("occurrence %v is not in the future", n.ScheduledFor)
		}
		if n.Type != models.NotificationTypeCheckInReminder {
			t.Errorf("unexpected type %s", n.Type)
		}
		if n.CulturalConfig.Group != models.CulturalGroupMaori {
			t.Error("notification must snapshot the cultural config")
		}
		if n.Metadata["occurrence"] == "" {
			t.Error("occurrence metadata missing")
		}
	}
}

func TestPlanHorizonLatePreferredTimeMovesToNextValidMorning(t *testing.T) {
	s := testSchedule()
	s.PreferredTime = "22:30"
	cfg := cultural.Resolve(models.CulturalGroupMaori)
	now := time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC) // Friday

	planned, err := PlanHorizon(s, cfg, 7, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[string]bool)
	for _, n := range planned {
		if n.ScheduledFor.Hour() != 8 || n.ScheduledFor.Minute() != 0 {
			t.Errorf("late preferred time should clamp to 08:00 window start, got %v", n.ScheduledFor)
		}
		key := n.ScheduledFor.Format(time.RFC3339)
		if seen[key] {
			t.Errorf("duplicate occurrence %s", key)
		}
		seen[key] = true
	}
}

func TestPlanHorizonRejectsInvalidInput(t *testing.T) {
	cfg := cultural.Resolve(models.CulturalGroupMaori)
	now := time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC)

	bad := testSchedule()
	bad.PreferredTime = "late evening"
	if _, err := PlanHorizon(bad, cfg, 7, now); !errors.Is(err, models.ErrInvalidPreferredTime) {
		t.Errorf("expected ErrInvalidPreferredTime, got %v", err)
	}

	allAvoided := cfg
	allAvoided.AvoidDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	if _, err := PlanHorizon(testSchedule(), allAvoided, 7, now); !errors.Is(err, models.ErrAllDaysAvoided) {
		t.Errorf("expected ErrAllDaysAvoided, got %v", err)
	}
}

func TestPlanHorizonHonorsTimezone(t *testing.T) {
	s := testSchedule()
	s.Timezone = "Pacific/Auckland"
	cfg := cultural.Resolve(models.CulturalGroupMaori)
	now := time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC)

	planned, err := PlanHorizon(s, cfg, 7, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loc, _ := time.LoadLocation("Pacific/Auckland")
	for _, n := range planned {
		local := n.ScheduledFor.In(loc)
		if local.Hour() != 10 || local.Minute() != 0 {
			t.Errorf("expected 10:00 Auckland time, got %v", local)
		}
		if n.Metadata["timezone"] != "Pacific/Auckland" {
			t.Errorf("timezone metadata missing, got %q", n.Metadata["timezone"])
		}
	}
}
