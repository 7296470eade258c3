// Package schedule expands recurring check-in schedules into concrete,
// culturally valid future occurrences.
package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/manaaki-care/manaaki/internal/cultural"
	"github.com/manaaki-care/manaaki/internal/models"
)

// DefaultHorizonDays is how far ahead PlanHorizon expands a schedule.
const DefaultHorizonDays = 30

// AdjustToAppropriateTime moves t to the nearest culturally appropriate send
// slot at or after t: clamped to the respectful window start when too early,
// moved to the window start of the next non-avoided day when too late or on
// an avoid day. The walk is bounded by horizonEnd so a pathological avoid-day
// configuration can never loop forever; ok is false when the walk passes the
// bound and the occurrence should be dropped.
//
// The adjustment is idempotent: applying it to its own result is a no-op.
func AdjustToAppropriateTime(cfg models.CulturalConfig, t time.Time, horizonEnd time.Time) (adjusted time.Time, ok bool) {
	for !t.After(horizonEnd) {
		if cultural.IsAvoidDay(cfg, t) {
			start, _ := cultural.WindowBounds(cfg, t.AddDate(0, 0, 1))
			t = start
			continue
		}
		start, end := cultural.WindowBounds(cfg, t)
		if t.Before(start) {
			return start, true
		}
		if t.After(end) {
			next, _ := cultural.WindowBounds(cfg, t.AddDate(0, 0, 1))
			t = next
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// NextOccurrence computes the next occurrence of a recurrence pattern after
// from. Intervals below 1 are treated as 1.
func NextOccurrence(pattern models.RecurrencePattern, interval int, from time.Time) (time.Time, error) {
	if interval < 1 {
		interval = 1
	}
	switch pattern {
	case models.RecurrenceDaily:
		return from.AddDate(0, 0, interval), nil
	case models.RecurrenceWeekly:
		return from.AddDate(0, 0, 7*interval), nil
	case models.RecurrenceMonthly:
		return from.AddDate(0, interval, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidRecurrence, pattern)
	}
}

// PlanHorizon expands a check-in schedule into one ScheduledNotification per
// culturally valid day within the horizon. Candidates on avoid days are
// skipped, candidates outside respectful hours are adjusted, and anything at
// or before now is discarded. Configuration errors fail loudly.
func PlanHorizon(s models.CheckInSchedule, cfg models.CulturalConfig, horizonDays int, now time.Time) ([]models.ScheduledNotification, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule %s: %w", s.ID, err)
	}
	if err := cultural.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid cultural config for %s: %w", cfg.Group, err)
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	loc := time.UTC
	if s.Timezone != "" {
		l, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
		}
		loc = l
	}
	now = now.In(loc)
	horizonEnd := now.AddDate(0, 0, horizonDays+1)

	hour, minute, err := cultural.ParseClock(s.PreferredTime)
	if err != nil {
		return nil, err
	}

	var planned []models.ScheduledNotification
	seen := make(map[string]bool) // occurrence keys, adjustment can land two candidates on one slot
	for offset := 0; offset <= horizonDays; offset++ {
		day := now.AddDate(0, 0, offset)
		if cultural.IsAvoidDay(cfg, day) {
			continue
		}
		y, m, d := day.Date()
		candidate := time.Date(y, m, d, hour, minute, 0, 0, loc)

		adjusted, ok := AdjustToAppropriateTime(cfg, candidate, horizonEnd)
		if !ok {
			slog.Warn("PlanHorizon: dropping occurrence, adjustment exceeded horizon",
				"schedule", s.ID, "candidate", candidate)
			continue
		}
		if !adjusted.After(now) {
			continue
		}
		key := adjusted.Format(time.RFC3339)
		if seen[key] {
			continue
		}
		seen[key] = true

		planned = append(planned, models.ScheduledNotification{
			ID:             uuid.NewString(),
			UserID:         s.UserID,
			ScheduleID:     s.ID,
			Type:           models.NotificationTypeCheckInReminder,
			Priority:       models.PriorityNormal,
			Title:          s.Name,
			Message:        "Time for your check-in.",
			ScheduledFor:   adjusted,
			Channels:       append([]models.Channel(nil), cfg.PreferredChannels...),
			Recurrence:     models.RecurrenceConfig{Interval: 1},
			CulturalConfig: cfg,
			Metadata: map[string]string{
				"timezone":   s.Timezone,
				"occurrence": key,
			},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	slog.Debug("PlanHorizon: planned occurrences", "schedule", s.ID, "count", len(planned), "horizonDays", horizonDays)
	return planned, nil
}
