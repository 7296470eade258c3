// Package escalation tracks overdue check-ins and unresolved alerts. Each
// schedule runs a per-episode state machine persisted on its store row:
// idle -> episode open -> rules fired per threshold -> idle on check-in.
package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/manaaki-care/manaaki/internal/cultural"
	"github.com/manaaki-care/manaaki/internal/messaging"
	"github.com/manaaki-care/manaaki/internal/models"
	"github.com/manaaki-care/manaaki/internal/store"
)

const (
	// DefaultGracePeriod is how long past the expected slot a check-in may
	// arrive before the schedule counts as overdue.
	DefaultGracePeriod = 15 * time.Minute
	// StaleAlertAge is how old an unresolved action-required alert may grow
	// before it is auto-escalated to critical.
	StaleAlertAge = time.Hour

	autoEscalationNote = "auto-escalated to critical: unresolved for over an hour"
)

// OnCallDispatcher is the external collaborator that owns emergency calls
// and visit scheduling. The engine only signals intent.
type OnCallDispatcher interface {
	DispatchEmergency(ctx context.Context, userID, message string) error
	ScheduleVisit(ctx context.Context, userID, message string) error
}

// LogOnCallDispatcher records intent in the log without any side channel.
// Used until a real on-call integration is wired in.
type LogOnCallDispatcher struct{}

func (LogOnCallDispatcher) DispatchEmergency(_ context.Context, userID, message string) error {
	slog.Warn("OnCall: emergency dispatch requested", "userID", userID, "message", message)
	return nil
}

func (LogOnCallDispatcher) ScheduleVisit(_ context.Context, userID, message string) error {
	slog.Info("OnCall: visit scheduling requested", "userID", userID, "message", message)
	return nil
}

// Engine monitors check-in schedules and escalates missed check-ins through
// their configured rule chains.
type Engine struct {
	store   store.Store
	senders *messaging.Registry
	oncall  OnCallDispatcher
	grace   time.Duration
}

// NewEngine creates an escalation engine. A nil oncall falls back to the
// log-only dispatcher.
func NewEngine(st store.Store, senders *messaging.Registry, oncall OnCallDispatcher) *Engine {
	if oncall == nil {
		oncall = LogOnCallDispatcher{}
	}
	return &Engine{store: st, senders: senders, oncall: oncall, grace: DefaultGracePeriod}
}

// MonitorCheckIns evaluates every active schedule for overdue check-ins and
// fires any escalation rules whose thresholds have been reached. A failure
// on one schedule never blocks the others.
func (e *Engine) MonitorCheckIns(ctx context.Context, now time.Time) error {
	schedules, err := e.store.ListActiveCheckInSchedules()
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}
	for _, sc := range schedules {
		if err := e.monitorSchedule(ctx, sc, now); err != nil {
			slog.Error("Engine.MonitorCheckIns: schedule monitoring failed", "error", err, "schedule", sc.ID)
		}
	}
	return nil
}

// expectedSlot returns the most recent occurrence of the schedule's
// preferred time at or before now, in the schedule's timezone.
func (e *Engine) expectedSlot(sc models.CheckInSchedule, now time.Time) (time.Time, error) {
	loc := time.UTC
	if sc.Timezone != "" {
		l, err := time.LoadLocation(sc.Timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timezone %q: %w", sc.Timezone, err)
		}
		loc = l
	}
	local := now.In(loc)
	hour, minute, err := cultural.ParseClock(sc.PreferredTime)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := local.Date()
	slot := time.Date(y, m, d, hour, minute, 0, 0, loc)
	if slot.After(local) {
		slot = slot.AddDate(0, 0, -1)
	}
	return slot, nil
}

func (e *Engine) monitorSchedule(ctx context.Context, sc models.CheckInSchedule, now time.Time) error {
	expected, err := e.expectedSlot(sc, now)
	if err != nil {
		return err
	}
	if !now.After(expected.Add(e.grace)) {
		return nil
	}
	if sc.LastCheckIn != nil && !sc.LastCheckIn.Before(expected) {
		return nil
	}

	cfg := cultural.Resolve(sc.CulturalGroup)
	changed := false

	// Opening the episode is the single point where the missed count grows:
	// exactly once per overdue episode, however often the monitor ticks.
	if sc.EpisodeOpenedAt == nil {
		opened := expected
		sc.EpisodeOpenedAt = &opened
		sc.EpisodeFiredRules = nil
		sc.MissedCount++
		changed = true
		slog.Info("Engine.monitorSchedule: overdue episode opened",
			"schedule", sc.ID, "userID", sc.UserID, "missedCount", sc.MissedCount)
	}

	elapsed := now.Sub(expected)
	if sc.LastCheckIn != nil {
		elapsed = now.Sub(*sc.LastCheckIn)
	}
	culturalDelay := time.Duration(cfg.EscalationDelayMinutes) * time.Minute

	rules := append([]models.EscalationRule(nil), sc.EscalationRules...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].TriggerAfterMinutes < rules[j].TriggerAfterMinutes })

	for i, rule := range rules {
		if sc.EpisodeRuleFired(rule.ID) {
			continue
		}
		trigger := time.Duration(rule.TriggerAfterMinutes) * time.Minute
		if elapsed < trigger || elapsed < culturalDelay {
			continue
		}
		// Marked fired before dispatch: at most once per episode, even when
		// an action partially fails.
		sc.EpisodeFiredRules = append(sc.EpisodeFiredRules, rule.ID)
		changed = true
		if err := e.fireRule(ctx, sc, cfg, rule, i, now); err != nil {
			slog.Error("Engine.monitorSchedule: escalation action failed",
				"error", err, "schedule", sc.ID, "rule", rule.ID, "action", rule.Action)
		}
	}

	if changed {
		sc.UpdatedAt = now
		if err := e.store.UpdateCheckInSchedule(sc); err != nil {
			return fmt.Errorf("failed to persist episode state for %s: %w", sc.ID, err)
		}
	}
	return nil
}

func (e *Engine) fireRule(ctx context.Context, sc models.CheckInSchedule, cfg models.CulturalConfig, rule models.EscalationRule, ruleIndex int, now time.Time) error {
	slog.Info("Engine.fireRule: escalation rule firing",
		"schedule", sc.ID, "rule", rule.ID, "action", rule.Action, "triggerAfterMinutes", rule.TriggerAfterMinutes)

	message := rule.Message
	if message == "" {
		message = "A scheduled check-in was missed and has not been completed yet."
	}

	switch rule.Action {
	case models.ActionNotifyFamily:
		return e.notifyFamily(ctx, sc, cfg, rule, message, now)
	case models.ActionNotifyCaregiver:
		return e.notifyCaregiver(sc, cfg, ruleIndex, message, now)
	case models.ActionCallEmergency:
		return e.oncall.DispatchEmergency(ctx, sc.UserID, message)
	case models.ActionScheduleVisit:
		return e.oncall.ScheduleVisit(ctx, sc.UserID, message)
	default:
		return fmt.Errorf("%w: %q", models.ErrInvalidRuleAction, rule.Action)
	}
}

// notifyFamily fans a toned message out to every contact on the rule, each
// via their preferred channel, and records one FamilyNotification per
// contact. A send failure for one contact does not block the rest.
func (e *Engine) notifyFamily(ctx context.Context, sc models.CheckInSchedule, cfg models.CulturalConfig, rule models.EscalationRule, message string, now time.Time) error {
	contacts, err := e.store.ListFamilyContacts(sc.UserID)
	if err != nil {
		return fmt.Errorf("failed to list family contacts: %w", err)
	}
	byID := make(map[string]models.FamilyContact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}

	toned := cultural.ToneMessage(cfg, message)
	title := cultural.Greeting(cfg.Group) + ", a check-in update"

	for _, contactID := range rule.Contacts {
		contact, ok := byID[contactID]
		if !ok {
			slog.Warn("Engine.notifyFamily: unknown contact on rule", "schedule", sc.ID, "contact", contactID)
			continue
		}
		if to, err := contactAddress(contact); err != nil {
			slog.Warn("Engine.notifyFamily: contact unreachable", "contact", contact.ID, "error", err)
		} else if err := e.senders.Send(ctx, contact.PreferredChannel, messaging.Payload{
			To:    to,
			Title: title,
			Body:  toned,
			Sound: !cfg.Special.IndirectCommunication,
		}); err != nil {
			slog.Error("Engine.notifyFamily: send failed", "error", err, "contact", contact.ID, "channel", contact.PreferredChannel)
		}

		fn := models.FamilyNotification{
			ID:               uuid.NewString(),
			UserID:           sc.UserID,
			FamilyContactID:  contactID,
			Type:             "missed_check_in",
			Title:            title,
			Content:          toned,
			CulturalContext:  string(cfg.Group),
			Timestamp:        now,
			RequiresResponse: true,
		}
		if err := e.store.AddFamilyNotification(fn); err != nil {
			slog.Error("Engine.notifyFamily: record write failed", "error", err, "contact", contactID)
		}
	}
	return nil
}

// notifyCaregiver raises one alert. Severity follows rule ordering: later
// rules in the chain imply a more serious situation.
func (e *Engine) notifyCaregiver(sc models.CheckInSchedule, cfg models.CulturalConfig, ruleIndex int, message string, now time.Time) error {
	alert := models.CaregiverAlert{
		ID:               uuid.NewString(),
		UserID:           sc.UserID,
		AlertType:        "missed_check_in",
		Severity:         severityForRuleIndex(ruleIndex),
		Title:            "Missed check-in: " + sc.Name,
		Description:      message,
		CulturalContext:  string(cfg.Group),
		ActionRequired:   true,
		SuggestedActions: cultural.SuggestedCaregiverActions(cfg),
		Timestamp:        now,
	}
	if err := e.store.AddCaregiverAlert(alert); err != nil {
		return fmt.Errorf("failed to create caregiver alert: %w", err)
	}
	return nil
}

func severityForRuleIndex(i int) models.AlertSeverity {
	switch i {
	case 0:
		return models.SeverityNormal
	case 1:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// RecordCheckIn resets the overdue state machine the moment a check-in
// succeeds: missed count back to zero, episode closed, and the day's
// wellness indicator upserted as completed.
func (e *Engine) RecordCheckIn(ctx context.Context, scheduleID string, now time.Time, quality models.ConversationQuality, mood models.MoodIndicators, engagement models.CulturalEngagement) error {
	sc, err := e.store.GetCheckInSchedule(scheduleID)
	if err != nil {
		return fmt.Errorf("failed to load schedule %s: %w", scheduleID, err)
	}
	if sc == nil {
		return fmt.Errorf("schedule %s not found", scheduleID)
	}

	checkIn := now
	sc.LastCheckIn = &checkIn
	sc.MissedCount = 0
	sc.EpisodeOpenedAt = nil
	sc.EpisodeFiredRules = nil
	sc.UpdatedAt = now
	if err := e.store.UpdateCheckInSchedule(*sc); err != nil {
		return fmt.Errorf("failed to record check-in for %s: %w", scheduleID, err)
	}

	indicator := models.WellnessIndicator{
		ID:               uuid.NewString(),
		UserID:           sc.UserID,
		Date:             now.Format("2006-01-02"),
		CheckInCompleted: true,
		Quality:          quality,
		Mood:             mood,
		Engagement:       engagement,
	}
	if err := e.store.UpsertWellnessIndicator(indicator); err != nil {
		slog.Error("Engine.RecordCheckIn: wellness indicator upsert failed", "error", err, "userID", sc.UserID)
	}
	slog.Info("Engine.RecordCheckIn: check-in recorded", "schedule", scheduleID, "userID", sc.UserID)
	return nil
}

// ProcessEscalations auto-escalates unresolved action-required alerts older
// than StaleAlertAge to critical. Already-critical alerts are left alone, so
// repeated ticks never re-append the audit note.
func (e *Engine) ProcessEscalations(ctx context.Context, now time.Time) error {
	alerts, err := e.store.ListUnresolvedActionAlerts(now.Add(-StaleAlertAge))
	if err != nil {
		return fmt.Errorf("failed to list stale alerts: %w", err)
	}
	for _, alert := range alerts {
		if alert.Severity == models.SeverityCritical {
			continue
		}
		alert.Severity = models.SeverityCritical
		alert.AuditNotes = append(alert.AuditNotes, autoEscalationNote)
		if err := e.store.UpdateCaregiverAlert(alert); err != nil {
			slog.Error("Engine.ProcessEscalations: alert update failed", "error", err, "alert", alert.ID)
			continue
		}
		slog.Warn("Engine.ProcessEscalations: alert auto-escalated", "alert", alert.ID, "userID", alert.UserID)
	}
	return nil
}

func contactAddress(c models.FamilyContact) (string, error) {
	switch c.PreferredChannel {
	case models.ChannelSMS, models.ChannelVoice:
		if c.Phone == "" {
			return "", fmt.Errorf("contact %s has no phone number", c.ID)
		}
		return c.Phone, nil
	case models.ChannelEmail:
		if c.Email == "" {
			return "", fmt.Errorf("contact %s has no email address", c.ID)
		}
		return c.Email, nil
	default:
		return "", fmt.Errorf("contact %s has unsupported channel %q", c.ID, c.PreferredChannel)
	}
}
