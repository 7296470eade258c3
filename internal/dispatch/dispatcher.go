// Package dispatch turns due scheduled notifications into personalized,
// multi-channel sends, re-validating cultural appropriateness at send time
// and chaining recurring notifications to their successors.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/manaaki-care/manaaki/internal/cultural"
	"github.com/manaaki-care/manaaki/internal/messaging"
	"github.com/manaaki-care/manaaki/internal/models"
	"github.com/manaaki-care/manaaki/internal/schedule"
	"github.com/manaaki-care/manaaki/internal/store"
	"github.com/manaaki-care/manaaki/internal/templates"
)

// Dispatcher processes due notifications. It holds no mutable state of its
// own; all coordination happens through the store.
type Dispatcher struct {
	store    store.Store
	senders  *messaging.Registry
	resolver *templates.Resolver
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(st store.Store, senders *messaging.Registry, resolver *templates.Resolver) *Dispatcher {
	return &Dispatcher{store: st, senders: senders, resolver: resolver}
}

// ProcessDue selects every active notification whose scheduled time has
// arrived and either sends it or reschedules it to the nearest culturally
// appropriate slot. A failure on one notification never blocks the others.
func (d *Dispatcher) ProcessDue(ctx context.Context, now time.Time) error {
	due, err := d.store.ListDueScheduledNotifications(now)
	if err != nil {
		return fmt.Errorf("failed to list due notifications: %w", err)
	}
	slog.Debug("Dispatcher.ProcessDue: due notifications", "count", len(due))

	for _, n := range due {
		if err := d.processOne(ctx, n, now); err != nil {
			slog.Error("Dispatcher.ProcessDue: notification processing failed", "error", err, "id", n.ID)
		}
	}
	return nil
}

func (d *Dispatcher) processOne(ctx context.Context, n models.ScheduledNotification, now time.Time) error {
	cfg := n.CulturalConfig
	localNow := now.In(d.locationFor(n))

	// Re-validate appropriateness at send time, not just plan time.
	if !cultural.AppropriateToSend(cfg, localNow) {
		return d.reschedule(n, localNow, now)
	}

	title, body, adaptations := d.render(n)
	sound := !cfg.Special.IndirectCommunication
	if !sound {
		adaptations = append(adaptations, "sound_suppressed")
	}

	profile, err := d.store.GetUserProfile(n.UserID)
	if err != nil {
		return fmt.Errorf("failed to load profile for %s: %w", n.UserID, err)
	}

	// Fan out to every channel. A channel failure increments the failure
	// count but never blocks sibling channels or retries within this tick.
	for _, channel := range n.Channels {
		status := models.DeliveryStatusSent
		if err := d.sendChannel(ctx, channel, profile, title, body, sound, n); err != nil {
			slog.Error("Dispatcher.processOne: channel send failed", "error", err, "id", n.ID, "channel", channel)
			status = models.DeliveryStatusFailed
			n.FailureCount++
		}
		logEntry := models.NotificationDeliveryLog{
			ID:                  uuid.NewString(),
			NotificationID:      n.ID,
			UserID:              n.UserID,
			Channel:             channel,
			Status:              status,
			Timestamp:           now,
			RetryCount:          n.FailureCount,
			CulturalAdaptations: adaptations,
		}
		if err := d.store.AddDeliveryLog(logEntry); err != nil {
			slog.Error("Dispatcher.processOne: delivery log write failed", "error", err, "id", n.ID, "channel", channel)
		}
	}

	if n.IsRecurring {
		if err := d.chainSuccessor(n, now); err != nil {
			slog.Error("Dispatcher.processOne: recurrence chaining failed", "error", err, "id", n.ID)
		}
	}

	n.IsActive = false
	n.LastSent = &now
	n.UpdatedAt = now
	if err := d.store.UpdateScheduledNotification(n); err != nil {
		return fmt.Errorf("failed to retire notification %s: %w", n.ID, err)
	}
	return nil
}

// reschedule moves an inappropriate notification to the nearest valid slot
// using the same adjustment the planner applies, leaving it active.
func (d *Dispatcher) reschedule(n models.ScheduledNotification, localNow, now time.Time) error {
	horizonEnd := localNow.AddDate(0, 0, schedule.DefaultHorizonDays)
	adjusted, ok := schedule.AdjustToAppropriateTime(n.CulturalConfig, localNow, horizonEnd)
	if !ok {
		slog.Warn("Dispatcher.reschedule: no appropriate slot within horizon, retiring", "id", n.ID)
		n.IsActive = false
	} else {
		slog.Debug("Dispatcher.reschedule: moved notification", "id", n.ID, "to", adjusted)
		n.ScheduledFor = adjusted
	}
	n.UpdatedAt = now
	if err := d.store.UpdateScheduledNotification(n); err != nil {
		return fmt.Errorf("failed to reschedule notification %s: %w", n.ID, err)
	}
	return nil
}

// render resolves the notification's template through the fallback chain and
// personalizes it. A missing template falls back to the notification's own
// title and message and is never treated as a failure.
func (d *Dispatcher) render(n models.ScheduledNotification) (title, body string, adaptations []string) {
	group := n.CulturalConfig.Group
	language := "en"
	name := ""
	if profile, err := d.store.GetUserProfile(n.UserID); err == nil && profile != nil {
		name = profile.Name
		if profile.Language != "" {
			language = profile.Language
		}
	}

	title, body = n.Title, n.Message
	if tmpl, err := d.resolver.Resolve(n.Type, group, language); err == nil {
		title, body = tmpl.Title, tmpl.Body
		adaptations = append(adaptations, "template:"+tmpl.Language)
	} else {
		slog.Debug("Dispatcher.render: no template, using stored content", "id", n.ID, "type", n.Type)
	}

	greeting := cultural.Greeting(group)
	familyTerm := cultural.FamilyTerm(group)
	title = templates.Personalize(title, name, greeting, familyTerm)
	body = templates.Personalize(body, name, greeting, familyTerm)
	adaptations = append(adaptations, "greeting:"+greeting)
	return title, body, adaptations
}

func (d *Dispatcher) sendChannel(ctx context.Context, channel models.Channel, profile *models.UserProfile, title, body string, sound bool, n models.ScheduledNotification) error {
	to, err := addressFor(channel, profile)
	if err != nil {
		return err
	}
	return d.senders.Send(ctx, channel, messaging.Payload{
		To:    to,
		Title: title,
		Body:  body,
		Data:  map[string]string{"notification_id": n.ID, "type": string(n.Type)},
		Sound: sound,
	})
}

// chainSuccessor inserts the next occurrence of a recurring notification,
// unless the configured end date would be exceeded or an active successor
// already exists for that slot.
func (d *Dispatcher) chainSuccessor(n models.ScheduledNotification, now time.Time) error {
	next, err := schedule.NextOccurrence(n.RecurrencePattern, n.Recurrence.Interval, n.ScheduledFor)
	if err != nil {
		return err
	}
	if end := n.Recurrence.EndDate; end != nil && next.After(*end) {
		slog.Debug("Dispatcher.chainSuccessor: recurrence ended", "id", n.ID, "endDate", *end)
		return nil
	}
	if n.ScheduleID != "" {
		exists, err := d.store.HasActiveNotificationAt(n.ScheduleID, next)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}

	successor := n
	successor.ID = uuid.NewString()
	successor.ScheduledFor = next
	successor.IsActive = true
	successor.LastSent = nil
	successor.FailureCount = 0
	successor.CreatedAt = now
	successor.UpdatedAt = now
	if successor.Metadata != nil {
		md := make(map[string]string, len(successor.Metadata))
		for k, v := range successor.Metadata {
			md[k] = v
		}
		md["occurrence"] = next.Format(time.RFC3339)
		successor.Metadata = md
	}
	return d.store.AddScheduledNotification(successor)
}

// ExtendHorizons re-plans every active check-in schedule and inserts any
// occurrence not yet present, upholding at most one active notification per
// (schedule, occurrence). Invalid configurations fail loudly per schedule.
func (d *Dispatcher) ExtendHorizons(ctx context.Context, now time.Time, horizonDays int) error {
	schedules, err := d.store.ListActiveCheckInSchedules()
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}
	for _, sc := range schedules {
		cfg := cultural.Resolve(sc.CulturalGroup)
		planned, err := schedule.PlanHorizon(sc, cfg, horizonDays, now)
		if err != nil {
			slog.Error("Dispatcher.ExtendHorizons: planning failed", "error", err, "schedule", sc.ID)
			continue
		}
		for _, n := range planned {
			exists, err := d.store.HasActiveNotificationAt(sc.ID, n.ScheduledFor)
			if err != nil {
				slog.Error("Dispatcher.ExtendHorizons: occurrence check failed", "error", err, "schedule", sc.ID)
				break
			}
			if exists {
				continue
			}
			if err := d.store.AddScheduledNotification(n); err != nil {
				slog.Error("Dispatcher.ExtendHorizons: insert failed", "error", err, "schedule", sc.ID)
			}
		}
	}
	return nil
}

func (d *Dispatcher) locationFor(n models.ScheduledNotification) *time.Location {
	if tz := n.Metadata["timezone"]; tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
		slog.Warn("Dispatcher: invalid timezone in notification metadata", "id", n.ID, "timezone", tz)
	}
	return time.UTC
}

// addressFor picks the channel-appropriate address from a profile.
func addressFor(channel models.Channel, profile *models.UserProfile) (string, error) {
	if profile == nil {
		return "", fmt.Errorf("no profile available for channel %s", channel)
	}
	switch channel {
	case models.ChannelPush:
		if profile.DeviceToken == "" {
			return "", fmt.Errorf("profile %s has no device token", profile.ID)
		}
		return profile.DeviceToken, nil
	case models.ChannelSMS, models.ChannelVoice:
		if profile.Phone == "" {
			return "", fmt.Errorf("profile %s has no phone number", profile.ID)
		}
		return profile.Phone, nil
	case models.ChannelEmail:
		if profile.Email == "" {
			return "", fmt.Errorf("profile %s has no email address", profile.ID)
		}
		return profile.Email, nil
	default:
		return "", fmt.Errorf("%w: %s", models.ErrInvalidChannel, channel)
	}
}
