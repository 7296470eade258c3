package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/manaaki-care/manaaki/internal/models"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows so the scan helpers
// can be shared between query shapes and backends.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullableTime returns nil for a nil time pointer, for nullable columns.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// encodeJSON marshals v for a JSON text column. Nil/empty values encode as
// an empty string so the column stays NULL-ish and cheap to scan.
func encodeJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON column: %w", err)
	}
	return string(b), nil
}

// decodeJSON unmarshals a JSON text column into v; empty input is a no-op.
func decodeJSON(s string, v interface{}) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("failed to decode JSON column: %w", err)
	}
	return nil
}

// scanSchedule scans a CheckInSchedule row.
func scanSchedule(row rowScanner) (models.CheckInSchedule, error) {
	var s models.CheckInSchedule
	var timezone, rules, firedRules sql.NullString
	var lastCheckIn, episodeOpened sql.NullTime
	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.IsActive, &s.RecurrencePattern, &s.PreferredTime,
		&timezone, &s.CulturalGroup, &s.ReminderMinutes, &s.FollowUpEnabled,
		&lastCheckIn, &s.MissedCount, &rules, &episodeOpened, &firedRules,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return s, err
	}
	s.Timezone = timezone.String
	if lastCheckIn.Valid {
		s.LastCheckIn = &lastCheckIn.Time
	}
	if episodeOpened.Valid {
		s.EpisodeOpenedAt = &episodeOpened.Time
	}
	if err := decodeJSON(rules.String, &s.EscalationRules); err != nil {
		return s, err
	}
	if err := decodeJSON(firedRules.String, &s.EpisodeFiredRules); err != nil {
		return s, err
	}
	return s, nil
}

// scanNotification scans a ScheduledNotification row.
func scanNotification(row rowScanner) (models.ScheduledNotification, error) {
	var n models.ScheduledNotification
	var scheduleID, pattern, channels, recurrence, culturalCfg, metadata sql.NullString
	var lastSent sql.NullTime
	err := row.Scan(
		&n.ID, &n.UserID, &scheduleID, &n.Type, &n.Priority, &n.Title, &n.Message,
		&n.ScheduledFor, &channels, &n.IsRecurring, &pattern, &recurrence,
		&culturalCfg, &metadata, &n.IsActive, &lastSent, &n.FailureCount,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return n, err
	}
	n.ScheduleID = scheduleID.String
	n.RecurrencePattern = models.RecurrencePattern(pattern.String)
	if lastSent.Valid {
		n.LastSent = &lastSent.Time
	}
	if err := decodeJSON(channels.String, &n.Channels); err != nil {
		return n, err
	}
	if err := decodeJSON(recurrence.String, &n.Recurrence); err != nil {
		return n, err
	}
	if err := decodeJSON(culturalCfg.String, &n.CulturalConfig); err != nil {
		return n, err
	}
	if err := decodeJSON(metadata.String, &n.Metadata); err != nil {
		return n, err
	}
	return n, nil
}

// scanAlert scans a CaregiverAlert row.
func scanAlert(row rowScanner) (models.CaregiverAlert, error) {
	var a models.CaregiverAlert
	var caregiverID, culturalContext, suggested, audit, resolvedBy sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.UserID, &caregiverID, &a.AlertType, &a.Severity, &a.Title,
		&a.Description, &culturalContext, &a.ActionRequired, &suggested, &audit,
		&a.Timestamp, &a.IsResolved, &resolvedBy, &resolvedAt,
	)
	if err != nil {
		return a, err
	}
	a.CaregiverID = caregiverID.String
	a.CulturalContext = culturalContext.String
	a.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	if err := decodeJSON(suggested.String, &a.SuggestedActions); err != nil {
		return a, err
	}
	if err := decodeJSON(audit.String, &a.AuditNotes); err != nil {
		return a, err
	}
	return a, nil
}

// scanIndicator scans a WellnessIndicator row.
func scanIndicator(row rowScanner) (models.WellnessIndicator, error) {
	var w models.WellnessIndicator
	var mood, engagement, concerns, notes sql.NullString
	err := row.Scan(
		&w.ID, &w.UserID, &w.Date, &w.CheckInCompleted, &w.Quality,
		&mood, &engagement, &concerns, &notes,
	)
	if err != nil {
		return w, err
	}
	if err := decodeJSON(mood.String, &w.Mood); err != nil {
		return w, err
	}
	if err := decodeJSON(engagement.String, &w.Engagement); err != nil {
		return w, err
	}
	if err := decodeJSON(concerns.String, &w.Concerns); err != nil {
		return w, err
	}
	if err := decodeJSON(notes.String, &w.PositiveNotes); err != nil {
		return w, err
	}
	return w, nil
}
