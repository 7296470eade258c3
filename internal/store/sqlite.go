// Package store provides storage backends for the Manaaki notification engine.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/manaaki-care/manaaki/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists engine state in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN (a file path).
// If the parent directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

const scheduleColumns = `id, user_id, name, is_active, recurrence_pattern, preferred_time,
	timezone, cultural_group, reminder_minutes, follow_up_enabled,
	last_check_in, missed_count, escalation_rules, episode_opened_at, episode_fired_rules,
	created_at, updated_at`

func scheduleArgs(s models.CheckInSchedule) ([]interface{}, error) {
	rules, err := encodeJSON(s.EscalationRules)
	if err != nil {
		return nil, err
	}
	fired, err := encodeJSON(s.EpisodeFiredRules)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		s.ID, s.UserID, s.Name, s.IsActive, s.RecurrencePattern, s.PreferredTime,
		nilIfEmpty(s.Timezone), s.CulturalGroup, s.ReminderMinutes, s.FollowUpEnabled,
		nullableTime(s.LastCheckIn), s.MissedCount, nilIfEmpty(rules),
		nullableTime(s.EpisodeOpenedAt), nilIfEmpty(fired),
		s.CreatedAt, s.UpdatedAt,
	}, nil
}

func (s *SQLiteStore) AddCheckInSchedule(sc models.CheckInSchedule) error {
	args, err := scheduleArgs(sc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO check_in_schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		slog.Error("SQLiteStore AddCheckInSchedule failed", "error", err, "id", sc.ID)
		return fmt.Errorf("failed to insert schedule %s: %w", sc.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetCheckInSchedule(id string) (*models.CheckInSchedule, error) {
	row := s.db.QueryRow(`SELECT `+scheduleColumns+` FROM check_in_schedules WHERE id = ?`, id)
	sc, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetCheckInSchedule failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get schedule %s: %w", id, err)
	}
	return &sc, nil
}

func (s *SQLiteStore) ListActiveCheckInSchedules() ([]models.CheckInSchedule, error) {
	rows, err := s.db.Query(`SELECT ` + scheduleColumns + ` FROM check_in_schedules WHERE is_active = 1`)
	if err != nil {
		slog.Error("SQLiteStore ListActiveCheckInSchedules query failed", "error", err)
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var out []models.CheckInSchedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateCheckInSchedule(sc models.CheckInSchedule) error {
	rules, err := encodeJSON(sc.EscalationRules)
	if err != nil {
		return err
	}
	fired, err := encodeJSON(sc.EpisodeFiredRules)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE check_in_schedules SET
		name = ?, is_active = ?, recurrence_pattern = ?, preferred_time = ?, timezone = ?,
		cultural_group = ?, reminder_minutes = ?, follow_up_enabled = ?, last_check_in = ?,
		missed_count = ?, escalation_rules = ?, episode_opened_at = ?, episode_fired_rules = ?,
		updated_at = ? WHERE id = ?`,
		sc.Name, sc.IsActive, sc.RecurrencePattern, sc.PreferredTime, nilIfEmpty(sc.Timezone),
		sc.CulturalGroup, sc.ReminderMinutes, sc.FollowUpEnabled, nullableTime(sc.LastCheckIn),
		sc.MissedCount, nilIfEmpty(rules), nullableTime(sc.EpisodeOpenedAt), nilIfEmpty(fired),
		sc.UpdatedAt, sc.ID)
	if err != nil {
		slog.Error("SQLiteStore UpdateCheckInSchedule failed", "error", err, "id", sc.ID)
		return fmt.Errorf("failed to update schedule %s: %w", sc.ID, err)
	}
	return nil
}

const notificationColumns = `id, user_id, schedule_id, type, priority, title, message,
	scheduled_for, channels, is_recurring, recurrence_pattern, recurrence_config,
	cultural_config, metadata, is_active, last_sent, failure_count, created_at, updated_at`

func notificationArgs(n models.ScheduledNotification) ([]interface{}, error) {
	channels, err := encodeJSON(n.Channels)
	if err != nil {
		return nil, err
	}
	recurrence, err := encodeJSON(n.Recurrence)
	if err != nil {
		return nil, err
	}
	culturalCfg, err := encodeJSON(n.CulturalConfig)
	if err != nil {
		return nil, err
	}
	metadata, err := encodeJSON(n.Metadata)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		n.ID, n.UserID, nilIfEmpty(n.ScheduleID), n.Type, n.Priority, n.Title, n.Message,
		n.ScheduledFor, nilIfEmpty(channels), n.IsRecurring, nilIfEmpty(string(n.RecurrencePattern)),
		nilIfEmpty(recurrence), nilIfEmpty(culturalCfg), nilIfEmpty(metadata),
		n.IsActive, nullableTime(n.LastSent), n.FailureCount, n.CreatedAt, n.UpdatedAt,
	}, nil
}

func (s *SQLiteStore) AddScheduledNotification(n models.ScheduledNotification) error {
	args, err := notificationArgs(n)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO scheduled_notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		slog.Error("SQLiteStore AddScheduledNotification failed", "error", err, "id", n.ID)
		return fmt.Errorf("failed to insert notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateScheduledNotification(n models.ScheduledNotification) error {
	channels, err := encodeJSON(n.Channels)
	if err != nil {
		return err
	}
	metadata, err := encodeJSON(n.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE scheduled_notifications SET
		scheduled_for = ?, channels = ?, metadata = ?, is_active = ?, last_sent = ?,
		failure_count = ?, updated_at = ? WHERE id = ?`,
		n.ScheduledFor, nilIfEmpty(channels), nilIfEmpty(metadata), n.IsActive,
		nullableTime(n.LastSent), n.FailureCount, n.UpdatedAt, n.ID)
	if err != nil {
		slog.Error("SQLiteStore UpdateScheduledNotification failed", "error", err, "id", n.ID)
		return fmt.Errorf("failed to update notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListDueScheduledNotifications(now time.Time) ([]models.ScheduledNotification, error) {
	rows, err := s.db.Query(`SELECT `+notificationColumns+` FROM scheduled_notifications
		WHERE is_active = 1 AND scheduled_for <= ? ORDER BY scheduled_for`, now)
	if err != nil {
		slog.Error("SQLiteStore ListDueScheduledNotifications query failed", "error", err)
		return nil, fmt.Errorf("failed to query due notifications: %w", err)
	}
	defer rows.Close()

	var out []models.ScheduledNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) HasActiveNotificationAt(scheduleID string, occurrence time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM scheduled_notifications
		WHERE is_active = 1 AND schedule_id = ? AND scheduled_for = ?`, scheduleID, occurrence).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check active notification: %w", err)
	}
	return count > 0, nil
}

const alertColumns = `id, user_id, caregiver_id, alert_type, severity, title, description,
	cultural_context, action_required, suggested_actions, audit_notes, timestamp,
	is_resolved, resolved_by, resolved_at`

func alertArgs(a models.CaregiverAlert) ([]interface{}, error) {
	suggested, err := encodeJSON(a.SuggestedActions)
	if err != nil {
		return nil, err
	}
	audit, err := encodeJSON(a.AuditNotes)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		a.ID, a.UserID, nilIfEmpty(a.CaregiverID), a.AlertType, a.Severity, a.Title,
		a.Description, nilIfEmpty(a.CulturalContext), a.ActionRequired, nilIfEmpty(suggested),
		nilIfEmpty(audit), a.Timestamp, a.IsResolved, nilIfEmpty(a.ResolvedBy),
		nullableTime(a.ResolvedAt),
	}, nil
}

func (s *SQLiteStore) AddCaregiverAlert(a models.CaregiverAlert) error {
	args, err := alertArgs(a)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO caregiver_alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		slog.Error("SQLiteStore AddCaregiverAlert failed", "error", err, "id", a.ID)
		return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateCaregiverAlert(a models.CaregiverAlert) error {
	suggested, err := encodeJSON(a.SuggestedActions)
	if err != nil {
		return err
	}
	audit, err := encodeJSON(a.AuditNotes)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE caregiver_alerts SET
		severity = ?, action_required = ?, suggested_actions = ?, audit_notes = ?,
		is_resolved = ?, resolved_by = ?, resolved_at = ? WHERE id = ?`,
		a.Severity, a.ActionRequired, nilIfEmpty(suggested), nilIfEmpty(audit),
		a.IsResolved, nilIfEmpty(a.ResolvedBy), nullableTime(a.ResolvedAt), a.ID)
	if err != nil {
		slog.Error("SQLiteStore UpdateCaregiverAlert failed", "error", err, "id", a.ID)
		return fmt.Errorf("failed to update alert %s: %w", a.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListUnresolvedActionAlerts(olderThan time.Time) ([]models.CaregiverAlert, error) {
	rows, err := s.db.Query(`SELECT `+alertColumns+` FROM caregiver_alerts
		WHERE is_resolved = 0 AND action_required = 1 AND timestamp < ?`, olderThan)
	if err != nil {
		slog.Error("SQLiteStore ListUnresolvedActionAlerts query failed", "error", err)
		return nil, fmt.Errorf("failed to query unresolved alerts: %w", err)
	}
	defer rows.Close()

	var out []models.CaregiverAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddFamilyNotification(n models.FamilyNotification) error {
	_, err := s.db.Exec(`INSERT INTO family_notifications
		(id, user_id, family_contact_id, type, title, content, cultural_context, timestamp, is_read, requires_response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.FamilyContactID, n.Type, n.Title, n.Content,
		nilIfEmpty(n.CulturalContext), n.Timestamp, n.IsRead, n.RequiresResponse)
	if err != nil {
		slog.Error("SQLiteStore AddFamilyNotification failed", "error", err, "id", n.ID)
		return fmt.Errorf("failed to insert family notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpsertWellnessIndicator(w models.WellnessIndicator) error {
	mood, err := encodeJSON(w.Mood)
	if err != nil {
		return err
	}
	engagement, err := encodeJSON(w.Engagement)
	if err != nil {
		return err
	}
	concerns, err := encodeJSON(w.Concerns)
	if err != nil {
		return err
	}
	notes, err := encodeJSON(w.PositiveNotes)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO wellness_indicators
		(id, user_id, date, check_in_completed, conversation_quality, mood_indicators, cultural_engagement, concerns, positive_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			check_in_completed = excluded.check_in_completed,
			conversation_quality = excluded.conversation_quality,
			mood_indicators = excluded.mood_indicators,
			cultural_engagement = excluded.cultural_engagement,
			concerns = excluded.concerns,
			positive_notes = excluded.positive_notes`,
		w.ID, w.UserID, w.Date, w.CheckInCompleted, w.Quality,
		nilIfEmpty(mood), nilIfEmpty(engagement), nilIfEmpty(concerns), nilIfEmpty(notes))
	if err != nil {
		slog.Error("SQLiteStore UpsertWellnessIndicator failed", "error", err, "userID", w.UserID, "date", w.Date)
		return fmt.Errorf("failed to upsert wellness indicator: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListWellnessIndicators(userID string, from, to string) ([]models.WellnessIndicator, error) {
	rows, err := s.db.Query(`SELECT id, user_id, date, check_in_completed, conversation_quality,
		mood_indicators, cultural_engagement, concerns, positive_notes
		FROM wellness_indicators WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date`,
		userID, from, to)
	if err != nil {
		slog.Error("SQLiteStore ListWellnessIndicators query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query wellness indicators: %w", err)
	}
	defer rows.Close()

	var out []models.WellnessIndicator
	for rows.Next() {
		w, err := scanIndicator(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wellness indicator row: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddWellnessConcern(c models.WellnessConcern) error {
	_, err := s.db.Exec(`INSERT INTO wellness_concerns (id, user_id, kind, details, window_days, detected_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Kind, nilIfEmpty(c.Details), c.WindowDays, c.DetectedAt)
	if err != nil {
		slog.Error("SQLiteStore AddWellnessConcern failed", "error", err, "userID", c.UserID, "kind", c.Kind)
		return fmt.Errorf("failed to insert wellness concern: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddWellnessReport(r models.WellnessReport) error {
	concerns, err := encodeJSON(r.Concerns)
	if err != nil {
		return err
	}
	notes, err := encodeJSON(r.PositiveNotes)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO wellness_reports
		(id, user_id, week_start, completion_rate, average_quality, engagement_score, concerns, positive_notes, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.WeekStart, r.CompletionRate, r.AverageQuality, r.EngagementScore,
		nilIfEmpty(concerns), nilIfEmpty(notes), r.GeneratedAt)
	if err != nil {
		slog.Error("SQLiteStore AddWellnessReport failed", "error", err, "userID", r.UserID, "weekStart", r.WeekStart)
		return fmt.Errorf("failed to insert wellness report: %w", err)
	}
	return nil
}

func (s *SQLiteStore) HasWellnessReport(userID, weekStart string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM wellness_reports WHERE user_id = ? AND week_start = ?`,
		userID, weekStart).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check wellness report: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) AddDeliveryLog(l models.NotificationDeliveryLog) error {
	adaptations, err := encodeJSON(l.CulturalAdaptations)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO notification_delivery_logs
		(id, notification_id, user_id, channel, status, timestamp, retry_count, cultural_adaptations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.NotificationID, l.UserID, l.Channel, l.Status, l.Timestamp, l.RetryCount,
		nilIfEmpty(adaptations))
	if err != nil {
		slog.Error("SQLiteStore AddDeliveryLog failed", "error", err, "notificationID", l.NotificationID)
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddNotificationTemplate(t models.NotificationTemplate) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO notification_templates
		(id, type, cultural_group, language, title, body) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Type, t.CulturalGroup, strings.ToLower(t.Language), t.Title, t.Body)
	if err != nil {
		slog.Error("SQLiteStore AddNotificationTemplate failed", "error", err, "id", t.ID)
		return fmt.Errorf("failed to insert template %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetNotificationTemplate(typ models.NotificationType, group models.CulturalGroup, language string) (*models.NotificationTemplate, error) {
	var t models.NotificationTemplate
	err := s.db.QueryRow(`SELECT id, type, cultural_group, language, title, body
		FROM notification_templates WHERE type = ? AND cultural_group = ? AND language = ?`,
		typ, group, strings.ToLower(language)).Scan(&t.ID, &t.Type, &t.CulturalGroup, &t.Language, &t.Title, &t.Body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetNotificationTemplate failed", "error", err, "type", typ, "group", group)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

func (s *SQLiteStore) AddUserProfile(p models.UserProfile) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO user_profiles
		(id, name, language, cultural_group, timezone, phone, email, device_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, nilIfEmpty(p.Language), p.CulturalGroup, nilIfEmpty(p.Timezone),
		nilIfEmpty(p.Phone), nilIfEmpty(p.Email), nilIfEmpty(p.DeviceToken))
	if err != nil {
		slog.Error("SQLiteStore AddUserProfile failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to insert user profile %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetUserProfile(id string) (*models.UserProfile, error) {
	var p models.UserProfile
	var language, timezone, phone, email, deviceToken sql.NullString
	err := s.db.QueryRow(`SELECT id, name, language, cultural_group, timezone, phone, email, device_token
		FROM user_profiles WHERE id = ?`, id).Scan(
		&p.ID, &p.Name, &language, &p.CulturalGroup, &timezone, &phone, &email, &deviceToken)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUserProfile failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get user profile %s: %w", id, err)
	}
	p.Language = language.String
	p.Timezone = timezone.String
	p.Phone = phone.String
	p.Email = email.String
	p.DeviceToken = deviceToken.String
	return &p, nil
}

func (s *SQLiteStore) ListUserProfiles() ([]models.UserProfile, error) {
	rows, err := s.db.Query(`SELECT id, name, language, cultural_group, timezone, phone, email, device_token
		FROM user_profiles`)
	if err != nil {
		slog.Error("SQLiteStore ListUserProfiles query failed", "error", err)
		return nil, fmt.Errorf("failed to query user profiles: %w", err)
	}
	defer rows.Close()

	var out []models.UserProfile
	for rows.Next() {
		var p models.UserProfile
		var language, timezone, phone, email, deviceToken sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &language, &p.CulturalGroup, &timezone, &phone, &email, &deviceToken); err != nil {
			return nil, fmt.Errorf("failed to scan user profile row: %w", err)
		}
		p.Language = language.String
		p.Timezone = timezone.String
		p.Phone = phone.String
		p.Email = email.String
		p.DeviceToken = deviceToken.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddFamilyContact(c models.FamilyContact) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO family_contacts
		(id, user_id, name, relationship, preferred_channel, phone, email, weekly_reports)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, nilIfEmpty(c.Relationship), c.PreferredChannel,
		nilIfEmpty(c.Phone), nilIfEmpty(c.Email), c.WeeklyReports)
	if err != nil {
		slog.Error("SQLiteStore AddFamilyContact failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to insert family contact %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListFamilyContacts(userID string) ([]models.FamilyContact, error) {
	rows, err := s.db.Query(`SELECT id, user_id, name, relationship, preferred_channel, phone, email, weekly_reports
		FROM family_contacts WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore ListFamilyContacts query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query family contacts: %w", err)
	}
	defer rows.Close()

	var out []models.FamilyContact
	for rows.Next() {
		var c models.FamilyContact
		var relationship, phone, email sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &relationship, &c.PreferredChannel, &phone, &email, &c.WeeklyReports); err != nil {
			return nil, fmt.Errorf("failed to scan family contact row: %w", err)
		}
		c.Relationship = relationship.String
		c.Phone = phone.String
		c.Email = email.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) EnqueueDeferredTask(t models.DeferredTask) error {
	_, err := s.db.Exec(`INSERT INTO deferred_tasks (id, kind, payload, enqueued_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.Kind, nilIfEmpty(t.Payload), t.EnqueuedAt)
	if err != nil {
		slog.Error("SQLiteStore EnqueueDeferredTask failed", "error", err, "id", t.ID, "kind", t.Kind)
		return fmt.Errorf("failed to enqueue task %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListDeferredTasks() ([]models.DeferredTask, error) {
	rows, err := s.db.Query(`SELECT id, kind, payload, enqueued_at FROM deferred_tasks ORDER BY enqueued_at`)
	if err != nil {
		slog.Error("SQLiteStore ListDeferredTasks query failed", "error", err)
		return nil, fmt.Errorf("failed to query deferred tasks: %w", err)
	}
	defer rows.Close()

	var out []models.DeferredTask
	for rows.Next() {
		var t models.DeferredTask
		var payload sql.NullString
		if err := rows.Scan(&t.ID, &t.Kind, &payload, &t.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deferred task row: %w", err)
		}
		t.Payload = payload.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteDeferredTask(id string) error {
	_, err := s.db.Exec(`DELETE FROM deferred_tasks WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteDeferredTask failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
