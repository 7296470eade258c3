// Package store provides storage backends for the Manaaki notification engine.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/manaaki-care/manaaki/internal/models"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists engine state in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddCheckInSchedule(sc models.CheckInSchedule) error {
	args, err := scheduleArgs(sc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO check_in_schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`, args...)
	if err != nil {
		slog.Error("PostgresStore AddCheckInSchedule failed", "error", err, "id", sc.ID)
		return fmt.Errorf("failed to insert schedule %s: %w", sc.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetCheckInSchedule(id string) (*models.CheckInSchedule, error) {
	row := s.db.QueryRow(`SELECT `+scheduleColumns+` FROM check_in_schedules WHERE id = $1`, id)
	sc, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetCheckInSchedule failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get schedule %s: %w", id, err)
	}
	return &sc, nil
}

func (s *PostgresStore) ListActiveCheckInSchedules() ([]models.CheckInSchedule, error) {
	rows, err := s.db.Query(`SELECT ` + scheduleColumns + ` FROM check_in_schedules WHERE is_active`)
	if err != nil {
		slog.Error("PostgresStore ListActiveCheckInSchedules query failed", "error", err)
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

func (s *PostgresStore) UpdateCheckInSchedule(sc models.CheckInSchedule) error {
	rules, err := encodeJSON(sc.EscalationRules)
	if err != nil {
		return err
	}
	fired, err := encodeJSON(sc.EpisodeFiredRules)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE check_in_schedules SET
		name = $1, is_active = $2, recurrence_pattern = $3, preferred_time = $4, timezone = $5,
		cultural_group = $6, reminder_minutes = $7, follow_up_enabled = $8, last_check_in = $9,
		missed_count = $10, escalation_rules = $11, episode_opened_at = $12, episode_fired_rules = $13,
		updated_at = $14 WHERE id = $15`,
		sc.Name, sc.IsActive, sc.RecurrencePattern, sc.PreferredTime, nilIfEmpty(sc.Timezone),
		sc.CulturalGroup, sc.ReminderMinutes, sc.FollowUpEnabled, nullableTime(sc.LastCheckIn),
		sc.MissedCount, nilIfEmpty(rules), nullableTime(sc.EpisodeOpenedAt), nilIfEmpty(fired),
		sc.UpdatedAt, sc.ID)
	if err != nil {
		slog.Error("PostgresStore UpdateCheckInSchedule failed", "error", err, "id", sc.ID)
		return fmt.Errorf("failed to update schedule %s: %w", sc.ID, err)
	}
	return nil
}

func (s *PostgresStore) AddScheduledNotification(n models.ScheduledNotification) error {
	args, err := notificationArgs(n)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO scheduled_notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`, args...)
	if err != nil {
		slog.Error("PostgresStore AddScheduledNotification failed", "error", err, "id", n.ID)
		return fmt.Errorf("failed to insert notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateScheduledNotification(n models.ScheduledNotification) error {
	channels, err := encodeJSON(n.Channels)
	if err != nil {
		return err
	}
	metadata, err := encodeJSON(n.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE scheduled_notifications SET
		scheduled_for = $1, channels = $2, metadata = $3, is_active = $4, last_sent = $5,
		failure_count = $6, updated_at = $7 WHERE id = $8`,
		n.ScheduledFor, nilIfEmpty(channels), nilIfEmpty(metadata), n.IsActive,
		nullableTime(n.LastSent), n.FailureCount, n.UpdatedAt, n.ID)
	if err != nil {
		slog.Error("PostgresStore UpdateScheduledNotification failed", "error", err, "id", n.ID)
		return fmt.Errorf("failed to update notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListDueScheduledNotifications(now time.Time) ([]models.ScheduledNotification, error) {
	rows, err := s.db.Query(`SELECT `+notificationColumns+` FROM scheduled_notifications
		WHERE is_active AND scheduled_for <= $1 ORDER BY scheduled_for`, now)
	if err != nil {
		slog.Error("PostgresStore ListDueScheduledNotifications query failed", "error", err)
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

func (s *PostgresStore) HasActiveNotificationAt(scheduleID string, occurrence time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM scheduled_notifications
		WHERE is_active AND schedule_id = $1 AND scheduled_for = $2`, scheduleID, occurrence).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check active notification: %w", err)
	}
	return count > 0, nil
}

func (s *PostgresStore) AddCaregiverAlert(a models.CaregiverAlert) error {
	args, err := alertArgs(a)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO caregiver_alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`, args...)
	if err != nil {
		slog.Error("PostgresStore AddCaregiverAlert failed", "error", err, "id", a.ID)
		return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateCaregiverAlert(a models.CaregiverAlert) error {
	suggested, err := encodeJSON(a.SuggestedActions)
	if err != nil {
		return err
	}
	audit, err := encodeJSON(a.AuditNotes)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE caregiver_alerts SET
		severity = $1, action_required = $2, suggested_actions = $3, audit_notes = $4,
		is_resolved = $5, resolved_by = $6, resolved_at = $7 WHERE id = $8`,
		a.Severity, a.ActionRequired, nilIfEmpty(suggested), nilIfEmpty(audit),
		a.IsResolved, nilIfEmpty(a.ResolvedBy), nullableTime(a.ResolvedAt), a.ID)
	if err != nil {
		slog.Error("PostgresStore UpdateCaregiverAlert failed", "error", err, "id", a.ID)
		return fmt.Errorf("failed to update alert %s: %w", a.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListUnresolvedActionAlerts(olderThan time.Time) ([]models.CaregiverAlert, error) {
	rows, err := s.db.Query(`SELECT `+alertColumns+` FROM caregiver_alerts
		WHERE NOT is_resolved AND action_required AND timestamp < $1`, olderThan)
	if err != nil {
		slog.Error("PostgresStore ListUnresolvedActionAlerts query failed", "error", err)
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

func (s *PostgresStore) AddFamilyNotification(n models.FamilyNotification) error {
	_, err := s.db.Exec(`INSERT INTO family_notifications
		(id, user_id, family_contact_id, type, title, content, cultural_context, timestamp, is_read, requires_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, n.UserID, n.FamilyContactID, n.Type, n.Title, n.Content,
		nilIfEmpty(n.CulturalContext), n.Timestamp, n.IsRead, n.RequiresResponse)
	if err != nil {
		slog.Error("PostgresStore AddFamilyNotification failed", "error", err, "id", n.ID)
		return fmt.Errorf("failed to insert family notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpsertWellnessIndicator(w models.WellnessIndicator) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT(user_id, date) DO UPDATE SET
			check_in_completed = EXCLUDED.check_in_completed,
			conversation_quality = EXCLUDED.conversation_quality,
			mood_indicators = EXCLUDED.mood_indicators,
			cultural_engagement = EXCLUDED.cultural_engagement,
			concerns = EXCLUDED.concerns,
			positive_notes = EXCLUDED.positive_notes`,
		w.ID, w.UserID, w.Date, w.CheckInCompleted, w.Quality,
		nilIfEmpty(mood), nilIfEmpty(engagement), nilIfEmpty(concerns), nilIfEmpty(notes))
	if err != nil {
		slog.Error("PostgresStore UpsertWellnessIndicator failed", "error", err, "userID", w.UserID, "date", w.Date)
		return fmt.Errorf("failed to upsert wellness indicator: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListWellnessIndicators(userID string, from, to string) ([]models.WellnessIndicator, error) {
	rows, err := s.db.Query(`SELECT id, user_id, date, check_in_completed, conversation_quality,
		mood_indicators, cultural_engagement, concerns, positive_notes
		FROM wellness_indicators WHERE user_id = $1 AND date >= $2 AND date <= $3 ORDER BY date`,
		userID, from, to)
	if err != nil {
		slog.Error("PostgresStore ListWellnessIndicators query failed", "error", err, "userID", userID)
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

func (s *PostgresStore) AddWellnessConcern(c models.WellnessConcern) error {
	_, err := s.db.Exec(`INSERT INTO wellness_concerns (id, user_id, kind, details, window_days, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.Kind, nilIfEmpty(c.Details), c.WindowDays, c.DetectedAt)
	if err != nil {
		slog.Error("PostgresStore AddWellnessConcern failed", "error", err, "userID", c.UserID, "kind", c.Kind)
		return fmt.Errorf("failed to insert wellness concern: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddWellnessReport(r models.WellnessReport) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.UserID, r.WeekStart, r.CompletionRate, r.AverageQuality, r.EngagementScore,
		nilIfEmpty(concerns), nilIfEmpty(notes), r.GeneratedAt)
	if err != nil {
		slog.Error("PostgresStore AddWellnessReport failed", "error", err, "userID", r.UserID, "weekStart", r.WeekStart)
		return fmt.Errorf("failed to insert wellness report: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasWellnessReport(userID, weekStart string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM wellness_reports WHERE user_id = $1 AND week_start = $2`,
		userID, weekStart).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check wellness report: %w", err)
	}
	return count > 0, nil
}

func (s *PostgresStore) AddDeliveryLog(l models.NotificationDeliveryLog) error {
	adaptations, err := encodeJSON(l.CulturalAdaptations)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO notification_delivery_logs
		(id, notification_id, user_id, channel, status, timestamp, retry_count, cultural_adaptations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.NotificationID, l.UserID, l.Channel, l.Status, l.Timestamp, l.RetryCount,
		nilIfEmpty(adaptations))
	if err != nil {
		slog.Error("PostgresStore AddDeliveryLog failed", "error", err, "notificationID", l.NotificationID)
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddNotificationTemplate(t models.NotificationTemplate) error {
	_, err := s.db.Exec(`INSERT INTO notification_templates
		(id, type, cultural_group, language, title, body) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT(type, cultural_group, language) DO UPDATE SET title = EXCLUDED.title, body = EXCLUDED.body`,
		t.ID, t.Type, t.CulturalGroup, strings.ToLower(t.Language), t.Title, t.Body)
	if err != nil {
		slog.Error("PostgresStore AddNotificationTemplate failed", "error", err, "id", t.ID)
		return fmt.Errorf("failed to insert template %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetNotificationTemplate(typ models.NotificationType, group models.CulturalGroup, language string) (*models.NotificationTemplate, error) {
	var t models.NotificationTemplate
	err := s.db.QueryRow(`SELECT id, type, cultural_group, language, title, body
		FROM notification_templates WHERE type = $1 AND cultural_group = $2 AND language = $3`,
		typ, group, strings.ToLower(language)).Scan(&t.ID, &t.Type, &t.CulturalGroup, &t.Language, &t.Title, &t.Body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetNotificationTemplate failed", "error", err, "type", typ, "group", group)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) AddUserProfile(p models.UserProfile) error {
	_, err := s.db.Exec(`INSERT INTO user_profiles
		(id, name, language, cultural_group, timezone, phone, email, device_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(id) DO UPDATE SET name = EXCLUDED.name, language = EXCLUDED.language,
			cultural_group = EXCLUDED.cultural_group, timezone = EXCLUDED.timezone,
			phone = EXCLUDED.phone, email = EXCLUDED.email, device_token = EXCLUDED.device_token`,
		p.ID, p.Name, nilIfEmpty(p.Language), p.CulturalGroup, nilIfEmpty(p.Timezone),
		nilIfEmpty(p.Phone), nilIfEmpty(p.Email), nilIfEmpty(p.DeviceToken))
	if err != nil {
		slog.Error("PostgresStore AddUserProfile failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to insert user profile %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetUserProfile(id string) (*models.UserProfile, error) {
	var p models.UserProfile
	var language, timezone, phone, email, deviceToken sql.NullString
	err := s.db.QueryRow(`SELECT id, name, language, cultural_group, timezone, phone, email, device_token
		FROM user_profiles WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &language, &p.CulturalGroup, &timezone, &phone, &email, &deviceToken)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUserProfile failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get user profile %s: %w", id, err)
	}
	p.Language = language.String
	p.Timezone = timezone.String
	p.Phone = phone.String
	p.Email = email.String
	p.DeviceToken = deviceToken.String
	return &p, nil
}

func (s *PostgresStore) ListUserProfiles() ([]models.UserProfile, error) {
	rows, err := s.db.Query(`SELECT id, name, language, cultural_group, timezone, phone, email, device_token
		FROM user_profiles`)
	if err != nil {
		slog.Error("PostgresStore ListUserProfiles query failed", "error", err)
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

func (s *PostgresStore) AddFamilyContact(c models.FamilyContact) error {
	_, err := s.db.Exec(`INSERT INTO family_contacts
		(id, user_id, name, relationship, preferred_channel, phone, email, weekly_reports)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(id) DO UPDATE SET name = EXCLUDED.name, relationship = EXCLUDED.relationship,
			preferred_channel = EXCLUDED.preferred_channel, phone = EXCLUDED.phone,
			email = EXCLUDED.email, weekly_reports = EXCLUDED.weekly_reports`,
		c.ID, c.UserID, c.Name, nilIfEmpty(c.Relationship), c.PreferredChannel,
		nilIfEmpty(c.Phone), nilIfEmpty(c.Email), c.WeeklyReports)
	if err != nil {
		slog.Error("PostgresStore AddFamilyContact failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to insert family contact %s: %w", c.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListFamilyContacts(userID string) ([]models.FamilyContact, error) {
	rows, err := s.db.Query(`SELECT id, user_id, name, relationship, preferred_channel, phone, email, weekly_reports
		FROM family_contacts WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore ListFamilyContacts query failed", "error", err, "userID", userID)
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

func (s *PostgresStore) EnqueueDeferredTask(t models.DeferredTask) error {
	_, err := s.db.Exec(`INSERT INTO deferred_tasks (id, kind, payload, enqueued_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Kind, nilIfEmpty(t.Payload), t.EnqueuedAt)
	if err != nil {
		slog.Error("PostgresStore EnqueueDeferredTask failed", "error", err, "id", t.ID, "kind", t.Kind)
		return fmt.Errorf("failed to enqueue task %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListDeferredTasks() ([]models.DeferredTask, error) {
	rows, err := s.db.Query(`SELECT id, kind, payload, enqueued_at FROM deferred_tasks ORDER BY enqueued_at`)
	if err != nil {
		slog.Error("PostgresStore ListDeferredTasks query failed", "error", err)
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

func (s *PostgresStore) DeleteDeferredTask(id string) error {
	_, err := s.db.Exec(`DELETE FROM deferred_tasks WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteDeferredTask failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
