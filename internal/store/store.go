// Package store provides storage backends for the Manaaki notification
// engine: an in-memory store for tests, and SQLite/Postgres stores for
// deployment. All tick coordination happens through this store rather than
// in-memory state.
package store

import (
	"time"

	"github.com/manaaki-care/manaaki/internal/models"
)

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store constructors.
type Option func(*Opts)

// WithDSN sets the database connection string (file path for SQLite,
// connection URL for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// Store is the persistence interface consumed by the planner, dispatcher,
// escalation engine, wellness analyzer, and task runner.
type Store interface {
	// Check-in schedules.
	AddCheckInSchedule(s models.CheckInSchedule) error
	GetCheckInSchedule(id string) (*models.CheckInSchedule, error)
	ListActiveCheckInSchedules() ([]models.CheckInSchedule, error)
	UpdateCheckInSchedule(s models.CheckInSchedule) error

	// Scheduled notifications.
	AddScheduledNotification(n models.ScheduledNotification) error
	UpdateScheduledNotification(n models.ScheduledNotification) error
	ListDueScheduledNotifications(now time.Time) ([]models.ScheduledNotification, error)
	// HasActiveNotificationAt reports whether an active notification already
	// exists for the (schedule, occurrence) pair, upholding the
	// at-most-one-active invariant.
	HasActiveNotificationAt(scheduleID string, occurrence time.Time) (bool, error)

	// Caregiver alerts.
	AddCaregiverAlert(a models.CaregiverAlert) error
	UpdateCaregiverAlert(a models.CaregiverAlert) error
	ListUnresolvedActionAlerts(olderThan time.Time) ([]models.CaregiverAlert, error)

	// Family notifications.
	AddFamilyNotification(n models.FamilyNotification) error

	// Wellness records. Date bounds are YYYY-MM-DD strings, inclusive.
	UpsertWellnessIndicator(w models.WellnessIndicator) error
	ListWellnessIndicators(userID string, from, to string) ([]models.WellnessIndicator, error)
	AddWellnessConcern(c models.WellnessConcern) error
	AddWellnessReport(r models.WellnessReport) error
	HasWellnessReport(userID, weekStart string) (bool, error)

	// Delivery audit trail, append-only.
	AddDeliveryLog(l models.NotificationDeliveryLog) error

	// Templates.
	AddNotificationTemplate(t models.NotificationTemplate) error
	GetNotificationTemplate(typ models.NotificationType, group models.CulturalGroup, language string) (*models.NotificationTemplate, error)

	// Profiles read for personalization and fan-out.
	AddUserProfile(p models.UserProfile) error
	GetUserProfile(id string) (*models.UserProfile, error)
	ListUserProfiles() ([]models.UserProfile, error)
	AddFamilyContact(c models.FamilyContact) error
	ListFamilyContacts(userID string) ([]models.FamilyContact, error)

	// Deferred task queue.
	EnqueueDeferredTask(t models.DeferredTask) error
	ListDeferredTasks() ([]models.DeferredTask, error)
	DeleteDeferredTask(id string) error

	Close() error
}
