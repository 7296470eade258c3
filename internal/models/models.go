// Package models defines the core data structures for the Manaaki notification engine.
//
// It includes check-in schedules, scheduled notifications, escalation rules,
// wellness records, and caregiver/family alert types shared across modules.
package models

import (
	"errors"
	"time"
)

// CulturalGroup identifies one of the supported cultural configurations.
type CulturalGroup string

const (
	// CulturalGroupMaori selects the Māori cultural configuration.
	CulturalGroupMaori CulturalGroup = "maori"
	// CulturalGroupChinese selects the Chinese cultural configuration.
	CulturalGroupChinese CulturalGroup = "chinese"
	// CulturalGroupWestern selects the baseline Western cultural configuration.
	CulturalGroupWestern CulturalGroup = "western"
)

// IsValidCulturalGroup checks if the given cultural group is supported.
func IsValidCulturalGroup(g CulturalGroup) bool {
	switch g {
	case CulturalGroupMaori, CulturalGroupChinese, CulturalGroupWestern:
		return true
	default:
		return false
	}
}

// Channel identifies a delivery channel for outbound notifications.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelVoice Channel = "voice"
)

// IsValidChannel checks if the given channel is supported.
func IsValidChannel(c Channel) bool {
	switch c {
	case ChannelPush, ChannelSMS, ChannelEmail, ChannelVoice:
		return true
	default:
		return false
	}
}

// RecurrencePattern defines how a notification or schedule repeats.
type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

// IsValidRecurrencePattern checks if the given recurrence pattern is supported.
func IsValidRecurrencePattern(p RecurrencePattern) bool {
	switch p {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

// EscalationAction defines what happens when an escalation rule fires.
type EscalationAction string

const (
	ActionNotifyFamily    EscalationAction = "notify_family"
	ActionNotifyCaregiver EscalationAction = "notify_caregiver"
	ActionCallEmergency   EscalationAction = "call_emergency"
	ActionScheduleVisit   EscalationAction = "schedule_visit"
)

// IsValidEscalationAction checks if the given escalation action is supported.
func IsValidEscalationAction(a EscalationAction) bool {
	switch a {
	case ActionNotifyFamily, ActionNotifyCaregiver, ActionCallEmergency, ActionScheduleVisit:
		return true
	default:
		return false
	}
}

// AlertSeverity ranks caregiver alerts.
type AlertSeverity string

const (
	SeverityNormal   AlertSeverity = "normal"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// NotificationType classifies outbound notifications and templates.
type NotificationType string

const (
	NotificationTypeCheckInReminder NotificationType = "check_in_reminder"
	NotificationTypeMissedCheckIn   NotificationType = "missed_check_in"
	NotificationTypeFamilyUpdate    NotificationType = "family_update"
	NotificationTypeWellnessReport  NotificationType = "wellness_report"
)

// Priority ranks scheduled notifications.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DeliveryStatus records the outcome of a single channel send attempt.
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// ConversationQuality grades a daily check-in conversation.
type ConversationQuality string

const (
	QualityPoor      ConversationQuality = "poor"
	QualityFair      ConversationQuality = "fair"
	QualityGood      ConversationQuality = "good"
	QualityExcellent ConversationQuality = "excellent"
)

// Score maps a conversation quality to its numeric value (poor=1 .. excellent=4).
// Unknown values score 0 and are excluded from averages by callers.
func (q ConversationQuality) Score() int {
	switch q {
	case QualityPoor:
		return 1
	case QualityFair:
		return 2
	case QualityGood:
		return 3
	case QualityExcellent:
		return 4
	default:
		return 0
	}
}

// Error variables for validation failures. Invariant violations are
// configuration bugs and must surface loudly at planning time.
var (
	ErrEmptyUserID          = errors.New("user ID cannot be empty")
	ErrInvalidCulturalGroup = errors.New("invalid cultural group")
	ErrInvalidPreferredTime = errors.New("preferred time must be in HH:mm format")
	ErrInvalidRecurrence    = errors.New("invalid recurrence pattern")
	ErrInvalidChannel       = errors.New("invalid delivery channel")
	ErrNoChannels           = errors.New("at least one delivery channel is required")
	ErrInvalidRuleTrigger   = errors.New("escalation rule trigger must be positive")
	ErrInvalidRuleAction    = errors.New("invalid escalation rule action")
	ErrAllDaysAvoided       = errors.New("avoid days cover the whole week")
	ErrInvalidWindow        = errors.New("respectful hours start must be before end")
)

// RespectfulHours is the daily window within which sends are culturally
// appropriate. Start and End are HH:mm strings; wrapping past midnight is
// unsupported (Start must sort before End).
type RespectfulHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SpecialConsiderations flags cultural communication-style adjustments.
type SpecialConsiderations struct {
	FamilyInvolvement     bool `json:"family_involvement"`
	IndirectCommunication bool `json:"indirect_communication"`
	HierarchicalApproach  bool `json:"hierarchical_approach"`
	SpiritualSensitivity  bool `json:"spiritual_sensitivity"`
}

// CulturalConfig maps a cultural group to its notification behavior. One
// immutable instance exists per group; scheduled notifications embed a
// snapshot rather than a live reference.
type CulturalConfig struct {
	Group                  CulturalGroup         `json:"cultural_group"`
	RespectfulHours        RespectfulHours       `json:"respectful_hours"`
	AvoidDays              []string              `json:"avoid_days,omitempty"` // weekday names, case-insensitive
	Special                SpecialConsiderations `json:"special_considerations"`
	PreferredChannels      []Channel             `json:"preferred_channels"`
	EscalationDelayMinutes int                   `json:"escalation_delay_minutes"`
}

// EscalationRule defines one step of an escalation chain. Rules are immutable
// once attached to a schedule and fire at most once per overdue episode.
type EscalationRule struct {
	ID                    string           `json:"id"`
	TriggerAfterMinutes   int              `json:"trigger_after_minutes"`
	Action                EscalationAction `json:"action"`
	Contacts              []string         `json:"contacts,omitempty"` // family contact IDs
	Message               string           `json:"message,omitempty"`
	CulturallyAppropriate bool             `json:"culturally_appropriate"`
}

// Validate checks an escalation rule for configuration errors.
func (r *EscalationRule) Validate() error {
	if r.TriggerAfterMinutes <= 0 {
		return ErrInvalidRuleTrigger
	}
	if !IsValidEscalationAction(r.Action) {
		return ErrInvalidRuleAction
	}
	return nil
}

// CheckInSchedule is a recurring check-in owned by a user/caregiver.
//
// LastCheckIn and MissedCount are mutated by the dispatcher and escalation
// engine. EpisodeOpenedAt and EpisodeFiredRules carry the overdue-episode
// state machine across monitor ticks so that no in-memory state is shared.
type CheckInSchedule struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Name              string            `json:"name"`
	IsActive          bool              `json:"is_active"`
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern"`
	PreferredTime     string            `json:"preferred_time"` // HH:mm
	Timezone          string            `json:"timezone,omitempty"`
	CulturalGroup     CulturalGroup     `json:"cultural_group"`
	ReminderMinutes   int               `json:"reminder_minutes,omitempty"` // lead time for the reminder send
	FollowUpEnabled   bool              `json:"follow_up_enabled"`
	LastCheckIn       *time.Time        `json:"last_check_in,omitempty"`
	MissedCount       int               `json:"missed_count"`
	EscalationRules   []EscalationRule  `json:"escalation_rules,omitempty"`
	EpisodeOpenedAt   *time.Time        `json:"episode_opened_at,omitempty"`
	EpisodeFiredRules []string          `json:"episode_fired_rules,omitempty"` // rule IDs fired this episode
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Validate performs validation on a check-in schedule.
func (s *CheckInSchedule) Validate() error {
	if s.UserID == "" {
		return ErrEmptyUserID
	}
	if !IsValidCulturalGroup(s.CulturalGroup) {
		return ErrInvalidCulturalGroup
	}
	if _, err := time.Parse("15:04", s.PreferredTime); err != nil {
		return ErrInvalidPreferredTime
	}
	if !IsValidRecurrencePattern(s.RecurrencePattern) {
		return ErrInvalidRecurrence
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return errors.New("invalid timezone")
		}
	}
	for i := range s.EscalationRules {
		if err := s.EscalationRules[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EpisodeRuleFired reports whether the given rule already fired during the
// currently open overdue episode.
func (s *CheckInSchedule) EpisodeRuleFired(ruleID string) bool {
	for _, id := range s.EpisodeFiredRules {
		if id == ruleID {
			return true
		}
	}
	return false
}

// RecurrenceConfig tunes how a recurring notification repeats.
type RecurrenceConfig struct {
	Interval   int        `json:"interval"` // every N days/weeks/months
	DaysOfWeek []string   `json:"days_of_week,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// ScheduledNotification is a concrete planned send. It is created by the
// planner or by recurrence chaining, and retired (IsActive=false) or chained
// to a successor by the dispatcher.
type ScheduledNotification struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	ScheduleID        string            `json:"schedule_id,omitempty"`
	Type              NotificationType  `json:"type"`
	Priority          Priority          `json:"priority"`
	Title             string            `json:"title"`
	Message           string            `json:"message"`
	ScheduledFor      time.Time         `json:"scheduled_for"`
	Channels          []Channel         `json:"channels"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern,omitempty"`
	Recurrence        RecurrenceConfig  `json:"recurrence_config"`
	CulturalConfig    CulturalConfig    `json:"cultural_config"` // snapshot at plan time
	Metadata          map[string]string `json:"metadata,omitempty"`
	IsActive          bool              `json:"is_active"`
	LastSent          *time.Time        `json:"last_sent,omitempty"`
	FailureCount      int               `json:"failure_count"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Validate performs validation on a scheduled notification.
func (n *ScheduledNotification) Validate() error {
	if n.UserID == "" {
		return ErrEmptyUserID
	}
	if len(n.Channels) == 0 {
		return ErrNoChannels
	}
	for _, c := range n.Channels {
		if !IsValidChannel(c) {
			return ErrInvalidChannel
		}
	}
	if n.IsRecurring && !IsValidRecurrencePattern(n.RecurrencePattern) {
		return ErrInvalidRecurrence
	}
	return nil
}

// MoodIndicators summarizes observed mood during a daily check-in.
type MoodIndicators struct {
	Anxious    bool `json:"anxious"`
	Confused   bool `json:"confused"`
	Content    bool `json:"content"`
	Agitated   bool `json:"agitated"`
	Responsive bool `json:"responsive"`
}

// CulturalEngagement records which cultural touchpoints the day's
// conversation reached.
type CulturalEngagement struct {
	LanguageUsed        bool `json:"language_used"`
	TraditionsDiscussed bool `json:"traditions_discussed"`
	FamilyMentioned     bool `json:"family_mentioned"`
	SpiritualPractice   bool `json:"spiritual_practice"`
}

// EngagementScore returns the fraction of engagement flags set, in [0, 1].
func (e CulturalEngagement) EngagementScore() float64 {
	set := 0
	for _, b := range []bool{e.LanguageUsed, e.TraditionsDiscussed, e.FamilyMentioned, e.SpiritualPractice} {
		if b {
			set++
		}
	}
	return float64(set) / 4
}

// WellnessIndicator is the daily per-user wellness record, upserted on
// check-in. Date is a calendar day in YYYY-MM-DD form; one row exists per
// user per date.
type WellnessIndicator struct {
	ID               string              `json:"id"`
	UserID           string              `json:"user_id"`
	Date             string              `json:"date"` // YYYY-MM-DD
	CheckInCompleted bool                `json:"check_in_completed"`
	Quality          ConversationQuality `json:"conversation_quality"`
	Mood             MoodIndicators      `json:"mood_indicators"`
	Engagement       CulturalEngagement  `json:"cultural_engagement"`
	Concerns         []string            `json:"concerns,omitempty"`
	PositiveNotes    []string            `json:"positive_notes,omitempty"`
}

// CaregiverAlert is raised by the escalation engine and wellness analyzer and
// resolved by the caregiver UI. Unresolved action-required alerts are
// auto-escalated to critical after a fixed age.
type CaregiverAlert struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	CaregiverID      string        `json:"caregiver_id,omitempty"`
	AlertType        string        `json:"alert_type"`
	Severity         AlertSeverity `json:"severity"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	CulturalContext  string        `json:"cultural_context,omitempty"`
	ActionRequired   bool          `json:"action_required"`
	SuggestedActions []string      `json:"suggested_actions,omitempty"`
	AuditNotes       []string      `json:"audit_notes,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
	IsResolved       bool          `json:"is_resolved"`
	ResolvedBy       string        `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time    `json:"resolved_at,omitempty"`
}

// FamilyNotification is an engine-generated message to a family contact.
type FamilyNotification struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	FamilyContactID  string    `json:"family_contact_id"`
	Type             string    `json:"type"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	CulturalContext  string    `json:"cultural_context,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	IsRead           bool      `json:"is_read"`
	RequiresResponse bool      `json:"requires_response,omitempty"`
}

// NotificationDeliveryLog is one append-only audit row per channel attempt.
type NotificationDeliveryLog struct {
	ID                  string         `json:"id"`
	NotificationID      string         `json:"notification_id"`
	UserID              string         `json:"user_id"`
	Channel             Channel        `json:"channel"`
	Status              DeliveryStatus `json:"status"`
	Timestamp           time.Time      `json:"timestamp"`
	RetryCount          int            `json:"retry_count"`
	CulturalAdaptations []string       `json:"cultural_adaptations,omitempty"`
}

// NotificationTemplate is message content keyed by (type, group, language).
type NotificationTemplate struct {
	ID            string           `json:"id"`
	Type          NotificationType `json:"type"`
	CulturalGroup CulturalGroup    `json:"cultural_group"`
	Language      string           `json:"language"` // BCP 47 primary tag, e.g. "en", "mi", "zh"
	Title         string           `json:"title"`
	Body          string           `json:"body"`
}

// WellnessReport is the persisted weekly aggregate for one user.
type WellnessReport struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	WeekStart       string    `json:"week_start"` // YYYY-MM-DD
	CompletionRate  float64   `json:"completion_rate"`
	AverageQuality  float64   `json:"average_conversation_quality"`
	EngagementScore float64   `json:"cultural_engagement_score"`
	Concerns        []string  `json:"concerns,omitempty"`
	PositiveNotes   []string  `json:"positive_notes,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// WellnessConcern is a persisted trend-analysis finding.
type WellnessConcern struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"` // e.g. high_missed_checkins
	Details    string    `json:"details,omitempty"`
	WindowDays int       `json:"window_days"`
	DetectedAt time.Time `json:"detected_at"`
}

// UserProfile carries the engine-visible slice of a user record: identity,
// language, cultural group, and channel addresses for personalization and
// dispatch. The rest of the profile belongs to other subsystems.
type UserProfile struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Language      string        `json:"language,omitempty"` // defaults to "en"
	CulturalGroup CulturalGroup `json:"cultural_group"`
	Timezone      string        `json:"timezone,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	Email         string        `json:"email,omitempty"`
	DeviceToken   string        `json:"device_token,omitempty"`
}

// FamilyContact is a family member reachable by escalation fan-out and
// weekly reports.
type FamilyContact struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	Name             string  `json:"name"`
	Relationship     string  `json:"relationship,omitempty"`
	PreferredChannel Channel `json:"preferred_channel"`
	Phone            string  `json:"phone,omitempty"`
	Email            string  `json:"email,omitempty"`
	WeeklyReports    bool    `json:"weekly_reports"` // opted into weekly wellness reports
}

// DeferredTask is a persisted unit of deferred work drained by the task
// runner. A failing task is logged and removed, never requeued.
type DeferredTask struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Payload    string    `json:"payload,omitempty"` // JSON
	EnqueuedAt time.Time `json:"enqueued_at"`
}
