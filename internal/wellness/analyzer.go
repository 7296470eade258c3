// Package wellness mines recent wellness history for concerning trends and
// produces periodic family-facing reports.
package wellness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/manaaki-care/manaaki/internal/cultural"
	"github.com/manaaki-care/manaaki/internal/models"
	"github.com/manaaki-care/manaaki/internal/store"
)

// DefaultWindowDays is the trend-analysis lookback window.
const DefaultWindowDays = 7

// Trend thresholds. Missed check-ins compare strictly: exactly half the
// window missed does not raise a concern.
const (
	missedPercentThreshold = 50.0
	anxiousRatioThreshold  = 0.6
	confusedRatioThreshold = 0.4
)

// Concern kinds raised by AnalyzeWindow.
const (
	ConcernHighMissedCheckIns = "high_missed_checkins"
	ConcernPersistentAnxiety  = "persistent_anxiety"
	ConcernCognitiveChanges   = "cognitive_changes"
)

// advisoryActions is the fixed suggestion list attached to trend alerts.
var advisoryActions = []string{
	"Review the past week's check-in history",
	"Schedule an in-person wellness visit",
	"Discuss observations with the care team",
}

// Analyzer scans wellness indicators per user.
type Analyzer struct {
	store store.Store
}

// NewAnalyzer creates an Analyzer over the given store.
func NewAnalyzer(st store.Store) *Analyzer {
	return &Analyzer{store: st}
}

// AnalyzeWindow groups wellness indicators per user over the trailing window
// and raises a concern record plus a caregiver alert for each concerning
// trend. A failure for one user never blocks the others.
func (a *Analyzer) AnalyzeWindow(ctx context.Context, users []models.UserProfile, windowDays int, now time.Time) error {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	for _, user := range users {
		if err := a.analyzeUser(ctx, user, windowDays, now); err != nil {
			slog.Error("Analyzer.AnalyzeWindow: user analysis failed", "error", err, "userID", user.ID)
		}
	}
	return nil
}

func (a *Analyzer) analyzeUser(ctx context.Context, user models.UserProfile, windowDays int, now time.Time) error {
	from := now.AddDate(0, 0, -(windowDays - 1)).Format("2006-01-02")
	to := now.Format("2006-01-02")
	indicators, err := a.store.ListWellnessIndicators(user.ID, from, to)
	if err != nil {
		return fmt.Errorf("failed to load indicators: %w", err)
	}

	totalDays := float64(windowDays)
	completed, anxious, confused := 0, 0, 0
	for _, ind := range indicators {
		if ind.CheckInCompleted {
			completed++
		}
		if ind.Mood.Anxious {
			anxious++
		}
		if ind.Mood.Confused {
			confused++
		}
	}

	missedPercentage := float64(windowDays-completed) / totalDays * 100
	if missedPercentage > missedPercentThreshold {
		a.raiseConcern(user, ConcernHighMissedCheckIns,
			fmt.Sprintf("%.0f%% of check-ins missed over the past %d days", missedPercentage, windowDays),
			windowDays, now)
	}
	if float64(anxious)/totalDays > anxiousRatioThreshold {
		a.raiseConcern(user, ConcernPersistentAnxiety,
			fmt.Sprintf("anxious mood observed on %d of %d days", anxious, windowDays),
			windowDays, now)
	}
	if float64(confused)/totalDays > confusedRatioThreshold {
		a.raiseConcern(user, ConcernCognitiveChanges,
			fmt.Sprintf("confusion observed on %d of %d days", confused, windowDays),
			windowDays, now)
	}
	return nil
}

func (a *Analyzer) raiseConcern(user models.UserProfile, kind, details string, windowDays int, now time.Time) {
	concern := models.WellnessConcern{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Kind:       kind,
		Details:    details,
		WindowDays: windowDays,
		DetectedAt: now,
	}
	if err := a.store.AddWellnessConcern(concern); err != nil {
		slog.Error("Analyzer.raiseConcern: concern write failed", "error", err, "userID", user.ID, "kind", kind)
		return
	}

	alert := models.CaregiverAlert{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		AlertType:        kind,
		Severity:         models.SeverityNormal,
		Title:            "Wellness trend: " + strings.ReplaceAll(kind, "_", " "),
		Description:      details,
		CulturalContext:  string(user.CulturalGroup),
		ActionRequired:   true,
		SuggestedActions: advisoryActions,
		Timestamp:        now,
	}
	if err := a.store.AddCaregiverAlert(alert); err != nil {
		slog.Error("Analyzer.raiseConcern: alert write failed", "error", err, "userID", user.ID, "kind", kind)
		return
	}
	slog.Info("Analyzer.raiseConcern: wellness concern raised", "userID", user.ID, "kind", kind)
}

// WeekStart returns the Monday of t's week, truncated to midnight in t's
// location.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// GenerateWeeklyReport aggregates one user's indicators for the week
// starting at weekStart, persists the report, and notifies every family
// contact that opted into weekly reports. Re-running for the same week is a
// no-op once the report exists.
func (a *Analyzer) GenerateWeeklyReport(ctx context.Context, user models.UserProfile, weekStart time.Time) error {
	ws := weekStart.Format("2006-01-02")
	exists, err := a.store.HasWellnessReport(user.ID, ws)
	if err != nil {
		return fmt.Errorf("failed to check existing report: %w", err)
	}
	if exists {
		return nil
	}

	weekEnd := weekStart.AddDate(0, 0, 6).Format("2006-01-02")
	indicators, err := a.store.ListWellnessIndicators(user.ID, ws, weekEnd)
	if err != nil {
		return fmt.Errorf("failed to load indicators: %w", err)
	}

	completed := 0
	qualitySum, qualityCount := 0, 0
	engagementSum := 0.0
	var concerns, positives []string
	for _, ind := range indicators {
		if ind.CheckInCompleted {
			completed++
		}
		if score := ind.Quality.Score(); score > 0 {
			qualitySum += score
			qualityCount++
		}
		engagementSum += ind.Engagement.EngagementScore()
		concerns = append(concerns, ind.Concerns...)
		positives = append(positives, ind.PositiveNotes...)
	}

	report := models.WellnessReport{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		WeekStart:      ws,
		CompletionRate: float64(completed) / 7 * 100,
		Concerns:       concerns,
		PositiveNotes:  positives,
		GeneratedAt:    time.Now().UTC(),
	}
	if qualityCount > 0 {
		report.AverageQuality = float64(qualitySum) / float64(qualityCount)
	}
	if len(indicators) > 0 {
		report.EngagementScore = engagementSum / float64(len(indicators)) * 100
	}

	if err := a.store.AddWellnessReport(report); err != nil {
		return fmt.Errorf("failed to persist report: %w", err)
	}
	slog.Info("Analyzer.GenerateWeeklyReport: report generated",
		"userID", user.ID, "weekStart", ws, "completionRate", report.CompletionRate)

	contacts, err := a.store.ListFamilyContacts(user.ID)
	if err != nil {
		return fmt.Errorf("failed to list family contacts: %w", err)
	}
	narrative := a.formatNarrative(user, report)
	for _, contact := range contacts {
		if !contact.WeeklyReports {
			continue
		}
		fn := models.FamilyNotification{
			ID:              uuid.NewString(),
			UserID:          user.ID,
			FamilyContactID: contact.ID,
			Type:            "weekly_wellness_report",
			Title:           "Weekly wellness update for " + user.Name,
			Content:         narrative,
			CulturalContext: string(user.CulturalGroup),
			Timestamp:       time.Now().UTC(),
		}
		if err := a.store.AddFamilyNotification(fn); err != nil {
			slog.Error("Analyzer.GenerateWeeklyReport: family notification failed", "error", err, "contact", contact.ID)
		}
	}
	return nil
}

// formatNarrative renders a deterministic, culturally toned summary for
// family contacts.
func (a *Analyzer) formatNarrative(user models.UserProfile, r models.WellnessReport) string {
	familyTerm := cultural.FamilyTerm(user.CulturalGroup)
	var b strings.Builder
	fmt.Fprintf(&b, "%s, here is this week's update on %s for the %s.\n",
		cultural.Greeting(user.CulturalGroup), user.Name, familyTerm)
	fmt.Fprintf(&b, "Check-ins completed: %.0f%%. Conversation quality: %.1f of 4. Cultural engagement: %.0f%%.\n",
		r.CompletionRate, r.AverageQuality, r.EngagementScore)
	if len(r.Concerns) > 0 {
		fmt.Fprintf(&b, "Concerns noted: %s.\n", strings.Join(r.Concerns, "; "))
	}
	if len(r.PositiveNotes) > 0 {
		fmt.Fprintf(&b, "Positive moments: %s.\n", strings.Join(r.PositiveNotes, "; "))
	}
	return b.String()
}
