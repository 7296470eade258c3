package wellness

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/manaaki-care/manaaki/internal/models"
	"github.com/manaaki-care/manaaki/internal/store"
)

func testUser() models.UserProfile {
	return models.UserProfile{
		ID:            "user-1",
		Name:          "Mere",
		CulturalGroup: models.CulturalGroupMaori,
	}
}

// addIndicator inserts a completed or missed indicator for the given day
// offset back from now.
func addIndicator(t *testing.T, st *store.InMemoryStore, now time.Time, daysAgo int, ind models.WellnessIndicator) {
	t.Helper()
	ind.UserID = "user-1"
	ind.Date = now.AddDate(0, 0, -daysAgo).Format("2006-01-02")
	ind.ID = fmt.Sprintf("ind-%d", daysAgo)
	if err := st.UpsertWellnessIndicator(ind); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func concernKinds(st *store.InMemoryStore) map[string]int {
	kinds := make(map[string]int)
	for _, c := range st.ListWellnessConcerns() {
		kinds[c.Kind]++
	}
	return kinds
}

func TestMissedCheckInBoundaryIsStrict(t *testing.T) {
	st := store.NewInMemoryStore()
	a := NewAnalyzer(st)
	now := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)

	// 2 completed of a 4-day window: exactly 50% missed, no concern.
	addIndicator(t, st, now, 0, models.WellnessIndicator{CheckInCompleted: true})
	addIndicator(t, st, now, 1, models.WellnessIndicator{CheckInCompleted: true})

	if err := a.AnalyzeWindow(context.Background(), []models.UserProfile{testUser()}, 4, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kinds := concernKinds(st); kinds[ConcernHighMissedCheckIns] != 0 {
		t.Errorf("50%% missed must not raise a concern, got %v", kinds)
	}
}

func TestMissedCheckInsAboveThreshold(t *testing.T) {
	st := store.NewInMemoryStore()
	a := NewAnalyzer(st)
	now := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)

	// 1 completed of 4: 75% missed. Days without a record count as missed.
	addIndicator(t, st, now, 0, models.WellnessIndicator{CheckInCompleted: true})

	if err := a.AnalyzeWindow(context.Background(), []models.UserProfile{testUser()}, 4, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kinds := concernKinds(st)
	if kinds[ConcernHighMissedCheckIns] != 1 {
		t.Fatalf("expected one missed-check-in concern, got %v", kinds)
	}

	alerts := st.ListCaregiverAlerts()
	if len(alerts) != 1 {
		t.Fatalf("expected one caregiver alert, got %d", len(alerts))
	}
	if alerts[0].Severity != models.SeverityNormal || !alerts[0].ActionRequired {
		t.Errorf("trend alerts are advisory but action-required: %+v", alerts[0])
	}
	if len(alerts[0].SuggestedActions) == 0 {
		t.Error("expected suggested actions on the alert")
	}
}

func TestMoodTrendThresholds(t *testing.T) {
	st := store.NewInMemoryStore()
	a := NewAnalyzer(st)
	now := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)

	// All 4 days completed (no missed concern); anxious on 3 of 4 days
	// (0.75 > 0.6) and confused on 2 of 4 (0.5 > 0.4).
	addIndicator(t, st, now, 0, models.WellnessIndicator{CheckInCompleted: true, Mood: models.MoodIndicators{Anxious: true, Confused: true}})
	addIndicator(t, st, now, 1, models.WellnessIndicator{CheckInCompleted: true, Mood: models.MoodIndicators{Anxious: true, Confused: true}})
	addIndicator(t, st, now, 2, models.WellnessIndicator{CheckInCompleted: true, Mood: models.MoodIndicators{Anxious: true}})
	addIndicator(t, st, now, 3, models.WellnessIndicator{CheckInCompleted: true})

	if err := a.AnalyzeWindow(context.Background(), []models.UserProfile{testUser()}, 4, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kinds := concernKinds(st)
	if kinds[ConcernPersistentAnxiety] != 1 {
		t.Errorf("expected anxiety concern, got %v", kinds)
	}
	if kinds[ConcernCognitiveChanges] != 1 {
		t.Errorf("expected cognitive concern, got %v", kinds)
	}
	if kinds[ConcernHighMissedCheckIns] != 0 {
		t.Errorf("no missed concern expected, got %v", kinds)
	}
}

func TestMoodTrendBoundariesAreStrict(t *testing.T) {
	st := store.NewInMemoryStore()
	a := NewAnalyzer(st)
	now := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)

	// anxious 3/5 = 0.6 and confused 2/5 = 0.4: both exactly at threshold.
	for i := 0; i < 5; i++ {
		ind := models.WellnessIndicator{CheckInCompleted: true}
		ind.Mood.Anxious = i < 3
		ind.Mood.Confused = i < 2
		addIndicator(t, st, now, i, ind)
	}
	if err := a.AnalyzeWindow(context.Background(), []models.UserProfile{testUser()}, 5, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kinds := concernKinds(st); len(kinds) != 0 {
		t.Errorf("values at the threshold must not trigger, got %v", kinds)
	}
}

func TestWeekStart(t *testing.T) {
	wednesday := time.Date(2025, 6, 11, 15, 30, 0, 0, time.UTC)
	want := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	if got := WeekStart(wednesday); !got.Equal(want) {
		t.Errorf("WeekStart(%v) = %v, want %v", wednesday, got, want)
	}
	monday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	if got := WeekStart(monday); !got.Equal(monday) {
		t.Errorf("WeekStart of a Monday should be itself, got %v", got)
	}
	sunday := time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC)
	if got := WeekStart(sunday); !got.Equal(want) {
		t.Errorf("WeekStart(%v) = %v, want %v", sunday, got, want)
	}
}

func TestGenerateWeeklyReport(t *testing.T) {
	st := store.NewInMemoryStore()
	a := NewAnalyzer(st)
	user := testUser()
	weekStart := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // Monday

	// 5 completed days with mixed quality and engagement.
	qualities := []models.ConversationQuality{
		models.QualityGood, models.QualityExcellent, models.QualityGood,
		models.QualityFair, models.QualityGood,
	}
	for i, q := range qualities {
		ind := models.WellnessIndicator{
			UserID:           user.ID,
			ID:               fmt.Sprintf("ind-%d", i),
			Date:             weekStart.AddDate(0, 0, i).Format("2006-01-02"),
			CheckInCompleted: true,
			Quality:          q,
			Engagement:       models.CulturalEngagement{LanguageUsed: true, FamilyMentioned: true},
			PositiveNotes:    []string{"shared a story"},
		}
		if err := st.UpsertWellnessIndicator(ind); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := st.AddFamilyContact(models.FamilyContact{
		ID: "contact-opted", UserID: user.ID, Name: "Hine",
		PreferredChannel: models.ChannelSMS, Phone: "+6421555001", WeeklyReports: true,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.AddFamilyContact(models.FamilyContact{
		ID: "contact-optout", UserID: user.ID, Name: "Tane",
		PreferredChannel: models.ChannelEmail, Email: "tane@example.com",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := a.GenerateWeeklyReport(context.Background(), user, weekStart); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := st.GetWellnessReport(user.ID, "2025-06-02")
	if err != nil || report == nil {
		t.Fatalf("report not persisted: %v", err)
	}
	wantCompletion := 5.0 / 7 * 100
	if report.CompletionRate != wantCompletion {
		t.Errorf("completion rate %v, want %v", report.CompletionRate, wantCompletion)
	}
	wantQuality := (3.0 + 4 + 3 + 2 + 3) / 5
	if report.AverageQuality != wantQuality {
		t.Errorf("average quality %v, want %v", report.AverageQuality, wantQuality)
	}
	if report.EngagementScore != 50 {
		t.Errorf("engagement score %v, want 50", report.EngagementScore)
	}
	if len(report.PositiveNotes) != 5 {
		t.Errorf("expected positive notes carried into the report, got %d", len(report.PositiveNotes))
	}

	notifications := st.ListFamilyNotifications()
	if len(notifications) != 1 {
		t.Fatalf("expected one family notification (opted-in contact only), got %d", len(notifications))
	}
	if notifications[0].FamilyContactID != "contact-opted" {
		t.Errorf("notification went to the wrong contact: %s", notifications[0].FamilyContactID)
	}

	// Re-running for the same week is a no-op.
	if err := a.GenerateWeeklyReport(context.Background(), user, weekStart); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(st.ListFamilyNotifications()); got != 1 {
		t.Errorf("repeat generation must not notify again, got %d", got)
	}
}
