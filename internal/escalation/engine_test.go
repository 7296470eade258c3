package escalation

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/manaaki-care/manaaki/internal/messaging"
	"github.com/manaaki-care/manaaki/internal/models"
	"github.com/manaaki-care/manaaki/internal/store"
)

type fixture struct {
	store  *store.InMemoryStore
	engine *Engine
	sms    *messaging.MockSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewInMemoryStore()
	sms := messaging.NewMockSender()
	registry := messaging.NewRegistry()
	registry.Register(models.ChannelSMS, sms)
	return &fixture{store: st, engine: NewEngine(st, registry, nil), sms: sms}
}

func (f *fixture) addSchedule(t *testing.T, sc models.CheckInSchedule) {
	t.Helper()
	if err := f.store.AddCheckInSchedule(sc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func (f *fixture) addContact(t *testing.T, c models.FamilyContact) {
	t.Helper()
	if err := f.store.AddFamilyContact(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func (f *fixture) schedule(t *testing.T, id string) models.CheckInSchedule {
	t.Helper()
	sc, err := f.store.GetCheckInSchedule(id)
	if err != nil || sc == nil {
		t.Fatalf("schedule %s not found: %v", id, err)
	}
	return *sc
}

func maoriSchedule(rules ...models.EscalationRule) models.CheckInSchedule {
	return models.CheckInSchedule{
		ID:                "sched-1",
		UserID:            "user-1",
		Name:              "Morning check-in",
		IsActive:          true,
		RecurrencePattern: models.RecurrenceDaily,
		PreferredTime:     "09:00",
		CulturalGroup:     models.CulturalGroupMaori,
		EscalationRules:   rules,
	}
}

// Expected slot 09:00, grace 15 minutes, Māori cultural delay 30 minutes.
// Nothing reaches the family before 30 minutes have elapsed, and exactly one
// notification goes out after.
func TestCulturalDelayGatesFamilyNotification(t *testing.T) {
	f := newFixture(t)
	f.addContact(t, models.FamilyContact{
		ID: "contact-1", UserID: "user-1", Name: "Hine",
		PreferredChannel: models.ChannelSMS, Phone: "+6421555001",
	})
	f.addSchedule(t, maoriSchedule(models.EscalationRule{
		ID: "rule-1", TriggerAfterMinutes: 30, Action: models.ActionNotifyFamily,
		Contacts: []string{"contact-1"},
	}))

	day := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC) // Monday
	ctx := context.Background()

	// 09:20: overdue, but inside the cultural delay window.
	if err := f.engine.MonitorCheckIns(ctx, day.Add(9*time.Hour+20*time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(f.store.ListFamilyNotifications()); got != 0 {
		t.Fatalf("no family notification expected before the cultural delay, got %d", got)
	}

	// 09:31: past both the rule trigger and the cultural delay.
	if err := f.engine.MonitorCheckIns(ctx, day.Add(9*time.Hour+31*time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(f.store.ListFamilyNotifications()); got != 1 {
		t.Fatalf("expected exactly one family notification, got %d", got)
	}
	if f.sms.SentCount() != 1 {
		t.Errorf("expected one SMS, got %d", f.sms.SentCount())
	}

	// Later ticks in the same episode must not refire the rule.
	for _, m := range []int{40, 55, 90} {
		if err := f.engine.MonitorCheckIns(ctx, day.Add(9*time.Hour+time.Duration(m)*time.Minute)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := len(f.store.ListFamilyNotifications()); got != 1 {
		t.Errorf("rule refired within one episode: %d notifications", got)
	}

	fn := f.store.ListFamilyNotifications()[0]
	if !fn.RequiresResponse {
		t.Error("family notification should request a response")
	}
	if fn.Content == "A scheduled check-in was missed and has not been completed yet." {
		t.Error("message to an indirect-communication group should be softened")
	}
}

// Three caregiver rules at 10/30/60 minutes, monitored every 5 minutes: each
// fires exactly once, in ascending order, with escalating severity.
func TestRuleChainFiresOncePerRuleInOrder(t *testing.T) {
	f := newFixture(t)
	sc := maoriSchedule(
		models.EscalationRule{ID: "r-60", TriggerAfterMinutes: 60, Action: models.ActionNotifyCaregiver},
		models.EscalationRule{ID: "r-10", TriggerAfterMinutes: 10, Action: models.ActionNotifyCaregiver},
		models.EscalationRule{ID: "r-30", TriggerAfterMinutes: 30, Action: models.ActionNotifyCaregiver},
	)
	sc.CulturalGroup = models.CulturalGroupWestern // 15 minute delay
	f.addSchedule(t, sc)

	day := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for minutes := 0; minutes <= 65; minutes += 5 {
		now := day.Add(9*time.Hour + time.Duration(minutes)*time.Minute)
		if err := f.engine.MonitorCheckIns(ctx, now); err != nil {
			t.Fatalf("unexpected error at +%dm: %v", minutes, err)
		}
	}

	alerts := f.store.ListCaregiverAlerts()
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Timestamp.Before(alerts[j].Timestamp) })
	wantSeverities := []models.AlertSeverity{models.SeverityNormal, models.SeverityHigh, models.SeverityCritical}
	for i, a := range alerts {
		if a.Severity != wantSeverities[i] {
			t.Errorf("alert %d: severity %s, want %s", i, a.Severity, wantSeverities[i])
		}
		if !a.ActionRequired {
			t.Errorf("alert %d should require action", i)
		}
	}

	if f.schedule(t, "sched-1").MissedCount != 1 {
		t.Errorf("missed count must grow once per episode, got %d", f.schedule(t, "sched-1").MissedCount)
	}
}

func TestWithinGracePeriodNothingHappens(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(t, maoriSchedule(models.EscalationRule{
		ID: "rule-1", TriggerAfterMinutes: 5, Action: models.ActionNotifyCaregiver,
	}))

	now := time.Date(2025, 6, 9, 9, 10, 0, 0, time.UTC) // 10 minutes late, grace is 15
	if err := f.engine.MonitorCheckIns(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc := f.schedule(t, "sched-1")
	if sc.MissedCount != 0 || sc.EpisodeOpenedAt != nil {
		t.Error("no episode should open inside the grace period")
	}
}

func TestRecordCheckInResetsEpisode(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(t, maoriSchedule(models.EscalationRule{
		ID: "rule-1", TriggerAfterMinutes: 30, Action: models.ActionNotifyCaregiver,
	}))

	day := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	if err := f.engine.MonitorCheckIns(ctx, day.Add(9*time.Hour+40*time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc := f.schedule(t, "sched-1"); sc.MissedCount != 1 || sc.EpisodeOpenedAt == nil {
		t.Fatalf("expected an open episode, got %+v", sc)
	}

	checkInAt := day.Add(9*time.Hour + 50*time.Minute)
	err := f.engine.RecordCheckIn(ctx, "sched-1", checkInAt, models.QualityGood,
		models.MoodIndicators{Content: true, Responsive: true},
		models.CulturalEngagement{LanguageUsed: true, FamilyMentioned: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sc := f.schedule(t, "sched-1")
	if sc.MissedCount != 0 {
		t.Errorf("missed count should reset, got %d", sc.MissedCount)
	}
	if sc.EpisodeOpenedAt != nil || len(sc.EpisodeFiredRules) != 0 {
		t.Error("episode state should be cleared")
	}
	if sc.LastCheckIn == nil || !sc.LastCheckIn.Equal(checkInAt) {
		t.Errorf("last check-in not recorded: %v", sc.LastCheckIn)
	}

	// Same day, later tick: the recorded check-in covers the slot.
	if err := f.engine.MonitorCheckIns(ctx, day.Add(11*time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc := f.schedule(t, "sched-1"); sc.EpisodeOpenedAt != nil || sc.MissedCount != 0 {
		t.Error("episode must not reopen after a completed check-in")
	}

	indicators, err := f.store.ListWellnessIndicators("user-1", "2025-06-09", "2025-06-09")
	if err != nil || len(indicators) != 1 {
		t.Fatalf("expected one wellness indicator, got %d (err %v)", len(indicators), err)
	}
	if !indicators[0].CheckInCompleted || indicators[0].Quality != models.QualityGood {
		t.Errorf("indicator not recorded correctly: %+v", indicators[0])
	}
}

func TestProcessEscalationsRaisesStaleAlertsOnce(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)
	if err := f.store.AddCaregiverAlert(models.CaregiverAlert{
		ID: "alert-1", UserID: "user-1", AlertType: "missed_check_in",
		Severity: models.SeverityHigh, ActionRequired: true,
		Timestamp: now.Add(-2 * time.Hour),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := f.engine.ProcessEscalations(ctx, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alerts := f.store.ListCaregiverAlerts()
	if alerts[0].Severity != models.SeverityCritical {
		t.Fatalf("stale alert should escalate to critical, got %s", alerts[0].Severity)
	}
	if len(alerts[0].AuditNotes) != 1 {
		t.Fatalf("expected one audit note, got %v", alerts[0].AuditNotes)
	}

	// Re-running must not stack audit notes on an already-critical alert.
	if err := f.engine.ProcessEscalations(ctx, now.Add(10*time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notes := f.store.ListCaregiverAlerts()[0].AuditNotes; len(notes) != 1 {
		t.Errorf("escalation must be idempotent, got notes %v", notes)
	}
}

func TestProcessEscalationsSkipsFreshAndResolvedAlerts(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)
	fresh := models.CaregiverAlert{
		ID: "alert-fresh", UserID: "user-1", Severity: models.SeverityNormal,
		ActionRequired: true, Timestamp: now.Add(-10 * time.Minute),
	}
	resolved := models.CaregiverAlert{
		ID: "alert-resolved", UserID: "user-1", Severity: models.SeverityNormal,
		ActionRequired: true, IsResolved: true, Timestamp: now.Add(-3 * time.Hour),
	}
	for _, a := range []models.CaregiverAlert{fresh, resolved} {
		if err := f.store.AddCaregiverAlert(a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := f.engine.ProcessEscalations(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, a := range f.store.ListCaregiverAlerts() {
		if a.Severity == models.SeverityCritical {
			t.Errorf("alert %s should not have been escalated", a.ID)
		}
	}
}
