package store

import (
	"strings"
	"sync"
	"time"

	"github.com/manaaki-care/manaaki/internal/models"
)

// InMemoryStore is a mutex-guarded map store used by tests and local runs.
type InMemoryStore struct {
	mu            sync.RWMutex
	schedules     map[string]models.CheckInSchedule
	notifications map[string]models.ScheduledNotification
	alerts        map[string]models.CaregiverAlert
	family        []models.FamilyNotification
	indicators    map[string]models.WellnessIndicator // keyed userID|date
	concerns      []models.WellnessConcern
	reports       map[string]models.WellnessReport // keyed userID|weekStart
	logs          []models.NotificationDeliveryLog
	templates     map[string]models.NotificationTemplate // keyed type|group|lang
	users         map[string]models.UserProfile
	contacts      map[string][]models.FamilyContact // keyed userID
	tasks         []models.DeferredTask
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		schedules:     make(map[string]models.CheckInSchedule),
		notifications: make(map[string]models.ScheduledNotification),
		alerts:        make(map[string]models.CaregiverAlert),
		indicators:    make(map[string]models.WellnessIndicator),
		reports:       make(map[string]models.WellnessReport),
		templates:     make(map[string]models.NotificationTemplate),
		users:         make(map[string]models.UserProfile),
		contacts:      make(map[string][]models.FamilyContact),
	}
}

func (s *InMemoryStore) AddCheckInSchedule(sc models.CheckInSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sc.ID] = sc
	return nil
}

func (s *InMemoryStore) GetCheckInSchedule(id string) (*models.CheckInSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.schedules[id]; ok {
		return &sc, nil
	}
	return nil, nil
}

func (s *InMemoryStore) ListActiveCheckInSchedules() ([]models.CheckInSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CheckInSchedule
	for _, sc := range s.schedules {
		if sc.IsActive {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpdateCheckInSchedule(sc models.CheckInSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sc.ID] = sc
	return nil
}

func (s *InMemoryStore) AddScheduledNotification(n models.ScheduledNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = n
	return nil
}

func (s *InMemoryStore) UpdateScheduledNotification(n models.ScheduledNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = n
	return nil
}

func (s *InMemoryStore) ListDueScheduledNotifications(now time.Time) ([]models.ScheduledNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ScheduledNotification
	for _, n := range s.notifications {
		if n.IsActive && !n.ScheduledFor.After(now) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *InMemoryStore) HasActiveNotificationAt(scheduleID string, occurrence time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notifications {
		if n.IsActive && n.ScheduleID == scheduleID && n.ScheduledFor.Equal(occurrence) {
			return true, nil
		}
	}
	return false, nil
}

// GetScheduledNotification looks a notification up by ID (test helper).
func (s *InMemoryStore) GetScheduledNotification(id string) (*models.ScheduledNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.notifications[id]; ok {
		return &n, nil
	}
	return nil, nil
}

// ListScheduledNotifications returns every stored notification (test helper).
func (s *InMemoryStore) ListScheduledNotifications() []models.ScheduledNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ScheduledNotification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, n)
	}
	return out
}

func (s *InMemoryStore) AddCaregiverAlert(a models.CaregiverAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = a
	return nil
}

func (s *InMemoryStore) UpdateCaregiverAlert(a models.CaregiverAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = a
	return nil
}

func (s *InMemoryStore) ListUnresolvedActionAlerts(olderThan time.Time) ([]models.CaregiverAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CaregiverAlert
	for _, a := range s.alerts {
		if !a.IsResolved && a.ActionRequired && a.Timestamp.Before(olderThan) {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListCaregiverAlerts returns every stored alert (test helper).
func (s *InMemoryStore) ListCaregiverAlerts() []models.CaregiverAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CaregiverAlert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, a)
	}
	return out
}

func (s *InMemoryStore) AddFamilyNotification(n models.FamilyNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.family = append(s.family, n)
	return nil
}

// ListFamilyNotifications returns every stored family notification (test helper).
func (s *InMemoryStore) ListFamilyNotifications() []models.FamilyNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.FamilyNotification(nil), s.family...)
}

func (s *InMemoryStore) UpsertWellnessIndicator(w models.WellnessIndicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indicators[w.UserID+"|"+w.Date] = w
	return nil
}

func (s *InMemoryStore) ListWellnessIndicators(userID string, from, to string) ([]models.WellnessIndicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.WellnessIndicator
	for _, w := range s.indicators {
		if w.UserID == userID && w.Date >= from && w.Date <= to {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AddWellnessConcern(c models.WellnessConcern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concerns = append(s.concerns, c)
	return nil
}

// ListWellnessConcerns returns every stored concern (test helper).
func (s *InMemoryStore) ListWellnessConcerns() []models.WellnessConcern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.WellnessConcern(nil), s.concerns...)
}

func (s *InMemoryStore) AddWellnessReport(r models.WellnessReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.UserID+"|"+r.WeekStart] = r
	return nil
}

func (s *InMemoryStore) HasWellnessReport(userID, weekStart string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.reports[userID+"|"+weekStart]
	return ok, nil
}

// GetWellnessReport looks a report up (test helper).
func (s *InMemoryStore) GetWellnessReport(userID, weekStart string) (*models.WellnessReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.reports[userID+"|"+weekStart]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *InMemoryStore) AddDeliveryLog(l models.NotificationDeliveryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
	return nil
}

// ListDeliveryLogs returns the audit trail (test helper).
func (s *InMemoryStore) ListDeliveryLogs() []models.NotificationDeliveryLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.NotificationDeliveryLog(nil), s.logs...)
}

func templateKey(typ models.NotificationType, group models.CulturalGroup, language string) string {
	return string(typ) + "|" + string(group) + "|" + strings.ToLower(language)
}

func (s *InMemoryStore) AddNotificationTemplate(t models.NotificationTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[templateKey(t.Type, t.CulturalGroup, t.Language)] = t
	return nil
}

func (s *InMemoryStore) GetNotificationTemplate(typ models.NotificationType, group models.CulturalGroup, language string) (*models.NotificationTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.templates[templateKey(typ, group, language)]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *InMemoryStore) AddUserProfile(p models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[p.ID] = p
	return nil
}

func (s *InMemoryStore) GetUserProfile(id string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.users[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *InMemoryStore) ListUserProfiles() ([]models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.UserProfile
	for _, p := range s.users {
		out = append(out, p)
	}
	return out, nil
}

func (s *InMemoryStore) AddFamilyContact(c models.FamilyContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.UserID] = append(s.contacts[c.UserID], c)
	return nil
}

func (s *InMemoryStore) ListFamilyContacts(userID string) ([]models.FamilyContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.FamilyContact(nil), s.contacts[userID]...), nil
}

func (s *InMemoryStore) EnqueueDeferredTask(t models.DeferredTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
	return nil
}

func (s *InMemoryStore) ListDeferredTasks() ([]models.DeferredTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.DeferredTask(nil), s.tasks...), nil
}

func (s *InMemoryStore) DeleteDeferredTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
