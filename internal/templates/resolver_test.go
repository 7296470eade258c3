package templates

import (
	"errors"
	"testing"

	"github.com/manaaki-care/manaaki/internal/models"
)

// fakeSource is a template source with programmable contents and a call
// counter for cache assertions.
type fakeSource struct {
	templates map[string]models.NotificationTemplate
	calls     int
	failWith  error
}

func newFakeSource() *fakeSource {
	return &fakeSource{templates: make(map[string]models.NotificationTemplate)}
}

func (f *fakeSource) add(t models.NotificationTemplate) {
	f.templates[string(t.Type)+"|"+string(t.CulturalGroup)+"|"+t.Language] = t
}

func (f *fakeSource) GetNotificationTemplate(typ models.NotificationType, group models.CulturalGroup, language string) (*models.NotificationTemplate, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	if t, ok := f.templates[string(typ)+"|"+string(group)+"|"+language]; ok {
		return &t, nil
	}
	return nil, nil
}

func TestResolveExactMatch(t *testing.T) {
	src := newFakeSource()
	src.add(models.NotificationTemplate{
		Type: models.NotificationTypeCheckInReminder, CulturalGroup: models.CulturalGroupMaori,
		Language: "mi", Title: "He whakamaumahara", Body: "{{greeting}} {{name}}",
	})
	r := NewResolver(src)

	tmpl, err := r.Resolve(models.NotificationTypeCheckInReminder, models.CulturalGroupMaori, "mi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.Title != "He whakamaumahara" {
		t.Errorf("unexpected template: %+v", tmpl)
	}
}

func TestResolveFallbackChain(t *testing.T) {
	src := newFakeSource()
	src.add(models.NotificationTemplate{
		Type: models.NotificationTypeCheckInReminder, CulturalGroup: models.CulturalGroupMaori,
		Language: "en", Title: "group english",
	})
	src.add(models.NotificationTemplate{
		Type: models.NotificationTypeCheckInReminder, CulturalGroup: models.CulturalGroupWestern,
		Language: "en", Title: "baseline",
	})
	r := NewResolver(src)

	// Missing (maori, mi) falls back to (maori, en).
	tmpl, err := r.Resolve(models.NotificationTypeCheckInReminder, models.CulturalGroupMaori, "mi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.Title != "group english" {
		t.Errorf("expected group-english fallback, got %q", tmpl.Title)
	}

	// A group with no templates at all falls through to the baseline.
	tmpl, err = r.Resolve(models.NotificationTypeCheckInReminder, models.CulturalGroupChinese, "zh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.Title != "baseline" {
		t.Errorf("expected western baseline, got %q", tmpl.Title)
	}
}

func TestResolveEmptyChainFails(t *testing.T) {
	r := NewResolver(newFakeSource())
	if _, err := r.Resolve(models.NotificationTypeFamilyUpdate, models.CulturalGroupWestern, "en"); err == nil {
		t.Error("expected error when the whole chain is empty")
	}
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	src := newFakeSource()
	src.failWith = errors.New("store down")
	r := NewResolver(src)
	if _, err := r.Resolve(models.NotificationTypeCheckInReminder, models.CulturalGroupMaori, "en"); err == nil {
		t.Error("expected store error to propagate")
	}
}

func TestResolveCachesLookups(t *testing.T) {
	src := newFakeSource()
	src.add(models.NotificationTemplate{
		Type: models.NotificationTypeCheckInReminder, CulturalGroup: models.CulturalGroupWestern,
		Language: "en", Title: "baseline",
	})
	r := NewResolver(src)

	if _, err := r.Resolve(models.NotificationTypeCheckInReminder, models.CulturalGroupWestern, "en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := src.calls
	if _, err := r.Resolve(models.NotificationTypeCheckInReminder, models.CulturalGroupWestern, "en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.calls != first {
		t.Errorf("second resolve should hit the cache: %d calls then %d", first, src.calls)
	}
}

func TestPersonalize(t *testing.T) {
	got := Personalize("{{greeting}} {{name}}, your {{familyTerm}} is thinking of you", "Mere", "Kia ora", "whānau")
	want := "Kia ora Mere, your whānau is thinking of you"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if Personalize("no tokens here", "a", "b", "c") != "no tokens here" {
		t.Error("text without tokens must pass through unchanged")
	}
}
