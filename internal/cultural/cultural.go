// Package cultural provides the fixed table of cultural notification
// configurations, lookup with a baseline fallback, respectful-hours and
// avoid-day checks, and phrasing helpers used when composing messages.
package cultural

import (
	"fmt"
	"strings"
	"time"

	"github.com/manaaki-care/manaaki/internal/models"
)

// configs is the hard-coded table of cultural configurations. Entries are
// immutable; callers receive copies via Resolve.
var configs = map[models.CulturalGroup]models.CulturalConfig{
	models.CulturalGroupMaori: {
		Group:           models.CulturalGroupMaori,
		RespectfulHours: models.RespectfulHours{Start: "08:00", End: "19:00"},
		AvoidDays:       []string{"sunday"},
		Special: models.SpecialConsiderations{
			FamilyInvolvement:     true,
			IndirectCommunication: true,
			SpiritualSensitivity:  true,
		},
		PreferredChannels:      []models.Channel{models.ChannelVoice, models.ChannelSMS},
		EscalationDelayMinutes: 30,
	},
	models.CulturalGroupChinese: {
		Group:           models.CulturalGroupChinese,
		RespectfulHours: models.RespectfulHours{Start: "09:00", End: "21:00"},
		Special: models.SpecialConsiderations{
			FamilyInvolvement:     true,
			IndirectCommunication: true,
			HierarchicalApproach:  true,
		},
		PreferredChannels:      []models.Channel{models.ChannelPush, models.ChannelSMS},
		EscalationDelayMinutes: 45,
	},
	models.CulturalGroupWestern: {
		Group:                  models.CulturalGroupWestern,
		RespectfulHours:        models.RespectfulHours{Start: "09:00", End: "20:00"},
		PreferredChannels:      []models.Channel{models.ChannelPush, models.ChannelEmail},
		EscalationDelayMinutes: 15,
	},
}

// greetings and familyTerms drive deterministic token substitution.
var greetings = map[models.CulturalGroup]string{
	models.CulturalGroupMaori:   "Kia ora",
	models.CulturalGroupChinese: "您好",
	models.CulturalGroupWestern: "Hello",
}

var familyTerms = map[models.CulturalGroup]string{
	models.CulturalGroupMaori:   "whānau",
	models.CulturalGroupChinese: "家人",
	models.CulturalGroupWestern: "family",
}

// Resolve returns the configuration for the given cultural group. Unknown or
// missing groups fall back to the Western baseline; Resolve never fails.
func Resolve(group models.CulturalGroup) models.CulturalConfig {
	if cfg, ok := configs[group]; ok {
		return cfg
	}
	return configs[models.CulturalGroupWestern]
}

// Greeting returns the culturally appropriate greeting for the group.
func Greeting(group models.CulturalGroup) string {
	if g, ok := greetings[group]; ok {
		return g
	}
	return greetings[models.CulturalGroupWestern]
}

// FamilyTerm returns the culturally appropriate word for "family".
func FamilyTerm(group models.CulturalGroup) string {
	if t, ok := familyTerms[group]; ok {
		return t
	}
	return familyTerms[models.CulturalGroupWestern]
}

// ParseClock parses an HH:mm string into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", models.ErrInvalidPreferredTime, s)
	}
	return t.Hour(), t.Minute(), nil
}

// ValidateConfig checks a cultural configuration for invariant violations:
// malformed HH:mm strings, a respectful window that does not sort start
// before end, or avoid days covering all seven weekdays. These indicate
// configuration bugs and must not be swallowed.
func ValidateConfig(cfg models.CulturalConfig) error {
	sh, sm, err := ParseClock(cfg.RespectfulHours.Start)
	if err != nil {
		return err
	}
	eh, em, err := ParseClock(cfg.RespectfulHours.End)
	if err != nil {
		return err
	}
	if sh*60+sm >= eh*60+em {
		return models.ErrInvalidWindow
	}
	avoided := map[string]bool{}
	for _, d := range cfg.AvoidDays {
		avoided[strings.ToLower(strings.TrimSpace(d))] = true
	}
	if len(avoided) >= 7 {
		return models.ErrAllDaysAvoided
	}
	return nil
}

// IsAvoidDay reports whether the weekday of t is in the config's avoid list.
// Weekday names are matched case-insensitively.
func IsAvoidDay(cfg models.CulturalConfig, t time.Time) bool {
	name := strings.ToLower(t.Weekday().String())
	for _, d := range cfg.AvoidDays {
		if strings.ToLower(strings.TrimSpace(d)) == name {
			return true
		}
	}
	return false
}

// WindowBounds returns the respectful-hours window anchored to the calendar
// day of t, in t's location. The config must have been validated.
func WindowBounds(cfg models.CulturalConfig, t time.Time) (start, end time.Time) {
	sh, sm, _ := ParseClock(cfg.RespectfulHours.Start)
	eh, em, _ := ParseClock(cfg.RespectfulHours.End)
	y, m, d := t.Date()
	start = time.Date(y, m, d, sh, sm, 0, 0, t.Location())
	end = time.Date(y, m, d, eh, em, 0, 0, t.Location())
	return start, end
}

// WithinRespectfulHours reports whether t falls inside the respectful-hours
// window on t's own day.
func WithinRespectfulHours(cfg models.CulturalConfig, t time.Time) bool {
	start, end := WindowBounds(cfg, t)
	return !t.Before(start) && !t.After(end)
}

// AppropriateToSend reports whether a send at t is culturally appropriate:
// inside respectful hours and not on an avoid day.
func AppropriateToSend(cfg models.CulturalConfig, t time.Time) bool {
	return WithinRespectfulHours(cfg, t) && !IsAvoidDay(cfg, t)
}

// ToneMessage adjusts phrasing for groups that prefer indirect communication.
// Direct groups get the message as-is; indirect groups get a softened frame.
func ToneMessage(cfg models.CulturalConfig, message string) string {
	if !cfg.Special.IndirectCommunication {
		return message
	}
	return "We wanted to gently let you know: " + message
}

// SuggestedCaregiverActions returns culturally guided next steps for a
// caregiver alert.
func SuggestedCaregiverActions(cfg models.CulturalConfig) []string {
	actions := []string{
		"Reach out with a phone call or visit",
		"Review recent check-in history",
	}
	if cfg.Special.FamilyInvolvement {
		actions = append(actions, "Involve "+FamilyTerm(cfg.Group)+" in the next contact")
	}
	if cfg.Special.SpiritualSensitivity {
		actions = append(actions, "Consider spiritual or community support networks")
	}
	if cfg.Special.HierarchicalApproach {
		actions = append(actions, "Contact the senior family member first")
	}
	return actions
}
