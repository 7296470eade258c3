// Package templates resolves notification message templates keyed by
// (type, cultural group, language), with a fallback chain and a bounded
// TTL cache in front of the store.
package templates

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/manaaki-care/manaaki/internal/models"
)

// Source is the slice of the store the resolver needs. A nil result with a
// nil error means the key has no template.
type Source interface {
	GetNotificationTemplate(typ models.NotificationType, group models.CulturalGroup, language string) (*models.NotificationTemplate, error)
}

// Cache sizing. Entries past TTL are re-fetched; when the cache is full the
// incoming entry is simply not cached.
const (
	defaultCacheTTL = 10 * time.Minute
	defaultCacheCap = 256
)

type cacheEntry struct {
	tmpl    models.NotificationTemplate
	expires time.Time
}

// Resolver looks up templates with the fallback chain:
// exact (type, group, language) -> English in the same group ->
// English in the Western baseline group.
type Resolver struct {
	source Source
	mu     sync.Mutex
	cache  map[string]cacheEntry
	ttl    time.Duration
	cap    int
}

// NewResolver creates a Resolver over the given template source.
func NewResolver(source Source) *Resolver {
	return &Resolver{
		source: source,
		cache:  make(map[string]cacheEntry),
		ttl:    defaultCacheTTL,
		cap:    defaultCacheCap,
	}
}

func cacheKey(typ models.NotificationType, group models.CulturalGroup, lang string) string {
	return string(typ) + "|" + string(group) + "|" + lang
}

// Resolve returns the best template for the key, walking the fallback chain.
// A missing template is a configuration gap resolved by fallback, never a
// failure; an error is returned only when the store itself fails or the
// entire chain is empty.
func (r *Resolver) Resolve(typ models.NotificationType, group models.CulturalGroup, language string) (models.NotificationTemplate, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "en"
	}

	type key struct {
		group models.CulturalGroup
		lang  string
	}
	chain := []key{{group, language}}
	if language != "en" {
		chain = append(chain, key{group, "en"})
	}
	if group != models.CulturalGroupWestern {
		chain = append(chain, key{models.CulturalGroupWestern, "en"})
	}

	for _, k := range chain {
		tmpl, err := r.lookup(typ, k.group, k.lang)
		if err != nil {
			return models.NotificationTemplate{}, err
		}
		if tmpl != nil {
			return *tmpl, nil
		}
		slog.Debug("Resolver.Resolve: template missing, falling back",
			"type", typ, "group", k.group, "language", k.lang)
	}
	return models.NotificationTemplate{}, fmt.Errorf("no template found for type %q (group %q, language %q)", typ, group, language)
}

func (r *Resolver) lookup(typ models.NotificationType, group models.CulturalGroup, lang string) (*models.NotificationTemplate, error) {
	k := cacheKey(typ, group, lang)
	now := time.Now()

	r.mu.Lock()
	if e, ok := r.cache[k]; ok && now.Before(e.expires) {
		r.mu.Unlock()
		t := e.tmpl
		return &t, nil
	}
	delete(r.cache, k)
	r.mu.Unlock()

	tmpl, err := r.source.GetNotificationTemplate(typ, group, lang)
	if err != nil {
		return nil, fmt.Errorf("template lookup failed: %w", err)
	}
	if tmpl == nil {
		return nil, nil
	}

	r.mu.Lock()
	if len(r.cache) < r.cap {
		r.cache[k] = cacheEntry{tmpl: *tmpl, expires: now.Add(r.ttl)}
	}
	r.mu.Unlock()
	return tmpl, nil
}

// Personalize substitutes the {{name}}, {{greeting}} and {{familyTerm}}
// tokens. Substitution is deterministic given the profile and group.
func Personalize(text string, name, greeting, familyTerm string) string {
	replacer := strings.NewReplacer(
		"{{name}}", name,
		"{{greeting}}", greeting,
		"{{familyTerm}}", familyTerm,
	)
	return replacer.Replace(text)
}
