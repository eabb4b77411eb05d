// Package metadata resolves display-name profile values to the canonical
// keys the upstream matcher expects. Gender and occupation tables are fixed;
// the state table comes from upstream meta and is cached.
package metadata

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
)

const statesCacheKey = "meta:states"

// StateSource serves the canonical state table, normally the upstream meta
// endpoint.
type StateSource interface {
	States(ctx context.Context) ([]domain.StateInfo, error)
}

var genderAliases = map[string]string{
	"male":   "male",
	"m":      "male",
	"man":    "male",
	"पुरुष":  "male",
	"female": "female",
	"f":      "female",
	"woman":  "female",
	"महिला":  "female",
	"other":  "other",
	"अन्य":   "other",
}

var occupationAliases = map[string]string{
	"farmer":      "farmer",
	"किसान":       "farmer",
	"student":     "student",
	"छात्र":       "student",
	"विद्यार्थी":  "student",
	"labour":      "labour",
	"labor":       "labour",
	"worker":      "labour",
	"मजदूर":       "labour",
	"teacher":     "teacher",
	"शिक्षक":      "teacher",
	"business":    "business",
	"businessman": "business",
	"व्यापार":     "business",
	"दुकानदार":    "business",
	"engineer":    "engineer",
	"इंजीनियर":    "engineer",
	"doctor":      "doctor",
	"डॉक्टर":      "doctor",
	"other":       "other",
	"अन्य":        "other",
}

// User-entered state spellings that differ from the canonical key.
var stateAliases = map[string]string{
	"orissa":        "odisha",
	"uttaranchal":   "uttarakhand",
	"pondicherry":   "puducherry",
	"nct of delhi":  "delhi",
	"उत्तरप्रदेश":   "uttar pradesh",
	"मध्यप्रदेश":    "madhya pradesh",
	"आंध्रप्रदेश":   "andhra pradesh",
	"पश्चिमबंगाल":   "west bengal",
	"तमिल नाडु":     "tamil nadu",
	"जम्मू कश्मीर":  "jammu and kashmir",
}

type Canonicalizer struct {
	backend StateSource
	cache   *gocache.Cache
	ttl     time.Duration
}

func New(backend StateSource, ttl time.Duration) *Canonicalizer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Canonicalizer{
		backend: backend,
		cache:   gocache.New(ttl, 2*ttl),
		ttl:     ttl,
	}
}

// Canonicalize rewrites any display-name value to its canonical key and
// retains values it cannot resolve. Applying it twice is a no-op.
func (c *Canonicalizer) Canonicalize(ctx context.Context, profile domain.CitizenProfile) domain.CitizenProfile {
	out := profile
	out.Gender = lookupAlias(genderAliases, profile.Gender)
	out.Occupation = lookupAlias(occupationAliases, profile.Occupation)

	if key, ok, err := c.ResolveStateKey(ctx, profile.State); err == nil && ok {
		out.State = key
	}
	return out
}

// ResolveStateKey maps a raw state value to a canonical key. ok is false
// when no table entry matches; err is non-nil only when the state table
// could not be fetched.
func (c *Canonicalizer) ResolveStateKey(ctx context.Context, raw string) (string, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false, nil
	}
	lowered := strings.ToLower(trimmed)

	if key, ok := stateAliases[trimmed]; ok {
		return key, true, nil
	}
	if key, ok := stateAliases[lowered]; ok {
		return key, true, nil
	}

	states, err := c.States(ctx)
	if err != nil {
		return "", false, err
	}

	compact := strings.ReplaceAll(lowered, " ", "")
	for _, state := range states {
		if lowered == state.Key {
			return state.Key, true, nil
		}
		if strings.EqualFold(trimmed, state.En) {
			return state.Key, true, nil
		}
		if trimmed == state.Hi {
			return state.Key, true, nil
		}
		if compact == strings.ReplaceAll(strings.ToLower(state.En), " ", "") {
			return state.Key, true, nil
		}
		if strings.ReplaceAll(trimmed, " ", "") == strings.ReplaceAll(state.Hi, " ", "") {
			return state.Key, true, nil
		}
	}
	return "", false, nil
}

// States returns the upstream state table, cached for the configured TTL.
func (c *Canonicalizer) States(ctx context.Context) ([]domain.StateInfo, error) {
	if cached, found := c.cache.Get(statesCacheKey); found {
		return cached.([]domain.StateInfo), nil
	}

	states, err := c.backend.States(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(statesCacheKey, states, c.ttl)
	return states, nil
}

func lookupAlias(aliases map[string]string, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	if key, ok := aliases[trimmed]; ok {
		return key
	}
	if key, ok := aliases[strings.ToLower(trimmed)]; ok {
		return key
	}
	return raw
}
