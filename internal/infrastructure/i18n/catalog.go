// Package i18n serves the bilingual UI string catalog. The catalog ships
// embedded in the binary so the gateway can answer translation requests
// without touching the upstream service.
package i18n

import (
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
)

//go:embed translations.yaml
var catalogYAML []byte

type entry struct {
	En string `yaml:"en"`
	Hi string `yaml:"hi"`
}

// Catalog resolves UI string keys for a selected language.
type Catalog struct {
	entries map[string]entry
	logger  *slog.Logger
}

func NewCatalog(logger *slog.Logger) (*Catalog, error) {
	entries := make(map[string]entry)
	if err := yaml.Unmarshal(catalogYAML, &entries); err != nil {
		return nil, fmt.Errorf("i18n: parse embedded catalog: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{entries: entries, logger: logger}, nil
}

// Resolve returns the string for key in the given language. An unset
// language or a missing Hindi string falls back to English; an unknown key
// is returned unchanged so callers always have something to display.
func (c *Catalog) Resolve(key string, language domain.Language) string {
	e, ok := c.entries[key]
	if !ok {
		c.logger.Warn("missing translation", "key", key)
		return key
	}
	if language == domain.LanguageHindi && e.Hi != "" {
		return e.Hi
	}
	return e.En
}

// Catalog returns the full key-to-string table for one language, resolved
// with the same fallback rules as Resolve.
func (c *Catalog) Catalog(language domain.Language) map[string]string {
	out := make(map[string]string, len(c.entries))
	for key := range c.entries {
		out[key] = c.Resolve(key, language)
	}
	return out
}
