package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
)

const settingsFile = "settings.json"

type settings struct {
	Language string `json:"language,omitempty"`
}

// SettingsStore persists the language selection across restarts.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

func NewSettingsStore(dir string) (*SettingsStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: create data dir: %w", err)
	}
	return &SettingsStore{path: filepath.Join(dir, settingsFile)}, nil
}

func (s *SettingsStore) Selected(ctx context.Context) (domain.Language, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.LanguageUnset, nil
		}
		return domain.LanguageUnset, fmt.Errorf("localfs: read settings: %w", err)
	}

	var cfg settings
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return domain.LanguageUnset, nil
	}
	language, _ := domain.ParseLanguage(cfg.Language)
	return language, nil
}

func (s *SettingsStore) Select(ctx context.Context, language domain.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(settings{Language: string(language)})
	if err != nil {
		return fmt.Errorf("localfs: encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("localfs: write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("localfs: replace settings: %w", err)
	}
	return nil
}
