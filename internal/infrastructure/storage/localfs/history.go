// Package localfs persists gateway state as JSON files under a data
// directory. It is the default backend for single-node deployments where a
// database would be overkill.
package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
)

const historyFile = "history.json"

// HistoryStore keeps the capped, most-recent-first activity log in a single
// JSON file. Writes go through a temp file and rename so a crash never
// leaves a half-written log.
type HistoryStore struct {
	mu     sync.Mutex
	path   string
	limit  int
	logger *slog.Logger
}

func NewHistoryStore(dir string, limit int, logger *slog.Logger) (*HistoryStore, error) {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: create data dir: %w", err)
	}
	return &HistoryStore{path: filepath.Join(dir, historyFile), limit: limit, logger: logger}, nil
}

func (s *HistoryStore) Prepend(ctx context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	entries = append([]domain.HistoryEntry{entry}, entries...)
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	return s.write(entries)
}

func (s *HistoryStore) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

func (s *HistoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write([]domain.HistoryEntry{})
}

// load reads the log file. A missing or malformed file yields an empty log
// rather than an error so one bad write cannot brick the history feature.
func (s *HistoryStore) load() []domain.HistoryEntry {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read history file", "path", s.path, "error", err)
		}
		return []domain.HistoryEntry{}
	}

	var entries []domain.HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("malformed history file, starting empty", "path", s.path, "error", err)
		return []domain.HistoryEntry{}
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return entries
}

func (s *HistoryStore) write(entries []domain.HistoryEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("localfs: encode history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("localfs: write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("localfs: replace history: %w", err)
	}
	return nil
}
