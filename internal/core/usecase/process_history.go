package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
	"github.com/sahajseva/seva-gateway/internal/core/ports"
)

// ProcessHistoryUseCase is the worker-side half of history recording: it
// takes events off the queue and writes them to the store, which enforces
// the ordering and cap invariants.
type ProcessHistoryUseCase struct {
	store  ports.HistoryStore
	logger *slog.Logger
}

func NewProcessHistoryUseCase(store ports.HistoryStore, logger *slog.Logger) *ProcessHistoryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessHistoryUseCase{store: store, logger: logger}
}

func (uc *ProcessHistoryUseCase) Handle(ctx context.Context, entry domain.HistoryEntry) error {
	if entry.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "process history event", errMissingEntryID)
	}
	if err := uc.store.Prepend(ctx, entry); err != nil {
		return fmt.Errorf("persist history entry %s: %w", entry.ID, err)
	}
	uc.logger.Info("history entry persisted", "entry_id", entry.ID, "type", string(entry.Type))
	return nil
}
