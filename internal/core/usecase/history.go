package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
	"github.com/sahajseva/seva-gateway/internal/core/ports"
)

// HistoryUseCase records completed scheme lookups and form sessions.
// Recording publishes to the queue and lets the worker persist, so a slow
// store never blocks the user-facing request path. Reads and clears go to
// the store directly.
type HistoryUseCase struct {
	store  ports.HistoryStore
	queue  ports.HistoryQueue
	logger *slog.Logger
	now    func() time.Time
}

func NewHistoryUseCase(store ports.HistoryStore, queue ports.HistoryQueue, logger *slog.Logger) *HistoryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryUseCase{
		store:  store,
		queue:  queue,
		logger: logger,
		now:    time.Now,
	}
}

func (uc *HistoryUseCase) Record(ctx context.Context, entryType domain.HistoryEntryType, title string) (domain.HistoryEntry, error) {
	if entryType != domain.HistoryScheme && entryType != domain.HistoryForm {
		return domain.HistoryEntry{}, domain.WrapError(domain.ErrInvalidInput, "record history", errUnknownEntryType)
	}
	if strings.TrimSpace(title) == "" {
		return domain.HistoryEntry{}, domain.WrapError(domain.ErrInvalidInput, "record history", errEmptyTitle)
	}

	entry := domain.HistoryEntry{
		ID:              uuid.NewString(),
		Type:            entryType,
		Title:           title,
		TimestampMillis: uc.now().UnixMilli(),
	}

	if uc.queue != nil {
		err := uc.queue.PublishHistoryEvent(ctx, entry)
		if err == nil {
			return entry, nil
		}
		uc.logger.Warn("history queue unavailable, writing store directly", "error", err)
	}

	if err := uc.store.Prepend(ctx, entry); err != nil {
		return domain.HistoryEntry{}, err
	}
	return entry, nil
}

func (uc *HistoryUseCase) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	return uc.store.List(ctx)
}

func (uc *HistoryUseCase) Clear(ctx context.Context) error {
	return uc.store.Clear(ctx)
}

var (
	errUnknownEntryType = errors.New("unknown entry type")
	errEmptyTitle       = errors.New("empty title")
	errMissingEntryID   = errors.New("missing entry id")
)
