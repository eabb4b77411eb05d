package ports

import (
	"context"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
)

// ProfileExtraction is the inbound contract for transcript structuring.
type ProfileExtraction interface {
	Extract(ctx context.Context, transcript string, language domain.Language) (domain.ExtractionResult, error)
}

// HistoryRecorder is the inbound contract for the activity log.
type HistoryRecorder interface {
	Record(ctx context.Context, entryType domain.HistoryEntryType, title string) (domain.HistoryEntry, error)
	List(ctx context.Context) ([]domain.HistoryEntry, error)
	Clear(ctx context.Context) error
}
