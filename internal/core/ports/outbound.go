package ports

import (
	"context"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
)

// AssistanceBackend is the upstream Sahaj Seva service that owns the heavy
// operations: AI extraction, scheme matching, form OCR and speech-to-text.
type AssistanceBackend interface {
	ExtractProfile(ctx context.Context, text string, language domain.Language) (domain.CitizenProfile, error)
	States(ctx context.Context) ([]domain.StateInfo, error)
	FindSchemes(ctx context.Context, profile domain.CitizenProfile, language domain.Language) ([]domain.Scheme, error)
	AnalyzeForm(ctx context.Context, upload domain.FormUpload) (sessionID string, analysis domain.FormAnalysis, voiceNoteURL string, err error)
	StartFilling(ctx context.Context, sessionID string) (domain.StepResult, error)
	SubmitField(ctx context.Context, sessionID, value string, photo *domain.PhotoAttachment) (domain.StepResult, error)
	GenerateFilledForm(ctx context.Context, sessionID string) (domain.FilledForm, error)
	Transcribe(ctx context.Context, clip domain.AudioClip) (string, error)
}

// FallbackExtractor parses a transcript locally when the remote extraction
// path is unavailable.
type FallbackExtractor interface {
	Extract(transcript string) domain.CitizenProfile
}

// Canonicalizer rewrites display-name profile values to canonical keys.
// ResolveStateKey returns ok=false when no key matches; err is non-nil only
// when the canonical table itself could not be loaded.
type Canonicalizer interface {
	Canonicalize(ctx context.Context, profile domain.CitizenProfile) domain.CitizenProfile
	ResolveStateKey(ctx context.Context, raw string) (key string, ok bool, err error)
	States(ctx context.Context) ([]domain.StateInfo, error)
}

// HistoryStore persists the capped, most-recent-first activity log.
type HistoryStore interface {
	Prepend(ctx context.Context, entry domain.HistoryEntry) error
	List(ctx context.Context) ([]domain.HistoryEntry, error)
	Clear(ctx context.Context) error
}

// HistoryQueue decouples recording from persistence; the worker consumes.
type HistoryQueue interface {
	PublishHistoryEvent(ctx context.Context, entry domain.HistoryEntry) error
	SubscribeHistoryEvents(ctx context.Context, handler func(context.Context, domain.HistoryEntry) error) error
}

// LanguageStore persists the process-wide language selection across restarts.
type LanguageStore interface {
	Selected(ctx context.Context) (domain.Language, error)
	Select(ctx context.Context, language domain.Language) error
}

// Translator resolves catalog keys for the active language, falling back to
// English and finally to the raw key.
type Translator interface {
	Resolve(key string, language domain.Language) string
	Catalog(language domain.Language) map[string]string
}
