package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
	"github.com/sahajseva/seva-gateway/internal/core/ports"
)

// DiscoveryUseCase runs scheme lookups against the upstream matcher and
// tracks per-session lookup state: the last profile submitted, whether a
// lookup has happened yet, and the selected language. That state drives two
// policies the upstream knows nothing about:
//
//   - language changes silently re-run the last lookup, but only after at
//     least one explicit lookup has happened;
//   - a session opened with a pre-supplied transcript or profile fires its
//     lookup automatically, at most once.
type DiscoveryUseCase struct {
	backend  ports.AssistanceBackend
	extract  ports.ProfileExtraction
	canon    ports.Canonicalizer
	sessions *gocache.Cache
	logger   *slog.Logger
}

func NewDiscoveryUseCase(
	backend ports.AssistanceBackend,
	extract ports.ProfileExtraction,
	canon ports.Canonicalizer,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *DiscoveryUseCase {
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscoveryUseCase{
		backend:  backend,
		extract:  extract,
		canon:    canon,
		sessions: gocache.New(sessionTTL, 2*sessionTTL),
		logger:   logger,
	}
}

var (
	errBusySession    = errors.New("another request for this session is still running")
	errUnknownSession = errors.New("unknown session id")
)

type discoverySession struct {
	mu sync.Mutex

	id            string
	language      domain.Language
	profile       domain.CitizenProfile
	schemes       []domain.Scheme
	hasSubmitted  bool
	autoTriggered bool
	fallback      bool
}

// StartDiscoveryInput opens a lookup session. Transcript and Profile are
// both optional; a transcript is structured first, a profile is taken as-is.
type StartDiscoveryInput struct {
	Language   domain.Language
	Transcript string
	Profile    *domain.CitizenProfile
}

// DiscoveryResult is the session snapshot returned by every operation.
// Error is set only on wire responses for a failed lookup whose session
// still holds usable state (id and profile), so the client can retry
// without re-running extraction.
type DiscoveryResult struct {
	SessionID    string                `json:"session_id"`
	Language     domain.Language       `json:"language"`
	Profile      domain.CitizenProfile `json:"profile"`
	Schemes      []domain.Scheme       `json:"schemes"`
	HasSubmitted bool                  `json:"has_submitted"`
	Fallback     bool                  `json:"fallback,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// Start opens a session. When input carries a transcript or profile the
// lookup fires automatically, once: the state value is canonicalized first
// so the matcher sees a key it understands, and when no key resolves the
// lookup proceeds with the raw value rather than blocking the user.
func (uc *DiscoveryUseCase) Start(ctx context.Context, input StartDiscoveryInput) (DiscoveryResult, error) {
	session := &discoverySession{
		id:       uuid.NewString(),
		language: input.Language.OrEnglish(),
		schemes:  []domain.Scheme{},
	}
	uc.sessions.SetDefault(session.id, session)

	if input.Transcript == "" && input.Profile == nil {
		return uc.snapshot(session), nil
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if input.Profile != nil {
		session.profile = uc.canon.Canonicalize(ctx, *input.Profile)
	} else {
		result, err := uc.extract.Extract(ctx, input.Transcript, session.language)
		if err != nil {
			return DiscoveryResult{}, err
		}
		session.profile = result.Profile
		session.fallback = result.Fallback
	}

	if session.autoTriggered {
		return uc.snapshotLocked(session), nil
	}
	session.autoTriggered = true

	if err := uc.lookupLocked(ctx, session); err != nil {
		return uc.snapshotLocked(session), err
	}
	return uc.snapshotLocked(session), nil
}

// Submit runs an explicit lookup with the given profile. Concurrent submits
// for the same session are rejected, not queued.
func (uc *DiscoveryUseCase) Submit(ctx context.Context, sessionID string, profile domain.CitizenProfile) (DiscoveryResult, error) {
	session, err := uc.session(sessionID)
	if err != nil {
		return DiscoveryResult{}, err
	}

	if !session.mu.TryLock() {
		return DiscoveryResult{}, domain.WrapError(domain.ErrRequestInFlight, "scheme lookup", errBusySession)
	}
	defer session.mu.Unlock()

	session.profile = uc.canon.Canonicalize(ctx, profile)
	if err := uc.lookupLocked(ctx, session); err != nil {
		return uc.snapshotLocked(session), err
	}
	return uc.snapshotLocked(session), nil
}

// ChangeLanguage switches the session language. If a lookup has already
// happened the last profile is silently re-queried in the new language so
// the results arrive translated; before any lookup the switch is local only.
func (uc *DiscoveryUseCase) ChangeLanguage(ctx context.Context, sessionID string, language domain.Language) (DiscoveryResult, error) {
	session, err := uc.session(sessionID)
	if err != nil {
		return DiscoveryResult{}, err
	}

	if !session.mu.TryLock() {
		return DiscoveryResult{}, domain.WrapError(domain.ErrRequestInFlight, "language change", errBusySession)
	}
	defer session.mu.Unlock()

	if session.language == language.OrEnglish() {
		return uc.snapshotLocked(session), nil
	}
	session.language = language.OrEnglish()

	if !session.hasSubmitted {
		return uc.snapshotLocked(session), nil
	}
	if err := uc.lookupLocked(ctx, session); err != nil {
		return uc.snapshotLocked(session), err
	}
	return uc.snapshotLocked(session), nil
}

func (uc *DiscoveryUseCase) lookupLocked(ctx context.Context, session *discoverySession) error {
	schemes, err := uc.backend.FindSchemes(ctx, session.profile, session.language)
	if err != nil {
		session.schemes = []domain.Scheme{}
		return err
	}
	session.schemes = schemes
	session.hasSubmitted = true
	return nil
}

func (uc *DiscoveryUseCase) session(sessionID string) (*discoverySession, error) {
	cached, found := uc.sessions.Get(sessionID)
	if !found {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "scheme lookup", errUnknownSession)
	}
	return cached.(*discoverySession), nil
}

func (uc *DiscoveryUseCase) snapshot(session *discoverySession) DiscoveryResult {
	session.mu.Lock()
	defer session.mu.Unlock()
	return uc.snapshotLocked(session)
}

func (uc *DiscoveryUseCase) snapshotLocked(session *discoverySession) DiscoveryResult {
	schemes := make([]domain.Scheme, len(session.schemes))
	copy(schemes, session.schemes)
	return DiscoveryResult{
		SessionID:    session.id,
		Language:     session.language,
		Profile:      session.profile,
		Schemes:      schemes,
		HasSubmitted: session.hasSubmitted,
		Fallback:     session.fallback,
	}
}
