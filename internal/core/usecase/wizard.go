package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
	"github.com/sahajseva/seva-gateway/internal/core/ports"
)

// FormWizardUseCase drives the guided form-filling flow. The upstream
// service owns the field sequence and the session id; the gateway tracks
// which state each session is in, validates input locally before spending a
// network round trip, and rejects concurrent submissions for one session.
//
// Every failed upstream call leaves the session exactly where it was, so
// the user can retry without losing collected values.
type FormWizardUseCase struct {
	backend  ports.AssistanceBackend
	sessions *gocache.Cache
	logger   *slog.Logger
}

func NewFormWizardUseCase(backend ports.AssistanceBackend, sessionTTL time.Duration, logger *slog.Logger) *FormWizardUseCase {
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FormWizardUseCase{
		backend:  backend,
		sessions: gocache.New(sessionTTL, 2*sessionTTL),
		logger:   logger,
	}
}

var (
	errEmptyUpload     = errors.New("empty upload")
	errMissingPhoto    = errors.New("photo field requires an attachment")
	errEmptyFieldValue = errors.New("field value is empty")
)

type wizardSession struct {
	mu   sync.Mutex
	data domain.FormSession
}

// snapshotLocked returns a copy safe to hand out after the lock is
// released: the values map is cloned so a later SubmitField cannot race
// with a caller still reading the snapshot.
func (s *wizardSession) snapshotLocked() domain.FormSession {
	out := s.data
	if s.data.Values != nil {
		out.Values = make(map[string]string, len(s.data.Values))
		for name, value := range s.data.Values {
			out.Values[name] = value
		}
	}
	return out
}

// Analyze uploads a form image and opens a session in the analyzed state.
func (uc *FormWizardUseCase) Analyze(ctx context.Context, upload domain.FormUpload) (domain.FormSession, error) {
	if len(upload.Data) == 0 {
		return domain.FormSession{}, domain.WrapError(domain.ErrInvalidInput, "analyze form", errEmptyUpload)
	}

	sessionID, analysis, voiceNoteURL, err := uc.backend.AnalyzeForm(ctx, upload)
	if err != nil {
		return domain.FormSession{}, err
	}

	session := &wizardSession{data: domain.FormSession{
		ID:           sessionID,
		Language:     upload.Language.OrEnglish(),
		State:        domain.WizardAnalyzed,
		Analysis:     analysis,
		VoiceNoteURL: voiceNoteURL,
		Values:       map[string]string{},
		CreatedAt:    time.Now().UTC(),
	}}
	snapshot := session.snapshotLocked()
	uc.sessions.SetDefault(sessionID, session)
	return snapshot, nil
}

// StartFilling confirms the analysis and requests the first field prompt.
// A form with nothing to fill completes immediately.
func (uc *FormWizardUseCase) StartFilling(ctx context.Context, sessionID string) (domain.FormSession, error) {
	session, err := uc.session(sessionID)
	if err != nil {
		return domain.FormSession{}, err
	}

	if !session.mu.TryLock() {
		return domain.FormSession{}, domain.WrapError(domain.ErrRequestInFlight, "start filling", errBusySession)
	}
	defer session.mu.Unlock()

	if session.data.State != domain.WizardAnalyzed {
		return session.snapshotLocked(), uc.transitionError("start filling", session.data.State, domain.WizardAnalyzed)
	}

	result, err := uc.backend.StartFilling(ctx, sessionID)
	if err != nil {
		return session.snapshotLocked(), err
	}

	if result.Completed {
		session.data.State = domain.WizardCompleted
		session.data.Current = nil
		session.data.Result = &domain.FilledForm{Message: result.Message, VoiceURL: result.VoiceURL}
		return session.snapshotLocked(), nil
	}

	session.data.State = domain.WizardCollecting
	session.data.Current = result.Prompt
	return session.snapshotLocked(), nil
}

// SubmitField sends the current field's value upstream. Emptiness is
// checked locally first: a photo field is empty when no attachment is
// present, any other field when the trimmed value is. On the completion
// signal the filled-form summary is fetched with a single generate call.
func (uc *FormWizardUseCase) SubmitField(ctx context.Context, sessionID, value string, photo *domain.PhotoAttachment) (domain.FormSession, error) {
	session, err := uc.session(sessionID)
	if err != nil {
		return domain.FormSession{}, err
	}

	if !session.mu.TryLock() {
		return domain.FormSession{}, domain.WrapError(domain.ErrRequestInFlight, "submit field", errBusySession)
	}
	defer session.mu.Unlock()

	if session.data.State != domain.WizardCollecting {
		return session.snapshotLocked(), uc.transitionError("submit field", session.data.State, domain.WizardCollecting)
	}

	current := session.data.Current
	if current != nil && current.FieldType == domain.FieldTypePhoto {
		if photo == nil || len(photo.Data) == 0 {
			return session.snapshotLocked(), domain.WrapError(domain.ErrInvalidInput, "submit field", errMissingPhoto)
		}
		if strings.TrimSpace(value) == "" {
			value = "Photo attached: " + photo.Filename
		}
	} else if strings.TrimSpace(value) == "" {
		return session.snapshotLocked(), domain.WrapError(domain.ErrInvalidInput, "submit field", errEmptyFieldValue)
	}

	result, err := uc.backend.SubmitField(ctx, sessionID, value, photo)
	if err != nil {
		return session.snapshotLocked(), err
	}

	if current != nil {
		session.data.Values[current.FieldName] = value
	}

	if !result.Completed {
		session.data.Current = result.Prompt
		return session.snapshotLocked(), nil
	}

	filled, err := uc.backend.GenerateFilledForm(ctx, sessionID)
	if err != nil {
		// No partial advancement: the session stays collecting so the
		// user can re-submit, which re-runs the generate step.
		return session.snapshotLocked(), err
	}

	session.data.Current = nil
	session.data.State = domain.WizardCompleted
	session.data.Result = &filled
	return session.snapshotLocked(), nil
}

// Session returns a point-in-time copy of the wizard session.
func (uc *FormWizardUseCase) Session(sessionID string) (domain.FormSession, error) {
	session, err := uc.session(sessionID)
	if err != nil {
		return domain.FormSession{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.snapshotLocked(), nil
}

// Cancel discards the session locally. The upstream session simply ages
// out; no network call is made.
func (uc *FormWizardUseCase) Cancel(sessionID string) error {
	if _, found := uc.sessions.Get(sessionID); !found {
		return domain.WrapError(domain.ErrSessionNotFound, "cancel session", errUnknownSession)
	}
	uc.sessions.Delete(sessionID)
	return nil
}

// Transcribe proxies captured speech to the upstream speech-to-text
// endpoint. A failure leaves the field value untouched on the client side.
func (uc *FormWizardUseCase) Transcribe(ctx context.Context, clip domain.AudioClip) (string, error) {
	if len(clip.Data) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "transcribe", errEmptyUpload)
	}
	return uc.backend.Transcribe(ctx, clip)
}

func (uc *FormWizardUseCase) session(sessionID string) (*wizardSession, error) {
	cached, found := uc.sessions.Get(sessionID)
	if !found {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "form wizard", errUnknownSession)
	}
	return cached.(*wizardSession), nil
}

func (uc *FormWizardUseCase) transitionError(operation string, got, want domain.WizardState) error {
	return domain.WrapError(domain.ErrInvalidTransition, operation,
		fmt.Errorf("session is %s, expected %s", got, want))
}
