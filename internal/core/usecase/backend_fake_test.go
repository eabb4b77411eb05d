package usecase

import (
	"context"
	"errors"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
)

// backendFake implements the assistance backend port with per-call hooks.
// Unset hooks fail the call so tests notice unexpected traffic.
type backendFake struct {
	extractFn   func(ctx context.Context, text string, language domain.Language) (domain.CitizenProfile, error)
	statesFn    func(ctx context.Context) ([]domain.StateInfo, error)
	findFn      func(ctx context.Context, profile domain.CitizenProfile, language domain.Language) ([]domain.Scheme, error)
	analyzeFn   func(ctx context.Context, upload domain.FormUpload) (string, domain.FormAnalysis, string, error)
	startFn     func(ctx context.Context, sessionID string) (domain.StepResult, error)
	submitFn    func(ctx context.Context, sessionID, value string, photo *domain.PhotoAttachment) (domain.StepResult, error)
	generateFn  func(ctx context.Context, sessionID string) (domain.FilledForm, error)
	transcribe  func(ctx context.Context, clip domain.AudioClip) (string, error)
}

var errUnexpectedCall = errors.New("unexpected backend call")

func (f *backendFake) ExtractProfile(ctx context.Context, text string, language domain.Language) (domain.CitizenProfile, error) {
	if f.extractFn == nil {
		return domain.CitizenProfile{}, errUnexpectedCall
	}
	return f.extractFn(ctx, text, language)
}

func (f *backendFake) States(ctx context.Context) ([]domain.StateInfo, error) {
	if f.statesFn == nil {
		return nil, errUnexpectedCall
	}
	return f.statesFn(ctx)
}

func (f *backendFake) FindSchemes(ctx context.Context, profile domain.CitizenProfile, language domain.Language) ([]domain.Scheme, error) {
	if f.findFn == nil {
		return nil, errUnexpectedCall
	}
	return f.findFn(ctx, profile, language)
}

func (f *backendFake) AnalyzeForm(ctx context.Context, upload domain.FormUpload) (string, domain.FormAnalysis, string, error) {
	if f.analyzeFn == nil {
		return "", domain.FormAnalysis{}, "", errUnexpectedCall
	}
	return f.analyzeFn(ctx, upload)
}

func (f *backendFake) StartFilling(ctx context.Context, sessionID string) (domain.StepResult, error) {
	if f.startFn == nil {
		return domain.StepResult{}, errUnexpectedCall
	}
	return f.startFn(ctx, sessionID)
}

func (f *backendFake) SubmitField(ctx context.Context, sessionID, value string, photo *domain.PhotoAttachment) (domain.StepResult, error) {
	if f.submitFn == nil {
		return domain.StepResult{}, errUnexpectedCall
	}
	return f.submitFn(ctx, sessionID, value, photo)
}

func (f *backendFake) GenerateFilledForm(ctx context.Context, sessionID string) (domain.FilledForm, error) {
	if f.generateFn == nil {
		return domain.FilledForm{}, errUnexpectedCall
	}
	return f.generateFn(ctx, sessionID)
}

func (f *backendFake) Transcribe(ctx context.Context, clip domain.AudioClip) (string, error) {
	if f.transcribe == nil {
		return "", errUnexpectedCall
	}
	return f.transcribe(ctx, clip)
}

// identityCanon satisfies the canonicalizer port without a backend.
type identityCanon struct{}

func (identityCanon) Canonicalize(_ context.Context, profile domain.CitizenProfile) domain.CitizenProfile {
	return profile
}

func (identityCanon) ResolveStateKey(_ context.Context, raw string) (string, bool, error) {
	return raw, raw != "", nil
}

func (identityCanon) States(context.Context) ([]domain.StateInfo, error) {
	return nil, nil
}
