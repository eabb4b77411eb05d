package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sahajseva/seva-gateway/internal/core/domain"
	"github.com/sahajseva/seva-gateway/internal/core/ports"
)

// ExtractProfileUseCase structures a speech transcript into a citizen
// profile. The remote extractor is authoritative; the local heuristic one
// only runs when the remote path fails.
type ExtractProfileUseCase struct {
	backend  ports.AssistanceBackend
	fallback ports.FallbackExtractor
	canon    ports.Canonicalizer
	logger   *slog.Logger
}

func NewExtractProfileUseCase(
	backend ports.AssistanceBackend,
	fallback ports.FallbackExtractor,
	canon ports.Canonicalizer,
	logger *slog.Logger,
) *ExtractProfileUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractProfileUseCase{
		backend:  backend,
		fallback: fallback,
		canon:    canon,
		logger:   logger,
	}
}

func (uc *ExtractProfileUseCase) Extract(
	ctx context.Context,
	transcript string,
	language domain.Language,
) (domain.ExtractionResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrInvalidInput, "extract profile", errEmptyTranscript)
	}

	profile, err := uc.backend.ExtractProfile(ctx, transcript, language.OrEnglish())
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return domain.ExtractionResult{}, err
		}
		uc.logger.Warn("remote extraction failed, using local heuristics", "error", err)
		profile = uc.fallback.Extract(transcript)
		return domain.ExtractionResult{
			Profile:  uc.canon.Canonicalize(ctx, profile),
			Fallback: true,
		}, nil
	}

	return domain.ExtractionResult{
		Profile: uc.canon.Canonicalize(ctx, profile),
	}, nil
}

var errEmptyTranscript = errors.New("empty transcript")
