package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sahajseva/seva-gateway/internal/config"
	"github.com/sahajseva/seva-gateway/internal/core/ports"
	"github.com/sahajseva/seva-gateway/internal/core/usecase"
	"github.com/sahajseva/seva-gateway/internal/infrastructure/backend"
	"github.com/sahajseva/seva-gateway/internal/infrastructure/extractor/heuristic"
	"github.com/sahajseva/seva-gateway/internal/infrastructure/i18n"
	"github.com/sahajseva/seva-gateway/internal/infrastructure/metadata"
	"github.com/sahajseva/seva-gateway/internal/infrastructure/queue/nats"
	"github.com/sahajseva/seva-gateway/internal/infrastructure/repository/postgres"
	"github.com/sahajseva/seva-gateway/internal/infrastructure/resilience"
	"github.com/sahajseva/seva-gateway/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.HistoryQueue

	ExtractUC  ports.ProfileExtraction
	Discovery  *usecase.DiscoveryUseCase
	Wizard     *usecase.FormWizardUseCase
	HistoryUC  ports.HistoryRecorder
	ProcessUC  *usecase.ProcessHistoryUseCase
	Languages  ports.LanguageStore
	Translator ports.Translator
	Canon      ports.Canonicalizer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	executor := resilience.NewExecutor(resilience.DefaultConfig()).WithLogger(logger)

	backendClient := backend.New(cfg.BackendURL, backend.Options{
		Timeout:            cfg.BackendTimeout,
		ResilienceExecutor: executor,
	})
	canon := metadata.New(backendClient, cfg.StatesMetaTTL)

	translator, err := i18n.NewCatalog(logger)
	if err != nil {
		return nil, fmt.Errorf("load translation catalog: %w", err)
	}

	store, closeStore, err := newHistoryStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	settings, err := localfs.NewSettingsStore(cfg.StoragePath)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("init settings store: %w", err)
	}

	// The queue is optional: history falls back to the direct store path
	// when NATS is unavailable.
	var queue ports.HistoryQueue
	natsQueue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		logger.Warn("message queue unavailable, history events persist directly", "error", err)
	} else {
		queue = natsQueue
	}

	extractUC := usecase.NewExtractProfileUseCase(backendClient, heuristic.New(), canon, logger)
	discoveryUC := usecase.NewDiscoveryUseCase(backendClient, extractUC, canon, cfg.DiscoveryTTL, logger)
	wizardUC := usecase.NewFormWizardUseCase(backendClient, cfg.SessionTTL, logger)
	historyUC := usecase.NewHistoryUseCase(store, queue, logger)
	processUC := usecase.NewProcessHistoryUseCase(store, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue: queue,

		ExtractUC:  extractUC,
		Discovery:  discoveryUC,
		Wizard:     wizardUC,
		HistoryUC:  historyUC,
		ProcessUC:  processUC,
		Languages:  settings,
		Translator: translator,
		Canon:      canon,

		closeFn: func() {
			if natsQueue != nil {
				natsQueue.Close()
			}
			closeStore()
		},
	}, nil
}

func newHistoryStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.HistoryStore, func(), error) {
	switch cfg.HistoryBackend {
	case "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewHistoryRepository(db, cfg.HistoryLimit)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil
	case "localfs":
		store, err := localfs.NewHistoryStore(cfg.StoragePath, cfg.HistoryLimit, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init history store: %w", err)
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
