package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docverity/docverity/internal/config"
	"github.com/docverity/docverity/internal/core/ports"
	"github.com/docverity/docverity/internal/core/usecase"
	"github.com/docverity/docverity/internal/infrastructure/imagefetch"
	"github.com/docverity/docverity/internal/infrastructure/imaging"
	"github.com/docverity/docverity/internal/infrastructure/ocr"
	"github.com/docverity/docverity/internal/infrastructure/ocr/ninjas"
	"github.com/docverity/docverity/internal/infrastructure/ocr/tesseract"
	"github.com/docverity/docverity/internal/infrastructure/queue/nats"
	"github.com/docverity/docverity/internal/infrastructure/repository/postgres"
	"github.com/docverity/docverity/internal/infrastructure/resilience"
	"github.com/docverity/docverity/internal/infrastructure/storage/localfs"
	"github.com/docverity/docverity/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue
	Repo  ports.VerificationRepository

	IdentifyUC ports.DocumentIdentifier
	SubmitUC   ports.VerificationSubmitter
	ProcessUC  ports.VerificationProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewVerificationRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	fetcher := imagefetch.New(imagefetch.Options{
		Timeout:     time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		AccessToken: cfg.JotformAPIKey,
		Executor:    executor,
	})
	loader := imaging.NewLoader(fetcher)
	analyzer := imaging.NewAnalyzer()

	engines := []ports.OCREngine{
		tesseract.New(cfg.TesseractBinary, time.Duration(cfg.TesseractTimeoutSeconds)*time.Second),
	}
	if cfg.RemoteOCRAPIKey != "" {
		engines = append(engines, ninjas.New(ninjas.Options{
			URL:               cfg.RemoteOCRURL,
			APIKey:            cfg.RemoteOCRAPIKey,
			Timeout:           time.Duration(cfg.RemoteOCRTimeoutSeconds) * time.Second,
			RequestsPerMinute: cfg.RemoteOCRRequestsPerMin,
			Executor:          executor,
		}))
	}
	ocrChain := ocr.NewChain(logger, cfg.RemoteOCRConfidenceFloor, engines...)

	identifyUC, err := usecase.NewIdentifyDocumentUseCase(loader, analyzer, ocrChain, usecase.IdentifyConfig{
		MinTokens:               cfg.MinTokens,
		InsufficientTextCeiling: cfg.InsufficientTextCeiling,
		PRCardThreshold:         cfg.PRCardThreshold,
		DriversLicenseThreshold: cfg.DriversLicenseThreshold,
		NameMatchThreshold:      cfg.NameMatchThreshold,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init identification engine: %w", err)
	}

	submitUC := usecase.NewSubmitVerificationUseCase(repo, storage, queue)
	processUC := usecase.NewProcessVerificationUseCase(repo, storage, identifyUC)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,

		IdentifyUC: identifyUC,
		SubmitUC:   submitUC,
		ProcessUC:  processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
