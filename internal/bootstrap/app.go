package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/analyses"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/llm"
	"compliance-backend/internal/llm/gemini"
	"compliance-backend/internal/llm/genai"
	"compliance-backend/internal/llm/openai"
	"compliance-backend/internal/obligations"
	"compliance-backend/internal/retry"
	"compliance-backend/internal/segment"
	"compliance-backend/internal/services/health"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/server"
	"compliance-backend/internal/shared/storage/db"
	"compliance-backend/internal/shared/storage/object"
	localstore "compliance-backend/internal/shared/storage/object/local"
	s3store "compliance-backend/internal/shared/storage/object/s3"
	"compliance-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Store           analyses.Store
	Archive         object.ObjectStore
	LLM             llm.Client
	AnalysesService *analyses.Service
	AnalysisHandler *analyses.Handler
	DocumentHandler *documents.Handler
	Health          *health.Service

	closers []func() error
}

// Build prepares every dependency and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	if err := app.buildStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	archive, err := buildArchive(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Archive = archive

	client, err := app.buildLLM(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.LLM = client

	policy := retry.Default()
	if cfg.LLMMaxAttempts > 0 {
		policy.MaxAttempts = cfg.LLMMaxAttempts
	}
	if cfg.LLMRetryDelay > 0 {
		policy.BaseDelay = cfg.LLMRetryDelay
	}

	app.AnalysesService = &analyses.Service{
		Store:         app.Store,
		LLM:           client,
		Extractor:     obligations.NewExtractor(client, policy),
		Segmenter:     segment.New(cfg.MaxCharsPerChunk, cfg.OverlapChars),
		Archive:       archive,
		Concurrency:   cfg.ExtractConcurrency,
		StrictHashing: cfg.StrictHashing,
	}
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService, cfg.UploadDir, cfg.MaxUploadBytes)
	app.DocumentHandler = documents.NewHandler(cfg.MaxUploadBytes)

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	app.Health = health.NewService(pinger, client)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Health:          app.Health,
		AnalysisHandler: app.AnalysisHandler,
		DocumentHandler: app.DocumentHandler,
	})

	telemetry.Info("bootstrap complete", map[string]any{
		"store":        cfg.StoreType,
		"archive":      cfg.ArchiveStore,
		"llm_provider": cfg.LLMProvider,
		"env":          cfg.Env,
	})
	return app, nil
}

// Close releases the database and LLM clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) buildStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.StoreType {
	case "memory":
		a.Store = analyses.NewMemoryRepo()
	case "file":
		repo, err := analyses.NewFileRepo(cfg.StoreFile)
		if err != nil {
			return err
		}
		a.Store = repo
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err == nil {
			if err = db.RunMigrations(ctx, sqlDB, db.DialectPostgres); err != nil {
				sqlDB.Close()
			}
		}
		if err != nil {
			if cfg.IsDevLike() {
				telemetry.Warn("bootstrap: postgres unavailable; using in-memory store", map[string]any{"error": err})
				a.Store = analyses.NewMemoryRepo()
				return nil
			}
			return fmt.Errorf("postgres store: %w", err)
		}
		a.DB = sqlDB
		a.closers = append(a.closers, sqlDB.Close)
		a.Store = analyses.NewPGRepo(sqlDB)
	default:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("sqlite store: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		if err := db.RunMigrations(ctx, sqlDB, db.DialectSQLite); err != nil {
			return fmt.Errorf("sqlite migrations: %w", err)
		}
		a.DB = sqlDB
		a.Store = analyses.NewSQLiteRepo(sqlDB)
	}
	return nil
}

func buildArchive(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ArchiveStore {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}

func (a *App) buildLLM(ctx context.Context) (llm.Client, error) {
	cfg := a.Config
	switch cfg.LLMProvider {
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.OpenAIBaseURL, cfg.LLMTimeout), nil
	case "genai":
		client, err := genai.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return client, nil
	default:
		return gemini.NewClient(gemini.Options{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.LLMTimeout,
		}), nil
	}
}
