package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/handlers"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/services/assistant"
	"github.com/ternarybob/medguard/internal/services/chat"
	"github.com/ternarybob/medguard/internal/services/consultation"
	"github.com/ternarybob/medguard/internal/services/extraction"
	"github.com/ternarybob/medguard/internal/services/llm"
	"github.com/ternarybob/medguard/internal/services/protocols"
	"github.com/ternarybob/medguard/internal/services/redaction"
	"github.com/ternarybob/medguard/internal/services/report"
	"github.com/ternarybob/medguard/internal/services/triage"
	"github.com/ternarybob/medguard/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager // nil when storage is disabled

	// Pipeline
	Extractor  *extraction.Extractor
	Redactor   *redaction.Redactor
	Classifier *triage.Classifier
	Resolver   *protocols.Resolver
	Builder    *consultation.Builder

	// Sessions and the assistant
	Registry        *consultation.Registry
	Sweeper         *consultation.Sweeper
	ProviderFactory *llm.ProviderFactory
	AuditLogger     llm.AuditLogger
	Gateway         *assistant.Gateway // nil when no model key is configured
	ChatService     *chat.Service
	ReportRenderer  *report.PDFRenderer

	// HTTP handlers
	APIHandler          *handlers.APIHandler
	ConsultationHandler *handlers.ConsultationHandler
	ChatHandler         *handlers.ChatHandler
	ReportHandler       *handlers.ReportHandler
	ProtocolHandler     *handlers.ProtocolHandler
	AuditHandler        *handlers.AuditHandler
	WSHandler           *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// checked before {key} references are resolved from the variables store
	if cfg.IsProduction() && (isLiteralKey(cfg.Claude.APIKey) || isLiteralKey(cfg.Gemini.APIKey)) {
		logger.Warn().Msg("API key set directly in the config file; use variables.toml or the environment in production")
	}

	if err := app.initDatabase(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.Sweeper.Start(cfg.Sessions.SweepSchedule); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to start session sweeper: %w", err)
	}

	logger.Info().
		Bool("assistant", app.Gateway != nil).
		Bool("storage", app.StorageManager != nil).
		Str("protocol_table", app.Resolver.Version()).
		Msg("Application initialization complete")

	return app, nil
}

// NewPipeline builds the intake pipeline and session services without
// storage, handlers or the sweeper. The CLI uses it for one-shot commands.
func NewPipeline(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	if err := app.initServices(); err != nil {
		return nil, err
	}
	return app, nil
}

// initDatabase opens Badger for the audit log and the variables store.
// Storage is optional: the pipeline itself keeps everything in memory.
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if errors.Is(err, storage.ErrStorageDisabled) {
		a.Logger.Info().Msg("Storage disabled, audit records will not be kept")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// Load variables from files (e.g. API keys)
	// This must happen before the provider factory resolves keys
	if err := a.StorageManager.LoadVariablesFromFiles(context.Background(), a.Config.Variables.Dir); err != nil {
		// Log warning but don't fail startup
		a.Logger.Warn().Err(err).Msg("Failed to load variables from files")
	}

	return a.resolveKeyReferences(context.Background())
}

// resolveKeyReferences replaces {key} references in the loaded config with
// values from the variables store, so medguard.toml can point at secrets
// instead of holding them.
func (a *App) resolveKeyReferences(ctx context.Context) error {
	kvMap, err := a.StorageManager.KeyValueStorage().Snapshot(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to read variables, key references left unresolved")
		return nil
	}
	if len(kvMap) == 0 {
		return nil
	}

	replaced, err := common.ReplaceInStruct(a.Config, kvMap, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to resolve key references: %w", err)
	}
	if replaced == 0 {
		return nil
	}

	a.Logger.Debug().Int("replaced", replaced).Msg("Resolved key references in config")
	return a.Config.Validate()
}

// initServices initializes the pipeline and session services in dependency order
func (a *App) initServices() error {
	table, err := protocols.LoadTable(a.Config.Protocols.File)
	if err != nil {
		return fmt.Errorf("failed to load protocol table: %w", err)
	}

	a.Extractor = extraction.NewDefaultExtractor(a.Config, a.Logger)
	a.Redactor = redaction.NewRedactorFromConfig(&a.Config.Redaction, a.Logger)
	a.Classifier = triage.NewClassifier(&a.Config.Triage)
	a.Resolver = protocols.NewResolver(table, a.Logger)
	a.Builder = consultation.NewBuilder(a.Extractor, a.Redactor, a.Classifier, a.Resolver, a.Logger)

	a.Registry = consultation.NewRegistry(&a.Config.Sessions, a.Logger)
	a.Sweeper = consultation.NewSweeper(a.Registry, a.Logger)

	var kvStorage interfaces.KeyValueStorage
	a.AuditLogger = llm.NullAuditLogger{}
	if a.StorageManager != nil {
		kvStorage = a.StorageManager.KeyValueStorage()
		if a.Config.Assistant.Audit {
			a.AuditLogger = llm.NewStorageAuditLogger(a.StorageManager.AuditStorage(), a.Logger)
			if a.Config.Assistant.AuditMaxAge != "" {
				a.Sweeper.SetAuditRetention(a.StorageManager.AuditStorage(), common.ParseDurationOr(a.Config.Assistant.AuditMaxAge, 30*24*time.Hour))
			}
		}
	}

	a.ProviderFactory = llm.NewProviderFactory(&a.Config.Gemini, &a.Config.Claude, &a.Config.LLM, kvStorage, a.Logger)
	a.initGateway()

	// a nil *Gateway must stay a nil interface so the chat service reports it unavailable
	var asker chat.Asker
	if a.Gateway != nil {
		asker = a.Gateway
	}
	a.ChatService = chat.NewService(a.Registry, a.Builder, asker, a.Redactor, &a.Config.Redaction, a.Logger)
	a.ReportRenderer = report.NewPDFRenderer(a.Logger)

	return nil
}

// initGateway connects the assistant. A missing key is not fatal: documents
// are still processed and questions fail with a clear error.
func (a *App) initGateway() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	streamer, model, err := a.ProviderFactory.ForAssistant(ctx, &a.Config.Assistant)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Assistant unavailable, question answering disabled")
		return
	}

	a.Gateway = assistant.NewGateway(streamer, a.Redactor, a.AuditLogger, model, &a.Config.Assistant, &a.Config.Redaction, a.Logger)
	a.Logger.Info().
		Str("provider", a.Gateway.Provider()).
		Str("model", a.Gateway.Model()).
		Msg("Assistant gateway ready")
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.ChatService, a.Config, a.Resolver.Version(), a.Logger)
	a.ConsultationHandler = handlers.NewConsultationHandler(a.ChatService, a.Config.Server.MaxUploadSize, a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.ChatService, a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.ChatService, a.ReportRenderer, &a.Config.Report, a.Logger)
	a.ProtocolHandler = handlers.NewProtocolHandler(a.Resolver)
	a.AuditHandler = handlers.NewAuditHandler(a.AuditLogger, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.ChatService, a.Logger)
}

// Close closes all application resources
func (a *App) Close() error {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}

	if a.WSHandler != nil {
		a.WSHandler.Close()
	}

	if a.ProviderFactory != nil {
		if err := a.ProviderFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}

// isLiteralKey reports a non-empty key that is not a {key} reference
func isLiteralKey(value string) bool {
	return value != "" && !(strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}"))
}
