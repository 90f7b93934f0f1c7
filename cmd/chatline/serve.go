package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/chatline/chatline/internal/advisor"
	"github.com/chatline/chatline/internal/agent"
	"github.com/chatline/chatline/internal/attention"
	"github.com/chatline/chatline/internal/config"
	"github.com/chatline/chatline/internal/conversation"
	"github.com/chatline/chatline/internal/db"
	dbsqlc "github.com/chatline/chatline/internal/db/sqlc"
	"github.com/chatline/chatline/internal/delivery"
	"github.com/chatline/chatline/internal/dispatch"
	"github.com/chatline/chatline/internal/gateway"
	"github.com/chatline/chatline/internal/handlers"
	gatewaychecker "github.com/chatline/chatline/internal/healthcheck/checkers/gateway"
	postgreschecker "github.com/chatline/chatline/internal/healthcheck/checkers/postgres"
	"github.com/chatline/chatline/internal/inbound"
	"github.com/chatline/chatline/internal/logger"
	"github.com/chatline/chatline/internal/media"
	"github.com/chatline/chatline/internal/message"
	"github.com/chatline/chatline/internal/server"
	"github.com/chatline/chatline/internal/speech"
	"github.com/chatline/chatline/internal/storage"
	"github.com/chatline/chatline/internal/storage/providers/localfs"
)

func runServe() error {
	app := fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideDBQueries,
			provideStorage,
			media.NewUploader,
			provideGatewayClient,
			provideSpeech,
			provideConverter,
			provideMediaResolver,
			provideAdvisorDirectory,
			provideConversationStore,
			provideMessageService,
			provideTracker,
			provideAttention,
			provideDispatcher,
			provideAgent,
			provideProcessor,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideWebhookHandler),
			provideServerHandler(provideDashboardHandler),
			provideServerHandler(provideStatusHandler),
			provideServerHandler(provideConversationHandler),
			provideServerHandler(handlers.NewMediaHandler),
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	return loadConfig()
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideDBQueries(conn *pgxpool.Pool) *dbsqlc.Queries { return dbsqlc.New(conn) }

func provideStorage(cfg config.Config) (storage.Provider, error) {
	return localfs.New(cfg.Storage.Root, cfg.Storage.PublicBaseURL)
}

func provideGatewayClient(log *slog.Logger, cfg config.Config) *gateway.Client {
	return gateway.NewClient(log, cfg.Gateway, cfg.StatusCallback())
}

func provideSpeech(log *slog.Logger, cfg config.Config) *speech.OpenAI {
	return speech.NewOpenAI(log, cfg.Speech)
}

func provideConverter(cfg config.Config) *speech.Converter {
	return speech.NewConverter(cfg.Speech.FFmpegPath)
}

func speechConfigured(cfg config.Config) bool {
	return strings.TrimSpace(cfg.Speech.OpenAIAPIKey) != ""
}

func provideMediaResolver(log *slog.Logger, cfg config.Config, uploader *media.Uploader, sp *speech.OpenAI, gw *gateway.Client) *media.Resolver {
	fetcher := media.NewFetcher(log, &http.Client{Timeout: cfg.Gateway.Timeout}, media.FetcherConfig{
		AllowedPrefix: cfg.Gateway.MediaHost,
		Attempts:      cfg.Media.FetchAttempts,
		Delay:         cfg.Media.FetchDelay,
		MaxBytes:      cfg.Media.MaxBytes,
	})
	var transcriber media.Transcriber
	if speechConfigured(cfg) {
		transcriber = sp
	} else {
		log.Warn("speech api key not configured, voice notes are stored without transcription")
	}
	return media.NewResolver(log, fetcher, uploader, transcriber, gw.MediaHeaders)
}

func provideAdvisorDirectory(log *slog.Logger, cfg config.Config, queries *dbsqlc.Queries) *advisor.Directory {
	return advisor.NewDirectory(log, queries, cfg.AdvisorCache.Size, cfg.AdvisorCache.TTL)
}

func provideConversationStore(log *slog.Logger, cfg config.Config, queries *dbsqlc.Queries) *conversation.DBService {
	return conversation.NewService(log, queries, cfg.Conversation.ReopenAfter)
}

func provideMessageService(log *slog.Logger, queries *dbsqlc.Queries) *message.DBService {
	return message.NewService(log, queries)
}

func provideTracker(log *slog.Logger, messages *message.DBService) *delivery.Tracker {
	return delivery.NewTracker(log, messages)
}

func provideAttention(log *slog.Logger, store *conversation.DBService) *attention.Machine {
	return attention.NewMachine(log, store)
}

func provideDispatcher(log *slog.Logger, cfg config.Config, store *conversation.DBService, gw *gateway.Client, sp *speech.OpenAI, uploader *media.Uploader) *dispatch.Dispatcher {
	var synthesizer dispatch.Synthesizer
	if speechConfigured(cfg) {
		synthesizer = sp
	}
	return dispatch.NewDispatcher(log, store, gw, synthesizer, uploader,
		dispatch.NewRandomPacer(cfg.Dispatch.MinDelay, cfg.Dispatch.MaxDelay),
		dispatch.Options{
			LongReplyLimit: cfg.Dispatch.LongReplyLimit,
			SpeechLimit:    cfg.Dispatch.SpeechLimit,
		})
}

func provideAgent(log *slog.Logger, cfg config.Config) (agent.Generator, error) {
	return agent.New(log, cfg.Agent)
}

type processorParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Logger     *slog.Logger
	Config     config.Config
	Advisors   *advisor.Directory
	Media      *media.Resolver
	Store      *conversation.DBService
	Attention  *attention.Machine
	Agent      agent.Generator
	Dispatcher *dispatch.Dispatcher
}

func provideProcessor(params processorParams) *inbound.Processor {
	p := inbound.NewProcessor(params.Logger, inbound.Deps{
		Advisors:   params.Advisors,
		Media:      params.Media,
		Store:      params.Store,
		Attention:  params.Attention,
		Agent:      params.Agent,
		Dispatcher: params.Dispatcher,
	}, params.Config.Gateway.OwnNumbers)
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.Shutdown(ctx)
		},
	})
	return p
}

func providePingHandler(log *slog.Logger, cfg config.Config, conn *pgxpool.Pool) *handlers.PingHandler {
	return handlers.NewPingHandler(log,
		postgreschecker.NewChecker(log, conn),
		gatewaychecker.NewChecker(cfg.Gateway, cfg.StatusCallback()),
	)
}

func provideWebhookHandler(log *slog.Logger, cfg config.Config, processor *inbound.Processor, tracker *delivery.Tracker) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, processor, tracker, handlers.WebhookOptions{
		ValidateSignature: cfg.Gateway.ValidateSignature,
		AuthToken:         cfg.Gateway.AuthToken,
		PublicBaseURL:     cfg.Server.PublicBaseURL,
	})
}

func provideDashboardHandler(log *slog.Logger, cfg config.Config, store *conversation.DBService, gw *gateway.Client, objects storage.Provider, uploader *media.Uploader, converter *speech.Converter) *handlers.DashboardHandler {
	return handlers.NewDashboardHandler(log, store, gw, objects, uploader, converter, cfg.Gateway.TemplateFetchWait)
}

func provideStatusHandler(log *slog.Logger, tracker *delivery.Tracker) *handlers.StatusHandler {
	return handlers.NewStatusHandler(log, tracker)
}

func provideConversationHandler(log *slog.Logger, store *conversation.DBService) *handlers.ConversationHandler {
	return handlers.NewConversationHandler(log, store)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config, params.ServerHandlers)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	logger.Info("starting "+appName,
		slog.String("version", version),
		slog.String("route_prefix", cfg.Server.RoutePrefix),
		slog.String("agent_provider", cfg.Agent.Provider))
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
