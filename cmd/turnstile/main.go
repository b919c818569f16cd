package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	app "github.com/turnstilehq/turnstile"
	"github.com/turnstilehq/turnstile/internal/archive"
	"github.com/turnstilehq/turnstile/internal/config"
	"github.com/turnstilehq/turnstile/internal/directory"
	"github.com/turnstilehq/turnstile/internal/engine"
	"github.com/turnstilehq/turnstile/internal/events"
	"github.com/turnstilehq/turnstile/internal/server"
	"github.com/turnstilehq/turnstile/internal/store"
	"github.com/turnstilehq/turnstile/internal/sweep"
	"github.com/turnstilehq/turnstile/internal/transport"
	"github.com/turnstilehq/turnstile/pkg/log"
)

type turnstile struct {
	cfg        *config.Config
	redis      *redis.Client
	entryStore *store.RedisStore
	hub        *events.Hub
	archiver   *archive.BlobArchiver
	engine     *engine.Engine
	sweeper    *sweep.Sweeper
	apiServer  *server.Server
	httpServer *http.Server
	cancel     context.CancelFunc
	quit       chan os.Signal
}

var (
	ErrConnectRedis  = errors.New("failed to connect to redis")
	ErrLoadDirectory = errors.New("failed to load directory")
	ErrOpenArchive   = errors.New("failed to open archive bucket")
	ErrCreateEngine  = errors.New("failed to create engine")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &turnstile{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *turnstile) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if err := s.initializeStores(ctx); err != nil {
		return err
	}
	if err := s.initializeEngine(ctx); err != nil {
		return err
	}
	s.startServer(ctx)

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *turnstile) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Turnstile starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", s.cfg.Store.Addr),
		slog.Int("redis_db", s.cfg.Store.DB),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort),
		slog.String("timezone", s.cfg.Timezone))
}

func (s *turnstile) initializeStores(ctx context.Context) error {
	s.redis = redis.NewClient(&redis.Options{
		Addr:     s.cfg.Store.Addr,
		Password: s.cfg.Store.Password,
		DB:       s.cfg.Store.DB,
	})
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectRedis, err)
	}

	s.entryStore = store.NewRedisStore(s.redis, s.cfg.Store.Prefix)
	s.hub = events.NewHub()

	if s.cfg.ArchiveBucketURL != "" {
		archiver, err := archive.NewBlobArchiver(
			ctx, s.cfg.ArchiveBucketURL, s.cfg.ArchivePrefix,
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOpenArchive, err)
		}
		s.archiver = archiver
	}
	return nil
}

func (s *turnstile) initializeEngine(_ context.Context) error {
	var dir engine.Directory
	if s.cfg.DirectoryPath != "" {
		loaded, err := directory.Load(s.cfg.DirectoryPath)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLoadDirectory, err)
		}
		dir = loaded
	} else {
		dir = directory.NewStatic()
	}

	var mail engine.Transport
	if s.cfg.MailGatewayURL != "" {
		mail = transport.NewHTTPTransport(
			s.cfg.MailGatewayURL, s.cfg.MailTimeout,
		)
	} else {
		mail = transport.LogTransport{}
	}

	deps := engine.Dependencies{
		Store:     s.entryStore,
		Forms:     s.entryStore,
		Directory: dir,
		Transport: mail,
		Sink:      events.NewLogSink(s.hub),
		Dedupe: store.NewRedisDeduper(
			s.redis, s.cfg.Store.Prefix, s.cfg.DedupeTTL(),
		),
		Site: engine.SiteIdentity{
			Name:  s.cfg.SiteName,
			Email: s.cfg.SiteEmail,
		},
		Timezone: s.cfg.Location(),
	}
	if s.archiver != nil {
		deps.Archiver = s.archiver
	}

	eng, err := engine.New(deps)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateEngine, err)
	}
	s.engine = eng
	return nil
}

func (s *turnstile) startServer(ctx context.Context) {
	s.sweeper = sweep.New(nil, nil)
	go s.sweeper.Run(ctx)

	s.apiServer = server.NewServer(
		s.engine, s.entryStore, s.hub, s.sweeper,
	)
	s.apiServer.StartMetrics(ctx)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *turnstile) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.cancel()
	s.hub.Close()

	if s.archiver != nil {
		if err := s.archiver.Close(); err != nil {
			slog.Error("Archive close failed", log.Error(err))
		}
	}
	if err := s.redis.Close(); err != nil {
		slog.Error("Redis close failed", log.Error(err))
	}

	slog.Info("Server exited")
}
