package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"nexchat.app/internal/analytics"
	"nexchat.app/internal/audit"
	"nexchat.app/internal/config"
	"nexchat.app/internal/content"
	"nexchat.app/internal/directory"
	"nexchat.app/internal/httpapi"
	"nexchat.app/internal/identity"
	"nexchat.app/internal/ledger"
	"nexchat.app/internal/moderation"
	"nexchat.app/internal/obs"
	"nexchat.app/internal/session"
	"nexchat.app/internal/store/pg"
	"nexchat.app/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := obs.InitLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	idp := identity.NewMemoryProvider()
	sink, contentStore, directoryStore, ledgerLog, probe, cleanup := openStores(cfg, logger)
	defer cleanup()

	recorder := audit.NewRecorder(sink)

	sessionStore, sessionCleanup := openSessionStore(cfg, logger, &probe)
	defer sessionCleanup()

	sessions := session.NewManager(sessionStore, recorder,
		session.WithTTL(cfg.SessionTTL),
		session.WithIdleTimeout(cfg.IdleTimeout))
	directorySvc := directory.NewService(directoryStore, idp, recorder)
	bootstrapSuperAdmin(cfg, directorySvc, logger)

	signer := ledger.NewSigner(cfg.LedgerSecret)
	changes := changesOf(contentStore)
	deps := httpapi.Deps{
		Sessions:   sessions,
		Directory:  directorySvc,
		Moderation: moderation.NewWorkflow(contentStore, idp, recorder),
		Ledger: ledger.NewService(contentStore, ledgerLog, signer, recorder,
			ledger.WithChangeStream(changes)),
		Analytics: analytics.NewService(contentStore),
		Recorder:  recorder,
		Content:   contentStore,
		Changes:   changes,
	}

	api := httpapi.New(probe, version, deps)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting admin api",
		zap.String("version", version),
		zap.String("addr", cfg.Addr),
		zap.String("env", cfg.Env))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("stopped")
}

// openStores wires either the Postgres-backed stores or the in-memory ones,
// depending on configuration.
func openStores(cfg *config.Config, logger *zap.Logger) (audit.Sink, content.Store, directory.Store, ledger.Log, httpapi.ReadyProbe, func()) {
	if cfg.PostgresDSN == "" {
		logger.Warn("no NEXADMIN_PG_DSN set, using in-memory stores")
		return audit.NewMemorySink(),
			content.NewMemoryStore(stream.New()),
			directory.NewMemoryStore(),
			ledger.NewMemoryLog(),
			httpapi.ReadyProbe{},
			func() {}
	}

	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("open postgres", zap.Error(err))
	}
	return store.AuditSink(),
		store.Content(),
		store.Directory(),
		store.LedgerLog(),
		httpapi.ReadyProbe{DB: store.DB()},
		func() { _ = store.Close() }
}

func openSessionStore(cfg *config.Config, logger *zap.Logger, probe *httpapi.ReadyProbe) (session.Store, func()) {
	if !cfg.UseRedisSessions() {
		return session.NewMemoryStore(), func() {}
	}
	rs, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		logger.Fatal("open redis", zap.Error(err))
	}
	probe.Ping = rs.Ping
	return rs, func() { _ = rs.Close() }
}

func bootstrapSuperAdmin(cfg *config.Config, svc *directory.Service, logger *zap.Logger) {
	if cfg.BootstrapEmail == "" || cfg.BootstrapPassword == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := svc.Create(ctx, "bootstrap", cfg.BootstrapEmail, "Bootstrap Admin", cfg.BootstrapPassword, session.RoleSuperAdmin)
	switch {
	case err == nil:
		logger.Info("bootstrap super-admin provisioned", zap.String("email", cfg.BootstrapEmail))
	case errors.Is(err, directory.ErrAlreadyExists):
		// Normal on every restart after the first.
	default:
		logger.Error("bootstrap super-admin failed", zap.Error(err))
	}
}

// changesOf returns the live feed when the content store maintains one.
func changesOf(store content.Store) *stream.Stream {
	type feeder interface{ Changes() *stream.Stream }
	if f, ok := store.(feeder); ok {
		return f.Changes()
	}
	return nil
}
