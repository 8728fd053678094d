package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/config"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/punch"
	appHTTP "github.com/cmlabs-hris/presence-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/errbus"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/oauth"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/timeclock"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/postgresql"
	serviceAuth "github.com/cmlabs-hris/presence-backend-go/internal/service/auth"
	servicePresence "github.com/cmlabs-hris/presence-backend-go/internal/service/presence"
	servicePunch "github.com/cmlabs-hris/presence-backend-go/internal/service/punch"
	serviceVisitor "github.com/cmlabs-hris/presence-backend-go/internal/service/visitor"
	"github.com/nats-io/nats.go"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db); err != nil {
			return err
		}
	}

	userRepo := postgresql.NewUserRepository(db)
	presenceRepo := postgresql.NewPresenceRepository(db)
	punchRepo := postgresql.NewPunchRepository(db, cfg.TimeClock.PageSize)
	directoryRepo := postgresql.NewDirectoryRepository(db)
	visitorRepo := postgresql.NewVisitorRepository(db)

	var feed punch.Feed = punchRepo
	if cfg.Presence.PunchSource == config.PunchSourceTimeClock {
		feed = timeclock.NewClient(timeclock.Config{
			BaseURL:  cfg.TimeClock.BaseURL,
			APIKey:   cfg.TimeClock.APIKey,
			PageSize: cfg.TimeClock.PageSize,
			Timeout:  cfg.TimeClock.Timeout,
		})
	}
	slog.Info("Punch feed selected", "source", cfg.Presence.PunchSource)

	var forwarders []errbus.Forwarder
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("presence-backend"))
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}
		defer nc.Drain()
		forwarders = append(forwarders, errbus.NewNATSForwarder(nc, cfg.NATS.Subject))
		slog.Info("Forwarding write errors to NATS", "subject", cfg.NATS.Subject)
	}

	hub := sse.NewHub()
	bus := errbus.New(hub, forwarders...)

	appMetrics := metrics.New()
	appMetrics.RegisterGauge("stream_subscribers", "Open hub subscriptions across all streams.", func() float64 {
		return float64(hub.TotalSubscribers())
	})

	listener := database.NewListener(db, hub, database.ChannelPresenceChanged, database.ChannelVisitorsChanged)
	listenCtx, stopListening := context.WithCancel(ctx)
	defer func() {
		stopListening()
		listener.Wait()
	}()
	if err := listener.Start(listenCtx); err != nil {
		return fmt.Errorf("failed to start change listener: %w", err)
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	var googleService oauth.GoogleService
	if cfg.GoogleEnabled() {
		googleService = oauth.NewGoogleService(cfg.OAuth2Google.ClientID, cfg.OAuth2Google.ClientSecret, cfg.OAuth2Google.RedirectURL, cfg.OAuth2Google.Scopes)
	}

	reconciler := servicePresence.NewReconciler(feed, presenceRepo, directoryRepo, servicePresence.ReconcilerConfig{
		Location:           cfg.Presence.Location,
		DirectoryChunkSize: cfg.Presence.DirectoryChunkSize,
		Observer:           appMetrics,
	})
	liveView := servicePresence.NewLiveView(presenceRepo, visitorRepo, listener, bus, servicePresence.LiveViewConfig{
		Location: cfg.Presence.Location,
		Observer: appMetrics,
	})
	authService := serviceAuth.NewAuthService(userRepo, JWTService)
	visitorService := serviceVisitor.NewVisitorService(visitorRepo, cfg.Presence.Location)
	punchService := servicePunch.NewPunchService(punchRepo)

	scheduler := cron.NewScheduler()
	cron.NewPresenceJobs(reconciler, cfg.Presence.Cadence, cfg.Presence.PassTimeout).RegisterJobs(scheduler)

	router := appHTTP.NewRouter(cfg.App, cfg.Terminal.APIKey, JWTService, appHTTP.Handlers{
		Auth:     appHTTP.NewAuthHandler(authService, googleService, cfg.App.FrontendURL, cfg.App.Env == "production"),
		Presence: appHTTP.NewPresenceHandler(liveView),
		Visitor:  appHTTP.NewVisitorHandler(visitorService, liveView),
		Stream:   appHTTP.NewStreamHandler(authService, JWTService, liveView, bus),
		Punch:    appHTTP.NewPunchHandler(punchService),
		Metrics:  appMetrics.Handler(),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Streams must outlive any write deadline
		WriteTimeout: 0,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	scheduler.Start()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		scheduler.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	scheduler.Stop()
	liveView.Wait()

	return nil
}
