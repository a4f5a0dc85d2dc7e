package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"highroll/config"
	"highroll/database"
	"highroll/events"
	"highroll/infrastructure"
	"highroll/infrastructure/observability"
	"highroll/repository"
	"highroll/server"
	"highroll/service"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting highroll...")

	// Schema must be current before the pool is used
	log.Info("Running database migrations...")
	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	services := server.Services{
		Users: service.NewUserService(uowFactory),
		Game:  service.NewGameService(uowFactory, service.NewDiceRoller()),
		Sessions: service.NewSessionService(uowFactory, service.SessionConfig{
			TTL:       cfg.SessionTTL,
			CacheSize: cfg.SessionCacheSize,
		}),
		Stats: service.NewStatsService(uowFactory),
	}
	log.Info("Services initialized successfully")

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
		metrics.SubscribeTo(eventBus)
		log.Info("Prometheus metrics enabled")
	}

	closeIntegrations, err := startIntegrations(ctx, cfg, eventBus)
	if err != nil {
		return err
	}
	defer closeIntegrations()

	feed := server.NewFeed(cfg.AllowedOrigins)
	feed.SubscribeTo(eventBus)

	stopCleanup := service.StartSessionCleanupWorker(ctx, services.Sessions, cfg.SessionCleanupInterval)
	defer stopCleanup()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(cfg, services, metrics, feed).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	feed.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}

	log.Info("Shutdown completed")
	return nil
}

// startIntegrations wires the optional Discord announcer and NATS publisher to the bus.
// The returned function releases whatever was started.
func startIntegrations(ctx context.Context, cfg *config.Config, eventBus *events.Bus) (func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DiscordEnabled() {
		session, err := infrastructure.NewDiscordSession(cfg.DiscordToken)
		if err != nil {
			return closeAll, err
		}
		infrastructure.NewDiscordAnnouncer(session, cfg.DiscordChannelID).SubscribeTo(eventBus)
		closers = append(closers, func() {
			if err := session.Close(); err != nil {
				log.WithError(err).Warn("Error closing Discord session")
			}
		})
		log.WithField("channelID", cfg.DiscordChannelID).Info("Discord high score announcements enabled")
	}

	if cfg.NATSURL != "" {
		natsClient := infrastructure.NewNATSClient(cfg.NATSURL)
		if err := natsClient.Connect(ctx); err != nil {
			closeAll()
			return func() {}, err
		}
		if err := natsClient.EnsureStream(infrastructure.EventStreamName, infrastructure.AllSubjects()); err != nil {
			log.WithError(err).Warn("Could not ensure NATS stream; publishing may fail")
		}
		infrastructure.NewNATSEventPublisher(natsClient).SubscribeTo(eventBus)
		closers = append(closers, func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Warn("Error closing NATS connection")
			}
		})
		log.WithField("url", cfg.NATSURL).Info("NATS event publishing enabled")
	}

	return closeAll, nil
}
