// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/api"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/auth"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/authz"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/config"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/eventbus"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/notification"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/outbox"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/redevelopment"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/redevelopment/scheduler"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/supervisor"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/supervisor/services"
	ws "github.com/Yashdhankecha/Milkat-post-sub004/internal/websocket"
)

const hubQueueSize = 1024

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("bus", cfg.Realtime.Bus).
		Int("approval_threshold", cfg.Voting.MinimumApprovalPercentage).
		Bool("scheduler_enabled", cfg.Voting.SchedulerEnabled).
		Msg("Starting Milkat with supervisor tree")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	box, err := outbox.Open(outbox.Config{
		Path:          cfg.Outbox.Path,
		InMemory:      cfg.Outbox.InMemory,
		SyncWrites:    cfg.Outbox.SyncWrites,
		RetryInterval: cfg.Outbox.RetryInterval,
		MaxRetries:    cfg.Outbox.MaxRetries,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open notification outbox")
	}
	defer func() {
		if err := box.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing outbox")
		}
	}()
	if pending, err := box.PendingCount(); err == nil && pending > 0 {
		logging.Info().Int("pending", pending).Msg("Outbox holds notifications from a previous run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === REALTIME DELIVERY ===

	hub := ws.NewHub(hubQueueSize)

	transport, natsServer, err := initTransport(&cfg.Realtime)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize realtime transport")
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing realtime transport")
		}
	}()

	relay := eventbus.NewRelay(transport, hub, eventbus.Config{
		Topic:              cfg.Realtime.Topic,
		BreakerMaxFailures: cfg.Realtime.BreakerMaxFailures,
		BreakerTimeout:     cfg.Realtime.BreakerTimeout,
	})

	// === DOMAIN ===

	dispatcher := notification.NewDispatcher(db, relay,
		notification.WithOutbox(box),
		notification.WithTTL(cfg.Voting.NotificationTTL),
	)

	service := redevelopment.NewService(db, dispatcher, redevelopment.Config{
		MinimumApprovalPercentage: cfg.Voting.MinimumApprovalPercentage,
		DefaultSession:            cfg.Voting.DefaultSession,
		ReminderWindow:            cfg.Voting.ReminderWindow,
	})

	votingScheduler := scheduler.New(db, service, scheduler.Config{
		DeadlineScanInterval: cfg.Voting.DeadlineScanInterval,
		SweepInterval:        cfg.Voting.MajoritySweepInterval,
		EvaluationTimeout:    cfg.Voting.EvaluationTimeout,
		Enabled:              cfg.Voting.SchedulerEnabled,
	}, scheduler.WithPurger(db))

	retryLoop := outbox.NewRetryLoop(box, outbox.HandlerFunc(dispatcher.Replay))

	// === AUTHENTICATION AND AUTHORIZATION ===

	tokens, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	enforcer, err := authz.NewEnforcer(nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization enforcer")
	}
	defer enforcer.Close()

	// === HTTP ===

	wsHandler := ws.NewHandler(hub, tokens, db, ws.NewProjectRoomAuthorizer(db), ws.HandlerConfig{
		AllowedOrigins: cfg.Security.CORSOrigins,
		SendBuffer:     cfg.Realtime.ClientSendBuffer,
		MessageRate:    cfg.Realtime.ClientMessageRate,
		MessageBurst:   cfg.Realtime.ClientMessageBurst,
	})

	handler := api.NewHandler(service, db)
	handler.AddReadinessCheck("outbox", func(context.Context) error {
		if !retryLoop.IsRunning() {
			return errors.New("outbox retry loop not running")
		}
		return nil
	})
	if cfg.Realtime.Bus == "nats" {
		handler.AddReadinessCheck("realtime", func(context.Context) error {
			if !relay.IsRunning() {
				return errors.New("relay not subscribed")
			}
			if state := relay.BreakerState(); state == "open" {
				return fmt.Errorf("relay circuit breaker %s", state)
			}
			return nil
		})
	}

	router := api.NewRouter(
		handler,
		api.NewChiMiddlewareFromConfig(&cfg.Security),
		auth.NewMiddleware(tokens),
		authz.NewMiddleware(enforcer),
		wsHandler,
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		// Upgraded websocket connections are hijacked and not bound by WriteTimeout.
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddDataService(services.NewOutboxRetryService(retryLoop))

	if natsServer != nil {
		tree.AddMessagingService(services.NewEmbeddedNATSService(natsServer, cfg.Server.ShutdownTimeout))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewRelayService(relay))
	logging.Info().Str("bus", cfg.Realtime.Bus).Msg("Realtime services added to supervisor tree")

	if cfg.Voting.SchedulerEnabled {
		tree.AddWorkerService(services.NewVotingSchedulerService(votingScheduler))
		logging.Info().
			Dur("deadline_scan", cfg.Voting.DeadlineScanInterval).
			Dur("majority_sweep", cfg.Voting.MajoritySweepInterval).
			Msg("Voting scheduler added to supervisor tree")
	} else {
		logging.Info().Msg("Voting scheduler disabled (VOTING_SCHEDULER_ENABLED=false)")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
