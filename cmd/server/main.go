package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	approvalHandler "torque/internal/approval/handler"
	approvalService "torque/internal/approval/service"
	"torque/internal/approval/store/request"
	"torque/internal/audit"
	"torque/internal/docstore"
	identityHandler "torque/internal/identity/handler"
	identityService "torque/internal/identity/service"
	"torque/internal/identity/store/principal"
	"torque/internal/identity/store/profile"
	"torque/internal/identity/store/session"
	"torque/internal/identity/token"
	"torque/internal/migration"
	"torque/internal/notify"
	"torque/internal/platform/config"
	"torque/internal/platform/health"
	"torque/internal/platform/httpserver"
	"torque/internal/platform/logger"
	"torque/internal/platform/metrics"
	"torque/internal/platform/tracer"
	"torque/internal/seeder"
	"torque/internal/sentinel"
	httptransport "torque/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing torque",
		"addr", cfg.Addr,
		"auto_approve", cfg.AutoApprove,
	)

	m := metrics.New()

	var trc tracer.Tracer = tracer.NewNoop()
	if cfg.Tracing {
		trc = tracer.NewOTel()
	}

	docs := docstore.NewMemory()
	principals := principal.New()
	profiles := profile.New(docs)
	sessions := session.New()
	requests := request.New(docs)

	auditStore := audit.NewInMemoryStore()
	auditPublisher := audit.NewPublisher(auditStore, audit.WithPublisherLogger(log))
	defer auditPublisher.Close()

	tokens := token.NewService(cfg.JWTSigningKey, cfg.SessionTTL)
	notifier := notify.NewLogNotifier(log)

	if cfg.Seed {
		if err := seeder.New(principals, profiles, log).SeedAll(context.Background()); err != nil {
			log.Error("seeding failed", "error", err)
			os.Exit(1)
		}
	}

	identity := identityService.New(principals, profiles, sessions, tokens,
		identityService.WithLogger(log),
		identityService.WithAuditPublisher(auditPublisher),
		identityService.WithMetrics(m),
		identityService.WithSessionTTL(cfg.SessionTTL),
	)

	engine := migration.NewEngine(principals, profiles,
		migration.WithLogger(log),
		migration.WithAuditPublisher(auditPublisher),
		migration.WithMetrics(m),
		migration.WithTracer(trc),
	)

	approval := approvalService.New(requests, profiles, principals,
		approvalService.WithLogger(log),
		approvalService.WithNotifier(notifier),
		approvalService.WithSessionRevoker(identity),
		approvalService.WithAuditPublisher(auditPublisher),
		approvalService.WithMetrics(m),
		approvalService.WithTracer(trc),
		approvalService.WithAutoApprove(cfg.AutoApprove),
		approvalService.WithImprovementNoteMin(cfg.ImprovementNoteMin),
	)

	healthz := health.New()
	healthz.RegisterCheck("docstore", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := docs.Get(ctx, "healthz", "probe")
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	})

	router := httptransport.NewRouter(httptransport.Handlers{
		Identity: identityHandler.New(identity, engine, log),
		Approval: approvalHandler.New(approval, log),
		Health:   healthz,
	}, tokens, m, log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
