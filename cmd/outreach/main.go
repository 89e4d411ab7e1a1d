// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	call_api "github.com/rapidaai/outreach/api/call-api/api"
	internal_agent "github.com/rapidaai/outreach/api/call-api/internal/agent"
	internal_contactstore "github.com/rapidaai/outreach/api/call-api/internal/contactstore"
	internal_dispatch "github.com/rapidaai/outreach/api/call-api/internal/dispatch"
	internal_livekit "github.com/rapidaai/outreach/api/call-api/internal/livekit"
	internal_pipeline "github.com/rapidaai/outreach/api/call-api/internal/pipeline"
	internal_policy "github.com/rapidaai/outreach/api/call-api/internal/policy"
	internal_session "github.com/rapidaai/outreach/api/call-api/internal/session"
	call_routers "github.com/rapidaai/outreach/api/call-api/router"
	"github.com/rapidaai/outreach/config"
	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/connectors"
)

func main() {
	vConfig, err := config.InitConfig()
	if err != nil {
		log.Fatalf("failed to initialize config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		log.Fatalf("failed to load application config: %v", err)
	}

	loggerOpts := []commons.LoggerOption{commons.WithLevel(cfg.LogLevel)}
	if cfg.LogFile != "" {
		loggerOpts = append(loggerOpts, commons.WithFile(cfg.LogFile))
	}
	logger, err := commons.NewApplicationLogger(loggerOpts...)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	postgres, err := connectors.NewPostgresConnector(&cfg.PostgresConfig, logger)
	if err != nil {
		logger.Errorf("failed to connect postgres: %v", err)
		os.Exit(1)
	}
	defer func() { _ = postgres.Close() }()

	launcher := buildLauncher(cfg, logger, postgres)

	engine := gin.New()
	engine.Use(gin.Recovery())
	call_routers.CallRoutes(cfg, engine, logger, launcher.api)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}
	go func() {
		logger.Info("starting server", "service", cfg.Name, "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown cut short", "error", err.Error())
	}
	// Give in-flight calls a chance to wrap up before pulling the plug.
	if launcher.runner != nil {
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancelDrain()
		if err := launcher.runner.Shutdown(drainCtx); err != nil {
			logger.Warn("agent runner drain incomplete", "error", err.Error())
		}
	}
	logger.Info("shutdown complete")
}

// wiredLauncher carries the HTTP-facing launcher plus the runner handle the
// shutdown path needs.
type wiredLauncher struct {
	api    call_api.Launcher
	runner *internal_agent.Runner
}

// buildLauncher wires the call stack. With unusable LiveKit credentials the
// service still starts and serves health checks; launches report the
// configuration error instead.
func buildLauncher(cfg *config.AppConfig, logger commons.Logger, postgres connectors.PostgresConnector) wiredLauncher {
	client, err := internal_livekit.NewClient(cfg, logger)
	if err != nil {
		logger.Error("livekit client unavailable", "error", err.Error())
		return wiredLauncher{api: &misconfiguredLauncher{err: err}}
	}

	contacts := internal_contactstore.NewStore(postgres, logger)
	adapter := internal_livekit.NewSessionAdapter(client, logger)
	pol := internal_policy.New(cfg.OrganizationName, cfg.OrganizationPhone)

	pipelineCfg := internal_pipeline.Config{
		LivekitUrl:       cfg.LivekitUrl,
		LivekitApiKey:    cfg.LivekitApiKey,
		LivekitApiSecret: cfg.LivekitApiSecret,
		DeepgramApiKey:   cfg.DeepgramApiKey,
		OpenaiApiKey:     cfg.OpenaiApiKey,
		CartesiaApiKey:   cfg.CartesiaApiKey,
		VadModelPath:     cfg.VadModelPath,
	}
	orchestrator := internal_session.NewOrchestrator(
		cfg, logger, adapter, adapter, contacts, pol,
		func() internal_session.MediaSession {
			return internal_pipeline.NewSession(pipelineCfg, logger)
		},
		internal_session.DefaultTimeouts(),
	)

	runner := internal_agent.NewRunner(logger, cfg.AgentConcurrency, cfg.AgentConcurrency*2)
	runner.Start()

	return wiredLauncher{
		api:    internal_dispatch.NewLauncher(logger, client, runner, orchestrator),
		runner: runner,
	}
}

// misconfiguredLauncher rejects every launch with the construction error.
type misconfiguredLauncher struct {
	err error
}

func (m *misconfiguredLauncher) Launch(ctx context.Context, req internal_dispatch.LaunchRequest) (string, string, error) {
	return "", "", m.err
}
