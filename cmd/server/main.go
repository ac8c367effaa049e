package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/pageflow/internal/api"
	"github.com/dgallion1/pageflow/internal/config"
	"github.com/dgallion1/pageflow/internal/logging"
	"github.com/dgallion1/pageflow/internal/pipeline"
	"github.com/dgallion1/pageflow/internal/render"
	"github.com/dgallion1/pageflow/internal/session"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sessions expire after SessionTTL without edits.
	sessions := session.NewRegistry(cfg.SessionTTL, log)
	sessions.Start(ctx, time.Minute)

	// Initialize export pipeline.
	orch := pipeline.NewOrchestrator(cfg, render.NewRenderer(), log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(sessions, orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", "error", err)
		}

		orch.Stop()
		sessions.Stop()
	}()

	log.Info("starting pageflow",
		"port", cfg.Port,
		"workers", cfg.WorkerCount,
		"page_height", cfg.Page.PageHeight,
		"page_margin", cfg.Page.PageMargin,
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
