package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/daemon"
	"github.com/minhduonq/deep-vision/internal/engine"
	"github.com/minhduonq/deep-vision/internal/logging"
	"github.com/minhduonq/deep-vision/internal/preflight"
	"github.com/minhduonq/deep-vision/internal/task"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}

	store, err := task.Open(cfg)
	if err != nil {
		logger.Error("open task store", logging.Error(err))
		return
	}

	orch, err := buildOrchestrator(cfg, store, logger)
	if err != nil {
		logger.Error("build pipeline", logging.Error(err))
		_ = store.Close()
		return
	}
	eng := engine.New(cfg, store, orch, logger)

	d, err := daemon.New(cfg, store, eng, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("deepvisiond shutting down")
}
