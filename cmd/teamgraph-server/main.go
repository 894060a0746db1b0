// Package main provides the teamgraph HTTP server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kritsw/teamgraph/internal/config"
	"github.com/kritsw/teamgraph/internal/db"
	"github.com/kritsw/teamgraph/internal/docs"
	"github.com/kritsw/teamgraph/internal/llm"
	"github.com/kritsw/teamgraph/internal/metrics"
	"github.com/kritsw/teamgraph/internal/server"
	"github.com/kritsw/teamgraph/internal/service"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.Log)
	defer func() {
		if err := closeLog(); err != nil {
			os.Stderr.WriteString("close log: " + err.Error() + "\n")
		}
	}()

	logger.Info("starting teamgraph-server", "version", version, "port", cfg.Server.Port)

	collector := metrics.NewCollector()

	manager := db.NewManager(cfg.SurrealDB, logger, collector)
	provisioner := db.NewProvisioner(manager, logger)
	graph := db.NewGraph(manager)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	model, err := llm.NewModel(ctx, cfg.LLM, collector)
	cancel()
	if err != nil {
		logger.Error("failed to create LLM model", "error", err)
		os.Exit(1)
	}

	loader := docs.NewLoader(cfg.Documents, logger)
	analyzer := service.NewAnalyzer(provisioner, graph, model, loader, logger)

	srv := server.New(cfg.Server, server.Options{
		Version:   version,
		Logger:    logger,
		Store:     graph,
		Resolver:  provisioner,
		Analyzer:  analyzer,
		Pinger:    manager,
		Collector: collector,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
