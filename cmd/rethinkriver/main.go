package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rethinkriver/internal/config"
	"rethinkriver/internal/logging"
	"rethinkriver/internal/notify"
	"rethinkriver/internal/river"
	"rethinkriver/internal/source"
	mongosource "rethinkriver/internal/source/mongo"
	"rethinkriver/internal/source/rethinkdb"
	"rethinkriver/internal/target/elastic"
)

func main() {
	configPath := flag.String("config", "config/config.yml", "path to configuration file")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Shutdown()

	// 2. Wire the source driver and target sink
	var factory source.Factory
	switch cfg.Source.Driver {
	case config.DriverMongoDB:
		factory = mongosource.Factory{URI: cfg.MongoDB.URI}
	default:
		factory = rethinkdb.Factory{
			Host:    cfg.RethinkDB.Host,
			Port:    cfg.RethinkDB.Port,
			AuthKey: cfg.RethinkDB.AuthKey,
		}
	}

	sink, err := elastic.New(cfg.Elasticsearch)
	if err != nil {
		slog.Error("Failed to connect to elasticsearch", "error", err)
		os.Exit(1)
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.Enabled {
		n, err := notify.NewNATS(cfg.Notify, slog.Default())
		if err != nil {
			slog.Error("Failed to connect to nats", "error", err)
			os.Exit(1)
		}
		defer n.Close()
		notifier = n
	}

	// 3. Start the river
	rv, err := river.New(cfg, factory, sink, notifier, slog.Default())
	if err != nil {
		slog.Error("Failed to build river", "error", err)
		os.Exit(1)
	}

	if err := rv.Start(context.Background()); err != nil {
		slog.Error("Failed to start river", "error", err)
		os.Exit(1)
	}

	// 4. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rv.Stop(shutdownCtx); err != nil {
		slog.Warn("Shutdown incomplete", "error", err)
	}
}
