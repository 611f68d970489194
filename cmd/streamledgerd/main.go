// Package main provides streamledgerd, a thin host harness around the
// ledger engine: it loads configuration, opens the store, and replays a
// newline-delimited JSON action log against it, one action per transaction.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/klingon-exchange/streamledger/internal/config"
	"github.com/klingon-exchange/streamledger/internal/ledger"
	"github.com/klingon-exchange/streamledger/internal/storage"
	"github.com/klingon-exchange/streamledger/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.streamledger", "Data directory")
		configFile  = flag.String("config", "", "Config file path; only its directory is used, and the file read there is config.yaml (default: <data-dir>/config.yaml)")
		actionLog   = flag.String("action-log", "", "Path to a newline-delimited JSON action log to replay, overrides config")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: "info", TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("streamledgerd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	configDir := *dataDir
	if *configFile != "" {
		configDir = filepath.Dir(*configFile)
	}
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	cfg.Storage.DataDir = *dataDir
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *actionLog != "" {
		cfg.Engine.ActionLogPath = *actionLog
	}

	logCfg := &logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly}
	if cfg.Logging.File != "" {
		logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			log.Fatal("failed to open log file", "error", err)
		}
		defer logFile.Close()
		logCfg.Output = logFile
	}
	log = logging.New(logCfg)
	logging.SetDefault(log)
	log.Info("config loaded", "path", config.ConfigPath(configDir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	store, err := storage.New(&storage.Config{DataDir: cfg.Storage.DataDir})
	if err != nil {
		log.Fatal("failed to initialize storage", "error", err)
	}
	defer store.Close()
	log.Info("storage initialized", "dir", cfg.Storage.DataDir)

	if cfg.Engine.ActionLogPath == "" {
		log.Info("no action log configured, idling")
		<-ctx.Done()
		log.Info("goodbye")
		return
	}

	if err := replayActionLog(ctx, store, log, cfg.Engine.ActionLogPath); err != nil {
		log.Fatal("action log replay failed", "error", err)
	}
	log.Info("goodbye")
}

// replayActionLog reads path and applies each action against store, one
// action per transaction, tagging the whole batch with a correlation id
// that every per-action log line carries.
func replayActionLog(ctx context.Context, store *storage.Storage, log *logging.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	actions, err := decodeActions(f)
	if err != nil {
		return err
	}

	batchID := uuid.NewString()
	blog := log.With("batch", batchID)
	blog.Info("replaying action log", "path", path, "actions", len(actions))

	tokens := make(map[string]*ledger.Token)

	for i, a := range actions {
		select {
		case <-ctx.Done():
			blog.Info("replay interrupted", "applied", i)
			return nil
		default:
		}

		alog := blog.With("index", i, "action", a.Kind, "token", a.Token)

		if err := store.BeginAction(); err != nil {
			return err
		}

		if err := applyAction(ctx, store, tokens, a); err != nil {
			if rbErr := store.RollbackAction(); rbErr != nil {
				alog.Error("rollback failed after action error", "action_error", err, "rollback_error", rbErr)
				return rbErr
			}
			alog.Warn("action failed, rolled back", "error", err)
			continue
		}

		if err := store.CommitAction(); err != nil {
			return err
		}
		alog.Info("action applied")
	}

	blog.Info("replay complete")
	return nil
}
