// main package for the voice-orchestrator service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-orchestrator/internal/config"
	"github.com/book-expert/voice-orchestrator/internal/credentials"
	"github.com/book-expert/voice-orchestrator/internal/dispatch"
	"github.com/book-expert/voice-orchestrator/internal/ledger"
	"github.com/book-expert/voice-orchestrator/internal/objectstore"
	"github.com/book-expert/voice-orchestrator/internal/providers"
	"github.com/book-expert/voice-orchestrator/internal/store"
	"github.com/book-expert/voice-orchestrator/internal/transcribe"
	"github.com/book-expert/voice-orchestrator/internal/voices"
	"github.com/book-expert/voice-orchestrator/internal/worker"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "voice-orchestrator.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return runService(cfg, finalLog)
}

func runService(cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}

	audioStore, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to initialize audio object store: %w", err)
	}

	rowStore, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database at %s: %w", cfg.Storage.DatabasePath, err)
	}

	defer func() {
		closeErr := rowStore.Close()
		if closeErr != nil {
			log.Error("failed to close database: %v", closeErr)
		}
	}()

	natsWorker, err := buildWorker(cfg, natsConnection, audioStore, rowStore, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.System("Voice orchestrator initialized. Serving requests under subject prefix: %s",
		cfg.NATS.RequestSubjectPrefix)

	err = natsWorker.Run(ctx)
	if err != nil {
		return fmt.Errorf("worker stopped with error: %w", err)
	}

	log.System("Voice orchestrator shut down.")

	return nil
}

func buildWorker(
	cfg *config.Config,
	natsConnection *nats.Conn,
	audioStore *objectstore.NatsObjectStore,
	rowStore store.Store,
	log *logger.Logger,
) (*worker.NatsWorker, error) {
	timeout := time.Duration(cfg.Providers.TimeoutSeconds) * time.Second

	registry := providers.NewRegistry(
		providers.NewElevenLabs("", timeout, log),
		providers.NewOpenAI("", timeout, log),
		providers.NewPlayHT("", timeout, log),
		providers.NewFishAudio("", timeout, log),
	)

	credentialService := credentials.NewService(rowStore, registry, log)
	resolver := voices.NewResolver(rowStore)
	cloneWorkflow := voices.NewCloneWorkflow(
		rowStore, registry, cfg.Providers.Priority, cfg.Cloning.MaxSampleBytes, log,
	)
	usageLedger := ledger.New(rowStore, audioStore, cfg.Providers.MonthlyCharacterBudgets, log)
	transcriber := transcribe.NewWhisperClient("", timeout, log)

	dispatcher := dispatch.New(
		registry,
		resolver,
		rowStore,
		usageLedger,
		audioStore,
		transcriber,
		dispatch.Options{
			Priority:       cfg.Providers.Priority,
			SharedProvider: cfg.Providers.SharedProvider,
			SharedSecret:   cfg.Providers.SharedSecret,
			MaxTextLength:  cfg.Synthesis.MaxTextLength,
		},
		log,
	)

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.RequestSubjectPrefix,
		dispatcher,
		credentialService,
		cloneWorkflow,
		usageLedger,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	return natsWorker, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
