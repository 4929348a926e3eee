package main

import (
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/network"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	// An explicit port argument wins over the environment.
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil {
			return exitConfig, fmt.Errorf("invalid port argument %q: %w", os.Args[1], err)
		}
		config.Port = port
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories
	// Message history is written by the sending clients, never here: the
	// relay only resolves identities and memberships.
	userRepository, err := repositories.NewUserRepository(db)
	if err != nil {
		return exitRuntime, err
	}
	defer userRepository.Close()

	chatRepository, err := repositories.NewChatRepository(db)
	if err != nil {
		return exitRuntime, err
	}
	defer chatRepository.Close()

	// 4. Moderation (flag-only, never blocks delivery)
	var screen *moderation.Screen
	if config.EnableModeration {
		words, err := repositories.NewBlacklistRepository(db).Words()
		if err != nil {
			return exitRuntime, err
		}
		if len(words) > 0 {
			screen, err = moderation.NewScreen(words)
			if err != nil {
				return exitRuntime, err
			}
			logger.Info("Moderation screen enabled", "words", len(words))
		} else {
			logger.Warn("Moderation enabled but blacklist is empty, screening disabled")
		}
	}

	// 5. Relay core
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(registry, chatRepository, logger)
	server := network.NewChatServer(config.Host, config.Port, userRepository, registry, broadcaster, screen, logger)
	monitor := runtime.NewMonitor(logger, registry, config.MetricInterval)

	// 6. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting relay", "host", config.Host, "port", config.Port)

	// Run blocks until the signal cancels the context and every worker
	// has returned. The server worker stops itself on cancellation.
	runtime.NewSupervisor(logger).Add(server, monitor).Run(ctx)

	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
