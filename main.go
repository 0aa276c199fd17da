package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/reseller-assistant/config"
	"github.com/raine/reseller-assistant/internal/assistant"
	"github.com/raine/reseller-assistant/internal/bot"
	"github.com/raine/reseller-assistant/internal/llm"
	"github.com/raine/reseller-assistant/internal/storage"
	"github.com/raine/reseller-assistant/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	logFileName = "reseller-assistant.log"

	// Idle sessions are forgotten after this long; drafts stay in the database.
	sessionMaxAge        = 24 * time.Hour
	sessionPruneInterval = 10 * time.Minute
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing config.env and .env files
	config.LoadEnvFile()

	if config.APIKey() == "" && isInteractiveTerminal() {
		if !runSetupWizard() {
			waitOnWindows()
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fatalWithWait("invalid configuration: %v", err)
	}

	closeLog := setupLogging(cfg.LogLevel)
	defer closeLog()

	if cfg.APIKey == "" {
		log.Warn().Msg("API_KEY is not set; every analysis will fail until it is configured")
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		fatalWithWait("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	analyzer := llm.NewGeminiAnalyzer(llm.GeminiConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	log.Info().Str("model", analyzer.Model()).Msg("gemini analyzer initialized")

	svc := assistant.NewService(analyzer, store)
	webSessions := assistant.NewRegistry(cfg.DefaultLocation)

	g, ctx := errgroup.WithContext(ctx)

	server := web.NewServer(svc, webSessions, store, web.Options{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		DefaultLocation: cfg.DefaultLocation,
	})
	g.Go(func() error {
		return server.Run(ctx, cfg.HTTPAddr)
	})
	g.Go(func() error {
		webSessions.RunPruner(ctx, sessionPruneInterval, sessionMaxAge)
		return nil
	})

	if cfg.BotEnabled() {
		tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			fatalWithWait("failed to initialize telegram bot: %v", err)
		}
		tg.Debug = false
		log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

		// Register bot commands for Telegram's command menu
		bot.RegisterCommands(tg)

		botSessions := assistant.NewRegistry(cfg.DefaultLocation)
		b := bot.NewBot(tg, store, svc, botSessions, cfg.AdminTelegramID, cfg.DefaultLocation)
		g.Go(func() error {
			return runBot(ctx, tg, b)
		})
		g.Go(func() error {
			botSessions.RunPruner(ctx, sessionPruneInterval, sessionMaxAge)
			return nil
		})
	} else {
		log.Info().Msg("BOT_TOKEN not set, telegram bot disabled")
	}

	go func() {
		<-ctx.Done()
		// A second signal skips the graceful shutdown
		handleGracefulExit()
	}()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// setupLogging configures the global logger and returns a function closing the log file.
func setupLogging(level zerolog.Level) func() {
	zerolog.SetGlobalLevel(level)

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd (journald handles it, and ProtectSystem=strict
	// makes the working directory read-only).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return func() {}
	}

	// Local development: log to both stderr and file
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		fatalWithWait("failed to open log file: %v", err)
	}

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

	log.Info().Str("logFile", logFileName).Msg("logging to file")
	return func() { logFile.Close() }
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer b.Shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
