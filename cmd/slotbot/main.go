package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/larriantoniy/dl_slot_bot/internal/adapters/gemini"
	"github.com/larriantoniy/dl_slot_bot/internal/adapters/sarathi"
	"github.com/larriantoniy/dl_slot_bot/internal/adapters/store"
	"github.com/larriantoniy/dl_slot_bot/internal/adapters/tg"
	"github.com/larriantoniy/dl_slot_bot/internal/config"
	"github.com/larriantoniy/dl_slot_bot/internal/ports"
	"github.com/larriantoniy/dl_slot_bot/internal/server"
	"github.com/larriantoniy/dl_slot_bot/internal/useCases"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, relying on process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	log.Info("starting slot bot", "env", cfg.Env, "state", cfg.StateCode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error("session store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	msgr, err := tg.NewClient(cfg.TelegramAPIID, cfg.TelegramAPIHash, cfg.BotToken, cfg.SessionDir, log)
	if err != nil {
		log.Error("telegram client", "error", err)
		os.Exit(1)
	}
	defer msgr.Close()

	gateway := sarathi.NewGateway(cfg.TargetBaseURL, cfg.StateCode, cfg.HTTPTimeout, log)

	pending := useCases.NewPendingReplies(cfg.CaptchaReplyTimeout)
	defer pending.Stop()

	manual := useCases.NewManualSolver(msgr, pending, cfg.CaptchaReplyTimeout, log)
	ai := gemini.NewSolver(cfg.GeminiModel, cfg.HTTPTimeout, log)

	checker := useCases.NewChecker(gateway, manual, ai, log)
	monitor := useCases.NewMonitor(sessions, msgr, checker, log)

	sched := useCases.NewSchedule(cfg.QuietHours, cfg.PauseHour, cfg.ResumeHour, log)
	go sched.Run(ctx)

	health := server.New(cfg.HealthAddr, log)
	go func() {
		if err := health.Start(); err != nil {
			log.Error("health server", "error", err)
		}
	}()
	defer func() {
		if err := health.Shutdown(context.Background()); err != nil {
			log.Error("health server shutdown", "error", err)
		}
	}()

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		s := <-sigs
		log.Info("shutting down", "signal", s.String())
		cancel()
	}()

	bot := useCases.NewBot(cfg, sessions, msgr, monitor, checker, pending, sched, log)
	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("bot stopped", "error", err)
	}

	monitor.StopAll(context.Background())
	log.Info("bye")
}

// buildStore picks Redis when an address is configured, in-memory otherwise.
func buildStore(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (ports.SessionStore, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("using in-memory session store")
		return store.NewMemory(), func() {}, nil
	}

	rds := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisSessionTTL)
	if err := rds.Ping(ctx); err != nil {
		return nil, nil, err
	}
	log.Info("using redis session store", "addr", cfg.RedisAddr)
	return rds, func() {
		if err := rds.Close(); err != nil {
			log.Error("close redis", "error", err)
		}
	}, nil
}

func setupLogger(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == config.EnvDev {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return log
}
