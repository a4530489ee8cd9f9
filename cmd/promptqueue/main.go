package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/prompt-scheduler/internal/application"
	"github.com/example/prompt-scheduler/internal/config"
	httptransport "github.com/example/prompt-scheduler/internal/http"
	"github.com/example/prompt-scheduler/internal/persistence/sqlite"
)

func main() {
	dailyPass := flag.Bool("daily-pass", false, "run one daily scheduling pass and exit instead of serving the API")
	dailyDate := flag.String("date", "", "date for the daily pass in 2006-01-02 format; defaults to today")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	groups := sqlite.NewGroupRepository(pool)
	prompts := sqlite.NewPromptRepository(pool)
	preferences := sqlite.NewPreferenceRepository(pool)
	decks := sqlite.NewDeckRepository(pool)
	slots := sqlite.NewSlotRepository(pool)

	queueService := application.NewQueueServiceWithLogger(groups, prompts, preferences, decks, slots, idGenerator, now, logger,
		application.WithDecisionCacheTTL(cfg.DecisionCacheTTL))
	dailyService := application.NewDailyService(groups, prompts, preferences, slots, idGenerator, now, cfg.DailyWorkers, logger)

	if *dailyPass {
		os.Exit(runDailyPass(ctx, dailyService, *dailyDate, logger))
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Queue:      httptransport.NewQueueHandler(queueService, logger),
		Slots:      httptransport.NewSlotHandler(slots, logger),
		Daily:      httptransport.NewDailyHandler(dailyService, logger),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("prompt queue API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func runDailyPass(ctx context.Context, service *application.DailyService, dateValue string, logger *slog.Logger) int {
	var date time.Time
	if value := strings.TrimSpace(dateValue); value != "" {
		parsed, err := time.Parse(time.DateOnly, value)
		if err != nil {
			logger.Error("invalid date flag", "value", value, "error", err)
			return 1
		}
		date = parsed
	}

	summary, err := service.RunDaily(ctx, date)
	if err != nil {
		logger.Error("daily pass failed", "error", err)
		return 1
	}

	logger.Info("daily pass finished",
		"date", summary.Date.Format(time.DateOnly),
		"groups", summary.Groups,
		"failures", summary.Failures,
		"scheduled", len(summary.Outcomes))
	if summary.Failures > 0 {
		return 1
	}
	return 0
}
