package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ketracker/backend/config"
	httpDelivery "github.com/ketracker/backend/internal/delivery/http"
	"github.com/ketracker/backend/internal/domain"
	"github.com/ketracker/backend/internal/infrastructure/cache"
	"github.com/ketracker/backend/internal/infrastructure/journal"
	"github.com/ketracker/backend/internal/infrastructure/kazanexpress"
	"github.com/ketracker/backend/internal/infrastructure/notify"
	"github.com/ketracker/backend/internal/infrastructure/observation"
	"github.com/ketracker/backend/internal/infrastructure/targets"
	"github.com/ketracker/backend/internal/logger"
	"github.com/ketracker/backend/internal/ratelimit"
	"github.com/ketracker/backend/internal/scheduler"
	"github.com/ketracker/backend/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ketracker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Server.Environment,
	})
	slog.SetDefault(log)

	log.Info("starting KE Tracker backend",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"journal", cfg.Journal.Type,
		"targets", len(cfg.Targets))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return err
	}

	// Infrastructure
	source, err := targets.NewStaticSource(cfg.Targets)
	if err != nil {
		return fmt.Errorf("invalid targets: %w", err)
	}

	var sheets domain.Journal
	switch cfg.Journal.Type {
	case "sqlite":
		sq, err := journal.OpenSQLite(ctx, cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer sq.Close()
		sheets = sq
	default:
		sheets = journal.NewMemoryJournal(cfg.Journal.Capacity)
	}

	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	if cfg.Notify.TelegramToken != "" {
		notifiers = append(notifiers, notify.NewTelegramNotifier(notify.TelegramConfig{
			Token:   cfg.Notify.TelegramToken,
			ChatIDs: cfg.Notify.TelegramChatIDs,
			BaseURL: cfg.Notify.TelegramBaseURL,
		}, log))
		log.Info("telegram notifications enabled", "chats", len(cfg.Notify.TelegramChatIDs))
	}

	client := kazanexpress.NewClient(kazanexpress.Config{
		ProductURL: cfg.KazanExpress.ProductURL,
		ReviewsURL: cfg.KazanExpress.ReviewsURL,
		ActionsURL: cfg.KazanExpress.ActionsURL,
		GraphQLURL: cfg.KazanExpress.GraphQLURL,
		Timeout:    cfg.KazanExpress.Timeout,
		MaxRetries: cfg.KazanExpress.MaxRetries,
		RPS:        cfg.KazanExpress.RPS,
		Burst:      cfg.KazanExpress.Burst,
	}, log)
	if cfg.Server.Environment == "development" {
		client.SetDebug(true)
	}

	var market domain.MarketplaceClient = client
	if cfg.KazanExpress.CacheTTL > 0 {
		cached := cache.NewCachedMarketplace(client, cfg.KazanExpress.CacheTTL)
		go cached.Run(ctx, time.Minute)
		market = cached
	}

	store := observation.NewMemoryStore()

	// Usecases
	scanner := usecase.NewCatalogScanner(market, cfg.Engine.ExtraSearchPages, log)
	resolver := usecase.NewVariantResolver(market, scanner, log)
	detector := usecase.NewChangeDetector(store, notifiers, sheets, loc, log)
	tracker := usecase.NewTrackerService(resolver, detector, sheets, usecase.TrackerServiceConfig{
		Workers:     cfg.Engine.Workers,
		CallTimeout: cfg.Engine.CallTimeout,
		Location:    loc,
	}, log)
	ratings := usecase.NewRatingService(market, scanner, cfg.KazanExpress.WebURL, log)

	if cfg.Schedule.Enabled {
		sched, err := scheduler.New(tracker, source, scheduler.Config{
			Location:       loc,
			DailyHour:      cfg.Schedule.DailyHour,
			StockInterval:  cfg.Schedule.StockInterval,
			ChangeInterval: cfg.Schedule.ChangeInterval,
		}, log)
		if err != nil {
			return err
		}
		go sched.Run(ctx)
	}

	// HTTP
	limiter := ratelimit.PerMinute(cfg.RateLimit.PerIP)
	go sweepLimiter(ctx, limiter)

	handler := httpDelivery.NewHandler(tracker, ratings, source, sheets, log)
	router := httpDelivery.SetupRouter(cfg, handler, limiter, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func sweepLimiter(ctx context.Context, limiter *ratelimit.KeyedRateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
