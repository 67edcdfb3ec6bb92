package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/fast-pizza/internal/cart"
	"github.com/vasiliy-maslov/fast-pizza/internal/config"
	"github.com/vasiliy-maslov/fast-pizza/internal/handler"
	"github.com/vasiliy-maslov/fast-pizza/internal/restaurant"
	"github.com/vasiliy-maslov/fast-pizza/internal/routes"
	"github.com/vasiliy-maslov/fast-pizza/internal/transport"
	"github.com/vasiliy-maslov/fast-pizza/internal/view"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	setupLogger(cfg)
	log.Info().Msg("Fast Pizza starting...")
	log.Debug().Interface("config_loaded", cfg).Msg("Configuration loaded")

	gateway, err := restaurant.NewClient(restaurant.Config{
		BaseURL:          cfg.Restaurant.BaseURL,
		Timeout:          cfg.Restaurant.Timeout,
		RetryCount:       cfg.Restaurant.RetryCount,
		RetryWaitTime:    cfg.Restaurant.RetryWaitTime,
		RetryMaxWaitTime: cfg.Restaurant.RetryMaxWaitTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create restaurant client")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	carts, forget, closeCarts := newCartStore(ctx, cfg)
	defer closeCarts()

	table, err := routes.New(routes.Deps{Gateway: gateway, Carts: carts})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build route table")
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load templates")
	}

	sessions := handler.NewSessions(table, handler.SessionConfig{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	})
	sessions.OnExpire = forget
	if cfg.Session.SweepInterval > 0 {
		go sessions.Run(ctx, cfg.Session.SweepInterval)
	}

	router := transport.NewRouter(
		handler.NewPageHandler(sessions, carts, renderer),
		handler.NewCartHandler(sessions, carts, gateway),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Restaurant.Timeout*time.Duration(cfg.Restaurant.RetryCount+1) + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
		return
	}
	log.Info().Msg("Server stopped")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "fast-pizza").Logger()
}

// newCartStore returns the configured cart store, the hook that drops a swept
// session's cart, and a close func.
func newCartStore(ctx context.Context, cfg *config.Config) (cart.Store, func(string), func()) {
	if cfg.Cart.Store != config.CartStoreRedis {
		store := cart.NewMemoryStore()
		return store, store.Forget, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Cart.RedisAddr,
		Password: cfg.Cart.RedisPassword,
		DB:       cfg.Cart.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Cart.RedisAddr).Msg("Failed to connect to redis")
	}
	log.Info().Str("addr", cfg.Cart.RedisAddr).Msg("Using redis cart store")

	// Redis expires carts by itself.
	forget := func(string) {}
	closeFn := func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
		}
	}
	return cart.NewRedisStore(rdb, cfg.Session.TTL), forget, closeFn
}
