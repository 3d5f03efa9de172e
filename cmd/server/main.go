package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/Skannik/vid222/internal/adapters/http"
	ws "github.com/Skannik/vid222/internal/adapters/signal"
	"github.com/Skannik/vid222/internal/app"
	"github.com/Skannik/vid222/internal/app/orch"
	"github.com/Skannik/vid222/internal/auth"
	"github.com/Skannik/vid222/internal/config"
	"github.com/Skannik/vid222/internal/metrics"
	"github.com/Skannik/vid222/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Auth.Secret == "" {
		log.Fatal().Msg("auth.secret is required (RELAY_AUTH_SECRET)")
	}

	var st orch.StateStore
	if cfg.DB.Path != "" {
		s, err := store.Open(cfg.DB.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DB.Path).Msg("failed to open store")
		}
		defer s.Close()
		st = s
	} else {
		log.Warn().Msg("db.path not set, running without the state store")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	dir := app.NewDirectory()
	o := orch.New(dir, app.SimplePolicy{}, st, m)

	ctl := ws.NewController(
		o,
		auth.NewVerifier(cfg.Auth.Secret),
		ws.NewEventRateLimiter(cfg.RateLimit.Events, cfg.RateLimit.Interval),
		cfg.ReadLimit,
		cfg.PingPeriod,
	)

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("relay server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
