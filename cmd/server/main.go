// Command server runs the Harvest Hub HTTP API.
//
// @title          Harvest Hub API
// @version        1.0
// @description    Farmer marketplace: shops, buyer-seller chat with in-chat orders, finances and advisory.
// @BasePath       /api/v1
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/config"
	"github.com/anidigital/harvest-hub/internal/cropdoctor"
	httpapi "github.com/anidigital/harvest-hub/internal/http"
	"github.com/anidigital/harvest-hub/internal/http/middleware"
	"github.com/anidigital/harvest-hub/internal/observability"
	"github.com/anidigital/harvest-hub/internal/repo"
	"github.com/anidigital/harvest-hub/internal/storage"
	"github.com/anidigital/harvest-hub/internal/sysutil"
	"github.com/anidigital/harvest-hub/internal/weather"
)

var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := sysutil.NewLogger(os.Stderr, "harvest-hub", true)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	log := sysutil.NewLogger(os.Stdout, cfg.OTEL.ServiceName, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Database
	dsn := cfg.DB.Path
	if cfg.DB.Driver == repo.DriverPostgres {
		dsn = cfg.DB.URL
	}
	db, err := repo.Open(cfg.DB.Driver, dsn)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.EnableTracing(db); err != nil {
		return err
	}
	if cfg.DB.AutoMigrate {
		if err := repo.AutoMigrate(db); err != nil {
			return err
		}
		log.Info().Str("driver", cfg.DB.Driver).Msg("schema migrated")
	}

	// Object storage
	store, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	if hc, ok := store.(interface{ Health(context.Context) error }); ok {
		hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := hc.Health(hctx); err != nil {
			log.Warn().Err(err).Str("backend", cfg.Storage.Backend).Msg("object storage unhealthy; uploads will fail")
		}
		cancel()
	}

	// External APIs
	cache, err := weather.NewCache(cfg.Weather)
	if err != nil {
		return err
	}
	if c, ok := cache.(interface{ Close() error }); ok {
		defer c.Close()
	}
	wx := weather.New(cfg.Weather, cache, log.With().Str("component", "weather").Logger())
	crops := cropdoctor.New(cfg.CropHealth, log.With().Str("component", "cropdoctor").Logger())
	if !wx.Enabled() {
		log.Warn().Msg("WEATHER_API_KEY not set; weather endpoints answer 503")
	}
	if !crops.Enabled() {
		log.Warn().Msg("CROP_HEALTH_API_KEY not set; diagnosis endpoints answer 503")
	}

	auth, stopAuth, err := middleware.NewAuthOptions(cfg.Auth)
	if err != nil {
		return err
	}
	defer stopAuth()
	if !cfg.Auth.Enabled {
		log.Warn().Msg("AUTH_ENABLED=false; trusting X-User-ID")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:         db,
		Store:      store,
		Weather:    wx,
		CropDoctor: crops,
		Auth:       auth,
		Log:        log,
	}, cfg)

	go purgeIdempotency(ctx, db, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// purgeIdempotency drops expired idempotency records hourly until ctx ends.
func purgeIdempotency(ctx context.Context, db *gorm.DB, log zerolog.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("idempotency records purged")
			}
		}
	}
}
