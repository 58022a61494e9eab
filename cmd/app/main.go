package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mauv0809/symbol-loader/internal/config"
	"github.com/mauv0809/symbol-loader/internal/db"
	"github.com/mauv0809/symbol-loader/internal/etl"
	"github.com/mauv0809/symbol-loader/internal/handlers"
	"github.com/mauv0809/symbol-loader/internal/ingest"
	"github.com/mauv0809/symbol-loader/internal/logger"
	"github.com/mauv0809/symbol-loader/internal/models"
)

func main() {
	// Load .env file if it exists (local dev)
	envErr := config.LoadEnvFiles()
	bootLog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Loading config")
	}

	log, closer, err := logger.New(cfg.Logging, os.Stderr)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Creating logger")
	}
	defer closer.Close()

	if errors.Is(envErr, fs.ErrNotExist) {
		log.Info().Msg("No .env file found, using environment variables")
	}

	if err := errors.Join(cfg.Validate(), cfg.ValidateDatabase()); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run migrations
	if !cfg.Database.IsMigratedTarget() {
		log.Warn().
			Str("schema", cfg.Database.Schema).
			Str("table", cfg.Database.Table).
			Msg("Skipping migrations, target table is not managed by them")
	} else if err := db.RunMigrations(cfg.Database.ConnString()); err != nil {
		log.Warn().Err(err).Msg("Could not run migrations")
	} else {
		log.Info().Msg("Migrations completed")
	}

	// Connect to database
	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Error().Err(err).Str("database", cfg.Database.DatabaseName()).Msg("Could not connect to database")
		return
	}
	defer pool.Close()
	log.Info().Str("database", cfg.Database.DatabaseName()).Msg("Connected to database")

	runLog := log.With().
		Str("table", cfg.Database.Table).
		Str("database", cfg.Database.DatabaseName()).
		Logger()
	loader := db.NewTableLoader(pool, db.Target{
		Database: cfg.Database.DatabaseName(),
		Schema:   cfg.Database.Schema,
		Table:    cfg.Database.Table,
	}, runLog)
	newJob := func() etl.Job {
		return etl.NewMarketSymbols(etl.MarketSymbolsConfig{
			Sources: []ingest.Source{
				{Path: cfg.Sources.NYSE, Exchange: models.ExchangeNYSE},
				{Path: cfg.Sources.NASDAQ, Exchange: models.ExchangeNASDAQ},
			},
			Normalizer: ingest.NewNormalizer(ingest.WithCurrency(cfg.Sources.Currency)),
			Loader:     loader,
			ChunkSize:  cfg.Load.ChunkSize,
		})
	}

	// Setup Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				log.Info().Int("status", v.Status).Str("uri", v.URI).Dur("latency", v.Latency).Msg("request")
			} else {
				log.Error().Err(v.Error).Int("status", v.Status).Str("uri", v.URI).Dur("latency", v.Latency).Msg("request")
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Setup handlers
	h := handlers.New()
	loadHandler := handlers.NewLoadHandler(newJob, runLog)

	// Routes
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Admin routes for loading
	admin := e.Group("/admin")
	admin.POST("/load/market-symbols", loadHandler.LoadMarketSymbols)
	admin.GET("/load/status", loadHandler.LoadStatus)

	// Start server
	go func() {
		log.Info().Msgf("Starting server on :%s", cfg.HTTP.Port)
		if err := e.Start(":" + cfg.HTTP.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutting down server")
	}
}
