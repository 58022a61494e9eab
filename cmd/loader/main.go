package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/mauv0809/symbol-loader/internal/config"
	"github.com/mauv0809/symbol-loader/internal/db"
	"github.com/mauv0809/symbol-loader/internal/etl"
	"github.com/mauv0809/symbol-loader/internal/ingest"
	"github.com/mauv0809/symbol-loader/internal/logger"
	"github.com/mauv0809/symbol-loader/internal/models"
)

type flags struct {
	configPath string
	nysePath   string
	nasdaqPath string
	chunkSize  int
	dryRun     bool
	migrate    bool
	debug      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func parseFlags(args []string, console io.Writer) (*pflag.FlagSet, *flags, error) {
	f := &flags{}
	set := pflag.NewFlagSet("loader", pflag.ContinueOnError)
	set.SetOutput(console)
	set.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	set.StringVar(&f.nysePath, "nyse", "", "NYSE listing CSV (overrides config)")
	set.StringVar(&f.nasdaqPath, "nasdaq", "", "NASDAQ listing CSV (overrides config)")
	set.IntVar(&f.chunkSize, "chunk-size", 0, "rows per insert batch (overrides config)")
	set.BoolVar(&f.dryRun, "dry-run", false, "extract and transform only, do not touch the database")
	set.BoolVar(&f.migrate, "migrate", false, "apply schema migrations before loading")
	set.BoolVar(&f.debug, "debug", false, "enable debug logging")
	return set, f, set.Parse(args)
}

// run executes one load and returns the process exit code.
func run(args []string, console io.Writer) int {
	programStart := time.Now()
	bootLog := zerolog.New(zerolog.ConsoleWriter{Out: console})

	set, f, err := parseFlags(args, console)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		bootLog.Error().Err(err).Msg("Parsing flags")
		return 1
	}

	envErr := config.LoadEnvFiles()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		bootLog.Error().Err(err).Msg("Loading config")
		return 1
	}
	f.apply(set, cfg)

	log, closer, err := logger.New(cfg.Logging, console)
	if err != nil {
		bootLog.Error().Err(err).Msg("Creating logger")
		return 1
	}
	defer closer.Close()

	if errors.Is(envErr, fs.ErrNotExist) {
		log.Debug().Msg("No .env file found, using environment variables")
	} else if envErr != nil {
		log.Warn().Err(envErr).Msg("Could not load .env file")
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runLog := log.With().
		Str("table", cfg.Database.Table).
		Str("database", cfg.Database.DatabaseName()).
		Logger()
	ctx = runLog.WithContext(ctx)

	jobCfg := etl.MarketSymbolsConfig{
		Sources: []ingest.Source{
			{Path: cfg.Sources.NYSE, Exchange: models.ExchangeNYSE},
			{Path: cfg.Sources.NASDAQ, Exchange: models.ExchangeNASDAQ},
		},
		Normalizer: ingest.NewNormalizer(ingest.WithCurrency(cfg.Sources.Currency)),
		ChunkSize:  cfg.Load.ChunkSize,
	}

	if f.dryRun {
		job := etl.NewMarketSymbols(jobCfg)
		res := etl.Run(ctx, job, etl.DryRun())
		if !res.OK() {
			return 1
		}
		logSplit(log, job)
		log.Info().Dur("elapsed", time.Since(programStart)).Msg("Dry run completed successfully")
		return 0
	}

	if err := cfg.ValidateDatabase(); err != nil {
		log.Error().Err(err).Msg("Invalid database configuration")
		return 1
	}

	if cfg.Load.Migrate {
		if err := db.RunMigrations(cfg.Database.ConnString()); err != nil {
			log.Error().Err(err).Msg("Could not run migrations")
			return 1
		}
		log.Info().Msg("Migrations completed")
	}

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Error().Err(err).Str("database", cfg.Database.DatabaseName()).Msg("Could not connect to database")
		return 1
	}
	defer pool.Close()
	log.Info().Str("database", cfg.Database.DatabaseName()).Msg("Connected to database")

	jobCfg.Loader = db.NewTableLoader(pool, db.Target{
		Database: cfg.Database.DatabaseName(),
		Schema:   cfg.Database.Schema,
		Table:    cfg.Database.Table,
	}, runLog)

	res := etl.Run(ctx, etl.NewMarketSymbols(jobCfg))
	if !res.OK() {
		runLog.Error().
			Str("run_id", res.RunID).
			Dur("elapsed", time.Since(programStart)).
			Msg("Program failed")
		return 1
	}

	log.Info().
		Str("run_id", res.RunID).
		Dur("elapsed", time.Since(programStart)).
		Msg("Program completed successfully")
	return 0
}

func (f *flags) apply(set *pflag.FlagSet, cfg *config.Config) {
	if f.nysePath != "" {
		cfg.Sources.NYSE = f.nysePath
	}
	if f.nasdaqPath != "" {
		cfg.Sources.NASDAQ = f.nasdaqPath
	}
	if set.Changed("chunk-size") {
		cfg.Load.ChunkSize = f.chunkSize
	}
	if f.migrate {
		cfg.Load.Migrate = true
	}
	if f.debug {
		cfg.Logging.Level = "debug"
	}
}

func logSplit(log zerolog.Logger, job *etl.MarketSymbols) {
	split := job.SymbolSplit()
	for i, pct := range []int{15, 35, 20, 30} {
		log.Info().
			Int("group", i+1).
			Int("percent", pct).
			Int("symbols", len(split.Keys[i])).
			Int("rows", len(split.Parts[i])).
			Msg("Symbol split")
	}
}
