package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MigratedSchema and MigratedTable name the table the embedded migrations
// create. The migration DDL is unqualified, so it lands in the default schema.
const (
	MigratedSchema = "public"
	MigratedTable  = "market_symbols"
)

// MaxChunkSize keeps one batch of 9-column rows under the 65535 bind
// parameter limit of a single statement.
const MaxChunkSize = 7281

// Config is built once at process start and passed to every component.
type Config struct {
	Sources  Sources     `yaml:"sources"`
	Database Database    `yaml:"database"`
	Load     LoadOptions `yaml:"load"`
	Logging  Logging     `yaml:"logging"`
	HTTP     HTTP        `yaml:"http"`
}

// Sources locates the exchange exports.
type Sources struct {
	NYSE     string `yaml:"nyse"`
	NASDAQ   string `yaml:"nasdaq"`
	Currency string `yaml:"currency"`
}

// Database describes the target database and table.
type Database struct {
	URL          string `yaml:"url"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"sslmode"`
	Schema       string `yaml:"schema"`
	Table        string `yaml:"table"`
	PoolMinConns int32  `yaml:"pool_min_conns"`
	PoolMaxConns int32  `yaml:"pool_max_conns"`
}

// LoadOptions tunes the load stage.
type LoadOptions struct {
	ChunkSize int  `yaml:"chunk_size"`
	Migrate   bool `yaml:"migrate"`
}

// Logging selects the level and the per-level log files.
type Logging struct {
	Level     string `yaml:"level"`
	InfoPath  string `yaml:"info_path"`
	ErrorPath string `yaml:"error_path"`
}

// HTTP configures the admin server.
type HTTP struct {
	Port string `yaml:"port"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Sources: Sources{
			NYSE:     "Files/nyse_stocks.csv",
			NASDAQ:   "Files/nasdaq_stocks.csv",
			Currency: "$",
		},
		Database: Database{
			Host:         "localhost",
			Port:         5432,
			Name:         "finan_invest",
			SSLMode:      "disable",
			Schema:       "public",
			Table:        "market_symbols",
			PoolMinConns: 1,
			PoolMaxConns: 10,
		},
		Load: LoadOptions{ChunkSize: 5000},
		Logging: Logging{
			Level:     "info",
			InfoPath:  "Logs/info.log",
			ErrorPath: "Logs/errors.log",
		},
		HTTP: HTTP{Port: "8080"},
	}
}

// LoadEnvFiles loads .env style files into the process environment.
// Variables already set are not overridden.
func LoadEnvFiles(files ...string) error {
	return godotenv.Load(files...)
}

// Load builds the configuration from defaults, the optional YAML file at
// path and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, set func(int)) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		set(n)
		return nil
	}

	str("NYSE_CSV", &c.Sources.NYSE)
	str("NASDAQ_CSV", &c.Sources.NASDAQ)
	str("CURRENCY_SYMBOL", &c.Sources.Currency)

	str("DATABASE_URL", &c.Database.URL)
	str("DB_HOST", &c.Database.Host)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Name)
	str("DB_SSLMODE", &c.Database.SSLMode)
	str("DB_SCHEMA", &c.Database.Schema)
	str("TARGET_TABLE", &c.Database.Table)

	str("LOG_LEVEL", &c.Logging.Level)
	str("INFO_LOG", &c.Logging.InfoPath)
	str("ERROR_LOG", &c.Logging.ErrorPath)

	str("PORT", &c.HTTP.Port)

	return errors.Join(
		num("DB_PORT", func(n int) { c.Database.Port = n }),
		num("DB_POOL_MIN_CONNS", func(n int) { c.Database.PoolMinConns = int32(n) }),
		num("DB_POOL_MAX_CONNS", func(n int) { c.Database.PoolMaxConns = int32(n) }),
		num("CHUNK_SIZE", func(n int) { c.Load.ChunkSize = n }),
	)
}

// Validate checks the settings every run needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Sources.NYSE == "" {
		errs = append(errs, errors.New("NYSE source path is required"))
	}
	if c.Sources.NASDAQ == "" {
		errs = append(errs, errors.New("NASDAQ source path is required"))
	}
	if c.Load.ChunkSize <= 0 || c.Load.ChunkSize > MaxChunkSize {
		errs = append(errs, fmt.Errorf("chunk size must be in 1..%d, got %d", MaxChunkSize, c.Load.ChunkSize))
	}
	return errors.Join(errs...)
}

// ValidateDatabase checks the settings a run that touches the database needs.
func (c *Config) ValidateDatabase() error {
	var errs []error
	if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
		errs = append(errs, errors.New("DATABASE_URL or database host and name are required"))
	}
	if c.Database.Table == "" {
		errs = append(errs, errors.New("target table is required"))
	}
	if c.Load.Migrate && !c.Database.IsMigratedTarget() {
		errs = append(errs, fmt.Errorf("migrations only create %s.%s, target is %s.%s",
			MigratedSchema, MigratedTable, c.Database.Schema, c.Database.Table))
	}
	if c.Database.PoolMinConns < 0 || c.Database.PoolMaxConns < 0 ||
		(c.Database.PoolMaxConns > 0 && c.Database.PoolMinConns > c.Database.PoolMaxConns) {
		errs = append(errs, fmt.Errorf("invalid pool size %d..%d", c.Database.PoolMinConns, c.Database.PoolMaxConns))
	}
	return errors.Join(errs...)
}

// IsMigratedTarget reports whether the target table is the one the embedded
// migrations manage.
func (d Database) IsMigratedTarget() bool {
	return (d.Schema == "" || d.Schema == MigratedSchema) && d.Table == MigratedTable
}

// ConnString returns DATABASE_URL when set, otherwise a postgres URL built
// from the discrete fields.
func (d Database) ConnString() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// DatabaseName is the database the target table lives in, for log context.
func (d Database) DatabaseName() string {
	if d.Name != "" && d.URL == "" {
		return d.Name
	}
	u, err := url.Parse(d.URL)
	if err != nil || len(u.Path) < 2 {
		return d.Name
	}
	return u.Path[1:]
}
