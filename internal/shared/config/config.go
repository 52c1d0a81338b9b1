package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Engine EngineConfig
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
	MaxConns int32  `toml:"max_conns"`
}

// EngineConfig holds the bidding-core tunables.
type EngineConfig struct {
	// EndingSoonWindow is how long before EndAt an auction is flagged ENDING_SOON.
	EndingSoonWindow time.Duration
	// SweepInterval is the cadence cmd/main drives the lifecycle sweep at.
	SweepInterval time.Duration
	// LockAcquireTimeout bounds how long a bid submission waits for the
	// per-auction critical section.
	LockAcquireTimeout time.Duration
	// CommitRetries bounds internal retries on ledger transaction conflicts.
	CommitRetries int
	// SweepParallelism bounds how many auctions one sweep transitions at once.
	SweepParallelism int
	// AllowSelfOutbid lets the standing high bidder raise their own bid
	// manually. Off by default.
	AllowSelfOutbid bool
}

// Default returns the engine's built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":9000"},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Name:     "bidinsouk",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Engine: EngineConfig{
			EndingSoonWindow:   10 * time.Minute,
			SweepInterval:      time.Minute,
			LockAcquireTimeout: 5 * time.Second,
			CommitRetries:      3,
			SweepParallelism:   4,
		},
	}
}

// Load reads config from the TOML file at path (skipped when missing), then
// applies .env / environment overrides for credentials and addresses.
func Load(path string) (*Config, error) {
	cfg := Default()

	if file, err := os.Open(path); err == nil {
		defer file.Close()
		fc := fileConfig{Server: cfg.Server, DB: cfg.DB}
		if err := toml.NewDecoder(file).Decode(&fc); err != nil {
			return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
		}
		cfg.Server = fc.Server
		cfg.DB = fc.DB
		fc.Engine.apply(&cfg.Engine)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: failed to open %s: %w", path, err)
	}

	_ = godotenv.Load()
	overlay(&cfg.Server.Addr, "SERVER_ADDR")
	overlay(&cfg.DB.Host, "DB_HOST")
	overlay(&cfg.DB.Port, "DB_PORT")
	overlay(&cfg.DB.User, "DB_USER")
	overlay(&cfg.DB.Password, "DB_PASSWORD")
	overlay(&cfg.DB.Name, "DB_NAME")
	overlay(&cfg.DB.SSLMode, "DB_SSLMODE")

	return cfg, nil
}

// fileConfig is the on-disk TOML shape. Engine values are pointers so absent
// keys keep their defaults, and durations decode from strings like "10m".
type fileConfig struct {
	Server ServerConfig `toml:"server"`
	DB     DBConfig     `toml:"db"`
	Engine fileEngine   `toml:"engine"`
}

type fileEngine struct {
	EndingSoonWindow   *duration `toml:"ending_soon_window"`
	SweepInterval      *duration `toml:"sweep_interval"`
	LockAcquireTimeout *duration `toml:"lock_acquire_timeout"`
	CommitRetries      *int      `toml:"commit_retries"`
	SweepParallelism   *int      `toml:"sweep_parallelism"`
	AllowSelfOutbid    *bool     `toml:"allow_self_outbid"`
}

func (fe fileEngine) apply(e *EngineConfig) {
	if fe.EndingSoonWindow != nil {
		e.EndingSoonWindow = time.Duration(*fe.EndingSoonWindow)
	}
	if fe.SweepInterval != nil {
		e.SweepInterval = time.Duration(*fe.SweepInterval)
	}
	if fe.LockAcquireTimeout != nil {
		e.LockAcquireTimeout = time.Duration(*fe.LockAcquireTimeout)
	}
	if fe.CommitRetries != nil {
		e.CommitRetries = *fe.CommitRetries
	}
	if fe.SweepParallelism != nil {
		e.SweepParallelism = *fe.SweepParallelism
	}
	if fe.AllowSelfOutbid != nil {
		e.AllowSelfOutbid = *fe.AllowSelfOutbid
	}
}

// duration parses TOML duration strings through time.ParseDuration.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DSN builds the postgres connection URL.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}
