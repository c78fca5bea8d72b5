// Package config loads the YAML configuration shared by the commands.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/pointsbot/holdem/internal/logging"
	"github.com/pointsbot/holdem/pkg/gateway"
	"github.com/pointsbot/holdem/pkg/ledger"
	"github.com/pointsbot/holdem/pkg/poker"
	"github.com/pointsbot/holdem/pkg/server"
)

// DefaultFileName is the config file looked up in the data dir.
const DefaultFileName = "holdem.yaml"

// TableConfig holds the defaults for new rooms.
type TableConfig struct {
	SmallBlind    int64         `yaml:"smallBlind"`
	BigBlind      int64         `yaml:"bigBlind"`
	BuyIn         int64         `yaml:"buyIn"`
	MaxPlayers    int           `yaml:"maxPlayers"`
	TurnTimeout   time.Duration `yaml:"turnTimeout"`
	NextHandDelay time.Duration `yaml:"nextHandDelay"`
	RandomButton  bool          `yaml:"randomButton"`
}

// LedgerConfig selects the points store.
type LedgerConfig struct {
	Kind string `yaml:"kind"` // sqlite, file or memory
	Path string `yaml:"path"`
	// StartingPoints is granted to players with no balance by the hot-seat
	// client.
	StartingPoints int64 `yaml:"startingPoints"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxFiles  int    `yaml:"maxFiles"`
	MaxSizeKB int64  `yaml:"maxSizeKB"`
}

// GatewayConfig sets the per-player action rate limit.
type GatewayConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// Config is the complete configuration.
type Config struct {
	DataDir string `yaml:"-"`

	Table   TableConfig   `yaml:"table"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Log     LogConfig     `yaml:"log"`
	Gateway GatewayConfig `yaml:"gateway"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Table: TableConfig{
			SmallBlind:    10,
			BigBlind:      20,
			BuyIn:         0,
			MaxPlayers:    9,
			TurnTimeout:   60 * time.Second,
			NextHandDelay: 5 * time.Second,
		},
		Ledger: LedgerConfig{
			Kind:           ledger.KindSQLite,
			StartingPoints: 1000,
		},
		Log: LogConfig{
			Level:     "info",
			MaxFiles:  5,
			MaxSizeKB: 10 * 1024,
		},
		Gateway: GatewayConfig{
			Rate:  5,
			Burst: 2,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	bytes, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file [%s]: %w", path, err)
	}
	if err := yaml.Unmarshal(bytes, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config YAML file [%s]: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine would reject.
func (c *Config) Validate() error {
	t := c.Table
	if t.SmallBlind <= 0 || t.BigBlind < t.SmallBlind {
		return fmt.Errorf("invalid blinds %d/%d", t.SmallBlind, t.BigBlind)
	}
	if t.BuyIn < 0 {
		return fmt.Errorf("invalid buy-in %d", t.BuyIn)
	}
	if t.MaxPlayers < 2 || t.MaxPlayers > poker.MaxSeats {
		return fmt.Errorf("max players must be between 2 and %d, got %d", poker.MaxSeats, t.MaxPlayers)
	}
	if t.TurnTimeout < 0 || t.NextHandDelay < 0 {
		return errors.New("timeouts cannot be negative")
	}
	switch c.Ledger.Kind {
	case ledger.KindSQLite, ledger.KindFile, ledger.KindMemory:
	default:
		return fmt.Errorf("unknown ledger kind %q", c.Ledger.Kind)
	}
	if c.Ledger.StartingPoints < 0 {
		return fmt.Errorf("invalid starting points %d", c.Ledger.StartingPoints)
	}
	if c.Gateway.Rate < 0 || c.Gateway.Burst < 0 {
		return errors.New("gateway rate and burst cannot be negative")
	}
	return nil
}

// resolvePaths fills in file locations relative to the data dir.
func (c *Config) resolvePaths() {
	if c.Ledger.Path == "" {
		switch c.Ledger.Kind {
		case ledger.KindSQLite:
			c.Ledger.Path = filepath.Join(c.DataDir, "ledger.db")
		case ledger.KindFile:
			// Same layout as the points file of the original bot.
			c.Ledger.Path = filepath.Join(c.DataDir, "data", "points.json")
		}
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.DataDir, "logs", "holdem.log")
	}
}

// ServerConfig returns the room manager settings.
func (c *Config) ServerConfig() server.Config {
	return server.Config{
		SmallBlind:    c.Table.SmallBlind,
		BigBlind:      c.Table.BigBlind,
		BuyIn:         c.Table.BuyIn,
		MaxPlayers:    c.Table.MaxPlayers,
		TurnTimeout:   c.Table.TurnTimeout,
		NextHandDelay: c.Table.NextHandDelay,
		RandomButton:  c.Table.RandomButton,
	}
}

// GatewayConfig returns the action gateway settings.
func (c *Config) GatewayConfig() gateway.Config {
	return gateway.Config{
		Rate:  rate.Limit(c.Gateway.Rate),
		Burst: c.Gateway.Burst,
	}
}

// LogBackendConfig returns the logging settings.
func (c *Config) LogBackendConfig() logging.LogConfig {
	return logging.LogConfig{
		LogFile:      c.Log.File,
		DebugLevel:   c.Log.Level,
		MaxLogFiles:  c.Log.MaxFiles,
		MaxLogSizeKB: c.Log.MaxSizeKB,
	}
}

// Flags holds command line overrides.
type Flags struct {
	DataDir    *string
	ConfigFile *string
	DebugLevel *string
	LedgerKind *string
	LedgerPath *string
	BigBlind   *int64
	BuyIn      *int64
}

// RegisterFlags registers the common flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		DataDir:    fs.String("datadir", "", "Directory holding the config, ledger and logs"),
		ConfigFile: fs.String("config", "", "Path to config file (default <datadir>/"+DefaultFileName+")"),
		DebugLevel: fs.String("debuglevel", "", "Logging level: trace, debug, info, warn, error"),
		LedgerKind: fs.String("ledger", "", "Ledger kind: sqlite, file or memory"),
		LedgerPath: fs.String("ledgerpath", "", "Path to the ledger database or points file"),
		BigBlind:   fs.Int64("bigblind", 0, "Big blind (small blind is half)"),
		BuyIn:      fs.Int64("buyin", -1, "Buy-in per player (0 = whole balance)"),
	}
}

// LoadConfig loads the config for appName, applies flag overrides and
// validates the result.
func LoadConfig(flags *Flags, appName string) (*Config, error) {
	datadir := *flags.DataDir
	if datadir == "" {
		datadir = dcrutil.AppDataDir(appName, false)
	}
	path := *flags.ConfigFile
	if path == "" {
		path = filepath.Join(datadir, DefaultFileName)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = datadir

	if *flags.DebugLevel != "" {
		cfg.Log.Level = *flags.DebugLevel
	}
	if *flags.LedgerKind != "" {
		cfg.Ledger.Kind = *flags.LedgerKind
	}
	if *flags.LedgerPath != "" {
		cfg.Ledger.Path = *flags.LedgerPath
	}
	if *flags.BigBlind > 0 {
		cfg.Table.BigBlind = *flags.BigBlind
		cfg.Table.SmallBlind = *flags.BigBlind / 2
	}
	if *flags.BuyIn >= 0 {
		cfg.Table.BuyIn = *flags.BuyIn
	}

	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
