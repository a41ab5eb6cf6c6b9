package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Preset        string
	Address       string
	NetworkID     uint64
	Transformer   string
	Store         string
	PGDSN         string
	MongoURI      string
	MongoDatabase string
	PollInterval  time.Duration
	Once          bool
	MaxRetries    int
	RetryBackoff  time.Duration
	MetricsAddr   string
	LogLevel      string
	LogFile       string

	// import
	In        string
	BatchSize int

	// show
	ID string
}

// Load merges config file, environment variables, flags and the selected
// preset into Config. Explicit settings win over preset values.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("mongo-uri", "INDEXER_MONGO_URI", "MONGO_URI"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	v.SetDefault("store", StoreMongo)
	v.SetDefault("mongo-database", "ethereum-indexer")
	v.SetDefault("poll-interval", 10*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	v.SetDefault("batch-size", 500)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Preset:        v.GetString("preset"),
		Address:       v.GetString("address"),
		NetworkID:     v.GetUint64("network-id"),
		Transformer:   v.GetString("transformer"),
		Store:         strings.ToLower(v.GetString("store")),
		PGDSN:         v.GetString("pg-dsn"),
		MongoURI:      v.GetString("mongo-uri"),
		MongoDatabase: v.GetString("mongo-database"),
		PollInterval:  v.GetDuration("poll-interval"),
		Once:          v.GetBool("once"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		MetricsAddr:   v.GetString("metrics-addr"),
		LogLevel:      v.GetString("log-level"),
		LogFile:       v.GetString("log-file"),
		In:            v.GetString("in"),
		BatchSize:     v.GetInt("batch-size"),
		ID:            v.GetString("id"),
	}

	if cfg.Preset != "" {
		preset, ok := LookupPreset(cfg.Preset)
		if !ok {
			return Config{}, fmt.Errorf("unknown preset %q (known: %s)", cfg.Preset, strings.Join(PresetNames(), ", "))
		}
		if !v.IsSet("address") {
			cfg.Address = preset.Address
		}
		if !v.IsSet("network-id") {
			cfg.NetworkID = preset.NetworkID
		}
		if !v.IsSet("transformer") {
			cfg.Transformer = preset.Transformer
		}
		if !v.IsSet("log-file") {
			cfg.LogFile = preset.LogFile
		}
	}

	return cfg, nil
}

// ContractAddress validates and parses Address.
func (c Config) ContractAddress() (common.Address, error) {
	if c.Address == "" {
		return common.Address{}, fmt.Errorf("address is required (set --address or --preset)")
	}
	if !common.IsHexAddress(c.Address) {
		return common.Address{}, fmt.Errorf("invalid address: %s", c.Address)
	}
	return common.HexToAddress(c.Address), nil
}

// ValidateStore checks the settings of the selected store backend.
func (c Config) ValidateStore() error {
	switch c.Store {
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg dsn is required for the postgres store")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("mongo uri is required for the mongo store (--mongo-uri or MONGO_URI)")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unsupported store %q", c.Store)
	}
	return nil
}

// ValidateRun checks everything the run command needs.
func (c Config) ValidateRun() error {
	if _, err := c.ContractAddress(); err != nil {
		return err
	}
	if c.Transformer == "" {
		return fmt.Errorf("transformer is required (set --transformer or --preset)")
	}
	if c.NetworkID == 0 {
		return fmt.Errorf("network id is required")
	}
	if !c.Once && c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be greater than zero")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	return c.ValidateStore()
}
