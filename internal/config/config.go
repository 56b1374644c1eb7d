// Package config loads watcher configuration from a YAML file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"garden-volume-watch/internal/logging"
)

// Config is the full application configuration.
type Config struct {
	Logging    logging.Config     `yaml:"logging"`
	Feed       FeedConfig         `yaml:"feed"`
	Watcher    WatcherConfig      `yaml:"watcher"`
	Providers  ProvidersConfig    `yaml:"providers"`
	GardenTime map[string]float64 `yaml:"gardenTime" envconfig:"GARDEN_TIME"`
	Storage    StorageConfig      `yaml:"storage"`
	Publish    PublishConfig      `yaml:"publish"`
	API        APIConfig          `yaml:"api"`
}

// FeedConfig locates the catalog and the matched orders feed.
type FeedConfig struct {
	CatalogURL string        `yaml:"catalogUrl" envconfig:"NETWORK_API_URL"`
	OrdersURL  string        `yaml:"ordersUrl" envconfig:"ORDERS_API_URL"`
	PageSize   int           `yaml:"pageSize" envconfig:"PAGE_SIZE"`
	Page       int           `yaml:"page" envconfig:"PAGE_NUMBER"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"FEED_TIMEOUT"`
}

// WatcherConfig controls the poll loop.
type WatcherConfig struct {
	PollInterval    time.Duration `yaml:"pollInterval" envconfig:"POLL_INTERVAL"`
	OrdersPerPoll   int           `yaml:"ordersPerPoll" envconfig:"ORDERS_PER_POLL"`
	VolumeThreshold float64       `yaml:"volumeThreshold" envconfig:"VOLUME_THRESHOLD"`
	Concurrency     int           `yaml:"concurrency" envconfig:"CONVERT_CONCURRENCY"`
	FeeModel        string        `yaml:"feeModel" envconfig:"FEE_MODEL"`
	RecentLimit     int           `yaml:"recentLimit" envconfig:"RECENT_LIMIT"`
}

// ProviderConfig is the per-provider connection setting.
type ProviderConfig struct {
	URL       string  `yaml:"url"`
	RateLimit float64 `yaml:"rateLimit"` // requests per second, 0 disables
	Burst     int     `yaml:"burst"`
}

// ProvidersConfig configures competitor quoting.
type ProvidersConfig struct {
	Timeout   time.Duration  `yaml:"timeout" envconfig:"PROVIDER_TIMEOUT"`
	Disabled  []string       `yaml:"disabled" envconfig:"PROVIDERS_DISABLED"`
	Relay     RelayConfig    `yaml:"relay"`
	Thor      ThorConfig     `yaml:"thor"`
	Chainflip ProviderConfig `yaml:"chainflip"`
}

// RelayConfig adds Relay specifics.
type RelayConfig struct {
	ProviderConfig  `yaml:",inline"`
	BitcoinSwapTime float64 `yaml:"bitcoinSwapTime" envconfig:"RELAY_BTC_SWAP_TIME"`
}

// ThorConfig adds THORSwap specifics.
type ThorConfig struct {
	ProviderConfig  `yaml:",inline"`
	APIKey          string `yaml:"apiKey" envconfig:"THORSWAP_API_KEY"`
	Affiliate       string `yaml:"affiliate"`
	AffiliateFeeBps int    `yaml:"affiliateFeeBps"`
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// StorageConfig selects where processed ids and outcomes are kept.
type StorageConfig struct {
	Backend       string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	PostgresDSN   string `yaml:"postgresDsn" envconfig:"POSTGRES_DSN"`
	ClickHouseDSN string `yaml:"clickhouseDsn" envconfig:"CLICKHOUSE_DSN"`
	BadgerPath    string `yaml:"badgerPath" envconfig:"BADGER_PATH"`
}

// PublishConfig controls rendering and publishing.
type PublishConfig struct {
	CardDir     string `yaml:"cardDir" envconfig:"CARD_DIR"`
	RequireSave bool   `yaml:"requireSavings" envconfig:"REQUIRE_SAVINGS"`
}

// APIConfig controls the HTTP status server.
type APIConfig struct {
	ListenAddr string `yaml:"listenAddr" envconfig:"LISTEN_ADDR"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Logging: logging.Config{Level: "info", Encoding: "json"},
		Feed: FeedConfig{
			CatalogURL: "https://api.garden.finance/info/assets",
			OrdersURL:  "https://api.garden.finance/orders/matched",
			PageSize:   1,
			Page:       1,
			Timeout:    30 * time.Second,
		},
		Watcher: WatcherConfig{
			PollInterval:    10 * time.Second,
			OrdersPerPoll:   5,
			VolumeThreshold: 300,
			Concurrency:     4,
			FeeModel:        "usd",
			RecentLimit:     100,
		},
		Providers: ProvidersConfig{
			Timeout: 10 * time.Second,
			Relay: RelayConfig{
				ProviderConfig:  ProviderConfig{URL: "https://api.relay.link/quote", RateLimit: 5, Burst: 2},
				BitcoinSwapTime: 1200,
			},
			Thor: ThorConfig{
				ProviderConfig:  ProviderConfig{URL: "https://api.thorswap.net/aggregator/tokens/quote", RateLimit: 5, Burst: 2},
				Affiliate:       "t",
				AffiliateFeeBps: 50,
			},
			Chainflip: ProviderConfig{URL: "https://chainflip-swap.chainflip.io", RateLimit: 5, Burst: 2},
		},
		Storage: StorageConfig{
			Backend:    BackendMemory,
			BadgerPath: "./data/processed",
		},
		Publish: PublishConfig{
			CardDir:     "./cards",
			RequireSave: true,
		},
		API: APIConfig{ListenAddr: ":8080"},
	}
}

// Load reads configFile (optional) over the defaults, then applies environment overrides.
func Load(configFile string) (*Config, error) {
	cfg := Default()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	// "dummy" keeps envconfig from matching prefixed names; fields are read
	// from the unprefixed names in their tags.
	if err := envconfig.Process("dummy", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the watcher cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Feed.CatalogURL == "" {
		errs = append(errs, errors.New("feed.catalogUrl is required"))
	}
	if c.Feed.OrdersURL == "" {
		errs = append(errs, errors.New("feed.ordersUrl is required"))
	}
	if c.Feed.PageSize < 1 {
		errs = append(errs, errors.New("feed.pageSize must be positive"))
	}
	if c.Feed.Page < 1 {
		errs = append(errs, errors.New("feed.page must be positive"))
	}
	if c.Watcher.PollInterval <= 0 {
		errs = append(errs, errors.New("watcher.pollInterval must be positive"))
	}
	if c.Watcher.VolumeThreshold < 0 {
		errs = append(errs, errors.New("watcher.volumeThreshold must not be negative"))
	}
	if c.Watcher.Concurrency < 1 {
		errs = append(errs, errors.New("watcher.concurrency must be positive"))
	}
	if c.Providers.Timeout <= 0 {
		errs = append(errs, errors.New("providers.timeout must be positive"))
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgresDsn is required for the postgres backend"))
		}
	case BackendBadger:
		if c.Storage.BadgerPath == "" {
			errs = append(errs, errors.New("storage.badgerPath is required for the badger backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	return errors.Join(errs...)
}

// ProviderEnabled reports whether name is not listed in Providers.Disabled.
func (c *Config) ProviderEnabled(name string) bool {
	for _, d := range c.Providers.Disabled {
		if d == name {
			return false
		}
	}
	return true
}
