package commands

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"rewardfeed/internal/alert"
	"rewardfeed/internal/components/chrono"
	"rewardfeed/internal/components/telemetry"
	"rewardfeed/internal/fetcher"
	"rewardfeed/internal/publisher"
	"rewardfeed/internal/rewards"
	"rewardfeed/internal/store"
	"rewardfeed/pkg/configutil"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
)

const DefaultConfigPath = "config.json5"

const DefaultSourceUrl = "https://levvvel.com/coin-master-free-spins-coins/"

const (
	envStoreAuthToken = "REWARDFEED_STORE_AUTH_TOKEN"
	envRedisPassword  = "REWARDFEED_REDIS_PASSWORD"
	envSmtpPassword   = "REWARDFEED_SMTP_PASSWORD"
)

type SourceConfig struct {
	Url            string   `json:"url"`
	Prefixes       []string `json:"prefixes"`
	UserAgent      string   `json:"user_agent"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

func (c SourceConfig) FetcherOptions() fetcher.Options {
	return fetcher.Options{
		UserAgent: c.UserAgent,
		Timeout:   time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

type ViewerConfig struct {
	Addr string `json:"addr"`
	// PerfStatsSeconds is unset when it should take the default, 0 turns
	// perf stats off.
	PerfStatsSeconds *int `json:"perf_stats_seconds"`
}

func (c ViewerConfig) PerfStatsInterval() time.Duration {
	if c.PerfStatsSeconds == nil {
		return 0
	}
	return time.Duration(*c.PerfStatsSeconds) * time.Second
}

func intPtr(v int) *int {
	return &v
}

type Config struct {
	Source    SourceConfig         `json:"source"`
	TimeZone  string               `json:"time_zone"`
	Store     store.Config         `json:"store"`
	Publish   publisher.Options    `json:"publish"`
	Log       telemetry.LogConfig  `json:"log"`
	Telemetry telemetry.OtlpConfig `json:"telemetry"`
	// Pushgateway is the prometheus pushgateway run metrics are pushed to.
	Pushgateway string           `json:"pushgateway"`
	Alert       alert.SmtpConfig `json:"alert"`
	Viewer      ViewerConfig     `json:"viewer"`
}

func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Url:            DefaultSourceUrl,
			Prefixes:       rewards.DefaultPrefixes,
			UserAgent:      fetcher.DefaultUserAgent,
			TimeoutSeconds: int(fetcher.DefaultTimeout / time.Second),
		},
		TimeZone: chrono.DefaultZone,
		Store: store.Config{
			Driver: store.DriverSQLite,
			Path:   "data/rewardfeed.db",
		},
		Publish: publisher.Options{}.WithDefaults(),
		Viewer: ViewerConfig{
			Addr:             "127.0.0.1:8080",
			PerfStatsSeconds: intPtr(15),
		},
	}
}

// LoadConfig reads the config at path, a missing file leaves every setting at
// its default. Secrets are read from the environment (and a .env file).
func LoadConfig(path string) (Config, error) {
	// a missing .env is fine, the variables may be set directly
	_ = godotenv.Load()

	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	// without dereferencing, an explicit 0 is kept instead of taking the default
	err = mergo.Merge(&cfg, DefaultConfig(), mergo.WithoutDereference)
	if err != nil {
		return Config{}, err
	}

	if token, ok := os.LookupEnv(envStoreAuthToken); ok {
		cfg.Store.AuthToken = token
	}
	if password, ok := os.LookupEnv(envRedisPassword); ok {
		cfg.Store.Redis.Password = password
	}
	if password, ok := os.LookupEnv(envSmtpPassword); ok {
		cfg.Alert.Password = password
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	parsed, err := url.Parse(c.Source.Url)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("source url %q must be an absolute http(s) url", c.Source.Url)
	}
	for _, prefix := range c.Source.Prefixes {
		if prefix == "" {
			return fmt.Errorf("source prefixes must not be empty")
		}
	}
	if _, err := chrono.NewStandardTime(c.TimeZone); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Publish.Validate(); err != nil {
		return err
	}
	if c.Viewer.PerfStatsSeconds != nil && *c.Viewer.PerfStatsSeconds < 0 {
		return fmt.Errorf("viewer perf_stats_seconds must not be negative")
	}
	return c.Alert.Validate()
}
