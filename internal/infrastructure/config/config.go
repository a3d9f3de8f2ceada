package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Sync       SyncConfig
	Connectors ConnectorsConfig
	Storage    StorageConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. Redis is optional: it
// backs the cross-instance run lock and is skipped when disabled.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// SyncConfig holds sync orchestration settings shared by all
// connectors.
type SyncConfig struct {
	SchedulerEnabled bool
	DefaultInterval  time.Duration
	RunTimeout       time.Duration
	FetchRetries     int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	// FailureReplayLimit bounds how many recorded failures one run replays
	FailureReplayLimit int
	// RunLockTTL bounds how long a crashed instance can hold a connector
	RunLockTTL time.Duration
}

// ConnectorsConfig holds per-marketplace API settings. A connector
// with Enabled=false is not registered at all.
type ConnectorsConfig struct {
	Ozon         OzonConnectorConfig
	Wildberries  WBConnectorConfig
	YandexMarket YMConnectorConfig
}

// OzonConnectorConfig holds Ozon Seller API settings. FBS and FBO
// share credentials but sync independently.
type OzonConnectorConfig struct {
	FBSEnabled bool
	FBOEnabled bool
	ClientID   string
	APIKey     string
	BaseURL    string
	PageSize   int
	Interval   time.Duration
	Overlap    time.Duration
	Lookback   time.Duration
}

// WBConnectorConfig holds Wildberries statistics API settings.
type WBConnectorConfig struct {
	Enabled  bool
	APIToken string
	BaseURL  string
	Interval time.Duration
	Overlap  time.Duration
	Lookback time.Duration
}

// YMConnectorConfig holds Yandex Market partner API settings.
type YMConnectorConfig struct {
	Enabled    bool
	CampaignID string
	APIKey     string
	BaseURL    string
	PageSize   int
	Interval   time.Duration
	Overlap    time.Duration
	Lookback   time.Duration
}

// StorageConfig holds S3-compatible storage settings for raw payload
// archival. Optional; archival is skipped when disabled.
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MPO_ prefix (e.g., MPO_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("MPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			SchedulerEnabled:   v.GetBool("sync.scheduler_enabled"),
			DefaultInterval:    v.GetDuration("sync.default_interval"),
			RunTimeout:         v.GetDuration("sync.run_timeout"),
			FetchRetries:       v.GetInt("sync.fetch_retries"),
			RetryBaseDelay:     v.GetDuration("sync.retry_base_delay"),
			RetryMaxDelay:      v.GetDuration("sync.retry_max_delay"),
			FailureReplayLimit: v.GetInt("sync.failure_replay_limit"),
			RunLockTTL:         v.GetDuration("sync.run_lock_ttl"),
		},
		Connectors: ConnectorsConfig{
			Ozon: OzonConnectorConfig{
				FBSEnabled: v.GetBool("connectors.ozon.fbs_enabled"),
				FBOEnabled: v.GetBool("connectors.ozon.fbo_enabled"),
				ClientID:   v.GetString("connectors.ozon.client_id"),
				APIKey:     v.GetString("connectors.ozon.api_key"),
				BaseURL:    v.GetString("connectors.ozon.base_url"),
				PageSize:   v.GetInt("connectors.ozon.page_size"),
				Interval:   v.GetDuration("connectors.ozon.interval"),
				Overlap:    v.GetDuration("connectors.ozon.overlap"),
				Lookback:   v.GetDuration("connectors.ozon.lookback"),
			},
			Wildberries: WBConnectorConfig{
				Enabled:  v.GetBool("connectors.wildberries.enabled"),
				APIToken: v.GetString("connectors.wildberries.api_token"),
				BaseURL:  v.GetString("connectors.wildberries.base_url"),
				Interval: v.GetDuration("connectors.wildberries.interval"),
				Overlap:  v.GetDuration("connectors.wildberries.overlap"),
				Lookback: v.GetDuration("connectors.wildberries.lookback"),
			},
			YandexMarket: YMConnectorConfig{
				Enabled:    v.GetBool("connectors.yandexmarket.enabled"),
				CampaignID: v.GetString("connectors.yandexmarket.campaign_id"),
				APIKey:     v.GetString("connectors.yandexmarket.api_key"),
				BaseURL:    v.GetString("connectors.yandexmarket.base_url"),
				PageSize:   v.GetInt("connectors.yandexmarket.page_size"),
				Interval:   v.GetDuration("connectors.yandexmarket.interval"),
				Overlap:    v.GetDuration("connectors.yandexmarket.overlap"),
				Lookback:   v.GetDuration("connectors.yandexmarket.lookback"),
			},
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mpoffice-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "mpoffice"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Sync.DefaultInterval == 0 {
		cfg.Sync.DefaultInterval = 15 * time.Minute
	}
	if cfg.Sync.RunTimeout == 0 {
		cfg.Sync.RunTimeout = 10 * time.Minute
	}
	if cfg.Sync.FetchRetries == 0 {
		cfg.Sync.FetchRetries = 3
	}
	if cfg.Sync.RetryBaseDelay == 0 {
		cfg.Sync.RetryBaseDelay = 2 * time.Second
	}
	if cfg.Sync.RetryMaxDelay == 0 {
		cfg.Sync.RetryMaxDelay = time.Minute
	}
	if cfg.Sync.FailureReplayLimit == 0 {
		cfg.Sync.FailureReplayLimit = 500
	}
	if cfg.Sync.RunLockTTL == 0 {
		cfg.Sync.RunLockTTL = 15 * time.Minute
	}
	// Connector windows share conservative defaults; the overlap keeps
	// late-visible records from slipping between runs.
	for _, overlap := range []*time.Duration{
		&cfg.Connectors.Ozon.Overlap,
		&cfg.Connectors.Wildberries.Overlap,
		&cfg.Connectors.YandexMarket.Overlap,
	} {
		if *overlap == 0 {
			*overlap = 30 * time.Minute
		}
	}
	for _, lookback := range []*time.Duration{
		&cfg.Connectors.Ozon.Lookback,
		&cfg.Connectors.Wildberries.Lookback,
		&cfg.Connectors.YandexMarket.Lookback,
	} {
		if *lookback == 0 {
			*lookback = 30 * 24 * time.Hour
		}
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	if (c.Connectors.Ozon.FBSEnabled || c.Connectors.Ozon.FBOEnabled) &&
		(c.Connectors.Ozon.ClientID == "" || c.Connectors.Ozon.APIKey == "") {
		return fmt.Errorf("connectors.ozon.client_id and connectors.ozon.api_key are required when an Ozon connector is enabled")
	}
	if c.Connectors.Wildberries.Enabled && c.Connectors.Wildberries.APIToken == "" {
		return fmt.Errorf("connectors.wildberries.api_token is required when the Wildberries connector is enabled")
	}
	if c.Connectors.YandexMarket.Enabled &&
		(c.Connectors.YandexMarket.CampaignID == "" || c.Connectors.YandexMarket.APIKey == "") {
		return fmt.Errorf("connectors.yandexmarket.campaign_id and connectors.yandexmarket.api_key are required when the Yandex Market connector is enabled")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
