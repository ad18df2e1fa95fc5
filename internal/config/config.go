package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the User-Agent the headless browser and the image client present upstream.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"

// DefaultTorSocksProxy is the SOCKS endpoint of a local Tor daemon.
const DefaultTorSocksProxy = "socks5://127.0.0.1:9050"

type Config struct {
	Server struct {
		Port        int    `mapstructure:"port"`
		Address     string `mapstructure:"address"`
		MaxUploadMB int    `mapstructure:"max_upload_mb"`
	} `mapstructure:"server"`
	LogLevel    string `mapstructure:"log_level"`
	DebugErrors bool   `mapstructure:"debug_errors"`
	APIKey      string `mapstructure:"api_key"`
	Browser     struct {
		Headless        bool    `mapstructure:"headless"`
		ExecPath        string  `mapstructure:"exec_path"`
		PoolSize        int     `mapstructure:"pool_size"`
		PoolWait        string  `mapstructure:"pool_wait"` // Go duration string like "30s"
		UserAgent       string  `mapstructure:"user_agent"`
		Locale          string  `mapstructure:"locale"`
		WorkDir         string  `mapstructure:"work_dir"`
		TranslateURL    string  `mapstructure:"translate_url"`
		NaturalDelayMin float64 `mapstructure:"natural_delay_min"` // seconds
		NaturalDelayMax float64 `mapstructure:"natural_delay_max"` // seconds
	} `mapstructure:"browser"`
	Tor struct {
		Enabled    bool   `mapstructure:"enabled"`
		SocksProxy string `mapstructure:"socks_proxy"`
	} `mapstructure:"tor"`
	Translation struct {
		DefaultTimeoutMs int `mapstructure:"default_timeout_ms"`
		MaxTimeoutMs     int `mapstructure:"max_timeout_ms"`
	} `mapstructure:"translation"`
	Breaker struct {
		FailureThreshold int    `mapstructure:"failure_threshold"`
		OpenTimeout      string `mapstructure:"open_timeout"`
	} `mapstructure:"breaker"`
	Cache struct {
		Enabled bool   `mapstructure:"enabled"`
		Type    string `mapstructure:"type"` // "memory" or "redis"
		Size    int    `mapstructure:"size"` // Maximum number of entries in the LRU cache
		TTL     string `mapstructure:"ttl"`  // Go duration string like "1h", "24h", etc.
		Redis   struct {
			Address  string `mapstructure:"address"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	GRPC struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"grpc"`
	Sentry struct {
		DSN         string `mapstructure:"dsn"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"sentry"`
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
	logger       zerolog.Logger
)

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()
}

// Initialize loads the configuration, applies the log level and stores the result
// as the process-wide configuration returned by GetConfig.
func Initialize() (*Config, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	// Parse and set log level from config
	level := zerolog.InfoLevel // default
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)

	logger.Info().Str("level", level.String()).Msg("Logging configured")

	configMu.Lock()
	globalConfig = config
	configMu.Unlock()

	logger.Info().Msg("Configuration loaded successfully")
	return config, nil
}

func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg("Failed to load .env file")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()
	bindLegacyEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.Browser.UserAgent == "" {
		config.Browser.UserAgent = DefaultUserAgent
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.address", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.max_upload_mb", 20)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("debug_errors", false)
	viper.SetDefault("api_key", "")

	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.exec_path", "")
	viper.SetDefault("browser.pool_size", 2)
	viper.SetDefault("browser.pool_wait", "30s")
	viper.SetDefault("browser.user_agent", DefaultUserAgent)
	viper.SetDefault("browser.locale", "en-US")
	viper.SetDefault("browser.work_dir", "works")
	viper.SetDefault("browser.translate_url", "https://translate.google.com/")
	viper.SetDefault("browser.natural_delay_min", 1.0)
	viper.SetDefault("browser.natural_delay_max", 3.0)

	viper.SetDefault("tor.enabled", false)
	viper.SetDefault("tor.socks_proxy", "")

	viper.SetDefault("translation.default_timeout_ms", 90000)
	viper.SetDefault("translation.max_timeout_ms", 300000)

	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.open_timeout", "60s")

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.type", "memory")
	viper.SetDefault("cache.size", 200)
	viper.SetDefault("cache.ttl", "1h")
	viper.SetDefault("cache.redis.address", "localhost:6379")
	viper.SetDefault("cache.redis.password", "")
	viper.SetDefault("cache.redis.db", 0)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("grpc.enabled", false)
	viper.SetDefault("grpc.port", 9091)

	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
}

// bindLegacyEnv keeps the unprefixed variable names deployments already use.
// The APP_-prefixed form is listed first and wins when both are set.
func bindLegacyEnv() {
	legacy := map[string]string{
		"log_level":                 "LOG_LEVEL",
		"debug_errors":              "DEBUG_ERRORS",
		"api_key":                   "API_KEY",
		"tor.enabled":               "TOR_ENABLED",
		"tor.socks_proxy":           "TOR_SOCKS_PROXY",
		"browser.headless":          "HEADLESS",
		"browser.work_dir":          "WORK_DIR",
		"browser.pool_size":         "BROWSER_POOL_SIZE",
		"browser.natural_delay_min": "NATURAL_DELAY_MIN_S",
		"browser.natural_delay_max": "NATURAL_DELAY_MAX_S",
		"sentry.dsn":                "SENTRY_DSN",
	}
	for key, env := range legacy {
		prefixed := "APP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = viper.BindEnv(key, prefixed, env)
	}
}

// GetConfig returns the process-wide configuration. When Initialize has not run
// (tests, library use) the defaults are loaded on first access.
func GetConfig() *Config {
	configMu.RLock()
	cfg := globalConfig
	configMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	loaded, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	configMu.Lock()
	defer configMu.Unlock()
	if globalConfig == nil {
		globalConfig = loaded
	}
	return globalConfig
}

func GetLogger() zerolog.Logger {
	return logger
}

// TorSocksProxy returns the configured Tor endpoint, falling back to the local daemon default.
func (c *Config) TorSocksProxy() string {
	if proxy := strings.TrimSpace(c.Tor.SocksProxy); proxy != "" {
		return proxy
	}
	return DefaultTorSocksProxy
}

// DefaultTimeout is the rendering budget used when a request does not carry one.
func (c *Config) DefaultTimeout() time.Duration {
	if c.Translation.DefaultTimeoutMs <= 0 {
		return 90 * time.Second
	}
	return time.Duration(c.Translation.DefaultTimeoutMs) * time.Millisecond
}

// MaxTimeout is the upper bound accepted for a request's timeout_ms.
func (c *Config) MaxTimeout() time.Duration {
	if c.Translation.MaxTimeoutMs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Translation.MaxTimeoutMs) * time.Millisecond
}

// ParseDuration parses a Go duration string from the config, logging and
// returning fallback when the value is empty or malformed.
func ParseDuration(name, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn().Err(err).Str("setting", name).Str("value", value).Dur("fallback", fallback).Msg("Invalid duration, using default")
		return fallback
	}
	return parsed
}
