package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	API      APIConfig      `yaml:"api"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Log      LogConfig      `yaml:"log"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	ProxyURL  string        `yaml:"proxy_url"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
}

type StoreConfig struct {
	Backend  string        `yaml:"backend"`
	Path     string        `yaml:"path"`
	Secret   string        `yaml:"secret"`
	Profile  string        `yaml:"profile"`
	Debounce time.Duration `yaml:"debounce"`
	Watch    bool          `yaml:"watch"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// AllowedOrigins lists browser origins, besides the console's own,
	// that may call the console. Empty allows none.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RefreshConfig holds cron specs for background work. An empty spec
// disables the job.
type RefreshConfig struct {
	Session string `yaml:"session"`
	Lists   string `yaml:"lists"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when neither a file nor the
// environment say otherwise.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api",
			Timeout:   10 * time.Second,
			UserAgent: "shopadmin/1",
			Burst:     1,
		},
		Store: StoreConfig{
			Backend:  StoreFile,
			Path:     defaultStorePath(),
			Profile:  "default",
			Debounce: 200 * time.Millisecond,
			Watch:    true,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			User:         "postgres",
			Password:     "postgres",
			Database:     "shopadmin",
			SSLMode:      "disable",
			MaxOpenConns: 5,
			MaxIdleConns: 2,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Refresh: RefreshConfig{
			Session: "@every 5m",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at
// path (skipped when path is empty), then SHOPADMIN_* environment
// variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("SHOPADMIN_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.API.BaseURL = getEnv("SHOPADMIN_API_URL", c.API.BaseURL)
	c.API.Timeout = getEnvAsDuration("SHOPADMIN_API_TIMEOUT", c.API.Timeout)
	c.API.UserAgent = getEnv("SHOPADMIN_USER_AGENT", c.API.UserAgent)
	c.API.ProxyURL = getEnv("SHOPADMIN_PROXY_URL", c.API.ProxyURL)
	c.API.RateLimit = getEnvAsFloat("SHOPADMIN_API_RATE_LIMIT", c.API.RateLimit)
	c.API.Burst = getEnvAsInt("SHOPADMIN_API_BURST", c.API.Burst)

	c.Store.Backend = getEnv("SHOPADMIN_STORE", c.Store.Backend)
	c.Store.Path = getEnv("SHOPADMIN_STORE_PATH", c.Store.Path)
	c.Store.Secret = getEnv("SHOPADMIN_STORE_SECRET", c.Store.Secret)
	c.Store.Profile = getEnv("SHOPADMIN_PROFILE", c.Store.Profile)
	c.Store.Debounce = getEnvAsDuration("SHOPADMIN_STORE_DEBOUNCE", c.Store.Debounce)
	c.Store.Watch = getEnvAsBool("SHOPADMIN_STORE_WATCH", c.Store.Watch)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.AllowedOrigins = getEnvAsList("SERVER_ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Refresh.Session = getEnv("SHOPADMIN_REFRESH_SESSION", c.Refresh.Session)
	c.Refresh.Lists = getEnv("SHOPADMIN_REFRESH_LISTS", c.Refresh.Lists)

	c.Log.Level = getEnv("SHOPADMIN_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("SHOPADMIN_LOG_FORMAT", c.Log.Format)
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}
	switch c.Store.Backend {
	case StoreFile:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the file backend"))
		}
	case StorePostgres, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of file, postgres, memory", c.Store.Backend))
	}
	if c.Store.Profile == "" {
		errs = append(errs, errors.New("store.profile is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin == "*" {
			errs = append(errs, errors.New("server.allowed_origins must list origins, not \"*\""))
		}
	}
	return errors.Join(errs...)
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "shopadmin", "credentials.json")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("15s") or bare seconds ("15").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
