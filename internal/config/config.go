package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/dental-api/internal/service/dashboard"
	"github.com/jwalitptl/dental-api/internal/service/treatment"
	"github.com/jwalitptl/dental-api/internal/session"
	"github.com/jwalitptl/dental-api/internal/store"
	"github.com/jwalitptl/dental-api/pkg/email"
	"github.com/jwalitptl/dental-api/pkg/kvstore"
	"github.com/jwalitptl/dental-api/pkg/kvstore/redis"
	"github.com/jwalitptl/dental-api/pkg/messaging"
	"github.com/jwalitptl/dental-api/pkg/security"
)

// EnvPrefix prefixes every environment variable the service reads.
const EnvPrefix = "DENTAL"

type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Log       LogConfig           `mapstructure:"log"`
	JWT       JWTConfig           `mapstructure:"jwt"`
	Session   session.Config      `mapstructure:"session"`
	Store     store.BackendConfig `mapstructure:"store"`
	Messaging MessagingConfig     `mapstructure:"messaging"`
	Clinic    ClinicConfig        `mapstructure:"clinic"`
	Dashboard dashboard.Config    `mapstructure:"dashboard"`
	RateLimit RateLimitConfig     `mapstructure:"rate_limit"`
	Security  SecurityConfig      `mapstructure:"security"`
	Email     email.Config        `mapstructure:"email"`
	Metrics   MetricsConfig       `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type MessagingConfig struct {
	Backend string       `mapstructure:"backend"`
	Channel string       `mapstructure:"channel"`
	Redis   redis.Config `mapstructure:"redis"`
}

type ClinicConfig struct {
	TimeZone      string `mapstructure:"timezone"`
	RevenuePolicy string `mapstructure:"revenue_policy"`
	SeedDemoData  bool   `mapstructure:"seed_demo_data"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	BcryptCost     int      `mapstructure:"bcrypt_cost"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// envOverrides are the short DENTAL_* variables applied after the file and
// the nested DENTAL_SECTION_KEY variables.
type envOverrides struct {
	Port          *int    `envconfig:"PORT"`
	LogLevel      *string `envconfig:"LOG_LEVEL"`
	JWTSecret     *string `envconfig:"JWT_SECRET"`
	StoreBackend  *string `envconfig:"STORE_BACKEND"`
	BadgerPath    *string `envconfig:"BADGER_PATH"`
	RedisURL      *string `envconfig:"REDIS_URL"`
	DBHost        *string `envconfig:"DB_HOST"`
	DBPort        *int    `envconfig:"DB_PORT"`
	DBUser        *string `envconfig:"DB_USER"`
	DBPassword    *string `envconfig:"DB_PASSWORD"`
	DBName        *string `envconfig:"DB_NAME"`
	TimeZone      *string `envconfig:"TIMEZONE"`
	RevenuePolicy *string `envconfig:"REVENUE_POLICY"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "dental-api")

	defaults := session.DefaultConfig()
	v.SetDefault("session.ttl", defaults.TTL)
	v.SetDefault("session.remember_ttl", defaults.RememberTTL)
	v.SetDefault("session.login_delay", defaults.LoginDelay)

	v.SetDefault("store.backend", kvstore.BackendMemory)
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.badger.path", "./data/badger")
	v.SetDefault("store.badger.in_memory", false)
	v.SetDefault("store.badger.sync_writes", true)
	v.SetDefault("store.badger.gc_interval", 5*time.Minute)
	v.SetDefault("store.badger.gc_discard_ratio", 0.5)
	v.SetDefault("store.redis.url", "redis://localhost:6379/0")
	v.SetDefault("store.redis.key_prefix", "")
	v.SetDefault("store.redis.max_retries", 3)
	v.SetDefault("store.redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("store.redis.pool_size", 10)
	v.SetDefault("store.redis.min_idle_conns", 2)
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.name", "dental")
	v.SetDefault("store.postgres.sslmode", "disable")
	v.SetDefault("store.postgres.table", "kv_store")

	v.SetDefault("messaging.backend", messaging.BackendMemory)
	v.SetDefault("messaging.channel", messaging.DefaultChannel)
	v.SetDefault("messaging.redis.url", "redis://localhost:6379/0")
	v.SetDefault("messaging.redis.max_retries", 3)
	v.SetDefault("messaging.redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("messaging.redis.pool_size", 10)
	v.SetDefault("messaging.redis.min_idle_conns", 2)

	v.SetDefault("clinic.timezone", "Local")
	v.SetDefault("clinic.revenue_policy", string(treatment.PolicyMonth))
	v.SetDefault("clinic.seed_demo_data", true)

	v.SetDefault("dashboard.cache_ttl", 30*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 1.0)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.bcrypt_cost", 10)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.host", "localhost")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "no-reply@entnt.in")

	v.SetDefault("metrics.namespace", "dental")
}

// Load reads path, or config.yaml from the usual locations when path is
// empty. A missing file is not an error; defaults and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}

	setInt(&c.Server.Port, env.Port)
	setString(&c.Log.Level, env.LogLevel)
	setString(&c.JWT.Secret, env.JWTSecret)
	setString(&c.Store.Backend, env.StoreBackend)
	setString(&c.Store.Badger.Path, env.BadgerPath)
	if env.RedisURL != nil {
		c.Store.Redis.URL = *env.RedisURL
		c.Messaging.Redis.URL = *env.RedisURL
	}
	setString(&c.Store.Postgres.Host, env.DBHost)
	setInt(&c.Store.Postgres.Port, env.DBPort)
	setString(&c.Store.Postgres.User, env.DBUser)
	setString(&c.Store.Postgres.Password, env.DBPassword)
	setString(&c.Store.Postgres.Name, env.DBName)
	setString(&c.Clinic.TimeZone, env.TimeZone)
	setString(&c.Clinic.RevenuePolicy, env.RevenuePolicy)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Session.TTL <= 0 || c.Session.RememberTTL <= 0 {
		return fmt.Errorf("session ttl and remember_ttl must be positive")
	}
	if c.Session.LoginDelay < 0 {
		return fmt.Errorf("session login_delay must not be negative")
	}
	switch c.Store.Backend {
	case kvstore.BackendMemory, kvstore.BackendBadger, kvstore.BackendRedis, kvstore.BackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.EncryptionKey != "" {
		if _, err := security.NewAESEncryptorFromHex(c.Store.EncryptionKey); err != nil {
			return fmt.Errorf("store encryption_key must be a 16, 24 or 32 byte hex key: %w", err)
		}
	}
	switch c.Messaging.Backend {
	case messaging.BackendMemory, messaging.BackendRedis:
	default:
		return fmt.Errorf("unknown messaging backend %q", c.Messaging.Backend)
	}
	if _, err := treatment.ParseRevenuePolicy(c.Clinic.RevenuePolicy); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the clinic time zone used for "today" and calendar days.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Clinic.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid clinic timezone %q: %w", c.Clinic.TimeZone, err)
	}
	return loc, nil
}

// Policy returns the parsed revenue policy. Validate has already checked it.
func (c *Config) Policy() treatment.RevenuePolicy {
	p, _ := treatment.ParseRevenuePolicy(c.Clinic.RevenuePolicy)
	return p
}
