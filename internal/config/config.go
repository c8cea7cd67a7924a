package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort int    `mapstructure:"apiPort"`
	Env     string `mapstructure:"env"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Database Database `mapstructure:"database"`
	JWT      JWT      `mapstructure:"jwt"`

	Auth struct {
		BcryptCost    int `mapstructure:"bcryptCost"`
		ResetTokenTTL int `mapstructure:"resetTokenTtl"` // minutes
	} `mapstructure:"auth"`

	Mail     Mail     `mapstructure:"mail"`
	CORS     CORS     `mapstructure:"cors"`
	Throttle Throttle `mapstructure:"throttle"`
	Archive  Archive  `mapstructure:"archive"`
}

type Database struct {
	Type       string `mapstructure:"type"` // sqlite or postgres
	Path       string `mapstructure:"path"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	MaxConns   int    `mapstructure:"maxConns"`
	MaxRetries int    `mapstructure:"maxRetries"`
	RetryDelay int    `mapstructure:"retryDelay"` // seconds
}

// JWT lifetimes are expressed in minutes.
type JWT struct {
	Secret     string `mapstructure:"secret"`
	TTL        int    `mapstructure:"ttl"`
	RefreshTTL int    `mapstructure:"refreshTtl"`
	Issuer     string `mapstructure:"issuer"`
}

type Mail struct {
	Driver     string `mapstructure:"driver"` // smtp or log
	AdminEmail string `mapstructure:"adminEmail"`
	From       string `mapstructure:"from"`
	SMTPHost   string `mapstructure:"smtpHost"`
	SMTPPort   int    `mapstructure:"smtpPort"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Timezone   string `mapstructure:"timezone"`
}

type CORS struct {
	FrontendURL    string   `mapstructure:"frontendUrl"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type Throttle struct {
	Backend       string `mapstructure:"backend"` // memory or redis
	RedisAddr     string `mapstructure:"redisAddr"`
	RedisPassword string `mapstructure:"redisPassword"`
	RedisDB       int    `mapstructure:"redisDb"`

	// Proxies whose X-Forwarded-For / X-Real-IP are believed. Empty means the socket peer is the client.
	TrustedProxies []string `mapstructure:"trustedProxies"`
}

// Archive points at an S3-compatible bucket. An empty bucket disables archiving.
type Archive struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	Prefix          string `mapstructure:"prefix"`
}

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:5040",
	"http://localhost:5174",
	"http://127.0.0.1:5174",
	"https://novostroy.org",
	"https://www.novostroy.org",
	"https://admin.novostroy.org",
	"https://auth.novostroy.org",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("apiPort", 8000)
	v.SetDefault("env", "production")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "data/novostroy.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "novostroy")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxConns", 10)
	v.SetDefault("database.maxRetries", 5)
	v.SetDefault("database.retryDelay", 2)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 60)
	v.SetDefault("jwt.refreshTtl", 20160)
	v.SetDefault("jwt.issuer", "novostroy-api")

	v.SetDefault("auth.bcryptCost", 12)
	v.SetDefault("auth.resetTokenTtl", 60)

	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.adminEmail", "admin@novostroy.ru")
	v.SetDefault("mail.from", "noreply@novostroy.org")
	v.SetDefault("mail.smtpHost", "localhost")
	v.SetDefault("mail.smtpPort", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.timezone", "Europe/Moscow")

	v.SetDefault("cors.frontendUrl", "http://localhost:5173")
	v.SetDefault("cors.allowedOrigins", []string{})

	v.SetDefault("throttle.backend", "memory")
	v.SetDefault("throttle.redisAddr", "localhost:6379")
	v.SetDefault("throttle.redisPassword", "")
	v.SetDefault("throttle.redisDb", 0)
	v.SetDefault("throttle.trustedProxies", []string{})

	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.accessKeyId", "")
	v.SetDefault("archive.secretAccessKey", "")
	v.SetDefault("archive.prefix", "service-requests")
}

// LoadConfig loads the configuration from file and environment variables.
// Nested keys map to upper-case variables with underscores, e.g. jwt.secret -> JWT_SECRET.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		slog.Warn("config file not found, using defaults and environment", "path", path)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORS.AllowedOrigins = mergeOrigins(cfg.CORS.FrontendURL, cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"port", cfg.APIPort,
		"db", cfg.Database.Type,
		"mail", cfg.Mail.Driver,
		"throttle", cfg.Throttle.Backend,
	)
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.APIPort <= 0 {
		return errors.New("config: apiPort must be positive")
	}
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database type %q", c.Database.Type)
	}
	if c.JWT.TTL <= 0 || c.JWT.RefreshTTL < c.JWT.TTL {
		return errors.New("config: jwt.ttl must be positive and not exceed jwt.refreshTtl")
	}
	if len(c.JWT.Secret) < 32 && !c.IsLocal() {
		return errors.New("config: jwt.secret must be at least 32 characters")
	}
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	switch c.Mail.Driver {
	case "smtp", "log":
	default:
		return fmt.Errorf("config: unsupported mail driver %q", c.Mail.Driver)
	}
	switch c.Throttle.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unsupported throttle backend %q", c.Throttle.Backend)
	}
	return nil
}

// IsLocal reports whether the service runs in a developer or test environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "testing"
}

func mergeOrigins(frontend string, extra []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(o string) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			return
		}
		seen[o] = true
		out = append(out, o)
	}
	add(frontend)
	for _, o := range defaultOrigins {
		add(o)
	}
	for _, o := range extra {
		add(o)
	}
	return out
}
