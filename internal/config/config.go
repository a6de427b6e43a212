// Package config carga la configuración del proceso.
// Orden: valores por defecto, archivo YAML (CONFIG_FILE), variables de entorno.
// Un .env en el directorio de trabajo se carga sin pisar el entorno real.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port      string `yaml:"port"`
	BaseURL   string `yaml:"base_url"`
	SecretKey string `yaml:"secret_key"`

	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	Mail      MailConfig      `yaml:"mail"`
	Upload    UploadConfig    `yaml:"upload"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`

	BcryptCost      int  `yaml:"bcrypt_cost"`
	ValidateEmailMX bool `yaml:"validate_email_mx"`
}

type DBConfig struct {
	Driver string `yaml:"driver"` // postgres | mysql | sqlite | memory
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MailConfig struct {
	Transport   string `yaml:"transport"` // smtp | amqp | log
	Server      string `yaml:"server"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	UseTLS      bool   `yaml:"use_tls"`
	UseSSL      bool   `yaml:"use_ssl"`
	Sender      string `yaml:"sender"`
	RabbitMQURL string `yaml:"rabbitmq_url"`
}

type UploadConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type SessionConfig struct {
	TTL          time.Duration `yaml:"ttl"`
	CookieSecure bool          `yaml:"cookie_secure"`
}

type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Capacity       int           `yaml:"capacity"`
	RefillTokens   int           `yaml:"refill_tokens"`
	RefillInterval time.Duration `yaml:"refill_interval"`
	TTL            time.Duration `yaml:"ttl"`
	Prefix         string        `yaml:"prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	App    string `yaml:"app"`
}

var ErrMissingSecret = errors.New("config: SECRET_KEY is required")

func Default() Config {
	return Config{
		Port:    "8080",
		BaseURL: "http://localhost:8080",
		DB:      DBConfig{Driver: "memory"},
		Mail: MailConfig{
			Transport: "log",
			Port:      465,
			UseSSL:    true,
			Sender:    "petpal@localhost",
		},
		Upload:  UploadConfig{Dir: "uploads", MaxBytes: 6 * 1024 * 1024},
		Session: SessionConfig{TTL: 24 * time.Hour},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			Capacity:       10,
			RefillTokens:   1,
			RefillInterval: 6 * time.Second,
			TTL:            10 * time.Minute,
			Prefix:         "rl",
		},
		Log:        LogConfig{Level: "info", Format: "text", App: "petpal"},
		BcryptCost: 10,
	}
}

// Load arma la configuración completa. Un error aquí debe abortar el arranque.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: .env: %w", err)
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnvOverrides()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setStr(&c.Port, "PORT")
	setStr(&c.BaseURL, "BASE_URL")
	setStr(&c.SecretKey, "SECRET_KEY")

	setStr(&c.DB.Driver, "DB_DRIVER")
	setStr(&c.DB.DSN, "DB_DSN")

	setStr(&c.Redis.Addr, "REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		c.Redis.Addr = host + ":" + port
	}
	setStr(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")

	setStr(&c.Mail.Transport, "MAIL_TRANSPORT")
	setStr(&c.Mail.Server, "MAIL_SERVER")
	setInt(&c.Mail.Port, "MAIL_PORT")
	setStr(&c.Mail.Username, "MAIL_USERNAME")
	setStr(&c.Mail.Password, "MAIL_PASSWORD")
	setBool(&c.Mail.UseTLS, "MAIL_USE_TLS")
	setBool(&c.Mail.UseSSL, "MAIL_USE_SSL")
	setStr(&c.Mail.Sender, "MAIL_SENDER")
	setStr(&c.Mail.RabbitMQURL, "RABBITMQ_URL")

	setStr(&c.Upload.Dir, "UPLOAD_DIR")
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Upload.MaxBytes = n
		}
	}

	setDur(&c.Session.TTL, "SESSION_TTL")
	setBool(&c.Session.CookieSecure, "COOKIE_SECURE")

	setBool(&c.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	setInt(&c.RateLimit.Capacity, "RATE_LIMIT_CAPACITY")
	setInt(&c.RateLimit.RefillTokens, "RATE_LIMIT_REFILL_TOKENS")
	setDur(&c.RateLimit.RefillInterval, "RATE_LIMIT_REFILL_INTERVAL")
	setDur(&c.RateLimit.TTL, "RATE_LIMIT_TTL")
	setStr(&c.RateLimit.Prefix, "RATE_LIMIT_PREFIX")

	setStr(&c.Log.Level, "LOG_LEVEL")
	setStr(&c.Log.Format, "LOG_FORMAT")
	setStr(&c.Log.App, "APP_NAME")

	setInt(&c.BcryptCost, "BCRYPT_COST")
	setBool(&c.ValidateEmailMX, "VALIDATE_EMAIL_MX")
}

func (c *Config) normalize() {
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.DB.Driver == "" || (c.DB.DSN == "" && c.DB.Driver != "memory") {
		c.DB.Driver = "memory"
	}
	c.Mail.Transport = strings.ToLower(strings.TrimSpace(c.Mail.Transport))
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	rl := &c.RateLimit
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 24 * time.Hour
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return ErrMissingSecret
	}
	switch c.DB.Driver {
	case "memory", "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Mail.Transport {
	case "log", "smtp", "amqp":
	default:
		return fmt.Errorf("config: unsupported MAIL_TRANSPORT %q", c.Mail.Transport)
	}
	if c.Mail.Transport == "amqp" && strings.TrimSpace(c.Mail.RabbitMQURL) == "" {
		return errors.New("config: RABBITMQ_URL is required for MAIL_TRANSPORT=amqp")
	}
	return nil
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

func setDur(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
