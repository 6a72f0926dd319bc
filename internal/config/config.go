package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// Values come from the environment; an optional .env file is loaded first.
// Business code never reads raw environment variables.
type Config struct {
	App        AppConfig
	Storage    StorageConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	WhatsApp   WhatsAppConfig
	Simulation SimulationConfig
	Notify     NotifyConfig
	FollowUp   FollowUpConfig
}

type AppConfig struct {
	Env          string
	Port         int
	SeedDemoData bool
}

type StorageConfig struct {
	// Driver is "memory" (default) or "postgres".
	Driver string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig is optional. When Host is empty, settings live in memory
// and bulk sends are not slot-limited.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type WhatsAppConfig struct {
	AccessToken string
	PhoneID     string
	BaseURL     string
	Language    string
	// SimulationMode seeds the settings store; the stored flag wins afterwards.
	SimulationMode bool
}

type SimulationConfig struct {
	// Latency is the artificial delay of every backend sync.
	Latency time.Duration
	// SendDelay is the per-message delay of the simulated sender.
	SendDelay time.Duration
}

type NotifyConfig struct {
	TTL time.Duration
}

type FollowUpConfig struct {
	Interval time.Duration
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = collect(parseErrs, requiredInt("APP_PORT"))
	c.App.SeedDemoData, parseErrs = collect(parseErrs, optionalBool("SEED_DEMO_DATA", false))

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_DRIVER")))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = collect(parseErrs, optionalInt("DB_PORT", 5432))
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = collect(parseErrs, optionalInt("REDIS_PORT", 6379))
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL, parseErrs = collect(parseErrs, optionalDuration("JWT_ACCESS_TTL"))
	c.Auth.RefreshTokenTTL, parseErrs = collect(parseErrs, optionalDuration("JWT_REFRESH_TTL"))

	c.WhatsApp.AccessToken = os.Getenv("WHATSAPP_ACCESS_TOKEN")
	c.WhatsApp.PhoneID = strings.TrimSpace(os.Getenv("WHATSAPP_PHONE_ID"))
	c.WhatsApp.BaseURL = strings.TrimSpace(os.Getenv("WHATSAPP_BASE_URL"))
	c.WhatsApp.Language = strings.TrimSpace(os.Getenv("WHATSAPP_LANGUAGE"))
	c.WhatsApp.SimulationMode, parseErrs = collect(parseErrs, optionalBool("WHATSAPP_SIMULATION_MODE", true))

	c.Simulation.Latency, parseErrs = collect(parseErrs, optionalDuration("SIM_LATENCY"))
	c.Simulation.SendDelay, parseErrs = collect(parseErrs, optionalDuration("SIM_SEND_DELAY"))
	c.Notify.TTL, parseErrs = collect(parseErrs, optionalDuration("NOTIFY_TTL"))
	c.FollowUp.Interval, parseErrs = collect(parseErrs, optionalDuration("FOLLOWUP_INTERVAL"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		errs = append(errs, c.validateDB()...)
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be memory or postgres, got %q", c.Storage.Driver))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.WhatsApp.BaseURL == "" {
		c.WhatsApp.BaseURL = "https://graph.facebook.com/v18.0"
	}
	if c.WhatsApp.Language == "" {
		c.WhatsApp.Language = "pt_BR"
	}

	if c.Simulation.Latency <= 0 {
		c.Simulation.Latency = 300 * time.Millisecond
	}
	if c.Simulation.SendDelay <= 0 {
		c.Simulation.SendDelay = 100 * time.Millisecond
	}
	if c.Notify.TTL <= 0 {
		c.Notify.TTL = 4 * time.Second
	}
	if c.FollowUp.Interval <= 0 {
		c.FollowUp.Interval = time.Hour
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required for postgres storage"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required for postgres storage"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required for postgres storage"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) UsesPostgres() bool {
	return c.Storage.Driver == StoragePostgres
}

func (c Config) UsesRedis() bool {
	return c.Redis.Host != ""
}

// PostgresDSN contains secrets; never log it.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

type parsed[T any] struct {
	v   T
	err error
}

func collect[T any](errs []error, p parsed[T]) (T, []error) {
	if p.err != nil {
		errs = append(errs, p.err)
	}
	return p.v, errs
}

func requiredInt(key string) parsed[int] {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return parsed[int]{err: fmt.Errorf("%s is required", key)}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return parsed[int]{err: fmt.Errorf("%s must be an integer, got %q", key, v)}
	}
	return parsed[int]{v: n}
}

func optionalInt(key string, def int) parsed[int] {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return parsed[int]{v: def}
	}
	return requiredInt(key)
}

func optionalBool(key string, def bool) parsed[bool] {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return parsed[bool]{v: def}
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return parsed[bool]{err: fmt.Errorf("%s must be a boolean, got %q", key, v)}
	}
	return parsed[bool]{v: b}
}

func optionalDuration(key string) parsed[time.Duration] {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return parsed[time.Duration]{}
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return parsed[time.Duration]{err: fmt.Errorf("%s must be a duration, got %q", key, v)}
	}
	return parsed[time.Duration]{v: d}
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
