package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"golang.org/x/text/language"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	JWTSecret         string `env:"JWT_SECRET"`
	JWTAccessTTLMins  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMins int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	SortLocale string `env:"SORT_LOCALE" envDefault:"und"`
	IDStrategy string `env:"ID_STRATEGY" envDefault:"sequence"`
	SeedFile   string `env:"SEED_FILE"`

	OTPTTLMins     int `env:"OTP_TTL_MINUTES" envDefault:"10"`
	OTPMaxAttempts int `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	OTPRateLimit   int `env:"OTP_RATE_LIMIT" envDefault:"3"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

const (
	IDStrategySequence = "sequence"
	IDStrategyUUID     = "uuid"
)

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.IDStrategy {
	case IDStrategySequence, IDStrategyUUID:
	default:
		return fmt.Errorf("ID_STRATEGY must be %q or %q, got %q", IDStrategySequence, IDStrategyUUID, c.IDStrategy)
	}
	if _, err := language.Parse(c.SortLocale); err != nil {
		return fmt.Errorf("SORT_LOCALE: %w", err)
	}
	if c.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// Locale devuelve el tag de collation; Validate ya verifico que parsea.
func (c *Config) Locale() language.Tag {
	tag, err := language.Parse(c.SortLocale)
	if err != nil {
		return language.Und
	}
	return tag
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMins) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLMins) * time.Minute
}

func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLMins) * time.Minute
}

// SMTPEnabled reporta si hay datos suficientes para enviar correos.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}
