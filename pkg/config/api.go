package config

import (
	"errors"
	"net"
	"strings"
	"time"
)

// Mail drivers understood by the API service.
const (
	MailDriverLog   = "log"
	MailDriverSMTP  = "smtp"
	MailDriverRedis = "redis"
)

// APIConfig holds runtime configuration for the accounts API service.
type APIConfig struct {
	Environment   string        `env:"APP_ENV" envDefault:"development"`
	Port          string        `env:"PORT" envDefault:"5000"`
	DatabaseURL   string        `env:"DATABASE_URL" envDefault:"postgres://accounts:accounts@db:5432/accounts?sslmode=disable"`
	MigrationsDir string        `env:"DB_MIGRATIONS_DIR" envDefault:"db/migrations"`
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"supersecuresecret"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	MailDriver    string        `env:"MAIL_DRIVER" envDefault:"log"`
	MailFrom      string        `env:"MAIL_FROM"`
	MailTimeout   time.Duration `env:"MAIL_TIMEOUT" envDefault:"15s"`
	SMTPHost      string        `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort      int           `env:"SMTP_PORT" envDefault:"587"`
	EmailUser     string        `env:"EMAIL_USER"`
	EmailPass     string        `env:"EMAIL_PASS"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	MailOutboxKey string        `env:"MAIL_OUTBOX_KEY" envDefault:"accounts:mail:outbox"`
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() (APIConfig, error) {
	var cfg APIConfig
	if err := Load(&cfg); err != nil {
		return APIConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return APIConfig{}, err
	}
	return cfg, nil
}

// Addr returns the listen address derived from Port.
func (c APIConfig) Addr() string {
	port := strings.TrimSpace(c.Port)
	if strings.Contains(port, ":") {
		return port
	}
	return net.JoinHostPort("", port)
}

// Validate reports configuration that would leave the service unusable.
func (c APIConfig) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	switch c.MailDriver {
	case MailDriverLog, MailDriverRedis:
	case MailDriverSMTP:
		if c.EmailUser == "" || c.EmailPass == "" {
			return errors.New("config: EMAIL_USER and EMAIL_PASS are required for the smtp mail driver")
		}
	default:
		return errors.New("config: unsupported MAIL_DRIVER " + c.MailDriver)
	}
	return nil
}

// Sender returns the envelope sender for outgoing mail.
func (c APIConfig) Sender() string {
	if from := strings.TrimSpace(c.MailFrom); from != "" {
		return from
	}
	return c.EmailUser
}
