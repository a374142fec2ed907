package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/rs/zerolog"
)

const (
	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	DBDriver               string `env:"DB_DRIVER" envDefault:"mysql"`
	DBUser                 string `env:"DB_USER,required"`
	DBPassword             string `env:"DB_PASSWORD,required"`
	DBHost                 string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME,required"`
	DBPort                 string `env:"DB_PORT"`
	DBSSLMode              string `env:"DB_SSLMODE" envDefault:"disable"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	AutoMigrate            bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	AuthProvider      string `env:"AUTH_PROVIDER" envDefault:"jwt"`
	JWTSecret         string `env:"JWT_SECRET"`
	JWTIssuer         string `env:"JWT_ISSUER"`
	JWTAudience       string `env:"JWT_AUDIENCE"`
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	TranscriptBucket          string `env:"TRANSCRIPT_BUCKET"`
	TranscriptCredentialsFile string `env:"TRANSCRIPT_CREDENTIALS_FILE"`

	WSSendBuffer int `env:"WS_SEND_BUFFER" envDefault:"256"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings whose requirement depends on other settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres:
	default:
		errs = append(errs, errors.New("DB_DRIVER must be mysql or postgres"))
	}
	switch c.AuthProvider {
	case AuthProviderJWT:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required when AUTH_PROVIDER=jwt"))
		}
	case AuthProviderFirebase:
		if c.FirebaseProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required when AUTH_PROVIDER=firebase"))
		}
	default:
		errs = append(errs, errors.New("AUTH_PROVIDER must be jwt or firebase"))
	}
	if c.WSSendBuffer <= 0 {
		errs = append(errs, errors.New("WS_SEND_BUFFER must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// LogSummary writes which settings are present without their values.
func (c *Config) LogSummary(log zerolog.Logger) {
	originHosts := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			originHosts = append(originHosts, u.Host)
		}
	}
	log.Info().
		Str("env", c.Env).
		Str("db_driver", c.DBDriver).
		Bool("db_password_present", c.DBPassword != "").
		Bool("cloud_sql", c.InstanceConnectionName != "").
		Str("auth_provider", c.AuthProvider).
		Bool("jwt_secret_present", c.JWTSecret != "").
		Bool("firebase_project_present", c.FirebaseProjectID != "").
		Strs("allowed_origin_hosts", originHosts).
		Bool("transcript_archive", c.TranscriptBucket != "").
		Msg("config check")
}
