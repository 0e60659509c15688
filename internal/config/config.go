package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_ENV"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv          string        `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`      // e.g., debug, info, warn, error
	AuthLoginPath   string        `envconfig:"AUTH_LOGIN_PATH" default:"/login"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s"`
	HttpServer      ServerConfig
	GrpcServer      GrpcServerConfig
	Postgres        PostgresConfig
	WooCommerce     WooCommerceConfig
	CMS             CMSConfig
	Identity        IdentityConfig
	Geocoder        GeocoderConfig
	Kafka           KafkaConfig
	Catalog         CatalogConfig
	Session         SessionConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port           string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite   time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"30s"`
	TimeoutIdle    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	RequestTimeout time.Duration `envconfig:"HTTP_SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL connection details. Leaving POSTGRES_HOST
// empty keeps session data in memory.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME" default:"storefront"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// Enabled reports whether a database is configured.
func (pc *PostgresConfig) Enabled() bool {
	return pc.Host != ""
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// URL is the postgres:// form of the DSN, as the migrator expects it.
func (pc *PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pc.User, pc.Password),
		Host:     pc.Host + ":" + pc.Port,
		Path:     "/" + pc.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(pc.SSLMode),
	}
	return u.String()
}

// WooCommerceConfig holds the commerce backend credentials. They never reach the browser.
type WooCommerceConfig struct {
	BaseURL        string `envconfig:"WOOCOMMERCE_BASE_URL" required:"true"`
	ConsumerKey    string `envconfig:"WOOCOMMERCE_CONSUMER_KEY" required:"true"`
	ConsumerSecret string `envconfig:"WOOCOMMERCE_CONSUMER_SECRET" required:"true"`
}

type CMSConfig struct {
	BaseURL string `envconfig:"CMS_BASE_URL" default:"http://localhost:3000"`
	APIKey  string `envconfig:"CMS_API_KEY"`
}

type IdentityConfig struct {
	BaseURL         string        `envconfig:"IDENTITY_BASE_URL" default:"https://identitytoolkit.googleapis.com"`
	TokenURL        string        `envconfig:"IDENTITY_TOKEN_URL" default:"https://securetoken.googleapis.com"`
	APIKey          string        `envconfig:"IDENTITY_API_KEY"`
	RefreshInterval time.Duration `envconfig:"IDENTITY_REFRESH_INTERVAL" default:"30m"`
}

type GeocoderConfig struct {
	BaseURL   string `envconfig:"GEOCODER_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	UserAgent string `envconfig:"GEOCODER_USER_AGENT" default:"storefront-service"`
}

// KafkaConfig enables event publishing when SeedBrokers is non-empty.
type KafkaConfig struct {
	SeedBrokers []string `envconfig:"KAFKA_SEED_BROKERS"`
	EventsTopic string   `envconfig:"KAFKA_EVENTS_TOPIC" default:"storefront-events"`
}

type CatalogConfig struct {
	TopCategories int `envconfig:"CATALOG_TOP_CATEGORIES" default:"10"`
}

type SessionConfig struct {
	CookieName   string        `envconfig:"SESSION_COOKIE_NAME" default:"storefront_session"`
	CookieMaxAge time.Duration `envconfig:"SESSION_COOKIE_MAX_AGE" default:"720h"`
	CookieSecure bool          `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
	// In-memory carts unused for IdleTTL are dropped; persisted state is kept.
	IdleTTL      time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
	MaxCarts     int           `envconfig:"SESSION_MAX_CARTS" default:"10000"`
}

// Load reads an optional .env file and then the process environment.
// A missing env file is not an error.
func Load(envFile string, log logrus.FieldLogger) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.WithField("env_file", envFile).Info("No env file loaded, relying on system environment")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if cfg.Catalog.TopCategories <= 0 {
		return nil, fmt.Errorf("invalid CATALOG_TOP_CATEGORIES: %d", cfg.Catalog.TopCategories)
	}
	if cfg.Postgres.Enabled() && (cfg.Postgres.User == "" || cfg.Postgres.DBName == "") {
		return nil, fmt.Errorf("POSTGRES_USER and POSTGRES_DBNAME are required when POSTGRES_HOST is set")
	}

	log.WithField("app_env", cfg.AppEnv).Info("Configuration loaded")
	return &cfg, nil
}

// LoadPostgres reads only the database settings, for tools such as the
// migrator that do not need the upstream credentials.
func LoadPostgres(envFile string, log logrus.FieldLogger) (PostgresConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.WithField("env_file", envFile).Info("No env file loaded, relying on system environment")
		}
	}
	var pc PostgresConfig
	if err := envconfig.Process("", &pc); err != nil {
		return PostgresConfig{}, fmt.Errorf("failed to process configuration: %w", err)
	}
	if !pc.Enabled() {
		return PostgresConfig{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	return pc, nil
}

// NewLogger builds the JSON logger used across the service.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		log.WithField("log_level", level).Warn("Unknown log level, using info")
	}
	log.SetLevel(lvl)
	return log
}
