package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	pkglog "github.com/christmas-fire/nexus-push/internal/log"
)

const (
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
)

// Notification triggers: a Redis stream fed by the chat API, or the
// creation of message documents in Firestore.
const (
	TriggerStream   = "stream"
	TriggerDocument = "document"
)

type Config struct {
	Server    ServerConfig
	Health    HealthConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Firestore FirestoreConfig
	Redis     RedisConfig
	FCM       FCMConfig `mapstructure:"fcm"`
	Notifier  NotifierConfig
	Log       pkglog.Config
}

type ServerConfig struct {
	Host string
	Port int `validate:"min=1,max=65535"`
}

type HealthConfig struct {
	GRPCPort    int `mapstructure:"grpc_port" validate:"min=1,max=65535"`
	MetricsPort int `mapstructure:"metrics_port" validate:"min=1,max=65535"`
}

type StoreConfig struct {
	Driver string `validate:"oneof=postgres firestore"`
}

type PostgresConfig struct {
	DSN string
}

type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	// Lookback is how far before start-up the message listener looks for
	// messages that were never notified.
	Lookback time.Duration `validate:"gte=0"`
}

type RedisConfig struct {
	Address  string `validate:"required"`
	Password string
	DB       int
	Stream   string        `validate:"required"`
	Group    string        `validate:"required"`
	Consumer string        `validate:"required"`
	MaxLen   int64         `mapstructure:"max_len" validate:"gte=0"`
	Block    time.Duration `validate:"gt=0"`
}

type FCMConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	DryRun          bool   `mapstructure:"dry_run"`
}

type NotifierConfig struct {
	// Trigger is TriggerStream or TriggerDocument; empty picks the one that
	// fits the store driver.
	Trigger string        `validate:"omitempty,oneof=stream document"`
	Workers int           `validate:"min=1"`
	Timeout time.Duration `validate:"gt=0"`
	Texts   TextsConfig
}

// TextsConfig overrides the localized notification strings. Empty values
// keep the built-in defaults.
type TextsConfig struct {
	Title       string
	Photo       string
	Voice       string
	Unsupported string
}

// Load reads config.yaml (optional), .env (optional) and the environment.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("health.grpc_port", 9090)
	v.SetDefault("health.metrics_port", 9091)
	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "messages")
	v.SetDefault("redis.group", "notifier")
	v.SetDefault("redis.consumer", defaultConsumer())
	v.SetDefault("redis.max_len", 100000)
	v.SetDefault("redis.block", "5s")
	v.SetDefault("firestore.lookback", "10m")
	v.SetDefault("fcm.dry_run", false)
	v.SetDefault("notifier.workers", 16)
	v.SetDefault("notifier.timeout", "60s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("postgres.dsn", "POSTGRES_DSN")
	v.BindEnv("firestore.project_id", "FIRESTORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	v.BindEnv("firestore.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
	v.BindEnv("fcm.project_id", "FCM_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	v.BindEnv("fcm.credentials_file", "FCM_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.consumer", "REDIS_CONSUMER", "HOSTNAME")
	v.BindEnv("log.level", "LOG_LEVEL")
}

// defaultConsumer names this process inside the consumer group. It must
// survive restarts so that pending entries come back to the same consumer.
func defaultConsumer() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "notifier"
	}
	return host
}

// Trigger returns the configured notification trigger, or the default for
// the store driver.
func (c *Config) Trigger() string {
	if c.Notifier.Trigger != "" {
		return c.Notifier.Trigger
	}
	if c.Store.Driver == DriverFirestore {
		return TriggerDocument
	}
	return TriggerStream
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("invalid config: postgres.dsn is required when store.driver is postgres")
		}
	case DriverFirestore:
		if c.Firestore.ProjectID == "" {
			return errors.New("invalid config: firestore.project_id is required when store.driver is firestore")
		}
	}

	if c.Trigger() == TriggerDocument && c.Store.Driver != DriverFirestore {
		return errors.New("invalid config: notifier.trigger document needs store.driver firestore")
	}

	return nil
}
