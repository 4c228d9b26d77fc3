package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "CARTSHARE"

type Config struct {
	App      AppConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Firebase FirebaseConfig
	Cart     CartConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"CARTSHARE_APP_ENV" default:"dev"`
	Port            string        `envconfig:"CARTSHARE_APP_PORT" default:"8080"`
	LogLevel        string        `envconfig:"CARTSHARE_LOG_LEVEL" default:"info"`
	RequestTimeout  time.Duration `envconfig:"CARTSHARE_REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"CARTSHARE_SHUTDOWN_TIMEOUT" default:"10s"`
}

type MongoConfig struct {
	URI      string `envconfig:"CARTSHARE_MONGO_URI" default:"mongodb://localhost:27017"`
	Database string `envconfig:"CARTSHARE_MONGO_DB" default:"cartshare"`
}

type RedisConfig struct {
	Addr     string `envconfig:"CARTSHARE_REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"CARTSHARE_REDIS_PASSWORD"`
	DB       int    `envconfig:"CARTSHARE_REDIS_DB" default:"0"`
}

type KafkaConfig struct {
	Brokers       []string `envconfig:"CARTSHARE_KAFKA_BROKERS" default:"localhost:9092"`
	CheckoutTopic string   `envconfig:"CARTSHARE_KAFKA_CHECKOUT_TOPIC" default:"checkout-completed"`
	ConsumerGroup string   `envconfig:"CARTSHARE_KAFKA_CONSUMER_GROUP" default:"cartshare-checkout"`
}

type FirebaseConfig struct {
	ProjectID    string `envconfig:"CARTSHARE_FIREBASE_PROJECT_ID"`
	AuthDisabled bool   `envconfig:"CARTSHARE_AUTH_DISABLED" default:"false"`
	DevUserID    string `envconfig:"CARTSHARE_DEV_USER_ID" default:"dev-user"`
}

type CartConfig struct {
	SaveTimeout     time.Duration `envconfig:"CARTSHARE_CART_SAVE_TIMEOUT" default:"5s"`
	SessionIdleTTL  time.Duration `envconfig:"CARTSHARE_SESSION_IDLE_TTL" default:"30m"`
	RetentionDays   int           `envconfig:"CARTSHARE_CART_RETENTION_DAYS" default:"30"`
	CatalogPageSize int           `envconfig:"CARTSHARE_CATALOG_PAGE_SIZE" default:"25"`
}

// RetentionWindow returns the item retention window as a duration.
func (c CartConfig) RetentionWindow() time.Duration {
	days := c.RetentionDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}
