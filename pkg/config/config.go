package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string  `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP    `yaml:"http"`
	Postgres PG      `yaml:"postgres"`
	Redis    Redis   `yaml:"redis"`
	Kafka    Kafka   `yaml:"kafka"`
	Outbox   Outbox  `yaml:"outbox"`
	Limiter  Limiter `yaml:"limiter"`
	Metrics  Metrics `yaml:"metrics"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":8001"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
}

type Outbox struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"OUTBOX_POLL_INTERVAL" env-default:"3s"`
	BatchSize    int           `yaml:"batch_size" env:"OUTBOX_BATCH_SIZE" env-default:"50"`
	MaxAttempts  int32         `yaml:"max_attempts" env:"OUTBOX_MAX_ATTEMPTS" env-default:"10"`
}

type Limiter struct {
	Window time.Duration `yaml:"window" env:"LIMITER_WINDOW" env-default:"10s"`
	Limit  int           `yaml:"limit" env:"LIMITER_LIMIT" env-default:"5"`
}

type Metrics struct {
	Port string `yaml:"port" env:"METRICS_PORT" env-default:":9091"`
}

// MustLoad reads the yaml config pointed at by CONFIG_PATH, falling back to
// plain environment variables when no file is configured.
func MustLoad() *Config {
	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Fatalf("config file does not exist: %v", err)
		}

		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("error reading config: %v", err)
		}

		return &cfg
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("error reading config from env: %v", err)
	}

	return &cfg
}
