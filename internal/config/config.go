package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration. Every engine receives the
// slice of it that it needs at construction; nothing reads the environment
// after Load returns.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	LogLevel    int    `env:"LOG_LEVEL" envDefault:"0"`

	ThrottleDir   string `env:"THROTTLE_DB_DIR" envDefault:"data/throttle"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DB" envDefault:"buckles"`

	Credential Credential `envPrefix:"CREDENTIAL_"`
	Throttle   Throttle   `envPrefix:"THROTTLE_"`
}

// Credential holds credential-engine parameters.
type Credential struct {
	SaltLength int `env:"SALT_LENGTH" envDefault:"56"`
}

// Throttle holds login-throttle parameters. CounterTTL bounds how long a
// failed-attempt counter survives without new failures.
type Throttle struct {
	CounterTTL time.Duration `env:"COUNTER_TTL" envDefault:"1h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
