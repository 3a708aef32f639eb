package store

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultAddr is the address used when none is configured.
const DefaultAddr = "localhost:6379"

const envPrefix = "REDISKIT"

// Config holds the Redis connection settings.
type Config struct {
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// LoadConfig builds a Config from the environment. Settings are read from
// REDISKIT_ADDR, REDISKIT_PASSWORD, and REDISKIT_DB, falling back to the
// client defaults (localhost:6379, no password, database 0). No config
// file is consulted.
func LoadConfig() (Config, error) {
	vip := viper.New()
	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()

	vip.SetDefault("addr", DefaultAddr)
	vip.SetDefault("password", "")
	vip.SetDefault("db", 0)

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal store config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid store config: %w", err)
	}

	return cfg, nil
}
