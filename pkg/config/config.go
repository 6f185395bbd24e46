// Package config loads and validates the indexer configuration.
package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the indexer process configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP query API settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host" default:"0.0.0.0"`
	Port            int           `mapstructure:"port" default:"8080"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" default:"30s"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"30s"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" default:"localhost" validate:"required"`
	Port     int    `mapstructure:"port" default:"5432"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database" default:"escrow_indexer"`
	SSLMode  string `mapstructure:"ssl_mode" default:"disable"`
}

// EthereumConfig contains chain client and escrow contract settings.
type EthereumConfig struct {
	RPCURL             string        `mapstructure:"rpc_url" validate:"required,url"`
	ContractAddress    string        `mapstructure:"contract_address" validate:"required"`
	PollingInterval    time.Duration `mapstructure:"polling_interval" default:"5s"`
	StartBlock         int64         `mapstructure:"start_block"`
	ConfirmationBlocks int64         `mapstructure:"confirmation_blocks" default:"3"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `mapstructure:"output_path" default:"stdout"`
}

// Load reads configuration from the given yaml file and environment variables,
// applies defaults for unset fields, and validates the result.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := defaults.Set(&config); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// GetConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
