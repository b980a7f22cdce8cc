// Package config manages configuration for the mcpbox service.
// It uses Viper for unified configuration management from files and
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"mcpbox/internal/constants"
)

// Config represents the service configuration. Values are loaded from
// an optional YAML file and from environment variables with the MCPBOX_
// prefix; environment variables take precedence.
type Config struct {
	// Port is the HTTP listen port.
	Port int `mapstructure:"port" validate:"required,gt=0,lte=65535"`

	// Environment selects the logger output format.
	Environment constants.Environment `mapstructure:"environment" validate:"oneof=development production"`

	// LogLevel is the textual slog level (DEBUG, INFO, WARN, ERROR).
	LogLevel string `mapstructure:"log_level"`

	// RequestTimeout bounds each inbound HTTP request. Zero disables the
	// timeout middleware.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// ExternalCallTimeout bounds each call to the external control plane.
	ExternalCallTimeout time.Duration `mapstructure:"external_call_timeout" validate:"required"`

	// CloudAPIBase is the base URL of the external control-plane API.
	CloudAPIBase string `mapstructure:"cloud_api_base" validate:"required,url"`

	// ConfigsTable is the DynamoDB table holding provisioning configs.
	ConfigsTable string `mapstructure:"configs_table" validate:"required"`

	// CredentialPrefix is the Parameter Store path prefix under which
	// API credentials are stored by reference.
	CredentialPrefix string `mapstructure:"credential_prefix" validate:"required,startswith=/"`
}

var validate = validator.New()

// Load loads the configuration using Viper and validates it.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mcpbox")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable; env vars alone can carry
		// the full configuration.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	v.SetEnvPrefix("MCPBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("environment", string(constants.Development))
	v.SetDefault("log_level", "INFO")
	v.SetDefault("request_timeout", 60*time.Second)
	v.SetDefault("external_call_timeout", 15*time.Second)
	v.SetDefault("cloud_api_base", "https://api.cloudflare.com/client/v4")
	v.SetDefault("credential_prefix", "/mcpbox/credentials")
}

// bindEnvVars binds each key explicitly so AutomaticEnv resolution works
// for keys absent from both defaults and the config file.
func bindEnvVars(v *viper.Viper) {
	keys := []string{
		"port",
		"environment",
		"log_level",
		"request_timeout",
		"external_call_timeout",
		"cloud_api_base",
		"configs_table",
		"credential_prefix",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}
