// Package configuration defines the configuration engine of the toolkit.
//
// The configuration features:
//   - automatically loads the environment variables files.
//   - allows setting default variables if user didn't define them.
//   - converts the raw variables into the validated Settings record.
package configuration

import (
	"fmt"

	"github.com/CyberFFarm/Helios-Cron/env"
	"github.com/CyberFFarm/Helios-Cron/log"
	"github.com/spf13/viper"
)

// Config is the configuration engine based on viper.Viper
type Config struct {
	viper  *viper.Viper // used to keep default values
	logger *log.Logger
}

// New creates the configuration for the workflow.
// Loads the .env of the working directory and the given env files,
// then reads the variables from the environment.
func New(parent *log.Logger, envPaths ...string) (*Config, error) {
	logger := parent.Child("configuration")

	logger.Debug("loading environment files", "paths", envPaths)
	if err := env.LoadAnyEnv(envPaths...); err != nil {
		return nil, fmt.Errorf("env.LoadAnyEnv: %w", err)
	}

	conf := Config{
		viper:  viper.New(),
		logger: logger,
	}
	conf.viper.AutomaticEnv()
	conf.SetDefaults(Defaults)

	return &conf, nil
}

// SetLogger replaces the logger of the configuration with the child of the parent.
// The child takes the level of the parent at the time of the call.
func (config *Config) SetLogger(parent *log.Logger) {
	config.logger = parent.Child("configuration")
}

// SetDefaults sets the default configuration parameters.
func (config *Config) SetDefaults(defaultConfig DefaultConfig) {
	config.logger.Debug("set the default config parameters", "title", defaultConfig.Title)

	for name, value := range defaultConfig.Parameters {
		if value == nil {
			continue
		}
		config.SetDefault(name, value)
	}
}

// SetDefault sets the default configuration name to the value
func (config *Config) SetDefault(name string, value interface{}) {
	config.viper.SetDefault(name, value)
}

// Set overrides the value, for example with the flag or the vault secret.
func (config *Config) Set(name string, value interface{}) {
	config.viper.Set(name, value)
}

// Exist checks whether the configuration variable exists or not.
// If the configuration exists or its default value exists, then returns true.
func (config *Config) Exist(name string) bool {
	value := config.viper.GetString(name)
	return len(value) > 0
}

// GetString returns the configuration parameter as a string
func (config *Config) GetString(name string) string {
	return config.viper.GetString(name)
}

// GetUint64 returns the configuration parameter as an unsigned 64 bit number
func (config *Config) GetUint64(name string) uint64 {
	return config.viper.GetUint64(name)
}
