package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
)

// EnvOverrides are settings that may be supplied through the environment. Set values win over
// the config file.
type EnvOverrides struct {
	ConfigPath string `env:"SYSID_CONFIG"`
	Debug      bool   `env:"SYSID_DEBUG" envDefault:"false"`
	Listen     string `env:"SYSID_LISTEN"`
	MQTTBroker string `env:"SYSID_MQTT_BROKER"`
}

// ReadEnvOverrides parses the overrides from the process environment. A non-nil environ is used
// in place of the process environment.
func ReadEnvOverrides(environ map[string]string) (EnvOverrides, error) {
	var overrides EnvOverrides
	var opts []env.Options
	if environ != nil {
		opts = append(opts, env.Options{Environment: environ})
	}
	if err := env.Parse(&overrides, opts...); err != nil {
		return EnvOverrides{}, errors.Wrap(err, "failed to parse environment")
	}
	return overrides, nil
}

// Read reads a config from the given file, expanding ${VAR} references from the environment.
func Read(filePath string, overrides EnvOverrides) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), overrides)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, overrides EnvOverrides) (*Config, error) {
	cfg := Config{
		ConfigFilePath: originalPath,
	}
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	cfg.applyOverrides(overrides)
	if err := cfg.Ensure(); err != nil {
		return nil, errors.Wrap(err, "failed to process Config")
	}
	return &cfg, nil
}

func (c *Config) applyOverrides(overrides EnvOverrides) {
	if overrides.Debug {
		c.Debug = true
	}
	if overrides.Listen != "" {
		c.Network.Listen = overrides.Listen
	}
	if overrides.MQTTBroker != "" {
		if c.Network.MQTT == nil {
			c.Network.MQTT = &MQTTConfig{}
		}
		c.Network.MQTT.Broker = overrides.MQTTBroker
	}
}
