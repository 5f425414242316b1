// Package config loads the TOML configuration of the eventdelegator tool.
package config

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/chrisuehlinger/eventdelegator/eventargs"
)

// Config is the root configuration document.
type Config struct {
	Delegator DelegatorConfig `toml:"delegator"`
	Log       LogConfig       `toml:"log"`
	Args      ArgsConfig      `toml:"args"`
}

// DelegatorConfig configures the registry.
type DelegatorConfig struct {
	// InstanceID labels the registry in logs and metrics.
	InstanceID uint64 `toml:"instance_id"`
	// RetainIdleListeners keeps document listeners installed after their last
	// binding is removed.
	RetainIdleListeners bool `toml:"retain_idle_listeners"`
}

// LogConfig configures console logging.
type LogConfig struct {
	Debug bool `toml:"debug"`
	// Namespaces is a comma separated glob list of namespaces to debug,
	// equivalent to the DEBUG environment variable.
	Namespaces string `toml:"namespaces"`
}

// ArgsConfig configures event argument encoding.
type ArgsConfig struct {
	Encoding string `toml:"encoding"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Delegator: DelegatorConfig{InstanceID: 1},
		Args:      ArgsConfig{Encoding: string(eventargs.JSON)},
	}
}

// Load reads and validates a TOML file. Keys absent from the file keep their
// Default values.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(b)
}

// Parse decodes and validates TOML configuration.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if _, err := eventargs.ParseEncoding(c.Args.Encoding); err != nil {
		return errors.Wrap(err, "invalid [args] section")
	}
	return nil
}

// Encoding returns the validated args encoding.
func (c Config) Encoding() eventargs.Encoding {
	enc, _ := eventargs.ParseEncoding(c.Args.Encoding)
	return enc
}
