// Package config provides configuration management for the transfer
// engine, loaded with spf13/viper the way the teacher's pkg/config loads
// its own service configuration: a YAML file overridable by environment
// variables, with defaults applied before either is read.
package config

import (
	"bytes"
	"fmt"
	"os"

	appErrors "github.com/transfermesh/dtk/pkg/errors"

	"github.com/spf13/viper"
)

// Config holds every recognized option of spec.md §6.4 plus the ambient
// stack's own knobs (substrate wiring, telemetry, diagnostics sink).
type Config struct {
	Rendezvous  RendezvousConfig  `mapstructure:"rendezvous"`
	Location    LocationConfig    `mapstructure:"location"`
	Substrate   SubstrateConfig   `mapstructure:"substrate"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Log         LogConfig         `mapstructure:"log"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Storage     StorageConfig     `mapstructure:"storage"`
}

// RendezvousConfig controls the auxiliary decomposition of spec.md §4.4.
type RendezvousConfig struct {
	MaxLeafSize int `mapstructure:"max_leaf_size"` // spec.md §6.4, default 32
}

// LocationConfig controls point-location tolerance and tie-breaking
// (spec.md §6.4, §4.3 step 5).
type LocationConfig struct {
	GeometricTolerance float64 `mapstructure:"geometric_tolerance"` // default 1e-6
	TieBreak           string  `mapstructure:"tie_break"`           // rank-ascending | rank-descending
}

// SubstrateConfig selects and configures the communication substrate of
// spec.md §6.2.
type SubstrateConfig struct {
	Kind  string   `mapstructure:"kind"` // local | grpc
	Peers []string `mapstructure:"peers"`
	Rank  int      `mapstructure:"rank"`
}

// TelemetryConfig mirrors the teacher's pkg/telemetry.Config shape,
// governing span emission around every collective (spec.md §5 ordering
// guarantees — spans make program order observable).
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Protocol string `mapstructure:"protocol"` // grpc | http/protobuf
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// DiagnosticsConfig controls the optional diagnostics database that
// records one row per build_transfer call (SPEC_FULL.md §2) — never read
// back by the TransferOperator itself.
type DiagnosticsConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres | mysql
	DSN    string `mapstructure:"dsn"`
}

// StorageConfig selects and configures the object-storage backend used to
// archive missed_target_points() reports (SPEC_FULL.md §2).
type StorageConfig struct {
	Type      string `mapstructure:"type"` // local | cos
	LocalPath string `mapstructure:"local_path"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
}

// Load reads configuration from the given path, falling back to defaults
// when the file is absent, then validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("dtk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/dtk")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// fine, defaults apply
		} else if os.IsNotExist(err) {
			// fine, defaults apply
		} else {
			return nil, appErrors.Wrap(appErrors.CodeConfigError, "failed to read config file", err)
		}
	}

	v.SetEnvPrefix("DTK")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, appErrors.Wrap(appErrors.CodeConfigError, "failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw bytes (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, appErrors.Wrap(appErrors.CodeConfigError, "failed to read config", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, appErrors.Wrap(appErrors.CodeConfigError, "failed to unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rendezvous.max_leaf_size", 32)

	v.SetDefault("location.geometric_tolerance", 1e-6)
	v.SetDefault("location.tie_break", "rank-ascending")

	v.SetDefault("substrate.kind", "local")
	v.SetDefault("substrate.rank", 0)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.protocol", "grpc")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("diagnostics.driver", "sqlite")
	v.SetDefault("diagnostics.dsn", "file::memory:?cache=shared")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./diagnostics")
}

// Validate enforces the constraints of spec.md §6.4: positive
// max_leaf_size, non-negative tolerance, tie_break in the enumerated set.
// A violation is a Configuration error, detected at build entry per §7(i).
func (c *Config) Validate() error {
	if c.Rendezvous.MaxLeafSize <= 0 {
		return appErrors.New(appErrors.CodeConfigError, "rendezvous.max_leaf_size must be a positive integer")
	}
	if c.Location.GeometricTolerance < 0 {
		return appErrors.New(appErrors.CodeConfigError, "location.geometric_tolerance must be non-negative")
	}
	switch c.Location.TieBreak {
	case "rank-ascending", "rank-descending":
	default:
		return appErrors.New(appErrors.CodeConfigError, fmt.Sprintf("unsupported location.tie_break: %q", c.Location.TieBreak))
	}
	switch c.Substrate.Kind {
	case "local", "grpc":
	default:
		return appErrors.New(appErrors.CodeConfigError, fmt.Sprintf("unsupported substrate.kind: %q", c.Substrate.Kind))
	}
	switch c.Diagnostics.Driver {
	case "", "sqlite", "postgres", "mysql":
	default:
		return appErrors.New(appErrors.CodeConfigError, fmt.Sprintf("unsupported diagnostics.driver: %q", c.Diagnostics.Driver))
	}
	switch c.Storage.Type {
	case "", "local", "cos":
	default:
		return appErrors.New(appErrors.CodeConfigError, fmt.Sprintf("unsupported storage.type: %q", c.Storage.Type))
	}
	return nil
}

// TieBreakDescending reports whether location.tie_break selects
// rank-descending. It returns a bool rather than a geom.TieBreak, so
// pkg/config does not import pkg/geom.
func (c *Config) TieBreakDescending() bool {
	return c.Location.TieBreak == "rank-descending"
}
