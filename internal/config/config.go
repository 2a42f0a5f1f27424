// Package config handles loading, defaulting, and validation of the Field-Line
// Engine TOML configuration file. Every section maps to a typed struct so the
// rest of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data    DataConfig    `toml:"data"    json:"data"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Server  ServerConfig  `toml:"server"  json:"server"`
	Demo    DemoConfig    `toml:"demo"    json:"demo"`
	Model   ModelConfig   `toml:"model"   json:"model"`
	Batch   BatchConfig   `toml:"batch"   json:"batch"`
	Orbit   OrbitConfig   `toml:"orbit"   json:"orbit"`
}

type DataConfig struct {
	Root string `toml:"root" json:"root"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type DemoConfig struct {
	Enabled         bool `toml:"enabled"          json:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds" json:"interval_seconds"`
}

// ModelConfig describes the external geomagnetic field model server.
// ExternalField and CoordSystem are the model's kext and sysaxes selectors;
// they are fixed for the life of the daemon.
type ModelConfig struct {
	Addr               string  `toml:"addr"                 json:"addr"`
	ExternalField      int     `toml:"external_field"       json:"external_field"`
	CoordSystem        int     `toml:"coord_system"         json:"coord_system"`
	StopAltitudeKm     float64 `toml:"stop_altitude_km"     json:"stop_altitude_km"`
	DialTimeoutSeconds int     `toml:"dial_timeout_seconds" json:"dial_timeout_seconds"`
	Verbose            bool    `toml:"verbose"              json:"verbose"`
}

type BatchConfig struct {
	Workers int `toml:"workers" json:"workers"`
}

// OrbitConfig holds defaults for synthetic orbit file generation.
type OrbitConfig struct {
	StepSeconds int     `toml:"step_seconds" json:"step_seconds"`
	Steps       int     `toml:"steps"        json:"steps"`
	Pdyn        float64 `toml:"pdyn"         json:"pdyn"`
	Dst         float64 `toml:"dst"          json:"dst"`
	ByIMF       float64 `toml:"by_imf"       json:"by_imf"`
	BzIMF       float64 `toml:"bz_imf"       json:"bz_imf"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Data: DataConfig{
			Root: "/var/lib/fieldline",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Demo: DemoConfig{
			Enabled:         false,
			IntervalSeconds: 15,
		},
		Model: ModelConfig{
			Addr:               "127.0.0.1:4770",
			ExternalField:      7, // T96
			CoordSystem:        3, // GSM
			StopAltitudeKm:     100,
			DialTimeoutSeconds: 10,
		},
		Batch: BatchConfig{
			Workers: 1, // sequential, matching the reference pipeline
		},
		Orbit: OrbitConfig{
			StepSeconds: 60,
			Steps:       1440,
			Pdyn:        2.0,
			Dst:         0,
			ByIMF:       0,
			BzIMF:       0,
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Data.Root == "" {
		return errors.New("data.root must not be empty")
	}
	if cfg.Demo.IntervalSeconds < 0 {
		return errors.New("demo.interval_seconds must be >= 0")
	}
	if !cfg.Demo.Enabled && cfg.Model.Addr == "" {
		return errors.New("model.addr must not be empty outside demo mode")
	}
	if cfg.Model.StopAltitudeKm <= 0 {
		return errors.New("model.stop_altitude_km must be > 0")
	}
	if cfg.Model.DialTimeoutSeconds <= 0 {
		return errors.New("model.dial_timeout_seconds must be > 0")
	}
	if cfg.Batch.Workers < 1 {
		return errors.New("batch.workers must be >= 1")
	}
	if cfg.Orbit.StepSeconds <= 0 {
		return errors.New("orbit.step_seconds must be > 0")
	}
	if cfg.Orbit.Steps <= 0 {
		return errors.New("orbit.steps must be > 0")
	}
	switch cfg.Model.ExternalField {
	case 5, 7:
	default:
		return fmt.Errorf("model.external_field %d is not a supported selector", cfg.Model.ExternalField)
	}
	return nil
}
