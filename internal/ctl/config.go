package ctl

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	// Decode into a generic map to preserve all fields for both display modes.
	var raw json.RawMessage
	if err := getJSON(baseURL, "/api/config", &raw); err != nil {
		return err
	}

	if jsonOutput {
		var v any
		_ = json.Unmarshal(raw, &v)
		return printJSON(v)
	}

	// Decode into ordered sections for human-readable output.
	var cfg struct {
		Data struct {
			Root string `json:"root"`
		} `json:"data"`
		Logging struct {
			Level string `json:"level"`
		} `json:"logging"`
		Server struct {
			Bind string `json:"bind"`
		} `json:"server"`
		Demo struct {
			Enabled         bool `json:"enabled"`
			IntervalSeconds int  `json:"interval_seconds"`
		} `json:"demo"`
		Model struct {
			Addr               string  `json:"addr"`
			ExternalField      int     `json:"external_field"`
			CoordSystem        int     `json:"coord_system"`
			StopAltitudeKm     float64 `json:"stop_altitude_km"`
			DialTimeoutSeconds int     `json:"dial_timeout_seconds"`
			Verbose            bool    `json:"verbose"`
		} `json:"model"`
		Batch struct {
			Workers int `json:"workers"`
		} `json:"batch"`
		Orbit struct {
			StepSeconds int     `json:"step_seconds"`
			Steps       int     `json:"steps"`
			Pdyn        float64 `json:"pdyn"`
			Dst         float64 `json:"dst"`
			ByIMF       float64 `json:"by_imf"`
			BzIMF       float64 `json:"bz_imf"`
		} `json:"orbit"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(header("  DAEMON CONFIGURATION"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 50)))

	section := func(name string) {
		fmt.Printf("\n  %s\n", colorize(bold, "["+name+"]"))
	}
	field := func(key string, val any) {
		fmt.Printf("    %-20s %v\n", colorize(dim, key+":"), val)
	}

	section("data")
	field("root", cfg.Data.Root)

	section("logging")
	field("level", cfg.Logging.Level)

	section("server")
	field("bind", cfg.Server.Bind)

	section("demo")
	field("enabled", cfg.Demo.Enabled)
	field("interval_seconds", cfg.Demo.IntervalSeconds)

	section("model")
	field("addr", cfg.Model.Addr)
	field("external_field", cfg.Model.ExternalField)
	field("coord_system", cfg.Model.CoordSystem)
	field("stop_altitude_km", cfg.Model.StopAltitudeKm)
	field("dial_timeout_seconds", cfg.Model.DialTimeoutSeconds)
	field("verbose", cfg.Model.Verbose)

	section("batch")
	field("workers", cfg.Batch.Workers)

	section("orbit")
	field("step_seconds", cfg.Orbit.StepSeconds)
	field("steps", cfg.Orbit.Steps)
	field("pdyn", cfg.Orbit.Pdyn)
	field("dst", cfg.Orbit.Dst)
	field("by_imf", cfg.Orbit.ByIMF)
	field("bz_imf", cfg.Orbit.BzIMF)

	fmt.Println()

	return nil
}
