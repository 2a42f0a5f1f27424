package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fieldline.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, validate(Default()))
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[model]
addr = "modelhost:4770"
external_field = 5

[batch]
workers = 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "modelhost:4770", cfg.Model.Addr)
	assert.Equal(t, 5, cfg.Model.ExternalField)
	assert.Equal(t, 4, cfg.Batch.Workers)
	// Untouched sections keep their defaults.
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Bind)
	assert.Equal(t, 100.0, cfg.Model.StopAltitudeKm)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unsupported selector": "[model]\nexternal_field = 99\n",
		"zero workers":         "[batch]\nworkers = 0\n",
		"zero stop altitude":   "[model]\nstop_altitude_km = 0\n",
		"empty data root":      "[data]\nroot = \"\"\n",
		"zero orbit steps":     "[orbit]\nsteps = 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadEmptyModelAddrAllowedInDemoMode(t *testing.T) {
	_, err := Load(writeConfig(t, "[model]\naddr = \"\"\n"))
	require.Error(t, err)

	cfg, err := Load(writeConfig(t, "[demo]\nenabled = true\n\n[model]\naddr = \"\"\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Demo.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadMalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "not toml ==="))
	assert.Error(t, err)
}
