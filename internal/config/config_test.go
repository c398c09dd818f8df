package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Interface)
	assert.Equal(t, "HyperRecovery", cfg.SSID)
	assert.Equal(t, "auto", cfg.APIP)
	assert.Equal(t, "/run/hyper-wifi-setup.sock", cfg.SocketPath)
	assert.Equal(t, uint16(80), cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.GracePeriod)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "", cfg.WifiBackend)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "ssid: lab-recovery\nhttp_port: 8080\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "lab-recovery", cfg.SSID)
	assert.Equal(t, uint16(8080), cfg.HTTPPort)
	// untouched keys keep their defaults
	assert.Equal(t, "auto", cfg.Interface)
}

func TestLoad_MissingConfigFileIsAnError(t *testing.T) {
	t.Parallel()
	_, err := Load("/nonexistent/path/config.yaml", nil)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("HYPER_RECOVERY_SSID", "env-recovery")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "env-recovery", cfg.SSID)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	t.Parallel()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("ssid", "", "")
	require.NoError(t, flags.Parse([]string{"--ssid", "flag-recovery"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "flag-recovery", cfg.SSID)
}
