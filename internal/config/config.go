// Package config loads daemon configuration from defaults, an optional
// config file, environment variables, and command-line flags, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DaemonConfig is the fully resolved set of knobs the orchestrator
// needs to run.
type DaemonConfig struct {
	Interface     string        `mapstructure:"interface"`
	SSID          string        `mapstructure:"ssid"`
	APIP          string        `mapstructure:"ap_ip"`
	SocketPath    string        `mapstructure:"socket_path"`
	HTTPPort      uint16        `mapstructure:"http_port"`
	GracePeriod   time.Duration `mapstructure:"grace_period"`
	LogLevel      string        `mapstructure:"log_level"`
	WifiBackend   string        `mapstructure:"wifi_backend"`
	CredentialsDB string        `mapstructure:"credentials_path"`
}

const envPrefix = "HYPER_RECOVERY"

// Load builds a viper instance layered defaults < config file < env <
// flags, and decodes it into a DaemonConfig. flags, if non-nil, are
// bound so CLI overrides take final precedence.
func Load(configPath string, flags *pflag.FlagSet) (*DaemonConfig, error) {
	v := viper.New()

	v.SetDefault("interface", "auto")
	v.SetDefault("ssid", "HyperRecovery")
	v.SetDefault("ap_ip", "auto")
	v.SetDefault("socket_path", "/run/hyper-wifi-setup.sock")
	v.SetDefault("http_port", 80)
	v.SetDefault("grace_period", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("wifi_backend", "")
	v.SetDefault("credentials_path", "/var/lib/hyper-recovery/credentials.json")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if flags != nil {
		// Flag names are hyphenated ("ap-ip"); config keys use underscores.
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("config: bind flags: %w", bindErr)
		}
	}

	var cfg DaemonConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}
