package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("recorder.heartbeat_interval_ms", cfg.Recorder.HeartbeatIntervalMS)
	v.SetDefault("recorder.ping_timeout_ms", cfg.Recorder.PingTimeoutMS)
	v.SetDefault("recorder.capture_settle_ms", cfg.Recorder.CaptureSettleMS)
	v.SetDefault("recorder.tab_switch_grace_ms", cfg.Recorder.TabSwitchGraceMS)
	v.SetDefault("recorder.max_events_per_session", cfg.Recorder.MaxEventsPerSession)
	v.SetDefault("recorder.key_store_path", cfg.Recorder.KeyStorePath)
	v.SetDefault("recorder.disable_encryption", cfg.Recorder.DisableEncryption)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.exec_path", cfg.Browser.ExecPath)
	v.SetDefault("browser.user_data_dir", cfg.Browser.UserDataDir)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateRecorderConfig(cfg.Recorder); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateRecorderConfig(cfg RecorderConfig) error {
	if cfg.HeartbeatIntervalMS < 0 || cfg.PingTimeoutMS < 0 || cfg.CaptureSettleMS < 0 || cfg.TabSwitchGraceMS < 0 {
		return fmt.Errorf("recorder intervals must not be negative")
	}
	if cfg.PingTimeoutMS > 0 && cfg.HeartbeatIntervalMS > 0 && cfg.PingTimeoutMS > cfg.HeartbeatIntervalMS {
		return fmt.Errorf("recorder.ping_timeout_ms must not exceed recorder.heartbeat_interval_ms")
	}
	if cfg.MaxEventsPerSession < 0 {
		return fmt.Errorf("recorder.max_events_per_session must not be negative")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Recorder.KeyStorePath = expandEnv(cfg.Recorder.KeyStorePath)
	cfg.Browser.ExecPath = expandEnv(cfg.Browser.ExecPath)
	cfg.Browser.UserDataDir = expandEnv(cfg.Browser.UserDataDir)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
