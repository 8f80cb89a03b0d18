package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/scribe/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string         `mapstructure:"state_dir" yaml:"state_dir"`
	Recorder      RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	Browser       BrowserConfig  `mapstructure:"browser" yaml:"browser"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// RecorderConfig controls session timing and storage.
type RecorderConfig struct {
	HeartbeatIntervalMS int    `mapstructure:"heartbeat_interval_ms" yaml:"heartbeat_interval_ms"`
	PingTimeoutMS       int    `mapstructure:"ping_timeout_ms" yaml:"ping_timeout_ms"`
	CaptureSettleMS     int    `mapstructure:"capture_settle_ms" yaml:"capture_settle_ms"`
	TabSwitchGraceMS    int    `mapstructure:"tab_switch_grace_ms" yaml:"tab_switch_grace_ms"`
	MaxEventsPerSession int    `mapstructure:"max_events_per_session" yaml:"max_events_per_session"`
	KeyStorePath        string `mapstructure:"key_store_path" yaml:"key_store_path"`
	DisableEncryption   bool   `mapstructure:"disable_encryption" yaml:"disable_encryption"`
}

// BrowserConfig configures the Chrome instance the recorder drives.
type BrowserConfig struct {
	Headless    bool   `mapstructure:"headless" yaml:"headless"`
	ExecPath    string `mapstructure:"exec_path" yaml:"exec_path"`
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".scribe", "state"),
		Recorder: RecorderConfig{
			HeartbeatIntervalMS: int(schema.DefaultHeartbeatInterval / time.Millisecond),
			PingTimeoutMS:       int(schema.DefaultHeartbeatInterval / time.Millisecond),
			CaptureSettleMS:     int(schema.DefaultCaptureSettleDelay / time.Millisecond),
			TabSwitchGraceMS:    int(schema.DefaultTabSwitchGrace / time.Millisecond),
			MaxEventsPerSession: schema.DefaultMaxEvents,
			KeyStorePath:        filepath.Join(home, ".scribe", "state", "keys.bundle"),
			DisableEncryption:   false,
		},
		Browser: BrowserConfig{
			Headless:    false,
			ExecPath:    "",
			UserDataDir: filepath.Join(home, ".scribe", "profile"),
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".scribe", "config.yaml"), nil
}

// RecorderSchemaConfig converts the file representation into the recorder's
// runtime config.
func (c Config) RecorderSchemaConfig() schema.RecorderConfig {
	keyStorePath := c.Recorder.KeyStorePath
	if c.Recorder.DisableEncryption {
		keyStorePath = ""
	}
	return schema.RecorderConfig{
		StateDir:            c.StateDir,
		KeyStorePath:        keyStorePath,
		HeartbeatInterval:   time.Duration(c.Recorder.HeartbeatIntervalMS) * time.Millisecond,
		PingTimeout:         time.Duration(c.Recorder.PingTimeoutMS) * time.Millisecond,
		CaptureSettleDelay:  time.Duration(c.Recorder.CaptureSettleMS) * time.Millisecond,
		TabSwitchGrace:      time.Duration(c.Recorder.TabSwitchGraceMS) * time.Millisecond,
		MaxEventsPerSession: c.Recorder.MaxEventsPerSession,
	}
}
