package schema

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// RecorderConfig defines timing and storage knobs for the recorder core.
type RecorderConfig struct {
	// StateDir holds stored recordings and workflows.
	StateDir string
	// KeyStorePath enables at-rest encryption of recordings when set.
	KeyStorePath string
	// HeartbeatInterval is the probe liveness check period.
	HeartbeatInterval time.Duration
	// PingTimeout bounds one heartbeat ping; a ping that has not resolved
	// within it counts as probe-dead.
	PingTimeout time.Duration
	// CaptureSettleDelay is the debounce window before a state capture runs.
	CaptureSettleDelay time.Duration
	// TabSwitchGrace is how long the previous tab's probe gets to settle
	// after a stop signal before the active-tab pointer moves on.
	TabSwitchGrace time.Duration
	// MaxEventsPerSession caps the event log; zero means DefaultMaxEvents.
	MaxEventsPerSession int
}

const (
	// DefaultHeartbeatInterval is the probe liveness check period.
	DefaultHeartbeatInterval = 100 * time.Millisecond
	// DefaultCaptureSettleDelay is the state-capture debounce window.
	DefaultCaptureSettleDelay = 100 * time.Millisecond
	// DefaultTabSwitchGrace is the stop-signal settle window on tab switch.
	DefaultTabSwitchGrace = 300 * time.Millisecond
	// DefaultMaxEvents is the per-session event log cap.
	DefaultMaxEvents = 10000
)

// NormalizeRecorderConfig applies defaults and validates the config.
func NormalizeRecorderConfig(cfg RecorderConfig) (RecorderConfig, error) {
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return RecorderConfig{}, err
		}
		cfg.StateDir = filepath.Join(home, ".scribe", "state")
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = cfg.HeartbeatInterval
	}
	if cfg.CaptureSettleDelay <= 0 {
		cfg.CaptureSettleDelay = DefaultCaptureSettleDelay
	}
	if cfg.TabSwitchGrace <= 0 {
		cfg.TabSwitchGrace = DefaultTabSwitchGrace
	}
	if cfg.MaxEventsPerSession <= 0 {
		cfg.MaxEventsPerSession = DefaultMaxEvents
	}
	if cfg.PingTimeout > cfg.HeartbeatInterval {
		return RecorderConfig{}, errors.New("ping timeout must not exceed heartbeat interval")
	}
	return cfg, nil
}
