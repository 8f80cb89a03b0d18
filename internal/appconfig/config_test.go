package appconfig

import "testing"

func TestDefaultConfigEncryptionEnabled(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.Recorder.DisableEncryption {
		t.Fatalf("expected encryption to default on")
	}
	if cfg.Recorder.KeyStorePath == "" {
		t.Fatalf("expected default key store path")
	}
	if cfg.RecorderSchemaConfig().KeyStorePath == "" {
		t.Fatalf("expected key store path to carry through")
	}
}
