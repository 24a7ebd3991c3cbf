package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddr() != "127.0.0.1:9998" {
		t.Fatalf("unexpected default listen addr: %s", cfg.ListenAddr())
	}
	if cfg.Framing != "legacy" {
		t.Fatalf("unexpected default framing: %s", cfg.Framing)
	}
	if cfg.MaxInFlight != 0 || cfg.AcceptRPS != 0 {
		t.Fatalf("admission control should default off")
	}
}

func TestLoadFileOverridesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
listenHost: 0.0.0.0
listenPort: 4200
framing: length
maxInFlight: 64
acceptRPS: 10
acceptBurst: 20
readTimeout: -1
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddr() != "0.0.0.0:4200" {
		t.Fatalf("listen addr = %s", cfg.ListenAddr())
	}
	if cfg.Framing != "length" || cfg.MaxInFlight != 64 || cfg.AcceptRPS != 10 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Invalid read timeout falls back to the default.
	if cfg.ReadTimeout != 30*time.Second {
		t.Fatalf("readTimeout not normalized: %v", cfg.ReadTimeout)
	}
	// Unset fields keep defaults.
	if cfg.RegistryPath != "dids.json" {
		t.Fatalf("registryPath default lost: %s", cfg.RegistryPath)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listenPort: [nope"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}
