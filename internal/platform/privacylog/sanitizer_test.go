package privacylog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSecretsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(Wrap(slog.NewJSONHandler(&buf, nil)))

	logger.Info("identity loaded",
		"private_key", "0x4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d",
		"keystore_passphrase", "hunter2",
	)

	out := buf.String()
	if strings.Contains(out, "4f3edf98") || strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked into log output: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("expected redaction marker in %s", out)
	}
}

func TestPeerIdentifiersFingerprinted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(Wrap(slog.NewJSONHandler(&buf, nil)))

	did := "did:aegis:4b7f9f3e-0000-0000-0000-000000000000"
	logger.Info("message sent", "target_did", did)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	got, _ := record["target_did"].(string)
	if got == did {
		t.Fatalf("DID logged in the clear")
	}
	if !strings.HasPrefix(got, "fp_") {
		t.Fatalf("expected fingerprint, got %q", got)
	}
	if got != Fingerprint(did) {
		t.Fatalf("fingerprint not stable: %q vs %q", got, Fingerprint(did))
	}
}

func TestOrdinaryAttrsPassThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(Wrap(slog.NewJSONHandler(&buf, nil)))

	logger.Info("connection accepted", "remote_addr", "127.0.0.1:51234", "bytes", 42)
	out := buf.String()
	if !strings.Contains(out, "127.0.0.1:51234") || !strings.Contains(out, "42") {
		t.Fatalf("ordinary attributes mangled: %s", out)
	}
}

func TestFingerprintEmpty(t *testing.T) {
	if Fingerprint("  ") != "n/a" {
		t.Fatalf("blank identifier should fingerprint to n/a")
	}
}
