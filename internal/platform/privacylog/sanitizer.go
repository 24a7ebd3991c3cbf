// Package privacylog keeps key material and peer identifiers out of log
// output. Secret-bearing attributes are redacted outright; DIDs and public
// keys are replaced by short stable fingerprints so operators can correlate
// log lines without the logs becoming an identity ledger.
package privacylog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

var (
	secretKeyParts = []string{"private_key", "privatekey", "passphrase", "password", "mnemonic", "secret", "token"}
	peerIDKeys     = map[string]struct{}{
		"did":        {},
		"peer_did":   {},
		"target_did": {},
		"sender_did": {},
		"local_did":  {},
		"public_key": {},
	}
)

// Fingerprint maps an identifier to a short stable tag for logging.
func Fingerprint(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "n/a"
	}
	sum := sha256.Sum256([]byte(value))
	return "fp_" + hex.EncodeToString(sum[:6])
}

// Handler wraps a slog.Handler and sanitizes every record's attributes.
type Handler struct {
	next slog.Handler
}

func Wrap(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(sanitize(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		clean = append(clean, sanitize(attr))
	}
	return &Handler{next: h.next.WithAttrs(clean)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

func sanitize(attr slog.Attr) slog.Attr {
	key := strings.ToLower(strings.TrimSpace(attr.Key))
	if isSecretKey(key) {
		return slog.String(attr.Key, redacted)
	}
	if _, ok := peerIDKeys[key]; ok {
		return slog.String(attr.Key, Fingerprint(attrValueString(attr.Value)))
	}
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		clean := make([]any, 0, len(group))
		for _, member := range group {
			clean = append(clean, sanitize(member))
		}
		return slog.Group(attr.Key, clean...)
	}
	return attr
}

func isSecretKey(key string) bool {
	for _, part := range secretKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func attrValueString(v slog.Value) string {
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return fmt.Sprintf("%v", v.Any())
}
