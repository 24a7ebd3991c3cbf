package keys

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateProducesUncompressedPublicKey(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	pub := kp.PublicKeyBytes()
	if len(pub) != PublicKeySize {
		t.Fatalf("public key length = %d, want %d", len(pub), PublicKeySize)
	}
	if pub[0] != UncompressedPointTag {
		t.Fatalf("public key tag = 0x%02x, want 0x04", pub[0])
	}
	hexPub := kp.PublicKeyHex()
	if !strings.HasPrefix(hexPub, "0x04") {
		t.Fatalf("hex public key missing 0x04 prefix: %s", hexPub[:6])
	}
	if len(hexPub) != 2+2*PublicKeySize {
		t.Fatalf("hex public key length = %d, want %d", len(hexPub), 2+2*PublicKeySize)
	}
}

func TestDerivePublicKeyDeterministic(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	first, err := DerivePublicKey(kp.PrivateKeyHex())
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	second, err := DerivePublicKey(kp.PrivateKeyHex())
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if first != second {
		t.Fatalf("derivation not deterministic: %s vs %s", first, second)
	}
	if first != kp.PublicKeyHex() {
		t.Fatalf("derived key %s does not match keypair %s", first, kp.PublicKeyHex())
	}
}

func TestFromHexRoundTrip(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	restored, err := FromHex(kp.PrivateKeyHex())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.PublicKeyHex() != kp.PublicKeyHex() {
		t.Fatalf("restored keypair differs")
	}
}

func TestInvalidPrivateScalarRejected(t *testing.T) {
	cases := map[string]string{
		"zero scalar": "0x" + strings.Repeat("00", 32),
		"too short":   "0xdeadbeef",
		"not hex":     "0xzz3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d",
	}
	for name, hexKey := range cases {
		if _, err := FromHex(hexKey); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("%s: expected ErrInvalidKey, got %v", name, err)
		}
	}
}

func TestDecodePublicKeyValidation(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	raw, err := DecodePublicKey(kp.PublicKeyHex())
	if err != nil {
		t.Fatalf("decode of valid key failed: %v", err)
	}
	if len(raw) != PublicKeySize {
		t.Fatalf("decoded length = %d, want %d", len(raw), PublicKeySize)
	}

	if _, err := DecodePublicKey("0x0402abcdef"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("short key accepted: %v", err)
	}

	badTag := "0x05" + kp.PublicKeyHex()[4:]
	if _, err := DecodePublicKey(badTag); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("bad tag accepted: %v", err)
	}

	offCurve := "0x04" + strings.Repeat("11", 64)
	if _, err := DecodePublicKey(offCurve); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("off-curve point accepted: %v", err)
	}
}

func TestMnemonicRoundTrip(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	phrase, err := kp.Mnemonic()
	if err != nil {
		t.Fatalf("mnemonic export failed: %v", err)
	}
	if got := len(strings.Fields(phrase)); got != 24 {
		t.Fatalf("phrase has %d words, want 24", got)
	}
	restored, err := FromMnemonic(phrase)
	if err != nil {
		t.Fatalf("mnemonic import failed: %v", err)
	}
	if restored.PublicKeyHex() != kp.PublicKeyHex() {
		t.Fatalf("restored keypair differs from original")
	}
}

func TestFromMnemonicRejectsGarbage(t *testing.T) {
	if _, err := FromMnemonic("definitely not a phrase"); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
	}
}
