// Package keys holds the local secp256k1 key material for a peer and the
// hex encodings its public half travels in. Public keys are always the
// 65-byte uncompressed point form: a 0x04 tag followed by the X and Y
// coordinates.
package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidKey = errors.New("invalid key material")

const (
	PrivateKeySize       = 32
	PublicKeySize        = 65
	UncompressedPointTag = 0x04
)

// Keypair wraps a secp256k1 private key. The private half never leaves the
// process except through the keystore or a mnemonic export; only the public
// half is published.
type Keypair struct {
	priv *ecdsa.PrivateKey
}

func Generate() (*Keypair, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{priv: priv}, nil
}

// FromBytes restores a keypair from a raw 32-byte private scalar.
func FromBytes(d []byte) (*Keypair, error) {
	if len(d) != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKey, PrivateKeySize, len(d))
	}
	priv, err := crypto.ToECDSA(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Keypair{priv: priv}, nil
}

// FromHex restores a keypair from a hex private key, with or without the
// conventional 0x prefix.
func FromHex(hexKey string) (*Keypair, error) {
	raw, err := hex.DecodeString(stripHexPrefix(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return FromBytes(raw)
}

func (k *Keypair) ECDSA() *ecdsa.PrivateKey {
	return k.priv
}

func (k *Keypair) PrivateKeyBytes() []byte {
	return crypto.FromECDSA(k.priv)
}

func (k *Keypair) PrivateKeyHex() string {
	return "0x" + hex.EncodeToString(k.PrivateKeyBytes())
}

// PublicKeyBytes returns the 65-byte uncompressed point.
func (k *Keypair) PublicKeyBytes() []byte {
	return crypto.FromECDSAPub(&k.priv.PublicKey)
}

// PublicKeyHex returns the canonical published form, "0x04" followed by the
// 64-byte X and Y coordinates in hex.
func (k *Keypair) PublicKeyHex() string {
	return EncodePublicKey(k.PublicKeyBytes())
}

// DerivePublicKey derives the canonical hex public key from a hex private
// key. Deterministic; fails when the scalar is not valid for the curve.
func DerivePublicKey(hexPrivateKey string) (string, error) {
	kp, err := FromHex(hexPrivateKey)
	if err != nil {
		return "", err
	}
	return kp.PublicKeyHex(), nil
}

// EncodePublicKey hex-encodes an uncompressed public key with a 0x prefix.
// The input is not validated; pair with DecodePublicKey when the bytes come
// from outside.
func EncodePublicKey(pub []byte) string {
	return "0x" + hex.EncodeToString(pub)
}

// DecodePublicKey parses a published hex public key and validates that it is
// a well-formed uncompressed secp256k1 point: 65 bytes, 0x04 tag, on curve.
func DecodePublicKey(s string) ([]byte, error) {
	raw, err := hex.DecodeString(stripHexPrefix(strings.TrimSpace(s)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if err := ValidatePublicKey(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ValidatePublicKey checks a raw uncompressed public key without decoding it
// into a curve point the caller keeps.
func ValidatePublicKey(pub []byte) error {
	if len(pub) != PublicKeySize {
		return fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidKey, PublicKeySize, len(pub))
	}
	if pub[0] != UncompressedPointTag {
		return fmt.Errorf("%w: public key tag 0x%02x, want 0x%02x", ErrInvalidKey, pub[0], UncompressedPointTag)
	}
	if _, err := crypto.UnmarshalPubkey(pub); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return nil
}

func stripHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
