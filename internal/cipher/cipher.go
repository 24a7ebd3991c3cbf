// Package cipher is the stateless ECIES engine for peer messages. Each call
// to Encrypt draws a fresh ephemeral key, so envelopes are never linkable
// and the engine is safe for concurrent use with a shared private key.
//
// Envelope layout is the scheme's own: 65-byte ephemeral public key, 16-byte
// IV, ciphertext, 32-byte HMAC. The envelope is self-contained and opaque to
// the transport.
package cipher

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"

	"aegis-mesh/go-node/internal/keys"
)

var (
	ErrEncrypt = errors.New("encryption failed")
	// ErrDecrypt covers every decryption failure mode. Wrong recipient key,
	// truncation and MAC failure are indistinguishable to callers; the wrapped
	// cause is for local logs only and must never reach the remote peer.
	ErrDecrypt = errors.New("decryption failed")
)

// EnvelopeOverhead is the fixed size the scheme adds on top of the
// plaintext: ephemeral public key, IV and MAC.
const EnvelopeOverhead = keys.PublicKeySize + 16 + 32

// Encrypt seals plaintext for the holder of recipientPub, a 65-byte
// uncompressed public key. Malformed keys are rejected before any randomness
// is consumed.
func Encrypt(recipientPub []byte, plaintext []byte) ([]byte, error) {
	if err := keys.ValidatePublicKey(recipientPub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	pub, err := crypto.UnmarshalPubkey(recipientPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	envelope, err := ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(pub), plaintext, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return envelope, nil
}

// EncryptHex is Encrypt for a published hex public key.
func EncryptHex(recipientPubHex string, plaintext []byte) ([]byte, error) {
	raw, err := keys.DecodePublicKey(recipientPubHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return Encrypt(raw, plaintext)
}

// Decrypt opens an envelope with the local private key. Any failure returns
// ErrDecrypt; the cause is wrapped for local logging but callers must not
// expose it to the sender.
func Decrypt(priv *ecdsa.PrivateKey, envelope []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrDecrypt)
	}
	if len(envelope) < EnvelopeOverhead {
		return nil, fmt.Errorf("%w: envelope too short (%d bytes)", ErrDecrypt, len(envelope))
	}
	plaintext, err := ecies.ImportECDSA(priv).Decrypt(envelope, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}
