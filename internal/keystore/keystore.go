// Package keystore stores a peer identity (DID plus private key) on disk,
// sealed under a passphrase with argon2id and XChaCha20-Poly1305. The file
// is the only place the private key exists outside process memory.
package keystore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"aegis-mesh/go-node/internal/keys"
)

const (
	filePrefix     = "AEGISKS1\n"
	envelopeFormat = 1
	saltSize       = 16

	kdfTime     = 2
	kdfMemoryKB = 64 * 1024
	kdfThreads  = 1
)

var (
	ErrAuthFailed         = errors.New("keystore passphrase rejected")
	ErrInvalid            = errors.New("keystore file is invalid")
	ErrPassphraseRequired = errors.New("keystore passphrase is required")
)

// Identity is the decrypted keystore content.
type Identity struct {
	DID     string
	Keypair *keys.Keypair
}

type envelope struct {
	Format      int    `json:"format"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

type record struct {
	DID        string `json:"did"`
	PrivateKey string `json:"private_key"`
}

// Save seals the identity to path. The file is written with owner-only
// permissions via a temp file and rename.
func Save(path, passphrase string, id Identity) error {
	if strings.TrimSpace(passphrase) == "" {
		return ErrPassphraseRequired
	}
	if id.Keypair == nil {
		return fmt.Errorf("%w: identity has no keypair", ErrInvalid)
	}
	plaintext, err := json.Marshal(record{
		DID:        id.DID,
		PrivateKey: id.Keypair.PrivateKeyHex(),
	})
	if err != nil {
		return err
	}
	sealed, err := seal(passphrase, plaintext)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load opens the keystore at path with the passphrase.
func Load(path, passphrase string) (Identity, error) {
	if strings.TrimSpace(passphrase) == "" {
		return Identity{}, ErrPassphraseRequired
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Identity{}, err
	}
	plaintext, err := open(passphrase, raw)
	if err != nil {
		return Identity{}, err
	}
	var rec record
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return Identity{}, ErrInvalid
	}
	kp, err := keys.FromHex(rec.PrivateKey)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return Identity{DID: rec.DID, Keypair: kp}, nil
}

func seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(passphrase, salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	env := envelope{
		Format:      envelopeFormat,
		KDF:         "argon2id",
		KDFTime:     kdfTime,
		KDFMemoryKB: kdfMemoryKB,
		KDFThreads:  kdfThreads,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, plaintext, nil),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

func open(passphrase string, data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), filePrefix) {
		return nil, ErrInvalid
	}
	var env envelope
	if err := json.Unmarshal(data[len(filePrefix):], &env); err != nil {
		return nil, ErrInvalid
	}
	if env.Format != envelopeFormat || env.KDF != "argon2id" || len(env.Salt) != saltSize || len(env.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrInvalid
	}
	key := argon2.IDKey([]byte(passphrase), env.Salt, env.KDFTime, env.KDFMemoryKB, env.KDFThreads, chacha20poly1305.KeySize)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemoryKB, kdfThreads, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
