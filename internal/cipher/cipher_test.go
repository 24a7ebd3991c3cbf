package cipher

import (
	"bytes"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"testing"

	"aegis-mesh/go-node/internal/keys"
)

func mustKeypair(t *testing.T) *keys.Keypair {
	t.Helper()
	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	kp := mustKeypair(t)
	for _, plaintext := range []string{"hello-world", "", "a", strings.Repeat("x", 3000)} {
		envelope, err := Encrypt(kp.PublicKeyBytes(), []byte(plaintext))
		if err != nil {
			t.Fatalf("encrypt %q failed: %v", plaintext[:min(len(plaintext), 8)], err)
		}
		if len(envelope) < len(plaintext)+EnvelopeOverhead {
			t.Fatalf("envelope too small: %d bytes for %d plaintext", len(envelope), len(plaintext))
		}
		got, err := Decrypt(kp.ECDSA(), envelope)
		if err != nil {
			t.Fatalf("decrypt failed: %v", err)
		}
		if !bytes.Equal(got, []byte(plaintext)) {
			t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
		}
	}
}

func TestEncryptFreshEphemeralPerCall(t *testing.T) {
	kp := mustKeypair(t)
	first, err := Encrypt(kp.PublicKeyBytes(), []byte("same message"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := Encrypt(kp.PublicKeyBytes(), []byte("same message"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatalf("two envelopes for the same plaintext are identical")
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	alice := mustKeypair(t)
	bob := mustKeypair(t)
	envelope, err := Encrypt(alice.PublicKeyBytes(), []byte("for alice only"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	got, err := Decrypt(bob.ECDSA(), envelope)
	if !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got err=%v plaintext=%q", err, got)
	}
	if got != nil {
		t.Fatalf("wrong-key decrypt returned plaintext %q", got)
	}
}

func TestDecryptCorruptedEnvelopeFails(t *testing.T) {
	kp := mustKeypair(t)
	envelope, err := Encrypt(kp.PublicKeyBytes(), []byte("intact"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	truncated := envelope[:len(envelope)-1]
	if _, err := Decrypt(kp.ECDSA(), truncated); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("truncated envelope: expected ErrDecrypt, got %v", err)
	}

	flipped := append([]byte(nil), envelope...)
	flipped[len(flipped)-1] ^= 0x01
	if _, err := Decrypt(kp.ECDSA(), flipped); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("tampered envelope: expected ErrDecrypt, got %v", err)
	}

	if _, err := Decrypt(kp.ECDSA(), nil); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("empty envelope: expected ErrDecrypt, got %v", err)
	}
}

func TestDecryptRandomBytesFails(t *testing.T) {
	kp := mustKeypair(t)
	junk := make([]byte, 4096)
	if _, err := rand.Read(junk); err != nil {
		t.Fatalf("rand: %v", err)
	}
	if _, err := Decrypt(kp.ECDSA(), junk); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("random bytes: expected ErrDecrypt, got %v", err)
	}
}

func TestEncryptRejectsMalformedPublicKey(t *testing.T) {
	kp := mustKeypair(t)
	good := kp.PublicKeyBytes()

	badTag := append([]byte(nil), good...)
	badTag[0] = 0x05

	offCurve := append([]byte{0x04}, bytes.Repeat([]byte{0x11}, 64)...)

	cases := map[string][]byte{
		"too short": good[:10],
		"too long":  append(append([]byte(nil), good...), 0x00),
		"bad tag":   badTag,
		"off curve": offCurve,
		"empty":     nil,
	}
	for name, pub := range cases {
		if _, err := Encrypt(pub, []byte("payload")); !errors.Is(err, ErrEncrypt) {
			t.Fatalf("%s: expected ErrEncrypt, got %v", name, err)
		}
	}
}

func TestEncryptHexRejectsMalformedKey(t *testing.T) {
	if _, err := EncryptHex("0x0402abcdef", []byte("payload")); !errors.Is(err, ErrEncrypt) {
		t.Fatalf("expected ErrEncrypt, got %v", err)
	}
}

// Many decrypt operations may run against one shared private key at once;
// the engine performs no mutation, so none of them may interfere.
func TestConcurrentDecryptSharedKey(t *testing.T) {
	kp := mustKeypair(t)
	const workers = 16

	envelopes := make([][]byte, workers)
	for i := range envelopes {
		env, err := Encrypt(kp.PublicKeyBytes(), []byte{byte(i)})
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}
		envelopes[i] = env
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := Decrypt(kp.ECDSA(), envelopes[i])
			if err != nil {
				errs <- err
				return
			}
			if len(got) != 1 || got[0] != byte(i) {
				errs <- errors.New("plaintext mismatch under concurrency")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent decrypt: %v", err)
	}
}
