package registry

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"aegis-mesh/go-node/internal/keys"
)

const (
	didPrefix         = "did:aegis:"
	keyBoundDIDPrefix = "did:aegis:key:"
)

// MintDID creates a new random DID in the did:aegis:<uuid> form.
func MintDID() string {
	return didPrefix + uuid.NewString()
}

// KeyBoundDID derives a DID from a public key fingerprint, so a peer can be
// addressed without minting. The fingerprint is the first 16 bytes of
// SHA-256 over the uncompressed point, base58-encoded.
func KeyBoundDID(pub []byte) (string, error) {
	if err := keys.ValidatePublicKey(pub); err != nil {
		return "", err
	}
	sum := sha256.Sum256(pub)
	return keyBoundDIDPrefix + base58.Encode(sum[:16]), nil
}

// ValidateDID checks the syntactic shape of a DID string.
func ValidateDID(did string) error {
	did = strings.TrimSpace(did)
	if !strings.HasPrefix(did, didPrefix) {
		return fmt.Errorf("%w: %q lacks the %s prefix", ErrInvalidDID, did, didPrefix)
	}
	if len(did) == len(didPrefix) {
		return fmt.Errorf("%w: empty method-specific id", ErrInvalidDID)
	}
	return nil
}
