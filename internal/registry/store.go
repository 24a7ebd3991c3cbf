package registry

import (
	"fmt"
	"strings"
	"time"

	"aegis-mesh/go-node/internal/keys"
)

// Entry is one registry record. Registration binds a DID to an owner and a
// published public key; the endpoint and metadata reference are optional.
type Entry struct {
	DID         string    `json:"did"`
	Nickname    string    `json:"nickname,omitempty"`
	Owner       string    `json:"owner"`
	PublicKey   string    `json:"public_key"`
	MetadataRef string    `json:"metadata_ref,omitempty"`
	Endpoint    string    `json:"endpoint,omitempty"`
	Deactivated bool      `json:"deactivated,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e Entry) resolved() ResolvedPeer {
	return ResolvedPeer{
		DID:         e.DID,
		Owner:       e.Owner,
		PublicKey:   e.PublicKey,
		MetadataRef: e.MetadataRef,
		Endpoint:    e.Endpoint,
	}
}

func validateEntry(e Entry) error {
	if err := ValidateDID(e.DID); err != nil {
		return err
	}
	if strings.TrimSpace(e.Owner) == "" {
		return fmt.Errorf("%w: entry for %s has no owner", ErrInvalidDID, e.DID)
	}
	if _, err := keys.DecodePublicKey(e.PublicKey); err != nil {
		return fmt.Errorf("entry for %s: %w", e.DID, err)
	}
	if e.Endpoint != "" {
		if _, err := ParseEndpoint(e.Endpoint); err != nil {
			return err
		}
	}
	return nil
}
