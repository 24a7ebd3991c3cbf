// Package registry defines the identity-registry contract the messaging
// core consumes (DID → published public key) and provides two
// implementations: an in-memory registry and a JSON file ledger. The
// registry's own consensus and storage are external concerns; the core only
// ever resolves.
package registry

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("did not registered")
	ErrDeactivated = errors.New("did is deactivated")
	ErrInvalidDID  = errors.New("invalid did")
)

// ResolvedPeer is the transient read-only view of a registry entry. It is
// valid for a single send; callers must not cache it, since the published
// key can change between sends.
type ResolvedPeer struct {
	DID         string
	Owner       string
	PublicKey   string // hex, 0x04-prefixed uncompressed point
	MetadataRef string
	Endpoint    string // multiaddr, optional
}

// Resolver is the external identity-registry interface consumed by the
// message client. Both operations are idempotent and side-effect free.
// Implementations must return fresh state on every call.
type Resolver interface {
	IsRegistered(ctx context.Context, did string) (bool, error)
	Resolve(ctx context.Context, did string) (ResolvedPeer, error)
}
