package registry

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrAlreadyRegistered = errors.New("did already registered")

// InMemory is a process-local registry, used in tests and by single-node
// setups that do not need the file ledger.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

func (r *InMemory) Register(e Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.DID]; ok {
		return ErrAlreadyRegistered
	}
	now := r.now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	r.entries[e.DID] = e
	return nil
}

func (r *InMemory) UpdatePublicKey(did, publicKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[did]
	if !ok {
		return ErrNotFound
	}
	e.PublicKey = publicKey
	if err := validateEntry(e); err != nil {
		return err
	}
	e.UpdatedAt = r.now().UTC()
	r.entries[did] = e
	return nil
}

func (r *InMemory) Deactivate(did string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[did]
	if !ok {
		return ErrNotFound
	}
	e.Deactivated = true
	e.UpdatedAt = r.now().UTC()
	r.entries[did] = e
	return nil
}

func (r *InMemory) IsRegistered(ctx context.Context, did string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[did]
	return ok && !e.Deactivated, nil
}

func (r *InMemory) Resolve(ctx context.Context, did string) (ResolvedPeer, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedPeer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[did]
	if !ok {
		return ResolvedPeer{}, ErrNotFound
	}
	if e.Deactivated {
		return ResolvedPeer{}, ErrDeactivated
	}
	return e.resolved(), nil
}

var _ Resolver = (*InMemory)(nil)
