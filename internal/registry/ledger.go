package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const ledgerVersion = 1

var ErrLedgerCorrupt = errors.New("registry ledger payload is invalid")

type persistedLedgerState struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// FileLedger is a registry backed by a JSON file on disk. Every read
// operation reloads the file, so resolutions always see the latest
// registered state even when another process owns the file.
type FileLedger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func OpenFileLedger(path string) (*FileLedger, error) {
	l := &FileLedger{path: path, now: time.Now}
	if _, err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLedger) load() ([]Entry, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var state persistedLedgerState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerCorrupt, err)
	}
	if state.Version != ledgerVersion {
		return nil, fmt.Errorf("%w: version %d", ErrLedgerCorrupt, state.Version)
	}
	return state.Entries, nil
}

func (l *FileLedger) persist(entries []Entry) error {
	payload, err := json.MarshalIndent(persistedLedgerState{Version: ledgerVersion, Entries: entries}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

func (l *FileLedger) Register(e Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load()
	if err != nil {
		return err
	}
	for _, existing := range entries {
		if existing.DID == e.DID {
			return ErrAlreadyRegistered
		}
	}
	now := l.now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	return l.persist(append(entries, e))
}

func (l *FileLedger) UpdatePublicKey(did, publicKey string) error {
	return l.mutate(did, func(e *Entry) error {
		e.PublicKey = publicKey
		return validateEntry(*e)
	})
}

func (l *FileLedger) UpdateEndpoint(did, endpoint string) error {
	return l.mutate(did, func(e *Entry) error {
		e.Endpoint = endpoint
		return validateEntry(*e)
	})
}

func (l *FileLedger) Deactivate(did string) error {
	return l.mutate(did, func(e *Entry) error {
		e.Deactivated = true
		return nil
	})
}

func (l *FileLedger) mutate(did string, apply func(*Entry) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].DID != did {
			continue
		}
		if err := apply(&entries[i]); err != nil {
			return err
		}
		entries[i].UpdatedAt = l.now().UTC()
		return l.persist(entries)
	}
	return ErrNotFound
}

func (l *FileLedger) List() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (l *FileLedger) IsRegistered(ctx context.Context, did string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.DID == did {
			return !e.Deactivated, nil
		}
	}
	return false, nil
}

func (l *FileLedger) Resolve(ctx context.Context, did string) (ResolvedPeer, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedPeer{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.load()
	if err != nil {
		return ResolvedPeer{}, err
	}
	for _, e := range entries {
		if e.DID != did {
			continue
		}
		if e.Deactivated {
			return ResolvedPeer{}, ErrDeactivated
		}
		return e.resolved(), nil
	}
	return ResolvedPeer{}, ErrNotFound
}

var _ Resolver = (*FileLedger)(nil)
