package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"aegis-mesh/go-node/internal/cipher"
	"aegis-mesh/go-node/internal/metrics"
	"aegis-mesh/go-node/internal/registry"
)

// ClientConfig carries the client's transport tunables.
type ClientConfig struct {
	Framing      Framing
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

const (
	defaultDialTimeout  = 5 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// Client sends encrypted messages to peers addressed by DID. Every Send
// resolves the recipient's key fresh from the registry, encrypts, opens a
// connection, writes the envelope and closes. The client keeps no state
// between sends and performs no retries.
type Client struct {
	resolver registry.Resolver
	cfg      ClientConfig
	logger   *slog.Logger
	metrics  *metrics.PeerMetrics
}

func NewClient(resolver registry.Resolver, cfg ClientConfig, logger *slog.Logger, peerMetrics *metrics.PeerMetrics) (*Client, error) {
	if resolver == nil {
		return nil, errors.New("client requires a resolver")
	}
	framing, err := normalizeFraming(cfg.Framing)
	if err != nil {
		return nil, err
	}
	cfg.Framing = framing
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{resolver: resolver, cfg: cfg, logger: logger, metrics: peerMetrics}, nil
}

// Send delivers plaintext to the peer behind targetDID, dialing the
// endpoint the registry publishes for it.
func (c *Client) Send(ctx context.Context, targetDID string, plaintext []byte) error {
	return c.SendTo(ctx, "", targetDID, plaintext)
}

// SendTo is Send with an explicit host:port overriding the registry
// endpoint. The stages are resolve, encrypt, connect, write, close; each
// failure is distinguishable by sentinel. Resolution failures happen before
// any connection is attempted, so zero bytes touch the network for an
// unknown DID.
func (c *Client) SendTo(ctx context.Context, addr, targetDID string, plaintext []byte) error {
	target, err := c.resolve(ctx, targetDID)
	if err != nil {
		c.metrics.RecordSend(metrics.OutcomeResolution)
		return err
	}

	envelope, err := cipher.EncryptHex(target.PublicKey, plaintext)
	if err != nil {
		c.metrics.RecordSend(metrics.OutcomeEncryption)
		return fmt.Errorf("encrypt for %s: %w", targetDID, err)
	}

	if addr == "" {
		if target.Endpoint == "" {
			c.metrics.RecordSend(metrics.OutcomeResolution)
			return fmt.Errorf("%w: %s has no published endpoint", ErrResolution, targetDID)
		}
		addr, err = registry.DialAddr(target.Endpoint)
		if err != nil {
			c.metrics.RecordSend(metrics.OutcomeResolution)
			return fmt.Errorf("%w: %v", ErrResolution, err)
		}
	}

	if err := c.transmit(ctx, addr, envelope); err != nil {
		return err
	}

	c.metrics.RecordSend(metrics.OutcomeOK)
	c.logger.Info("message sent", "target_did", targetDID, "addr", addr, "bytes", len(envelope))
	return nil
}

// resolve checks registration and fetches the current published key. Never
// cached: registry state can change between sends, and encrypting against
// a stale key would fail silently at the recipient.
func (c *Client) resolve(ctx context.Context, targetDID string) (registry.ResolvedPeer, error) {
	registered, err := c.resolver.IsRegistered(ctx, targetDID)
	if err != nil {
		return registry.ResolvedPeer{}, fmt.Errorf("%w: %v", ErrResolution, err)
	}
	if !registered {
		return registry.ResolvedPeer{}, fmt.Errorf("%w: %s is not registered", ErrResolution, targetDID)
	}
	target, err := c.resolver.Resolve(ctx, targetDID)
	if err != nil {
		return registry.ResolvedPeer{}, fmt.Errorf("%w: %v", ErrResolution, err)
	}
	if target.PublicKey == "" {
		return registry.ResolvedPeer{}, fmt.Errorf("%w: %s has no published key", ErrResolution, targetDID)
	}
	return target, nil
}

func (c *Client) transmit(ctx context.Context, addr string, envelope []byte) error {
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.metrics.RecordSend(metrics.OutcomeConnection)
		return fmt.Errorf("%w: %s: %v", ErrConnection, addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)

	if err := writeEnvelope(conn, c.cfg.Framing, envelope); err != nil {
		c.metrics.RecordSend(metrics.OutcomeTransmission)
		return fmt.Errorf("%w: %v", ErrTransmission, err)
	}
	return nil
}
