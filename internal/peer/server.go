// Package peer implements the point-to-point encrypted message channel: a
// server that decrypts one envelope per inbound connection for a local
// identity, and a client that resolves a DID to a published key, encrypts,
// and delivers over a fresh connection.
package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"aegis-mesh/go-node/internal/cipher"
	"aegis-mesh/go-node/internal/keys"
	"aegis-mesh/go-node/internal/metrics"
	"aegis-mesh/go-node/internal/platform/ratelimiter"
)

// ServerConfig carries the server's tunables. The zero value listens on an
// ephemeral port with legacy framing and no admission control, matching the
// reference behavior.
type ServerConfig struct {
	ListenAddr      string
	Framing         Framing
	MaxEnvelopeSize int
	ReadTimeout     time.Duration

	// MaxInFlight caps concurrently handled connections; 0 means unbounded,
	// which is the reference behavior and a known exhaustion risk.
	MaxInFlight int

	// AcceptRPS/AcceptBurst rate-limit accepted connections per remote
	// host; zero disables limiting.
	AcceptRPS   float64
	AcceptBurst int
}

// Server owns one listening endpoint bound to one local identity. Every
// accepted connection gets its own goroutine for a single
// read/decrypt/deliver cycle; the private key is shared read-only across
// all of them.
type Server struct {
	cfg      ServerConfig
	identity *keys.Keypair
	handler  Handler
	logger   *slog.Logger
	metrics  *metrics.PeerMetrics
	limiter  *ratelimiter.InboundLimiter

	mu       sync.Mutex
	listener net.Listener
	stopping chan struct{}
	wg       sync.WaitGroup
	inFlight chan struct{}
}

// NewServer wires a server. identity and handler are required; logger and
// peerMetrics may be nil.
func NewServer(cfg ServerConfig, identity *keys.Keypair, handler Handler, logger *slog.Logger, peerMetrics *metrics.PeerMetrics) (*Server, error) {
	if identity == nil {
		return nil, errors.New("server requires an identity")
	}
	if handler == nil {
		return nil, errors.New("server requires a handler")
	}
	framing, err := normalizeFraming(cfg.Framing)
	if err != nil {
		return nil, err
	}
	cfg.Framing = framing
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		identity: identity,
		handler:  handler,
		logger:   logger,
		metrics:  peerMetrics,
		limiter:  ratelimiter.NewInbound(cfg.AcceptRPS, cfg.AcceptBurst, 0),
		stopping: make(chan struct{}),
	}
	if cfg.MaxInFlight > 0 {
		s.inFlight = make(chan struct{}, cfg.MaxInFlight)
	}
	return s, nil
}

// Start binds the listen address and begins accepting. It returns as soon
// as the socket is bound; accepting runs in the background until Stop.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server already started")
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBind, s.cfg.ListenAddr, err)
	}
	s.listener = ln
	s.logger.Info("message server listening", "addr", ln.Addr().String(), "framing", string(s.cfg.Framing))

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listen address, useful when ListenAddr requested
// an ephemeral port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop requests graceful shutdown: the listener closes immediately so no
// new connections arrive, then Stop waits for in-flight connections to
// finish their single read/decrypt/deliver cycle or for ctx to expire.
// Data already fully received is never dropped.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	if ln == nil {
		s.mu.Unlock()
		return errors.New("server not started")
	}
	select {
	case <-s.stopping:
	default:
		close(s.stopping)
	}
	s.mu.Unlock()
	_ = ln.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("message server closed")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown drain interrupted: %w", ctx.Err())
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopping:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err.Error())
			continue
		}

		if !s.admit(conn) {
			s.metrics.RecordRejected()
			_ = conn.Close()
			continue
		}

		s.metrics.RecordAccepted()
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// admit applies the optional per-host rate limit and in-flight cap.
func (s *Server) admit(conn net.Conn) bool {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}
	if !s.limiter.Allow(host, time.Now()) {
		s.logger.Warn("connection rejected by rate limit", "remote_addr", conn.RemoteAddr().String())
		return false
	}
	if s.inFlight != nil {
		select {
		case s.inFlight <- struct{}{}:
		default:
			s.logger.Warn("connection rejected, at capacity", "remote_addr", conn.RemoteAddr().String())
			return false
		}
	}
	return true
}

// handleConn runs one connection's read/decrypt/deliver cycle. The handler
// is invoked exactly once, with either the plaintext or the failure; no
// connection disappears silently. Nothing is ever written back: the
// protocol is one-way and decrypt failures must not be observable to the
// sender.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	if s.inFlight != nil {
		defer func() { <-s.inFlight }()
	}

	remote := conn.RemoteAddr().String()
	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	envelope, err := readEnvelope(conn, s.cfg.Framing, s.cfg.MaxEnvelopeSize)
	if err != nil {
		s.metrics.RecordProtocolFailure()
		s.logger.Warn("inbound read failed", "remote_addr", remote, "error", err.Error())
		if !errors.Is(err, ErrProtocol) {
			err = fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		s.deliver(Delivery{RemoteAddr: remote, Err: err, ReceivedAt: time.Now()})
		return
	}

	plaintext, err := cipher.Decrypt(s.identity.ECDSA(), envelope)
	if err != nil {
		s.metrics.RecordDecryptFailure()
		// Cause stays in local logs; the sender sees only a closed socket.
		s.logger.Warn("inbound decrypt failed", "remote_addr", remote, "bytes", len(envelope), "error", err.Error())
		s.deliver(Delivery{RemoteAddr: remote, Err: err, ReceivedAt: time.Now()})
		return
	}

	s.metrics.RecordDelivered()
	s.logger.Info("message delivered", "remote_addr", remote, "bytes", len(plaintext))
	s.deliver(Delivery{RemoteAddr: remote, Plaintext: plaintext, ReceivedAt: time.Now()})
}

func (s *Server) deliver(d Delivery) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic", "remote_addr", d.RemoteAddr, "panic", fmt.Sprint(r))
		}
	}()
	s.handler.Handle(d)
}
