package peer

import (
	"errors"

	"aegis-mesh/go-node/internal/cipher"
)

var (
	// ErrBind is returned by Server.Start when the listen address is
	// unavailable.
	ErrBind = errors.New("bind failed")

	// ErrProtocol marks a connection that violated the framing contract:
	// empty payload, closed mid-message, or an envelope beyond the
	// configured maximum.
	ErrProtocol = errors.New("protocol violation")

	// Client send failures, one sentinel per stage so callers can tell them
	// apart with errors.Is. The client performs no retries; retry policy
	// belongs to the caller.
	ErrResolution   = errors.New("recipient resolution failed")
	ErrConnection   = errors.New("connection failed")
	ErrTransmission = errors.New("transmission failed")

	// ErrEncryption aliases the cipher engine's sentinel so client callers
	// can stay inside this package's taxonomy.
	ErrEncryption = cipher.ErrEncrypt
)
