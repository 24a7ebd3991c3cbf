package peer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// Framing selects how an envelope is delimited on the wire. Both ends must
// agree by configuration; nothing is negotiated.
type Framing string

const (
	// FramingLegacy is the reference wire format: the raw envelope and
	// nothing else, bounded by the connection. The server drains at most
	// legacyReadLimit bytes; anything beyond is truncated, exactly as the
	// reference's fixed read buffer would.
	FramingLegacy Framing = "legacy"

	// FramingLength prefixes the envelope with a 4-byte big-endian length
	// and rejects envelopes beyond the configured maximum.
	FramingLength Framing = "length"
)

const (
	legacyReadLimit  = 4096
	lengthHeaderSize = 4

	// DefaultMaxEnvelopeSize bounds length-framed envelopes.
	DefaultMaxEnvelopeSize = 1 << 20
)

func normalizeFraming(f Framing) (Framing, error) {
	switch f {
	case "", FramingLegacy:
		return FramingLegacy, nil
	case FramingLength:
		return FramingLength, nil
	default:
		return "", fmt.Errorf("unknown framing %q", f)
	}
}

// writeEnvelope writes one complete envelope to the connection.
func writeEnvelope(conn net.Conn, framing Framing, envelope []byte) error {
	if framing == FramingLength {
		var header [lengthHeaderSize]byte
		binary.BigEndian.PutUint32(header[:], uint32(len(envelope)))
		if _, err := conn.Write(header[:]); err != nil {
			return err
		}
	}
	_, err := conn.Write(envelope)
	return err
}

// readEnvelope reads one complete envelope from the connection.
func readEnvelope(conn net.Conn, framing Framing, maxEnvelope int) ([]byte, error) {
	if framing == FramingLength {
		return readLengthFramed(conn, maxEnvelope)
	}
	return readLegacy(conn)
}

func readLegacy(conn net.Conn) ([]byte, error) {
	buf := make([]byte, legacyReadLimit)
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: connection closed without payload", ErrProtocol)
	}
	return buf[:total], nil
}

func readLengthFramed(conn net.Conn, maxEnvelope int) ([]byte, error) {
	if maxEnvelope <= 0 {
		maxEnvelope = DefaultMaxEnvelopeSize
	}
	var header [lengthHeaderSize]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: connection closed before length header", ErrProtocol)
		}
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-length envelope", ErrProtocol)
	}
	if size > uint32(maxEnvelope) {
		return nil, fmt.Errorf("%w: envelope of %d bytes exceeds limit %d", ErrProtocol, size, maxEnvelope)
	}
	envelope := make([]byte, size)
	if _, err := io.ReadFull(conn, envelope); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: connection closed mid-envelope", ErrProtocol)
		}
		return nil, err
	}
	return envelope, nil
}
