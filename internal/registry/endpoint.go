package registry

import (
	"fmt"

	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

// ParseEndpoint validates a registry endpoint string as a dialable
// multiaddr, e.g. /ip4/127.0.0.1/tcp/9998.
func ParseEndpoint(endpoint string) (multiaddr.Multiaddr, error) {
	maddr, err := multiaddr.NewMultiaddr(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	return maddr, nil
}

// DialAddr converts a registry endpoint to a host:port string for net.Dial.
func DialAddr(endpoint string) (string, error) {
	maddr, err := ParseEndpoint(endpoint)
	if err != nil {
		return "", err
	}
	_, addr, err := manet.DialArgs(maddr)
	if err != nil {
		return "", fmt.Errorf("endpoint %q is not dialable: %w", endpoint, err)
	}
	return addr, nil
}

// EndpointFor builds the multiaddr endpoint string a server should publish
// for a plain TCP listen address.
func EndpointFor(host string, port int) string {
	return fmt.Sprintf("/ip4/%s/tcp/%d", host, port)
}
