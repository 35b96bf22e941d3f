// Package safehttp provides HTTP transports that refuse to dial private
// network ranges.
package safehttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrDeniedAddress is returned when a dial lands on a blocked address.
var ErrDeniedAddress = errors.New("safehttp: address denied")

// Denied reports whether ip is loopback, private, link-local or unspecified.
func Denied(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// NewTransport returns a transport that rejects connections to private or
// loopback IP ranges. The check runs on the connected peer address, so DNS
// answers that point inward are caught too.
func NewTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}

	return &http.Transport{
		Proxy: nil,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}

			host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
			ip := net.ParseIP(host)
			if ip == nil {
				conn.Close()
				return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
			}

			if Denied(ip) {
				conn.Close()
				return nil, fmt.Errorf("%w: %s", ErrDeniedAddress, ip)
			}

			return conn, nil
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}
