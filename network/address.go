// Package network connects to heads: the event socket, the snapshot
// endpoint, and the address form both are reached by.
package network

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAddress is returned for strings that are not "host:port" or
// "scheme://host:port".
var ErrInvalidAddress = errors.New("invalid node address")

// Address locates a head. Secure selects wss/https over ws/http.
type Address struct {
	Host   string
	Port   uint32
	Secure bool
}

// ParseAddress parses "host:port" (secure) or "scheme://host:port".
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(s, ":")
	var a Address
	var port string
	switch len(parts) {
	case 2:
		a.Host, port, a.Secure = parts[0], parts[1], true
	case 3:
		scheme := parts[0]
		host := strings.Split(parts[1], "//")
		a.Host, port = host[len(host)-1], parts[2]
		a.Secure = scheme == "https" || scheme == "wss"
	default:
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	p, err := strconv.ParseUint(port, 10, 32)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: port: %v", ErrInvalidAddress, s, err)
	}
	if a.Host == "" {
		return Address{}, fmt.Errorf("%w: %q: empty host", ErrInvalidAddress, s)
	}
	a.Port = uint32(p)
	return a, nil
}

// WebsocketURL returns the ws:// or wss:// URL of the head's event socket.
func (a Address) WebsocketURL() string {
	scheme := "ws"
	if a.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, a.Host, a.Port)
}

// HTTPURL returns the http:// or https:// base URL of the head's API.
func (a Address) HTTPURL() string {
	scheme := "http"
	if a.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, a.Host, a.Port)
}

// Authority returns "host:port", the key nodes are looked up by.
func (a Address) Authority() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}
