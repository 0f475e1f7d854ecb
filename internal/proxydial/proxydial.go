// Package proxydial builds the dialers used to reach mail exchanges,
// either directly or through a SOCKS4, SOCKS5 or HTTP CONNECT proxy.
package proxydial

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"h12.io/socks"
)

// Kind identifies the proxy protocol.
type Kind string

const (
	Direct Kind = ""
	SOCKS4 Kind = "socks4"
	SOCKS5 Kind = "socks5"
	HTTP   Kind = "http" // CONNECT tunnel; many HTTP proxies refuse port 25
)

var (
	// ErrUnknownProxy is matched by UnknownProxyError.
	ErrUnknownProxy = errors.New("proxydial: unknown proxy type")

	// ErrMissingProxyAddr is returned when a proxy type is set without an address.
	ErrMissingProxyAddr = errors.New("proxydial: proxy type set but proxy address is empty")
)

// UnknownProxyError is returned for a proxy type that is not one of Kinds.
type UnknownProxyError struct {
	Type string
}

func (e *UnknownProxyError) Error() string {
	return fmt.Sprintf("proxydial: the proxy type %q is not known, try one of socks4, socks5 or http", e.Type)
}

func (e *UnknownProxyError) Is(target error) bool {
	return target == ErrUnknownProxy
}

// ParseKind maps a case-insensitive proxy type name to a Kind.
// The empty string means a direct connection.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Direct, SOCKS4, SOCKS5, HTTP:
		return k, nil
	default:
		return "", &UnknownProxyError{Type: s}
	}
}

// Config describes how to reach the network.
type Config struct {
	Type     string // socks4, socks5, http or "" for direct
	Addr     string // proxy host, or host:port when Port is empty
	Port     string
	Username string
	Password string // only used together with Username
	// Timeout bounds establishing a connection, proxy handshake included.
	Timeout time.Duration
}

// Dialer opens connections to mail exchanges.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// New returns a Dialer for cfg. Configuration errors are reported here,
// never at dial time.
func New(cfg Config) (Dialer, error) {
	kind, err := ParseKind(cfg.Type)
	if err != nil {
		return nil, err
	}

	forward := &net.Dialer{Timeout: cfg.Timeout}
	if kind == Direct {
		return forward, nil
	}

	if cfg.Addr == "" {
		return nil, ErrMissingProxyAddr
	}
	proxyAddr := cfg.Addr
	if cfg.Port != "" {
		proxyAddr = net.JoinHostPort(cfg.Addr, cfg.Port)
	}

	switch kind {
	case SOCKS5:
		var auth *proxy.Auth
		if cfg.Username != "" {
			auth = &proxy.Auth{User: cfg.Username, Password: cfg.Password}
		}
		d, err := proxy.SOCKS5("tcp", proxyAddr, auth, forward)
		if err != nil {
			return nil, fmt.Errorf("proxydial: socks5 dialer: %w", err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("proxydial: socks5 dialer does not support contexts")
		}
		return cd, nil

	case SOCKS4:
		u := url.URL{Scheme: "socks4", Host: proxyAddr}
		if cfg.Username != "" {
			u.User = url.User(cfg.Username)
		}
		if cfg.Timeout > 0 {
			u.RawQuery = url.Values{"timeout": {cfg.Timeout.String()}}.Encode()
		}
		return dialFunc(socks.Dial(u.String())), nil

	default: // HTTP
		return &connectDialer{
			proxyAddr: proxyAddr,
			username:  cfg.Username,
			password:  cfg.Password,
			forward:   forward,
		}, nil
	}
}

// dialFunc adapts a context-less dial function. The dial itself keeps
// running after ctx is done; its connection is closed once it returns.
type dialFunc func(network, address string) (net.Conn, error)

func (f dialFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	type dialResult struct {
		conn net.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		c, err := f(network, address)
		ch <- dialResult{c, err}
	}()

	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
