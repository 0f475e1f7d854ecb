package emailprobe

import (
	"errors"

	"github.com/optimode/emailprobe/internal/proxydial"
)

var (
	// ErrMissingSourceAddr is returned by New when Options.SourceAddr is empty.
	ErrMissingSourceAddr = errors.New("emailprobe: Options requires SourceAddr")

	// ErrUnknownProxy is returned by New when Options.Proxy.Type is not
	// one of socks4, socks5 or http.
	ErrUnknownProxy = proxydial.ErrUnknownProxy

	// ErrMissingProxyAddr is returned by New when a proxy type is given
	// without a proxy address.
	ErrMissingProxyAddr = proxydial.ErrMissingProxyAddr
)
