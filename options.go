package emailprobe

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/optimode/emailprobe/check"
)

// ProxyOptions routes SMTP connections through a proxy.
// A zero value connects directly.
type ProxyOptions struct {
	// Type is socks4, socks5 or http, case-insensitive.
	Type string
	// Addr is the proxy host, or host:port when Port is empty.
	Addr string
	Port string
	// Username and Password authenticate with the proxy. Password is only
	// used when Username is set. SOCKS4 sends Username as its user ID.
	Username string
	Password string
}

// Options configures a Verifier.
type Options struct {
	// SourceAddr is sent in MAIL FROM. Required, e.g. "verify@myapp.com"
	SourceAddr string
	// HeloName is sent in HELO. Default: the domain of SourceAddr
	HeloName string
	Proxy    ProxyOptions
	// Port is the SMTP port of the mail exchanges. Default: "25"
	Port string

	// DNSTimeout bounds the MX lookup. Default: 5s
	DNSTimeout time.Duration
	// ConnectTimeout bounds opening a connection, proxy handshake included. Default: 10s
	ConnectTimeout time.Duration
	// CommandTimeout bounds each SMTP command round trip. Default: 10s
	CommandTimeout time.Duration
	// Nameserver, if set, is the host:port all MX lookups are sent to.
	Nameserver string

	// MaxExchanges caps how many exchanges are probed. Default: 0 (all)
	MaxExchanges int
	// SortExchanges probes exchanges by ascending MX preference instead of
	// in the order the resolver returned them. Default: false
	SortExchanges bool
	// StrictSyntax additionally applies RFC 5321/5322 syntax rules before
	// any network activity. Default: false
	StrictSyntax bool

	// Logger receives debug and warning logs. Default: discarded
	Logger logrus.FieldLogger

	// Resolver replaces the DNS MX resolver, mainly for tests.
	Resolver check.ExchangeResolver
	// Prober replaces the SMTP probe, mainly for tests.
	Prober check.ProbeSession
	// Classifier replaces the default reply classifier.
	Classifier *check.Classifier
}

func defaultOptions() Options {
	return Options{
		Port:           "25",
		DNSTimeout:     5 * time.Second,
		ConnectTimeout: 10 * time.Second,
		CommandTimeout: 10 * time.Second,
	}
}
