package check

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/optimode/emailprobe/types"
)

// ExchangeResolver returns the mail exchanges of a domain.
// Failures are reported as *ResolveError.
type ExchangeResolver interface {
	Resolve(ctx context.Context, domain string) ([]types.Exchange, error)
}

// DNSConfig is the MX resolver configuration.
type DNSConfig struct {
	Timeout time.Duration
	// Nameserver, if set, is a host:port every lookup is sent to.
	Nameserver string
	// Sort orders exchanges by ascending preference. When false the
	// resolver's order is kept.
	Sort bool
}

// MXResolver looks up MX records through the system or a configured resolver.
type MXResolver struct {
	cfg    DNSConfig
	lookup func(ctx context.Context, domain string) ([]*net.MX, error) // injectable for testability
	// lookupHost tells NODATA from NXDOMAIN after a not-found MX answer.
	// nil skips the check.
	lookupHost func(ctx context.Context, host string) ([]string, error)
}

func NewMXResolver(cfg DNSConfig) *MXResolver {
	r := &net.Resolver{}
	if cfg.Nameserver != "" {
		dialer := &net.Dialer{Timeout: cfg.Timeout}
		r = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, cfg.Nameserver)
			},
		}
	}
	return &MXResolver{cfg: cfg, lookup: r.LookupMX, lookupHost: r.LookupHost}
}

// NewMXResolverWithLookup is a test-oriented constructor that overrides the MX lookup function.
// A not-found answer is reported as NoSuchDomain without a follow-up lookup.
func NewMXResolverWithLookup(cfg DNSConfig, fn func(context.Context, string) ([]*net.MX, error)) *MXResolver {
	return NewMXResolverWithLookups(cfg, fn, nil)
}

// NewMXResolverWithLookups overrides both the MX lookup and the address
// lookup used to tell a domain without MX records from a missing one.
func NewMXResolverWithLookups(cfg DNSConfig, mx func(context.Context, string) ([]*net.MX, error), host func(context.Context, string) ([]string, error)) *MXResolver {
	r := NewMXResolver(cfg)
	r.lookup = mx
	r.lookupHost = host
	return r
}

func (r *MXResolver) Resolve(ctx context.Context, domain string) ([]types.Exchange, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	records, err := r.lookup(ctx, domain)
	if err != nil {
		return nil, &ResolveError{Domain: domain, Kind: r.resolveKind(ctx, domain, err), Err: err}
	}

	exchanges := make([]types.Exchange, 0, len(records))
	for _, mx := range records {
		host := strings.TrimSuffix(mx.Host, ".")
		// RFC 7505 null MX: the domain accepts no mail
		if host == "" {
			continue
		}
		exchanges = append(exchanges, types.Exchange{Preference: mx.Pref, Host: host})
	}
	if len(exchanges) == 0 {
		return nil, &ResolveError{Domain: domain, Kind: NoAnswer}
	}

	if r.cfg.Sort {
		sort.SliceStable(exchanges, func(i, j int) bool {
			return exchanges[i].Preference < exchanges[j].Preference
		})
	}
	return exchanges, nil
}

// resolveKind maps a resolver error onto a ResolveKind. The Go resolver
// reports NXDOMAIN and NODATA alike as "not found", so a domain that
// still has address records is reported as NoAnswer. A domain with
// neither MX nor address records is indistinguishable from NXDOMAIN.
func (r *MXResolver) resolveKind(ctx context.Context, domain string, err error) ResolveKind {
	var dnsErr *net.DNSError
	if !errors.As(err, &dnsErr) || !dnsErr.IsNotFound {
		return NoNameservers
	}
	if r.lookupHost != nil {
		if addrs, err := r.lookupHost(ctx, domain); err == nil && len(addrs) > 0 {
			return NoAnswer
		}
	}
	return NoSuchDomain
}
