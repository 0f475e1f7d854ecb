package emailprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/optimode/emailprobe/check"
	"github.com/optimode/emailprobe/internal/parse"
	"github.com/optimode/emailprobe/internal/proxydial"
)

// Messages recorded when a probe fails at the transport level.
const (
	MessageDisconnected  = "Internal Error"
	MessageConnectFailed = "Internal Error. Maybe blacklisted"
)

// Verifier checks addresses for deliverability.
// Instantiate with New. A Verifier holds no per-call state and is safe
// for concurrent use.
type Verifier struct {
	opts       Options
	resolver   check.ExchangeResolver
	prober     check.ProbeSession
	classifier *check.Classifier
	log        logrus.FieldLogger
}

// New creates a Verifier. It fails only on invalid configuration:
// a missing SourceAddr or an unknown or incomplete proxy setting.
func New(opts Options) (*Verifier, error) {
	if opts.SourceAddr == "" {
		return nil, ErrMissingSourceAddr
	}

	// Apply defaults for unset values
	def := defaultOptions()
	if opts.Port == "" {
		opts.Port = def.Port
	}
	if opts.DNSTimeout == 0 {
		opts.DNSTimeout = def.DNSTimeout
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = def.ConnectTimeout
	}
	if opts.CommandTimeout == 0 {
		opts.CommandTimeout = def.CommandTimeout
	}
	if opts.HeloName == "" {
		opts.HeloName = heloFromSource(opts.SourceAddr)
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}

	dialer, err := proxydial.New(proxydial.Config{
		Type:     opts.Proxy.Type,
		Addr:     opts.Proxy.Addr,
		Port:     opts.Proxy.Port,
		Username: opts.Proxy.Username,
		Password: opts.Proxy.Password,
		Timeout:  opts.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("emailprobe: %w", err)
	}

	v := &Verifier{
		opts:       opts,
		resolver:   opts.Resolver,
		prober:     opts.Prober,
		classifier: opts.Classifier,
		log:        opts.Logger,
	}
	if v.resolver == nil {
		v.resolver = check.NewMXResolver(check.DNSConfig{
			Timeout:    opts.DNSTimeout,
			Nameserver: opts.Nameserver,
			Sort:       opts.SortExchanges,
		})
	}
	if v.prober == nil {
		v.prober = check.NewProber(check.SMTPConfig{
			HeloName:       opts.HeloName,
			Port:           opts.Port,
			CommandTimeout: opts.CommandTimeout,
		}, dialer)
	}
	if v.classifier == nil {
		v.classifier = check.DefaultClassifier()
	}
	return v, nil
}

func heloFromSource(source string) string {
	if a, err := parse.Address(source); err == nil {
		return a.ASCIIDomain()
	}
	return "localhost"
}

// Verify checks a single address. It never fails: malformed input,
// unresolvable domains and per-exchange probe failures are all reported
// in the returned Result. Exchanges are probed one at a time; the first
// one that accepts the address ends the check.
func (v *Verifier) Verify(ctx context.Context, email string) Result {
	result := Result{Email: email}
	log := v.log.WithField("email", email)

	addr, err := parse.Address(email)
	if err == nil && v.opts.StrictSyntax {
		err = parse.Strict(addr)
	}
	if err != nil {
		log.WithError(err).Debug("invalid address format")
		return result
	}
	result.Address = &addr
	result.ValidFormat = true

	exchanges, err := v.resolver.Resolve(ctx, addr.ASCIIDomain())
	if err != nil {
		log.WithError(err).Debug("no mail exchanges")
		result.HostExists = false
		return result
	}
	result.HostExists = true

	if v.opts.MaxExchanges > 0 && len(exchanges) > v.opts.MaxExchanges {
		exchanges = exchanges[:v.opts.MaxExchanges]
	}

	for _, ex := range exchanges {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Debug("verification cancelled")
			break
		}

		exLog := log.WithFields(logrus.Fields{"mx_host": ex.Host, "mx_pref": ex.Preference})
		out, err := v.prober.Probe(ctx, ex, v.opts.SourceAddr, addr)

		var (
			recipientErr *check.RecipientError
			transportErr *check.TransportError
		)
		switch {
		case err == nil:
			exLog.WithFields(logrus.Fields{
				"deliverable": out.Deliverable,
				"catch_all":   out.CatchAll,
			}).Debug("probe finished")
			if out.Deliverable {
				result.HostExists = out.HostExists
				result.Deliverable = out.Deliverable
				result.CatchAll = out.CatchAll
				return result
			}

		case errors.As(err, &recipientErr):
			exLog.WithField("smtp_code", recipientErr.Status.Code).Debug("recipient rejected")
			result.apply(v.classifier.Classify(recipientErr.Status.Code, recipientErr.Status.Response))

		case errors.As(err, &transportErr):
			exLog.WithError(err).Warn("probe failed")
			switch transportErr.Kind {
			case check.Disconnected:
				result.Message = MessageDisconnected
			case check.ConnectFailed:
				result.Message = MessageConnectFailed
			}

		default:
			exLog.WithError(err).Warn("probe failed")
		}
	}

	return result
}

// ConcurrencyOptions configures concurrent processing for VerifyMany.
type ConcurrencyOptions struct {
	// Workers is the number of concurrent goroutines. Default: 5
	Workers int
}

// VerifyMany verifies multiple addresses concurrently, each with its own
// independent Verify call. The result order matches the input slice order.
func (v *Verifier) VerifyMany(ctx context.Context, emails []string, opts ...ConcurrencyOptions) []Result {
	workers := 5
	if len(opts) > 0 && opts[0].Workers > 0 {
		workers = opts[0].Workers
	}

	results := make([]Result, len(emails))
	type job struct {
		idx   int
		email string
	}

	jobs := make(chan job)
	go func() {
		defer close(jobs)
		for i, e := range emails {
			select {
			case jobs <- job{idx: i, email: e}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = v.Verify(ctx, j.email)
			}
		}()
	}
	wg.Wait()

	// Inputs never handed to a worker still report themselves.
	for i := range results {
		if results[i].Email == "" {
			results[i].Email = emails[i]
		}
	}
	return results
}
