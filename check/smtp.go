package check

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/optimode/emailprobe/internal/randaddr"
	"github.com/optimode/emailprobe/internal/smtpconn"
	"github.com/optimode/emailprobe/types"
)

// Outcome is the result of probing one exchange.
type Outcome struct {
	HostExists  bool
	Deliverable bool
	CatchAll    bool
}

// ProbeSession probes a single exchange for a recipient.
type ProbeSession interface {
	Probe(ctx context.Context, ex types.Exchange, from string, target types.Address) (Outcome, error)
}

// SMTPConfig is the SMTP prober configuration.
type SMTPConfig struct {
	HeloName       string
	Port           string
	CommandTimeout time.Duration
}

// Prober performs the HELO, MAIL FROM, RCPT TO probe against a mail
// exchange, followed by a second RCPT TO for a random local part to
// detect catch-all servers. It never sends DATA.
type Prober struct {
	cfg       SMTPConfig
	dialer    smtpconn.Dialer
	randomRcp func(domain string) (string, error) // injectable for testability
}

// NewProber creates a prober that connects through dialer.
func NewProber(cfg SMTPConfig, dialer smtpconn.Dialer) *Prober {
	if cfg.Port == "" {
		cfg.Port = "25"
	}
	return &Prober{cfg: cfg, dialer: dialer, randomRcp: randaddr.New}
}

// NewProberWithRandom is a test-oriented constructor that overrides the
// random recipient generator.
func NewProberWithRandom(cfg SMTPConfig, dialer smtpconn.Dialer, fn func(string) (string, error)) *Prober {
	p := NewProber(cfg, dialer)
	p.randomRcp = fn
	return p
}

// Probe connects to ex, and reports whether target would be accepted.
// A 4xx or 5xx reply to the target's RCPT TO is returned as a
// *RecipientError, network failures as a *TransportError. The
// connection is closed before Probe returns.
func (p *Prober) Probe(ctx context.Context, ex types.Exchange, from string, target types.Address) (Outcome, error) {
	var out Outcome

	conn, err := smtpconn.Dial(ctx, p.dialer, net.JoinHostPort(ex.Host, p.cfg.Port), p.cfg.CommandTimeout)
	if err != nil {
		return out, &TransportError{Host: ex.Host, Kind: ConnectFailed, Err: err}
	}
	defer func() { _ = conn.Close() }()
	out.HostExists = true

	disconnected := func(err error) (Outcome, error) {
		return out, &TransportError{Host: ex.Host, Kind: Disconnected, Err: err}
	}

	// HELO and MAIL FROM reply codes are not inspected: a server that
	// refuses either also refuses the RCPT, which is what gets classified.
	if _, err := conn.Hello(p.cfg.HeloName); err != nil {
		return disconnected(err)
	}
	if _, err := conn.Mail(from); err != nil {
		return disconnected(err)
	}

	rcpt, err := conn.Rcpt(target.SMTPAddr())
	if err != nil {
		return disconnected(err)
	}

	random, err := p.randomRcp(target.ASCIIDomain())
	if err != nil {
		return out, err
	}
	catchAll, err := conn.Rcpt(random)
	if err != nil {
		return disconnected(err)
	}

	switch {
	case rcpt.Code == 250:
		out.Deliverable = true
		out.CatchAll = catchAll.Code == 250
	case rcpt.Code >= 400:
		return out, &RecipientError{Host: ex.Host, Status: Status{Code: rcpt.Code, Response: rcpt.Text}}
	}
	return out, nil
}

// IsTransport reports whether err is a TransportError of the given kind.
func IsTransport(err error, kind TransportKind) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == kind
}
