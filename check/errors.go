package check

import (
	"errors"
	"fmt"
)

// ErrResolve is matched by every ResolveError.
var ErrResolve = errors.New("check: domain has no usable MX records")

// ResolveKind tells why MX resolution failed.
type ResolveKind int

const (
	NoAnswer      ResolveKind = iota + 1 // the domain exists but has no MX records
	NoSuchDomain                         // NXDOMAIN
	NoNameservers                        // no nameserver gave a usable answer
)

func (k ResolveKind) String() string {
	switch k {
	case NoAnswer:
		return "no answer"
	case NoSuchDomain:
		return "no such domain"
	case NoNameservers:
		return "no nameservers"
	default:
		return fmt.Sprintf("ResolveKind(%d)", int(k))
	}
}

// ResolveError is returned by an ExchangeResolver.
type ResolveError struct {
	Domain string
	Kind   ResolveKind
	Err    error // underlying resolver error, may be nil
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("check: resolve MX for %s: %s: %v", e.Domain, e.Kind, e.Err)
	}
	return fmt.Sprintf("check: resolve MX for %s: %s", e.Domain, e.Kind)
}

func (e *ResolveError) Unwrap() error { return e.Err }

func (e *ResolveError) Is(target error) bool { return target == ErrResolve }

// Status is a raw SMTP reply to RCPT TO.
type Status struct {
	Code     int
	Response []byte
}

// RecipientError is returned by a probe when the server answered the
// target's RCPT TO with a 4xx or 5xx code.
type RecipientError struct {
	Host   string
	Status Status
}

func (e *RecipientError) Error() string {
	return fmt.Sprintf("check: %s rejected recipient: %d %s", e.Host, e.Status.Code, e.Status.Response)
}

// TransportKind tells how a probe connection failed.
type TransportKind int

const (
	// ConnectFailed means no SMTP session was established.
	ConnectFailed TransportKind = iota + 1
	// Disconnected means the session broke after the greeting.
	Disconnected
)

func (k TransportKind) String() string {
	switch k {
	case ConnectFailed:
		return "connect failed"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("TransportKind(%d)", int(k))
	}
}

// TransportError is returned by a probe when the network failed.
type TransportError struct {
	Host string
	Kind TransportKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("check: %s: %s: %v", e.Host, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
