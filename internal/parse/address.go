// Package parse splits free-text email input into a types.Address.
package parse

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/optimode/emailprobe/types"
)

// ErrFormat is matched by every error returned from this package.
var ErrFormat = errors.New("parse: malformed email address")

const (
	reasonNoAddress = "email does not contain address"
	reasonInvalid   = "address provided is invalid"
)

// FormatError reports why an input could not be turned into an Address.
type FormatError struct {
	Input  string // the original input, untrimmed
	Reason string
}

func (e *FormatError) Error() string {
	return e.Reason + ": " + e.Input
}

// Is makes errors.Is(err, ErrFormat) hold for every FormatError.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// NoAddress reports whether the input had no address at all, as opposed
// to an address that could not be split into local part and domain.
func (e *FormatError) NoAddress() bool {
	return e.Reason == reasonNoAddress
}

// Address parses a bare address ("user@example.com") or an RFC 2822
// mailbox ("User <user@example.com>"). The address is split on its last
// "@". The result is never returned with an empty Addr.
func Address(raw string) (types.Address, error) {
	s := strings.TrimSpace(raw)

	name, addr, ok := split(s)
	if addr == "" {
		return types.Address{}, &FormatError{Input: raw, Reason: reasonNoAddress}
	}

	at := strings.LastIndex(addr, "@")
	if !ok || at < 1 || at == len(addr)-1 {
		return types.Address{}, &FormatError{Input: raw, Reason: reasonInvalid}
	}

	return types.Address{
		Name:     name,
		Addr:     addr,
		Username: addr[:at],
		Domain:   addr[at+1:],
	}, nil
}

// split extracts the display name and address portion of s.
// net/mail handles the common cases; anything it rejects
// (bare local parts, Unicode local parts, empty angle brackets)
// is split by hand so that the caller can tell the failure modes apart.
// ok is false when the hand-split address contains characters that can
// never appear unquoted in an address.
func split(s string) (name, addr string, ok bool) {
	if a, err := mail.ParseAddress(s); err == nil {
		return a.Name, requote(a.Address, addrSpec(s)), true
	}

	addr = s
	if open := strings.LastIndex(s, "<"); open >= 0 && strings.HasSuffix(s, ">") {
		name = strings.Trim(strings.TrimSpace(s[:open]), `"`)
		addr = strings.TrimSpace(s[open+1 : len(s)-1])
	}
	return name, addr, !strings.ContainsAny(addr, " \t\r\n<>")
}

// addrSpec returns the part of s between the last angle brackets, or s.
func addrSpec(s string) string {
	if open := strings.LastIndex(s, "<"); open >= 0 && strings.HasSuffix(s, ">") {
		return strings.TrimSpace(s[open+1 : len(s)-1])
	}
	return s
}

// requote restores the quoted local part that net/mail unquotes, so that
// `"john doe"@example.com` is not sent as RCPT TO:<john doe@example.com>.
// The quoted form is taken verbatim from written, the addr-spec as typed.
func requote(parsed, written string) string {
	local, ok := quotedLocal(written)
	if !ok {
		return parsed
	}
	at := strings.LastIndex(parsed, "@")
	if at < 0 {
		return parsed
	}
	return local + parsed[at:]
}

// quotedLocal returns the local part of an addr-spec written as a quoted
// string, quotes included.
func quotedLocal(addr string) (string, bool) {
	at := strings.LastIndex(addr, "@")
	if at < 1 {
		return "", false
	}
	local := addr[:at]
	return local, isQuoted(local)
}
