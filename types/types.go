// Package types contains the shared types for emailprobe.
// This package does not import anything from other emailprobe packages
// to avoid circular imports.
package types

import (
	"strings"

	"golang.org/x/net/idna"
)

// Address is a parsed email address. Addr is always Username + "@" + Domain.
type Address struct {
	Name     string `json:"name"`
	Addr     string `json:"addr"`
	Username string `json:"username"`
	Domain   string `json:"domain"`
}

// ASCIIDomain returns the domain in its ASCII/Punycode form, suitable for
// DNS queries and SMTP commands. If the domain cannot be converted it is
// returned lowercased and otherwise unchanged.
func (a Address) ASCIIDomain() string {
	d := strings.ToLower(a.Domain)
	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		return d
	}
	return ascii
}

// SMTPAddr is the address as it is sent in RCPT TO.
func (a Address) SMTPAddr() string {
	return a.Username + "@" + a.ASCIIDomain()
}

// Exchange is a single MX record of a domain.
// Lower Preference values are more preferred.
type Exchange struct {
	Preference uint16 `json:"preference"`
	Host       string `json:"host"`
}
