package parse

import (
	"strings"
	"unicode"

	"golang.org/x/net/idna"

	"github.com/optimode/emailprobe/types"
)

// Strict applies RFC 5321/5322 syntax rules on top of Address, with
// RFC 6531 (SMTPUTF8) local parts and IDNA2008 domains allowed.
// Address itself is deliberately lenient; Strict is opt-in.
func Strict(a types.Address) error {
	if reason := strictReason(a); reason != "" {
		return &FormatError{Input: a.Addr, Reason: reason}
	}
	return nil
}

func strictReason(a types.Address) string {
	if len(a.Addr) > 254 {
		return "email address exceeds 254 characters"
	}
	if len(a.Username) > 64 {
		return "local part exceeds 64 characters"
	}

	validate := validateLocal
	if isQuoted(a.Username) {
		validate = validateQuotedLocal
	}
	if reason := validate(a.Username); reason != "" {
		return reason
	}

	domain := strings.ToLower(a.Domain)
	if hasNonASCII(domain) {
		if _, err := idna.Lookup.ToASCII(domain); err != nil {
			return "domain is not a valid internationalized domain name"
		}
	} else if u, err := idna.Display.ToUnicode(domain); err == nil {
		// xn-- labels are validated in their Unicode form
		domain = u
	}
	return validateDomain(domain)
}

func isQuoted(local string) bool {
	return len(local) >= 2 && strings.HasPrefix(local, `"`) && strings.HasSuffix(local, `"`)
}

// validateQuotedLocal checks a quoted-string local part (RFC 5321 4.1.2):
// printable ASCII or UTF-8 inside the quotes, with '"' and '\' escaped.
func validateQuotedLocal(local string) string {
	inner := local[1 : len(local)-1]
	if inner == "" {
		return "quoted local part is empty"
	}
	escaped := false
	for _, ch := range inner {
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			return "quoted local part contains unescaped quote"
		case unicode.IsControl(ch):
			return "local part contains control character"
		}
	}
	if escaped {
		return "quoted local part ends with a backslash"
	}
	return ""
}

func hasNonASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

// validateLocal checks an unquoted local part as a dot-atom, with UTF-8
// allowed in atext (RFC 6531). Returns error text, or "" if ok.
func validateLocal(local string) string {
	if local == "" {
		return "local part is empty"
	}

	atoms := strings.Split(local, ".")
	for i, atom := range atoms {
		if atom == "" {
			if i == 0 || i == len(atoms)-1 {
				return "local part cannot start or end with a dot"
			}
			return "local part cannot contain consecutive dots"
		}
		for _, ch := range atom {
			if unicode.IsControl(ch) {
				return "local part contains control character"
			}
			if !isAtext(ch) {
				return "local part contains invalid character: " + string(ch)
			}
		}
	}
	return ""
}

func isAtext(ch rune) bool {
	switch {
	case ch > unicode.MaxASCII:
		return true
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	return strings.ContainsRune("!#$%&'*+/=?^_`{|}~-", ch)
}

// validateDomain checks the Unicode form of the domain.
// Returns error text, or "" if ok.
func validateDomain(domain string) string {
	if domain == "" {
		return "domain is empty"
	}

	// IP literal: [127.0.0.1], accepted without further checks
	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		return ""
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "domain must have at least two labels"
	}

	for _, label := range labels {
		switch {
		case label == "":
			return "domain contains empty label (consecutive dots)"
		case len(label) > 63:
			return "domain label exceeds 63 characters"
		case strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-"):
			return "domain label cannot start or end with a hyphen"
		}
		for _, ch := range label {
			if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '-' {
				return "domain label contains invalid character: " + string(ch)
			}
		}
	}

	tld := labels[len(labels)-1]
	if strings.IndexFunc(tld, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return "TLD cannot be all digits"
	}
	return ""
}
