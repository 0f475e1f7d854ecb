// Package emailprobe checks whether an email address is likely deliverable
// without sending mail. It resolves the domain's mail exchanges and, on
// each in turn, runs a partial SMTP transaction (HELO, MAIL FROM, RCPT TO)
// that stops before DATA. A second RCPT TO for a random local part
// detects catch-all domains.
//
// Basic usage:
//
//	v, err := emailprobe.New(emailprobe.Options{SourceAddr: "verify@myapp.com"})
//	if err != nil {
//	    return err
//	}
//	result := v.Verify(ctx, "user@example.com")
//
// Through a proxy:
//
//	v, err := emailprobe.New(emailprobe.Options{
//	    SourceAddr: "verify@myapp.com",
//	    Proxy: emailprobe.ProxyOptions{
//	        Type: "socks5",
//	        Addr: "127.0.0.1",
//	        Port: "1080",
//	    },
//	})
package emailprobe

import "github.com/optimode/emailprobe/types"

// Address is a re-export from the types package so that consumers
// don't need to import the types package directly.
type Address = types.Address

// Exchange is a re-export.
type Exchange = types.Exchange
