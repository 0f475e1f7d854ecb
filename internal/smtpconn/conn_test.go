package smtpconn_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/emailprobe/internal/smtpconn"
)

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f dialFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

// mockSMTPServer simulates an SMTP server on a net.Pipe connection.
// Every received command line is sent on seen.
func mockSMTPServer(server net.Conn, banner string, responses map[string]string, seen chan<- string) {
	defer func() { _ = server.Close() }()

	_, _ = fmt.Fprintf(server, "%s\r\n", banner)

	r := bufio.NewReader(server)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		if seen != nil {
			seen <- cmd
		}
		if cmd == "QUIT" {
			_, _ = fmt.Fprintf(server, "221 Bye\r\n")
			return
		}
		for prefix, resp := range responses {
			if strings.HasPrefix(cmd, prefix) {
				_, _ = fmt.Fprintf(server, "%s\r\n", resp)
				break
			}
		}
	}
}

func pipeDialer(banner string, responses map[string]string, seen chan<- string) smtpconn.Dialer {
	return dialFunc(func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		go mockSMTPServer(server, banner, responses, seen)
		return client, nil
	})
}

func TestConn_Session(t *testing.T) {
	seen := make(chan string, 10)
	d := pipeDialer("220 mx.example.com ESMTP", map[string]string{
		"HELO":      "250 mx.example.com",
		"MAIL FROM": "250 2.1.0 Ok",
		"RCPT TO":   "250 2.1.5 Ok",
	}, seen)

	c, err := smtpconn.Dial(context.Background(), d, "mx.example.com:25", 5*time.Second)
	require.NoError(t, err)

	r, err := c.Hello("probe.example.org")
	require.NoError(t, err)
	assert.Equal(t, 250, r.Code)

	r, err = c.Mail("verify@example.org")
	require.NoError(t, err)
	assert.Equal(t, 250, r.Code)

	r, err = c.Rcpt("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 250, r.Code)
	assert.Equal(t, "2.1.5 Ok", string(r.Text))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, "HELO probe.example.org", <-seen)
	assert.Equal(t, "MAIL FROM:<verify@example.org>", <-seen)
	assert.Equal(t, "RCPT TO:<user@example.com>", <-seen)
	assert.Equal(t, "QUIT", <-seen)
}

func TestConn_MultilineReply(t *testing.T) {
	d := pipeDialer("220 mx.example.com ESMTP", map[string]string{
		"RCPT TO": "550-5.1.1 The email account does not exist.\r\n550 5.1.1 Listed by spamhaus",
	}, nil)

	c, err := smtpconn.Dial(context.Background(), d, "mx.example.com:25", 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	r, err := c.Rcpt("nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, 550, r.Code)
	assert.Equal(t, "5.1.1 The email account does not exist.\n5.1.1 Listed by spamhaus", string(r.Text))
}

func TestDial_ConnectionError(t *testing.T) {
	d := dialFunc(func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	})

	_, err := smtpconn.Dial(context.Background(), d, "mx.example.com:25", time.Second)
	var ce *smtpconn.ConnectError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "mx.example.com:25", ce.Addr)
	assert.Zero(t, ce.Code)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDial_GreetingRejected(t *testing.T) {
	d := pipeDialer("554 5.7.1 No SMTP service here", nil, nil)

	_, err := smtpconn.Dial(context.Background(), d, "mx.example.com:25", time.Second)
	var ce *smtpconn.ConnectError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 554, ce.Code)
}

func TestConn_Disconnected(t *testing.T) {
	d := dialFunc(func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			_, _ = fmt.Fprintf(server, "220 mx.example.com ESMTP\r\n")
			_ = server.Close()
		}()
		return client, nil
	})

	c, err := smtpconn.Dial(context.Background(), d, "mx.example.com:25", time.Second)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Hello("probe.example.org")
	assert.Error(t, err)
}

func TestConn_ContextCancelUnblocks(t *testing.T) {
	d := dialFunc(func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			_, _ = fmt.Fprintf(server, "220 mx.example.com ESMTP\r\n")
			// Read commands but never answer.
			buf := make([]byte, 512)
			for {
				if _, err := server.Read(buf); err != nil {
					return
				}
			}
		}()
		return client, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	c, err := smtpconn.Dial(ctx, d, "mx.example.com:25", time.Minute)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	time.AfterFunc(50*time.Millisecond, cancel)
	start := time.Now()
	_, err = c.Hello("probe.example.org")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestConn_ContextDeadlineCapsCommandTimeout(t *testing.T) {
	d := dialFunc(func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			_, _ = fmt.Fprintf(server, "220 mx.example.com ESMTP\r\n")
			buf := make([]byte, 512)
			for {
				if _, err := server.Read(buf); err != nil {
					return
				}
			}
		}()
		return client, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	c, err := smtpconn.Dial(ctx, d, "mx.example.com:25", time.Minute)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	start := time.Now()
	_, err = c.Hello("probe.example.org")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestConn_CancelBetweenCommands(t *testing.T) {
	for i := 0; i < 50; i++ {
		var server net.Conn
		d := dialFunc(func(context.Context, string, string) (net.Conn, error) {
			var client net.Conn
			client, server = net.Pipe()
			go mockSMTPServer(server, "220 mx.example.com ESMTP", map[string]string{"HELO": "250 OK"}, nil)
			return client, nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		c, err := smtpconn.Dial(ctx, d, "mx.example.com:25", time.Minute)
		require.NoError(t, err)

		time.AfterFunc(time.Duration(i%5)*time.Millisecond, cancel)
		start := time.Now()
		for err == nil {
			_, err = c.Hello("probe.example.org")
		}
		assert.Less(t, time.Since(start), 10*time.Second)

		// The server may be blocked writing a reply nobody reads.
		_ = server.Close()
		_ = c.Close()
		cancel()
	}
}

func TestConn_RejectsLineBreaks(t *testing.T) {
	d := pipeDialer("220 mx.example.com ESMTP", nil, nil)
	c, err := smtpconn.Dial(context.Background(), d, "mx.example.com:25", time.Second)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Rcpt("user@example.com>\r\nDATA")
	assert.Error(t, err)
}
