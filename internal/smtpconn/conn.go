// Package smtpconn is a minimal SMTP client for recipient probing.
// It speaks only the commands a probe needs (HELO, MAIL, RCPT, QUIT)
// and never sends DATA.
package smtpconn

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Dialer opens the underlying TCP connection, possibly through a proxy.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ConnectError is returned by Dial when no SMTP session could be set up:
// the TCP or proxy connection failed, or the server greeting was missing
// or negative.
type ConnectError struct {
	Addr string
	Code int // greeting code, 0 if none was read
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("smtpconn: connect to %s: greeting %d: %v", e.Addr, e.Code, e.Err)
	}
	return fmt.Sprintf("smtpconn: connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Reply is one SMTP server reply. Text holds the reply lines with the
// status code stripped, joined by "\n".
type Reply struct {
	Code int
	Text []byte
}

// Conn is a single SMTP session. It is not safe for concurrent use.
type Conn struct {
	netConn        net.Conn
	reader         *bufio.Reader
	writer         *bufio.Writer
	commandTimeout time.Duration
	ctx            context.Context
	stop           func() bool
	deadlineMu     sync.Mutex
}

// Dial connects to address and reads the server greeting.
// Every later command is bounded by commandTimeout and by ctx.
func Dial(ctx context.Context, d Dialer, address string, commandTimeout time.Duration) (*Conn, error) {
	netConn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, &ConnectError{Addr: address, Err: err}
	}

	c := &Conn{
		netConn:        netConn,
		reader:         bufio.NewReader(netConn),
		writer:         bufio.NewWriter(netConn),
		commandTimeout: commandTimeout,
		ctx:            ctx,
	}
	// Unblock any pending read or write once ctx is done.
	c.stop = context.AfterFunc(ctx, func() {
		c.deadlineMu.Lock()
		defer c.deadlineMu.Unlock()
		_ = netConn.SetDeadline(time.Unix(1, 0))
	})

	if err := c.setDeadline(); err != nil {
		_ = c.Close()
		return nil, &ConnectError{Addr: address, Err: err}
	}
	reply, err := c.readReply()
	if err != nil {
		_ = c.Close()
		return nil, &ConnectError{Addr: address, Err: fmt.Errorf("read greeting: %w", err)}
	}
	if reply.Code < 200 || reply.Code >= 300 {
		_ = c.Close()
		return nil, &ConnectError{Addr: address, Code: reply.Code, Err: errors.New(string(reply.Text))}
	}
	return c, nil
}

// Hello sends HELO.
func (c *Conn) Hello(name string) (Reply, error) {
	return c.command("HELO " + name)
}

// Mail sends MAIL FROM.
func (c *Conn) Mail(from string) (Reply, error) {
	return c.command("MAIL FROM:<" + from + ">")
}

// Rcpt sends RCPT TO.
func (c *Conn) Rcpt(to string) (Reply, error) {
	return c.command("RCPT TO:<" + to + ">")
}

// Close sends a best-effort QUIT and closes the connection.
// It is safe to call more than once.
func (c *Conn) Close() error {
	if c.netConn == nil {
		return nil
	}
	if c.stop != nil {
		c.stop()
	}
	_ = c.netConn.SetDeadline(time.Now().Add(2 * time.Second))
	_, _ = c.writer.WriteString("QUIT\r\n")
	_ = c.writer.Flush()
	err := c.netConn.Close()
	c.netConn = nil
	return err
}

// setDeadline arms the per-command deadline, capped by the ctx deadline.
// It holds deadlineMu so a concurrent cancellation cannot be overwritten.
func (c *Conn) setDeadline() error {
	c.deadlineMu.Lock()
	defer c.deadlineMu.Unlock()

	if err := c.ctx.Err(); err != nil {
		return err
	}
	deadline, ok := c.ctx.Deadline()
	if c.commandTimeout > 0 {
		if d := time.Now().Add(c.commandTimeout); !ok || d.Before(deadline) {
			deadline, ok = d, true
		}
	}
	if !ok {
		return nil
	}
	return c.netConn.SetDeadline(deadline)
}

// command sends an SMTP command line and reads the reply.
func (c *Conn) command(line string) (Reply, error) {
	if c.netConn == nil {
		return Reply{}, net.ErrClosed
	}
	if strings.ContainsAny(line, "\r\n") {
		return Reply{}, errors.New("smtpconn: command contains a line break")
	}
	if err := c.setDeadline(); err != nil {
		return Reply{}, err
	}
	if _, err := c.writer.WriteString(line + "\r\n"); err != nil {
		return Reply{}, err
	}
	if err := c.writer.Flush(); err != nil {
		return Reply{}, err
	}
	return c.readReply()
}

// readReply reads a (possibly multi-line) SMTP reply.
func (c *Conn) readReply() (Reply, error) {
	var (
		code  int
		lines []string
	)
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return Reply{}, fmt.Errorf("read SMTP reply: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return Reply{}, errors.New("SMTP reply line too short")
		}
		n, err := strconv.Atoi(line[:3])
		if err != nil {
			return Reply{}, fmt.Errorf("invalid SMTP reply code %q: %w", line[:3], err)
		}
		code = n

		more := len(line) > 3 && line[3] == '-'
		if len(line) > 4 {
			lines = append(lines, line[4:])
		}
		// If the 4th character is not '-', this is the last line
		if !more {
			break
		}
	}
	return Reply{Code: code, Text: []byte(strings.Join(lines, "\n"))}, nil
}
