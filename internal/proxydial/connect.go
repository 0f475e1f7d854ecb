package proxydial

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// connectDialer tunnels through an HTTP proxy with the CONNECT method.
type connectDialer struct {
	proxyAddr string
	username  string
	password  string
	forward   *net.Dialer
}

func (d *connectDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.forward.DialContext(ctx, network, d.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("proxydial: connect to http proxy %s: %w", d.proxyAddr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if d.forward.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.forward.Timeout))
	}

	br, err := d.handshake(conn, address)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	if br.Buffered() > 0 {
		// The tunnelled server already started talking.
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

func (d *connectDialer) handshake(conn net.Conn, address string) (*bufio.Reader, error) {
	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: address},
		Host:   address,
		Header: make(http.Header),
	}
	if d.username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(d.username + ":" + d.password))
		req.Header.Set("Proxy-Authorization", "Basic "+cred)
	}
	if err := req.Write(conn); err != nil {
		return nil, fmt.Errorf("proxydial: write CONNECT %s: %w", address, err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return nil, fmt.Errorf("proxydial: read CONNECT response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// The body is left unread, the caller closes the connection.
		return nil, fmt.Errorf("proxydial: CONNECT %s refused: %s", address, resp.Status)
	}
	return br, nil
}

// bufferedConn reads through the reader that consumed the CONNECT reply.
type bufferedConn struct {
	net.Conn
	r io.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
