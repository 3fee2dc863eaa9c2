package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/david-macharia/isc-radius/pkg/crypto"
	"github.com/david-macharia/isc-radius/pkg/packet"
)

var errAttemptTimeout = errors.New("attempt timed out")

// sendOnce sends the prepared request to one upstream and waits up to
// the configured delay for a valid response. The connected socket
// filters datagrams to the dialed peer; anything that fails the
// identifier or authenticator checks is ignored and the wait
// continues.
func (c *Client) sendOnce(ctx context.Context, code packet.Code, srv ServerEndpoint, req *preparedRequest) (*packet.Packet, error) {
	addr := net.JoinHostPort(srv.Addr, fmt.Sprintf("%d", srv.portFor(code)))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(req.encoded); err != nil {
		return nil, fmt.Errorf("send to %s: %w", addr, err)
	}

	deadline := time.Now().Add(c.delay)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	secret := []byte(srv.Secret)
	buf := make([]byte, packet.MaxPacketSize)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				return nil, fmt.Errorf("%w: %s", errAttemptTimeout, addr)
			}
			return nil, fmt.Errorf("read from %s: %w", addr, err)
		}

		data := buf[:n]
		if len(data) >= 2 && data[1] != req.identifier {
			c.logg.Debugf("ignoring response with identifier %d from %s", data[1], addr)
			continue
		}
		if !crypto.VerifyResponse(data, req.auth, secret) {
			c.logg.Warnf("ignoring response with bad authenticator from %s", addr)
			continue
		}

		resp, err := packet.Decode(c.dict, data, secret)
		if err != nil {
			c.logg.Warnf("ignoring malformed response from %s: %v", addr, err)
			continue
		}

		accepted, err := c.accept(code, resp)
		if err != nil {
			return nil, err
		}
		if !accepted {
			c.logg.Debugf("ignoring unexpected %s from %s", resp.Code(), addr)
			continue
		}
		return resp, nil
	}
}

// accept applies the request/response code matrix. A false result
// without error means keep waiting.
func (c *Client) accept(request packet.Code, resp *packet.Packet) (bool, error) {
	switch request {
	case packet.CodeAccessRequest:
		switch resp.Code() {
		case packet.CodeAccessAccept:
			return true, nil
		case packet.CodeAccessReject:
			return false, &RejectError{Response: resp}
		}
	case packet.CodeAccountingRequest:
		if resp.Code() == packet.CodeAccountingResponse {
			return true, nil
		}
	}
	return false, nil
}
