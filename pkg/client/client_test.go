package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-macharia/isc-radius/pkg/log"
	"github.com/david-macharia/isc-radius/pkg/packet"
	"github.com/david-macharia/isc-radius/pkg/server"
)

func freePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()
	return port
}

func startServer(t *testing.T, hook server.Hook) *server.Server {
	t.Helper()

	cfg := &server.Config{
		BindAddress: "127.0.0.1",
		AuthPort:    freePort(t),
		AcctPort:    freePort(t),
		Clients:     map[string]string{"127.0.0.1": "secret"},
		Logger:      log.Discard(),
	}

	srv, err := server.New(cfg, hook)
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)
	return srv
}

func acceptAlice() server.Hook {
	return server.Hook{
		Auth: []server.HandlerFunc{
			func(ctx context.Context, req *server.Request, resp *packet.Packet) (bool, error) {
				name := req.Packet.Get("User-Name")
				if name != nil && name.Value.String() == "alice" {
					if err := resp.SetCode(packet.CodeAccessAccept); err != nil {
						return false, err
					}
					return true, resp.Add("Reply-Message", "hello alice")
				}
				return false, nil
			},
		},
	}
}

func endpointFor(srv *server.Server) ServerEndpoint {
	return ServerEndpoint{
		Addr:     "127.0.0.1",
		AuthPort: srv.AuthAddr().(*net.UDPAddr).Port,
		AcctPort: srv.AcctAddr().(*net.UDPAddr).Port,
		Secret:   "secret",
	}
}

func newTestClient(t *testing.T, endpoints ...ServerEndpoint) *Client {
	t.Helper()
	c, err := New(&Config{
		Servers: endpoints,
		Retry:   2,
		Delay:   200 * time.Millisecond,
		Logger:  log.Discard(),
	})
	require.NoError(t, err)
	return c
}

func TestClientAuthenticateAccept(t *testing.T) {
	srv := startServer(t, acceptAlice())
	c := newTestClient(t, endpointFor(srv))

	resp, err := c.Authenticate(context.Background(), "alice", "password123", nil)
	require.NoError(t, err)
	assert.Equal(t, packet.CodeAccessAccept, resp.Code())

	msg := resp.Get("Reply-Message")
	require.NotNil(t, msg)
	assert.Equal(t, packet.StringValue("hello alice"), msg.Value)
}

func TestClientAuthenticateReject(t *testing.T) {
	srv := startServer(t, acceptAlice())
	c := newTestClient(t, endpointFor(srv))

	_, err := c.Authenticate(context.Background(), "mallory", "guess", nil)
	require.Error(t, err)

	var reject *RejectError
	require.ErrorAs(t, err, &reject)
	assert.Equal(t, packet.CodeAccessReject, reject.Response.Code())
}

func TestClientAccounting(t *testing.T) {
	srv := startServer(t, server.Hook{})
	c := newTestClient(t, endpointFor(srv))

	resp, err := c.Account(context.Background(), []Pair{
		{Ref: "Acct-Status-Type", Value: "Start"},
		{Ref: "Acct-Session-Id", Value: "sess-1"},
		{Ref: "User-Name", Value: "alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, packet.CodeAccountingResponse, resp.Code())
}

func TestClientTimeout(t *testing.T) {
	// Nothing listens on this port.
	dead := ServerEndpoint{
		Addr:     "127.0.0.1",
		AuthPort: freePort(t),
		Secret:   "secret",
	}

	c, err := New(&Config{
		Servers: []ServerEndpoint{dead},
		Retry:   2,
		Delay:   50 * time.Millisecond,
		Logger:  log.Discard(),
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Authenticate(context.Background(), "alice", "pw", nil)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClientFailover(t *testing.T) {
	srv := startServer(t, acceptAlice())

	dead := ServerEndpoint{
		Addr:     "127.0.0.1",
		AuthPort: freePort(t),
		Secret:   "secret",
	}

	c := newTestClient(t, dead, endpointFor(srv))

	resp, err := c.Authenticate(context.Background(), "alice", "pw", nil)
	require.NoError(t, err)
	assert.Equal(t, packet.CodeAccessAccept, resp.Code())
}

func TestClientContextCancel(t *testing.T) {
	dead := ServerEndpoint{
		Addr:     "127.0.0.1",
		AuthPort: freePort(t),
		Secret:   "secret",
	}
	c := newTestClient(t, dead)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Authenticate(ctx, "alice", "pw", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientUnsupportedCode(t *testing.T) {
	c := newTestClient(t, ServerEndpoint{Addr: "127.0.0.1", Secret: "s"})

	for _, code := range []packet.Code{packet.CodeAccessAccept, packet.CodeStatusServer} {
		_, err := c.Exchange(context.Background(), code, nil)
		assert.ErrorIs(t, err, ErrUnsupportedRequest)
	}
}

func TestClientIdentifiersAdvance(t *testing.T) {
	c := newTestClient(t, ServerEndpoint{Addr: "127.0.0.1", Secret: "s"})

	first := c.nextIdentifier(0)
	second := c.nextIdentifier(0)
	assert.Equal(t, uint8(first+1), second)
}

func TestClientConfigErrors(t *testing.T) {
	_, err := New(&Config{})
	assert.ErrorIs(t, err, ErrNoServers)
}
