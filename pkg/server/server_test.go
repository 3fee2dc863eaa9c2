package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-macharia/isc-radius/pkg/crypto"
	"github.com/david-macharia/isc-radius/pkg/log"
	"github.com/david-macharia/isc-radius/pkg/packet"
)

func freePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()
	return port
}

func startServer(t *testing.T, hook Hook) *Server {
	t.Helper()

	cfg := &Config{
		BindAddress: "127.0.0.1",
		AuthPort:    freePort(t),
		AcctPort:    freePort(t),
		Clients:     map[string]string{"127.0.0.1": "secret"},
		Logger:      log.Discard(),
	}

	srv, err := New(cfg, hook)
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)
	return srv
}

// exchange sends one datagram to addr and waits briefly for a reply.
// A nil result means the server stayed silent.
func exchange(t *testing.T, addr net.Addr, data []byte) []byte {
	t.Helper()

	conn, err := net.Dial("udp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(data)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(500*time.Millisecond)))
	buf := make([]byte, packet.MaxPacketSize)
	n, err := conn.Read(buf)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return nil
		}
		t.Fatalf("read: %v", err)
	}
	return buf[:n]
}

func TestServerDefaultReject(t *testing.T) {
	srv := startServer(t, Hook{})
	secret := []byte("secret")

	req, err := packet.NewRequest(srv.Dictionary(), packet.CodeAccessRequest, 10)
	require.NoError(t, err)
	require.NoError(t, req.Add("User-Name", "alice"))
	require.NoError(t, req.Add("User-Password", "wrong"))
	require.NoError(t, req.Add("Proxy-State", []byte("hop1")))
	require.NoError(t, req.Add("Proxy-State", []byte("hop2")))

	encoded, err := req.Encode(secret, false)
	require.NoError(t, err)

	data := exchange(t, srv.AuthAddr(), encoded)
	require.NotNil(t, data)
	require.True(t, crypto.VerifyResponse(data, req.Authenticator(), secret))

	resp, err := packet.Decode(srv.Dictionary(), data, secret)
	require.NoError(t, err)
	assert.Equal(t, packet.CodeAccessReject, resp.Code())
	assert.Equal(t, uint8(10), resp.Identifier())

	states := resp.GetAll("Proxy-State")
	require.Len(t, states, 2)
	assert.Equal(t, packet.OctetsValue("hop1"), states[0].Value)
	assert.Equal(t, packet.OctetsValue("hop2"), states[1].Value)
}

func TestServerHandlerAccept(t *testing.T) {
	hook := Hook{
		Auth: []HandlerFunc{
			func(ctx context.Context, req *Request, resp *packet.Packet) (bool, error) {
				name := req.Packet.Get("User-Name")
				if name != nil && name.Value.String() == "alice" {
					if err := resp.SetCode(packet.CodeAccessAccept); err != nil {
						return false, err
					}
					return true, nil
				}
				return false, nil
			},
			func(ctx context.Context, req *Request, resp *packet.Packet) (bool, error) {
				// Short-circuited for alice; anyone else lands here.
				return false, resp.Add("Reply-Message", "fell through")
			},
		},
	}
	srv := startServer(t, hook)
	secret := []byte("secret")

	t.Run("accepted user short-circuits", func(t *testing.T) {
		req, err := packet.NewRequest(srv.Dictionary(), packet.CodeAccessRequest, 1)
		require.NoError(t, err)
		require.NoError(t, req.Add("User-Name", "alice"))

		encoded, err := req.Encode(secret, false)
		require.NoError(t, err)

		data := exchange(t, srv.AuthAddr(), encoded)
		require.NotNil(t, data)

		resp, err := packet.Decode(srv.Dictionary(), data, secret)
		require.NoError(t, err)
		assert.Equal(t, packet.CodeAccessAccept, resp.Code())
		assert.False(t, resp.Has("Reply-Message"))
	})

	t.Run("other user reaches next handler", func(t *testing.T) {
		req, err := packet.NewRequest(srv.Dictionary(), packet.CodeAccessRequest, 2)
		require.NoError(t, err)
		require.NoError(t, req.Add("User-Name", "mallory"))

		encoded, err := req.Encode(secret, false)
		require.NoError(t, err)

		data := exchange(t, srv.AuthAddr(), encoded)
		require.NotNil(t, data)

		resp, err := packet.Decode(srv.Dictionary(), data, secret)
		require.NoError(t, err)
		assert.Equal(t, packet.CodeAccessReject, resp.Code())
		assert.True(t, resp.Has("Reply-Message"))
	})
}

func TestServerHandlerErrorDropsRequest(t *testing.T) {
	hook := Hook{
		Auth: []HandlerFunc{
			func(ctx context.Context, req *Request, resp *packet.Packet) (bool, error) {
				return false, errors.New("backend down")
			},
		},
	}
	srv := startServer(t, hook)
	secret := []byte("secret")

	req, err := packet.NewRequest(srv.Dictionary(), packet.CodeAccessRequest, 3)
	require.NoError(t, err)
	encoded, err := req.Encode(secret, false)
	require.NoError(t, err)

	assert.Nil(t, exchange(t, srv.AuthAddr(), encoded))
}

func TestServerAccountingDefaultResponse(t *testing.T) {
	srv := startServer(t, Hook{})
	secret := []byte("secret")

	req := packet.New(srv.Dictionary(), packet.CodeAccountingRequest, 20)
	require.NoError(t, req.Add("Acct-Status-Type", "Start"))
	require.NoError(t, req.Add("Acct-Session-Id", "abc-123"))

	encoded, err := req.Encode(secret, false)
	require.NoError(t, err)
	auth := crypto.AccountingRequestAuthenticator(encoded, secret)
	copy(encoded[4:20], auth[:])

	data := exchange(t, srv.AcctAddr(), encoded)
	require.NotNil(t, data)
	require.True(t, crypto.VerifyResponse(data, auth, secret))

	resp, err := packet.Decode(srv.Dictionary(), data, secret)
	require.NoError(t, err)
	assert.Equal(t, packet.CodeAccountingResponse, resp.Code())
	assert.Equal(t, uint8(20), resp.Identifier())
}

func TestServerStatusServerBypassesHandlers(t *testing.T) {
	hook := Hook{
		Auth: []HandlerFunc{
			func(ctx context.Context, req *Request, resp *packet.Packet) (bool, error) {
				return false, errors.New("must not run")
			},
		},
	}
	srv := startServer(t, hook)
	secret := []byte("secret")

	req, err := packet.NewRequest(srv.Dictionary(), packet.CodeStatusServer, 30)
	require.NoError(t, err)
	encoded, err := req.Encode(secret, false)
	require.NoError(t, err)

	data := exchange(t, srv.AuthAddr(), encoded)
	require.NotNil(t, data)

	resp, err := packet.Decode(srv.Dictionary(), data, secret)
	require.NoError(t, err)
	assert.Equal(t, packet.CodeAccessAccept, resp.Code())
}

func TestServerDropsMalformedAndNonRequests(t *testing.T) {
	srv := startServer(t, Hook{})
	secret := []byte("secret")

	t.Run("garbage datagram", func(t *testing.T) {
		assert.Nil(t, exchange(t, srv.AuthAddr(), []byte{1, 2, 3}))
	})

	t.Run("response code", func(t *testing.T) {
		p := packet.New(srv.Dictionary(), packet.CodeAccessAccept, 40)
		encoded, err := p.Encode(secret, false)
		require.NoError(t, err)
		assert.Nil(t, exchange(t, srv.AuthAddr(), encoded))
	})

	t.Run("accounting request on auth socket", func(t *testing.T) {
		p := packet.New(srv.Dictionary(), packet.CodeAccountingRequest, 41)
		require.NoError(t, p.Add("Acct-Status-Type", "Start"))
		encoded, err := p.Encode(secret, false)
		require.NoError(t, err)
		assert.Nil(t, exchange(t, srv.AuthAddr(), encoded))
	})

	t.Run("access request on acct socket", func(t *testing.T) {
		p, err := packet.NewRequest(srv.Dictionary(), packet.CodeAccessRequest, 42)
		require.NoError(t, err)
		encoded, err := p.Encode(secret, false)
		require.NoError(t, err)
		assert.Nil(t, exchange(t, srv.AcctAddr(), encoded))
	})
}

func TestServerLifecycle(t *testing.T) {
	srv := startServer(t, Hook{})
	assert.ErrorIs(t, srv.Start(context.Background()), ErrAlreadyRunning)

	srv.Stop()
	srv.Stop()
}
