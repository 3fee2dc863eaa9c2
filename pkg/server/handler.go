package server

import (
	"context"
	"net"

	"github.com/david-macharia/isc-radius/pkg/packet"
)

// Request carries a decoded packet together with its transport
// context.
type Request struct {
	// Packet is the decoded, frozen request.
	Packet *packet.Packet

	// ClientAddr is the source address of the datagram.
	ClientAddr *net.UDPAddr

	// Secret is the shared secret of the sending client.
	Secret []byte
}

// HandlerFunc inspects a request and may fill in the response. A true
// result stops the chain; a non-nil error drops the request without a
// response.
type HandlerFunc func(ctx context.Context, req *Request, resp *packet.Packet) (bool, error)

// Hook binds handler chains to the two traffic classes.
type Hook struct {
	// Auth runs for Access-Request packets.
	Auth []HandlerFunc

	// Acct runs for Accounting-Request packets.
	Acct []HandlerFunc
}

func runChain(ctx context.Context, chain []HandlerFunc, req *Request, resp *packet.Packet) error {
	for _, h := range chain {
		done, err := h(ctx, req, resp)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}
