package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/david-macharia/isc-radius/pkg/crypto"
	"github.com/david-macharia/isc-radius/pkg/dictionary"
	"github.com/david-macharia/isc-radius/pkg/log"
	"github.com/david-macharia/isc-radius/pkg/packet"
)

const (
	// DefaultRetry is the number of passes over the server list.
	DefaultRetry = 3

	// DefaultDelay is the per-attempt response wait.
	DefaultDelay = time.Second
)

var (
	// ErrNoServers is returned when a client is configured without
	// upstreams.
	ErrNoServers = errors.New("no servers configured")

	// ErrTimeout is returned when every attempt went unanswered.
	ErrTimeout = errors.New("no response from any server")

	// ErrUnsupportedRequest is returned for codes Exchange cannot
	// send.
	ErrUnsupportedRequest = errors.New("unsupported request code")
)

// RejectError carries an Access-Reject response.
type RejectError struct {
	// Response is the decoded reject packet.
	Response *packet.Packet
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("access rejected (id=%d)", e.Response.Identifier())
}

// ServerEndpoint names one upstream RADIUS server.
type ServerEndpoint struct {
	// Addr is the server host, an IP address or name.
	Addr string `yaml:"addr"`

	// AuthPort is the authentication port, default 1812.
	AuthPort int `yaml:"auth_port"`

	// AcctPort is the accounting port, default 1813.
	AcctPort int `yaml:"acct_port"`

	// Secret is the shared secret for this server.
	Secret string `yaml:"secret"`
}

// Config carries the client settings.
type Config struct {
	// Servers lists the upstreams in round-robin order.
	Servers []ServerEndpoint `yaml:"servers"`

	// Retry is the number of passes over the server list, default 3.
	Retry int `yaml:"retry"`

	// Delay is the per-attempt response wait, default one second.
	Delay time.Duration `yaml:"delay"`

	Dictionary *dictionary.Dictionary `yaml:"-"`
	Logger     log.Logger             `yaml:"-"`
}

// Client sends RADIUS requests across a pool of servers.
type Client struct {
	servers []ServerEndpoint
	retry   int
	delay   time.Duration
	dict    *dictionary.Dictionary
	logg    log.Logger

	mu          sync.Mutex
	identifiers []uint8
}

// New validates the config and builds a client. Each upstream starts
// from a random identifier so restarts do not collide with packets
// still in flight.
func New(cfg *Config) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, ErrNoServers
	}

	retry := cfg.Retry
	if retry <= 0 {
		retry = DefaultRetry
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	dict := cfg.Dictionary
	if dict == nil {
		d, err := dictionary.Default()
		if err != nil {
			return nil, err
		}
		dict = d
	}

	logg := cfg.Logger
	if logg == nil {
		logg = log.New()
	}

	servers := make([]ServerEndpoint, len(cfg.Servers))
	identifiers := make([]uint8, len(cfg.Servers))
	for i, srv := range cfg.Servers {
		if srv.AuthPort == 0 {
			srv.AuthPort = 1812
		}
		if srv.AcctPort == 0 {
			srv.AcctPort = 1813
		}
		servers[i] = srv
		identifiers[i] = uint8(rand.Intn(256))
	}

	return &Client{
		servers:     servers,
		retry:       retry,
		delay:       delay,
		dict:        dict,
		logg:        logg,
		identifiers: identifiers,
	}, nil
}

// Dictionary returns the dictionary requests are built against.
func (c *Client) Dictionary() *dictionary.Dictionary { return c.dict }

func (c *Client) nextIdentifier(server int) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.identifiers[server]
	c.identifiers[server]++
	return id
}

// Authenticate sends an Access-Request carrying the given user name
// and password plus any extra attributes, and returns the
// Access-Accept. An Access-Reject surfaces as a RejectError.
func (c *Client) Authenticate(ctx context.Context, username, password string, attrs map[string]interface{}) (*packet.Packet, error) {
	pairs := []Pair{
		{Ref: "User-Name", Value: username},
		{Ref: "User-Password", Value: password},
	}
	for ref, value := range attrs {
		pairs = append(pairs, Pair{Ref: ref, Value: value})
	}
	return c.Exchange(ctx, packet.CodeAccessRequest, pairs)
}

// Account sends an Accounting-Request carrying the given attributes
// and returns the Accounting-Response.
func (c *Client) Account(ctx context.Context, pairs []Pair) (*packet.Packet, error) {
	return c.Exchange(ctx, packet.CodeAccountingRequest, pairs)
}

// Pair is an attribute reference and value for a request under
// construction.
type Pair struct {
	Ref   interface{}
	Value interface{}
}

// preparedRequest is the encoded form of a request for one upstream.
// The encoding is reused across retries to that upstream.
type preparedRequest struct {
	identifier uint8
	auth       crypto.Authenticator
	encoded    []byte
}

// Exchange sends the request round-robin across the server pool until
// one answers, making retry passes over the list. The response is
// validated against the request authenticator before it is accepted.
func (c *Client) Exchange(ctx context.Context, code packet.Code, pairs []Pair) (*packet.Packet, error) {
	if code != packet.CodeAccessRequest && code != packet.CodeAccountingRequest {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRequest, code)
	}

	prepared := make([]*preparedRequest, len(c.servers))
	attempts := c.retry * len(c.servers)

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idx := attempt % len(c.servers)
		srv := c.servers[idx]

		if prepared[idx] == nil {
			req, err := c.prepare(code, pairs, idx, srv)
			if err != nil {
				return nil, err
			}
			prepared[idx] = req
		}

		resp, err := c.sendOnce(ctx, code, srv, prepared[idx])
		if err != nil {
			var reject *RejectError
			if errors.As(err, &reject) {
				return nil, err
			}
			c.logg.Debugf("attempt %d to %s failed: %v", attempt+1, srv.Addr, err)
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrTimeout, attempts)
}

// prepare encodes the request for one upstream. Accounting requests
// are encoded with a zero authenticator first, then stamped with the
// derived accounting authenticator.
func (c *Client) prepare(code packet.Code, pairs []Pair, idx int, srv ServerEndpoint) (*preparedRequest, error) {
	id := c.nextIdentifier(idx)

	var req *packet.Packet
	var err error
	if code == packet.CodeAccountingRequest {
		req = packet.New(c.dict, code, id)
	} else {
		req, err = packet.NewRequest(c.dict, code, id)
		if err != nil {
			return nil, err
		}
	}

	for _, pair := range pairs {
		if err := req.Add(pair.Ref, pair.Value); err != nil {
			return nil, err
		}
	}

	secret := []byte(srv.Secret)
	encoded, err := req.Encode(secret, false)
	if err != nil {
		return nil, err
	}

	auth := req.Authenticator()
	if code == packet.CodeAccountingRequest {
		auth = crypto.AccountingRequestAuthenticator(encoded, secret)
		copy(encoded[4:4+crypto.AuthenticatorLength], auth[:])
	}

	return &preparedRequest{identifier: id, auth: auth, encoded: encoded}, nil
}

func (srv ServerEndpoint) portFor(code packet.Code) int {
	if code == packet.CodeAccountingRequest {
		return srv.AcctPort
	}
	return srv.AuthPort
}
