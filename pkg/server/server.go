package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/david-macharia/isc-radius/pkg/dictionary"
	"github.com/david-macharia/isc-radius/pkg/log"
	"github.com/david-macharia/isc-radius/pkg/packet"
)

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("server already running")

// socketRole tells the dispatch path which socket a datagram arrived
// on; default-response selection is keyed on the role and the request
// code together.
type socketRole int

const (
	roleAuth socketRole = iota
	roleAcct
)

func (r socketRole) String() string {
	if r == roleAcct {
		return "acct"
	}
	return "auth"
}

// Server answers RADIUS authentication and accounting traffic on two
// UDP sockets.
type Server struct {
	cfg  *Config
	hook Hook
	dict *dictionary.Dictionary
	logg log.Logger

	mu       sync.Mutex
	running  bool
	authConn *net.UDPConn
	acctConn *net.UDPConn
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New validates the config and builds a server.
func New(cfg *Config, hook Hook) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dict := cfg.Dictionary
	if dict == nil {
		d, err := dictionary.Default()
		if err != nil {
			return nil, err
		}
		dict = d
	}
	for _, path := range cfg.Dictionaries {
		if err := dict.Load(path); err != nil {
			return nil, err
		}
	}

	logg := cfg.Logger
	if logg == nil {
		logg = log.New()
	}

	return &Server{cfg: cfg, hook: hook, dict: dict, logg: logg}, nil
}

// Dictionary returns the dictionary the server decodes against.
func (s *Server) Dictionary() *dictionary.Dictionary { return s.dict }

// Start binds both sockets and begins serving. It returns once the
// sockets are listening.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	authConn, err := bindUDP(s.cfg.BindAddress, s.cfg.AuthPort)
	if err != nil {
		return fmt.Errorf("bind auth socket: %w", err)
	}
	acctConn, err := bindUDP(s.cfg.BindAddress, s.cfg.AcctPort)
	if err != nil {
		authConn.Close()
		return fmt.Errorf("bind acct socket: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.authConn = authConn
	s.acctConn = acctConn
	s.cancel = cancel
	s.running = true

	s.wg.Add(2)
	go s.serve(ctx, authConn, roleAuth, s.hook.Auth)
	go s.serve(ctx, acctConn, roleAcct, s.hook.Acct)

	s.logg.Infof("listening on %s (auth) and %s (acct)",
		authConn.LocalAddr(), acctConn.LocalAddr())
	return nil
}

// Stop closes the sockets and waits for in-flight requests.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.authConn.Close()
	s.acctConn.Close()
	s.authConn = nil
	s.acctConn = nil
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logg.Infof("server stopped")
}

// AuthAddr returns the bound authentication socket address, or nil
// when the server is not running.
func (s *Server) AuthAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authConn == nil {
		return nil
	}
	return s.authConn.LocalAddr()
}

// AcctAddr returns the bound accounting socket address, or nil when
// the server is not running.
func (s *Server) AcctAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acctConn == nil {
		return nil
	}
	return s.acctConn.LocalAddr()
}

func bindUDP(host string, port int) (*net.UDPConn, error) {
	addr := &net.UDPAddr{Port: port}
	if host != "" {
		ip := net.ParseIP(host)
		if ip == nil {
			return nil, fmt.Errorf("bad bind address %q", host)
		}
		addr.IP = ip
	}
	return net.ListenUDP("udp", addr)
}

func (s *Server) serve(ctx context.Context, conn *net.UDPConn, role socketRole, chain []HandlerFunc) {
	defer s.wg.Done()

	buf := make([]byte, packet.MaxPacketSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.logg.Errorf("read: %v", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn, src, data, role, chain)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn *net.UDPConn, src *net.UDPAddr, data []byte, role socketRole, chain []HandlerFunc) {
	secret, ok := s.cfg.Clients[src.IP.String()]
	if !ok {
		s.logg.Warnf("dropping datagram from unknown client %s", src.IP)
		return
	}

	req, err := packet.Decode(s.dict, data, []byte(secret))
	if err != nil {
		s.logg.Warnf("dropping malformed datagram from %s: %v", src, err)
		return
	}

	s.logg.Debugf("received %s from %s", req, src)

	resp, err := s.respond(ctx, req, src, []byte(secret), role, chain)
	if err != nil {
		s.logg.Errorf("handler for %s id=%d from %s: %v",
			req.Code(), req.Identifier(), src, err)
		return
	}
	if resp == nil {
		return
	}

	encoded, err := resp.Encode([]byte(secret), true)
	if err != nil {
		s.logg.Errorf("encode response for %s: %v", src, err)
		return
	}
	if _, err := conn.WriteToUDP(encoded, src); err != nil {
		s.logg.Errorf("send response to %s: %v", src, err)
		return
	}
	s.logg.Debugf("sent %s to %s", resp, src)
}

// respond builds the default response for the socket role and request
// code, echoes any Proxy-State attributes, and runs the handler chain.
// Codes that do not belong on the receiving socket are dropped.
func (s *Server) respond(ctx context.Context, req *packet.Packet, src *net.UDPAddr, secret []byte, role socketRole, chain []HandlerFunc) (*packet.Packet, error) {
	var code packet.Code
	switch {
	case role == roleAuth && req.Code() == packet.CodeAccessRequest:
		code = packet.CodeAccessReject
	case role == roleAuth && req.Code() == packet.CodeStatusServer:
		code = packet.CodeAccessAccept
	case role == roleAcct && req.Code() == packet.CodeAccountingRequest:
		code = packet.CodeAccountingResponse
	default:
		s.logg.Warnf("ignoring %s on %s socket from %s", req.Code(), role, src)
		return nil, nil
	}

	resp := packet.New(s.dict, code, req.Identifier())
	if err := resp.SetAuthenticator(req.Authenticator()); err != nil {
		return nil, err
	}
	for _, attr := range req.GetAll("Proxy-State") {
		if err := resp.Attributes().Add(attr); err != nil {
			return nil, err
		}
	}

	if req.Code() == packet.CodeStatusServer {
		return resp, nil
	}

	if err := runChain(ctx, chain, &Request{
		Packet:     req,
		ClientAddr: src,
		Secret:     secret,
	}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
