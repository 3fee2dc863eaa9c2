package server

import (
	"errors"
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/david-macharia/isc-radius/pkg/dictionary"
	"github.com/david-macharia/isc-radius/pkg/log"
)

const (
	// DefaultAuthPort is the IANA authentication port.
	DefaultAuthPort = 1812

	// DefaultAcctPort is the IANA accounting port.
	DefaultAcctPort = 1813
)

var (
	// ErrNoClients is returned when a server is configured without
	// any client secrets.
	ErrNoClients = errors.New("no clients configured")

	// ErrBadPort is returned for ports outside 1..65535.
	ErrBadPort = errors.New("port out of range")
)

// Config carries the server settings.
type Config struct {
	// BindAddress is the local address the sockets bind to. Empty
	// means all interfaces.
	BindAddress string `yaml:"bind_address"`

	// AuthPort is the UDP port for authentication traffic.
	AuthPort int `yaml:"auth_port"`

	// AcctPort is the UDP port for accounting traffic.
	AcctPort int `yaml:"acct_port"`

	// Clients maps client source IP addresses to shared secrets.
	Clients map[string]string `yaml:"clients"`

	// Dictionaries lists extra dictionary files to load on top of
	// the bundled set.
	Dictionaries []string `yaml:"dictionaries"`

	Dictionary *dictionary.Dictionary `yaml:"-"`
	Logger     log.Logger             `yaml:"-"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AuthPort == 0 {
		c.AuthPort = DefaultAuthPort
	}
	if c.AcctPort == 0 {
		c.AcctPort = DefaultAcctPort
	}
	if c.AuthPort < 1 || c.AuthPort > 65535 {
		return fmt.Errorf("%w: auth_port %d", ErrBadPort, c.AuthPort)
	}
	if c.AcctPort < 1 || c.AcctPort > 65535 {
		return fmt.Errorf("%w: acct_port %d", ErrBadPort, c.AcctPort)
	}
	if len(c.Clients) == 0 {
		return ErrNoClients
	}
	for addr := range c.Clients {
		if net.ParseIP(addr) == nil {
			return fmt.Errorf("bad client address %q", addr)
		}
	}
	return nil
}
