package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radiusd.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
bind_address: 127.0.0.1
auth_port: 11812
acct_port: 11813
clients:
  10.0.0.1: nas-secret
  10.0.0.2: other-secret
dictionaries:
  - /etc/radiusd/dictionary.local
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.BindAddress)
	assert.Equal(t, 11812, cfg.AuthPort)
	assert.Equal(t, 11813, cfg.AcctPort)
	assert.Equal(t, "nas-secret", cfg.Clients["10.0.0.1"])
	assert.Equal(t, []string{"/etc/radiusd/dictionary.local"}, cfg.Dictionaries)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.yml")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		cfg := &Config{Clients: map[string]string{"10.0.0.1": "s"}}
		require.NoError(t, cfg.validate())
		assert.Equal(t, DefaultAuthPort, cfg.AuthPort)
		assert.Equal(t, DefaultAcctPort, cfg.AcctPort)
	})

	t.Run("no clients", func(t *testing.T) {
		cfg := &Config{}
		assert.ErrorIs(t, cfg.validate(), ErrNoClients)
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := &Config{
			AuthPort: 70000,
			Clients:  map[string]string{"10.0.0.1": "s"},
		}
		assert.ErrorIs(t, cfg.validate(), ErrBadPort)
	})

	t.Run("bad client address", func(t *testing.T) {
		cfg := &Config{Clients: map[string]string{"nas.example.com": "s"}}
		assert.Error(t, cfg.validate())
	})
}
