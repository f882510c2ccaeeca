package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	req := require.New(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	req.NoError(os.WriteFile(path, []byte(`
[server]
host = "127.0.0.1"
port = 9000
password = "hunter2"

[certificate]
privkey = "/etc/ssl/private/privkey.pem"
fullchain = "/etc/ssl/certs/fullchain.pem"
passphrase = "sesame"
`), 0o600))
	t.Setenv("SYNCROOM_CONFIG", path)

	cfg, err := Load()
	req.NoError(err)
	req.Equal("127.0.0.1", cfg.Server.Host)
	req.Equal(9000, cfg.Server.Port)
	req.Equal("hunter2", cfg.Server.Password)
	req.Equal("/etc/ssl/private/privkey.pem", cfg.Certificate.Privkey)
	req.Equal("sesame", cfg.Certificate.Passphrase)
	req.True(cfg.TLS())
}

func TestLoadDefaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("SYNCROOM_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	req.NoError(err)
	req.Equal("0.0.0.0", cfg.Server.Host)
	req.Equal(8443, cfg.Server.Port)
	req.Empty(cfg.Server.Password, "empty password disables password auth")
	req.False(cfg.TLS())
}
