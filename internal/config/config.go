package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Server struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"` // empty disables password auth
}

type Certificate struct {
	Privkey    string `mapstructure:"privkey"`
	Fullchain  string `mapstructure:"fullchain"`
	Passphrase string `mapstructure:"passphrase"`
}

type Config struct {
	Server      Server      `mapstructure:"server"`
	Certificate Certificate `mapstructure:"certificate"`
}

// TLS reports whether certificate material is configured.
func (c *Config) TLS() bool {
	return c.Certificate.Privkey != "" && c.Certificate.Fullchain != ""
}

// Load reads config.toml, falling back to defaults when the file is
// absent. SYNCROOM_CONFIG overrides the file path.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	fileName := os.Getenv("SYNCROOM_CONFIG")
	if fileName == "" {
		fileName = "config.toml"
	}
	v.SetConfigFile(fileName)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8443)
	v.SetDefault("server.password", "")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
