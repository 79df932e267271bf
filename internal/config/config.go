// Package config loads the service settings from config.toml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Google   GoogleConfig   `mapstructure:"google"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// PublicURL is used for links back to the board, e.g. in calendar events.
	PublicURL string `mapstructure:"public_url"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
	Seed bool   `mapstructure:"seed"`
}

type GoogleConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	ServiceAccount map[string]any `mapstructure:"service_account"`
	Calendar       struct {
		CalendarID string `mapstructure:"calendar_id"`
	} `mapstructure:"calendar"`
}

// Load reads config.toml from dir. A missing file is fine; defaults and
// BOARD_* environment variables still apply.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.public_url", "")
	v.SetDefault("database.path", "board.db")
	v.SetDefault("database.seed", true)
	v.SetDefault("google.enabled", false)
	v.SetDefault("google.calendar.calendar_id", "")

	v.SetEnvPrefix("BOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}
