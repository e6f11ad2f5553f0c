package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// StoreURL empty means no backing store: clients fall back to their
	// local storage.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	StoreURL    string `env:"STORE_URL"`

	SiteURL string   `env:"SITE_URL"`
	SPADir  string   `env:"SPA_DIR"`
	Seed    bool     `env:"SEED" envDefault:"true"`
	Boards  []string `env:"BOARDS" envSeparator:","`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	switch cfg.StoreDriver {
	case "sqlite", "postgres", "redis":
	default:
		return nil, fmt.Errorf("STORE_DRIVER %q: want sqlite, postgres or redis", cfg.StoreDriver)
	}
	return &cfg, nil
}

// BoardList returns the boards from BOARDS, or the default party boards.
func (c *Config) BoardList() ([]scoreboard.Board, error) {
	if len(c.Boards) == 0 {
		return scoreboard.DefaultBoards(), nil
	}
	boards := make([]scoreboard.Board, 0, len(c.Boards))
	for _, s := range c.Boards {
		b, err := scoreboard.ParseBoard(s)
		if err != nil {
			return nil, fmt.Errorf("BOARDS: %w", err)
		}
		boards = append(boards, b)
	}
	return boards, nil
}
