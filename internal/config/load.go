package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Location is a resolved config file path and how it was chosen.
type Location struct {
	Path string
	// Explicit is true when the path came from a flag or $ZSTORE_CONFIG, in
	// which case the file must exist.
	Explicit bool
}

// Resolve picks the config file: flagPath if set, then $ZSTORE_CONFIG,
// then 0store/0store.lua under $XDG_CONFIG_HOME (default ~/.config).
func Resolve(flagPath string) (Location, error) {
	if flagPath != "" {
		return Location{Path: flagPath, Explicit: true}, nil
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return Location{Path: env, Explicit: true}, nil
	}

	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Location{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return Location{Path: filepath.Join(base, "0store", "0store.lua")}, nil
}

// Load parses the config at loc. A missing default config yields Defaults.
func (p *Parser) Load(ctx context.Context, loc Location) (*Config, error) {
	cfg, err := p.ParseFile(ctx, loc.Path)
	if err != nil {
		if !loc.Explicit && errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return nil, err
	}
	return cfg, nil
}
