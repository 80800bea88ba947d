// Package config loads the optional thingtunnel defaults file.
package config

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config holds defaults applied beneath command-line flags.
type Config struct {
	Profile        string
	Region         string
	Port           int
	BindAddress    string
	KnownHostsPath string
}

// DefaultPath is where Load looks when no path is passed explicitly.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "thingtunnel", "config.toml")
}

// Load reads a TOML defaults file. With an empty path the default
// location is tried and a missing file yields an empty Config; a file
// named explicitly must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return &Config{}, nil
		}
	}
	data, err := fs.ReadFile(fileSystem, path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errors.Wrap(err, "read config")
	}
	c := new(Config)
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return c, nil
}
