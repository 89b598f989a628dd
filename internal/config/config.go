// Package config reads the user settings file and the project descriptor.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/stagecraft/stagecraft/internal/style"
)

// DefaultStateDir is where ledger and stash live, relative to the project root, unless
// the user config says otherwise.
const DefaultStateDir = ".stagecraft"

// Config is the per-user configuration stored in config.toml.
type Config struct {
	DefaultEnvironment string `toml:"default-environment,omitempty"`
	StateDir           string `toml:"state-dir,omitempty"`
	CopyConcurrency    int    `toml:"copy-concurrency,omitempty,omitzero"`
	NoColor            bool   `toml:"no-color,omitempty"`
	Timestamps         bool   `toml:"timestamps,omitempty"`
}

// Home returns the directory holding the user config, honouring STAGECRAFT_HOME.
func Home() (string, error) {
	if home := os.Getenv("STAGECRAFT_HOME"); home != "" {
		return home, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "getting user home")
	}
	return filepath.Join(dir, ".stagecraft"), nil
}

func DefaultConfigPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.toml"), nil
}

// Read loads the config at path. A missing file yields the zero Config.
func Read(path string) (Config, error) {
	cfg := Config{}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, errors.Wrapf(err, "failed to read config file at path %s", style.Symbol(path))
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("unknown configuration elements %s in %s", ParseUndecodedKeys(undecoded), style.Symbol(path))
	}

	if cfg.CopyConcurrency < 0 {
		return Config{}, errors.Errorf("%s must not be negative", style.Symbol("copy-concurrency"))
	}
	return cfg, nil
}

func Write(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return errors.Wrap(err, "creating config directory")
	}

	w, err := os.Create(filepath.Clean(path))
	if err != nil {
		return errors.Wrapf(err, "creating config file %s", style.Symbol(path))
	}
	defer w.Close()

	return toml.NewEncoder(w).Encode(cfg)
}

// StateDirFor resolves where mount state is kept for the project at root.
func (c Config) StateDirFor(root string) string {
	dir := c.StateDir
	if dir == "" {
		dir = DefaultStateDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, dir)
}
