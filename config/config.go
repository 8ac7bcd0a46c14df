// Package config loads and saves the YAML configuration of the client and server.
// Command line flags override file values; --save writes the merged result back.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"go_dir_sync/constants"
	"go_dir_sync/fileio"
)

// ServerConfig is the persisted server configuration
type ServerConfig struct {
	Address      string `yaml:"address"`
	BackupDir    string `yaml:"backup_dir"`
	MultipathTCP bool   `yaml:"mptcp,omitempty"`
}

// ClientConfig is the persisted client configuration
type ClientConfig struct {
	RemoteAddress string   `yaml:"remote_address,omitempty"`
	Exclude       []string `yaml:"exclude,omitempty"`
	DSCP          int      `yaml:"dscp,omitempty"`
	MultipathTCP  bool     `yaml:"mptcp,omitempty"`
}

// DefaultServerConfig listens on all interfaces and stores backups under the home directory
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:   constants.DEFAULT_BIND + ":" + strconv.Itoa(constants.DEFAULT_PORT),
		BackupDir: defaultBackupDir(),
	}
}

// DefaultClientConfig has no remote address, the user must provide one
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{DSCP: constants.DEFAULT_DSCP}
}

func defaultBackupDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("."+constants.APP_NAME, "backups")
	}
	return filepath.Join(home, "."+constants.APP_NAME, "backups")
}

// DefaultPath returns the location of a config file in the user config directory
func DefaultPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate user config directory: %w", err)
	}
	return filepath.Join(dir, constants.APP_NAME, name), nil
}

// LoadServerConfig reads a server config. A missing file yields an error wrapping os.ErrNotExist.
func LoadServerConfig(path string) (*ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrCreateServerConfig reads a server config, writing the defaults first if the file is missing
func LoadOrCreateServerConfig(path string) (*ServerConfig, bool, error) {
	cfg, err := LoadServerConfig(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	cfg = DefaultServerConfig()
	if err := cfg.Save(path); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// LoadClientConfig reads a client config. A missing file yields the defaults.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := load(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultClientConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save writes the server config, creating parent directories
func (c *ServerConfig) Save(path string) error {
	return save(path, c)
}

// Save writes the client config, creating parent directories
func (c *ClientConfig) Save(path string) error {
	return save(path, c)
}

// Validate checks a server config is usable
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return errors.New("server address is empty")
	}
	if c.BackupDir == "" {
		return errors.New("backup directory is empty")
	}
	return nil
}

// Validate checks a client config is usable
func (c *ClientConfig) Validate() error {
	if c.RemoteAddress == "" {
		return errors.New("server address not specified, use --address to set it")
	}
	if c.DSCP < 0 || c.DSCP > 255 {
		return fmt.Errorf("dscp %d out of range", c.DSCP)
	}
	return nil
}

func load(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s: %w", path, os.ErrNotExist)
		}
		return fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return nil
}

func save(path string, src any) error {
	data, err := yaml.Marshal(src)
	if err != nil {
		return err
	}
	if err := fileio.EnsureParent(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
