package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Session storage backends of the client.
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
)

// Client is the configuration of the interactive client.
type Client struct {
	Server  ClientServer  `yaml:"server"`
	Storage ClientStorage `yaml:"storage"`
	Log     ClientLog     `yaml:"log"`
}

type ClientServer struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string `yaml:"ca_file"`
}

type ClientStorage struct {
	Backend        string `yaml:"backend"`
	Path           string `yaml:"path"`
	KeyringService string `yaml:"keyring_service"`
}

type ClientLog struct {
	Level string `yaml:"level"`
}

// DefaultClient returns the client defaults.
func DefaultClient() *Client {
	return &Client{
		Server: ClientServer{
			BaseURL: "http://localhost:8080/api",
			Timeout: 10 * time.Second,
		},
		Storage: ClientStorage{
			Backend:        BackendFile,
			Path:           "~/.safedrive/session.json",
			KeyringService: "safedrive",
		},
		Log: ClientLog{Level: "warn"},
	}
}

// LoadClient reads the client config at path over the defaults, then applies
// SAFEDRIVE_API_URL. A missing file is not an error.
func LoadClient(path string) (*Client, error) {
	cfg := DefaultClient()
	if path != "" {
		data, err := os.ReadFile(expandHome(path))
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}
	if v := os.Getenv("SAFEDRIVE_API_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Server.CAFile = expandHome(cfg.Server.CAFile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Client) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("server.base_url must be an http(s) URL: %q", c.Server.BaseURL)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Server.CAFile != "" && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("server.ca_file requires an https base_url")
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file backend")
		}
	case BackendKeyring:
		if c.Storage.KeyringService == "" {
			return fmt.Errorf("storage.keyring_service is required for the keyring backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be '%s' or '%s')", c.Storage.Backend, BackendFile, BackendKeyring)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
