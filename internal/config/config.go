// Package config provides functionality for managing configuration options
// for the server using command-line flags, a YAML file and environment
// variables, and for the interactive client using a YAML file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `yaml:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `yaml:"database_dsn"`

	// Config is the path to the config file.
	Config string `yaml:"-"`

	// JWTSecret signs and verifies bearer tokens.
	JWTSecret string `yaml:"jwt_secret"`

	// EncryptionKey is the passphrase credential passwords are encrypted with.
	EncryptionKey string `yaml:"encryption_key"`

	// TokenTTL is the lifetime of an issued token.
	TokenTTL time.Duration `yaml:"token_ttl"`

	// UploadDir is the root of the per-user file directories.
	UploadDir string `yaml:"upload_dir"`

	// MaxUploadBytes bounds the size of one uploaded file.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// RevealPerMinute limits password reveals per user; 0 disables the limit.
	RevealPerMinute int `yaml:"reveal_per_minute"`

	// RedisAddr, when set, shares the reveal limit between instances.
	RedisAddr string `yaml:"redis_addr"`

	// Retention is how long soft-deleted rows are kept before purging.
	Retention time.Duration `yaml:"soft_delete_retention"`

	// TLSCert and TLSKey, when both set, make the server listen for HTTPS.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	// LogLevel is the zap level name.
	LogLevel string `yaml:"log_level"`
}

// Default returns the options used when nothing else is configured.
func Default() *Options {
	return &Options{
		Port:            "localhost:8080",
		Config:          "config.yaml",
		TokenTTL:        24 * time.Hour,
		UploadDir:       "uploads",
		MaxUploadBytes:  10 << 20,
		RevealPerMinute: 20,
		Retention:       30 * 24 * time.Hour,
		LogLevel:        "info",
	}
}

// Parse parses the command-line arguments (without the program name), the
// config file and environment variables, in that order of increasing
// precedence.
func Parse(args []string) (*Options, error) {
	options := Default()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", options.Port, "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", options.Config, "path to config file")
	fs.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	fs.StringVar(&options.UploadDir, "u", options.UploadDir, "directory for uploaded files")
	fs.StringVar(&options.LogLevel, "l", options.LogLevel, "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if err := options.loadFile(options.Config); err != nil {
			return nil, err
		}
	}

	if err := options.loadEnv(); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func (o *Options) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, o); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func (o *Options) loadEnv() error {
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		o.Port = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		o.DatabaseDSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		o.JWTSecret = v
	}
	if v := os.Getenv("ENCRYPTION_KEY"); v != "" {
		o.EncryptionKey = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		o.UploadDir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		o.RedisAddr = v
	}
	if v := os.Getenv("TLS_CERT_FILE"); v != "" {
		o.TLSCert = v
	}
	if v := os.Getenv("TLS_KEY_FILE"); v != "" {
		o.TLSKey = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		o.TokenTTL = ttl
	}
	if v := os.Getenv("REVEAL_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REVEAL_PER_MINUTE: %w", err)
		}
		o.RevealPerMinute = n
	}
	return nil
}

// Validate reports the first option that cannot work.
func (o *Options) Validate() error {
	switch {
	case o.Port == "":
		return errors.New("server address is required")
	case o.DatabaseDSN == "":
		return errors.New("database dsn is required (-d or DATABASE_DSN)")
	case len(o.JWTSecret) < 16:
		return errors.New("jwt secret must be at least 16 bytes (JWT_SECRET)")
	case o.EncryptionKey == "":
		return errors.New("encryption key is required (ENCRYPTION_KEY)")
	case o.TokenTTL <= 0:
		return errors.New("token_ttl must be positive")
	case o.MaxUploadBytes <= 0:
		return errors.New("max_upload_bytes must be positive")
	case o.RevealPerMinute < 0:
		return errors.New("reveal_per_minute must not be negative")
	case (o.TLSCert == "") != (o.TLSKey == ""):
		return errors.New("tls_cert and tls_key must be set together")
	}
	return nil
}
