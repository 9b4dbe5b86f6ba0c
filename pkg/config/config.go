// Package config holds the Largo server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrNilConfig is returned when the config is nil.
var ErrNilConfig = errors.New("nil config")

// HTTPConfig is the HTTP configuration for the server.
type HTTPConfig struct {
	// ListenAddr is the address on which the HTTP server will listen.
	ListenAddr string `env:"LISTEN_ADDR" yaml:"listen_addr"`

	// TLSKeyPath is the path to the TLS private key.
	TLSKeyPath string `env:"TLS_KEY_PATH" yaml:"tls_key_path"`

	// TLSCertPath is the path to the TLS certificate.
	TLSCertPath string `env:"TLS_CERT_PATH" yaml:"tls_cert_path"`

	// PublicURL is the public URL of the HTTP server. Action hrefs produced
	// by the streamed transfer adapter are rooted here.
	PublicURL string `env:"PUBLIC_URL" yaml:"public_url"`
}

// StatsConfig is the configuration for the stats server.
type StatsConfig struct {
	// ListenAddr is the address on which the stats server will listen.
	ListenAddr string `env:"LISTEN_ADDR" yaml:"listen_addr"`
}

// LogConfig is the logger configuration.
type LogConfig struct {
	// Format is the format of the logs.
	// Valid values are "json", "logfmt", and "text".
	Format string `env:"FORMAT" yaml:"format"`

	// Time format for the log `ts` field.
	// Format must be described in Golang's time format.
	TimeFormat string `env:"TIME_FORMAT" yaml:"time_format"`

	// Path to a file to write logs to.
	// If not set, logs will be written to stderr.
	Path string `env:"PATH" yaml:"path"`
}

// StorageConfig selects and scopes the storage backend.
type StorageConfig struct {
	// Backend is the storage backend to use. Valid values are "local" and
	// "s3".
	Backend string `env:"BACKEND" yaml:"backend"`

	// Root is the local storage root directory. Only used by the "local"
	// backend.
	Root string `env:"ROOT" yaml:"root"`

	// Prefix is an optional path prefix objects are stored under. A leading
	// separator is stripped. The prefix never appears in client-facing URLs.
	Prefix string `env:"PREFIX" yaml:"prefix"`
}

// S3Config is the configuration for the S3-compatible storage backend.
type S3Config struct {
	// Endpoint is the S3 server endpoint, host or host:port.
	Endpoint string `env:"ENDPOINT" yaml:"endpoint"`

	// Bucket is the bucket objects are stored in. It is created on startup
	// when missing.
	Bucket string `env:"BUCKET" yaml:"bucket"`

	// Region is the bucket region.
	Region string `env:"REGION" yaml:"region"`

	// AccessKey and SecretKey are the static credentials.
	AccessKey string `env:"ACCESS_KEY" yaml:"access_key"`
	SecretKey string `env:"SECRET_KEY" yaml:"secret_key"`

	// UseSSL controls whether to connect over TLS.
	UseSSL bool `env:"USE_SSL" yaml:"use_ssl"`
}

// TransferConfig is the configuration for transfer adapters.
type TransferConfig struct {
	// Adapter is the transfer adapter to use. Valid values are "basic"
	// (bytes stream through the server) and "external" (clients talk to the
	// storage backend directly via signed URLs).
	Adapter string `env:"ADAPTER" yaml:"adapter"`

	// ActionLifetime is the number of seconds a produced action stays
	// valid. It is advisory for streamed actions and enforced
	// cryptographically for signed URLs.
	ActionLifetime int `env:"ACTION_LIFETIME" yaml:"action_lifetime"`
}

// Config is the configuration for Largo.
type Config struct {
	// Name is the name of the server.
	Name string `env:"NAME" yaml:"name"`

	// HTTP is the configuration for the HTTP server.
	HTTP HTTPConfig `envPrefix:"HTTP_" yaml:"http"`

	// Stats is the configuration for the stats server.
	Stats StatsConfig `envPrefix:"STATS_" yaml:"stats"`

	// Log is the logger configuration.
	Log LogConfig `envPrefix:"LOG_" yaml:"log"`

	// Storage is the storage backend configuration.
	Storage StorageConfig `envPrefix:"STORAGE_" yaml:"storage"`

	// S3 is the S3 backend configuration.
	S3 S3Config `envPrefix:"S3_" yaml:"s3"`

	// Transfer is the transfer adapter configuration.
	Transfer TransferConfig `envPrefix:"TRANSFER_" yaml:"transfer"`

	// SigningKeyPath is the path to the Ed25519 key used to sign action
	// tokens. The key is generated when missing.
	SigningKeyPath string `env:"SIGNING_KEY_PATH" yaml:"signing_key_path"`

	// DataPath is the path to the directory where Largo will store its data.
	DataPath string `env:"DATA_PATH" yaml:"-"`
}

// ActionLifetime returns the action lifetime as a duration.
func (c *Config) ActionLifetime() time.Duration {
	return time.Duration(c.Transfer.ActionLifetime) * time.Second
}

// IsDebug returns true if the server is running in debug mode.
func IsDebug() bool {
	debug, _ := strconv.ParseBool(os.Getenv("LARGO_DEBUG"))
	return debug
}

// IsVerbose returns true if the server is running in verbose mode.
// Verbose mode is only enabled if debug mode is enabled.
func IsVerbose() bool {
	verbose, _ := strconv.ParseBool(os.Getenv("LARGO_VERBOSE"))
	return IsDebug() && verbose
}

// parseFile parses the given file as a configuration file.
// The file must be in YAML format.
func parseFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer f.Close() // nolint: errcheck
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	return cfg.Validate()
}

// ParseFile parses the config from the default file path.
// This also calls Validate() on the config.
func (c *Config) ParseFile() error {
	return parseFile(c, c.ConfigPath())
}

// ParseEnv parses the config from the environment variables.
// This also calls Validate() on the config.
func (c *Config) ParseEnv() error {
	if err := env.ParseWithOptions(c, env.Options{
		Prefix: "LARGO_",
	}); err != nil {
		return fmt.Errorf("parse environment variables: %w", err)
	}

	return c.Validate()
}

// Parse parses the config from the default file path and environment
// variables. This also calls Validate() on the config.
func (c *Config) Parse() error {
	if err := c.ParseFile(); err != nil {
		return err
	}

	return c.ParseEnv()
}

// WriteConfig writes the configuration to the default file.
func (c *Config) WriteConfig() error {
	path := c.ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(newConfigFile(c)), 0o644) // nolint: errcheck, gosec
}

// DefaultDataPath returns the path to the data directory.
// It uses the LARGO_DATA_PATH environment variable if set, otherwise it
// uses "data".
func DefaultDataPath() string {
	dp := os.Getenv("LARGO_DATA_PATH")
	if dp == "" {
		dp = "data"
	}

	return dp
}

// ConfigPath returns the path to the config file.
func (c *Config) ConfigPath() string { // nolint:revive
	return filepath.Join(c.DataPath, "config.yaml")
}

// Exist returns true if the config file exists.
func (c *Config) Exist() bool {
	_, err := os.Stat(c.ConfigPath())
	return err == nil
}

// DefaultConfig returns the default Config. All the path values are relative
// to the data directory.
// Use Validate() to validate the config and ensure absolute paths.
func DefaultConfig() *Config {
	return &Config{
		Name:     "Largo",
		DataPath: DefaultDataPath(),
		HTTP: HTTPConfig{
			ListenAddr: ":23230",
			PublicURL:  "http://localhost:23230",
		},
		Stats: StatsConfig{
			ListenAddr: "localhost:23233",
		},
		Log: LogConfig{
			Format:     "text",
			TimeFormat: time.DateTime,
		},
		Storage: StorageConfig{
			Backend: "local",
			Root:    "objects",
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
		},
		Transfer: TransferConfig{
			Adapter:        "basic",
			ActionLifetime: 900,
		},
		SigningKeyPath: filepath.Join("keys", "largo_ed25519"),
	}
}

// Validate validates the configuration.
// It updates the configuration with absolute paths.
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.DataPath) {
		dp, err := filepath.Abs(c.DataPath)
		if err != nil {
			return err
		}
		c.DataPath = dp
	}

	c.HTTP.PublicURL = strings.TrimSuffix(c.HTTP.PublicURL, "/")

	if c.HTTP.TLSKeyPath != "" && !filepath.IsAbs(c.HTTP.TLSKeyPath) {
		c.HTTP.TLSKeyPath = filepath.Join(c.DataPath, c.HTTP.TLSKeyPath)
	}

	if c.HTTP.TLSCertPath != "" && !filepath.IsAbs(c.HTTP.TLSCertPath) {
		c.HTTP.TLSCertPath = filepath.Join(c.DataPath, c.HTTP.TLSCertPath)
	}

	if c.Storage.Root != "" && !filepath.IsAbs(c.Storage.Root) {
		c.Storage.Root = filepath.Join(c.DataPath, c.Storage.Root)
	}

	if c.SigningKeyPath != "" && !filepath.IsAbs(c.SigningKeyPath) {
		c.SigningKeyPath = filepath.Join(c.DataPath, c.SigningKeyPath)
	}

	switch c.Transfer.Adapter {
	case "basic", "external":
	default:
		return fmt.Errorf("invalid transfer adapter %q", c.Transfer.Adapter)
	}

	if c.Transfer.ActionLifetime <= 0 {
		return fmt.Errorf("invalid action lifetime %d", c.Transfer.ActionLifetime)
	}

	return nil
}

// Environ returns the config as a list of environment variables.
func (c *Config) Environ() []string {
	envs := []string{}
	if c == nil {
		return envs
	}

	envs = append(envs, []string{
		fmt.Sprintf("LARGO_NAME=%s", c.Name),
		fmt.Sprintf("LARGO_DATA_PATH=%s", c.DataPath),
		fmt.Sprintf("LARGO_HTTP_LISTEN_ADDR=%s", c.HTTP.ListenAddr),
		fmt.Sprintf("LARGO_HTTP_TLS_KEY_PATH=%s", c.HTTP.TLSKeyPath),
		fmt.Sprintf("LARGO_HTTP_TLS_CERT_PATH=%s", c.HTTP.TLSCertPath),
		fmt.Sprintf("LARGO_HTTP_PUBLIC_URL=%s", c.HTTP.PublicURL),
		fmt.Sprintf("LARGO_STATS_LISTEN_ADDR=%s", c.Stats.ListenAddr),
		fmt.Sprintf("LARGO_LOG_FORMAT=%s", c.Log.Format),
		fmt.Sprintf("LARGO_LOG_TIME_FORMAT=%s", c.Log.TimeFormat),
		fmt.Sprintf("LARGO_STORAGE_BACKEND=%s", c.Storage.Backend),
		fmt.Sprintf("LARGO_STORAGE_ROOT=%s", c.Storage.Root),
		fmt.Sprintf("LARGO_STORAGE_PREFIX=%s", c.Storage.Prefix),
		fmt.Sprintf("LARGO_S3_ENDPOINT=%s", c.S3.Endpoint),
		fmt.Sprintf("LARGO_S3_BUCKET=%s", c.S3.Bucket),
		fmt.Sprintf("LARGO_S3_REGION=%s", c.S3.Region),
		fmt.Sprintf("LARGO_S3_USE_SSL=%t", c.S3.UseSSL),
		fmt.Sprintf("LARGO_TRANSFER_ADAPTER=%s", c.Transfer.Adapter),
		fmt.Sprintf("LARGO_TRANSFER_ACTION_LIFETIME=%d", c.Transfer.ActionLifetime),
		fmt.Sprintf("LARGO_SIGNING_KEY_PATH=%s", c.SigningKeyPath),
	}...)

	return envs
}
