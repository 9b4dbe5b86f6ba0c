package config

import (
	"errors"

	"github.com/charmbracelet/keygen"
)

// ErrEmptySigningKeyPath is returned when the signing key path is empty.
var ErrEmptySigningKeyPath = errors.New("empty signing key path")

// KeyPair returns the server's Ed25519 signing key pair, generating it when
// the key file does not exist yet.
func KeyPair(cfg *Config) (*keygen.SSHKeyPair, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.SigningKeyPath == "" {
		return nil, ErrEmptySigningKeyPath
	}

	return keygen.New(cfg.SigningKeyPath, keygen.WithKeyType(keygen.Ed25519), keygen.WithWrite())
}
