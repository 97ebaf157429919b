package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap/zapcore"
)

// ErrMissingCredentials is returned when no identifier or secret can be found.
var ErrMissingCredentials = errors.New("credentials: identifier and secret are required")

// keyringGet is swapped out in tests.
var keyringGet = keyring.Get

// Credentials is an immutable account identifier and secret pair.
// Its String and log representations never include the secret.
type Credentials struct {
	identifier string
	secret     string
}

// NewCredentials builds a Credentials value, rejecting blank fields.
func NewCredentials(identifier, secret string) (Credentials, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return Credentials{identifier: identifier, secret: secret}, nil
}

// Identifier returns the login identifier (usually an email).
func (c Credentials) Identifier() string { return c.identifier }

// Secret returns the password.
func (c Credentials) Secret() string { return c.secret }

// IsZero reports whether the value was never populated.
func (c Credentials) IsZero() bool { return c.identifier == "" && c.secret == "" }

// String implements fmt.Stringer with the secret redacted.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{identifier: %s, secret: [REDACTED]}", maskIdentifier(c.identifier))
}

// GoString keeps %#v from printing the secret.
func (c Credentials) GoString() string { return c.String() }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (c Credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("identifier", maskIdentifier(c.identifier))
	enc.AddBool("secret_set", c.secret != "")
	return nil
}

// maskIdentifier keeps the first character and the domain of an email.
func maskIdentifier(id string) string {
	if id == "" {
		return ""
	}
	local, domain, found := strings.Cut(id, "@")
	masked := "***"
	if local != "" {
		masked = string([]rune(local)[:1]) + masked
	}
	if found {
		return masked + "@" + domain
	}
	return masked
}

// ResolveCredentials builds Credentials from configuration. When the secret
// is empty and a keyring service is configured, the secret is read from the
// OS keychain under the identifier.
func ResolveCredentials(cfg CredentialsConfig) (Credentials, error) {
	secret := cfg.Secret
	if secret == "" && cfg.KeyringService != "" && cfg.Identifier != "" {
		s, err := keyringGet(cfg.KeyringService, cfg.Identifier)
		switch {
		case err == nil:
			secret = s
		case errors.Is(err, keyring.ErrNotFound):
			return Credentials{}, fmt.Errorf("%w: no secret stored in keyring service %q", ErrMissingCredentials, cfg.KeyringService)
		default:
			return Credentials{}, fmt.Errorf("credentials: failed to read keyring: %w", err)
		}
	}
	return NewCredentials(cfg.Identifier, secret)
}

// StoreSecret saves a secret in the OS keychain for later resolution.
func StoreSecret(service, identifier, secret string) error {
	if service == "" || identifier == "" || secret == "" {
		return fmt.Errorf("credentials: service, identifier and secret are required")
	}
	if err := keyring.Set(service, identifier, secret); err != nil {
		return fmt.Errorf("credentials: failed to write keyring: %w", err)
	}
	return nil
}
